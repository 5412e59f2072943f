package vectorindex

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/FAL1989/consultorio-jung/internal/chunker"
	"github.com/FAL1989/consultorio-jung/internal/domain"
	"github.com/FAL1989/consultorio-jung/internal/summarizer"
)

// IngestReport describes one IngestFiles run.
type IngestReport struct {
	Documents int
	Chunks    int
	IDs       []string
	Sections  []string
	Concepts  []string
	Citations []string
	Summary   string
}

// IngestFiles reads .txt and .md files (globs allowed), splits each one by
// section, embeds the chunks and writes them with their source path.
func (a *Adapter) IngestFiles(ctx context.Context, paths []string, sum *summarizer.FrequencySummarizer, summarySentences int) (*IngestReport, error) {
	var documents []domain.Document
	for _, p := range paths {
		matches, _ := filepath.Glob(p)
		if matches == nil {
			matches = []string{p}
		}
		for _, m := range matches {
			ext := strings.ToLower(filepath.Ext(m))
			if ext != ".txt" && ext != ".md" {
				continue
			}
			data, err := os.ReadFile(m)
			if err != nil {
				return nil, err
			}
			documents = append(documents, domain.Document{ID: hashString(m), Path: m, Content: string(data)})
		}
	}
	if len(documents) == 0 {
		return nil, fmt.Errorf("no .txt or .md documents found")
	}

	perDoc := make([][]domain.Chunk, len(documents))
	var allChunks []domain.Chunk
	var allTexts []string
	var allTextConcat strings.Builder
	for i, d := range documents {
		chunks := a.chunker.SplitSections(d.Content)
		perDoc[i] = chunks
		allChunks = append(allChunks, chunks...)
		for _, ch := range chunks {
			allTexts = append(allTexts, ch.Content)
		}
		allTextConcat.WriteString("\n")
		allTextConcat.WriteString(d.Content)
	}
	if len(allTexts) > 0 {
		if err := a.Prepare(allTexts); err != nil {
			return nil, err
		}
	}

	report := &IngestReport{Documents: len(documents), Chunks: len(allChunks)}
	for i, d := range documents {
		base := map[string]any{
			"source":         d.Path,
			"document_id":    d.ID,
			domain.MetaTitle: strings.TrimSuffix(filepath.Base(d.Path), filepath.Ext(d.Path)),
		}
		ids, err := a.UpsertChunks(ctx, perDoc[i], base)
		if err != nil {
			return nil, err
		}
		report.IDs = append(report.IDs, ids...)
		a.logger.Info("document ingested", "path", d.Path, "chunks", len(ids))
	}

	seen := make(map[string]struct{})
	for _, ch := range allChunks {
		if ch.Section == nil || ch.Section.Title == "" {
			continue
		}
		if _, ok := seen[ch.Section.Title]; ok {
			continue
		}
		seen[ch.Section.Title] = struct{}{}
		report.Sections = append(report.Sections, ch.Section.Title)
	}
	report.Concepts = chunker.KeyConcepts(allChunks)
	report.Citations = chunker.Citations(allChunks)

	if sum != nil {
		summary, err := sum.Summarize(allTextConcat.String(), summarySentences)
		if err != nil {
			return nil, err
		}
		report.Summary = summary
	}
	return report, nil
}

func hashString(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:8])
}
