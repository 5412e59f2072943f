package domain

// Document represents a single reference text handed to ingestion.
type Document struct {
	ID       string
	Path     string
	Content  string
	Metadata map[string]string
}

// ChunkMetadata is the structural metadata extracted from a span of text.
type ChunkMetadata struct {
	Categories []string
	Concepts   []string
	References []string
}

// SectionInfo tags chunks produced by section-aware splitting.
type SectionInfo struct {
	Title string
	Major bool
}

// Chunk is a bounded span of a document with its local and global metadata.
// Overlap is the number of leading runes repeated from the previous chunk.
type Chunk struct {
	Content string
	Index   int
	Total   int
	Overlap int
	Local   ChunkMetadata
	Global  ChunkMetadata
	Section *SectionInfo
}

// ReservedTextKey is the metadata key under which chunk text is stored in the vector index.
const ReservedTextKey = "text"

// Well-known metadata keys written at ingestion and read back at query time.
const (
	MetaConcept     = "concept"
	MetaTitle       = "title"
	MetaCategory    = "category"
	MetaReferences  = "references"
	MetaSection     = "section_title"
	MetaSectionType = "section_type"
	MetaChunkIndex  = "chunk_index"
	MetaTotalChunks = "total_chunks"
)

// HitMetadata is the typed view of a retrieval hit's metadata.
type HitMetadata struct {
	Concept     string
	Title       string
	Category    string
	Section     string
	References  []string
	ChunkIndex  int
	TotalChunks int
	Extra       map[string]string
}

// RetrievedDocument is one similarity-search hit with the reserved text key removed.
type RetrievedDocument struct {
	Content  string
	Score    float64
	Metadata HitMetadata
}

// SearchFilter narrows a similarity search to a namespace and to hits whose
// metadata equals every pair in Equals.
type SearchFilter struct {
	Namespace string
	Equals    map[string]string
}

// ConceptRef is the short form of a concept sent to clients with a reply.
type ConceptRef struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// MetadataPayload is emitted once a streamed reply completes.
type MetadataPayload struct {
	Concepts   []ConceptRef `json:"concepts"`
	References []string     `json:"references"`
}

// EventKind tags a StreamEvent.
type EventKind int

const (
	EventTextDelta EventKind = iota
	EventMetadata
	EventError
)

// StreamEvent is one element of a streamed reply. Exactly one terminal
// event (EventMetadata or EventError) closes every stream.
type StreamEvent struct {
	Kind     EventKind
	Text     string
	Metadata *MetadataPayload
	Err      string
}

// Terminal reports whether no events may follow e.
func (e StreamEvent) Terminal() bool {
	return e.Kind == EventMetadata || e.Kind == EventError
}

// Usage reports token accounting for a model call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
