package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/FAL1989/consultorio-jung/internal/app"
	"github.com/FAL1989/consultorio-jung/internal/config"
	"github.com/FAL1989/consultorio-jung/internal/logging"
	"github.com/FAL1989/consultorio-jung/internal/mcptools"
	"github.com/FAL1989/consultorio-jung/internal/server"
	"github.com/FAL1989/consultorio-jung/internal/tui"
)

type rootOptions struct {
	configPath string
	envFile    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "consultorio",
		Short:         "Jungian analyst chat backed by a vector knowledge base",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to YAML config file (uses ./config.yaml or ~/.config/consultorio/config.yaml if not provided)")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Dotenv file loaded before reading the config")

	root.AddCommand(
		newServeCmd(opts),
		newChatCmd(opts),
		newIngestCmd(opts),
		newHealthCmd(opts),
		newMCPCmd(opts),
	)
	return root
}

// load reads configuration and builds the logger. Logs go to stderr so that
// stdout stays free for the MCP transport.
func (o *rootOptions) load() (*config.AppConfig, *slog.Logger, error) {
	if err := config.LoadEnvFile(o.envFile); err != nil {
		return nil, nil, fmt.Errorf("load env file: %w", err)
	}
	var (
		cfg *config.AppConfig
		err error
	)
	if o.configPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(o.configPath)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			ctx := cmd.Context()
			a, err := app.Build(ctx, cfg, logger, app.Options{WithModel: true})
			if err != nil {
				return err
			}
			srv := server.New(server.Options{
				Analyst:     a.Analyst,
				Sessions:    a.Sessions,
				Store:       a.Store,
				Transcriber: a.Transcriber,
				Health:      a.Index,
				RequireAuth: cfg.Server.RequireAuth,
				Logger:      logger,
			})
			httpSrv := &http.Server{
				Addr:              cfg.Server.Addr,
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				logger.Info("listening", "addr", cfg.Server.Addr, "vector_store", cfg.VectorStore.Type)
				if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				logger.Info("shutting down")
				return httpSrv.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}

func newChatCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat with the analyst in the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			// Keep log lines from tearing the alt screen.
			logger = slog.New(slog.DiscardHandler)
			a, err := app.Build(cmd.Context(), cfg, logger, app.Options{WithModel: true})
			if err != nil {
				return err
			}
			subtitle := fmt.Sprintf("modelo %s · índice %s (%s)", cfg.LLM.Model, cfg.VectorStore.Index, cfg.VectorStore.Type)
			m := tui.New(cmd.Context(), a.Analyst, a.Store, subtitle)
			_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}
}

func newIngestCmd(opts *rootOptions) *cobra.Command {
	var (
		withKnowledge bool
		clear         bool
	)
	cmd := &cobra.Command{
		Use:   "ingest [files...]",
		Short: "Chunk, embed and index .txt and .md documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !withKnowledge {
				return errors.New("nothing to ingest: pass files or --knowledge")
			}
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			if err := cfg.ValidateIndex(); err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := app.Build(ctx, cfg, logger, app.Options{})
			if err != nil {
				return err
			}
			if clear {
				if err := a.Index.Clear(ctx); err != nil {
					return err
				}
			}
			if withKnowledge {
				if err := a.IndexKnowledge(ctx); err != nil {
					return err
				}
			}
			if len(args) == 0 {
				return nil
			}
			rep, err := a.Index.IngestFiles(ctx, args, a.Summarizer, cfg.Summarizer.MaxSentences)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Documents: %d\nChunks: %d\n", rep.Documents, rep.Chunks)
			if len(rep.Sections) > 0 {
				fmt.Fprintf(out, "Sections: %v\n", rep.Sections)
			}
			if len(rep.Concepts) > 0 {
				fmt.Fprintf(out, "Concepts: %v\n", rep.Concepts)
			}
			if len(rep.Citations) > 0 {
				fmt.Fprintf(out, "Citations: %v\n", rep.Citations)
			}
			if rep.Summary != "" {
				fmt.Fprintf(out, "\nSummary:\n%s\n", rep.Summary)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&withKnowledge, "knowledge", false, "Also index the built-in knowledge entities")
	cmd.Flags().BoolVar(&clear, "clear", false, "Delete every vector in the namespace first")
	return cmd
}

func newHealthCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the vector store connection",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			if err := cfg.ValidateIndex(); err != nil {
				return err
			}
			a, err := app.Build(cmd.Context(), cfg, logger, app.Options{})
			if err != nil {
				return err
			}
			if err := a.Index.TestConnection(cmd.Context()); err != nil {
				return fmt.Errorf("vector store unreachable: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "vector store %s: connected\n", cfg.VectorStore.Type)
			return nil
		},
	}
}

func newMCPCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the analyst as MCP tools over stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			a, err := app.Build(cmd.Context(), cfg, logger, app.Options{WithModel: true})
			if err != nil {
				return err
			}
			logger.Info("MCP server starting (stdio)")
			return mcptools.New(a.Analyst, a.Store, version).Run(cmd.Context(), &mcp.StdioTransport{})
		},
	}
}
