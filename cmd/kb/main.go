// Copyright 2025 Savas Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	kb "github.com/savaslabs/kb"
	"github.com/savaslabs/kb/ai"
	"github.com/savaslabs/kb/core"
	"github.com/savaslabs/kb/search"
	"github.com/savaslabs/kb/storage"
)

func main() {
	// Optional .env for local development; absence is not an error.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "kb",
		Usage: "Unified organizational knowledge base: ingest, search, alert",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the webhook intake, worker pool, and query API",
				Action: serveCommand,
				Flags: append(dbFlags(), aiFlags()...),
			},
			{
				Name:      "ingest",
				Usage:     "Submit a payload file through the ingestion intake and process it",
				ArgsUsage: "<payload.json>",
				Action:    ingestCommand,
				Flags: append(append(dbFlags(), aiFlags()...),
					&cli.StringFlag{
						Name:     "source",
						Usage:    "Source type of the payload (transcript, chat)",
						Required: true,
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "Maximum time to wait for the job to finish",
						Value: 2 * time.Minute,
					},
				),
			},
			{
				Name:      "search",
				Usage:     "Query the index",
				ArgsUsage: "<query...>",
				Action:    searchCommand,
				Flags: append(append(dbFlags(), aiFlags()...),
					&cli.StringFlag{
						Name:  "viewer",
						Usage: "Viewer principal (email) for ACL filtering",
					},
					&cli.StringSliceFlag{
						Name:  "group",
						Usage: "Viewer group membership, repeatable",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum results",
						Value: search.DefaultLimit,
					},
					&cli.BoolFlag{
						Name:  "rerank",
						Usage: "Rerank the top results with the classifier model",
					},
				),
			},
			{
				Name:   "stats",
				Usage:  "Print per-source document, chunk, and alert counts",
				Action: statsCommand,
				Flags:  dbFlags(),
			},
			{
				Name:   "backfill",
				Usage:  "Embed chunks that were stored without vectors",
				Action: backfillCommand,
				Flags:  append(dbFlags(), aiFlags()...),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func dbFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "db",
			Aliases:  []string{"d"},
			Usage:    "Path to BadgerDB database directory",
			Required: true,
			EnvVars:  []string{"KB_DB_PATH"},
		},
	}
}

func aiFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "ai-host",
			Usage:   "OpenAI-compatible service host URL",
			Value:   "http://localhost:11434/v1",
			EnvVars: []string{"KB_AI_HOST"},
		},
		&cli.StringFlag{
			Name:    "embedding-model",
			Usage:   "Embedding model name",
			Value:   "embeddinggemma",
			EnvVars: []string{"KB_EMBEDDING_MODEL"},
		},
		&cli.StringFlag{
			Name:    "classifier-model",
			Usage:   "Classifier and reranker model name",
			Value:   "qwen2.5:3b",
			EnvVars: []string{"KB_CLASSIFIER_MODEL"},
		},
	}
}

func openDatabase(c *cli.Context) (*kb.Database, error) {
	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("ai-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithClassifierModel(c.String("classifier-model")),
	)
	db, err := kb.NewDatabase(c.String("db"), kb.WithAIConfig(aiConfig))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func serveCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server, err := newServer(db, serverConfig{
		Addr:             envOr("KB_LISTEN_ADDR", ":8080"),
		TranscriptSecret: os.Getenv("KB_TRANSCRIPT_WEBHOOK_SECRET"),
		ChatSecret:       os.Getenv("KB_CHAT_WEBHOOK_SECRET"),
	})
	if err != nil {
		return err
	}
	return server.run(ctx)
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one payload file argument")
	}
	source, ok := core.ParseSource(c.String("source"))
	if !ok {
		return fmt.Errorf("unknown source %q", c.String("source"))
	}
	payload, err := os.ReadFile(c.Args().First())
	if err != nil {
		return err
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	pipeline, err := db.NewIntakePipeline()
	if err != nil {
		return err
	}
	worker, err := db.NewWorker()
	if err != nil {
		return err
	}

	ctx := c.Context
	res, err := pipeline.Submit(ctx, source, payload)
	if err != nil {
		return err
	}
	if res.Duplicate {
		fmt.Fprintf(os.Stderr, "event already ingested, document %d\n", res.DocumentID)
		return nil
	}

	// A re-ingest replaces an already-indexed document in place, so snapshot
	// the current state before the worker starts to tell old from new.
	baseline, err := snapshotDocument(ctx, db, res.DocumentID)
	if err != nil {
		return err
	}

	if err := worker.Start(ctx); err != nil {
		return err
	}
	defer worker.Stop()

	// Wait for the job to land in the index or the dead-letter area.
	waitCtx, cancel := context.WithTimeout(ctx, c.Duration("timeout"))
	defer cancel()
	if err := waitForDocument(waitCtx, db, res.JobID, res.DocumentID, baseline); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "ingested document %d (job %s)\n", res.DocumentID, res.JobID)
	return nil
}

func searchCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("query text is required")
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	searcher, err := db.NewSearcher()
	if err != nil {
		return err
	}

	resp, err := searcher.Search(c.Context, search.Query{
		Text: query,
		Viewer: search.Viewer{
			Principal: c.String("viewer"),
			Groups:    c.StringSlice("group"),
		},
		Limit:  c.Int("limit"),
		Rerank: c.Bool("rerank"),
	})
	if err != nil {
		return err
	}

	for _, r := range resp.Results {
		fmt.Printf("%2d. [%s] %s (score %.4f)\n", r.Rank, r.Provenance.Source.String(), r.Provenance.Title, r.FusedScore)
		fmt.Printf("    %s\n", firstLine(r.Text))
	}
	fmt.Fprintf(os.Stderr, "%d results in %dms (rerank: %t)\n", len(resp.Results), resp.LatencyMS, resp.UsedRerank)
	return nil
}

func statsCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := db.Index().Stats(c.Context)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(statsView(stats), "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func backfillCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	backfiller, err := db.NewBackfiller(os.Stderr)
	if err != nil {
		return err
	}
	repaired, err := backfiller.Run(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "backfilled %d chunks\n", repaired)
	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

// documentState is a pre-submit snapshot used to tell a completed replace
// apart from the document's previous state.
type documentState struct {
	updatedAt time.Time
	hashes    map[core.ID]bool
}

// snapshotDocument captures the indexed state of a document, or nil when the
// document is not indexed yet. Called before the worker starts.
func snapshotDocument(ctx context.Context, db *kb.Database, docID core.ID) (*documentState, error) {
	doc, err := db.Index().GetDocument(ctx, docID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	chunks, err := db.Index().GetDocumentChunks(ctx, docID)
	if err != nil {
		return nil, err
	}
	state := &documentState{
		updatedAt: doc.UpdatedAt,
		hashes:    make(map[core.ID]bool, len(chunks)),
	}
	for _, chunk := range chunks {
		state.hashes[chunk.ContentHash] = true
	}
	return state, nil
}

func (s *documentState) matches(doc *core.Document, chunks []*core.Chunk) bool {
	if !doc.UpdatedAt.Equal(s.updatedAt) || len(chunks) != len(s.hashes) {
		return false
	}
	for _, chunk := range chunks {
		if !s.hashes[chunk.ContentHash] {
			return false
		}
	}
	return true
}

// waitForDocument polls until the submitted job's document appears in the
// index or the job lands in the dead-letter area. Used by one-shot ingestion
// so the process exits after the job finishes. When baseline is set, the
// document only counts once its stored state differs from the baseline, so
// a re-ingest never reports success against the stale state. The caller
// bounds the wait with a deadline on ctx.
func waitForDocument(ctx context.Context, db *kb.Database, jobID string, docID core.ID, baseline *documentState) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			dead, err := db.Queue().DeadLetters(ctx, 50)
			if err != nil {
				return err
			}
			for _, job := range dead {
				if job.Id == jobID {
					return fmt.Errorf("job %s dead-lettered: %s", jobID, job.LastError)
				}
			}
			doc, err := db.Index().GetDocument(ctx, docID)
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if baseline == nil {
				return nil
			}
			chunks, err := db.Index().GetDocumentChunks(ctx, docID)
			if err != nil {
				return err
			}
			if !baseline.matches(doc, chunks) {
				return nil
			}
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func firstLine(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return text[:i]
	}
	return text
}
