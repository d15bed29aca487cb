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
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	kb "github.com/savaslabs/kb"
	"github.com/savaslabs/kb/core"
	"github.com/savaslabs/kb/ingest"
	"github.com/savaslabs/kb/search"
	"github.com/savaslabs/kb/storage"
)

const (
	signatureHeader = "X-Webhook-Signature"
	maxPayloadBytes = 4 << 20
	shutdownTimeout = 10 * time.Second
)

// serverConfig holds the listen address and per-source webhook secrets.
// An empty secret disables signature verification for that source.
type serverConfig struct {
	Addr             string
	TranscriptSecret string
	ChatSecret       string
}

type server struct {
	db       *kb.Database
	pipeline *ingest.Pipeline
	worker   *ingest.Worker
	searcher *search.Searcher
	config   serverConfig
	logger   *slog.Logger
}

func newServer(db *kb.Database, config serverConfig) (*server, error) {
	pipeline, err := db.NewIntakePipeline()
	if err != nil {
		return nil, err
	}
	worker, err := db.NewWorker()
	if err != nil {
		return nil, err
	}
	searcher, err := db.NewSearcher()
	if err != nil {
		return nil, err
	}
	return &server{
		db:       db,
		pipeline: pipeline,
		worker:   worker,
		searcher: searcher,
		config:   config,
		logger:   slog.Default().With("component", "server"),
	}, nil
}

// run starts the worker pool and HTTP listener and blocks until ctx is
// cancelled, then shuts both down in order.
func (s *server) run(ctx context.Context) error {
	if err := s.worker.Start(ctx); err != nil {
		return err
	}
	defer s.worker.Stop()

	if s.config.TranscriptSecret == "" {
		s.logger.Warn("transcript webhook signature verification disabled: no secret configured")
	}
	if s.config.ChatSecret == "" {
		s.logger.Warn("chat webhook signature verification disabled: no secret configured")
	}

	httpServer := &http.Server{
		Addr:    s.config.Addr,
		Handler: s.routes(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.config.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/webhooks/{source}", s.handleWebhook)
	r.Post("/search", s.handleSearch)
	r.Get("/health", s.handleHealth)
	r.Get("/stats", s.handleStats)
	return r
}

func (s *server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	source, ok := core.ParseSource(chi.URLParam(r, "source"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown source")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	if secret := s.secretFor(source); secret != "" {
		if !verifySignature(body, r.Header.Get(signatureHeader), secret) {
			writeError(w, http.StatusUnauthorized, "invalid signature")
			return
		}
	}

	res, err := s.pipeline.Submit(r.Context(), source, body)
	if err != nil {
		if core.IsValidation(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("webhook intake failed", "source", source.String(), "error", err)
		writeError(w, http.StatusInternalServerError, "intake failed")
		return
	}

	if res.Duplicate {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":      "duplicate",
			"document_id": res.DocumentID,
		})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":      "accepted",
		"job_id":      res.JobID,
		"document_id": res.DocumentID,
	})
}

type searchRequest struct {
	Query        string   `json:"query"`
	Viewer       string   `json:"viewer"`
	Groups       []string `json:"groups"`
	Sources      []string `json:"sources"`
	Tags         []string `json:"tags"`
	Participants []string `json:"participants"`
	From         string   `json:"from"`
	To           string   `json:"to"`
	Limit        int      `json:"limit"`
	Rerank       bool     `json:"rerank"`
}

type searchResult struct {
	Rank        int     `json:"rank"`
	Score       float64 `json:"score"`
	Text        string  `json:"text"`
	Title       string  `json:"title"`
	Source      string  `json:"source"`
	Speaker     string  `json:"speaker,omitempty"`
	StartOffset int64   `json:"start_offset"`
	DocumentID  uint64  `json:"document_id"`
	ChunkID     uint64  `json:"chunk_id"`
}

func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxPayloadBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	query, err := buildQuery(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := s.searcher.Search(r.Context(), query)
	if err != nil {
		if errors.Is(err, search.ErrEmptyQuery) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("search failed", "error", err)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	results := make([]searchResult, 0, len(resp.Results))
	for _, res := range resp.Results {
		results = append(results, searchResult{
			Rank:        res.Rank,
			Score:       res.FusedScore,
			Text:        res.Text,
			Title:       res.Provenance.Title,
			Source:      res.Provenance.Source.String(),
			Speaker:     res.Provenance.Speaker,
			StartOffset: res.Provenance.StartOffset,
			DocumentID:  uint64(res.DocumentID),
			ChunkID:     uint64(res.ChunkID),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results":     results,
		"used_rerank": resp.UsedRerank,
		"latency_ms":  resp.LatencyMS,
	})
}

func buildQuery(req searchRequest) (search.Query, error) {
	query := search.Query{
		Text: req.Query,
		Viewer: search.Viewer{
			Principal: req.Viewer,
			Groups:    req.Groups,
		},
		Limit:  req.Limit,
		Rerank: req.Rerank,
	}
	query.Filters.Tags = req.Tags
	query.Filters.Participants = req.Participants

	for _, name := range req.Sources {
		source, ok := core.ParseSource(name)
		if !ok {
			return search.Query{}, fmt.Errorf("unknown source %q", name)
		}
		query.Filters.Sources = append(query.Filters.Sources, source)
	}
	if req.From != "" {
		from, err := time.Parse(time.RFC3339, req.From)
		if err != nil {
			return search.Query{}, fmt.Errorf("invalid from timestamp: %w", err)
		}
		query.Filters.TimeRange.From = from
	}
	if req.To != "" {
		to, err := time.Parse(time.RFC3339, req.To)
		if err != nil {
			return search.Query{}, fmt.Errorf("invalid to timestamp: %w", err)
		}
		query.Filters.TimeRange.To = to
	}
	return query, nil
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	depth, err := s.db.Queue().Depth(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "queue unavailable")
		return
	}
	stats, err := s.db.Index().Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "index unavailable")
		return
	}
	documents := 0
	for _, n := range stats.DocumentsBySource {
		documents += n
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":          true,
		"queue_depth": depth,
		"documents":   documents,
	})
}

func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.Index().Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "index unavailable")
		return
	}
	writeJSON(w, http.StatusOK, statsView(stats))
}

func (s *server) secretFor(source core.Source) string {
	switch source {
	case core.SourceTranscript:
		return s.config.TranscriptSecret
	case core.SourceChat:
		return s.config.ChatSecret
	default:
		return ""
	}
}

// verifySignature checks a hex-encoded HMAC-SHA256 digest of the raw body
// against the signature header, in constant time.
func verifySignature(body []byte, signature, secret string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// statsView converts the typed stats maps to string keys for JSON output.
func statsView(stats *storage.Stats) map[string]any {
	documents := make(map[string]int, len(stats.DocumentsBySource))
	for source, n := range stats.DocumentsBySource {
		documents[source.String()] = n
	}
	chunks := make(map[string]int, len(stats.ChunksBySource))
	for source, n := range stats.ChunksBySource {
		chunks[source.String()] = n
	}
	alerts := make(map[string]int, len(stats.AlertsByType))
	for alertType, n := range stats.AlertsByType {
		alerts[alertType.String()] = n
	}
	return map[string]any{
		"documents_by_source": documents,
		"chunks_by_source":    chunks,
		"alerts_by_type":      alerts,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Default().Warn("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
