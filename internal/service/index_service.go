package service

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/docuvault/docuvault-api/internal/models"
	"github.com/docuvault/docuvault-api/pkg/chunker"
	"github.com/docuvault/docuvault-api/pkg/config"
	appErrors "github.com/docuvault/docuvault-api/pkg/errors"
	"github.com/docuvault/docuvault-api/pkg/jobs"
)

// NoAnswerMessage is returned when the corpus has nothing to answer from.
// It is a defined response, not an error.
const NoAnswerMessage = "No answer available: no documents have been indexed yet."

const answerSystemPrompt = "You answer questions about a document corpus. " +
	"Use only the provided excerpts. If the excerpts do not contain the answer, say so."

type indexDocumentSource interface {
	GetByID(ctx context.Context, id string) (*models.Document, error)
	ListForSync(ctx context.Context) ([]models.Document, error)
}

type indexContentSource interface {
	GetLatest(ctx context.Context, key string) (io.ReadCloser, error)
}

type answerBackend interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Embed(ctx context.Context, text string) ([]float32, error)
	Complete(ctx context.Context, system, prompt string) (string, error)
}

type indexedChunk struct {
	content  string
	position int
	vector   []float32
}

// indexEntry is the whole per-document index state. Syncs build a fresh entry
// and swap it in under the write lock, so readers never observe a document
// half-replaced.
type indexEntry struct {
	displayName string
	description string
	tags        []string
	version     int
	chunks      []indexedChunk
}

// IndexService keeps an in-memory semantic index aligned with the document
// store and answers natural-language questions over it.
type IndexService struct {
	docs    indexDocumentSource
	content indexContentSource
	backend answerBackend
	chunks  *chunker.Chunker
	metrics *MetricsService
	topK    int
	logger  *zap.Logger

	mu      sync.RWMutex
	entries map[string]*indexEntry

	genMu sync.Mutex
	gens  map[string]uint64

	queue    *jobs.Queue
	warmOnce sync.Once
}

// NewIndexService wires the synchronizer and its background sync queue.
func NewIndexService(docs indexDocumentSource, content indexContentSource, backend answerBackend, metrics *MetricsService, cfg config.IndexConfig, logger *zap.Logger) *IndexService {
	if logger == nil {
		logger = zap.NewNop()
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = 5
	}
	s := &IndexService{
		docs:    docs,
		content: content,
		backend: backend,
		chunks:  chunker.New(cfg.ChunkSize, cfg.ChunkOverlap),
		metrics: metrics,
		topK:    topK,
		logger:  logger,
		entries: make(map[string]*indexEntry),
		gens:    make(map[string]uint64),
	}
	s.queue = jobs.NewQueue("index-sync", s.handleSyncJob, jobs.QueueConfig{
		Workers:    cfg.WorkerConcurrency,
		MaxRetries: cfg.WorkerRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return s
}

// Start launches the background sync workers.
func (s *IndexService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the sync workers.
func (s *IndexService) Stop() {
	s.queue.Stop()
}

// Warm performs the cold-start reconciliation exactly once. Concurrent and
// repeated calls after the first are no-ops.
func (s *IndexService) Warm(ctx context.Context) {
	s.warmOnce.Do(func() {
		if err := s.SyncAll(ctx); err != nil {
			s.logger.Sugar().Errorw("index warm-up failed", "error", err)
		}
	})
}

// Schedule queues an asynchronous sync for one document. The latest submission
// wins: an older in-flight sync for the same document will not overwrite the
// result of a newer one.
func (s *IndexService) Schedule(documentID string) {
	s.genMu.Lock()
	s.gens[documentID]++
	gen := s.gens[documentID]
	s.genMu.Unlock()

	err := s.queue.Enqueue(jobs.Job{
		ID:      fmt.Sprintf("%s#%d", documentID, gen),
		Type:    "index.sync",
		Payload: syncJobPayload{DocumentID: documentID, Generation: gen},
	})
	if err != nil {
		s.logger.Sugar().Warnw("failed to schedule index sync", "document_id", documentID, "error", err)
	}
}

type syncJobPayload struct {
	DocumentID string
	Generation uint64
}

func (s *IndexService) handleSyncJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(syncJobPayload)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}
	if s.superseded(payload.DocumentID, payload.Generation) {
		return nil
	}
	return s.syncByID(ctx, payload.DocumentID, payload.Generation)
}

func (s *IndexService) superseded(documentID string, gen uint64) bool {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.gens[documentID] != gen
}

func (s *IndexService) currentGeneration(documentID string) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.gens[documentID]
}

// SyncOne synchronously rebuilds the index entry for one document.
func (s *IndexService) SyncOne(ctx context.Context, documentID string) error {
	return s.syncByID(ctx, documentID, s.currentGeneration(documentID))
}

func (s *IndexService) syncByID(ctx context.Context, documentID string, gen uint64) error {
	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		s.metrics.RecordIndexSync("failed")
		return fmt.Errorf("load document %s for sync: %w", documentID, err)
	}
	return s.syncDocument(ctx, doc, gen)
}

// SyncAll reconciles the index with the document store, skipping documents
// whose indexed version already matches.
func (s *IndexService) SyncAll(ctx context.Context) error {
	docs, err := s.docs.ListForSync(ctx)
	if err != nil {
		return fmt.Errorf("list documents for sync: %w", err)
	}

	var failed int
	for i := range docs {
		doc := docs[i]
		if err := s.syncDocument(ctx, &doc, s.currentGeneration(doc.ID)); err != nil {
			failed++
			s.logger.Sugar().Errorw("document sync failed", "document_id", doc.ID, "error", err)
		}
	}
	if failed > 0 {
		return appErrors.Wrap(fmt.Errorf("%d of %d documents failed", failed, len(docs)),
			appErrors.ErrIndexing.Code, appErrors.ErrIndexing.Status, appErrors.ErrIndexing.Message)
	}
	return nil
}

func (s *IndexService) syncDocument(ctx context.Context, doc *models.Document, gen uint64) error {
	s.mu.RLock()
	existing := s.entries[doc.ID]
	s.mu.RUnlock()
	if existing != nil && existing.version >= doc.Metadata.Version {
		s.metrics.RecordIndexSync("skipped")
		return nil
	}

	rc, err := s.content.GetLatest(ctx, doc.StorageKey)
	if err != nil {
		s.metrics.RecordIndexSync("failed")
		return fmt.Errorf("read content for %s: %w", doc.ID, err)
	}
	raw, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		s.metrics.RecordIndexSync("failed")
		return fmt.Errorf("read content for %s: %w", doc.ID, err)
	}

	pieces := s.chunks.Split(string(raw))
	entry := &indexEntry{
		displayName: doc.DisplayName,
		description: doc.Metadata.Description,
		tags:        append([]string(nil), doc.Metadata.Tags...),
		version:     doc.Metadata.Version,
		chunks:      make([]indexedChunk, 0, len(pieces)),
	}

	if len(pieces) > 0 {
		texts := make([]string, len(pieces))
		for i, p := range pieces {
			texts[i] = p.Content
		}
		vectors, err := s.backend.EmbedBatch(ctx, texts)
		if err != nil {
			s.metrics.RecordIndexSync("failed")
			return fmt.Errorf("embed %d chunks for %s: %w", len(pieces), doc.ID, err)
		}
		for i, p := range pieces {
			entry.chunks = append(entry.chunks, indexedChunk{
				content:  p.Content,
				position: p.Position,
				vector:   vectors[i],
			})
		}
	}

	if gen != 0 && s.superseded(doc.ID, gen) {
		s.metrics.RecordIndexSync("skipped")
		return nil
	}

	s.mu.Lock()
	current := s.entries[doc.ID]
	if current == nil || current.version < entry.version {
		s.entries[doc.ID] = entry
	}
	s.mu.Unlock()

	s.metrics.RecordIndexSync("synced")
	s.logger.Sugar().Debugw("document indexed",
		"document_id", doc.ID, "version", entry.version, "chunks", len(entry.chunks))
	return nil
}

// Remove drops a document's entry from the index.
func (s *IndexService) Remove(documentID string) {
	s.mu.Lock()
	delete(s.entries, documentID)
	s.mu.Unlock()
}

// IndexedVersion reports the last synced metadata version for a document,
// zero when the document is not indexed.
func (s *IndexService) IndexedVersion(documentID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if entry := s.entries[documentID]; entry != nil {
		return entry.version
	}
	return 0
}

type scoredChunk struct {
	documentName string
	content      string
	score        float64
}

// Ask answers a natural-language question from the synced corpus. An empty
// corpus yields NoAnswerMessage; an unreachable backend yields
// ErrIndexUnavailable.
func (s *IndexService) Ask(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", appErrors.ErrValidation
	}

	if s.corpusEmpty() {
		return NoAnswerMessage, nil
	}

	queryVector, err := s.backend.Embed(ctx, question)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrIndexUnavailable.Code,
			appErrors.ErrIndexUnavailable.Status, appErrors.ErrIndexUnavailable.Message)
	}

	top := s.topChunks(queryVector)
	if len(top) == 0 {
		return NoAnswerMessage, nil
	}

	var prompt strings.Builder
	prompt.WriteString("Excerpts:\n")
	for _, c := range top {
		fmt.Fprintf(&prompt, "\n[%s]\n%s\n", c.documentName, c.content)
	}
	fmt.Fprintf(&prompt, "\nQuestion: %s", question)

	answer, err := s.backend.Complete(ctx, answerSystemPrompt, prompt.String())
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrIndexUnavailable.Code,
			appErrors.ErrIndexUnavailable.Status, appErrors.ErrIndexUnavailable.Message)
	}
	return answer, nil
}

func (s *IndexService) corpusEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, entry := range s.entries {
		if len(entry.chunks) > 0 {
			return false
		}
	}
	return true
}

func (s *IndexService) topChunks(query []float32) []scoredChunk {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var scored []scoredChunk
	for _, entry := range s.entries {
		for _, c := range entry.chunks {
			scored = append(scored, scoredChunk{
				documentName: entry.displayName,
				content:      c.content,
				score:        cosineSimilarity(query, c.vector),
			})
		}
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	if len(scored) > s.topK {
		scored = scored[:s.topK]
	}
	return scored
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
