package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docuvault/docuvault-api/internal/models"
	"github.com/docuvault/docuvault-api/pkg/config"
	appErrors "github.com/docuvault/docuvault-api/pkg/errors"
)

type indexDocsStub struct {
	docs map[string]*models.Document
}

func newIndexDocsStub() *indexDocsStub {
	return &indexDocsStub{docs: make(map[string]*models.Document)}
}

func (s *indexDocsStub) GetByID(ctx context.Context, id string) (*models.Document, error) {
	doc, ok := s.docs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *doc
	return &copy, nil
}

func (s *indexDocsStub) ListForSync(ctx context.Context) ([]models.Document, error) {
	result := make([]models.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		result = append(result, *doc)
	}
	return result, nil
}

type indexContentStub struct {
	contents map[string]string
}

func (s *indexContentStub) GetLatest(ctx context.Context, key string) (io.ReadCloser, error) {
	content, ok := s.contents[key]
	if !ok {
		return nil, fmt.Errorf("no content for %s", key)
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

type backendStub struct {
	embedCalls int
	embedErr   error
	answer     string
	answerErr  error
	lastPrompt string
}

func (s *backendStub) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if s.embedErr != nil {
		return nil, s.embedErr
	}
	s.embedCalls++
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = []float32{float32(len(text)), 1}
	}
	return vectors, nil
}

func (s *backendStub) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (s *backendStub) Complete(ctx context.Context, system, prompt string) (string, error) {
	if s.answerErr != nil {
		return "", s.answerErr
	}
	s.lastPrompt = prompt
	return s.answer, nil
}

func newTestIndex(t *testing.T) (*IndexService, *indexDocsStub, *indexContentStub, *backendStub) {
	t.Helper()
	docs := newIndexDocsStub()
	content := &indexContentStub{contents: make(map[string]string)}
	backend := &backendStub{answer: "the contract expires in June"}
	svc := NewIndexService(docs, content, backend, nil, config.IndexConfig{ChunkSize: 50, ChunkOverlap: 10}, nil)
	return svc, docs, content, backend
}

func addIndexedDoc(docs *indexDocsStub, content *indexContentStub, id string, version int, text string) {
	docs.docs[id] = &models.Document{
		ID:          id,
		DisplayName: "doc " + id,
		StorageKey:  "doc/" + id,
		Metadata:    models.DocumentMetadata{Version: version},
	}
	content.contents["doc/"+id] = text
}

func TestSyncOneIsIdempotent(t *testing.T) {
	svc, docs, content, backend := newTestIndex(t)
	addIndexedDoc(docs, content, "doc-1", 1, strings.Repeat("contract terms ", 20))

	require.NoError(t, svc.SyncOne(context.Background(), "doc-1"))
	require.Equal(t, 1, svc.IndexedVersion("doc-1"))
	firstCalls := backend.embedCalls

	// Unchanged version short-circuits before any embedding work.
	require.NoError(t, svc.SyncOne(context.Background(), "doc-1"))
	require.Equal(t, firstCalls, backend.embedCalls)
	require.Equal(t, 1, svc.IndexedVersion("doc-1"))
}

func TestSyncReplacesPriorEntry(t *testing.T) {
	svc, docs, content, _ := newTestIndex(t)
	addIndexedDoc(docs, content, "doc-1", 1, strings.Repeat("old content ", 30))
	require.NoError(t, svc.SyncOne(context.Background(), "doc-1"))

	svc.mu.RLock()
	oldChunks := len(svc.entries["doc-1"].chunks)
	svc.mu.RUnlock()
	require.Greater(t, oldChunks, 1)

	docs.docs["doc-1"].Metadata.Version = 2
	content.contents["doc/doc-1"] = "short"
	require.NoError(t, svc.SyncOne(context.Background(), "doc-1"))

	svc.mu.RLock()
	entry := svc.entries["doc-1"]
	svc.mu.RUnlock()
	require.Equal(t, 2, entry.version)
	require.Len(t, entry.chunks, 1)
	require.Equal(t, "short", entry.chunks[0].content)
}

func TestSyncAllSkipsUnchangedDocuments(t *testing.T) {
	svc, docs, content, backend := newTestIndex(t)
	addIndexedDoc(docs, content, "doc-1", 1, "alpha")
	addIndexedDoc(docs, content, "doc-2", 1, "beta")

	require.NoError(t, svc.SyncAll(context.Background()))
	firstCalls := backend.embedCalls
	require.Equal(t, 2, firstCalls)

	require.NoError(t, svc.SyncAll(context.Background()))
	require.Equal(t, firstCalls, backend.embedCalls)
}

func TestFailedSyncKeepsPriorEntry(t *testing.T) {
	svc, docs, content, backend := newTestIndex(t)
	addIndexedDoc(docs, content, "doc-1", 1, "original content")
	require.NoError(t, svc.SyncOne(context.Background(), "doc-1"))

	docs.docs["doc-1"].Metadata.Version = 2
	backend.embedErr = errors.New("backend down")
	require.Error(t, svc.SyncOne(context.Background(), "doc-1"))
	require.Equal(t, 1, svc.IndexedVersion("doc-1"))
}

func TestStaleSyncDoesNotInstall(t *testing.T) {
	svc, docs, content, _ := newTestIndex(t)
	addIndexedDoc(docs, content, "doc-1", 1, "content")

	svc.genMu.Lock()
	svc.gens["doc-1"] = 5
	svc.genMu.Unlock()

	require.NoError(t, svc.syncByID(context.Background(), "doc-1", 4))
	require.Equal(t, 0, svc.IndexedVersion("doc-1"))

	require.NoError(t, svc.syncByID(context.Background(), "doc-1", 5))
	require.Equal(t, 1, svc.IndexedVersion("doc-1"))
}

func TestAskEmptyCorpus(t *testing.T) {
	svc, _, _, backend := newTestIndex(t)

	answer, err := svc.Ask(context.Background(), "when does the contract expire?")
	require.NoError(t, err)
	require.Equal(t, NoAnswerMessage, answer)
	require.Zero(t, backend.embedCalls)
}

func TestAskAnswersFromCorpus(t *testing.T) {
	svc, docs, content, backend := newTestIndex(t)
	addIndexedDoc(docs, content, "doc-1", 1, "the contract expires in June")
	require.NoError(t, svc.SyncOne(context.Background(), "doc-1"))

	answer, err := svc.Ask(context.Background(), "when does the contract expire?")
	require.NoError(t, err)
	require.Equal(t, "the contract expires in June", answer)
	require.Contains(t, backend.lastPrompt, "the contract expires in June")
	require.Contains(t, backend.lastPrompt, "when does the contract expire?")
}

func TestAskBackendUnreachable(t *testing.T) {
	svc, docs, content, backend := newTestIndex(t)
	addIndexedDoc(docs, content, "doc-1", 1, "content")
	require.NoError(t, svc.SyncOne(context.Background(), "doc-1"))

	backend.embedErr = errors.New("connection refused")
	_, err := svc.Ask(context.Background(), "anything?")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrIndexUnavailable.Code, appErrors.FromError(err).Code)
}

func TestAskRequiresQuestion(t *testing.T) {
	svc, _, _, _ := newTestIndex(t)

	_, err := svc.Ask(context.Background(), "  ")
	require.ErrorIs(t, err, appErrors.ErrValidation)
}
