package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/docuvault/docuvault-api/internal/models"
	"github.com/docuvault/docuvault-api/pkg/config"
	appErrors "github.com/docuvault/docuvault-api/pkg/errors"
	"github.com/docuvault/docuvault-api/pkg/storage"
)

type memoryCacheStub struct {
	values map[string][]byte
}

func newMemoryCacheStub() *memoryCacheStub {
	return &memoryCacheStub{values: make(map[string][]byte)}
}

func (c *memoryCacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := c.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memoryCacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.values[key] = raw
	return nil
}

func (c *memoryCacheStub) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range c.values {
		if strings.HasPrefix(key, prefix) {
			delete(c.values, key)
		}
	}
	return nil
}

func TestDocumentOperationsRecorded(t *testing.T) {
	metrics := NewMetricsService()
	repo := newDocumentStoreStub()
	index := &indexStub{answer: "in June"}
	signer := storage.NewSignedURLSigner("test-secret", time.Minute)
	cache := newMemoryCacheStub()
	svc := NewDocumentService(repo, newBlobStoreStub(), index, cache, signer, metrics,
		config.CacheConfig{Enabled: true, TTL: time.Minute, ListTTL: time.Minute}, 0, nil)

	doc, err := svc.CreateDocument(context.Background(), "contract.pdf", "application/pdf", 5, strings.NewReader("hello"), models.Actor{UserID: "user-1"})
	require.NoError(t, err)

	// First read misses the cache and fills it, the second hits.
	_, err = svc.GetDocument(context.Background(), doc.ID)
	require.NoError(t, err)
	_, err = svc.GetDocument(context.Background(), doc.ID)
	require.NoError(t, err)

	_, err = svc.AskQuestion(context.Background(), "when does it expire?")
	require.NoError(t, err)

	require.Equal(t, 1.0, testutil.ToFloat64(metrics.documentOps.WithLabelValues("create")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheMisses))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheHits))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.questionsTotal))
}

func TestSignatureTransitionsRecorded(t *testing.T) {
	metrics := NewMetricsService()
	repo := newSignatureStoreStub()
	repo.docs["doc-1"] = &models.Document{ID: "doc-1", DisplayName: "contract"}
	svc := NewSignatureService(repo, nil, metrics, nil)

	sig, err := svc.Request(context.Background(), "doc-1", "signer-1")
	require.NoError(t, err)

	actor := models.Actor{UserID: "signer-1"}
	_, err = svc.Complete(context.Background(), "doc-1", sig.ID, "signer-1", nil, actor)
	require.NoError(t, err)
	_, err = svc.Complete(context.Background(), "doc-1", sig.ID, "signer-1", nil, actor)
	require.ErrorIs(t, err, appErrors.ErrInvalidTransition)

	require.Equal(t, 1.0, testutil.ToFloat64(metrics.signatureOps.WithLabelValues("completed")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.signatureOps.WithLabelValues("conflict")))
}

func TestIndexSyncResultsRecorded(t *testing.T) {
	metrics := NewMetricsService()
	docs := newIndexDocsStub()
	content := &indexContentStub{contents: make(map[string]string)}
	backend := &backendStub{answer: "ok"}
	svc := NewIndexService(docs, content, backend, metrics, config.IndexConfig{ChunkSize: 50, ChunkOverlap: 10}, nil)

	addIndexedDoc(docs, content, "doc-1", 1, "alpha")
	require.NoError(t, svc.SyncOne(context.Background(), "doc-1"))
	require.NoError(t, svc.SyncOne(context.Background(), "doc-1"))

	docs.docs["doc-1"].Metadata.Version = 2
	backend.embedErr = errors.New("backend down")
	require.Error(t, svc.SyncOne(context.Background(), "doc-1"))

	require.Equal(t, 1.0, testutil.ToFloat64(metrics.indexSyncs.WithLabelValues("synced")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.indexSyncs.WithLabelValues("skipped")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.indexSyncs.WithLabelValues("failed")))
}
