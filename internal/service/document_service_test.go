package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/docuvault/docuvault-api/internal/models"
	"github.com/docuvault/docuvault-api/pkg/config"
	appErrors "github.com/docuvault/docuvault-api/pkg/errors"
	"github.com/docuvault/docuvault-api/pkg/storage"
)

type documentStoreStub struct {
	docs       map[string]*models.Document
	audit      map[string][]models.AuditLog
	createErr  error
	replaceErr error
	auditErr   error
	conflicts  int
}

func newDocumentStoreStub() *documentStoreStub {
	return &documentStoreStub{
		docs:  make(map[string]*models.Document),
		audit: make(map[string][]models.AuditLog),
	}
}

func (s *documentStoreStub) Create(ctx context.Context, doc *models.Document, entry *models.AuditLog) error {
	if s.createErr != nil {
		return s.createErr
	}
	if entry != nil && s.auditErr != nil {
		return s.auditErr
	}
	copy := *doc
	s.docs[doc.ID] = &copy
	if entry != nil {
		s.recordAudit(entry)
	}
	return nil
}

func (s *documentStoreStub) GetByID(ctx context.Context, id string) (*models.Document, error) {
	doc, ok := s.docs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *doc
	copy.AuditLogs = append([]models.AuditLog(nil), s.audit[id]...)
	return &copy, nil
}

func (s *documentStoreStub) List(ctx context.Context, pageIndex, pageSize int) ([]models.DocumentSummary, int, error) {
	summaries := make([]models.DocumentSummary, 0, len(s.docs))
	for _, doc := range s.docs {
		summaries = append(summaries, models.DocumentSummary{ID: doc.ID, DisplayName: doc.DisplayName, CreatedAt: doc.CreatedAt})
	}
	return summaries, len(s.docs), nil
}

func (s *documentStoreStub) Replace(ctx context.Context, doc *models.Document, expectedVersion int, entry *models.AuditLog) error {
	if s.replaceErr != nil {
		return s.replaceErr
	}
	if s.conflicts > 0 {
		s.conflicts--
		return appErrors.ErrVersionConflict
	}
	current, ok := s.docs[doc.ID]
	if !ok || current.Metadata.Version != expectedVersion {
		return appErrors.ErrVersionConflict
	}
	if entry != nil && s.auditErr != nil {
		return s.auditErr
	}
	copy := *doc
	s.docs[doc.ID] = &copy
	if entry != nil {
		s.recordAudit(entry)
	}
	return nil
}

func (s *documentStoreStub) AppendAuditLog(ctx context.Context, entry *models.AuditLog) error {
	if s.auditErr != nil {
		return s.auditErr
	}
	s.recordAudit(entry)
	return nil
}

func (s *documentStoreStub) recordAudit(entry *models.AuditLog) {
	if entry.ID == "" {
		entry.ID = fmt.Sprintf("audit-%d", len(s.audit[entry.DocumentID])+1)
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	s.audit[entry.DocumentID] = append(s.audit[entry.DocumentID], *entry)
}

func (s *documentStoreStub) ListAuditLogs(ctx context.Context, documentID string) ([]models.AuditLog, error) {
	return append([]models.AuditLog(nil), s.audit[documentID]...), nil
}

type blobStoreStub struct {
	versions map[string][]string
	contents map[string][]byte
	putErr   error
}

func newBlobStoreStub() *blobStoreStub {
	return &blobStoreStub{
		versions: make(map[string][]string),
		contents: make(map[string][]byte),
	}
}

func (s *blobStoreStub) PutVersion(ctx context.Context, key string, r io.Reader) (string, error) {
	if s.putErr != nil {
		return "", s.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	token := fmt.Sprintf("v%d", len(s.versions[key])+1)
	s.versions[key] = append(s.versions[key], token)
	s.contents[key+"/"+token] = data
	return token, nil
}

func (s *blobStoreStub) GetLatest(ctx context.Context, key string) (io.ReadCloser, error) {
	chain := s.versions[key]
	if len(chain) == 0 {
		return nil, storage.ErrNotFound
	}
	return s.Get(ctx, key, chain[len(chain)-1])
}

func (s *blobStoreStub) Get(ctx context.Context, key, token string) (io.ReadCloser, error) {
	data, ok := s.contents[key+"/"+token]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(string(data))), nil
}

type indexStub struct {
	scheduled []string
	answer    string
	askErr    error
}

func (s *indexStub) Schedule(documentID string) {
	s.scheduled = append(s.scheduled, documentID)
}

func (s *indexStub) Ask(ctx context.Context, question string) (string, error) {
	if s.askErr != nil {
		return "", s.askErr
	}
	return s.answer, nil
}

func newTestDocumentService(repo *documentStoreStub, blobs *blobStoreStub, index *indexStub) *DocumentService {
	signer := storage.NewSignedURLSigner("test-secret", time.Minute)
	return NewDocumentService(repo, blobs, index, nil, signer, nil, config.CacheConfig{}, 0, nil)
}

func TestCreateDocument(t *testing.T) {
	repo := newDocumentStoreStub()
	blobs := newBlobStoreStub()
	index := &indexStub{}
	svc := newTestDocumentService(repo, blobs, index)

	actor := models.Actor{UserID: "user-1", IPAddress: "10.0.0.1"}
	doc, err := svc.CreateDocument(context.Background(), "contract.pdf", "application/pdf", 11, strings.NewReader("hello world"), actor)
	require.NoError(t, err)
	require.NotEmpty(t, doc.ID)
	require.Equal(t, "contract", doc.DisplayName)
	require.Equal(t, 1, doc.Metadata.Version)
	require.Equal(t, StorageKeyFor(doc.ID), doc.StorageKey)
	require.Equal(t, "v1", doc.CurrentVersionToken)
	require.Equal(t, []string{doc.ID}, index.scheduled)

	trail := repo.audit[doc.ID]
	require.Len(t, trail, 1)
	require.Equal(t, models.AuditActionUploaded, trail[0].Action)
	require.Equal(t, "user-1", trail[0].UserID)
}

func TestDisplayNameDerivation(t *testing.T) {
	cases := map[string]string{
		"contract.pdf":      "contract",
		"report.final.docx": "report.final",
		" notes.txt ":       "notes",
		"readme":            "readme",
		".env":              ".env",
	}
	for fileName, want := range cases {
		require.Equal(t, want, DisplayNameFor(fileName), "file name %q", fileName)
	}
}

func TestCreateDocumentAuditFailureLeavesNoRecord(t *testing.T) {
	repo := newDocumentStoreStub()
	repo.auditErr = errors.New("audit insert failed")
	index := &indexStub{}
	svc := newTestDocumentService(repo, newBlobStoreStub(), index)

	_, err := svc.CreateDocument(context.Background(), "doc", "text/plain", 1, strings.NewReader("x"), models.Actor{UserID: "user-1"})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrMetadataPersist.Code, appErrors.FromError(err).Code)
	require.Empty(t, repo.docs)
	require.Empty(t, repo.audit)
	require.Empty(t, index.scheduled)
}

func TestUpdateDocumentAuditFailureKeepsVersion(t *testing.T) {
	repo := newDocumentStoreStub()
	blobs := newBlobStoreStub()
	svc := newTestDocumentService(repo, blobs, &indexStub{})

	doc, err := svc.CreateDocument(context.Background(), "doc", "text/plain", 2, strings.NewReader("v1"), models.Actor{UserID: "user-1"})
	require.NoError(t, err)

	repo.auditErr = errors.New("audit insert failed")
	_, err = svc.UpdateDocument(context.Background(), doc.ID, "text/plain", 2, strings.NewReader("v2"), models.Actor{UserID: "user-2"})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrMetadataPersist.Code, appErrors.FromError(err).Code)

	stored := repo.docs[doc.ID]
	require.Equal(t, 1, stored.Metadata.Version)
	require.Equal(t, "v1", stored.CurrentVersionToken)
	require.Len(t, repo.audit[doc.ID], 1)
}

func TestCreateDocumentRequiresName(t *testing.T) {
	svc := newTestDocumentService(newDocumentStoreStub(), newBlobStoreStub(), &indexStub{})

	_, err := svc.CreateDocument(context.Background(), "   ", "text/plain", 1, strings.NewReader("x"), models.Actor{})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestCreateDocumentMetadataFailure(t *testing.T) {
	repo := newDocumentStoreStub()
	repo.createErr = errors.New("connection refused")
	blobs := newBlobStoreStub()
	index := &indexStub{}
	svc := newTestDocumentService(repo, blobs, index)

	_, err := svc.CreateDocument(context.Background(), "doc", "text/plain", 1, strings.NewReader("x"), models.Actor{})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrMetadataPersist.Code, appErrors.FromError(err).Code)
	require.Empty(t, index.scheduled)
	require.Empty(t, repo.docs)
}

func TestUpdateDocumentAdvancesVersion(t *testing.T) {
	repo := newDocumentStoreStub()
	blobs := newBlobStoreStub()
	index := &indexStub{}
	svc := newTestDocumentService(repo, blobs, index)

	doc, err := svc.CreateDocument(context.Background(), "doc", "text/plain", 2, strings.NewReader("v1"), models.Actor{UserID: "user-1"})
	require.NoError(t, err)

	updated, err := svc.UpdateDocument(context.Background(), doc.ID, "text/plain", 2, strings.NewReader("v2"), models.Actor{UserID: "user-2"})
	require.NoError(t, err)
	require.Equal(t, 2, updated.Metadata.Version)
	require.Equal(t, doc.StorageKey, updated.StorageKey)
	require.Equal(t, "v2", updated.CurrentVersionToken)
	require.Equal(t, []string{doc.ID, doc.ID}, index.scheduled)

	actions := make([]string, 0, 2)
	for _, entry := range repo.audit[doc.ID] {
		actions = append(actions, entry.Action)
	}
	require.Equal(t, []string{models.AuditActionUploaded, models.AuditActionUpdated}, actions)
}

func TestUpdateDocumentRetriesLostCAS(t *testing.T) {
	repo := newDocumentStoreStub()
	blobs := newBlobStoreStub()
	svc := newTestDocumentService(repo, blobs, &indexStub{})

	doc, err := svc.CreateDocument(context.Background(), "doc", "text/plain", 2, strings.NewReader("v1"), models.Actor{})
	require.NoError(t, err)

	repo.conflicts = 1
	updated, err := svc.UpdateDocument(context.Background(), doc.ID, "text/plain", 2, strings.NewReader("v2"), models.Actor{})
	require.NoError(t, err)
	require.Equal(t, 2, updated.Metadata.Version)
}

func TestUpdateDocumentNotFound(t *testing.T) {
	svc := newTestDocumentService(newDocumentStoreStub(), newBlobStoreStub(), &indexStub{})

	_, err := svc.UpdateDocument(context.Background(), "missing", "text/plain", 1, strings.NewReader("x"), models.Actor{})
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestCreateDocumentStorageFailure(t *testing.T) {
	repo := newDocumentStoreStub()
	blobs := newBlobStoreStub()
	blobs.putErr = errors.New("disk full")
	svc := newTestDocumentService(repo, blobs, &indexStub{})

	_, err := svc.CreateDocument(context.Background(), "doc", "text/plain", 1, strings.NewReader("x"), models.Actor{})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrStorageUnavailable.Code, appErrors.FromError(err).Code)
	require.Empty(t, repo.docs)
}

func TestListDocuments(t *testing.T) {
	repo := newDocumentStoreStub()
	svc := newTestDocumentService(repo, newBlobStoreStub(), &indexStub{})

	for i := 0; i < 3; i++ {
		_, err := svc.CreateDocument(context.Background(), fmt.Sprintf("doc-%d", i), "text/plain", 1, strings.NewReader("x"), models.Actor{})
		require.NoError(t, err)
	}

	summaries, pagination, err := svc.ListDocuments(context.Background(), 0, 10)
	require.NoError(t, err)
	require.Len(t, summaries, 3)
	require.Equal(t, 3, pagination.TotalCount)
	require.Equal(t, 0, pagination.Page)
}

func TestDownloadRoundTrip(t *testing.T) {
	repo := newDocumentStoreStub()
	blobs := newBlobStoreStub()
	svc := newTestDocumentService(repo, blobs, &indexStub{})

	actor := models.Actor{UserID: "user-1", IPAddress: "10.0.0.9"}
	doc, err := svc.CreateDocument(context.Background(), "doc", "text/plain", 5, strings.NewReader("hello"), actor)
	require.NoError(t, err)

	token, expiresAt, err := svc.DownloadToken(context.Background(), doc.ID)
	require.NoError(t, err)
	require.True(t, expiresAt.After(time.Now()))

	download, err := svc.Download(context.Background(), token, actor)
	require.NoError(t, err)
	defer download.Content.Close()

	data, err := io.ReadAll(download.Content)
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))

	trail := repo.audit[doc.ID]
	require.Equal(t, models.AuditActionViewed, trail[len(trail)-1].Action)
}

func TestDownloadRejectsTamperedToken(t *testing.T) {
	svc := newTestDocumentService(newDocumentStoreStub(), newBlobStoreStub(), &indexStub{})

	_, err := svc.Download(context.Background(), "not-a-token", models.Actor{})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrLinkInvalid.Code, appErrors.FromError(err).Code)
}

func TestAuditTrailIsAppendOnly(t *testing.T) {
	repo := newDocumentStoreStub()
	svc := newTestDocumentService(repo, newBlobStoreStub(), &indexStub{})

	doc, err := svc.CreateDocument(context.Background(), "doc", "text/plain", 2, strings.NewReader("v1"), models.Actor{UserID: "a"})
	require.NoError(t, err)

	first, err := svc.ListAuditTrail(context.Background(), doc.ID)
	require.NoError(t, err)

	_, err = svc.UpdateDocument(context.Background(), doc.ID, "text/plain", 2, strings.NewReader("v2"), models.Actor{UserID: "b"})
	require.NoError(t, err)

	second, err := svc.ListAuditTrail(context.Background(), doc.ID)
	require.NoError(t, err)
	require.Len(t, second, len(first)+1)
	for i := range first {
		require.Equal(t, first[i], second[i])
	}
}
