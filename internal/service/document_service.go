package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/docuvault/docuvault-api/internal/models"
	"github.com/docuvault/docuvault-api/pkg/config"
	appErrors "github.com/docuvault/docuvault-api/pkg/errors"
	"github.com/docuvault/docuvault-api/pkg/lock"
	"github.com/docuvault/docuvault-api/pkg/storage"
)

const replaceRetryLimit = 3

type documentStore interface {
	Create(ctx context.Context, doc *models.Document, entry *models.AuditLog) error
	GetByID(ctx context.Context, id string) (*models.Document, error)
	List(ctx context.Context, pageIndex, pageSize int) ([]models.DocumentSummary, int, error)
	Replace(ctx context.Context, doc *models.Document, expectedVersion int, entry *models.AuditLog) error
	AppendAuditLog(ctx context.Context, entry *models.AuditLog) error
	ListAuditLogs(ctx context.Context, documentID string) ([]models.AuditLog, error)
}

type indexScheduler interface {
	Schedule(documentID string)
	Ask(ctx context.Context, question string) (string, error)
}

type documentCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type downloadSigner interface {
	Generate(documentID, versionToken string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (documentID, versionToken string, expiresAt time.Time, err error)
}

// documentList is the cached shape of one list page.
type documentList struct {
	Items      []models.DocumentSummary `json:"items"`
	Pagination models.Pagination        `json:"pagination"`
}

// DocumentService coordinates content writes, metadata persistence, audit
// appends and index scheduling so that a failed step never leaves partial
// state visible.
type DocumentService struct {
	repo      documentStore
	blobs     storage.BlobStore
	index     indexScheduler
	cache     documentCache
	signer    downloadSigner
	metrics   *MetricsService
	locks     *lock.Arena
	cacheCfg  config.CacheConfig
	maxUpload int64
	logger    *zap.Logger
}

// NewDocumentService constructs the orchestrator.
func NewDocumentService(repo documentStore, blobs storage.BlobStore, index indexScheduler, cache documentCache, signer downloadSigner, metrics *MetricsService, cacheCfg config.CacheConfig, maxUpload int64, logger *zap.Logger) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentService{
		repo:      repo,
		blobs:     blobs,
		index:     index,
		cache:     cache,
		signer:    signer,
		metrics:   metrics,
		locks:     lock.NewArena(),
		cacheCfg:  cacheCfg,
		maxUpload: maxUpload,
		logger:    logger,
	}
}

// StorageKeyFor derives the permanent content slot for a document id.
func StorageKeyFor(documentID string) string {
	return "doc/" + documentID
}

// DisplayNameFor derives a document's display name from its uploaded file
// name: "contract.pdf" becomes "contract". A bare name or a dotfile is kept
// as is.
func DisplayNameFor(fileName string) string {
	name := strings.TrimSpace(fileName)
	if ext := filepath.Ext(name); ext != "" && ext != name {
		name = strings.TrimSuffix(name, ext)
	}
	return name
}

// CreateDocument writes the first content version, persists the record and
// its upload audit entry in one metadata write with version 1, and schedules
// an index sync. A metadata failure after the content write fails the whole
// operation; the orphaned blob version is unreferenced garbage.
func (s *DocumentService) CreateDocument(ctx context.Context, fileName, contentType string, size int64, content io.Reader, actor models.Actor) (*models.Document, error) {
	displayName := DisplayNameFor(fileName)
	if displayName == "" || content == nil {
		return nil, appErrors.Wrap(fmt.Errorf("display name and content are required"),
			appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, appErrors.ErrValidation.Message)
	}
	if s.maxUpload > 0 && size > s.maxUpload {
		return nil, appErrors.Wrap(fmt.Errorf("upload of %d bytes exceeds limit %d", size, s.maxUpload),
			appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "uploaded file is too large")
	}

	id := uuid.NewString()
	storageKey := StorageKeyFor(id)

	token, err := s.blobs.PutVersion(ctx, storageKey, content)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code,
			appErrors.ErrStorageUnavailable.Status, appErrors.ErrStorageUnavailable.Message)
	}

	now := time.Now().UTC()
	doc := &models.Document{
		ID:                  id,
		DisplayName:         displayName,
		StorageKey:          storageKey,
		CurrentVersionToken: token,
		ContentType:         contentType,
		SizeBytes:           size,
		OwnerID:             actor.UserID,
		CreatedAt:           now,
		Metadata: models.DocumentMetadata{
			Version:      1,
			LastModified: now,
		},
	}

	entry := auditEntry(doc.ID, models.AuditActionUploaded, actor, fmt.Sprintf("Uploaded %q (%d bytes)", displayName, size))
	if err := s.repo.Create(ctx, doc, entry); err != nil {
		if errors.Is(err, appErrors.ErrDuplicateID) {
			// Server-generated ids should never collide.
			s.logger.Sugar().Errorw("document id collision", "document_id", id)
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrMetadataPersist.Code,
			appErrors.ErrMetadataPersist.Status, appErrors.ErrMetadataPersist.Message)
	}
	doc.AuditLogs = append(doc.AuditLogs, *entry)

	s.metrics.RecordDocumentOperation("create")
	s.index.Schedule(doc.ID)
	s.invalidateListCache(ctx)
	s.logger.Sugar().Infow("document created", "document_id", doc.ID, "size_bytes", size)
	return doc, nil
}

// UpdateDocument writes a new content version under the document's existing
// storage key and replaces the record with the version counter advanced by
// one. Concurrent updates to the same document are serialised; a lost CAS is
// retried against the fresh record.
func (s *DocumentService) UpdateDocument(ctx context.Context, id, contentType string, size int64, content io.Reader, actor models.Actor) (*models.Document, error) {
	if content == nil {
		return nil, appErrors.ErrValidation
	}
	if s.maxUpload > 0 && size > s.maxUpload {
		return nil, appErrors.Wrap(fmt.Errorf("upload of %d bytes exceeds limit %d", size, s.maxUpload),
			appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "uploaded file is too large")
	}

	release := s.locks.Lock("document:" + id)
	defer release()

	doc, err := s.loadDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	token, err := s.blobs.PutVersion(ctx, doc.StorageKey, content)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code,
			appErrors.ErrStorageUnavailable.Status, appErrors.ErrStorageUnavailable.Message)
	}

	for attempt := 0; ; attempt++ {
		expected := doc.Metadata.Version
		doc.CurrentVersionToken = token
		doc.ContentType = contentType
		doc.SizeBytes = size
		doc.Metadata.Version = expected + 1
		doc.Metadata.LastModified = time.Now().UTC()

		entry := auditEntry(doc.ID, models.AuditActionUpdated, actor, fmt.Sprintf("Replaced content, now version %d (%d bytes)", doc.Metadata.Version, size))
		err = s.repo.Replace(ctx, doc, expected, entry)
		if err == nil {
			doc.AuditLogs = append(doc.AuditLogs, *entry)
			break
		}
		if !errors.Is(err, appErrors.ErrVersionConflict) {
			return nil, appErrors.Wrap(err, appErrors.ErrMetadataPersist.Code,
				appErrors.ErrMetadataPersist.Status, appErrors.ErrMetadataPersist.Message)
		}
		if attempt+1 >= replaceRetryLimit {
			return nil, err
		}
		if doc, err = s.loadDocument(ctx, id); err != nil {
			return nil, err
		}
	}

	s.metrics.RecordDocumentOperation("update")
	s.index.Schedule(doc.ID)
	s.invalidateDocumentCache(ctx, doc.ID)
	s.invalidateListCache(ctx)
	s.logger.Sugar().Infow("document updated", "document_id", doc.ID, "version", doc.Metadata.Version)
	return doc, nil
}

// UpdateMetadata edits the descriptive fields without touching content.
func (s *DocumentService) UpdateMetadata(ctx context.Context, id string, description *string, tags []string, actor models.Actor) (*models.Document, error) {
	release := s.locks.Lock("document:" + id)
	defer release()

	doc, err := s.loadDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	expected := doc.Metadata.Version
	if description != nil {
		doc.Metadata.Description = *description
	}
	if tags != nil {
		doc.Metadata.Tags = tags
	}
	doc.Metadata.Version = expected + 1
	doc.Metadata.LastModified = time.Now().UTC()

	entry := auditEntry(doc.ID, models.AuditActionUpdated, actor, "Edited metadata")
	if err := s.repo.Replace(ctx, doc, expected, entry); err != nil {
		if errors.Is(err, appErrors.ErrVersionConflict) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrMetadataPersist.Code,
			appErrors.ErrMetadataPersist.Status, appErrors.ErrMetadataPersist.Message)
	}
	doc.AuditLogs = append(doc.AuditLogs, *entry)

	s.metrics.RecordDocumentOperation("update_metadata")
	s.index.Schedule(doc.ID)
	s.invalidateDocumentCache(ctx, doc.ID)
	s.invalidateListCache(ctx)
	return doc, nil
}

// GetDocument returns the full record including its signature and audit
// sequences, through the read cache when enabled.
func (s *DocumentService) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	cacheKey := "documents:doc:" + id
	if s.cacheEnabled() {
		var cached models.Document
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			s.metrics.RecordCacheLookup(true)
			return &cached, nil
		}
		s.metrics.RecordCacheLookup(false)
	}

	doc, err := s.loadDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cacheEnabled() {
		if err := s.cache.Set(ctx, cacheKey, doc, s.cacheCfg.TTL); err != nil {
			s.logger.Sugar().Warnw("failed to cache document", "document_id", id, "error", err)
		}
	}
	return doc, nil
}

// ListDocuments returns one page of summaries with pagination metadata.
func (s *DocumentService) ListDocuments(ctx context.Context, pageIndex, pageSize int) ([]models.DocumentSummary, *models.Pagination, error) {
	cacheKey := fmt.Sprintf("documents:list:%d:%d", pageIndex, pageSize)
	if s.cacheEnabled() {
		var cached documentList
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			s.metrics.RecordCacheLookup(true)
			page := cached.Pagination
			return cached.Items, &page, nil
		}
		s.metrics.RecordCacheLookup(false)
	}

	summaries, total, err := s.repo.List(ctx, pageIndex, pageSize)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrMetadataPersist.Code,
			appErrors.ErrMetadataPersist.Status, appErrors.ErrMetadataPersist.Message)
	}
	if summaries == nil {
		summaries = []models.DocumentSummary{}
	}
	pagination := &models.Pagination{Page: pageIndex, PageSize: pageSize, TotalCount: total}

	if s.cacheEnabled() {
		if err := s.cache.Set(ctx, cacheKey, documentList{Items: summaries, Pagination: *pagination}, s.cacheCfg.ListTTL); err != nil {
			s.logger.Sugar().Warnw("failed to cache document list", "error", err)
		}
	}
	return summaries, pagination, nil
}

// AskQuestion answers a natural-language question over the synced corpus.
func (s *DocumentService) AskQuestion(ctx context.Context, question string) (string, error) {
	answer, err := s.index.Ask(ctx, question)
	if err != nil {
		return "", err
	}
	s.metrics.RecordQuestion()
	return answer, nil
}

// ListAuditTrail returns the document's audit entries in append order.
func (s *DocumentService) ListAuditTrail(ctx context.Context, id string) ([]models.AuditLog, error) {
	if _, err := s.loadDocument(ctx, id); err != nil {
		return nil, err
	}
	entries, err := s.repo.ListAuditLogs(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrMetadataPersist.Code,
			appErrors.ErrMetadataPersist.Status, appErrors.ErrMetadataPersist.Message)
	}
	if entries == nil {
		entries = []models.AuditLog{}
	}
	return entries, nil
}

// DownloadToken mints a signed, expiring token for the document's current
// content version.
func (s *DocumentService) DownloadToken(ctx context.Context, id string) (string, time.Time, error) {
	doc, err := s.GetDocument(ctx, id)
	if err != nil {
		return "", time.Time{}, err
	}
	token, expiresAt, err := s.signer.Generate(doc.ID, doc.CurrentVersionToken)
	if err != nil {
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code,
			appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}
	return token, expiresAt, nil
}

// DownloadContent bundles a content stream with the owning record.
type DownloadContent struct {
	Document *models.Document
	Content  io.ReadCloser
}

// Download validates a signed token and streams the content version it names,
// recording the view in the audit trail.
func (s *DocumentService) Download(ctx context.Context, token string, actor models.Actor) (*DownloadContent, error) {
	documentID, versionToken, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrLinkInvalid.Code,
			appErrors.ErrLinkInvalid.Status, appErrors.ErrLinkInvalid.Message)
	}

	doc, err := s.loadDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	rc, err := s.blobs.Get(ctx, doc.StorageKey, versionToken)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code,
			appErrors.ErrStorageUnavailable.Status, appErrors.ErrStorageUnavailable.Message)
	}

	if err := s.appendAudit(ctx, doc, models.AuditActionViewed, actor, "Downloaded content"); err != nil {
		rc.Close()
		return nil, err
	}
	s.metrics.RecordDocumentOperation("download")
	return &DownloadContent{Document: doc, Content: rc}, nil
}

func (s *DocumentService) loadDocument(ctx context.Context, id string) (*models.Document, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrMetadataPersist.Code,
			appErrors.ErrMetadataPersist.Status, appErrors.ErrMetadataPersist.Message)
	}
	return doc, nil
}

func (s *DocumentService) appendAudit(ctx context.Context, doc *models.Document, action string, actor models.Actor, details string) error {
	entry := auditEntry(doc.ID, action, actor, details)
	if err := s.repo.AppendAuditLog(ctx, entry); err != nil {
		return appErrors.Wrap(err, appErrors.ErrMetadataPersist.Code,
			appErrors.ErrMetadataPersist.Status, "audit entry could not be recorded")
	}
	doc.AuditLogs = append(doc.AuditLogs, *entry)
	return nil
}

func auditEntry(documentID, action string, actor models.Actor, details string) *models.AuditLog {
	return &models.AuditLog{
		DocumentID: documentID,
		UserID:     actorUserID(actor),
		Action:     action,
		IPAddress:  actor.IPAddress,
		Details:    details,
	}
}

func (s *DocumentService) cacheEnabled() bool {
	return s.cacheCfg.Enabled && s.cache != nil
}

func (s *DocumentService) invalidateDocumentCache(ctx context.Context, id string) {
	if !s.cacheEnabled() {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "documents:doc:"+id); err != nil {
		s.logger.Sugar().Warnw("failed to invalidate document cache", "document_id", id, "error", err)
	}
}

func (s *DocumentService) invalidateListCache(ctx context.Context) {
	if !s.cacheEnabled() {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "documents:list:*"); err != nil {
		s.logger.Sugar().Warnw("failed to invalidate list cache", "error", err)
	}
}

func actorUserID(actor models.Actor) string {
	if actor.UserID == "" {
		return "anonymous"
	}
	return actor.UserID
}
