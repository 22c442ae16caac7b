package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/docuvault/docuvault-api/internal/models"
	appErrors "github.com/docuvault/docuvault-api/pkg/errors"
)

// MaxPageSize bounds list reads.
const MaxPageSize = 100

// DocumentRepository persists document records with their embedded signature
// and audit sequences. Signature and audit appends are plain inserts, so
// concurrent appends to the same document are never lost to a read-modify-write
// race on the parent record.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository constructs the repository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

type documentRow struct {
	ID                  string         `db:"id"`
	DisplayName         string         `db:"display_name"`
	StorageKey          string         `db:"storage_key"`
	CurrentVersionToken string         `db:"current_version_token"`
	ContentType         string         `db:"content_type"`
	SizeBytes           int64          `db:"size_bytes"`
	OwnerID             string         `db:"owner_id"`
	CreatedAt           time.Time      `db:"created_at"`
	Description         string         `db:"description"`
	Tags                pq.StringArray `db:"tags"`
	Version             int            `db:"version"`
	LastModified        time.Time      `db:"last_modified"`
}

func (r documentRow) toModel() models.Document {
	return models.Document{
		ID:                  r.ID,
		DisplayName:         r.DisplayName,
		StorageKey:          r.StorageKey,
		CurrentVersionToken: r.CurrentVersionToken,
		ContentType:         r.ContentType,
		SizeBytes:           r.SizeBytes,
		OwnerID:             r.OwnerID,
		CreatedAt:           r.CreatedAt,
		Metadata: models.DocumentMetadata{
			Description:  r.Description,
			Tags:         []string(r.Tags),
			Version:      r.Version,
			LastModified: r.LastModified,
		},
	}
}

const documentColumns = `id, display_name, storage_key, current_version_token, content_type,
       size_bytes, owner_id, created_at, description, tags, version, last_modified`

// Create inserts a new document record with version 1 state. The record and
// its first audit entry land in one transaction; if the audit insert fails the
// record never becomes visible.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document, entry *models.AuditLog) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create document: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `INSERT INTO documents
	(id, display_name, storage_key, current_version_token, content_type, size_bytes, owner_id, created_at, description, tags, version, last_modified)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err = tx.ExecContext(ctx, query,
		doc.ID, doc.DisplayName, doc.StorageKey, doc.CurrentVersionToken, doc.ContentType,
		doc.SizeBytes, doc.OwnerID, doc.CreatedAt, doc.Metadata.Description,
		pq.StringArray(doc.Metadata.Tags), doc.Metadata.Version, doc.Metadata.LastModified)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return appErrors.ErrDuplicateID
		}
		return fmt.Errorf("create document: %w", err)
	}

	if entry != nil {
		if err := insertAuditLog(ctx, tx, entry); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create document: %w", err)
	}
	return nil
}

// GetByID loads one document with its ordered signature and audit sequences.
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	var row documentRow
	query := fmt.Sprintf(`SELECT %s FROM documents WHERE id = $1`, documentColumns)
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	doc := row.toModel()

	signatures, err := r.listSignatures(ctx, id)
	if err != nil {
		return nil, err
	}
	doc.Signatures = signatures

	audit, err := r.ListAuditLogs(ctx, id)
	if err != nil {
		return nil, err
	}
	doc.AuditLogs = audit

	return &doc, nil
}

// List returns one zero-based page of document summaries ordered by creation
// time (newest first, id as tiebreak for stable pages).
func (r *DocumentRepository) List(ctx context.Context, pageIndex, pageSize int) ([]models.DocumentSummary, int, error) {
	if pageIndex < 0 {
		pageIndex = 0
	}
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM documents`); err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}

	const query = `SELECT id, display_name, created_at FROM documents
	ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`
	var summaries []models.DocumentSummary
	if err := r.db.SelectContext(ctx, &summaries, query, pageSize, pageIndex*pageSize); err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}
	return summaries, total, nil
}

// ListForSync returns every document record without the embedded sequences,
// used by the index reconciliation pass.
func (r *DocumentRepository) ListForSync(ctx context.Context) ([]models.Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM documents ORDER BY created_at, id`, documentColumns)
	var rows []documentRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list documents for sync: %w", err)
	}
	docs := make([]models.Document, len(rows))
	for i, row := range rows {
		docs[i] = row.toModel()
	}
	return docs, nil
}

// Replace updates the mutable document fields guarded by an optimistic check
// on the record's current metadata version. Zero rows affected means another
// writer advanced the record first. The audit entry, when given, commits with
// the update or not at all.
func (r *DocumentRepository) Replace(ctx context.Context, doc *models.Document, expectedVersion int, entry *models.AuditLog) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace document: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `UPDATE documents SET
	display_name = $3, current_version_token = $4, content_type = $5, size_bytes = $6,
	description = $7, tags = $8, version = $9, last_modified = $10
	WHERE id = $1 AND version = $2`
	res, err := tx.ExecContext(ctx, query,
		doc.ID, expectedVersion, doc.DisplayName, doc.CurrentVersionToken, doc.ContentType,
		doc.SizeBytes, doc.Metadata.Description, pq.StringArray(doc.Metadata.Tags),
		doc.Metadata.Version, doc.Metadata.LastModified)
	if err != nil {
		return fmt.Errorf("replace document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check replace rows: %w", err)
	}
	if affected == 0 {
		return appErrors.ErrVersionConflict
	}

	if entry != nil {
		if err := insertAuditLog(ctx, tx, entry); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace document: %w", err)
	}
	return nil
}

// AppendSignature inserts one signature row.
func (r *DocumentRepository) AppendSignature(ctx context.Context, sig *models.Signature) error {
	if sig.ID == "" {
		sig.ID = uuid.NewString()
	}
	if sig.RequestedAt.IsZero() {
		sig.RequestedAt = time.Now().UTC()
	}
	const query = `INSERT INTO document_signatures
	(id, document_id, signer_id, status, requested_at, signed_at, signer_ip, signature_image)
	VALUES (:id, :document_id, :signer_id, :status, :requested_at, :signed_at, :signer_ip, :signature_image)`
	if _, err := r.db.NamedExecContext(ctx, query, sig); err != nil {
		return fmt.Errorf("append signature: %w", err)
	}
	return nil
}

// AppendAuditLog inserts one audit row outside any surrounding write. A
// sequence column assigned by the database fixes the total append order per
// document.
func (r *DocumentRepository) AppendAuditLog(ctx context.Context, entry *models.AuditLog) error {
	return insertAuditLog(ctx, r.db, entry)
}

func insertAuditLog(ctx context.Context, ext sqlx.ExtContext, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	const query = `INSERT INTO document_audit_logs
	(id, document_id, user_id, action, action_timestamp, ip_address, details)
	VALUES (:id, :document_id, :user_id, :action, :action_timestamp, :ip_address, :details)`
	if _, err := sqlx.NamedExecContext(ctx, ext, query, entry); err != nil {
		return fmt.Errorf("append audit log: %w", err)
	}
	return nil
}

// ListAuditLogs returns a document's audit trail in append order.
func (r *DocumentRepository) ListAuditLogs(ctx context.Context, documentID string) ([]models.AuditLog, error) {
	const query = `SELECT id, document_id, user_id, action, action_timestamp, ip_address, details
	FROM document_audit_logs WHERE document_id = $1 ORDER BY seq`
	var entries []models.AuditLog
	if err := r.db.SelectContext(ctx, &entries, query, documentID); err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return entries, nil
}

// GetSignature loads one signature row.
func (r *DocumentRepository) GetSignature(ctx context.Context, id string) (*models.Signature, error) {
	const query = `SELECT id, document_id, signer_id, status, requested_at, signed_at, signer_ip, signature_image
	FROM document_signatures WHERE id = $1`
	var sig models.Signature
	if err := r.db.GetContext(ctx, &sig, query, id); err != nil {
		return nil, err
	}
	return &sig, nil
}

// TransitionSignature moves a signature out of the pending state. The update
// is conditional on the row still being pending, so under concurrent attempts
// exactly one caller observes applied=true.
func (r *DocumentRepository) TransitionSignature(ctx context.Context, id string, to models.SignatureStatus, signedAt *time.Time, signerIP string, image *string) (bool, error) {
	const query = `UPDATE document_signatures
	SET status = $2, signed_at = $3, signer_ip = $4, signature_image = COALESCE($5, signature_image)
	WHERE id = $1 AND status = $6`
	res, err := r.db.ExecContext(ctx, query, id, to, signedAt, signerIP, image, models.SignatureStatusPending)
	if err != nil {
		return false, fmt.Errorf("transition signature: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check transition rows: %w", err)
	}
	return affected == 1, nil
}

func (r *DocumentRepository) listSignatures(ctx context.Context, documentID string) ([]models.Signature, error) {
	const query = `SELECT id, document_id, signer_id, status, requested_at, signed_at, signer_ip, signature_image
	FROM document_signatures WHERE document_id = $1 ORDER BY requested_at, id`
	var signatures []models.Signature
	if err := r.db.SelectContext(ctx, &signatures, query, documentID); err != nil {
		return nil, fmt.Errorf("list signatures: %w", err)
	}
	return signatures, nil
}

// IsNotFound reports whether err represents a missing row.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
