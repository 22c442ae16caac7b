package models

import "time"

// SignatureStatus tracks the per-signer workflow state.
type SignatureStatus string

const (
	SignatureStatusPending   SignatureStatus = "PENDING"
	SignatureStatusCompleted SignatureStatus = "COMPLETED"
	SignatureStatusRejected  SignatureStatus = "REJECTED"
)

// AuditAction constants form the fixed action vocabulary.
const (
	AuditActionUploaded = "UPLOADED"
	AuditActionUpdated  = "UPDATED"
	AuditActionSigned   = "SIGNED"
	AuditActionRejected = "REJECTED"
	AuditActionViewed   = "VIEWED"
	AuditActionShared   = "SHARED"
	AuditActionDeleted  = "DELETED"
)

// Document is the authoritative record for one uploaded document.
// StorageKey never changes once assigned; only CurrentVersionToken moves
// as new content versions are written.
type Document struct {
	ID                  string           `db:"id" json:"id"`
	DisplayName         string           `db:"display_name" json:"displayName"`
	StorageKey          string           `db:"storage_key" json:"storageKey"`
	CurrentVersionToken string           `db:"current_version_token" json:"currentVersionToken"`
	ContentType         string           `db:"content_type" json:"contentType"`
	SizeBytes           int64            `db:"size_bytes" json:"sizeBytes"`
	OwnerID             string           `db:"owner_id" json:"ownerId"`
	CreatedAt           time.Time        `db:"created_at" json:"createdAt"`
	Metadata            DocumentMetadata `json:"metadata"`
	Signatures          []Signature      `json:"signatures"`
	AuditLogs           []AuditLog       `json:"auditLogs"`
}

// DocumentMetadata carries the mutable descriptive fields. Version increments
// by exactly one on each successful content update and never decreases.
type DocumentMetadata struct {
	Description  string    `db:"description" json:"description"`
	Tags         []string  `json:"tags"`
	Version      int       `db:"version" json:"version"`
	LastModified time.Time `db:"last_modified" json:"lastModified"`
}

// Signature is a per-signer request. Completed and Rejected are terminal.
type Signature struct {
	ID             string          `db:"id" json:"id"`
	DocumentID     string          `db:"document_id" json:"documentId"`
	SignerID       string          `db:"signer_id" json:"signerId"`
	Status         SignatureStatus `db:"status" json:"status"`
	RequestedAt    time.Time       `db:"requested_at" json:"requestedAt"`
	SignedAt       *time.Time      `db:"signed_at" json:"signedAt,omitempty"`
	SignerIP       string          `db:"signer_ip" json:"signerIp"`
	SignatureImage *string         `db:"signature_image" json:"signatureImagePath,omitempty"`
}

// AuditLog is one append-only trail entry. Entries are never mutated or
// removed; order within a document is the append order.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	DocumentID string    `db:"document_id" json:"documentId"`
	UserID     string    `db:"user_id" json:"userId"`
	Action     string    `db:"action" json:"action"`
	Timestamp  time.Time `db:"action_timestamp" json:"timestamp"`
	IPAddress  string    `db:"ip_address" json:"ipAddress"`
	Details    string    `db:"details" json:"details"`
}

// DocumentSummary is the list-page projection.
type DocumentSummary struct {
	ID          string    `db:"id" json:"id"`
	DisplayName string    `db:"display_name" json:"displayName"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// Actor identifies who performed a request. Identity is resolved upstream;
// this core only records it.
type Actor struct {
	UserID    string
	IPAddress string
}

// SharePermission constrains what a share grant allows.
type SharePermission string

const (
	SharePermissionRead SharePermission = "READ"
	SharePermissionSign SharePermission = "SIGN"
)

// Share records a capability grant for one document.
type Share struct {
	ID         string          `json:"id"`
	DocumentID string          `json:"documentId"`
	SharedWith string          `json:"sharedWith"`
	SharedBy   string          `json:"sharedBy"`
	Permission SharePermission `json:"permission"`
	SharedAt   time.Time       `json:"sharedAt"`
	ExpiresAt  time.Time       `json:"expiresAt"`
}
