package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/docuvault/docuvault-api/internal/models"
	"github.com/docuvault/docuvault-api/pkg/config"
	appErrors "github.com/docuvault/docuvault-api/pkg/errors"
)

type shareDocumentSource interface {
	GetDocument(ctx context.Context, id string) (*models.Document, error)
}

type shareAuditSink interface {
	AppendAuditLog(ctx context.Context, entry *models.AuditLog) error
}

// CreateShareInput carries the parameters of a share grant.
type CreateShareInput struct {
	SharedWith string `validate:"required"`
	Permission string
	TTL        time.Duration
}

// ShareClaims is the JWT payload for capability-style share links.
type ShareClaims struct {
	DocumentID string                 `json:"document_id"`
	SharedWith string                 `json:"shared_with"`
	SharedBy   string                 `json:"shared_by"`
	Permission models.SharePermission `json:"permission"`
	jwt.RegisteredClaims
}

// ShareService mints and validates signed share links for single documents.
// A token is the grant; there is no server-side share registry beyond the
// audit entry recording that it was issued.
type ShareService struct {
	docs      shareDocumentSource
	audit     shareAuditSink
	validator *validator.Validate
	cfg       config.SharesConfig
	logger    *zap.Logger
}

// NewShareService constructs the share link service.
func NewShareService(docs shareDocumentSource, audit shareAuditSink, validate *validator.Validate, cfg config.SharesConfig, logger *zap.Logger) *ShareService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = 24 * time.Hour
	}
	if cfg.MaxTTL <= 0 {
		cfg.MaxTTL = 7 * 24 * time.Hour
	}
	return &ShareService{docs: docs, audit: audit, validator: validate, cfg: cfg, logger: logger}
}

// Create mints a share token for one document and records the grant in the
// document's audit trail.
func (s *ShareService) Create(ctx context.Context, documentID string, in CreateShareInput, actor models.Actor) (*models.Share, string, error) {
	in.SharedWith = strings.TrimSpace(in.SharedWith)
	if err := s.validator.Struct(in); err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	perm, err := parsePermission(in.Permission)
	if err != nil {
		return nil, "", err
	}
	ttl := in.TTL
	if ttl <= 0 {
		ttl = s.cfg.DefaultTTL
	}
	if ttl > s.cfg.MaxTTL {
		ttl = s.cfg.MaxTTL
	}

	doc, err := s.docs.GetDocument(ctx, documentID)
	if err != nil {
		return nil, "", err
	}

	now := time.Now().UTC()
	share := &models.Share{
		ID:         uuid.NewString(),
		DocumentID: doc.ID,
		SharedWith: in.SharedWith,
		SharedBy:   actorUserID(actor),
		Permission: perm,
		SharedAt:   now,
		ExpiresAt:  now.Add(ttl),
	}

	claims := &ShareClaims{
		DocumentID: share.DocumentID,
		SharedWith: share.SharedWith,
		SharedBy:   share.SharedBy,
		Permission: share.Permission,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        share.ID,
			Subject:   share.DocumentID,
			ExpiresAt: jwt.NewNumericDate(share.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code,
			appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}

	entry := &models.AuditLog{
		DocumentID: doc.ID,
		UserID:     share.SharedBy,
		Action:     models.AuditActionShared,
		IPAddress:  actor.IPAddress,
		Details:    fmt.Sprintf("Shared with %s (%s) until %s", in.SharedWith, perm, share.ExpiresAt.Format(time.RFC3339)),
	}
	if err := s.audit.AppendAuditLog(ctx, entry); err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrMetadataPersist.Code,
			appErrors.ErrMetadataPersist.Status, "audit entry could not be recorded")
	}

	s.logger.Sugar().Infow("share created", "document_id", doc.ID, "shared_with", in.SharedWith, "permission", perm)
	return share, token, nil
}

// Resolve validates a share token against a document id and returns the
// shared document record.
func (s *ShareService) Resolve(ctx context.Context, documentID, token string) (*models.Document, *ShareClaims, error) {
	claims, err := s.validate(token)
	if err != nil {
		return nil, nil, err
	}
	if claims.DocumentID != documentID {
		return nil, nil, appErrors.Clone(appErrors.ErrShareInvalid, "share token grants a different document")
	}

	doc, err := s.docs.GetDocument(ctx, documentID)
	if err != nil {
		return nil, nil, err
	}
	return doc, claims, nil
}

func (s *ShareService) validate(token string) (*ShareClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &ShareClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrShareInvalid.Code,
			appErrors.ErrShareInvalid.Status, appErrors.ErrShareInvalid.Message)
	}
	claims, ok := parsed.Claims.(*ShareClaims)
	if !ok || !parsed.Valid {
		return nil, appErrors.ErrShareInvalid
	}
	return claims, nil
}

func parsePermission(raw string) (models.SharePermission, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "", string(models.SharePermissionRead):
		return models.SharePermissionRead, nil
	case string(models.SharePermissionSign):
		return models.SharePermissionSign, nil
	default:
		return "", appErrors.Wrap(fmt.Errorf("unknown permission %q", raw),
			appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "permission must be READ or SIGN")
	}
}
