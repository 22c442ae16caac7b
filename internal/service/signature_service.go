package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/docuvault/docuvault-api/internal/models"
	appErrors "github.com/docuvault/docuvault-api/pkg/errors"
)

type signatureStore interface {
	GetByID(ctx context.Context, id string) (*models.Document, error)
	GetSignature(ctx context.Context, id string) (*models.Signature, error)
	AppendSignature(ctx context.Context, sig *models.Signature) error
	TransitionSignature(ctx context.Context, id string, to models.SignatureStatus, signedAt *time.Time, signerIP string, image *string) (bool, error)
	AppendAuditLog(ctx context.Context, entry *models.AuditLog) error
}

// SignatureService runs the per-signer e-signature workflow. Completed and
// Rejected are terminal; the transition out of Pending happens at most once
// no matter how many callers race for it.
type SignatureService struct {
	repo    signatureStore
	cache   documentCache
	metrics *MetricsService
	logger  *zap.Logger
}

// NewSignatureService constructs the workflow engine.
func NewSignatureService(repo signatureStore, cache documentCache, metrics *MetricsService, logger *zap.Logger) *SignatureService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SignatureService{repo: repo, cache: cache, metrics: metrics, logger: logger}
}

// Request opens a pending signature for one signer on an existing document.
func (s *SignatureService) Request(ctx context.Context, documentID, signerID string) (*models.Signature, error) {
	signerID = strings.TrimSpace(signerID)
	if signerID == "" {
		return nil, appErrors.Wrap(fmt.Errorf("signer id is required"),
			appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, appErrors.ErrValidation.Message)
	}

	if _, err := s.loadDocument(ctx, documentID); err != nil {
		return nil, err
	}

	sig := &models.Signature{
		DocumentID: documentID,
		SignerID:   signerID,
		Status:     models.SignatureStatusPending,
	}
	if err := s.repo.AppendSignature(ctx, sig); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrMetadataPersist.Code,
			appErrors.ErrMetadataPersist.Status, appErrors.ErrMetadataPersist.Message)
	}

	s.invalidateDocument(ctx, documentID)
	s.logger.Sugar().Infow("signature requested", "document_id", documentID, "signature_id", sig.ID, "signer_id", signerID)
	return sig, nil
}

// Complete finalises a pending signature. The signer must match the one the
// signature was requested for. A signature that already left Pending yields
// ErrInvalidTransition with no side effects.
func (s *SignatureService) Complete(ctx context.Context, documentID, signatureID, signerID string, image *string, actor models.Actor) (*models.Signature, error) {
	if strings.TrimSpace(signerID) == "" {
		return nil, appErrors.ErrValidation
	}

	sig, err := s.loadSignature(ctx, documentID, signatureID)
	if err != nil {
		return nil, err
	}
	if sig.SignerID != signerID {
		return nil, appErrors.Wrap(fmt.Errorf("signature %s belongs to a different signer", signatureID),
			appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "signer does not match the signature request")
	}

	signedAt := time.Now().UTC()
	applied, err := s.repo.TransitionSignature(ctx, signatureID, models.SignatureStatusCompleted, &signedAt, actor.IPAddress, image)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrMetadataPersist.Code,
			appErrors.ErrMetadataPersist.Status, appErrors.ErrMetadataPersist.Message)
	}
	if !applied {
		s.metrics.RecordSignatureTransition("conflict")
		return nil, appErrors.ErrInvalidTransition
	}
	s.metrics.RecordSignatureTransition("completed")

	if err := s.appendAudit(ctx, documentID, models.AuditActionSigned, actor,
		fmt.Sprintf("Signature %s completed by %s", signatureID, signerID)); err != nil {
		return nil, err
	}

	sig.Status = models.SignatureStatusCompleted
	sig.SignedAt = &signedAt
	sig.SignerIP = actor.IPAddress
	if image != nil {
		sig.SignatureImage = image
	}

	s.invalidateDocument(ctx, documentID)
	s.logger.Sugar().Infow("signature completed", "document_id", documentID, "signature_id", signatureID)
	return sig, nil
}

// Reject declines a pending signature with a reason. Terminal like Complete.
func (s *SignatureService) Reject(ctx context.Context, documentID, signatureID, details string, actor models.Actor) (*models.Signature, error) {
	details = strings.TrimSpace(details)
	if details == "" {
		return nil, appErrors.Wrap(fmt.Errorf("rejection details are required"),
			appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, appErrors.ErrValidation.Message)
	}

	sig, err := s.loadSignature(ctx, documentID, signatureID)
	if err != nil {
		return nil, err
	}

	applied, err := s.repo.TransitionSignature(ctx, signatureID, models.SignatureStatusRejected, nil, actor.IPAddress, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrMetadataPersist.Code,
			appErrors.ErrMetadataPersist.Status, appErrors.ErrMetadataPersist.Message)
	}
	if !applied {
		s.metrics.RecordSignatureTransition("conflict")
		return nil, appErrors.ErrInvalidTransition
	}
	s.metrics.RecordSignatureTransition("rejected")

	if err := s.appendAudit(ctx, documentID, models.AuditActionRejected, actor,
		fmt.Sprintf("Signature %s rejected: %s", signatureID, details)); err != nil {
		return nil, err
	}

	sig.Status = models.SignatureStatusRejected
	sig.SignerIP = actor.IPAddress

	s.invalidateDocument(ctx, documentID)
	s.logger.Sugar().Infow("signature rejected", "document_id", documentID, "signature_id", signatureID)
	return sig, nil
}

func (s *SignatureService) loadDocument(ctx context.Context, id string) (*models.Document, error) {
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

func (s *SignatureService) loadSignature(ctx context.Context, documentID, signatureID string) (*models.Signature, error) {
	sig, err := s.repo.GetSignature(ctx, signatureID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrMetadataPersist.Code,
			appErrors.ErrMetadataPersist.Status, appErrors.ErrMetadataPersist.Message)
	}
	if sig.DocumentID != documentID {
		return nil, appErrors.ErrNotFound
	}
	return sig, nil
}

func (s *SignatureService) appendAudit(ctx context.Context, documentID, action string, actor models.Actor, details string) error {
	entry := &models.AuditLog{
		DocumentID: documentID,
		UserID:     actorUserID(actor),
		Action:     action,
		IPAddress:  actor.IPAddress,
		Details:    details,
	}
	if err := s.repo.AppendAuditLog(ctx, entry); err != nil {
		return appErrors.Wrap(err, appErrors.ErrMetadataPersist.Code,
			appErrors.ErrMetadataPersist.Status, "audit entry could not be recorded")
	}
	return nil
}

func (s *SignatureService) invalidateDocument(ctx context.Context, documentID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "documents:doc:"+documentID); err != nil {
		s.logger.Sugar().Warnw("failed to invalidate document cache", "document_id", documentID, "error", err)
	}
}
