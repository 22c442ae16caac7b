package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/docuvault/docuvault-api/internal/dto"
	"github.com/docuvault/docuvault-api/internal/models"
	appErrors "github.com/docuvault/docuvault-api/pkg/errors"
	"github.com/docuvault/docuvault-api/pkg/response"
)

type signatureWorkflow interface {
	Request(ctx context.Context, documentID, signerID string) (*models.Signature, error)
	Complete(ctx context.Context, documentID, signatureID, signerID string, image *string, actor models.Actor) (*models.Signature, error)
	Reject(ctx context.Context, documentID, signatureID, details string, actor models.Actor) (*models.Signature, error)
}

// SignatureHandler manages the e-signature workflow endpoints.
type SignatureHandler struct {
	service signatureWorkflow
}

// NewSignatureHandler constructs the handler.
func NewSignatureHandler(service signatureWorkflow) *SignatureHandler {
	return &SignatureHandler{service: service}
}

// Request godoc
// @Summary Request a signature from one signer
// @Tags Signatures
// @Accept json
// @Produce json
// @Param id path string true "Document id"
// @Param payload body dto.RequestSignatureRequest true "Signer"
// @Success 201 {object} response.Envelope
// @Router /documents/{id}/signatures [post]
func (h *SignatureHandler) Request(c *gin.Context) {
	var req dto.RequestSignatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "signerId is required"))
		return
	}
	sig, err := h.service.Request(c.Request.Context(), c.Param("id"), req.SignerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, sig)
}

// Complete godoc
// @Summary Complete a pending signature
// @Tags Signatures
// @Accept json
// @Produce json
// @Param id path string true "Document id"
// @Param sid path string true "Signature id"
// @Param payload body dto.CompleteSignatureRequest true "Completion"
// @Success 200 {object} response.Envelope
// @Router /documents/{id}/signatures/{sid}/complete [post]
func (h *SignatureHandler) Complete(c *gin.Context) {
	var req dto.CompleteSignatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "signerId is required"))
		return
	}
	sig, err := h.service.Complete(c.Request.Context(), c.Param("id"), c.Param("sid"),
		req.SignerID, req.SignatureImage, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sig, nil)
}

// Reject godoc
// @Summary Reject a pending signature
// @Tags Signatures
// @Accept json
// @Produce json
// @Param id path string true "Document id"
// @Param sid path string true "Signature id"
// @Param payload body dto.RejectSignatureRequest true "Rejection reason"
// @Success 200 {object} response.Envelope
// @Router /documents/{id}/signatures/{sid}/reject [post]
func (h *SignatureHandler) Reject(c *gin.Context) {
	var req dto.RejectSignatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "details are required"))
		return
	}
	sig, err := h.service.Reject(c.Request.Context(), c.Param("id"), c.Param("sid"), req.Details, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sig, nil)
}
