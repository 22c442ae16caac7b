package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/docuvault/docuvault-api/internal/dto"
	"github.com/docuvault/docuvault-api/internal/models"
	"github.com/docuvault/docuvault-api/internal/service"
	appErrors "github.com/docuvault/docuvault-api/pkg/errors"
	"github.com/docuvault/docuvault-api/pkg/response"
)

type shareService interface {
	Create(ctx context.Context, documentID string, in service.CreateShareInput, actor models.Actor) (*models.Share, string, error)
	Resolve(ctx context.Context, documentID, token string) (*models.Document, *service.ShareClaims, error)
}

// ShareHandler manages share link endpoints.
type ShareHandler struct {
	service shareService
}

// NewShareHandler constructs the handler.
func NewShareHandler(service shareService) *ShareHandler {
	return &ShareHandler{service: service}
}

// Create godoc
// @Summary Share a document via a signed, expiring token
// @Tags Shares
// @Accept json
// @Produce json
// @Param id path string true "Document id"
// @Param payload body dto.CreateShareRequest true "Share grant"
// @Success 201 {object} response.Envelope
// @Router /documents/{id}/share [post]
func (h *ShareHandler) Create(c *gin.Context) {
	var req dto.CreateShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "sharedWith is required"))
		return
	}
	var ttl time.Duration
	if req.TTL != "" {
		parsed, err := time.ParseDuration(req.TTL)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "ttl must be a duration like 24h"))
			return
		}
		ttl = parsed
	}
	share, token, err := h.service.Create(c.Request.Context(), c.Param("id"), service.CreateShareInput{
		SharedWith: req.SharedWith,
		Permission: req.Permission,
		TTL:        ttl,
	}, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.ShareResponse{Token: token, ExpiresAt: share.ExpiresAt})
}

// Resolve godoc
// @Summary Access a shared document with a share token
// @Tags Shares
// @Produce json
// @Param id path string true "Document id"
// @Param token query string true "Share token"
// @Success 200 {object} response.Envelope
// @Router /documents/{id}/shared [get]
func (h *ShareHandler) Resolve(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	doc, _, err := h.service.Resolve(c.Request.Context(), c.Param("id"), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}
