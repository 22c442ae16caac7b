package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/docuvault/docuvault-api/internal/dto"
	"github.com/docuvault/docuvault-api/internal/models"
	"github.com/docuvault/docuvault-api/internal/service"
	appErrors "github.com/docuvault/docuvault-api/pkg/errors"
	"github.com/docuvault/docuvault-api/pkg/response"
)

type documentService interface {
	CreateDocument(ctx context.Context, fileName, contentType string, size int64, content io.Reader, actor models.Actor) (*models.Document, error)
	UpdateDocument(ctx context.Context, id, contentType string, size int64, content io.Reader, actor models.Actor) (*models.Document, error)
	UpdateMetadata(ctx context.Context, id string, description *string, tags []string, actor models.Actor) (*models.Document, error)
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	ListDocuments(ctx context.Context, pageIndex, pageSize int) ([]models.DocumentSummary, *models.Pagination, error)
	ListAuditTrail(ctx context.Context, id string) ([]models.AuditLog, error)
	DownloadToken(ctx context.Context, id string) (string, time.Time, error)
	Download(ctx context.Context, token string, actor models.Actor) (*service.DownloadContent, error)
}

type auditExporter interface {
	Export(ctx context.Context, documentID string, format service.ExportFormat) (*service.AuditExportFile, error)
}

// DocumentHandler manages document lifecycle HTTP endpoints.
type DocumentHandler struct {
	service   documentService
	exporter  auditExporter
	apiPrefix string
}

// NewDocumentHandler constructs the handler.
func NewDocumentHandler(service documentService, exporter auditExporter, apiPrefix string) *DocumentHandler {
	if apiPrefix == "" {
		apiPrefix = "/api/v1"
	}
	return &DocumentHandler{service: service, exporter: exporter, apiPrefix: apiPrefix}
}

// Upload godoc
// @Summary Upload a new document
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Document content"
// @Success 201 {object} response.Envelope
// @Router /documents/upload [post]
func (h *DocumentHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file"))
		return
	}
	defer src.Close()

	doc, err := h.service.CreateDocument(c.Request.Context(), fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"), fileHeader.Size, src, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, doc)
}

// Update godoc
// @Summary Replace a document's content with a new version
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Document id"
// @Param file formData file true "New content"
// @Success 200 {object} response.Envelope
// @Router /documents/{id} [put]
func (h *DocumentHandler) Update(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file"))
		return
	}
	defer src.Close()

	doc, err := h.service.UpdateDocument(c.Request.Context(), c.Param("id"),
		fileHeader.Header.Get("Content-Type"), fileHeader.Size, src, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// UpdateMetadata godoc
// @Summary Edit a document's descriptive metadata
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path string true "Document id"
// @Param payload body dto.UpdateMetadataRequest true "Metadata changes"
// @Success 200 {object} response.Envelope
// @Router /documents/{id}/metadata [patch]
func (h *DocumentHandler) UpdateMetadata(c *gin.Context) {
	var req dto.UpdateMetadataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid metadata payload"))
		return
	}
	doc, err := h.service.UpdateMetadata(c.Request.Context(), c.Param("id"), req.Description, req.Tags, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// Get godoc
// @Summary Get one document with its signatures and audit trail
// @Tags Documents
// @Produce json
// @Param id path string true "Document id"
// @Success 200 {object} response.Envelope
// @Router /documents/{id} [get]
func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.service.GetDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// List godoc
// @Summary List document summaries
// @Tags Documents
// @Produce json
// @Param page query int false "Zero-based page index"
// @Param pageSize query int false "Page size (max 100)"
// @Success 200 {object} response.Envelope
// @Router /documents [get]
func (h *DocumentHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	summaries, pagination, err := h.service.ListDocuments(c.Request.Context(), page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	items := make([]dto.DocumentListItem, 0, len(summaries))
	for _, s := range summaries {
		items = append(items, dto.SummaryFromModel(s))
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// AuditTrail godoc
// @Summary List a document's audit entries in append order
// @Tags Documents
// @Produce json
// @Param id path string true "Document id"
// @Success 200 {object} response.Envelope
// @Router /documents/{id}/audit [get]
func (h *DocumentHandler) AuditTrail(c *gin.Context) {
	entries, err := h.service.ListAuditTrail(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// ExportAuditTrail godoc
// @Summary Export a document's audit trail as CSV or PDF
// @Tags Documents
// @Produce octet-stream
// @Param id path string true "Document id"
// @Param format query string false "csv or pdf"
// @Success 200 {file} binary
// @Router /documents/{id}/audit/export [get]
func (h *DocumentHandler) ExportAuditTrail(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", string(service.ExportFormatCSV)))
	file, err := h.exporter.Export(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// DownloadURL godoc
// @Summary Mint a signed, expiring download link
// @Tags Documents
// @Produce json
// @Param id path string true "Document id"
// @Success 200 {object} response.Envelope
// @Router /documents/{id}/download-url [get]
func (h *DocumentHandler) DownloadURL(c *gin.Context) {
	id := c.Param("id")
	token, expiresAt, err := h.service.DownloadToken(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	payload := dto.DownloadURLResponse{
		URL:       fmt.Sprintf("%s/documents/%s/download?token=%s", h.apiPrefix, id, token),
		ExpiresAt: expiresAt,
	}
	response.JSON(c, http.StatusOK, payload, nil)
}

// Download godoc
// @Summary Stream document content for a valid signed link
// @Tags Documents
// @Produce octet-stream
// @Param id path string true "Document id"
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Router /documents/{id}/download [get]
func (h *DocumentHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	download, err := h.service.Download(c.Request.Context(), token, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.Content.Close()

	doc := download.Document
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.DisplayName))
	contentType := doc.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, doc.SizeBytes, contentType, download.Content, nil)
}
