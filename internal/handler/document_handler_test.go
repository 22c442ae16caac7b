package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuvault/docuvault-api/internal/models"
	"github.com/docuvault/docuvault-api/internal/service"
	appErrors "github.com/docuvault/docuvault-api/pkg/errors"
)

type documentServiceMock struct {
	createResp   *models.Document
	createErr    error
	updateResp   *models.Document
	updateErr    error
	getResp      *models.Document
	getErr       error
	listResp     []models.DocumentSummary
	listPage     *models.Pagination
	auditResp    []models.AuditLog
	token        string
	downloadResp *service.DownloadContent
	downloadErr  error

	createdName  string
	createdActor models.Actor
	updatedID    string
}

func (m *documentServiceMock) CreateDocument(ctx context.Context, fileName, contentType string, size int64, content io.Reader, actor models.Actor) (*models.Document, error) {
	m.createdName = fileName
	m.createdActor = actor
	return m.createResp, m.createErr
}

func (m *documentServiceMock) UpdateDocument(ctx context.Context, id, contentType string, size int64, content io.Reader, actor models.Actor) (*models.Document, error) {
	m.updatedID = id
	return m.updateResp, m.updateErr
}

func (m *documentServiceMock) UpdateMetadata(ctx context.Context, id string, description *string, tags []string, actor models.Actor) (*models.Document, error) {
	return m.updateResp, m.updateErr
}

func (m *documentServiceMock) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	return m.getResp, m.getErr
}

func (m *documentServiceMock) ListDocuments(ctx context.Context, pageIndex, pageSize int) ([]models.DocumentSummary, *models.Pagination, error) {
	return m.listResp, m.listPage, nil
}

func (m *documentServiceMock) ListAuditTrail(ctx context.Context, id string) ([]models.AuditLog, error) {
	return m.auditResp, nil
}

func (m *documentServiceMock) DownloadToken(ctx context.Context, id string) (string, time.Time, error) {
	return m.token, time.Now().Add(time.Minute), nil
}

func (m *documentServiceMock) Download(ctx context.Context, token string, actor models.Actor) (*service.DownloadContent, error) {
	return m.downloadResp, m.downloadErr
}

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestDocumentHandlerUpload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &documentServiceMock{
		createResp: &models.Document{ID: "doc-1", DisplayName: "contract.pdf"},
	}
	handler := NewDocumentHandler(mockSvc, nil, "/api/v1")

	body, contentType := multipartBody(t, "contract.pdf", "content")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/documents/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-User-ID", "user-1")
	c.Request = req

	handler.Upload(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "contract.pdf", mockSvc.createdName)
	assert.Equal(t, "user-1", mockSvc.createdActor.UserID)
}

func TestDocumentHandlerUploadMissingFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDocumentHandler(&documentServiceMock{}, nil, "/api/v1")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/documents/upload", strings.NewReader(""))
	c.Request = req

	handler.Upload(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDocumentHandlerUpdateNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &documentServiceMock{updateErr: appErrors.ErrNotFound}
	handler := NewDocumentHandler(mockSvc, nil, "/api/v1")

	body, contentType := multipartBody(t, "contract.pdf", "v2")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPut, "/documents/missing", body)
	req.Header.Set("Content-Type", contentType)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	handler.Update(c)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "missing", mockSvc.updatedID)
}

func TestDocumentHandlerGet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &documentServiceMock{
		getResp: &models.Document{ID: "doc-1", DisplayName: "contract"},
	}
	handler := NewDocumentHandler(mockSvc, nil, "/api/v1")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/documents/doc-1", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "doc-1"}}

	handler.Get(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data models.Document `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "doc-1", envelope.Data.ID)
}

func TestDocumentHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &documentServiceMock{
		listResp: []models.DocumentSummary{{ID: "doc-1", DisplayName: "a"}},
		listPage: &models.Pagination{Page: 0, PageSize: 20, TotalCount: 1},
	}
	handler := NewDocumentHandler(mockSvc, nil, "/api/v1")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/documents?page=0&pageSize=20", nil)
	c.Request = req

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data       []map[string]interface{} `json:"data"`
		Pagination *models.Pagination       `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	require.NotNil(t, envelope.Pagination)
	assert.Equal(t, 1, envelope.Pagination.TotalCount)
}

func TestDocumentHandlerDownloadURL(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &documentServiceMock{token: "signed-token"}
	handler := NewDocumentHandler(mockSvc, nil, "/api/v1")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/documents/doc-1/download-url", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "doc-1"}}

	handler.DownloadURL(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/api/v1/documents/doc-1/download?token=signed-token")
}

func TestDocumentHandlerDownload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &documentServiceMock{
		downloadResp: &service.DownloadContent{
			Document: &models.Document{ID: "doc-1", DisplayName: "contract.txt", ContentType: "text/plain", SizeBytes: 5},
			Content:  io.NopCloser(strings.NewReader("hello")),
		},
	}
	handler := NewDocumentHandler(mockSvc, nil, "/api/v1")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/documents/doc-1/download?token=abc", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "doc-1"}}

	handler.Download(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "contract.txt")
}

func TestDocumentHandlerDownloadMissingToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDocumentHandler(&documentServiceMock{}, nil, "/api/v1")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/documents/doc-1/download", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "doc-1"}}

	handler.Download(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
