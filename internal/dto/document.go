package dto

import (
	"time"

	"github.com/docuvault/docuvault-api/internal/models"
)

// UpdateMetadataRequest edits the descriptive fields of a document.
type UpdateMetadataRequest struct {
	Description *string  `json:"description"`
	Tags        []string `json:"tags"`
}

// DocumentListItem is the summary projection returned by list endpoints.
type DocumentListItem struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	CreatedAt   time.Time `json:"createdAt"`
}

// DownloadURLResponse carries a signed, expiring download link.
type DownloadURLResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SummaryFromModel converts a repository summary row.
func SummaryFromModel(s models.DocumentSummary) DocumentListItem {
	return DocumentListItem{ID: s.ID, DisplayName: s.DisplayName, CreatedAt: s.CreatedAt}
}
