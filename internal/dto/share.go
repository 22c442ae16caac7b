package dto

import "time"

// CreateShareRequest mints a share token for one document.
type CreateShareRequest struct {
	SharedWith string `json:"sharedWith" binding:"required"`
	Permission string `json:"permission"`
	TTL        string `json:"ttl"`
}

// ShareResponse returns the minted token and its expiry.
type ShareResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}
