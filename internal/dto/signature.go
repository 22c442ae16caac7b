package dto

// RequestSignatureRequest opens a pending signature for one signer.
type RequestSignatureRequest struct {
	SignerID string `json:"signerId" binding:"required"`
}

// CompleteSignatureRequest finalises a pending signature.
type CompleteSignatureRequest struct {
	SignerID       string  `json:"signerId" binding:"required"`
	SignatureImage *string `json:"signatureImagePath"`
}

// RejectSignatureRequest declines a pending signature with a reason.
type RejectSignatureRequest struct {
	Details string `json:"details" binding:"required"`
}
