package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "DocuVault API",
        "description": "Document lifecycle management: versioned content, metadata, e-signatures, audit trail and question answering.",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Documents", "description": "Document lifecycle and content versions"},
        {"name": "Signatures", "description": "E-signature workflow"},
        {"name": "Shares", "description": "Capability-style share links"},
        {"name": "Chat", "description": "Natural-language questions over the corpus"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check with per-dependency state",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Degraded"}
                }
            }
        },
        "/api/v1/documents/upload": {
            "post": {
                "tags": ["Documents"],
                "summary": "Upload a new document",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "file", "in": "formData", "type": "file", "required": true},
                    {"name": "X-User-ID", "in": "header", "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Missing file"}
                }
            }
        },
        "/api/v1/documents": {
            "get": {
                "tags": ["Documents"],
                "summary": "List document summaries",
                "parameters": [
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/documents/{id}": {
            "get": {
                "tags": ["Documents"],
                "summary": "Get one document with signatures and audit trail",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown document"}
                }
            },
            "put": {
                "tags": ["Documents"],
                "summary": "Replace content with a new version",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "file", "in": "formData", "type": "file", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Missing file"},
                    "404": {"description": "Unknown document"}
                }
            }
        },
        "/api/v1/documents/{id}/metadata": {
            "patch": {
                "tags": ["Documents"],
                "summary": "Edit descriptive metadata",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateMetadataRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/documents/{id}/audit": {
            "get": {
                "tags": ["Documents"],
                "summary": "List audit entries in append order",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/documents/{id}/audit/export": {
            "get": {
                "tags": ["Documents"],
                "summary": "Export the audit trail as CSV or PDF",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File"}
                }
            }
        },
        "/api/v1/documents/{id}/download-url": {
            "get": {
                "tags": ["Documents"],
                "summary": "Mint a signed, expiring download link",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/documents/{id}/download": {
            "get": {
                "tags": ["Documents"],
                "summary": "Stream content for a valid signed link",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "token", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Content bytes"},
                    "403": {"description": "Invalid or expired link"}
                }
            }
        },
        "/api/v1/documents/{id}/signatures": {
            "post": {
                "tags": ["Signatures"],
                "summary": "Request a signature from one signer",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RequestSignatureRequest"}}
                ],
                "responses": {
                    "201": {"description": "Pending signature", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/documents/{id}/signatures/{sid}/complete": {
            "post": {
                "tags": ["Signatures"],
                "summary": "Complete a pending signature",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "sid", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CompleteSignatureRequest"}}
                ],
                "responses": {
                    "200": {"description": "Completed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Signature no longer pending"}
                }
            }
        },
        "/api/v1/documents/{id}/signatures/{sid}/reject": {
            "post": {
                "tags": ["Signatures"],
                "summary": "Reject a pending signature",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "sid", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RejectSignatureRequest"}}
                ],
                "responses": {
                    "200": {"description": "Rejected", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Signature no longer pending"}
                }
            }
        },
        "/api/v1/documents/{id}/share": {
            "post": {
                "tags": ["Shares"],
                "summary": "Mint a share token for one document",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateShareRequest"}}
                ],
                "responses": {
                    "201": {"description": "Share token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/documents/{id}/shared": {
            "get": {
                "tags": ["Shares"],
                "summary": "Access a shared document with a token",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "token", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Invalid or expired token"}
                }
            }
        },
        "/api/v1/chat": {
            "post": {
                "tags": ["Chat"],
                "summary": "Ask a question about the document corpus",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/QuestionRequest"}}
                ],
                "responses": {
                    "200": {"description": "Answer", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Answering backend unreachable"}
                }
            }
        }
    },
    "definitions": {
        "UpdateMetadataRequest": {
            "type": "object",
            "properties": {
                "description": {"type": "string"},
                "tags": {"type": "array", "items": {"type": "string"}}
            }
        },
        "RequestSignatureRequest": {
            "type": "object",
            "required": ["signerId"],
            "properties": {
                "signerId": {"type": "string"}
            }
        },
        "CompleteSignatureRequest": {
            "type": "object",
            "required": ["signerId"],
            "properties": {
                "signerId": {"type": "string"},
                "signatureImagePath": {"type": "string"}
            }
        },
        "RejectSignatureRequest": {
            "type": "object",
            "required": ["details"],
            "properties": {
                "details": {"type": "string"}
            }
        },
        "CreateShareRequest": {
            "type": "object",
            "required": ["sharedWith"],
            "properties": {
                "sharedWith": {"type": "string"},
                "permission": {"type": "string", "enum": ["READ", "SIGN"]},
                "ttl": {"type": "string"}
            }
        },
        "QuestionRequest": {
            "type": "object",
            "required": ["question"],
            "properties": {
                "question": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "pageSize": {"type": "integer"},
                "totalCount": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
