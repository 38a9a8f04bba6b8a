package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "AcadChain API",
        "description": "Ledger-anchored academic record lifecycle engine",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login, token refresh and session management"},
        {"name": "Records", "description": "Multi-party record approval chain"},
        {"name": "Documents", "description": "Document pipeline, versioning and verification"},
        {"name": "Consents", "description": "Third-party access consents"},
        {"name": "Notifications", "description": "In-app transition notifications"},
        {"name": "Exports", "description": "Downloadable audit artifacts"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Revoke refresh token",
                "responses": {
                    "204": {"description": "Logged out"}
                }
            }
        },
        "/auth/password": {
            "put": {
                "tags": ["Authentication"],
                "summary": "Change password",
                "responses": {
                    "204": {"description": "Changed"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current authenticated user",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/records/submit/{id}": {
            "post": {
                "tags": ["Records"],
                "summary": "Submit a record for approval",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/TransitionResult"}},
                    "409": {"description": "Invalid transition"}
                }
            }
        },
        "/records/faculty/{id}": {
            "post": {
                "tags": ["Records"],
                "summary": "Faculty approval",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/TransitionResult"}}
                }
            }
        },
        "/records/hod/{id}": {
            "post": {
                "tags": ["Records"],
                "summary": "HOD approval",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/TransitionResult"}}
                }
            }
        },
        "/records/dac/{id}": {
            "post": {
                "tags": ["Records"],
                "summary": "DAC approval",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/TransitionResult"}}
                }
            }
        },
        "/records/exam-section/{id}": {
            "post": {
                "tags": ["Records"],
                "summary": "Exam section approval",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/TransitionResult"}}
                }
            }
        },
        "/records/dean/{id}": {
            "post": {
                "tags": ["Records"],
                "summary": "Final dean academic approval",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/TransitionResult"}}
                }
            }
        },
        "/records/reject/{id}": {
            "post": {
                "tags": ["Records"],
                "summary": "Reject a record back to DRAFT",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RejectRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/TransitionResult"}}
                }
            }
        },
        "/records/status/{id}": {
            "get": {
                "tags": ["Records"],
                "summary": "Approval status of a record",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/AcademicRecord"}}
                }
            }
        },
        "/records/queue/{status}": {
            "get": {
                "tags": ["Records"],
                "summary": "Records sitting in one approval stage",
                "parameters": [
                    {"name": "status", "in": "path", "required": true, "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/documents/upload": {
            "post": {
                "tags": ["Documents"],
                "summary": "Upload a document",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UploadDocumentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/Document"}}
                }
            }
        },
        "/documents/status/{id}": {
            "put": {
                "tags": ["Documents"],
                "summary": "Move a document through the review pipeline",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Document"}},
                    "409": {"description": "Invalid transition"}
                }
            }
        },
        "/documents/version/{id}": {
            "post": {
                "tags": ["Documents"],
                "summary": "Create a new version of a document",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/Document"}}
                }
            }
        },
        "/documents/versions/{id}": {
            "get": {
                "tags": ["Documents"],
                "summary": "Archived versions of a document",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/documents/student/{studentId}": {
            "get": {
                "tags": ["Documents"],
                "summary": "Documents owned by a student",
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/documents/verify": {
            "post": {
                "tags": ["Documents"],
                "summary": "Verify a document by content hash",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/VerifyResult"}}
                }
            }
        },
        "/documents/verify/{hash}": {
            "get": {
                "tags": ["Documents"],
                "summary": "Verify a document by content hash (public)",
                "parameters": [
                    {"name": "hash", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/VerifyResult"}}
                }
            }
        },
        "/consents/grant": {
            "post": {
                "tags": ["Consents"],
                "summary": "Grant a third-party consent",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GrantConsentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ConsentResult"}},
                    "409": {"description": "Active consent already exists"}
                }
            }
        },
        "/consents/revoke/{id}": {
            "post": {
                "tags": ["Consents"],
                "summary": "Revoke an active consent",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ConsentResult"}},
                    "404": {"description": "No active consent"}
                }
            }
        },
        "/consents/student/{studentId}": {
            "get": {
                "tags": ["Consents"],
                "summary": "Consents for a student, both stores merged",
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/consents/check/{studentId}/{requesterId}": {
            "get": {
                "tags": ["Consents"],
                "summary": "Check whether an active consent exists (public)",
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"},
                    {"name": "requesterId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ConsentCheck"}}
                }
            }
        },
        "/notifications": {
            "get": {
                "tags": ["Notifications"],
                "summary": "List the current user's notifications",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/notifications/{id}/read": {
            "put": {
                "tags": ["Notifications"],
                "summary": "Mark a notification as read",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Marked"}
                }
            }
        },
        "/exports/consents/{studentId}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Consent audit trail as CSV",
                "produces": ["text/csv"],
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "CSV file"}
                }
            }
        },
        "/exports/verification/{hash}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Verification receipt as PDF",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "hash", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "PDF file"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "RejectRequest": {
            "type": "object",
            "properties": {
                "reason": {"type": "string"}
            }
        },
        "TransitionResult": {
            "type": "object",
            "properties": {
                "recordId": {"type": "string"},
                "status": {"type": "string"},
                "txId": {"type": "string"}
            }
        },
        "AcademicRecord": {
            "type": "object",
            "properties": {
                "recordId": {"type": "string"},
                "studentId": {"type": "string"},
                "semester": {"type": "integer"},
                "sgpa": {"type": "number"},
                "cgpa": {"type": "number"},
                "status": {"type": "string"},
                "approvalChain": {"type": "array", "items": {"type": "object"}}
            }
        },
        "UploadDocumentRequest": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"},
                "doc_type": {"type": "string"},
                "original_name": {"type": "string"},
                "academic_year": {"type": "string"},
                "semester": {"type": "integer"},
                "content": {"type": "string", "format": "byte"}
            }
        },
        "Document": {
            "type": "object",
            "properties": {
                "docId": {"type": "string"},
                "studentId": {"type": "string"},
                "docType": {"type": "string"},
                "hash": {"type": "string"},
                "locator": {"type": "string"},
                "status": {"type": "string"},
                "version": {"type": "integer"}
            }
        },
        "VerifyResult": {
            "type": "object",
            "properties": {
                "hash": {"type": "string"},
                "verified": {"type": "boolean"},
                "document": {"$ref": "#/definitions/Document"}
            }
        },
        "GrantConsentRequest": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"},
                "requester_id": {"type": "string"},
                "scope": {"type": "string"},
                "semester_number": {"type": "integer"}
            }
        },
        "ConsentResult": {
            "type": "object",
            "properties": {
                "consent": {"type": "object"},
                "onChain": {"type": "boolean"},
                "txId": {"type": "string"}
            }
        },
        "ConsentCheck": {
            "type": "object",
            "properties": {
                "hasConsent": {"type": "boolean"},
                "consent": {"type": "object"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
