package dto

import "github.com/noah-isme/acadchain-api/internal/models"

// UploadDocumentRequest creates a document. Content is base64 in JSON.
type UploadDocumentRequest struct {
	StudentID    string `json:"student_id" validate:"required"`
	DocType      string `json:"doc_type" validate:"required"`
	OriginalName string `json:"original_name" validate:"required"`
	AcademicYear string `json:"academic_year" validate:"required"`
	Semester     int    `json:"semester" validate:"required,min=1"`
	Content      []byte `json:"content" validate:"required"`
}

// UpdateDocumentStatusRequest moves a document through the pipeline.
type UpdateDocumentStatusRequest struct {
	Status models.DocumentStatus `json:"status" validate:"required"`
}

// NewVersionRequest supersedes a document with replacement content.
type NewVersionRequest struct {
	OriginalName string `json:"original_name" validate:"required"`
	Content      []byte `json:"content" validate:"required"`
}

// VerifyRequest is the POST body form of hash verification.
type VerifyRequest struct {
	Hash string `json:"hash" validate:"required"`
}
