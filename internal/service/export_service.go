package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/acadchain-api/internal/models"
	appErrors "github.com/noah-isme/acadchain-api/pkg/errors"
	"github.com/noah-isme/acadchain-api/pkg/export"
)

type consentLister interface {
	ListByStudent(ctx context.Context, claims *models.JWTClaims, studentID string) ([]models.Consent, error)
}

type hashVerifier interface {
	VerifyByHash(ctx context.Context, claims *models.JWTClaims, hash string) (*models.VerifyResult, error)
}

// ExportService renders audit artifacts: consent audit trails as CSV and
// verification receipts as PDF.
type ExportService struct {
	consents consentLister
	verifier hashVerifier
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	logger   *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(consents consentLister, verifier hashVerifier, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		consents: consents,
		verifier: verifier,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		logger:   logger,
	}
}

// ConsentAuditCSV renders a student's full consent history, both stores, as
// CSV with provenance per row.
func (s *ExportService) ConsentAuditCSV(ctx context.Context, claims *models.JWTClaims, studentID string) ([]byte, error) {
	consents, err := s.consents.ListByStudent(ctx, claims, studentID)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{
		Headers: []string{"consent_id", "requester_id", "scope", "semester", "status", "granted_at", "revoked_at", "revoke_reason", "provenance"},
	}
	for _, c := range consents {
		row := map[string]string{
			"consent_id":   c.ConsentID,
			"requester_id": c.RequesterID,
			"scope":        string(c.Scope),
			"status":       string(c.Status),
			"granted_at":   c.GrantedAt.UTC().Format(time.RFC3339),
			"provenance":   string(c.Provenance),
		}
		if c.SemesterNumber != nil {
			row["semester"] = strconv.Itoa(*c.SemesterNumber)
		}
		if c.RevokedAt != nil {
			row["revoked_at"] = c.RevokedAt.UTC().Format(time.RFC3339)
		}
		if c.RevokeReason != nil {
			row["revoke_reason"] = *c.RevokeReason
		}
		dataset.Rows = append(dataset.Rows, row)
	}

	out, err := s.csv.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render consent audit csv")
	}
	return out, nil
}

// VerificationReceiptPDF performs a hash lookup and renders the outcome as a
// printable receipt. A negative lookup still yields a receipt.
func (s *ExportService) VerificationReceiptPDF(ctx context.Context, claims *models.JWTClaims, hash string) ([]byte, error) {
	result, err := s.verifier.VerifyByHash(ctx, claims, hash)
	if err != nil {
		return nil, err
	}

	row := map[string]string{
		"field": "content hash",
		"value": result.Hash,
	}
	rows := []map[string]string{
		row,
		{"field": "verified", "value": fmt.Sprintf("%t", result.Verified)},
		{"field": "checked at", "value": time.Now().UTC().Format(time.RFC3339)},
	}
	if result.Document != nil {
		rows = append(rows,
			map[string]string{"field": "document id", "value": result.Document.DocID},
			map[string]string{"field": "document type", "value": result.Document.DocType},
			map[string]string{"field": "status", "value": string(result.Document.Status)},
			map[string]string{"field": "version", "value": strconv.Itoa(result.Document.Version)},
		)
	}

	out, err := s.pdf.Render(export.Dataset{Headers: []string{"field", "value"}, Rows: rows}, "Document Verification Receipt")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render verification receipt")
	}
	return out, nil
}
