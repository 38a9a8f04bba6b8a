package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/acadchain-api/internal/models"
)

type stubConsentLister struct {
	consents []models.Consent
	err      error
}

func (s *stubConsentLister) ListByStudent(context.Context, *models.JWTClaims, string) ([]models.Consent, error) {
	return s.consents, s.err
}

type stubVerifier struct {
	result *models.VerifyResult
	err    error
}

func (s *stubVerifier) VerifyByHash(context.Context, *models.JWTClaims, string) (*models.VerifyResult, error) {
	return s.result, s.err
}

func TestExportServiceConsentAuditCSV(t *testing.T) {
	reason := "expired"
	revokedAt := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	lister := &stubConsentLister{consents: []models.Consent{
		{
			ConsentID:   "con-1",
			RequesterID: "req-1",
			Scope:       models.ScopeFullRecord,
			Status:      models.ConsentActive,
			GrantedAt:   time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
			Provenance:  models.ProvenanceOnChain,
		},
		{
			ConsentID:    "con-2",
			RequesterID:  "req-2",
			Scope:        models.ScopeSemester,
			Status:       models.ConsentRevoked,
			GrantedAt:    time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC),
			RevokedAt:    &revokedAt,
			RevokeReason: &reason,
			Provenance:   models.ProvenanceOffChain,
		},
	}}
	svc := NewExportService(lister, &stubVerifier{}, zap.NewNop())

	out, err := svc.ConsentAuditCSV(context.Background(), approvalClaims(models.RoleAdmin), "stu-1")

	require.NoError(t, err)
	csv := string(out)
	lines := strings.Split(strings.TrimSpace(csv), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "provenance")
	assert.Contains(t, csv, "ON_CHAIN")
	assert.Contains(t, csv, "OFF_CHAIN")
	assert.Contains(t, csv, "expired")
}

func TestExportServiceVerificationReceiptPDF(t *testing.T) {
	verifier := &stubVerifier{result: &models.VerifyResult{
		Hash:     "abc",
		Verified: true,
		Document: &models.Document{DocID: "doc-1", DocType: "TRANSCRIPT", Status: models.DocumentOnChain, Version: 2},
	}}
	svc := NewExportService(&stubConsentLister{}, verifier, zap.NewNop())

	out, err := svc.VerificationReceiptPDF(context.Background(), nil, "abc")

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "%PDF"))
}

func TestExportServiceVerificationReceiptNegativeLookup(t *testing.T) {
	verifier := &stubVerifier{result: &models.VerifyResult{Hash: "missing", Verified: false}}
	svc := NewExportService(&stubConsentLister{}, verifier, zap.NewNop())

	out, err := svc.VerificationReceiptPDF(context.Background(), nil, "missing")

	require.NoError(t, err)
	assert.NotEmpty(t, out)
}
