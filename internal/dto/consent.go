package dto

import "github.com/noah-isme/acadchain-api/internal/models"

// GrantConsentRequest grants a requester access to a student's records.
// SemesterNumber is required when scope is SEMESTER.
type GrantConsentRequest struct {
	StudentID      string              `json:"student_id" validate:"required"`
	RequesterID    string              `json:"requester_id" validate:"required"`
	Scope          models.ConsentScope `json:"scope" validate:"required"`
	SemesterNumber *int                `json:"semester_number,omitempty"`
}

// RevokeConsentRequest revokes a consent with a reason.
type RevokeConsentRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// ConsentResult reports a committed consent transition, with provenance
// exposed so auditors can tell on-chain entries from fallback entries.
type ConsentResult struct {
	Consent *models.Consent `json:"consent"`
	OnChain bool            `json:"onChain"`
	TxID    string          `json:"txId,omitempty"`
}
