package models

import "time"

// ConsentScope limits what a granted consent exposes.
type ConsentScope string

const (
	ScopeSemester   ConsentScope = "SEMESTER"
	ScopeFullRecord ConsentScope = "FULL_RECORD"
)

// ValidConsentScope reports whether s names a known scope.
func ValidConsentScope(s ConsentScope) bool {
	return s == ScopeSemester || s == ScopeFullRecord
}

// ConsentStatus is the consent lifecycle state. REVOKED is terminal.
type ConsentStatus string

const (
	ConsentActive  ConsentStatus = "ACTIVE"
	ConsentRevoked ConsentStatus = "REVOKED"
)

// Provenance records which store committed a consent, so auditors can
// distinguish on-chain entries from fallback-store entries.
type Provenance string

const (
	ProvenanceOnChain  Provenance = "ON_CHAIN"
	ProvenanceOffChain Provenance = "OFF_CHAIN"
)

// Consent grants a requester access to a student's records within a scope.
// SemesterNumber is bound only for SEMESTER scope.
type Consent struct {
	ConsentID      string        `db:"consent_id" json:"consentId"`
	StudentID      string        `db:"student_id" json:"studentId"`
	RequesterID    string        `db:"requester_id" json:"requesterId"`
	Scope          ConsentScope  `db:"scope" json:"scope"`
	SemesterNumber *int          `db:"semester_number" json:"semesterNumber,omitempty"`
	Status         ConsentStatus `db:"status" json:"status"`
	GrantedAt      time.Time     `db:"granted_at" json:"grantedAt"`
	RevokedAt      *time.Time    `db:"revoked_at" json:"revokedAt,omitempty"`
	RevokeReason   *string       `db:"revoke_reason" json:"revokeReason,omitempty"`
	Provenance     Provenance    `db:"-" json:"-"`
}

// OnChain reports whether the consent was committed to the ledger.
func (c *Consent) OnChain() bool {
	return c.Provenance == ProvenanceOnChain
}

// ConsentCheck is the public-verifier read result. Consent is nil when no
// active consent matches.
type ConsentCheck struct {
	HasConsent bool     `json:"hasConsent"`
	Consent    *Consent `json:"consent"`
}
