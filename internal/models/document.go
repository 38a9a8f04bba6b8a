package models

import "time"

// DocumentStatus is the pipeline state of a document.
type DocumentStatus string

const (
	DocumentUploaded      DocumentStatus = "UPLOADED"
	DocumentUnderReview   DocumentStatus = "UNDER_REVIEW"
	DocumentAuthenticated DocumentStatus = "AUTHENTICATED"
	DocumentApproved      DocumentStatus = "APPROVED"
	DocumentOnChain       DocumentStatus = "ON_CHAIN"
)

// documentTransitions is the closed allowed-set table. UNDER_REVIEW may send
// a document back to UPLOADED; ON_CHAIN is terminal.
var documentTransitions = map[DocumentStatus][]DocumentStatus{
	DocumentUploaded:      {DocumentUnderReview},
	DocumentUnderReview:   {DocumentAuthenticated, DocumentUploaded},
	DocumentAuthenticated: {DocumentApproved},
	DocumentApproved:      {DocumentOnChain},
	DocumentOnChain:       {},
}

// AllowedNext returns the statuses reachable from the current one.
func AllowedNext(from DocumentStatus) []DocumentStatus {
	return documentTransitions[from]
}

// CanTransition reports whether from→to is in the allowed-set table.
func CanTransition(from, to DocumentStatus) bool {
	for _, next := range documentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidDocumentStatus reports whether s names a known pipeline state.
func ValidDocumentStatus(s DocumentStatus) bool {
	_, ok := documentTransitions[s]
	return ok
}

// Document mirrors the ledger's document asset. Version increases
// monotonically across the version side-process; the hash and locator address
// the document content in the blob store.
type Document struct {
	DocID        string         `json:"docId"`
	StudentID    string         `json:"studentId"`
	DocType      string         `json:"docType"`
	Hash         string         `json:"hash"`
	Locator      string         `json:"locator"`
	OriginalName string         `json:"originalName"`
	AcademicYear string         `json:"academicYear"`
	Semester     int            `json:"semester"`
	Status       DocumentStatus `json:"status"`
	Version      int            `json:"version"`
	UploadedAt   time.Time      `json:"uploadedAt"`
}

// DocumentArchive is the immutable side-record created when a document is
// superseded by a new version. Snapshot holds the full prior record verbatim.
type DocumentArchive struct {
	ID         string         `db:"id" json:"id"`
	DocID      string         `db:"doc_id" json:"doc_id"`
	Version    int            `db:"version" json:"version"`
	Snapshot   []byte         `db:"snapshot" json:"snapshot"`
	Status     DocumentStatus `db:"status" json:"status"`
	ArchivedBy string         `db:"archived_by" json:"archived_by"`
	ArchivedAt time.Time      `db:"archived_at" json:"archived_at"`
}

// VerifyResult reports a hash lookup against the ledger. Absence is a valid
// outcome, not an error.
type VerifyResult struct {
	Hash     string    `json:"hash"`
	Verified bool      `json:"verified"`
	Document *Document `json:"document,omitempty"`
}
