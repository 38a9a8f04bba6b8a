package models

import "time"

// RecordStatus is the approval stage of an academic record.
type RecordStatus string

const (
	RecordDraft           RecordStatus = "DRAFT"
	RecordSubmitted       RecordStatus = "SUBMITTED"
	RecordFacultyApproved RecordStatus = "FACULTY_APPROVED"
	RecordHODApproved     RecordStatus = "HOD_APPROVED"
	RecordDACApproved     RecordStatus = "DAC_APPROVED"
	RecordESApproved      RecordStatus = "ES_APPROVED"
	RecordApproved        RecordStatus = "APPROVED"
)

// recordStageOrder is the canonical forward order of the approval chain.
var recordStageOrder = []RecordStatus{
	RecordDraft,
	RecordSubmitted,
	RecordFacultyApproved,
	RecordHODApproved,
	RecordDACApproved,
	RecordESApproved,
	RecordApproved,
}

// ApprovalTransition captures the requirements for moving a record into a
// target stage: the stage it must currently sit in and the role allowed to
// perform the move. ADMIN passes every role gate.
type ApprovalTransition struct {
	From RecordStatus
	Role UserRole
}

var approvalTransitions = map[RecordStatus]ApprovalTransition{
	RecordSubmitted:       {From: RecordDraft, Role: RoleStudent},
	RecordFacultyApproved: {From: RecordSubmitted, Role: RoleFaculty},
	RecordHODApproved:     {From: RecordFacultyApproved, Role: RoleHOD},
	RecordDACApproved:     {From: RecordHODApproved, Role: RoleDAC},
	RecordESApproved:      {From: RecordDACApproved, Role: RoleExamSection},
	RecordApproved:        {From: RecordESApproved, Role: RoleDeanAcademic},
}

// TransitionTo returns the requirements for reaching the target stage.
func TransitionTo(target RecordStatus) (ApprovalTransition, bool) {
	t, ok := approvalTransitions[target]
	return t, ok
}

// StageIndex returns the position of a stage in the canonical order, or -1.
func StageIndex(s RecordStatus) int {
	for i, stage := range recordStageOrder {
		if stage == s {
			return i
		}
	}
	return -1
}

// ValidRecordStatus reports whether s names a known stage.
func ValidRecordStatus(s RecordStatus) bool {
	return StageIndex(s) >= 0
}

// Rejectable reports whether reject is callable from the stage. Reject is
// available from any non-terminal stage past DRAFT and always resets to DRAFT.
func (s RecordStatus) Rejectable() bool {
	idx := StageIndex(s)
	return idx > StageIndex(RecordDraft) && idx < StageIndex(RecordApproved)
}

// ApprovalStep is one accepted entry of the approval chain. Steps are
// immutable once appended; TxID ties the step to the ledger transaction that
// committed it.
type ApprovalStep struct {
	Role       UserRole     `json:"role"`
	Stage      RecordStatus `json:"stage"`
	ApprovedBy string       `json:"approvedBy"`
	Timestamp  time.Time    `json:"timestamp"`
	Comment    string       `json:"comment,omitempty"`
	TxID       string       `json:"txId"`
}

// AcademicRecord mirrors the ledger's record asset.
type AcademicRecord struct {
	RecordID      string         `json:"recordId"`
	StudentID     string         `json:"studentId"`
	Semester      int            `json:"semester"`
	SGPA          float64        `json:"sgpa"`
	CGPA          float64        `json:"cgpa"`
	Status        RecordStatus   `json:"status"`
	ApprovalChain []ApprovalStep `json:"approvalChain"`
}

// EmptyApprovalStatus synthesizes the scaffold returned when no approval
// metadata exists on the ledger yet: DRAFT with an empty chain.
func EmptyApprovalStatus(recordID string) *AcademicRecord {
	return &AcademicRecord{
		RecordID:      recordID,
		Status:        RecordDraft,
		ApprovalChain: []ApprovalStep{},
	}
}

// RecordQueue is the dashboard-facing per-stage listing result.
type RecordQueue struct {
	Status  RecordStatus     `json:"status"`
	Records []AcademicRecord `json:"records"`
	Count   int              `json:"count"`
}
