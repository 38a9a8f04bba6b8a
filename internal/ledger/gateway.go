package ledger

import "context"

// Chaincode functions consumed by the lifecycle engine. Every name is a
// deployed chaincode function; absence of a function is signalled as
// COMMAND_NOT_FOUND and handled by callers, not treated as fatal.
const (
	CmdSubmitForApproval    = "SubmitForApproval"
	CmdFacultyApprove       = "FacultyApprove"
	CmdHODApprove           = "HODApprove"
	CmdDACApprove           = "DACApprove"
	CmdExamSectionApprove   = "ExamSectionApprove"
	CmdDeanAcademicApprove  = "DeanAcademicApprove"
	CmdRejectRecord         = "RejectRecord"
	CmdGetApprovalStatus    = "GetApprovalStatus"
	CmdQueryRecordsByStatus = "QueryRecordsByStatus"

	CmdUploadDocument        = "UploadDocument"
	CmdUpdateDocumentStatus  = "UpdateDocumentStatus"
	CmdGetDocument           = "GetDocument"
	CmdGetDocumentsByStudent = "GetDocumentsByStudent"
	CmdVerifyDocumentByHash  = "VerifyDocumentByHash"

	CmdGrantConsent         = "GrantConsent"
	CmdRevokeConsent        = "RevokeConsent"
	CmdGetConsentsByStudent = "GetConsentsByStudent"
	CmdCheckConsent         = "CheckConsent"
)

// Identity is the acting identity a connection is scoped to.
type Identity struct {
	ID    string `json:"id"`
	MSPID string `json:"msp_id"`
	Role  string `json:"role"`
}

// Key returns the pool key for the identity.
func (id Identity) Key() string {
	return id.MSPID + "/" + id.ID
}

// Result is the outcome of an executed chaincode function.
type Result struct {
	TxID    string `json:"tx_id"`
	Payload []byte `json:"payload"`
}

// Conn executes chaincode functions over one scoped ledger session.
// Evaluate is read-only; Submit blocks until the network confirms the
// transaction. Both re-validate state chaincode-side, so a stale read earlier
// in the request never bypasses the ledger's own checks.
type Conn interface {
	Evaluate(ctx context.Context, fn string, args ...string) (*Result, error)
	Submit(ctx context.Context, fn string, args ...string) (*Result, error)
	SubmitWithPrivateData(ctx context.Context, fn string, transient map[string][]byte, args ...string) (*Result, error)
}

// Connector opens a session for an acting identity. *Client implements it;
// tests substitute stubs.
type Connector interface {
	Connect(ctx context.Context, identity Identity) (*Connection, error)
}
