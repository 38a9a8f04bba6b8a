package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/acadchain-api/internal/ledger"
	"github.com/noah-isme/acadchain-api/internal/models"
	appErrors "github.com/noah-isme/acadchain-api/pkg/errors"
)

type stubConn struct {
	evaluateFn func(fn string, args ...string) (*ledger.Result, error)
	submitFn   func(fn string, args ...string) (*ledger.Result, error)
	calls      []string
}

func (c *stubConn) Evaluate(_ context.Context, fn string, args ...string) (*ledger.Result, error) {
	c.calls = append(c.calls, fn)
	if c.evaluateFn != nil {
		return c.evaluateFn(fn, args...)
	}
	return &ledger.Result{Payload: []byte("{}")}, nil
}

func (c *stubConn) Submit(_ context.Context, fn string, args ...string) (*ledger.Result, error) {
	c.calls = append(c.calls, fn)
	if c.submitFn != nil {
		return c.submitFn(fn, args...)
	}
	return &ledger.Result{TxID: "tx-1"}, nil
}

func (c *stubConn) SubmitWithPrivateData(ctx context.Context, fn string, _ map[string][]byte, args ...string) (*ledger.Result, error) {
	return c.Submit(ctx, fn, args...)
}

type stubGateway struct {
	conn       *stubConn
	err        error
	identities []ledger.Identity
}

func (g *stubGateway) WithConnection(_ context.Context, identity ledger.Identity, fn func(ledger.Conn) error) error {
	g.identities = append(g.identities, identity)
	if g.err != nil {
		return g.err
	}
	return fn(g.conn)
}

type capturedNotifier struct {
	events []models.TransitionEvent
}

func (n *capturedNotifier) NotifyTransition(event models.TransitionEvent) {
	n.events = append(n.events, event)
}

type capturedAudit struct {
	logs []*models.AuditLog
	err  error
}

func (a *capturedAudit) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return a.err
}

func approvalClaims(role models.UserRole) *models.JWTClaims {
	return &models.JWTClaims{UserID: "user-1", Role: role}
}

func newApprovalService(gateway *stubGateway, notifier *capturedNotifier, audit *capturedAudit) *ApprovalService {
	return NewApprovalService(gateway, notifier, audit, validator.New(), zap.NewNop(), ApprovalServiceConfig{MSPID: "UniversityMSP"})
}

func TestApprovalServiceApprove(t *testing.T) {
	conn := &stubConn{}
	gateway := &stubGateway{conn: conn}
	notifier := &capturedNotifier{}
	audit := &capturedAudit{}
	svc := newApprovalService(gateway, notifier, audit)

	result, err := svc.Approve(context.Background(), approvalClaims(models.RoleFaculty), "rec-1", models.RecordFacultyApproved, "looks good")

	require.NoError(t, err)
	assert.Equal(t, "rec-1", result.RecordID)
	assert.Equal(t, models.RecordFacultyApproved, result.Status)
	assert.Equal(t, "tx-1", result.TxID)
	assert.Equal(t, []string{ledger.CmdFacultyApprove}, conn.calls)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, "record", notifier.events[0].Kind)
	assert.Equal(t, string(models.RecordSubmitted), notifier.events[0].From)
	assert.Equal(t, string(models.RecordFacultyApproved), notifier.events[0].To)

	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionTransition, audit.logs[0].Action)

	require.Len(t, gateway.identities, 1)
	assert.Equal(t, "user-1", gateway.identities[0].ID)
	assert.Equal(t, "UniversityMSP", gateway.identities[0].MSPID)
}

func TestApprovalServiceApproveRoleGate(t *testing.T) {
	conn := &stubConn{}
	gateway := &stubGateway{conn: conn}
	svc := newApprovalService(gateway, &capturedNotifier{}, &capturedAudit{})

	_, err := svc.Approve(context.Background(), approvalClaims(models.RoleStudent), "rec-1", models.RecordFacultyApproved, "")

	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
	assert.Empty(t, conn.calls)
}

func TestApprovalServiceApproveAdminOverride(t *testing.T) {
	conn := &stubConn{}
	gateway := &stubGateway{conn: conn}
	svc := newApprovalService(gateway, &capturedNotifier{}, &capturedAudit{})

	_, err := svc.Approve(context.Background(), approvalClaims(models.RoleAdmin), "rec-1", models.RecordHODApproved, "")

	require.NoError(t, err)
	assert.Equal(t, []string{ledger.CmdHODApprove}, conn.calls)
}

func TestApprovalServiceApproveRejectedBecomesInvalidTransition(t *testing.T) {
	conn := &stubConn{
		submitFn: func(string, ...string) (*ledger.Result, error) {
			return nil, appErrors.Clone(appErrors.ErrCommandRejected, "record rec-1 is in DRAFT")
		},
	}
	gateway := &stubGateway{conn: conn}
	svc := newApprovalService(gateway, &capturedNotifier{}, &capturedAudit{})

	_, err := svc.Approve(context.Background(), approvalClaims(models.RoleHOD), "rec-1", models.RecordHODApproved, "")

	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))
}

func TestApprovalServiceApproveInvalidTarget(t *testing.T) {
	svc := newApprovalService(&stubGateway{conn: &stubConn{}}, &capturedNotifier{}, &capturedAudit{})

	_, err := svc.Approve(context.Background(), approvalClaims(models.RoleFaculty), "rec-1", models.RecordDraft, "")

	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestApprovalServiceReject(t *testing.T) {
	conn := &stubConn{}
	gateway := &stubGateway{conn: conn}
	notifier := &capturedNotifier{}
	svc := newApprovalService(gateway, notifier, &capturedAudit{})

	result, err := svc.Reject(context.Background(), approvalClaims(models.RoleDAC), "rec-1", "grade mismatch")

	require.NoError(t, err)
	assert.Equal(t, models.RecordDraft, result.Status)
	assert.Equal(t, []string{ledger.CmdRejectRecord}, conn.calls)
	require.Len(t, notifier.events, 1)
	assert.Equal(t, "grade mismatch", notifier.events[0].Comment)
}

func TestApprovalServiceRejectRequiresReason(t *testing.T) {
	svc := newApprovalService(&stubGateway{conn: &stubConn{}}, &capturedNotifier{}, &capturedAudit{})

	_, err := svc.Reject(context.Background(), approvalClaims(models.RoleDAC), "rec-1", "   ")

	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestApprovalServiceRejectStudentForbidden(t *testing.T) {
	svc := newApprovalService(&stubGateway{conn: &stubConn{}}, &capturedNotifier{}, &capturedAudit{})

	_, err := svc.Reject(context.Background(), approvalClaims(models.RoleStudent), "rec-1", "why not")

	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestApprovalServiceStatus(t *testing.T) {
	record := models.AcademicRecord{
		RecordID: "rec-1",
		Status:   models.RecordHODApproved,
		ApprovalChain: []models.ApprovalStep{
			{Role: models.RoleFaculty, Stage: models.RecordFacultyApproved},
			{Role: models.RoleHOD, Stage: models.RecordHODApproved},
		},
	}
	payload, err := json.Marshal(record)
	require.NoError(t, err)

	conn := &stubConn{
		evaluateFn: func(string, ...string) (*ledger.Result, error) {
			return &ledger.Result{Payload: payload}, nil
		},
	}
	svc := newApprovalService(&stubGateway{conn: conn}, &capturedNotifier{}, &capturedAudit{})

	got, err := svc.Status(context.Background(), approvalClaims(models.RoleFaculty), "rec-1")

	require.NoError(t, err)
	assert.Equal(t, models.RecordHODApproved, got.Status)
	assert.Len(t, got.ApprovalChain, 2)
}

func TestApprovalServiceStatusDegradesToScaffold(t *testing.T) {
	gateway := &stubGateway{err: appErrors.Clone(appErrors.ErrLedgerUnavailable, "")}
	svc := newApprovalService(gateway, &capturedNotifier{}, &capturedAudit{})

	got, err := svc.Status(context.Background(), approvalClaims(models.RoleFaculty), "rec-1")

	require.NoError(t, err)
	assert.Equal(t, "rec-1", got.RecordID)
	assert.Equal(t, models.RecordDraft, got.Status)
	assert.Empty(t, got.ApprovalChain)
	assert.NotNil(t, got.ApprovalChain)
}

func TestApprovalServiceQueue(t *testing.T) {
	records := []models.AcademicRecord{{RecordID: "rec-1", Status: models.RecordSubmitted}}
	payload, err := json.Marshal(records)
	require.NoError(t, err)

	conn := &stubConn{
		evaluateFn: func(string, ...string) (*ledger.Result, error) {
			return &ledger.Result{Payload: payload}, nil
		},
	}
	svc := newApprovalService(&stubGateway{conn: conn}, &capturedNotifier{}, &capturedAudit{})

	queue, err := svc.Queue(context.Background(), approvalClaims(models.RoleFaculty), models.RecordSubmitted, 10)

	require.NoError(t, err)
	assert.Equal(t, 1, queue.Count)
	assert.Equal(t, "rec-1", queue.Records[0].RecordID)
}

func TestApprovalServiceQueueDegradesToEmpty(t *testing.T) {
	gateway := &stubGateway{err: appErrors.Clone(appErrors.ErrLedgerUnavailable, "")}
	svc := newApprovalService(gateway, &capturedNotifier{}, &capturedAudit{})

	queue, err := svc.Queue(context.Background(), approvalClaims(models.RoleFaculty), models.RecordSubmitted, 10)

	require.NoError(t, err)
	assert.Equal(t, 0, queue.Count)
	assert.NotNil(t, queue.Records)
}

func TestApprovalServiceQueueInvalidStatus(t *testing.T) {
	svc := newApprovalService(&stubGateway{conn: &stubConn{}}, &capturedNotifier{}, &capturedAudit{})

	_, err := svc.Queue(context.Background(), approvalClaims(models.RoleFaculty), models.RecordStatus("SHIPPED"), 10)

	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}
