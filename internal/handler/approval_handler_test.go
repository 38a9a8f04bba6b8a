package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/acadchain-api/internal/ledger"
	"github.com/noah-isme/acadchain-api/internal/middleware"
	"github.com/noah-isme/acadchain-api/internal/models"
	"github.com/noah-isme/acadchain-api/internal/service"
	appErrors "github.com/noah-isme/acadchain-api/pkg/errors"
)

type fakeConn struct {
	evaluateFn func(fn string, args ...string) (*ledger.Result, error)
	submitFn   func(fn string, args ...string) (*ledger.Result, error)
}

func (c *fakeConn) Evaluate(_ context.Context, fn string, args ...string) (*ledger.Result, error) {
	if c.evaluateFn != nil {
		return c.evaluateFn(fn, args...)
	}
	return &ledger.Result{Payload: []byte("{}")}, nil
}

func (c *fakeConn) Submit(_ context.Context, fn string, args ...string) (*ledger.Result, error) {
	if c.submitFn != nil {
		return c.submitFn(fn, args...)
	}
	return &ledger.Result{TxID: "tx-1"}, nil
}

func (c *fakeConn) SubmitWithPrivateData(ctx context.Context, fn string, _ map[string][]byte, args ...string) (*ledger.Result, error) {
	return c.Submit(ctx, fn, args...)
}

type fakeGateway struct {
	conn *fakeConn
	err  error
}

func (g *fakeGateway) WithConnection(_ context.Context, _ ledger.Identity, fn func(ledger.Conn) error) error {
	if g.err != nil {
		return g.err
	}
	return fn(g.conn)
}

func newApprovalHandler(gateway *fakeGateway) *ApprovalHandler {
	svc := service.NewApprovalService(gateway, nil, nil, nil, zap.NewNop(), service.ApprovalServiceConfig{MSPID: "UniversityMSP"})
	return NewApprovalHandler(svc)
}

func testContext(t *testing.T, method, target, body string, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	c.Request = httptest.NewRequest(method, target, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, rec
}

func TestApprovalHandlerFacultyApprove(t *testing.T) {
	handler := newApprovalHandler(&fakeGateway{conn: &fakeConn{}})
	c, rec := testContext(t, http.MethodPost, "/records/faculty/rec-1", `{"comment":"ok"}`, &models.JWTClaims{UserID: "u1", Role: models.RoleFaculty})
	c.Params = gin.Params{{Key: "id", Value: "rec-1"}}

	handler.FacultyApprove(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "rec-1", envelope.Data["recordId"])
	assert.Equal(t, string(models.RecordFacultyApproved), envelope.Data["status"])
	assert.Equal(t, "tx-1", envelope.Data["txId"])
}

func TestApprovalHandlerForbiddenRole(t *testing.T) {
	handler := newApprovalHandler(&fakeGateway{conn: &fakeConn{}})
	c, rec := testContext(t, http.MethodPost, "/records/hod/rec-1", "", &models.JWTClaims{UserID: "u1", Role: models.RoleStudent})
	c.Params = gin.Params{{Key: "id", Value: "rec-1"}}

	handler.HODApprove(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestApprovalHandlerRejectRequiresReason(t *testing.T) {
	handler := newApprovalHandler(&fakeGateway{conn: &fakeConn{}})
	c, rec := testContext(t, http.MethodPost, "/records/reject/rec-1", `{}`, &models.JWTClaims{UserID: "u1", Role: models.RoleHOD})
	c.Params = gin.Params{{Key: "id", Value: "rec-1"}}

	handler.Reject(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestApprovalHandlerStaleTransitionConflict(t *testing.T) {
	conn := &fakeConn{
		submitFn: func(string, ...string) (*ledger.Result, error) {
			return nil, appErrors.Clone(appErrors.ErrCommandRejected, "record is in DRAFT")
		},
	}
	handler := newApprovalHandler(&fakeGateway{conn: conn})
	c, rec := testContext(t, http.MethodPost, "/records/dac/rec-1", "", &models.JWTClaims{UserID: "u1", Role: models.RoleDAC})
	c.Params = gin.Params{{Key: "id", Value: "rec-1"}}

	handler.DACApprove(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, envelope.Error.Code)
}

func TestApprovalHandlerStatusScaffoldOnLedgerFailure(t *testing.T) {
	handler := newApprovalHandler(&fakeGateway{err: appErrors.Clone(appErrors.ErrLedgerUnavailable, "")})
	c, rec := testContext(t, http.MethodGet, "/records/status/rec-9", "", &models.JWTClaims{UserID: "u1", Role: models.RoleFaculty})
	c.Params = gin.Params{{Key: "id", Value: "rec-9"}}

	handler.Status(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data models.AcademicRecord `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "rec-9", envelope.Data.RecordID)
	assert.Equal(t, models.RecordDraft, envelope.Data.Status)
	assert.Empty(t, envelope.Data.ApprovalChain)
}

func TestApprovalHandlerQueueInvalidStatus(t *testing.T) {
	handler := newApprovalHandler(&fakeGateway{conn: &fakeConn{}})
	c, rec := testContext(t, http.MethodGet, "/records/queue/SHIPPED", "", &models.JWTClaims{UserID: "u1", Role: models.RoleFaculty})
	c.Params = gin.Params{{Key: "status", Value: "SHIPPED"}}

	handler.Queue(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
