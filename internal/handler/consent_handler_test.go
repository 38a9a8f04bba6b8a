package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/acadchain-api/internal/ledger"
	"github.com/noah-isme/acadchain-api/internal/models"
	"github.com/noah-isme/acadchain-api/internal/service"
	appErrors "github.com/noah-isme/acadchain-api/pkg/errors"
)

type fakeConsentStore struct {
	created []*models.Consent
	active  *models.Consent
}

func (s *fakeConsentStore) CreateIfNoActive(_ context.Context, consent *models.Consent) error {
	s.created = append(s.created, consent)
	return nil
}

func (s *fakeConsentStore) Revoke(context.Context, string, string, time.Time) error {
	return nil
}

func (s *fakeConsentStore) FindActive(context.Context, string, string) (*models.Consent, error) {
	if s.active == nil {
		return nil, sql.ErrNoRows
	}
	return s.active, nil
}

func (s *fakeConsentStore) ListByStudent(context.Context, string) ([]models.Consent, error) {
	return nil, nil
}

func newConsentHandler(gateway *fakeGateway, store *fakeConsentStore) *ConsentHandler {
	svc := service.NewConsentService(gateway, store, nil, nil, zap.NewNop(), "UniversityMSP")
	return NewConsentHandler(svc)
}

func TestConsentHandlerGrant(t *testing.T) {
	handler := newConsentHandler(&fakeGateway{conn: &fakeConn{}}, &fakeConsentStore{})
	body := `{"student_id":"stu-1","requester_id":"req-1","scope":"FULL_RECORD"}`
	c, rec := testContext(t, http.MethodPost, "/consents/grant", body, &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent})

	handler.Grant(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	var envelope struct {
		Data struct {
			OnChain bool `json:"onChain"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.True(t, envelope.Data.OnChain)
}

func TestConsentHandlerGrantSemesterWithoutNumber(t *testing.T) {
	handler := newConsentHandler(&fakeGateway{conn: &fakeConn{}}, &fakeConsentStore{})
	body := `{"student_id":"stu-1","requester_id":"req-1","scope":"SEMESTER"}`
	c, rec := testContext(t, http.MethodPost, "/consents/grant", body, &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent})

	handler.Grant(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConsentHandlerGrantFallsBackOffChain(t *testing.T) {
	conn := &fakeConn{
		submitFn: func(string, ...string) (*ledger.Result, error) {
			return nil, appErrors.Clone(appErrors.ErrCommandNotFound, "")
		},
	}
	store := &fakeConsentStore{}
	handler := newConsentHandler(&fakeGateway{conn: conn}, store)
	body := `{"student_id":"stu-1","requester_id":"req-1","scope":"FULL_RECORD"}`
	c, rec := testContext(t, http.MethodPost, "/consents/grant", body, &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent})

	handler.Grant(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	var envelope struct {
		Data struct {
			OnChain bool `json:"onChain"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.False(t, envelope.Data.OnChain)
	assert.Len(t, store.created, 1)
}

func TestConsentHandlerCheckIsPublic(t *testing.T) {
	conn := &fakeConn{
		evaluateFn: func(string, ...string) (*ledger.Result, error) {
			return nil, appErrors.Clone(appErrors.ErrCommandRejected, "no consent")
		},
	}
	handler := newConsentHandler(&fakeGateway{conn: conn}, &fakeConsentStore{})
	// No claims set: the check endpoint serves unauthenticated verifiers.
	c, rec := testContext(t, http.MethodGet, "/consents/check/stu-1/req-1", "", nil)
	c.Params = gin.Params{{Key: "studentId", Value: "stu-1"}, {Key: "requesterId", Value: "req-1"}}

	handler.Check(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data models.ConsentCheck `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.False(t, envelope.Data.HasConsent)
	assert.Nil(t, envelope.Data.Consent)
}
