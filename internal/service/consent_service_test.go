package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/acadchain-api/internal/dto"
	"github.com/noah-isme/acadchain-api/internal/ledger"
	"github.com/noah-isme/acadchain-api/internal/models"
	appErrors "github.com/noah-isme/acadchain-api/pkg/errors"
)

type stubConsentStore struct {
	created   []*models.Consent
	createErr error
	revoked   []string
	revokeErr error
	active    *models.Consent
	activeErr error
	listed    []models.Consent
}

func (s *stubConsentStore) CreateIfNoActive(_ context.Context, consent *models.Consent) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, consent)
	return nil
}

func (s *stubConsentStore) Revoke(_ context.Context, consentID, _ string, _ time.Time) error {
	if s.revokeErr != nil {
		return s.revokeErr
	}
	s.revoked = append(s.revoked, consentID)
	return nil
}

func (s *stubConsentStore) FindActive(context.Context, string, string) (*models.Consent, error) {
	if s.activeErr != nil {
		return nil, s.activeErr
	}
	return s.active, nil
}

func (s *stubConsentStore) ListByStudent(context.Context, string) ([]models.Consent, error) {
	return s.listed, nil
}

func newConsentService(gateway *stubGateway, store *stubConsentStore, notifier *capturedNotifier) *ConsentService {
	if notifier == nil {
		notifier = &capturedNotifier{}
	}
	return NewConsentService(gateway, store, notifier, validator.New(), zap.NewNop(), "UniversityMSP")
}

func grantRequest(scope models.ConsentScope, semester *int) *dto.GrantConsentRequest {
	return &dto.GrantConsentRequest{
		StudentID:      "stu-1",
		RequesterID:    "req-1",
		Scope:          scope,
		SemesterNumber: semester,
	}
}

func TestConsentServiceGrantOnChain(t *testing.T) {
	conn := &stubConn{}
	store := &stubConsentStore{}
	notifier := &capturedNotifier{}
	svc := newConsentService(&stubGateway{conn: conn}, store, notifier)

	result, err := svc.Grant(context.Background(), approvalClaims(models.RoleStudent), grantRequest(models.ScopeFullRecord, nil))

	require.NoError(t, err)
	assert.True(t, result.OnChain)
	assert.Equal(t, "tx-1", result.TxID)
	assert.Equal(t, models.ConsentActive, result.Consent.Status)
	assert.Equal(t, []string{ledger.CmdGrantConsent}, conn.calls)
	assert.Empty(t, store.created)
	require.Len(t, notifier.events, 1)
	assert.Equal(t, "consent", notifier.events[0].Kind)
}

func TestConsentServiceGrantFallsBackWhenCommandMissing(t *testing.T) {
	conn := &stubConn{
		submitFn: func(string, ...string) (*ledger.Result, error) {
			return nil, appErrors.Clone(appErrors.ErrCommandNotFound, "")
		},
	}
	store := &stubConsentStore{}
	svc := newConsentService(&stubGateway{conn: conn}, store, nil)

	result, err := svc.Grant(context.Background(), approvalClaims(models.RoleStudent), grantRequest(models.ScopeFullRecord, nil))

	require.NoError(t, err)
	assert.False(t, result.OnChain)
	assert.Empty(t, result.TxID)
	require.Len(t, store.created, 1)
	assert.Equal(t, models.ConsentActive, store.created[0].Status)
}

func TestConsentServiceGrantFallsBackWhenLedgerDown(t *testing.T) {
	gateway := &stubGateway{err: appErrors.Clone(appErrors.ErrLedgerUnavailable, "")}
	store := &stubConsentStore{}
	svc := newConsentService(gateway, store, nil)

	result, err := svc.Grant(context.Background(), approvalClaims(models.RoleStudent), grantRequest(models.ScopeFullRecord, nil))

	require.NoError(t, err)
	assert.False(t, result.OnChain)
	require.Len(t, store.created, 1)
}

func TestConsentServiceGrantDuplicateActiveRejected(t *testing.T) {
	conn := &stubConn{
		submitFn: func(string, ...string) (*ledger.Result, error) {
			return nil, appErrors.Clone(appErrors.ErrCommandRejected, "consent exists")
		},
	}
	svc := newConsentService(&stubGateway{conn: conn}, &stubConsentStore{}, nil)

	_, err := svc.Grant(context.Background(), approvalClaims(models.RoleStudent), grantRequest(models.ScopeFullRecord, nil))

	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestConsentServiceGrantDuplicateRejectedByFallback(t *testing.T) {
	gateway := &stubGateway{err: appErrors.Clone(appErrors.ErrLedgerUnavailable, "")}
	store := &stubConsentStore{createErr: appErrors.Clone(appErrors.ErrConflict, "active consent exists")}
	svc := newConsentService(gateway, store, nil)

	_, err := svc.Grant(context.Background(), approvalClaims(models.RoleStudent), grantRequest(models.ScopeFullRecord, nil))

	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestConsentServiceGrantConflictsWithActiveFallbackConsent(t *testing.T) {
	conn := &stubConn{}
	store := &stubConsentStore{listed: []models.Consent{{
		ConsentID:   "con-off",
		StudentID:   "stu-1",
		RequesterID: "req-1",
		Scope:       models.ScopeFullRecord,
		Status:      models.ConsentActive,
		Provenance:  models.ProvenanceOffChain,
	}}}
	svc := newConsentService(&stubGateway{conn: conn}, store, nil)

	_, err := svc.Grant(context.Background(), approvalClaims(models.RoleStudent), grantRequest(models.ScopeFullRecord, nil))

	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
	assert.Empty(t, conn.calls)
}

func TestConsentServiceGrantDifferentKeyIgnoresFallbackConsent(t *testing.T) {
	one := 1
	two := 2
	conn := &stubConn{}
	store := &stubConsentStore{listed: []models.Consent{{
		ConsentID:      "con-off",
		StudentID:      "stu-1",
		RequesterID:    "req-1",
		Scope:          models.ScopeSemester,
		SemesterNumber: &one,
		Status:         models.ConsentActive,
	}}}
	svc := newConsentService(&stubGateway{conn: conn}, store, nil)

	result, err := svc.Grant(context.Background(), approvalClaims(models.RoleStudent), grantRequest(models.ScopeSemester, &two))

	require.NoError(t, err)
	assert.True(t, result.OnChain)
	assert.Equal(t, []string{ledger.CmdGrantConsent}, conn.calls)
}

func TestConsentServiceGrantSemesterRequiresNumber(t *testing.T) {
	svc := newConsentService(&stubGateway{conn: &stubConn{}}, &stubConsentStore{}, nil)

	_, err := svc.Grant(context.Background(), approvalClaims(models.RoleStudent), grantRequest(models.ScopeSemester, nil))

	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestConsentServiceGrantInvalidScope(t *testing.T) {
	svc := newConsentService(&stubGateway{conn: &stubConn{}}, &stubConsentStore{}, nil)

	_, err := svc.Grant(context.Background(), approvalClaims(models.RoleStudent), grantRequest(models.ConsentScope("EVERYTHING"), nil))

	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestConsentServiceRevokeOnChain(t *testing.T) {
	conn := &stubConn{}
	store := &stubConsentStore{}
	svc := newConsentService(&stubGateway{conn: conn}, store, nil)

	result, err := svc.Revoke(context.Background(), approvalClaims(models.RoleStudent), "con-1", &dto.RevokeConsentRequest{Reason: "expired"})

	require.NoError(t, err)
	assert.True(t, result.OnChain)
	assert.Equal(t, models.ConsentRevoked, result.Consent.Status)
	require.NotNil(t, result.Consent.RevokeReason)
	assert.Equal(t, "expired", *result.Consent.RevokeReason)
	assert.Empty(t, store.revoked)
}

func TestConsentServiceRevokeFallsBack(t *testing.T) {
	conn := &stubConn{
		submitFn: func(string, ...string) (*ledger.Result, error) {
			return nil, appErrors.Clone(appErrors.ErrCommandNotFound, "")
		},
	}
	store := &stubConsentStore{}
	svc := newConsentService(&stubGateway{conn: conn}, store, nil)

	result, err := svc.Revoke(context.Background(), approvalClaims(models.RoleStudent), "con-1", &dto.RevokeConsentRequest{Reason: "expired"})

	require.NoError(t, err)
	assert.False(t, result.OnChain)
	assert.Equal(t, []string{"con-1"}, store.revoked)
}

func TestConsentServiceRevokeReachesFallbackWhenLedgerNeverSawConsent(t *testing.T) {
	conn := &stubConn{
		submitFn: func(string, ...string) (*ledger.Result, error) {
			return nil, appErrors.Clone(appErrors.ErrCommandRejected, "consent not found")
		},
	}
	store := &stubConsentStore{}
	svc := newConsentService(&stubGateway{conn: conn}, store, nil)

	result, err := svc.Revoke(context.Background(), approvalClaims(models.RoleStudent), "con-1", &dto.RevokeConsentRequest{Reason: "expired"})

	require.NoError(t, err)
	assert.False(t, result.OnChain)
	assert.Equal(t, models.ConsentRevoked, result.Consent.Status)
	assert.Equal(t, []string{"con-1"}, store.revoked)
}

func TestConsentServiceRevokeRejectedAndMissingInFallback(t *testing.T) {
	conn := &stubConn{
		submitFn: func(string, ...string) (*ledger.Result, error) {
			return nil, appErrors.Clone(appErrors.ErrCommandRejected, "consent not found")
		},
	}
	store := &stubConsentStore{revokeErr: appErrors.Clone(appErrors.ErrNotFound, "no active consent to revoke")}
	svc := newConsentService(&stubGateway{conn: conn}, store, nil)

	_, err := svc.Revoke(context.Background(), approvalClaims(models.RoleStudent), "con-1", &dto.RevokeConsentRequest{Reason: "expired"})

	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestConsentServiceRevokeMissingEverywhere(t *testing.T) {
	conn := &stubConn{
		submitFn: func(string, ...string) (*ledger.Result, error) {
			return nil, appErrors.Clone(appErrors.ErrCommandNotFound, "")
		},
	}
	store := &stubConsentStore{revokeErr: appErrors.Clone(appErrors.ErrNotFound, "no active consent to revoke")}
	svc := newConsentService(&stubGateway{conn: conn}, store, nil)

	_, err := svc.Revoke(context.Background(), approvalClaims(models.RoleStudent), "con-1", &dto.RevokeConsentRequest{Reason: "expired"})

	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestConsentServiceCheckOnChain(t *testing.T) {
	consent := models.Consent{
		ConsentID:   "con-1",
		StudentID:   "stu-1",
		RequesterID: "req-1",
		Scope:       models.ScopeFullRecord,
		Status:      models.ConsentActive,
	}
	payload, err := json.Marshal(consent)
	require.NoError(t, err)

	conn := &stubConn{
		evaluateFn: func(string, ...string) (*ledger.Result, error) {
			return &ledger.Result{Payload: payload}, nil
		},
	}
	svc := newConsentService(&stubGateway{conn: conn}, &stubConsentStore{}, nil)

	check, err := svc.Check(context.Background(), "stu-1", "req-1")

	require.NoError(t, err)
	assert.True(t, check.HasConsent)
	require.NotNil(t, check.Consent)
	assert.Equal(t, models.ScopeFullRecord, check.Consent.Scope)
	assert.True(t, check.Consent.OnChain())
}

func TestConsentServiceCheckFallsBack(t *testing.T) {
	conn := &stubConn{
		evaluateFn: func(string, ...string) (*ledger.Result, error) {
			return nil, appErrors.Clone(appErrors.ErrCommandNotFound, "")
		},
	}
	active := &models.Consent{ConsentID: "con-1", Status: models.ConsentActive, Provenance: models.ProvenanceOffChain}
	store := &stubConsentStore{active: active}
	svc := newConsentService(&stubGateway{conn: conn}, store, nil)

	check, err := svc.Check(context.Background(), "stu-1", "req-1")

	require.NoError(t, err)
	assert.True(t, check.HasConsent)
	assert.False(t, check.Consent.OnChain())
}

func TestConsentServiceCheckUnknownPair(t *testing.T) {
	conn := &stubConn{
		evaluateFn: func(string, ...string) (*ledger.Result, error) {
			return nil, appErrors.Clone(appErrors.ErrCommandRejected, "no consent")
		},
	}
	store := &stubConsentStore{activeErr: sql.ErrNoRows}
	svc := newConsentService(&stubGateway{conn: conn}, store, nil)

	check, err := svc.Check(context.Background(), "stu-1", "nobody")

	require.NoError(t, err)
	assert.False(t, check.HasConsent)
	assert.Nil(t, check.Consent)
}

func TestConsentServiceCheckNoActiveAnywhere(t *testing.T) {
	conn := &stubConn{
		evaluateFn: func(string, ...string) (*ledger.Result, error) {
			return nil, appErrors.Clone(appErrors.ErrCommandRejected, "no consent")
		},
	}
	store := &stubConsentStore{}
	svc := newConsentService(&stubGateway{conn: conn}, store, nil)

	check, err := svc.Check(context.Background(), "stu-1", "nobody")

	require.NoError(t, err)
	assert.False(t, check.HasConsent)
	assert.Nil(t, check.Consent)
}

func TestConsentServiceListMergesStores(t *testing.T) {
	onChain := []models.Consent{{ConsentID: "con-1", Status: models.ConsentActive}}
	payload, err := json.Marshal(onChain)
	require.NoError(t, err)

	conn := &stubConn{
		evaluateFn: func(string, ...string) (*ledger.Result, error) {
			return &ledger.Result{Payload: payload}, nil
		},
	}
	store := &stubConsentStore{listed: []models.Consent{{ConsentID: "con-2", Status: models.ConsentRevoked, Provenance: models.ProvenanceOffChain}}}
	svc := newConsentService(&stubGateway{conn: conn}, store, nil)

	consents, err := svc.ListByStudent(context.Background(), approvalClaims(models.RoleStudent), "stu-1")

	require.NoError(t, err)
	require.Len(t, consents, 2)
	assert.True(t, consents[0].OnChain())
	assert.False(t, consents[1].OnChain())
}

func TestConsentServiceListDegradesToFallbackOnly(t *testing.T) {
	gateway := &stubGateway{err: appErrors.Clone(appErrors.ErrLedgerUnavailable, "")}
	store := &stubConsentStore{listed: []models.Consent{{ConsentID: "con-2", Provenance: models.ProvenanceOffChain}}}
	svc := newConsentService(gateway, store, nil)

	consents, err := svc.ListByStudent(context.Background(), approvalClaims(models.RoleStudent), "stu-1")

	require.NoError(t, err)
	require.Len(t, consents, 1)
	assert.Equal(t, "con-2", consents[0].ConsentID)
}
