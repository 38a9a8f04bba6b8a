package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/acadchain-api/internal/dto"
	"github.com/noah-isme/acadchain-api/internal/ledger"
	"github.com/noah-isme/acadchain-api/internal/models"
	appErrors "github.com/noah-isme/acadchain-api/pkg/errors"
)

type consentFallbackStore interface {
	CreateIfNoActive(ctx context.Context, consent *models.Consent) error
	Revoke(ctx context.Context, consentID, reason string, revokedAt time.Time) error
	FindActive(ctx context.Context, studentID, requesterID string) (*models.Consent, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Consent, error)
}

// ConsentService enforces grant/revoke of third-party access scopes. Writes
// go to the ledger first; when the consent commands are not deployed or the
// network is down they land in the fallback store instead, and the result
// carries an onChain discriminator either way.
type ConsentService struct {
	gateway   ledgerGateway
	fallback  consentFallbackStore
	notifier  transitionNotifier
	validator *validator.Validate
	logger    *zap.Logger
	mspID     string
}

// NewConsentService constructs a ConsentService.
func NewConsentService(gateway ledgerGateway, fallback consentFallbackStore, notifier transitionNotifier, validate *validator.Validate, logger *zap.Logger, mspID string) *ConsentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsentService{
		gateway:   gateway,
		fallback:  fallback,
		notifier:  notifier,
		validator: validate,
		logger:    logger,
		mspID:     mspID,
	}
}

// Grant creates an ACTIVE consent. A duplicate grant against a key that
// already holds an ACTIVE consent is rejected with CONFLICT on both paths.
func (s *ConsentService) Grant(ctx context.Context, claims *models.JWTClaims, req *dto.GrantConsentRequest) (*dto.ConsentResult, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if !models.ValidConsentScope(req.Scope) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s is not a consent scope", req.Scope))
	}
	if req.Scope == models.ScopeSemester && req.SemesterNumber == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "semester number is required for SEMESTER scope")
	}
	if req.Scope == models.ScopeFullRecord {
		req.SemesterNumber = nil
	}

	// The chaincode cannot see consents granted into the fallback store
	// during an outage, so the one-active-per-key rule has to be checked
	// across both stores before submitting.
	if existing, err := s.activeOffChainMatch(ctx, req); err != nil {
		s.logger.Warn("fallback consent lookup failed", zap.Error(err))
	} else if existing != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict,
			fmt.Sprintf("active consent %s already covers this requester and scope", existing.ConsentID))
	}

	consent := &models.Consent{
		ConsentID:      uuid.New().String(),
		StudentID:      req.StudentID,
		RequesterID:    req.RequesterID,
		Scope:          req.Scope,
		SemesterNumber: req.SemesterNumber,
		Status:         models.ConsentActive,
		GrantedAt:      time.Now().UTC(),
	}

	semester := ""
	if consent.SemesterNumber != nil {
		semester = fmt.Sprintf("%d", *consent.SemesterNumber)
	}

	var txID string
	err := s.gateway.WithConnection(ctx, s.identity(claims), func(conn ledger.Conn) error {
		result, err := conn.Submit(ctx, ledger.CmdGrantConsent,
			consent.ConsentID, consent.StudentID, consent.RequesterID,
			string(consent.Scope), semester)
		if err != nil {
			return err
		}
		txID = result.TxID
		return nil
	})
	switch {
	case err == nil:
		consent.Provenance = models.ProvenanceOnChain
	case appErrors.Is(err, appErrors.ErrCommandNotFound), appErrors.Is(err, appErrors.ErrLedgerUnavailable):
		s.logger.Warn("consent grant falling back to local store", zap.Error(err))
		if err := s.fallback.CreateIfNoActive(ctx, consent); err != nil {
			return nil, err
		}
		consent.Provenance = models.ProvenanceOffChain
	case appErrors.Is(err, appErrors.ErrCommandRejected):
		return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status,
			"an active consent already covers this requester and scope")
	default:
		return nil, err
	}

	s.notifyConsent(claims, consent, string(models.ConsentActive), txID, "")

	return &dto.ConsentResult{Consent: consent, OnChain: consent.OnChain(), TxID: txID}, nil
}

// Revoke terminates an ACTIVE consent on whichever store holds it. Revocation
// is terminal.
func (s *ConsentService) Revoke(ctx context.Context, claims *models.JWTClaims, consentID string, req *dto.RevokeConsentRequest) (*dto.ConsentResult, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if consentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "consent id is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	revokedAt := time.Now().UTC()
	var payload []byte
	var txID string
	err := s.gateway.WithConnection(ctx, s.identity(claims), func(conn ledger.Conn) error {
		result, err := conn.Submit(ctx, ledger.CmdRevokeConsent, consentID, req.Reason)
		if err != nil {
			return err
		}
		txID = result.TxID
		payload = result.Payload
		return nil
	})

	consent := &models.Consent{
		ConsentID:    consentID,
		Status:       models.ConsentRevoked,
		RevokedAt:    &revokedAt,
		RevokeReason: &req.Reason,
	}
	switch {
	case err == nil:
		if len(payload) > 0 {
			if uerr := json.Unmarshal(payload, consent); uerr != nil {
				s.logger.Warn("revoke payload malformed", zap.Error(uerr))
			}
		}
		consent.Provenance = models.ProvenanceOnChain
	case appErrors.Is(err, appErrors.ErrCommandNotFound), appErrors.Is(err, appErrors.ErrLedgerUnavailable):
		s.logger.Warn("consent revoke falling back to local store", zap.Error(err))
		if err := s.fallback.Revoke(ctx, consentID, req.Reason, revokedAt); err != nil {
			return nil, err
		}
		consent.Provenance = models.ProvenanceOffChain
	case appErrors.Is(err, appErrors.ErrCommandRejected):
		// The chaincode only answers for its own store; the consent may
		// have been granted off-chain during an outage.
		switch ferr := s.fallback.Revoke(ctx, consentID, req.Reason, revokedAt); {
		case ferr == nil:
			consent.Provenance = models.ProvenanceOffChain
		case appErrors.Is(ferr, appErrors.ErrNotFound):
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no active consent %s to revoke", consentID))
		default:
			return nil, ferr
		}
	default:
		return nil, err
	}

	s.notifyConsent(claims, consent, string(models.ConsentRevoked), txID, req.Reason)

	return &dto.ConsentResult{Consent: consent, OnChain: consent.OnChain(), TxID: txID}, nil
}

// Check is a pure read: ledger lookup first, fallback store second. An
// unknown pair yields hasConsent=false, never an error. It is callable
// without an authenticated actor.
func (s *ConsentService) Check(ctx context.Context, studentID, requesterID string) (*models.ConsentCheck, error) {
	if studentID == "" || requesterID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id and requester id are required")
	}

	var consent models.Consent
	err := s.gateway.WithConnection(ctx, s.identity(nil), func(conn ledger.Conn) error {
		result, err := conn.Evaluate(ctx, ledger.CmdCheckConsent, studentID, requesterID)
		if err != nil {
			return err
		}
		return json.Unmarshal(result.Payload, &consent)
	})
	if err == nil && consent.Status == models.ConsentActive {
		consent.Provenance = models.ProvenanceOnChain
		return &models.ConsentCheck{HasConsent: true, Consent: &consent}, nil
	}
	if err != nil && !isConsentFallbackSignal(err) {
		s.logger.Warn("ledger consent check failed, consulting fallback store",
			zap.String("student_id", studentID), zap.Error(err))
	}

	fallback, err := s.fallback.FindActive(ctx, studentID, requesterID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.ConsentCheck{HasConsent: false}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "consent lookup failed")
	}
	if fallback == nil {
		return &models.ConsentCheck{HasConsent: false}, nil
	}
	return &models.ConsentCheck{HasConsent: true, Consent: fallback}, nil
}

// ListByStudent merges the student's ledger consents with the fallback
// store's. A ledger failure degrades to fallback-store entries only.
func (s *ConsentService) ListByStudent(ctx context.Context, claims *models.JWTClaims, studentID string) ([]models.Consent, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}

	var onChain []models.Consent
	err := s.gateway.WithConnection(ctx, s.identity(claims), func(conn ledger.Conn) error {
		result, err := conn.Evaluate(ctx, ledger.CmdGetConsentsByStudent, studentID)
		if err != nil {
			return err
		}
		return json.Unmarshal(result.Payload, &onChain)
	})
	if err != nil {
		s.logger.Warn("ledger consent listing unavailable",
			zap.String("student_id", studentID), zap.Error(err))
		onChain = nil
	}
	for i := range onChain {
		onChain[i].Provenance = models.ProvenanceOnChain
	}

	offChain, err := s.fallback.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "consent listing failed")
	}

	merged := make([]models.Consent, 0, len(onChain)+len(offChain))
	merged = append(merged, onChain...)
	merged = append(merged, offChain...)
	return merged, nil
}

// activeOffChainMatch returns the fallback-store consent that is still
// ACTIVE for the request's (student, requester, scope, semester) key, if any.
func (s *ConsentService) activeOffChainMatch(ctx context.Context, req *dto.GrantConsentRequest) (*models.Consent, error) {
	offChain, err := s.fallback.ListByStudent(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}
	for i := range offChain {
		c := &offChain[i]
		if c.Status == models.ConsentActive &&
			c.RequesterID == req.RequesterID &&
			c.Scope == req.Scope &&
			semesterEqual(c.SemesterNumber, req.SemesterNumber) {
			return c, nil
		}
	}
	return nil, nil
}

func semesterEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (s *ConsentService) identity(claims *models.JWTClaims) ledger.Identity {
	if claims == nil {
		return ledger.Identity{ID: "public-verifier", MSPID: s.mspID}
	}
	return ledger.Identity{ID: claims.UserID, MSPID: s.mspID, Role: string(claims.Role)}
}

// isConsentFallbackSignal reports whether the ledger error is the expected
// redirect-to-fallback condition rather than something worth logging loudly.
func isConsentFallbackSignal(err error) bool {
	return appErrors.Is(err, appErrors.ErrCommandNotFound) ||
		appErrors.Is(err, appErrors.ErrCommandRejected)
}

func (s *ConsentService) notifyConsent(claims *models.JWTClaims, consent *models.Consent, to, txID, comment string) {
	if s.notifier == nil {
		return
	}
	s.notifier.NotifyTransition(models.TransitionEvent{
		Kind:       "consent",
		EntityID:   consent.ConsentID,
		To:         to,
		ActorID:    claims.UserID,
		ActorRole:  claims.Role,
		TxID:       txID,
		Comment:    comment,
		Recipients: []string{consent.StudentID, consent.RequesterID},
		OccurredAt: time.Now().UTC(),
	})
}
