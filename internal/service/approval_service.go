package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/acadchain-api/internal/dto"
	"github.com/noah-isme/acadchain-api/internal/ledger"
	"github.com/noah-isme/acadchain-api/internal/models"
	appErrors "github.com/noah-isme/acadchain-api/pkg/errors"
)

type ledgerGateway interface {
	WithConnection(ctx context.Context, identity ledger.Identity, fn func(ledger.Conn) error) error
}

type transitionNotifier interface {
	NotifyTransition(event models.TransitionEvent)
}

type transitionAuditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// approvalCommands maps each forward stage to the chaincode function that
// commits it. The chaincode re-validates the predecessor stage inside the
// same transaction that mutates it, so a concurrent stale transition is
// rejected at commit time rather than silently applied.
var approvalCommands = map[models.RecordStatus]string{
	models.RecordSubmitted:       ledger.CmdSubmitForApproval,
	models.RecordFacultyApproved: ledger.CmdFacultyApprove,
	models.RecordHODApproved:     ledger.CmdHODApprove,
	models.RecordDACApproved:     ledger.CmdDACApprove,
	models.RecordESApproved:      ledger.CmdExamSectionApprove,
	models.RecordApproved:        ledger.CmdDeanAcademicApprove,
}

// ApprovalServiceConfig tunes the record approval state machine.
type ApprovalServiceConfig struct {
	MSPID string
}

// ApprovalService enforces the sequential multi-party approval protocol for
// academic records and anchors every accepted transition on the ledger.
type ApprovalService struct {
	gateway   ledgerGateway
	notifier  transitionNotifier
	audit     transitionAuditLogger
	validator *validator.Validate
	logger    *zap.Logger
	mspID     string
}

// NewApprovalService constructs an ApprovalService.
func NewApprovalService(gateway ledgerGateway, notifier transitionNotifier, audit transitionAuditLogger, validate *validator.Validate, logger *zap.Logger, cfg ApprovalServiceConfig) *ApprovalService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApprovalService{
		gateway:   gateway,
		notifier:  notifier,
		audit:     audit,
		validator: validate,
		logger:    logger,
		mspID:     cfg.MSPID,
	}
}

// Approve moves a record into the target stage on behalf of the actor. The
// actor's role must match the stage's required approver role (ADMIN passes
// every gate); the stage's predecessor check happens chaincode-side.
func (s *ApprovalService) Approve(ctx context.Context, claims *models.JWTClaims, recordID string, target models.RecordStatus, comment string) (*dto.TransitionResult, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if recordID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "record id is required")
	}

	transition, ok := models.TransitionTo(target)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s is not a transition target", target))
	}
	if claims.Role != transition.Role && claims.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("role %s may not move records to %s", claims.Role, target))
	}

	command := approvalCommands[target]
	var result *ledger.Result
	err := s.gateway.WithConnection(ctx, s.identity(claims), func(conn ledger.Conn) error {
		var err error
		result, err = conn.Submit(ctx, command, recordID, comment)
		return err
	})
	if err != nil {
		return nil, s.mapTransitionError(err, recordID, target)
	}

	s.recordAudit(ctx, claims, recordID, string(transition.From), string(target), result.TxID)
	s.notify(claims, recordID, string(transition.From), string(target), result.TxID, comment)

	return &dto.TransitionResult{RecordID: recordID, Status: target, TxID: result.TxID}, nil
}

// Reject resets a record to DRAFT from any non-terminal stage, recording the
// reason and the rejecting actor. Unlike forward transitions it does not
// require the chain to be contiguous.
func (s *ApprovalService) Reject(ctx context.Context, claims *models.JWTClaims, recordID, reason string) (*dto.TransitionResult, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if recordID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "record id is required")
	}
	if strings.TrimSpace(reason) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rejection reason is required")
	}
	if !claims.Role.IsApprover() && claims.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("role %s may not reject records", claims.Role))
	}

	var result *ledger.Result
	err := s.gateway.WithConnection(ctx, s.identity(claims), func(conn ledger.Conn) error {
		var err error
		result, err = conn.Submit(ctx, ledger.CmdRejectRecord, recordID, reason)
		return err
	})
	if err != nil {
		return nil, s.mapTransitionError(err, recordID, models.RecordDraft)
	}

	s.recordAudit(ctx, claims, recordID, "", string(models.RecordDraft), result.TxID)
	s.notify(claims, recordID, "", string(models.RecordDraft), result.TxID, reason)

	return &dto.TransitionResult{RecordID: recordID, Status: models.RecordDraft, TxID: result.TxID}, nil
}

// Status returns the record's approval metadata. A record whose approval
// asset does not exist yet (record and approval metadata are separate ledger
// assets) yields a DRAFT scaffold with an empty chain rather than an error,
// and so does any ledger failure: this is a dashboard-facing read.
func (s *ApprovalService) Status(ctx context.Context, claims *models.JWTClaims, recordID string) (*models.AcademicRecord, error) {
	if recordID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "record id is required")
	}

	var payload []byte
	err := s.gateway.WithConnection(ctx, s.identity(claims), func(conn ledger.Conn) error {
		result, err := conn.Evaluate(ctx, ledger.CmdGetApprovalStatus, recordID)
		if err != nil {
			return err
		}
		payload = result.Payload
		return nil
	})
	if err != nil {
		s.logger.Warn("approval status degraded to scaffold",
			zap.String("record_id", recordID), zap.Error(err))
		return models.EmptyApprovalStatus(recordID), nil
	}

	var record models.AcademicRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		s.logger.Warn("approval status payload malformed", zap.String("record_id", recordID), zap.Error(err))
		return models.EmptyApprovalStatus(recordID), nil
	}
	if record.RecordID == "" {
		record.RecordID = recordID
	}
	if record.Status == "" {
		record.Status = models.RecordDraft
	}
	if record.ApprovalChain == nil {
		record.ApprovalChain = []models.ApprovalStep{}
	}
	return &record, nil
}

// Queue lists records sitting in one stage, bounded by limit. Ledger
// failures degrade to an empty result set, never an error.
func (s *ApprovalService) Queue(ctx context.Context, claims *models.JWTClaims, status models.RecordStatus, limit int) (*models.RecordQueue, error) {
	if !models.ValidRecordStatus(status) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s is not a record status", status))
	}
	if limit <= 0 {
		limit = 50
	}

	empty := &models.RecordQueue{Status: status, Records: []models.AcademicRecord{}, Count: 0}

	var payload []byte
	err := s.gateway.WithConnection(ctx, s.identity(claims), func(conn ledger.Conn) error {
		result, err := conn.Evaluate(ctx, ledger.CmdQueryRecordsByStatus, string(status), "", strconv.Itoa(limit))
		if err != nil {
			return err
		}
		payload = result.Payload
		return nil
	})
	if err != nil {
		s.logger.Warn("record queue degraded to empty set",
			zap.String("status", string(status)), zap.Error(err))
		return empty, nil
	}

	var records []models.AcademicRecord
	if err := json.Unmarshal(payload, &records); err != nil {
		s.logger.Warn("record queue payload malformed", zap.Error(err))
		return empty, nil
	}
	if records == nil {
		records = []models.AcademicRecord{}
	}
	return &models.RecordQueue{Status: status, Records: records, Count: len(records)}, nil
}

func (s *ApprovalService) identity(claims *models.JWTClaims) ledger.Identity {
	if claims == nil {
		return ledger.Identity{ID: "public-verifier", MSPID: s.mspID}
	}
	return ledger.Identity{ID: claims.UserID, MSPID: s.mspID, Role: string(claims.Role)}
}

// mapTransitionError translates gateway errors into the caller-facing
// taxonomy. A chaincode rejection of an approval command means the record was
// not in the declared predecessor stage.
func (s *ApprovalService) mapTransitionError(err error, recordID string, target models.RecordStatus) error {
	switch {
	case appErrors.Is(err, appErrors.ErrCommandRejected):
		return appErrors.Wrap(err, appErrors.ErrInvalidTransition.Code, appErrors.ErrInvalidTransition.Status,
			fmt.Sprintf("record %s cannot move to %s: %s", recordID, target, appErrors.FromError(err).Message))
	case appErrors.Is(err, appErrors.ErrCommandNotFound):
		// Approval commands have no fallback path; an undeployed command is
		// an operational fault here.
		return appErrors.Wrap(err, appErrors.ErrLedgerUnavailable.Code, appErrors.ErrLedgerUnavailable.Status,
			"approval commands not deployed on ledger")
	default:
		return err
	}
}

func (s *ApprovalService) recordAudit(ctx context.Context, claims *models.JWTClaims, recordID, from, to, txID string) {
	if s.audit == nil {
		return
	}
	values, _ := json.Marshal(map[string]string{"from": from, "to": to, "tx_id": txID})
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &claims.UserID,
		Action:     models.AuditActionTransition,
		Resource:   "record",
		ResourceID: &recordID,
		NewValues:  values,
	}); err != nil {
		s.logger.Warn("failed to record transition audit log", zap.Error(err))
	}
}

func (s *ApprovalService) notify(claims *models.JWTClaims, recordID, from, to, txID, comment string) {
	if s.notifier == nil {
		return
	}
	s.notifier.NotifyTransition(models.TransitionEvent{
		Kind:       "record",
		EntityID:   recordID,
		From:       from,
		To:         to,
		ActorID:    claims.UserID,
		ActorRole:  claims.Role,
		TxID:       txID,
		Comment:    comment,
		OccurredAt: time.Now().UTC(),
	})
}
