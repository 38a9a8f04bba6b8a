package service

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/acadchain-api/internal/dto"
	"github.com/noah-isme/acadchain-api/internal/ledger"
	"github.com/noah-isme/acadchain-api/internal/models"
	appErrors "github.com/noah-isme/acadchain-api/pkg/errors"
	"github.com/noah-isme/acadchain-api/pkg/storage"
)

type documentArchiver interface {
	Create(ctx context.Context, archive *models.DocumentArchive) error
	FindByDoc(ctx context.Context, docID string) ([]models.DocumentArchive, error)
}

type blobPutter interface {
	Put(data []byte) (string, error)
}

// versionSuffix matches the -v<N> identity suffix produced by the version
// side-process.
var versionSuffix = regexp.MustCompile(`-v\d+$`)

// DocumentService drives the document pipeline: upload, review transitions,
// the versioning side-process and hash verification.
type DocumentService struct {
	gateway   ledgerGateway
	blobs     blobPutter
	archives  documentArchiver
	validator *validator.Validate
	logger    *zap.Logger
	mspID     string
}

// NewDocumentService constructs a DocumentService.
func NewDocumentService(gateway ledgerGateway, blobs blobPutter, archives documentArchiver, validate *validator.Validate, logger *zap.Logger, mspID string) *DocumentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentService{
		gateway:   gateway,
		blobs:     blobs,
		archives:  archives,
		validator: validate,
		logger:    logger,
		mspID:     mspID,
	}
}

// Upload stores the content in the blob store and commits the document asset
// to the ledger. Initial status is always UPLOADED, version 1.
func (s *DocumentService) Upload(ctx context.Context, claims *models.JWTClaims, req *dto.UploadDocumentRequest) (*models.Document, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	hash := storage.Hash(req.Content)
	locator, err := s.blobs.Put(req.Content)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store document content")
	}

	doc := &models.Document{
		DocID:        uuid.New().String(),
		StudentID:    req.StudentID,
		DocType:      req.DocType,
		Hash:         hash,
		Locator:      locator,
		OriginalName: req.OriginalName,
		AcademicYear: req.AcademicYear,
		Semester:     req.Semester,
		Status:       models.DocumentUploaded,
		Version:      1,
		UploadedAt:   time.Now().UTC(),
	}

	err = s.gateway.WithConnection(ctx, s.identity(claims), func(conn ledger.Conn) error {
		_, err := conn.Submit(ctx, ledger.CmdUploadDocument,
			doc.DocID, doc.StudentID, doc.DocType, doc.Hash,
			doc.OriginalName, doc.AcademicYear, strconv.Itoa(doc.Semester),
			doc.Locator, strconv.Itoa(doc.Version))
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// UpdateStatus moves a document to the target pipeline state. The current
// state is read and checked against the allowed-set table inside the same
// scoped connection that submits the update; the chaincode re-validates at
// commit, so a concurrent move still fails cleanly.
func (s *DocumentService) UpdateStatus(ctx context.Context, claims *models.JWTClaims, docID string, target models.DocumentStatus) (*models.Document, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if docID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "document id is required")
	}
	if !models.ValidDocumentStatus(target) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s is not a document status", target))
	}

	var doc models.Document
	err := s.gateway.WithConnection(ctx, s.identity(claims), func(conn ledger.Conn) error {
		result, err := conn.Evaluate(ctx, ledger.CmdGetDocument, docID)
		if err != nil {
			if appErrors.Is(err, appErrors.ErrCommandRejected) {
				return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("document %s not found", docID))
			}
			return err
		}
		if err := json.Unmarshal(result.Payload, &doc); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "malformed document payload")
		}
		if !models.CanTransition(doc.Status, target) {
			return appErrors.Clone(appErrors.ErrInvalidTransition,
				fmt.Sprintf("document %s is %s; allowed: %s", docID, doc.Status, joinStatuses(models.AllowedNext(doc.Status))))
		}
		if _, err := conn.Submit(ctx, ledger.CmdUpdateDocumentStatus, docID, string(target)); err != nil {
			return err
		}
		doc.Status = target
		return nil
	})
	if err != nil {
		if appErrors.Is(err, appErrors.ErrCommandRejected) {
			return nil, appErrors.Wrap(err, appErrors.ErrInvalidTransition.Code, appErrors.ErrInvalidTransition.Status,
				fmt.Sprintf("document %s cannot move to %s", docID, target))
		}
		return nil, err
	}
	return &doc, nil
}

// NewVersion runs the versioning side-process: the existing record is
// archived verbatim, the replacement content gets a fresh hash and locator,
// and a new document identity suffixed with the version number is created at
// UPLOADED. The original identity is never mutated.
func (s *DocumentService) NewVersion(ctx context.Context, claims *models.JWTClaims, docID string, req *dto.NewVersionRequest) (*models.Document, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if docID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "document id is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	var current models.Document
	var snapshot []byte
	err := s.gateway.WithConnection(ctx, s.identity(claims), func(conn ledger.Conn) error {
		result, err := conn.Evaluate(ctx, ledger.CmdGetDocument, docID)
		if err != nil {
			return err
		}
		snapshot = result.Payload
		return json.Unmarshal(result.Payload, &current)
	})
	if err != nil {
		if appErrors.Is(err, appErrors.ErrCommandRejected) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("document %s not found", docID))
		}
		return nil, err
	}

	if err := s.archives.Create(ctx, &models.DocumentArchive{
		ID:         uuid.New().String(),
		DocID:      current.DocID,
		Version:    current.Version,
		Snapshot:   snapshot,
		Status:     current.Status,
		ArchivedBy: claims.UserID,
		ArchivedAt: time.Now().UTC(),
	}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive prior version")
	}

	hash := storage.Hash(req.Content)
	locator, err := s.blobs.Put(req.Content)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store replacement content")
	}

	next := &models.Document{
		DocID:        fmt.Sprintf("%s-v%d", baseDocID(current.DocID), current.Version+1),
		StudentID:    current.StudentID,
		DocType:      current.DocType,
		Hash:         hash,
		Locator:      locator,
		OriginalName: req.OriginalName,
		AcademicYear: current.AcademicYear,
		Semester:     current.Semester,
		Status:       models.DocumentUploaded,
		Version:      current.Version + 1,
		UploadedAt:   time.Now().UTC(),
	}

	err = s.gateway.WithConnection(ctx, s.identity(claims), func(conn ledger.Conn) error {
		_, err := conn.Submit(ctx, ledger.CmdUploadDocument,
			next.DocID, next.StudentID, next.DocType, next.Hash,
			next.OriginalName, next.AcademicYear, strconv.Itoa(next.Semester),
			next.Locator, strconv.Itoa(next.Version))
		return err
	})
	if err != nil {
		return nil, err
	}
	return next, nil
}

// Get returns one document asset.
func (s *DocumentService) Get(ctx context.Context, claims *models.JWTClaims, docID string) (*models.Document, error) {
	if docID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "document id is required")
	}
	var doc models.Document
	err := s.gateway.WithConnection(ctx, s.identity(claims), func(conn ledger.Conn) error {
		result, err := conn.Evaluate(ctx, ledger.CmdGetDocument, docID)
		if err != nil {
			return err
		}
		return json.Unmarshal(result.Payload, &doc)
	})
	if err != nil {
		if appErrors.Is(err, appErrors.ErrCommandRejected) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("document %s not found", docID))
		}
		return nil, err
	}
	return &doc, nil
}

// ListByStudent returns the student's documents; ledger failures degrade to
// an empty list.
func (s *DocumentService) ListByStudent(ctx context.Context, claims *models.JWTClaims, studentID string) ([]models.Document, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	var docs []models.Document
	err := s.gateway.WithConnection(ctx, s.identity(claims), func(conn ledger.Conn) error {
		result, err := conn.Evaluate(ctx, ledger.CmdGetDocumentsByStudent, studentID)
		if err != nil {
			return err
		}
		return json.Unmarshal(result.Payload, &docs)
	})
	if err != nil {
		s.logger.Warn("document listing degraded to empty set",
			zap.String("student_id", studentID), zap.Error(err))
		return []models.Document{}, nil
	}
	if docs == nil {
		docs = []models.Document{}
	}
	return docs, nil
}

// VerifyByHash is a side-effect-free lookup keyed by content hash. Absence is
// a negative result, never an error; only a transport fault propagates. It is
// callable without an authenticated actor.
func (s *DocumentService) VerifyByHash(ctx context.Context, claims *models.JWTClaims, hash string) (*models.VerifyResult, error) {
	if hash == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "content hash is required")
	}

	var doc models.Document
	err := s.gateway.WithConnection(ctx, s.identity(claims), func(conn ledger.Conn) error {
		result, err := conn.Evaluate(ctx, ledger.CmdVerifyDocumentByHash, hash)
		if err != nil {
			return err
		}
		return json.Unmarshal(result.Payload, &doc)
	})
	if err != nil {
		if appErrors.Is(err, appErrors.ErrCommandRejected) || appErrors.Is(err, appErrors.ErrCommandNotFound) {
			return &models.VerifyResult{Hash: hash, Verified: false}, nil
		}
		return nil, err
	}
	return &models.VerifyResult{Hash: hash, Verified: true, Document: &doc}, nil
}

// Versions lists the archived prior versions of a document, oldest first.
func (s *DocumentService) Versions(ctx context.Context, docID string) ([]models.DocumentArchive, error) {
	if docID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "document id is required")
	}
	archives, err := s.archives.FindByDoc(ctx, docID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list archived versions")
	}
	if archives == nil {
		archives = []models.DocumentArchive{}
	}
	return archives, nil
}

func (s *DocumentService) identity(claims *models.JWTClaims) ledger.Identity {
	if claims == nil {
		return ledger.Identity{ID: "public-verifier", MSPID: s.mspID}
	}
	return ledger.Identity{ID: claims.UserID, MSPID: s.mspID, Role: string(claims.Role)}
}

// baseDocID strips a trailing version suffix so chained versions of the same
// lineage share one base identity.
func baseDocID(docID string) string {
	return versionSuffix.ReplaceAllString(docID, "")
}

func joinStatuses(statuses []models.DocumentStatus) string {
	parts := make([]string, len(statuses))
	for i, s := range statuses {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}
