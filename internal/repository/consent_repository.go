package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/acadchain-api/internal/models"
	appErrors "github.com/noah-isme/acadchain-api/pkg/errors"
)

// ConsentRepository is the fallback store for consents: it holds entries only
// when the corresponding ledger command is not deployed. Entries here are
// definitionally off-chain.
type ConsentRepository struct {
	db *sqlx.DB
}

// NewConsentRepository constructs the repository.
func NewConsentRepository(db *sqlx.DB) *ConsentRepository {
	return &ConsentRepository{db: db}
}

const consentColumns = `consent_id, student_id, requester_id, scope, semester_number, status, granted_at, revoked_at, revoke_reason`

// CreateIfNoActive inserts the consent unless an ACTIVE entry already exists
// for the same (student, requester, scope, semester) key. The check and the
// insert run in one transaction with a locking read, mirroring the
// read-check-write discipline the ledger provides natively.
func (r *ConsentRepository) CreateIfNoActive(ctx context.Context, consent *models.Consent) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin consent tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const existsQuery = `SELECT consent_id FROM consents
WHERE student_id = $1 AND requester_id = $2 AND scope = $3
  AND semester_number IS NOT DISTINCT FROM $4 AND status = 'ACTIVE'
FOR UPDATE`
	var existing string
	err = tx.GetContext(ctx, &existing, existsQuery, consent.StudentID, consent.RequesterID, consent.Scope, consent.SemesterNumber)
	if err == nil {
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("active consent %s already covers this requester and scope", existing))
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("check active consent: %w", err)
	}

	const insertQuery = `INSERT INTO consents (` + consentColumns + `)
VALUES (:consent_id, :student_id, :requester_id, :scope, :semester_number, :status, :granted_at, :revoked_at, :revoke_reason)`
	if _, err := tx.NamedExecContext(ctx, insertQuery, consent); err != nil {
		return fmt.Errorf("insert consent: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit consent: %w", err)
	}
	return nil
}

// Revoke marks an ACTIVE consent revoked. Revocation is terminal; revoking a
// consent that is missing or already revoked returns ErrNotFound.
func (r *ConsentRepository) Revoke(ctx context.Context, consentID, reason string, revokedAt time.Time) error {
	const query = `UPDATE consents
SET status = 'REVOKED', revoked_at = $2, revoke_reason = $3
WHERE consent_id = $1 AND status = 'ACTIVE'`
	result, err := r.db.ExecContext(ctx, query, consentID, revokedAt, reason)
	if err != nil {
		return fmt.Errorf("revoke consent: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke consent rows: %w", err)
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "no active consent to revoke")
	}
	return nil
}

// FindByID fetches a consent regardless of status.
func (r *ConsentRepository) FindByID(ctx context.Context, consentID string) (*models.Consent, error) {
	const query = `SELECT ` + consentColumns + ` FROM consents WHERE consent_id = $1`
	var consent models.Consent
	if err := r.db.GetContext(ctx, &consent, query, consentID); err != nil {
		return nil, err
	}
	consent.Provenance = models.ProvenanceOffChain
	return &consent, nil
}

// FindActive returns the ACTIVE consent for the pair, if any.
func (r *ConsentRepository) FindActive(ctx context.Context, studentID, requesterID string) (*models.Consent, error) {
	const query = `SELECT ` + consentColumns + ` FROM consents
WHERE student_id = $1 AND requester_id = $2 AND status = 'ACTIVE'
ORDER BY granted_at DESC LIMIT 1`
	var consent models.Consent
	if err := r.db.GetContext(ctx, &consent, query, studentID, requesterID); err != nil {
		return nil, err
	}
	consent.Provenance = models.ProvenanceOffChain
	return &consent, nil
}

// ListByStudent returns all fallback-store consents for a student.
func (r *ConsentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Consent, error) {
	const query = `SELECT ` + consentColumns + ` FROM consents
WHERE student_id = $1 ORDER BY granted_at DESC`
	var consents []models.Consent
	if err := r.db.SelectContext(ctx, &consents, query, studentID); err != nil {
		return nil, fmt.Errorf("list consents: %w", err)
	}
	for i := range consents {
		consents[i].Provenance = models.ProvenanceOffChain
	}
	return consents, nil
}
