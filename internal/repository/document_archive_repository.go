package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/acadchain-api/internal/models"
)

// DocumentArchiveRepository stores the immutable side-records created when a
// document is superseded by a new version. Rows are append-only.
type DocumentArchiveRepository struct {
	db *sqlx.DB
}

// NewDocumentArchiveRepository constructs the repository.
func NewDocumentArchiveRepository(db *sqlx.DB) *DocumentArchiveRepository {
	return &DocumentArchiveRepository{db: db}
}

// Create appends an archive row.
func (r *DocumentArchiveRepository) Create(ctx context.Context, archive *models.DocumentArchive) error {
	const query = `INSERT INTO document_archives (id, doc_id, version, snapshot, status, archived_by, archived_at)
VALUES (:id, :doc_id, :version, :snapshot, :status, :archived_by, :archived_at)`
	if archive.ArchivedAt.IsZero() {
		archive.ArchivedAt = time.Now().UTC()
	}
	if _, err := r.db.NamedExecContext(ctx, query, archive); err != nil {
		return fmt.Errorf("insert document archive: %w", err)
	}
	return nil
}

// FindByDoc returns the archived versions for a document, oldest first.
func (r *DocumentArchiveRepository) FindByDoc(ctx context.Context, docID string) ([]models.DocumentArchive, error) {
	const query = `SELECT id, doc_id, version, snapshot, status, archived_by, archived_at
FROM document_archives WHERE doc_id = $1 ORDER BY version ASC`
	var archives []models.DocumentArchive
	if err := r.db.SelectContext(ctx, &archives, query, docID); err != nil {
		return nil, fmt.Errorf("list document archives: %w", err)
	}
	return archives, nil
}

// FindVersion returns one archived version.
func (r *DocumentArchiveRepository) FindVersion(ctx context.Context, docID string, version int) (*models.DocumentArchive, error) {
	const query = `SELECT id, doc_id, version, snapshot, status, archived_by, archived_at
FROM document_archives WHERE doc_id = $1 AND version = $2`
	var archive models.DocumentArchive
	if err := r.db.GetContext(ctx, &archive, query, docID, version); err != nil {
		return nil, err
	}
	return &archive, nil
}
