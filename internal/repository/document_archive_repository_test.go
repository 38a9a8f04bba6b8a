package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/acadchain-api/internal/models"
)

func TestDocumentArchiveRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDocumentArchiveRepository(db)

	mock.ExpectExec("INSERT INTO document_archives").
		WillReturnResult(sqlmock.NewResult(1, 1))

	snapshot, _ := json.Marshal(models.Document{DocID: "doc-1", Version: 1})
	archive := &models.DocumentArchive{
		ID:         "arch-1",
		DocID:      "doc-1",
		Version:    1,
		Snapshot:   snapshot,
		Status:     models.DocumentApproved,
		ArchivedBy: "student-1",
	}
	require.NoError(t, repo.Create(context.Background(), archive))
	assert.False(t, archive.ArchivedAt.IsZero())
}

func TestDocumentArchiveRepositoryFindVersionRoundTrip(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDocumentArchiveRepository(db)

	original := models.Document{DocID: "doc-1", Hash: "abc", Status: models.DocumentApproved, Version: 1}
	snapshot, _ := json.Marshal(original)

	mock.ExpectQuery("SELECT id, doc_id, version, snapshot").
		WithArgs("doc-1", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "doc_id", "version", "snapshot", "status", "archived_by", "archived_at"}).
			AddRow("arch-1", "doc-1", 1, snapshot, "APPROVED", "student-1", time.Now()))

	archive, err := repo.FindVersion(context.Background(), "doc-1", 1)
	require.NoError(t, err)

	// archived snapshot must be byte-identical to the pre-bump record
	var restored models.Document
	require.NoError(t, json.Unmarshal(archive.Snapshot, &restored))
	assert.Equal(t, original, restored)
}
