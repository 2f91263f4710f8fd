package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/grievance-box-api/internal/models"
)

var letterRowColumns = []string{"id", "title", "body", "created_on", "status", "status_updated", "actions", "actions_updated", "comments", "comments_updated", "student_id", "dept_code"}

func TestLetterRepositoryList(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLetterRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(letterRowColumns).
		AddRow(1, "Leak", "...", now, false, nil, nil, nil, nil, nil, 3, nil).
		AddRow(2, "Noise", "...", now, true, now, "moved", now, nil, nil, 4, "CS")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + letterColumns + " FROM grievance_letters ORDER BY id")).
		WillReturnRows(rows)

	letters, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, letters, 2)
	assert.Nil(t, letters[0].DeptCode)
	require.NotNil(t, letters[1].Actions)
	assert.Equal(t, "moved", *letters[1].Actions)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLetterRepositoryListByDepartment(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLetterRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM grievance_letters WHERE dept_code = $1 ORDER BY id")).
		WithArgs("CS").
		WillReturnRows(sqlmock.NewRows(letterRowColumns))

	letters, err := repo.ListByDepartment(context.Background(), "CS")
	require.NoError(t, err)
	assert.NotNil(t, letters)
	assert.Empty(t, letters)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLetterRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLetterRepository(db)

	mock.ExpectQuery("INSERT INTO grievance_letters").
		WithArgs("Leak", "...", sqlmock.AnyArg(), false, int64(3), nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))

	letter := &models.GrievanceLetter{Title: "Leak", Body: "...", StudentID: 3}
	require.NoError(t, repo.Create(context.Background(), letter))
	assert.Equal(t, int64(11), letter.ID)
	assert.False(t, letter.CreatedOn.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLetterRepositoryApplyPatchWritesChanges(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLetterRepository(db)

	created := time.Now().Add(-time.Hour)
	now := time.Date(2024, 3, 1, 9, 0, 0, 123456789, time.UTC)
	stamped := time.Date(2024, 3, 1, 9, 0, 0, 123456000, time.UTC)
	status := true

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM grievance_letters WHERE id = $1 FOR UPDATE")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(letterRowColumns).AddRow(1, "Leak", "...", created, false, nil, nil, nil, nil, nil, 3, nil))
	mock.ExpectExec("UPDATE grievance_letters SET").
		WithArgs(int64(1), true, stamped, nil, nil, nil, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	letter, changed, err := repo.ApplyPatch(context.Background(), 1, models.LetterPatch{Status: &status}, now)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, letter.Status)
	assert.Equal(t, stamped, *letter.StatusUpdated, "stamps are kept at TIMESTAMPTZ precision")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLetterRepositoryApplyPatchSkipsUnchanged(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLetterRepository(db)

	stamped := time.Now().Add(-time.Hour)
	status := true

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(letterRowColumns).AddRow(1, "Leak", "...", stamped, true, stamped, nil, nil, nil, nil, 3, nil))
	mock.ExpectCommit()

	letter, changed, err := repo.ApplyPatch(context.Background(), 1, models.LetterPatch{Status: &status}, time.Now())
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, stamped, *letter.StatusUpdated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLetterRepositoryApplyPatchMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLetterRepository(db)

	status := true
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs(int64(42)).WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, _, err := repo.ApplyPatch(context.Background(), 42, models.LetterPatch{Status: &status}, time.Now())
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLetterRepositoryDeleteAndList(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLetterRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM grievance_letters WHERE id = $1")).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM grievance_letters ORDER BY id").
		WillReturnRows(sqlmock.NewRows(letterRowColumns).AddRow(2, "Noise", "...", time.Now(), false, nil, nil, nil, nil, nil, 4, nil))
	mock.ExpectCommit()

	remaining, err := repo.DeleteAndList(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, int64(2), remaining[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLetterRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLetterRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM grievance_letters").
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.DeleteAndList(context.Background(), 9)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
