package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/grievance-box-api/internal/models"
)

const letterColumns = `id, title, body, created_on, status, status_updated, actions, actions_updated, comments, comments_updated, student_id, dept_code`

// LetterRepository manages persistence for grievance letters.
type LetterRepository struct {
	db *sqlx.DB
}

// NewLetterRepository constructs a LetterRepository.
func NewLetterRepository(db *sqlx.DB) *LetterRepository {
	return &LetterRepository{db: db}
}

type queryer interface {
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

func selectLetters(ctx context.Context, q queryer, where string, args ...interface{}) ([]models.GrievanceLetter, error) {
	query := "SELECT " + letterColumns + " FROM grievance_letters"
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY id"
	letters := []models.GrievanceLetter{}
	if err := q.SelectContext(ctx, &letters, query, args...); err != nil {
		return nil, err
	}
	return letters, nil
}

// List returns every letter.
func (r *LetterRepository) List(ctx context.Context) ([]models.GrievanceLetter, error) {
	letters, err := selectLetters(ctx, r.db, "")
	if err != nil {
		return nil, fmt.Errorf("list letters: %w", err)
	}
	return letters, nil
}

// ListByStudent returns the letters filed by a student.
func (r *LetterRepository) ListByStudent(ctx context.Context, studentID int64) ([]models.GrievanceLetter, error) {
	letters, err := selectLetters(ctx, r.db, "student_id = $1", studentID)
	if err != nil {
		return nil, fmt.Errorf("list student letters: %w", err)
	}
	return letters, nil
}

// ListByDepartment returns the letters routed to a department.
func (r *LetterRepository) ListByDepartment(ctx context.Context, deptCode string) ([]models.GrievanceLetter, error) {
	letters, err := selectLetters(ctx, r.db, "dept_code = $1", deptCode)
	if err != nil {
		return nil, fmt.Errorf("list department letters: %w", err)
	}
	return letters, nil
}

// FindByID fetches a letter. It returns sql.ErrNoRows when the letter does not exist.
func (r *LetterRepository) FindByID(ctx context.Context, id int64) (*models.GrievanceLetter, error) {
	query := "SELECT " + letterColumns + " FROM grievance_letters WHERE id = $1"
	var letter models.GrievanceLetter
	if err := r.db.GetContext(ctx, &letter, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find letter: %w", err)
	}
	return &letter, nil
}

// Create inserts a new unresolved letter.
func (r *LetterRepository) Create(ctx context.Context, letter *models.GrievanceLetter) error {
	if letter.CreatedOn.IsZero() {
		letter.CreatedOn = time.Now().UTC().Truncate(time.Microsecond)
	}
	const query = `INSERT INTO grievance_letters (title, body, created_on, status, student_id, dept_code) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query, letter.Title, letter.Body, letter.CreatedOn, letter.Status, letter.StudentID, letter.DeptCode).Scan(&letter.ID); err != nil {
		return fmt.Errorf("create letter: %w", err)
	}
	return nil
}

// ApplyPatch locks the letter, applies the patch with per-field change detection and
// writes it back when something changed. It returns sql.ErrNoRows for a missing letter.
func (r *LetterRepository) ApplyPatch(ctx context.Context, id int64, patch models.LetterPatch, now time.Time) (letter *models.GrievanceLetter, changed bool, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin letter update: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var current models.GrievanceLetter
	lockQuery := "SELECT " + letterColumns + " FROM grievance_letters WHERE id = $1 FOR UPDATE"
	if err = tx.GetContext(ctx, &current, lockQuery, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, err
		}
		return nil, false, fmt.Errorf("lock letter: %w", err)
	}

	if !current.Apply(patch, now.Truncate(time.Microsecond)) {
		if err = tx.Commit(); err != nil {
			return nil, false, fmt.Errorf("commit letter read: %w", err)
		}
		return &current, false, nil
	}

	const updateQuery = `UPDATE grievance_letters SET status = $2, status_updated = $3, actions = $4, actions_updated = $5, comments = $6, comments_updated = $7, dept_code = $8 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, updateQuery, current.ID, current.Status, current.StatusUpdated, current.Actions, current.ActionsUpdated, current.Comments, current.CommentsUpdated, current.DeptCode); err != nil {
		return nil, false, fmt.Errorf("update letter: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit letter update: %w", err)
	}
	return &current, true, nil
}

// DeleteAndList removes a letter and returns the letters that remain, read in the same
// transaction. It returns sql.ErrNoRows when nothing was deleted.
func (r *LetterRepository) DeleteAndList(ctx context.Context, id int64) (remaining []models.GrievanceLetter, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin letter delete: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM grievance_letters WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("delete letter: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("delete letter rows: %w", err)
	}
	if affected == 0 {
		err = sql.ErrNoRows
		return nil, err
	}

	remaining, err = selectLetters(ctx, tx, "")
	if err != nil {
		return nil, fmt.Errorf("list remaining letters: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit letter delete: %w", err)
	}
	return remaining, nil
}
