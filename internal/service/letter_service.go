package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/grievance-box-api/internal/dto"
	"github.com/noah-isme/grievance-box-api/internal/models"
	appErrors "github.com/noah-isme/grievance-box-api/pkg/errors"
	"github.com/noah-isme/grievance-box-api/pkg/export"
)

type letterRepository interface {
	List(ctx context.Context) ([]models.GrievanceLetter, error)
	ListByStudent(ctx context.Context, studentID int64) ([]models.GrievanceLetter, error)
	ListByDepartment(ctx context.Context, deptCode string) ([]models.GrievanceLetter, error)
	FindByID(ctx context.Context, id int64) (*models.GrievanceLetter, error)
	Create(ctx context.Context, letter *models.GrievanceLetter) error
	ApplyPatch(ctx context.Context, id int64, patch models.LetterPatch, now time.Time) (*models.GrievanceLetter, bool, error)
	DeleteAndList(ctx context.Context, id int64) ([]models.GrievanceLetter, error)
}

type datasetRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
	ContentType() string
	Extension() string
}

// ExportFile is a rendered letter export ready to be served.
type ExportFile struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// LetterService implements the grievance letter workflows.
type LetterService struct {
	repo      letterRepository
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	renderers map[dto.ExportFormat]datasetRenderer
	now       func() time.Time
}

// NewLetterService constructs a LetterService.
func NewLetterService(repo letterRepository, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *LetterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &LetterService{
		repo:      repo,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		renderers: map[dto.ExportFormat]datasetRenderer{
			dto.ExportFormatCSV: export.NewCSVExporter(),
			dto.ExportFormatPDF: export.NewPDFExporter(),
		},
		now: storeNow,
	}
}

// Create files a new letter. Students may only file under their own id; a missing
// student id defaults to the caller.
func (s *LetterService) Create(ctx context.Context, session *models.Session, req dto.CreateLetterRequest) (*models.GrievanceLetter, error) {
	if session == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid letter payload")
	}

	var studentID int64
	switch {
	case req.StudentID != nil:
		studentID = *req.StudentID
	case session.Principal.Role == models.RoleStudent:
		studentID = session.Principal.LocalID
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "student_id is required")
	}
	if session.Principal.Role == models.RoleStudent && studentID != session.Principal.LocalID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "letters can only be filed under your own student id")
	}

	letter := &models.GrievanceLetter{
		Title:     req.Title,
		Body:      req.Body,
		CreatedOn: s.now(),
		StudentID: studentID,
	}
	if err := s.repo.Create(ctx, letter); err != nil {
		return nil, appErrors.Store(err, "failed to create letter")
	}
	s.metrics.RecordLetterFiled()
	s.logger.Info("letter filed", zap.Int64("letter_id", letter.ID), zap.Int64("student_id", studentID))
	return letter, nil
}

// ListAll returns every letter.
func (s *LetterService) ListAll(ctx context.Context) ([]models.GrievanceLetter, error) {
	letters, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Store(err, "failed to list letters")
	}
	return letters, nil
}

// ListByStudent returns the letters filed by a student.
func (s *LetterService) ListByStudent(ctx context.Context, studentID int64) ([]models.GrievanceLetter, error) {
	letters, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Store(err, "failed to list student letters")
	}
	return letters, nil
}

// ListByDepartment returns the letters routed to a department.
func (s *LetterService) ListByDepartment(ctx context.Context, deptCode string) ([]models.GrievanceLetter, error) {
	if deptCode == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "department code is required")
	}
	letters, err := s.repo.ListByDepartment(ctx, deptCode)
	if err != nil {
		return nil, appErrors.Store(err, "failed to list department letters")
	}
	return letters, nil
}

// Get returns a letter by id.
func (s *LetterService) Get(ctx context.Context, id int64) (*models.GrievanceLetter, error) {
	letter, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "letter")
	}
	return letter, nil
}

// Update applies the patch to a letter. When fields are given, only those fields are taken
// from the patch and each of them must be present.
func (s *LetterService) Update(ctx context.Context, session *models.Session, id int64, req dto.UpdateLetterRequest, fields ...models.LetterField) (*models.GrievanceLetter, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid letter update payload")
	}
	patch := req.Patch()
	if len(fields) > 0 {
		for _, f := range fields {
			if !patch.Has(f) {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s is required", f))
			}
		}
		patch = patch.Only(fields...)
	}
	if patch.Empty() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no fields to update")
	}

	letter, changed, err := s.repo.ApplyPatch(ctx, id, patch, s.now())
	if err != nil {
		return nil, lookupError(err, "letter")
	}
	s.metrics.RecordLetterUpdate(changed)
	if changed {
		fields := []zap.Field{zap.Int64("letter_id", id)}
		if session != nil {
			fields = append(fields, zap.Stringer("actor", session.Principal))
		}
		s.logger.Info("letter updated", fields...)
	}
	return letter, nil
}

// Delete removes a letter and returns the remaining letters. Students may only delete
// their own letters.
func (s *LetterService) Delete(ctx context.Context, session *models.Session, id int64) ([]models.GrievanceLetter, error) {
	if session == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "")
	}
	if session.Principal.Role == models.RoleStudent {
		letter, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, lookupError(err, "letter")
		}
		if letter.StudentID != session.Principal.LocalID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "letter belongs to another student")
		}
	}

	remaining, err := s.repo.DeleteAndList(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "letter not found")
		}
		return nil, appErrors.Store(err, "failed to delete letter")
	}
	s.logger.Info("letter deleted", zap.Int64("letter_id", id), zap.Stringer("actor", session.Principal))
	return remaining, nil
}

// Export renders every letter in the requested format.
func (s *LetterService) Export(ctx context.Context, format dto.ExportFormat) (*ExportFile, error) {
	if format == "" {
		format = dto.ExportFormatCSV
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	letters, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Store(err, "failed to list letters")
	}

	payload, err := renderer.Render(letterDataset(letters), "Grievance letters")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	now := s.now()
	return &ExportFile{
		Filename:    fmt.Sprintf("grievance-letters-%s.%s", now.Format("20060102-150405"), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Payload:     payload,
	}, nil
}

// storeNow returns the current time at the precision TIMESTAMPTZ keeps, so stamps echoed in
// responses match what a later read returns.
func storeNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

var letterExportHeaders = []string{"id", "title", "body", "created_on", "status", "status_updated", "actions", "actions_updated", "comments", "comments_updated", "student_id", "dept_code"}

func letterDataset(letters []models.GrievanceLetter) export.Dataset {
	rows := make([]map[string]string, 0, len(letters))
	for _, l := range letters {
		rows = append(rows, map[string]string{
			"id":               strconv.FormatInt(l.ID, 10),
			"title":            l.Title,
			"body":             l.Body,
			"created_on":       formatTime(&l.CreatedOn),
			"status":           strconv.FormatBool(l.Status),
			"status_updated":   formatTime(l.StatusUpdated),
			"actions":          deref(l.Actions),
			"actions_updated":  formatTime(l.ActionsUpdated),
			"comments":         deref(l.Comments),
			"comments_updated": formatTime(l.CommentsUpdated),
			"student_id":       strconv.FormatInt(l.StudentID, 10),
			"dept_code":        deref(l.DeptCode),
		})
	}
	return export.Dataset{
		Headers: letterExportHeaders,
		Rows:    rows,
		Widths:  []float64{1, 4, 8, 3, 1.5, 3, 4, 3, 4, 3, 1.5, 2},
	}
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
