package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/grievance-box-api/internal/dto"
	"github.com/noah-isme/grievance-box-api/internal/models"
	appErrors "github.com/noah-isme/grievance-box-api/pkg/errors"
)

type mockLetterRepo struct {
	letters map[int64]*models.GrievanceLetter
	nextID  int64
	err     error
}

func newMockLetterRepo() *mockLetterRepo {
	return &mockLetterRepo{letters: map[int64]*models.GrievanceLetter{}}
}

func (m *mockLetterRepo) sorted(keep func(models.GrievanceLetter) bool) []models.GrievanceLetter {
	out := []models.GrievanceLetter{}
	for _, l := range m.letters {
		if keep == nil || keep(*l) {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *mockLetterRepo) List(ctx context.Context) ([]models.GrievanceLetter, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.sorted(nil), nil
}

func (m *mockLetterRepo) ListByStudent(ctx context.Context, studentID int64) ([]models.GrievanceLetter, error) {
	return m.sorted(func(l models.GrievanceLetter) bool { return l.StudentID == studentID }), m.err
}

func (m *mockLetterRepo) ListByDepartment(ctx context.Context, deptCode string) ([]models.GrievanceLetter, error) {
	return m.sorted(func(l models.GrievanceLetter) bool { return l.DeptCode != nil && *l.DeptCode == deptCode }), m.err
}

func (m *mockLetterRepo) FindByID(ctx context.Context, id int64) (*models.GrievanceLetter, error) {
	if m.err != nil {
		return nil, m.err
	}
	l, ok := m.letters[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *l
	return &cp, nil
}

func (m *mockLetterRepo) Create(ctx context.Context, letter *models.GrievanceLetter) error {
	if m.err != nil {
		return m.err
	}
	m.nextID++
	letter.ID = m.nextID
	stored := *letter
	m.letters[letter.ID] = &stored
	return nil
}

func (m *mockLetterRepo) ApplyPatch(ctx context.Context, id int64, patch models.LetterPatch, now time.Time) (*models.GrievanceLetter, bool, error) {
	if m.err != nil {
		return nil, false, m.err
	}
	l, ok := m.letters[id]
	if !ok {
		return nil, false, sql.ErrNoRows
	}
	changed := l.Apply(patch, now)
	cp := *l
	return &cp, changed, nil
}

func (m *mockLetterRepo) DeleteAndList(ctx context.Context, id int64) ([]models.GrievanceLetter, error) {
	if m.err != nil {
		return nil, m.err
	}
	if _, ok := m.letters[id]; !ok {
		return nil, sql.ErrNoRows
	}
	delete(m.letters, id)
	return m.sorted(nil), nil
}

func studentSession(id int64) *models.Session {
	return &models.Session{ID: "student", Principal: models.Principal{Role: models.RoleStudent, LocalID: id, GlobalID: id + 300}}
}

func newTestLetterService(repo *mockLetterRepo, clock *time.Time) *LetterService {
	svc := NewLetterService(repo, NewMetricsService(), nil, nil)
	svc.now = func() time.Time { return *clock }
	return svc
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }
func int64Ptr(i int64) *int64 { return &i }

func TestLetterServiceCreateDefaultsToCaller(t *testing.T) {
	clock := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	repo := newMockLetterRepo()
	svc := newTestLetterService(repo, &clock)

	letter, err := svc.Create(context.Background(), studentSession(3), dto.CreateLetterRequest{Title: "Leak", Body: "Water in lab 2"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), letter.StudentID)
	assert.False(t, letter.Status)
	assert.Equal(t, clock, letter.CreatedOn)
	assert.Nil(t, letter.StatusUpdated)
	assert.Nil(t, letter.ActionsUpdated)
	assert.Nil(t, letter.CommentsUpdated)
}

func TestLetterServiceCreateRejectsOtherStudentID(t *testing.T) {
	clock := time.Now()
	svc := newTestLetterService(newMockLetterRepo(), &clock)

	_, err := svc.Create(context.Background(), studentSession(3), dto.CreateLetterRequest{Title: "Leak", Body: "...", StudentID: int64Ptr(4)})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.Create(context.Background(), studentSession(3), dto.CreateLetterRequest{Title: strings.Repeat("x", 251), Body: "..."})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Create(context.Background(), studentSession(3), dto.CreateLetterRequest{Title: "Leak"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestLetterServiceUpdateScenario(t *testing.T) {
	clock := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	repo := newMockLetterRepo()
	svc := newTestLetterService(repo, &clock)
	ctx := context.Background()

	letter, err := svc.Create(ctx, studentSession(3), dto.CreateLetterRequest{Title: "Leak", Body: "..."})
	require.NoError(t, err)

	clock = clock.Add(time.Hour)
	t1 := clock
	updated, err := svc.Update(ctx, adminSession, letter.ID, dto.UpdateLetterRequest{Status: boolPtr(true)}, models.LetterFieldStatus)
	require.NoError(t, err)
	assert.True(t, updated.Status)
	assert.Equal(t, t1, *updated.StatusUpdated)

	clock = clock.Add(time.Hour)
	updated, err = svc.Update(ctx, adminSession, letter.ID, dto.UpdateLetterRequest{Status: boolPtr(true)}, models.LetterFieldStatus)
	require.NoError(t, err)
	assert.Equal(t, t1, *updated.StatusUpdated, "resending the same status must not move its timestamp")

	updated, err = svc.Update(ctx, adminSession, letter.ID, dto.UpdateLetterRequest{Dept: strPtr("CS")}, models.LetterFieldDept)
	require.NoError(t, err)
	assert.Equal(t, "CS", *updated.DeptCode)

	byDept, err := svc.ListByDepartment(ctx, "CS")
	require.NoError(t, err)
	require.Len(t, byDept, 1)
	assert.Equal(t, letter.ID, byDept[0].ID)
}

func TestLetterServiceSingleFieldUpdateRequiresItsField(t *testing.T) {
	clock := time.Now()
	repo := newMockLetterRepo()
	svc := newTestLetterService(repo, &clock)
	letter, err := svc.Create(context.Background(), studentSession(3), dto.CreateLetterRequest{Title: "Leak", Body: "..."})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), adminSession, letter.ID, dto.UpdateLetterRequest{Status: boolPtr(true)}, models.LetterFieldComments)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	updated, err := svc.Update(context.Background(), adminSession, letter.ID, dto.UpdateLetterRequest{Comments: strPtr("seen"), Status: boolPtr(true)}, models.LetterFieldComments)
	require.NoError(t, err)
	assert.False(t, updated.Status, "fields outside the endpoint must be ignored")
	assert.Equal(t, "seen", *updated.Comments)

	_, err = svc.Update(context.Background(), adminSession, letter.ID, dto.UpdateLetterRequest{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestLetterServiceUpdateMissingLetter(t *testing.T) {
	clock := time.Now()
	svc := newTestLetterService(newMockLetterRepo(), &clock)

	_, err := svc.Update(context.Background(), adminSession, 42, dto.UpdateLetterRequest{Actions: strPtr("x")})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestLetterServiceDeleteReturnsRemaining(t *testing.T) {
	clock := time.Now()
	repo := newMockLetterRepo()
	svc := newTestLetterService(repo, &clock)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, studentSession(3), dto.CreateLetterRequest{Title: "T", Body: "B"})
		require.NoError(t, err)
	}

	remaining, err := svc.Delete(ctx, adminSession, 2)
	require.NoError(t, err)
	require.Len(t, remaining, 2)
	assert.Equal(t, int64(1), remaining[0].ID)
	assert.Equal(t, int64(3), remaining[1].ID)

	_, err = svc.Delete(ctx, adminSession, 2)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestLetterServiceStudentDeletesOnlyOwnLetters(t *testing.T) {
	clock := time.Now()
	repo := newMockLetterRepo()
	svc := newTestLetterService(repo, &clock)
	ctx := context.Background()

	mine, err := svc.Create(ctx, studentSession(3), dto.CreateLetterRequest{Title: "T", Body: "B"})
	require.NoError(t, err)
	theirs, err := svc.Create(ctx, studentSession(4), dto.CreateLetterRequest{Title: "T", Body: "B"})
	require.NoError(t, err)

	_, err = svc.Delete(ctx, studentSession(3), theirs.ID)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	remaining, err := svc.Delete(ctx, studentSession(3), mine.ID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, theirs.ID, remaining[0].ID)
}

func TestLetterServiceGetAndStoreErrors(t *testing.T) {
	clock := time.Now()
	repo := newMockLetterRepo()
	svc := newTestLetterService(repo, &clock)

	_, err := svc.Get(context.Background(), 1)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	repo.err = errors.New("connection refused")
	_, err = svc.ListAll(context.Background())
	assert.ErrorIs(t, err, appErrors.ErrStoreUnavailable)
	_, err = svc.Get(context.Background(), 1)
	assert.ErrorIs(t, err, appErrors.ErrStoreUnavailable)
}

func TestLetterServiceExport(t *testing.T) {
	clock := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	repo := newMockLetterRepo()
	svc := newTestLetterService(repo, &clock)
	_, err := svc.Create(context.Background(), studentSession(3), dto.CreateLetterRequest{Title: "Leak", Body: "Water in lab 2"})
	require.NoError(t, err)

	file, err := svc.Export(context.Background(), dto.ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "grievance-letters-20240301-090000.csv", file.Filename)
	assert.Contains(t, string(file.Payload), "1,Leak,Water in lab 2,2024-03-01T09:00:00Z,false")

	file, err = svc.Export(context.Background(), dto.ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Payload, []byte("%PDF-")))

	_, err = svc.Export(context.Background(), dto.ExportFormat("xlsx"))
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestLetterServiceStampsAtStorePrecision(t *testing.T) {
	repo := newMockLetterRepo()
	svc := NewLetterService(repo, NewMetricsService(), nil, nil)

	letter, err := svc.Create(context.Background(), studentSession(3), dto.CreateLetterRequest{Title: "Leak", Body: "Water in lab 2"})
	require.NoError(t, err)
	assert.Zero(t, letter.CreatedOn.Nanosecond()%int(time.Microsecond))

	updated, err := svc.Update(context.Background(), nil, letter.ID, dto.UpdateLetterRequest{Comments: strPtr("seen")}, models.LetterFieldComments)
	require.NoError(t, err)
	require.NotNil(t, updated.CommentsUpdated)
	assert.Zero(t, updated.CommentsUpdated.Nanosecond()%int(time.Microsecond))
}

func TestLetterServiceBoundsLetterText(t *testing.T) {
	clock := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	repo := newMockLetterRepo()
	svc := newTestLetterService(repo, &clock)
	oversized := strings.Repeat("x", dto.MaxLetterTextLength+1)

	_, err := svc.Create(context.Background(), studentSession(3), dto.CreateLetterRequest{Title: "Leak", Body: oversized})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Empty(t, repo.letters)

	letter, err := svc.Create(context.Background(), studentSession(3), dto.CreateLetterRequest{Title: "Leak", Body: strings.Repeat("x", dto.MaxLetterTextLength)})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), nil, letter.ID, dto.UpdateLetterRequest{Comments: &oversized}, models.LetterFieldComments)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	_, err = svc.Update(context.Background(), nil, letter.ID, dto.UpdateLetterRequest{Actions: &oversized}, models.LetterFieldActions)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
