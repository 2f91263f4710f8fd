package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/grievance-box-api/internal/dto"
	"github.com/noah-isme/grievance-box-api/internal/identity"
	"github.com/noah-isme/grievance-box-api/internal/models"
	"github.com/noah-isme/grievance-box-api/internal/repository"
	appErrors "github.com/noah-isme/grievance-box-api/pkg/errors"
)

type mockIdentityRepo struct {
	bands    identity.Bands
	emails   map[models.Role]map[string]bool
	admins   []models.Admin
	teachers []models.Teacher
	students []models.Student
	index    map[int64]models.Role
	err      error
	createFn func(role models.Role) error
}

func newMockIdentityRepo() *mockIdentityRepo {
	return &mockIdentityRepo{
		bands:  testBands,
		emails: map[models.Role]map[string]bool{},
		index:  map[int64]models.Role{},
	}
}

func (m *mockIdentityRepo) EmailExists(ctx context.Context, role models.Role, email string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.emails[role][email], nil
}

func (m *mockIdentityRepo) register(role models.Role, email string, localID int64) (int64, error) {
	if m.createFn != nil {
		if err := m.createFn(role); err != nil {
			return 0, err
		}
	}
	globalID, err := m.bands.Register(role, localID)
	if err != nil {
		return 0, fmt.Errorf("register: %w", err)
	}
	if m.emails[role] == nil {
		m.emails[role] = map[string]bool{}
	}
	m.emails[role][email] = true
	m.index[globalID] = role
	return globalID, nil
}

func (m *mockIdentityRepo) CreateAdmin(ctx context.Context, admin *models.Admin) (int64, error) {
	id := int64(len(m.admins) + 1)
	globalID, err := m.register(models.RoleAdmin, admin.Email, id)
	if err != nil {
		return 0, err
	}
	admin.ID = id
	m.admins = append(m.admins, *admin)
	return globalID, nil
}

func (m *mockIdentityRepo) CreateTeacher(ctx context.Context, teacher *models.Teacher) (int64, error) {
	id := int64(len(m.teachers) + 1)
	globalID, err := m.register(models.RoleTeacher, teacher.Email, id)
	if err != nil {
		return 0, err
	}
	teacher.ID = id
	m.teachers = append(m.teachers, *teacher)
	return globalID, nil
}

func (m *mockIdentityRepo) CreateStudent(ctx context.Context, student *models.Student) (int64, error) {
	id := int64(len(m.students) + 1)
	globalID, err := m.register(models.RoleStudent, student.Email, id)
	if err != nil {
		return 0, err
	}
	student.ID = id
	m.students = append(m.students, *student)
	return globalID, nil
}

func (m *mockIdentityRepo) ListAdmins(ctx context.Context) ([]models.Admin, error) {
	return m.admins, m.err
}

func (m *mockIdentityRepo) ListTeachers(ctx context.Context) ([]models.Teacher, error) {
	return m.teachers, m.err
}

func (m *mockIdentityRepo) ListStudents(ctx context.Context) ([]models.Student, error) {
	return m.students, m.err
}

func (m *mockIdentityRepo) FindAdminByID(ctx context.Context, id int64) (*models.Admin, error) {
	for i := range m.admins {
		if m.admins[i].ID == id {
			return &m.admins[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockIdentityRepo) FindTeacherByID(ctx context.Context, id int64) (*models.Teacher, error) {
	for i := range m.teachers {
		if m.teachers[i].ID == id {
			return &m.teachers[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockIdentityRepo) FindStudentByID(ctx context.Context, id int64) (*models.Student, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.students {
		if m.students[i].ID == id {
			return &m.students[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func newTestIdentityService(repo *mockIdentityRepo) *IdentityService {
	svc := NewIdentityService(repo, nil, nil)
	svc.bcryptCost = bcrypt.MinCost
	return svc
}

var adminSession = &models.Session{ID: "admin", Principal: models.Principal{Role: models.RoleAdmin, LocalID: 1, GlobalID: 1}}

func TestIdentityServiceAddStudentRegistersInStudentBand(t *testing.T) {
	repo := newMockIdentityRepo()
	svc := newTestIdentityService(repo)

	for i := 0; i < 3; i++ {
		_, err := svc.AddStudent(context.Background(), adminSession, dto.CreateStudentRequest{
			Name: "S", Email: fmt.Sprintf("s%d@x.com", i), Password: "secret1", Sem: 1, Dept: "CS",
		})
		require.NoError(t, err)
	}

	student, err := svc.GetStudent(context.Background(), 3)
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", student.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(student.PasswordHash), []byte("secret1")))
	assert.Equal(t, models.RoleStudent, repo.index[303])
}

func TestIdentityServiceAddTeacherDuplicateEmail(t *testing.T) {
	repo := newMockIdentityRepo()
	svc := newTestIdentityService(repo)
	req := dto.CreateTeacherRequest{Name: "T", Email: "t@x.com", Password: "secret1", Dept: "EE"}

	_, err := svc.AddTeacher(context.Background(), adminSession, req)
	require.NoError(t, err)

	_, err = svc.AddTeacher(context.Background(), adminSession, req)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrConflict)
	assert.Contains(t, err.Error(), "Teacher already exist")
	assert.Len(t, repo.teachers, 1)
}

func TestIdentityServiceSameEmailAcrossRoles(t *testing.T) {
	svc := newTestIdentityService(newMockIdentityRepo())

	_, err := svc.AddAdmin(context.Background(), adminSession, dto.CreateAdminRequest{Name: "A", Email: "same@x.com", Password: "secret1"})
	require.NoError(t, err)
	_, err = svc.AddStudent(context.Background(), adminSession, dto.CreateStudentRequest{Name: "A", Email: "same@x.com", Password: "secret1", Sem: 2, Dept: "CS"})
	assert.NoError(t, err)
}

func TestIdentityServiceDuplicateFromStore(t *testing.T) {
	repo := newMockIdentityRepo()
	repo.createFn = func(models.Role) error { return fmt.Errorf("insert Admin: %w", repository.ErrDuplicate) }
	svc := newTestIdentityService(repo)

	_, err := svc.AddAdmin(context.Background(), adminSession, dto.CreateAdminRequest{Name: "A", Email: "a@x.com", Password: "secret1"})
	assert.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestIdentityServiceBandExhausted(t *testing.T) {
	repo := newMockIdentityRepo()
	repo.bands = identity.Bands{Admin: 0, Teacher: 1, Student: 2}
	svc := newTestIdentityService(repo)

	_, err := svc.AddAdmin(context.Background(), adminSession, dto.CreateAdminRequest{Name: "A", Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.AddAdmin(context.Background(), adminSession, dto.CreateAdminRequest{Name: "B", Email: "b@x.com", Password: "secret1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrConflict)
	assert.ErrorIs(t, err, identity.ErrBandExhausted)
	assert.Len(t, repo.admins, 1)
}

func TestIdentityServiceValidation(t *testing.T) {
	svc := newTestIdentityService(newMockIdentityRepo())

	_, err := svc.AddStudent(context.Background(), adminSession, dto.CreateStudentRequest{Name: "S", Email: "bad", Password: "secret1", Sem: 1, Dept: "CS"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.AddTeacher(context.Background(), adminSession, dto.CreateTeacherRequest{Name: "T", Email: "t@x.com", Password: "123", Dept: "EE"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.AddAdmin(context.Background(), adminSession, dto.CreateAdminRequest{Email: "a@x.com", Password: "secret1"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestIdentityServiceLookups(t *testing.T) {
	repo := newMockIdentityRepo()
	svc := newTestIdentityService(repo)

	_, err := svc.GetAdmin(context.Background(), 1)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	_, err = svc.GetTeacher(context.Background(), 1)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	repo.err = errors.New("connection refused")
	_, err = svc.GetStudent(context.Background(), 1)
	assert.ErrorIs(t, err, appErrors.ErrStoreUnavailable)
	_, err = svc.ListStudents(context.Background())
	assert.ErrorIs(t, err, appErrors.ErrStoreUnavailable)
}

func TestIdentityServiceBootstrapAdminOnlyOnEmptyTable(t *testing.T) {
	repo := newMockIdentityRepo()
	svc := newTestIdentityService(repo)
	req := dto.CreateAdminRequest{Name: "Root", Email: "root@school.edu", Password: "secret1"}

	created, err := svc.BootstrapAdmin(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, created)
	require.Len(t, repo.admins, 1)
	assert.Equal(t, models.RoleAdmin, repo.index[1])
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.admins[0].PasswordHash), []byte("secret1")))

	created, err = svc.BootstrapAdmin(context.Background(), dto.CreateAdminRequest{Name: "Other", Email: "other@school.edu", Password: "secret2"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Len(t, repo.admins, 1)
}

func TestIdentityServiceBootstrapAdminStoreFailure(t *testing.T) {
	repo := newMockIdentityRepo()
	repo.err = errors.New("connection refused")
	svc := newTestIdentityService(repo)

	_, err := svc.BootstrapAdmin(context.Background(), dto.CreateAdminRequest{Name: "Root", Email: "root@school.edu", Password: "secret1"})
	assert.ErrorIs(t, err, appErrors.ErrStoreUnavailable)
}
