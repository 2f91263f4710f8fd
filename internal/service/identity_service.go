package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/grievance-box-api/internal/dto"
	"github.com/noah-isme/grievance-box-api/internal/identity"
	"github.com/noah-isme/grievance-box-api/internal/models"
	"github.com/noah-isme/grievance-box-api/internal/repository"
	appErrors "github.com/noah-isme/grievance-box-api/pkg/errors"
)

type identityRepository interface {
	EmailExists(ctx context.Context, role models.Role, email string) (bool, error)
	CreateAdmin(ctx context.Context, admin *models.Admin) (int64, error)
	CreateTeacher(ctx context.Context, teacher *models.Teacher) (int64, error)
	CreateStudent(ctx context.Context, student *models.Student) (int64, error)
	ListAdmins(ctx context.Context) ([]models.Admin, error)
	ListTeachers(ctx context.Context) ([]models.Teacher, error)
	ListStudents(ctx context.Context) ([]models.Student, error)
	FindAdminByID(ctx context.Context, id int64) (*models.Admin, error)
	FindTeacherByID(ctx context.Context, id int64) (*models.Teacher, error)
	FindStudentByID(ctx context.Context, id int64) (*models.Student, error)
}

// IdentityService manages admin, teacher and student accounts.
type IdentityService struct {
	repo       identityRepository
	validator  *validator.Validate
	logger     *zap.Logger
	bcryptCost int
}

// NewIdentityService creates an instance of IdentityService.
func NewIdentityService(repo identityRepository, validate *validator.Validate, logger *zap.Logger) *IdentityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &IdentityService{repo: repo, validator: validate, logger: logger, bcryptCost: bcrypt.DefaultCost}
}

// AddAdmin creates an admin account.
func (s *IdentityService) AddAdmin(ctx context.Context, actor *models.Session, req dto.CreateAdminRequest) (*models.Admin, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid admin payload")
	}
	if err := s.ensureEmailFree(ctx, models.RoleAdmin, req.Email); err != nil {
		return nil, err
	}
	hash, err := s.hash(req.Password)
	if err != nil {
		return nil, err
	}

	admin := &models.Admin{Email: req.Email, PasswordHash: hash, Name: req.Name}
	globalID, err := s.repo.CreateAdmin(ctx, admin)
	if err != nil {
		return nil, s.createError(models.RoleAdmin, err)
	}
	s.logCreated(actor, models.RoleAdmin, admin.ID, globalID)
	return admin, nil
}

// BootstrapAdmin creates the first admin account when none exists, so a fresh deployment
// can log in without hand-written hashes. It reports whether an account was created.
func (s *IdentityService) BootstrapAdmin(ctx context.Context, req dto.CreateAdminRequest) (bool, error) {
	admins, err := s.repo.ListAdmins(ctx)
	if err != nil {
		return false, appErrors.Store(err, "failed to list admins")
	}
	if len(admins) > 0 {
		return false, nil
	}
	if _, err := s.AddAdmin(ctx, nil, req); err != nil {
		return false, err
	}
	return true, nil
}

// AddTeacher creates a teacher account.
func (s *IdentityService) AddTeacher(ctx context.Context, actor *models.Session, req dto.CreateTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid teacher payload")
	}
	if err := s.ensureEmailFree(ctx, models.RoleTeacher, req.Email); err != nil {
		return nil, err
	}
	hash, err := s.hash(req.Password)
	if err != nil {
		return nil, err
	}

	teacher := &models.Teacher{Email: req.Email, PasswordHash: hash, Name: req.Name, DeptCode: req.Dept}
	globalID, err := s.repo.CreateTeacher(ctx, teacher)
	if err != nil {
		return nil, s.createError(models.RoleTeacher, err)
	}
	s.logCreated(actor, models.RoleTeacher, teacher.ID, globalID)
	return teacher, nil
}

// AddStudent creates a student account.
func (s *IdentityService) AddStudent(ctx context.Context, actor *models.Session, req dto.CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid student payload")
	}
	if err := s.ensureEmailFree(ctx, models.RoleStudent, req.Email); err != nil {
		return nil, err
	}
	hash, err := s.hash(req.Password)
	if err != nil {
		return nil, err
	}

	student := &models.Student{Email: req.Email, PasswordHash: hash, Name: req.Name, Sem: req.Sem, DeptCode: req.Dept}
	globalID, err := s.repo.CreateStudent(ctx, student)
	if err != nil {
		return nil, s.createError(models.RoleStudent, err)
	}
	s.logCreated(actor, models.RoleStudent, student.ID, globalID)
	return student, nil
}

// ListAdmins returns every admin.
func (s *IdentityService) ListAdmins(ctx context.Context) ([]models.Admin, error) {
	admins, err := s.repo.ListAdmins(ctx)
	if err != nil {
		return nil, appErrors.Store(err, "failed to list admins")
	}
	return admins, nil
}

// ListTeachers returns every teacher.
func (s *IdentityService) ListTeachers(ctx context.Context) ([]models.Teacher, error) {
	teachers, err := s.repo.ListTeachers(ctx)
	if err != nil {
		return nil, appErrors.Store(err, "failed to list teachers")
	}
	return teachers, nil
}

// ListStudents returns every student.
func (s *IdentityService) ListStudents(ctx context.Context) ([]models.Student, error) {
	students, err := s.repo.ListStudents(ctx)
	if err != nil {
		return nil, appErrors.Store(err, "failed to list students")
	}
	return students, nil
}

// GetAdmin returns an admin by local id.
func (s *IdentityService) GetAdmin(ctx context.Context, id int64) (*models.Admin, error) {
	admin, err := s.repo.FindAdminByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "admin")
	}
	return admin, nil
}

// GetTeacher returns a teacher by local id.
func (s *IdentityService) GetTeacher(ctx context.Context, id int64) (*models.Teacher, error) {
	teacher, err := s.repo.FindTeacherByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "teacher")
	}
	return teacher, nil
}

// GetStudent returns a student by local id.
func (s *IdentityService) GetStudent(ctx context.Context, id int64) (*models.Student, error) {
	student, err := s.repo.FindStudentByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "student")
	}
	return student, nil
}

func (s *IdentityService) ensureEmailFree(ctx context.Context, role models.Role, email string) error {
	exists, err := s.repo.EmailExists(ctx, role, email)
	if err != nil {
		return appErrors.Store(err, "failed to check email uniqueness")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("%s already exist", role))
	}
	return nil
}

func (s *IdentityService) hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	return string(hash), nil
}

func (s *IdentityService) createError(role models.Role, err error) error {
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, fmt.Sprintf("%s already exist", role))
	case errors.Is(err, identity.ErrBandExhausted):
		s.logger.Error("identity band exhausted", zap.String("role", string(role)), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "identity band exhausted")
	default:
		return appErrors.Store(err, fmt.Sprintf("failed to create %s", role))
	}
}

func (s *IdentityService) logCreated(actor *models.Session, role models.Role, localID, globalID int64) {
	fields := []zap.Field{
		zap.String("role", string(role)),
		zap.Int64("id", localID),
		zap.Int64("global_id", globalID),
	}
	if actor != nil {
		fields = append(fields, zap.Stringer("actor", actor.Principal))
	}
	s.logger.Info("identity created", fields...)
}

func lookupError(err error, resource string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, resource+" not found")
	}
	return appErrors.Store(err, "failed to load "+resource)
}
