package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/grievance-box-api/internal/identity"
	"github.com/noah-isme/grievance-box-api/internal/models"
)

// IdentityRepository provides access to the admins, teachers and students tables and keeps
// the unified user index in step with them.
type IdentityRepository struct {
	db    *sqlx.DB
	bands identity.Bands
}

// NewIdentityRepository creates a new instance of IdentityRepository.
func NewIdentityRepository(db *sqlx.DB, bands identity.Bands) *IdentityRepository {
	return &IdentityRepository{db: db, bands: bands}
}

func tableFor(role models.Role) (string, error) {
	switch role {
	case models.RoleAdmin:
		return "admins", nil
	case models.RoleTeacher:
		return "teachers", nil
	case models.RoleStudent:
		return "students", nil
	default:
		return "", fmt.Errorf("%w: %q", identity.ErrUnknownRole, role)
	}
}

// FindCredentialsByEmail returns the login view of an identity of the given role.
func (r *IdentityRepository) FindCredentialsByEmail(ctx context.Context, role models.Role, email string) (*models.Credentials, error) {
	table, err := tableFor(role)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT id, email, password_hash, name FROM %s WHERE email = $1 LIMIT 1`, table)
	var creds models.Credentials
	if err := r.db.GetContext(ctx, &creds, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find %s credentials: %w", role, err)
	}
	return &creds, nil
}

// EmailExists reports whether an identity of the role already uses the email.
func (r *IdentityRepository) EmailExists(ctx context.Context, role models.Role, email string) (bool, error) {
	table, err := tableFor(role)
	if err != nil {
		return false, err
	}
	query := fmt.Sprintf(`SELECT 1 FROM %s WHERE email = $1 LIMIT 1`, table)
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, email); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check %s email: %w", role, err)
	}
	return true, nil
}

// FindIndexEntry returns the unified user index row for a global id.
func (r *IdentityRepository) FindIndexEntry(ctx context.Context, globalID int64) (*models.UserIndexEntry, error) {
	const query = `SELECT id, role FROM users WHERE id = $1`
	var entry models.UserIndexEntry
	if err := r.db.GetContext(ctx, &entry, query, globalID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user index entry: %w", err)
	}
	return &entry, nil
}

// CreateAdmin inserts an admin and its user index row in one transaction.
func (r *IdentityRepository) CreateAdmin(ctx context.Context, admin *models.Admin) (int64, error) {
	const query = `INSERT INTO admins (email, password_hash, name) VALUES ($1, $2, $3) RETURNING id`
	return r.create(ctx, models.RoleAdmin, &admin.ID, query, admin.Email, admin.PasswordHash, admin.Name)
}

// CreateTeacher inserts a teacher and its user index row in one transaction.
func (r *IdentityRepository) CreateTeacher(ctx context.Context, teacher *models.Teacher) (int64, error) {
	const query = `INSERT INTO teachers (email, password_hash, name, dept_code) VALUES ($1, $2, $3, $4) RETURNING id`
	return r.create(ctx, models.RoleTeacher, &teacher.ID, query, teacher.Email, teacher.PasswordHash, teacher.Name, teacher.DeptCode)
}

// CreateStudent inserts a student and its user index row in one transaction.
func (r *IdentityRepository) CreateStudent(ctx context.Context, student *models.Student) (int64, error) {
	const query = `INSERT INTO students (email, password_hash, name, sem, dept_code) VALUES ($1, $2, $3, $4, $5) RETURNING id`
	return r.create(ctx, models.RoleStudent, &student.ID, query, student.Email, student.PasswordHash, student.Name, student.Sem, student.DeptCode)
}

// create runs the identity insert, registers the new local id in the user index and
// returns the global id. Nothing is persisted unless both rows are written.
func (r *IdentityRepository) create(ctx context.Context, role models.Role, localID *int64, insert string, args ...interface{}) (globalID int64, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin %s transaction: %w", role, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var id int64
	if err = tx.QueryRowxContext(ctx, insert, args...).Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("insert %s: %w", role, ErrDuplicate)
		}
		return 0, fmt.Errorf("insert %s: %w", role, err)
	}

	globalID, err = r.bands.Register(role, id)
	if err != nil {
		return 0, err
	}

	const indexQuery = `INSERT INTO users (id, role) VALUES ($1, $2)`
	if _, err = tx.ExecContext(ctx, indexQuery, globalID, role); err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("register %s in user index: %w", role, ErrDuplicate)
		}
		return 0, fmt.Errorf("register %s in user index: %w", role, err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit %s: %w", role, err)
	}
	*localID = id
	return globalID, nil
}

// ListAdmins returns every admin ordered by id.
func (r *IdentityRepository) ListAdmins(ctx context.Context) ([]models.Admin, error) {
	const query = `SELECT id, email, password_hash, name FROM admins ORDER BY id`
	admins := []models.Admin{}
	if err := r.db.SelectContext(ctx, &admins, query); err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	return admins, nil
}

// ListTeachers returns every teacher ordered by id.
func (r *IdentityRepository) ListTeachers(ctx context.Context) ([]models.Teacher, error) {
	const query = `SELECT id, email, password_hash, name, dept_code FROM teachers ORDER BY id`
	teachers := []models.Teacher{}
	if err := r.db.SelectContext(ctx, &teachers, query); err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	return teachers, nil
}

// ListStudents returns every student ordered by id.
func (r *IdentityRepository) ListStudents(ctx context.Context) ([]models.Student, error) {
	const query = `SELECT id, email, password_hash, name, sem, dept_code FROM students ORDER BY id`
	students := []models.Student{}
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// FindAdminByID returns an admin by local id.
func (r *IdentityRepository) FindAdminByID(ctx context.Context, id int64) (*models.Admin, error) {
	const query = `SELECT id, email, password_hash, name FROM admins WHERE id = $1`
	var admin models.Admin
	if err := r.db.GetContext(ctx, &admin, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find admin: %w", err)
	}
	return &admin, nil
}

// FindTeacherByID returns a teacher by local id.
func (r *IdentityRepository) FindTeacherByID(ctx context.Context, id int64) (*models.Teacher, error) {
	const query = `SELECT id, email, password_hash, name, dept_code FROM teachers WHERE id = $1`
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find teacher: %w", err)
	}
	return &teacher, nil
}

// FindStudentByID returns a student by local id.
func (r *IdentityRepository) FindStudentByID(ctx context.Context, id int64) (*models.Student, error) {
	const query = `SELECT id, email, password_hash, name, sem, dept_code FROM students WHERE id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &student, nil
}
