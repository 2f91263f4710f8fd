// Package identity maps the three per-role identity tables onto one flat global user id
// space. Each role owns a band starting at a configured offset:
//
//	admins   admin_start+1   .. teacher_start
//	teachers teacher_start+1 .. student_start
//	students student_start+1 ..
//
// The offsets are not stored per row, so they must stay fixed for the lifetime of the data.
package identity

import (
	"errors"
	"fmt"

	"github.com/noah-isme/grievance-box-api/internal/models"
)

var (
	// ErrUnknownRole is returned for a role tag outside Admin/Teacher/Student.
	ErrUnknownRole = errors.New("unknown role")
	// ErrBandExhausted is returned when a local id would spill into the next role's band.
	ErrBandExhausted = errors.New("identity band exhausted")
	// ErrOutsideBands is returned when a global id is below every band.
	ErrOutsideBands = errors.New("global id outside identity bands")
)

// Bands holds the offset of each role in the global id space.
type Bands struct {
	Admin   int64
	Teacher int64
	Student int64
}

// NewBands validates and builds the band layout.
func NewBands(admin, teacher, student int64) (Bands, error) {
	b := Bands{Admin: admin, Teacher: teacher, Student: student}
	if admin < 0 || teacher <= admin || student <= teacher {
		return Bands{}, fmt.Errorf("bands must satisfy 0 <= admin < teacher < student, got %d/%d/%d", admin, teacher, student)
	}
	return b, nil
}

// Offset returns the band offset of the role.
func (b Bands) Offset(role models.Role) (int64, error) {
	switch role {
	case models.RoleAdmin:
		return b.Admin, nil
	case models.RoleTeacher:
		return b.Teacher, nil
	case models.RoleStudent:
		return b.Student, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
}

// Capacity returns how many local ids fit in the role's band. Zero means unbounded.
func (b Bands) Capacity(role models.Role) int64 {
	switch role {
	case models.RoleAdmin:
		return b.Teacher - b.Admin
	case models.RoleTeacher:
		return b.Student - b.Teacher
	default:
		return 0
	}
}

// Register computes the global id for a role-local id.
func (b Bands) Register(role models.Role, localID int64) (int64, error) {
	offset, err := b.Offset(role)
	if err != nil {
		return 0, err
	}
	if localID < 1 {
		return 0, fmt.Errorf("local id must be positive, got %d", localID)
	}
	if capacity := b.Capacity(role); capacity > 0 && localID > capacity {
		return 0, fmt.Errorf("%w: %s id %d exceeds band width %d", ErrBandExhausted, role, localID, capacity)
	}
	return localID + offset, nil
}

// Resolve maps a global id back to its role and local id. Bands are checked from the top
// down: student first, then teacher, then admin.
func (b Bands) Resolve(globalID int64) (models.Role, int64, error) {
	switch {
	case globalID > b.Student:
		return models.RoleStudent, globalID - b.Student, nil
	case globalID > b.Teacher:
		return models.RoleTeacher, globalID - b.Teacher, nil
	case globalID > b.Admin:
		return models.RoleAdmin, globalID - b.Admin, nil
	default:
		return "", 0, fmt.Errorf("%w: %d", ErrOutsideBands, globalID)
	}
}

// Principal registers the local id and returns the resulting principal.
func (b Bands) Principal(role models.Role, localID int64) (models.Principal, error) {
	globalID, err := b.Register(role, localID)
	if err != nil {
		return models.Principal{}, err
	}
	return models.Principal{Role: role, LocalID: localID, GlobalID: globalID}, nil
}

// Verify checks that the principal's global id still resolves to its role and local id.
func (b Bands) Verify(p models.Principal) error {
	role, localID, err := b.Resolve(p.GlobalID)
	if err != nil {
		return err
	}
	if role != p.Role || localID != p.LocalID {
		return fmt.Errorf("global id %d resolves to %s:%d, not %s", p.GlobalID, role, localID, p)
	}
	return nil
}
