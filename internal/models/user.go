package models

// Role tags an identity kind in the unified user index and in sessions.
type Role string

const (
	RoleAdmin   Role = "Admin"
	RoleTeacher Role = "Teacher"
	RoleStudent Role = "Student"
)

// Valid reports whether the role is one of the three identity kinds.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	}
	return false
}

// Admin is a row of the admins table.
type Admin struct {
	ID           int64  `db:"id" json:"id"`
	Email        string `db:"email" json:"email"`
	PasswordHash string `db:"password_hash" json:"-"`
	Name         string `db:"name" json:"name"`
}

// Teacher is a row of the teachers table.
type Teacher struct {
	ID           int64  `db:"id" json:"id"`
	Email        string `db:"email" json:"email"`
	PasswordHash string `db:"password_hash" json:"-"`
	Name         string `db:"name" json:"name"`
	DeptCode     string `db:"dept_code" json:"dept_code"`
}

// Student is a row of the students table.
type Student struct {
	ID           int64  `db:"id" json:"id"`
	Email        string `db:"email" json:"email"`
	PasswordHash string `db:"password_hash" json:"-"`
	Name         string `db:"name" json:"name"`
	Sem          int    `db:"sem" json:"sem"`
	DeptCode     string `db:"dept_code" json:"dept_code"`
}

// Credentials is the role-independent view of an identity used for login.
type Credentials struct {
	ID           int64  `db:"id"`
	Email        string `db:"email"`
	PasswordHash string `db:"password_hash"`
	Name         string `db:"name"`
}

// UserIndexEntry is a row of the unified user index.
type UserIndexEntry struct {
	ID   int64 `db:"id" json:"id"`
	Role Role  `db:"role" json:"role"`
}
