package dto

// CreateAdminRequest is the add_admin payload.
type CreateAdminRequest struct {
	Name     string `json:"name" validate:"required,max=250"`
	Email    string `json:"email" validate:"required,email,max=250"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// CreateTeacherRequest is the add_teacher payload.
type CreateTeacherRequest struct {
	Name     string `json:"name" validate:"required,max=250"`
	Email    string `json:"email" validate:"required,email,max=250"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Dept     string `json:"dept" validate:"required,max=100"`
}

// CreateStudentRequest is the add_student payload.
type CreateStudentRequest struct {
	Name     string `json:"name" validate:"required,max=250"`
	Email    string `json:"email" validate:"required,email,max=250"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Sem      int    `json:"sem" validate:"required,gte=1,lte=16"`
	Dept     string `json:"dept" validate:"required,max=100"`
}
