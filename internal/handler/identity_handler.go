package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/grievance-box-api/internal/dto"
	"github.com/noah-isme/grievance-box-api/internal/models"
	"github.com/noah-isme/grievance-box-api/pkg/response"
)

type identityService interface {
	AddAdmin(ctx context.Context, actor *models.Session, req dto.CreateAdminRequest) (*models.Admin, error)
	AddTeacher(ctx context.Context, actor *models.Session, req dto.CreateTeacherRequest) (*models.Teacher, error)
	AddStudent(ctx context.Context, actor *models.Session, req dto.CreateStudentRequest) (*models.Student, error)
	ListAdmins(ctx context.Context) ([]models.Admin, error)
	ListTeachers(ctx context.Context) ([]models.Teacher, error)
	ListStudents(ctx context.Context) ([]models.Student, error)
	GetAdmin(ctx context.Context, id int64) (*models.Admin, error)
	GetTeacher(ctx context.Context, id int64) (*models.Teacher, error)
	GetStudent(ctx context.Context, id int64) (*models.Student, error)
}

// IdentityHandler serves the admin, teacher and student account endpoints.
type IdentityHandler struct {
	service identityService
}

// NewIdentityHandler constructs an IdentityHandler.
func NewIdentityHandler(svc identityService) *IdentityHandler {
	return &IdentityHandler{service: svc}
}

// AddStudent godoc
// @Summary Create student
// @Tags Identities
// @Accept json
// @Produce json
// @Param payload body dto.CreateStudentRequest true "Student payload"
// @Success 201 {object} models.Student
// @Failure 400 {object} errors.Error
// @Failure 409 {object} errors.Error
// @Router /add_student [post]
func (h *IdentityHandler) AddStudent(c *gin.Context) {
	var req dto.CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid student payload"))
		return
	}
	student, err := h.service.AddStudent(c.Request.Context(), sessionFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// AddTeacher godoc
// @Summary Create teacher
// @Tags Identities
// @Accept json
// @Produce json
// @Param payload body dto.CreateTeacherRequest true "Teacher payload"
// @Success 201 {object} models.Teacher
// @Failure 409 {object} errors.Error
// @Router /add_teacher [post]
func (h *IdentityHandler) AddTeacher(c *gin.Context) {
	var req dto.CreateTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid teacher payload"))
		return
	}
	teacher, err := h.service.AddTeacher(c.Request.Context(), sessionFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, teacher)
}

// AddAdmin godoc
// @Summary Create admin
// @Tags Identities
// @Accept json
// @Produce json
// @Param payload body dto.CreateAdminRequest true "Admin payload"
// @Success 201 {object} models.Admin
// @Failure 409 {object} errors.Error
// @Router /add_admin [post]
func (h *IdentityHandler) AddAdmin(c *gin.Context) {
	var req dto.CreateAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid admin payload"))
		return
	}
	admin, err := h.service.AddAdmin(c.Request.Context(), sessionFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, admin)
}

// AllStudents lists every student.
func (h *IdentityHandler) AllStudents(c *gin.Context) {
	students, err := h.service.ListStudents(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, students)
}

// AllTeachers lists every teacher.
func (h *IdentityHandler) AllTeachers(c *gin.Context) {
	teachers, err := h.service.ListTeachers(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, teachers)
}

// AllAdmins lists every admin.
func (h *IdentityHandler) AllAdmins(c *gin.Context) {
	admins, err := h.service.ListAdmins(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, admins)
}

// StudentDetails godoc
// @Summary Student by id
// @Tags Identities
// @Produce json
// @Param id path int true "Student ID"
// @Success 200 {object} models.Student
// @Failure 404 {object} errors.Error
// @Router /student_details/{id} [get]
func (h *IdentityHandler) StudentDetails(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	student, err := h.service.GetStudent(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, student)
}

// TeacherDetails returns a teacher by id.
func (h *IdentityHandler) TeacherDetails(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	teacher, err := h.service.GetTeacher(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, teacher)
}

// AdminDetails returns an admin by id.
func (h *IdentityHandler) AdminDetails(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	admin, err := h.service.GetAdmin(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, admin)
}
