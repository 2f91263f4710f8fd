package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/grievance-box-api/internal/middleware"
	"github.com/noah-isme/grievance-box-api/internal/models"
)

// Routes groups the handlers mounted by Register.
type Routes struct {
	Auth       *AuthHandler
	Identities *IdentityHandler
	Letters    *LetterHandler
	Metrics    *MetricsHandler
	// Session authenticates the request and stores the *models.Session.
	Session gin.HandlerFunc
	Logger  *zap.Logger
}

// Register mounts every endpoint with its role gate.
func Register(r gin.IRouter, h Routes) {
	log := h.Logger
	if log == nil {
		log = zap.NewNop()
	}
	audit := log.Named("audit")
	roles := func(allowed ...models.Role) gin.HandlerFunc {
		return middleware.RequireRoles(audit, allowed...)
	}
	admin := roles(models.RoleAdmin)
	student := roles(models.RoleStudent)
	staff := roles(models.RoleAdmin, models.RoleTeacher)
	anyRole := roles(models.RoleAdmin, models.RoleTeacher, models.RoleStudent)
	record := func(action string) gin.HandlerFunc {
		return middleware.Audit(audit, action)
	}

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	r.POST("/student_login", h.Auth.StudentLogin)
	r.POST("/teacher_login", h.Auth.TeacherLogin)
	r.POST("/admin_login", h.Auth.AdminLogin)

	authed := r.Group("/", h.Session)
	authed.GET("/user_details", anyRole, h.Auth.UserDetails)
	authed.GET("/logout", anyRole, h.Auth.Logout)

	authed.POST("/add_student", admin, record("identity.add_student"), h.Identities.AddStudent)
	authed.POST("/add_teacher", admin, record("identity.add_teacher"), h.Identities.AddTeacher)
	authed.POST("/add_admin", admin, record("identity.add_admin"), h.Identities.AddAdmin)
	authed.GET("/all_students", admin, h.Identities.AllStudents)
	authed.GET("/all_teachers", admin, h.Identities.AllTeachers)
	authed.GET("/all_admins", admin, h.Identities.AllAdmins)
	authed.GET("/student_details/:id", anyRole, h.Identities.StudentDetails)
	authed.GET("/teacher_details/:id", staff, h.Identities.TeacherDetails)
	authed.GET("/admin_details/:id", admin, h.Identities.AdminDetails)

	authed.GET("/all_letters", admin, h.Letters.AllLetters)
	authed.POST("/add_letter", student, record("letter.add"), h.Letters.AddLetter)
	authed.GET("/get_letter/:id", anyRole, h.Letters.GetLetter)
	authed.GET("/student_letters/:id", anyRole, h.Letters.StudentLetters)
	authed.GET("/dept_letters/:code", staff, h.Letters.DeptLetters)
	authed.PUT("/action_comment_status_dept_update/:id", admin, record("letter.update"), h.Letters.UpdateAll)
	authed.PUT("/dept_update/:id", admin, record("letter.dept_update"), h.Letters.UpdateDept)
	authed.PUT("/status_update/:id", admin, record("letter.status_update"), h.Letters.UpdateStatus)
	authed.PUT("/action_update/:id", admin, record("letter.action_update"), h.Letters.UpdateActions)
	authed.PUT("/comment_update/:id", staff, record("letter.comment_update"), h.Letters.UpdateComments)
	authed.DELETE("/delete_letter/:id", roles(models.RoleAdmin, models.RoleStudent), record("letter.delete"), h.Letters.DeleteLetter)
	authed.GET("/export_letters", admin, h.Letters.Export)
}
