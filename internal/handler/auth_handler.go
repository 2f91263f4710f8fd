package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/grievance-box-api/internal/dto"
	"github.com/noah-isme/grievance-box-api/internal/models"
	appErrors "github.com/noah-isme/grievance-box-api/pkg/errors"
	"github.com/noah-isme/grievance-box-api/pkg/response"
)

type authService interface {
	Login(ctx context.Context, role models.Role, req dto.LoginRequest) (*dto.LoginResponse, error)
	Logout(ctx context.Context, session *models.Session) error
	UserDetails(ctx context.Context, session *models.Session) (interface{}, error)
}

// CookieConfig describes the cookie carrying the session token.
type CookieConfig struct {
	Name   string
	Secure bool
}

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service authService
	cookie  CookieConfig
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authService, cookie CookieConfig) *AuthHandler {
	if cookie.Name == "" {
		cookie.Name = "session"
	}
	return &AuthHandler{service: svc, cookie: cookie}
}

// StudentLogin godoc
// @Summary Student login
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.LoginRequest true "Login payload"
// @Success 200 {object} dto.LoginResponse
// @Failure 400 {object} errors.Error
// @Failure 401 {object} errors.Error
// @Router /student_login [post]
func (h *AuthHandler) StudentLogin(c *gin.Context) {
	h.login(c, models.RoleStudent)
}

// TeacherLogin godoc
// @Summary Teacher login
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.LoginRequest true "Login payload"
// @Success 200 {object} dto.LoginResponse
// @Failure 401 {object} errors.Error
// @Router /teacher_login [post]
func (h *AuthHandler) TeacherLogin(c *gin.Context) {
	h.login(c, models.RoleTeacher)
}

// AdminLogin godoc
// @Summary Admin login
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.LoginRequest true "Login payload"
// @Success 200 {object} dto.LoginResponse
// @Failure 401 {object} errors.Error
// @Router /admin_login [post]
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	h.login(c, models.RoleAdmin)
}

func (h *AuthHandler) login(c *gin.Context, role models.Role) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid login payload"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	res, err := h.service.Login(c.Request.Context(), role, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	maxAge := int(time.Until(res.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, res.Token, maxAge, "/", "", h.cookie.Secure, true)
	response.OK(c, res)
}

// Logout godoc
// @Summary Logout current session
// @Tags Authentication
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 401 {object} errors.Error
// @Router /logout [get]
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessionFromContext(c)
	if session == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Logout(c.Request.Context(), session); err != nil {
		response.Error(c, err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
	response.Message(c, "logged out")
}

// UserDetails godoc
// @Summary Current user record
// @Tags Authentication
// @Produce json
// @Success 200 {object} object
// @Failure 401 {object} errors.Error
// @Router /user_details [get]
func (h *AuthHandler) UserDetails(c *gin.Context) {
	details, err := h.service.UserDetails(c.Request.Context(), sessionFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, details)
}
