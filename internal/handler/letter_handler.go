package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/grievance-box-api/internal/dto"
	"github.com/noah-isme/grievance-box-api/internal/models"
	"github.com/noah-isme/grievance-box-api/internal/service"
	appErrors "github.com/noah-isme/grievance-box-api/pkg/errors"
	"github.com/noah-isme/grievance-box-api/pkg/response"
)

type letterService interface {
	Create(ctx context.Context, session *models.Session, req dto.CreateLetterRequest) (*models.GrievanceLetter, error)
	ListAll(ctx context.Context) ([]models.GrievanceLetter, error)
	ListByStudent(ctx context.Context, studentID int64) ([]models.GrievanceLetter, error)
	ListByDepartment(ctx context.Context, deptCode string) ([]models.GrievanceLetter, error)
	Get(ctx context.Context, id int64) (*models.GrievanceLetter, error)
	Update(ctx context.Context, session *models.Session, id int64, req dto.UpdateLetterRequest, fields ...models.LetterField) (*models.GrievanceLetter, error)
	Delete(ctx context.Context, session *models.Session, id int64) ([]models.GrievanceLetter, error)
	Export(ctx context.Context, format dto.ExportFormat) (*service.ExportFile, error)
}

// LetterHandler serves the grievance letter endpoints.
type LetterHandler struct {
	service letterService
}

// NewLetterHandler constructs a LetterHandler.
func NewLetterHandler(svc letterService) *LetterHandler {
	return &LetterHandler{service: svc}
}

// AllLetters godoc
// @Summary List all letters
// @Tags Letters
// @Produce json
// @Success 200 {array} models.GrievanceLetter
// @Failure 403 {object} errors.Error
// @Router /all_letters [get]
func (h *LetterHandler) AllLetters(c *gin.Context) {
	letters, err := h.service.ListAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, letters)
}

// AddLetter godoc
// @Summary File a letter
// @Tags Letters
// @Accept json
// @Produce json
// @Param payload body dto.CreateLetterRequest true "Letter payload"
// @Success 201 {object} models.GrievanceLetter
// @Failure 400 {object} errors.Error
// @Failure 403 {object} errors.Error
// @Router /add_letter [post]
func (h *LetterHandler) AddLetter(c *gin.Context) {
	var req dto.CreateLetterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid letter payload"))
		return
	}
	letter, err := h.service.Create(c.Request.Context(), sessionFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, letter)
}

// GetLetter godoc
// @Summary Letter by id
// @Tags Letters
// @Produce json
// @Param id path int true "Letter ID"
// @Success 200 {object} models.GrievanceLetter
// @Failure 404 {object} errors.Error
// @Router /get_letter/{id} [get]
func (h *LetterHandler) GetLetter(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	letter, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, letter)
}

// StudentLetters lists the letters filed by a student.
func (h *LetterHandler) StudentLetters(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	letters, err := h.service.ListByStudent(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, letters)
}

// DeptLetters lists the letters routed to a department.
func (h *LetterHandler) DeptLetters(c *gin.Context) {
	letters, err := h.service.ListByDepartment(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, letters)
}

// UpdateAll godoc
// @Summary Update actions, comments, status and department
// @Description Any subset of the four fields may be sent. A field's timestamp moves only when its value changes.
// @Tags Letters
// @Accept json
// @Produce json
// @Param id path int true "Letter ID"
// @Param payload body dto.UpdateLetterRequest true "Fields to update"
// @Success 200 {object} models.GrievanceLetter
// @Failure 404 {object} errors.Error
// @Router /action_comment_status_dept_update/{id} [put]
func (h *LetterHandler) UpdateAll(c *gin.Context) {
	h.update(c)
}

// UpdateDept routes a letter to a department.
func (h *LetterHandler) UpdateDept(c *gin.Context) {
	h.update(c, models.LetterFieldDept)
}

// UpdateStatus sets the resolution status.
func (h *LetterHandler) UpdateStatus(c *gin.Context) {
	h.update(c, models.LetterFieldStatus)
}

// UpdateActions records the actions taken.
func (h *LetterHandler) UpdateActions(c *gin.Context) {
	h.update(c, models.LetterFieldActions)
}

// UpdateComments records reviewer comments.
func (h *LetterHandler) UpdateComments(c *gin.Context) {
	h.update(c, models.LetterFieldComments)
}

func (h *LetterHandler) update(c *gin.Context, fields ...models.LetterField) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateLetterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid letter update payload"))
		return
	}
	letter, err := h.service.Update(c.Request.Context(), sessionFromContext(c), id, req, fields...)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, letter)
}

// DeleteLetter godoc
// @Summary Delete a letter
// @Description Responds with the letters that remain.
// @Tags Letters
// @Produce json
// @Param id path int true "Letter ID"
// @Success 200 {array} models.GrievanceLetter
// @Failure 403 {object} errors.Error
// @Failure 404 {object} errors.Error
// @Router /delete_letter/{id} [delete]
func (h *LetterHandler) DeleteLetter(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	remaining, err := h.service.Delete(c.Request.Context(), sessionFromContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, remaining)
}

// Export godoc
// @Summary Export all letters
// @Tags Letters
// @Produce octet-stream
// @Param format query string false "csv or pdf" Enums(csv, pdf)
// @Success 200 {file} file
// @Failure 400 {object} errors.Error
// @Router /export_letters [get]
func (h *LetterHandler) Export(c *gin.Context) {
	format := dto.ExportFormat(strings.ToLower(c.DefaultQuery("format", string(dto.ExportFormatCSV))))
	file, err := h.service.Export(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	if file == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Payload)
}
