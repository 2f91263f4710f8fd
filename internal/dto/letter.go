package dto

import "github.com/noah-isme/grievance-box-api/internal/models"

// MaxLetterTextLength bounds the free-text letter fields, in characters.
const MaxLetterTextLength = 10000

// CreateLetterRequest is the add_letter payload. StudentID defaults to the caller.
type CreateLetterRequest struct {
	Title     string `json:"title" validate:"required,max=250"`
	Body      string `json:"body" validate:"required,max=10000"`
	StudentID *int64 `json:"student_id" validate:"omitempty,gte=1"`
}

// UpdateLetterRequest carries any of the mutable letter fields.
type UpdateLetterRequest struct {
	Actions  *string `json:"actions" validate:"omitempty,max=10000"`
	Comments *string `json:"comments" validate:"omitempty,max=10000"`
	Status   *bool   `json:"status"`
	Dept     *string `json:"dept" validate:"omitempty,max=100"`
}

// Patch converts the request into a store patch.
func (r UpdateLetterRequest) Patch() models.LetterPatch {
	return models.LetterPatch{
		Actions:  r.Actions,
		Comments: r.Comments,
		Status:   r.Status,
		DeptCode: r.Dept,
	}
}

// ExportFormat selects the export renderer.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)
