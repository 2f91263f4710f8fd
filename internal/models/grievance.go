package models

import "time"

// GrievanceLetter is a row of the grievance_letters table.
type GrievanceLetter struct {
	ID              int64      `db:"id" json:"id"`
	Title           string     `db:"title" json:"title"`
	Body            string     `db:"body" json:"body"`
	CreatedOn       time.Time  `db:"created_on" json:"created_on"`
	Status          bool       `db:"status" json:"status"`
	StatusUpdated   *time.Time `db:"status_updated" json:"status_updated"`
	Actions         *string    `db:"actions" json:"actions"`
	ActionsUpdated  *time.Time `db:"actions_updated" json:"actions_updated"`
	Comments        *string    `db:"comments" json:"comments"`
	CommentsUpdated *time.Time `db:"comments_updated" json:"comments_updated"`
	StudentID       int64      `db:"student_id" json:"student_id"`
	DeptCode        *string    `db:"dept_code" json:"dept_code"`
}

// LetterPatch lists the mutable letter fields a caller wants to set. Nil fields are left alone.
type LetterPatch struct {
	Actions  *string
	Comments *string
	Status   *bool
	DeptCode *string
}

// Empty reports whether the patch sets no field.
func (p LetterPatch) Empty() bool {
	return p.Actions == nil && p.Comments == nil && p.Status == nil && p.DeptCode == nil
}

// Apply writes the patch into the letter. A field is overwritten, and its own timestamp
// moved to now, only when the new value differs from the stored one; the department has no
// timestamp. It reports whether anything changed.
func (l *GrievanceLetter) Apply(p LetterPatch, now time.Time) bool {
	changed := false
	if p.Actions != nil && !sameText(l.Actions, *p.Actions) {
		l.Actions = stringPtr(*p.Actions)
		l.ActionsUpdated = timePtr(now)
		changed = true
	}
	if p.Comments != nil && !sameText(l.Comments, *p.Comments) {
		l.Comments = stringPtr(*p.Comments)
		l.CommentsUpdated = timePtr(now)
		changed = true
	}
	if p.Status != nil && l.Status != *p.Status {
		l.Status = *p.Status
		l.StatusUpdated = timePtr(now)
		changed = true
	}
	if p.DeptCode != nil && !sameText(l.DeptCode, *p.DeptCode) {
		l.DeptCode = stringPtr(*p.DeptCode)
		changed = true
	}
	return changed
}

func sameText(current *string, next string) bool {
	return current != nil && *current == next
}

func stringPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

// LetterField names one mutable letter field.
type LetterField string

const (
	LetterFieldActions  LetterField = "actions"
	LetterFieldComments LetterField = "comments"
	LetterFieldStatus   LetterField = "status"
	LetterFieldDept     LetterField = "dept"
)

// Has reports whether the patch sets the field.
func (p LetterPatch) Has(field LetterField) bool {
	switch field {
	case LetterFieldActions:
		return p.Actions != nil
	case LetterFieldComments:
		return p.Comments != nil
	case LetterFieldStatus:
		return p.Status != nil
	case LetterFieldDept:
		return p.DeptCode != nil
	}
	return false
}

// Only returns a copy of the patch restricted to the given fields.
func (p LetterPatch) Only(fields ...LetterField) LetterPatch {
	var out LetterPatch
	for _, f := range fields {
		switch f {
		case LetterFieldActions:
			out.Actions = p.Actions
		case LetterFieldComments:
			out.Comments = p.Comments
		case LetterFieldStatus:
			out.Status = p.Status
		case LetterFieldDept:
			out.DeptCode = p.DeptCode
		}
	}
	return out
}
