package handler

import (
	"context"
	"time"

	"github.com/noah-isme/grievance-box-api/internal/dto"
	"github.com/noah-isme/grievance-box-api/internal/models"
	"github.com/noah-isme/grievance-box-api/internal/service"
	appErrors "github.com/noah-isme/grievance-box-api/pkg/errors"
)

type fakeAuthService struct {
	loginRole   models.Role
	loginReq    dto.LoginRequest
	loginErr    error
	loggedOut   *models.Session
	sessions    map[string]*models.Session
	userDetails interface{}
}

func (f *fakeAuthService) Login(_ context.Context, role models.Role, req dto.LoginRequest) (*dto.LoginResponse, error) {
	f.loginRole = role
	f.loginReq = req
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &dto.LoginResponse{
		Response:  "logged in",
		Token:     "signed-token",
		ExpiresAt: time.Now().Add(time.Hour),
		User:      models.Principal{Role: role, LocalID: 1},
	}, nil
}

func (f *fakeAuthService) Logout(_ context.Context, session *models.Session) error {
	f.loggedOut = session
	return nil
}

func (f *fakeAuthService) UserDetails(_ context.Context, session *models.Session) (interface{}, error) {
	if f.userDetails != nil {
		return f.userDetails, nil
	}
	return session.Principal, nil
}

func (f *fakeAuthService) Authenticate(_ context.Context, token string) (*models.Session, error) {
	if s, ok := f.sessions[token]; ok {
		return s, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid session token")
}

type fakeIdentityService struct {
	addedStudent dto.CreateStudentRequest
	addErr       error
}

func (f *fakeIdentityService) AddAdmin(_ context.Context, _ *models.Session, req dto.CreateAdminRequest) (*models.Admin, error) {
	return &models.Admin{ID: 1, Email: req.Email, Name: req.Name}, f.addErr
}

func (f *fakeIdentityService) AddTeacher(_ context.Context, _ *models.Session, req dto.CreateTeacherRequest) (*models.Teacher, error) {
	return &models.Teacher{ID: 1, Email: req.Email, Name: req.Name, DeptCode: req.Dept}, f.addErr
}

func (f *fakeIdentityService) AddStudent(_ context.Context, _ *models.Session, req dto.CreateStudentRequest) (*models.Student, error) {
	f.addedStudent = req
	if f.addErr != nil {
		return nil, f.addErr
	}
	return &models.Student{ID: 1, Email: req.Email, PasswordHash: "hash", Name: req.Name, Sem: req.Sem, DeptCode: req.Dept}, nil
}

func (f *fakeIdentityService) ListAdmins(context.Context) ([]models.Admin, error) {
	return []models.Admin{}, nil
}

func (f *fakeIdentityService) ListTeachers(context.Context) ([]models.Teacher, error) {
	return []models.Teacher{}, nil
}

func (f *fakeIdentityService) ListStudents(context.Context) ([]models.Student, error) {
	return []models.Student{{ID: 1, Name: "A"}}, nil
}

func (f *fakeIdentityService) GetAdmin(_ context.Context, id int64) (*models.Admin, error) {
	return &models.Admin{ID: id}, nil
}

func (f *fakeIdentityService) GetTeacher(_ context.Context, id int64) (*models.Teacher, error) {
	return &models.Teacher{ID: id}, nil
}

func (f *fakeIdentityService) GetStudent(_ context.Context, id int64) (*models.Student, error) {
	if id == 404 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return &models.Student{ID: id}, nil
}

type fakeLetterService struct {
	updateID     int64
	updateReq    dto.UpdateLetterRequest
	updateFields []models.LetterField
	deleted      int64
	exportFormat dto.ExportFormat
	remaining    []models.GrievanceLetter
}

func (f *fakeLetterService) Create(_ context.Context, session *models.Session, req dto.CreateLetterRequest) (*models.GrievanceLetter, error) {
	return &models.GrievanceLetter{ID: 1, Title: req.Title, Body: req.Body, StudentID: session.Principal.LocalID}, nil
}

func (f *fakeLetterService) ListAll(context.Context) ([]models.GrievanceLetter, error) {
	return []models.GrievanceLetter{}, nil
}

func (f *fakeLetterService) ListByStudent(_ context.Context, id int64) ([]models.GrievanceLetter, error) {
	return []models.GrievanceLetter{{ID: 1, StudentID: id}}, nil
}

func (f *fakeLetterService) ListByDepartment(context.Context, string) ([]models.GrievanceLetter, error) {
	return []models.GrievanceLetter{}, nil
}

func (f *fakeLetterService) Get(_ context.Context, id int64) (*models.GrievanceLetter, error) {
	return &models.GrievanceLetter{ID: id}, nil
}

func (f *fakeLetterService) Update(_ context.Context, _ *models.Session, id int64, req dto.UpdateLetterRequest, fields ...models.LetterField) (*models.GrievanceLetter, error) {
	f.updateID = id
	f.updateReq = req
	f.updateFields = fields
	return &models.GrievanceLetter{ID: id}, nil
}

func (f *fakeLetterService) Delete(_ context.Context, _ *models.Session, id int64) ([]models.GrievanceLetter, error) {
	f.deleted = id
	return f.remaining, nil
}

func (f *fakeLetterService) Export(_ context.Context, format dto.ExportFormat) (*service.ExportFile, error) {
	f.exportFormat = format
	if format != dto.ExportFormatCSV && format != dto.ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
	return &service.ExportFile{Filename: "letters." + string(format), ContentType: "text/csv; charset=utf-8", Payload: []byte("id\n")}, nil
}
