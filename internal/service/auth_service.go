package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/grievance-box-api/internal/dto"
	"github.com/noah-isme/grievance-box-api/internal/identity"
	"github.com/noah-isme/grievance-box-api/internal/models"
	"github.com/noah-isme/grievance-box-api/internal/repository"
	appErrors "github.com/noah-isme/grievance-box-api/pkg/errors"
)

type authIdentityRepository interface {
	FindCredentialsByEmail(ctx context.Context, role models.Role, email string) (*models.Credentials, error)
	FindIndexEntry(ctx context.Context, globalID int64) (*models.UserIndexEntry, error)
	FindAdminByID(ctx context.Context, id int64) (*models.Admin, error)
	FindTeacherByID(ctx context.Context, id int64) (*models.Teacher, error)
	FindStudentByID(ctx context.Context, id int64) (*models.Student, error)
}

type sessionStore interface {
	Create(ctx context.Context, id string, record models.SessionRecord, ttl time.Duration) error
	Find(ctx context.Context, id string) (*models.SessionRecord, error)
	Delete(ctx context.Context, id string) error
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

// AuthService provides login, session verification and logout.
type AuthService struct {
	identities authIdentityRepository
	sessions   sessionStore
	bands      identity.Bands
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	config     AuthConfig
	now        func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(identities authIdentityRepository, sessions sessionStore, bands identity.Bands, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.Expiration <= 0 {
		config.Expiration = 24 * time.Hour
	}
	return &AuthService{
		identities: identities,
		sessions:   sessions,
		bands:      bands,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		config:     config,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Login checks the credentials against the role's identity table and opens a session.
func (s *AuthService) Login(ctx context.Context, role models.Role, req dto.LoginRequest) (*dto.LoginResponse, error) {
	if !role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown role")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid login payload")
	}

	creds, err := s.identities.FindCredentialsByEmail(ctx, role, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.RecordLogin(role, LoginOutcomeUnknownEmail)
			return nil, appErrors.Clone(appErrors.ErrUnknownEmail, "")
		}
		s.metrics.RecordLogin(role, LoginOutcomeError)
		return nil, appErrors.Store(err, "failed to fetch credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(req.Password)); err != nil {
		s.metrics.RecordLogin(role, LoginOutcomeBadPassword)
		s.logger.Info("login rejected", zap.String("role", string(role)), zap.Int64("id", creds.ID), zap.String("ip", req.IP))
		return nil, appErrors.Clone(appErrors.ErrBadPassword, "")
	}

	principal, err := s.registeredPrincipal(ctx, role, creds.ID)
	if err != nil {
		return nil, err
	}

	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.config.Expiration)
	sessionID := uuid.NewString()

	record := models.SessionRecord{
		Principal: principal,
		CreatedAt: issuedAt,
		IPAddress: req.IP,
		UserAgent: req.UserAgent,
	}
	if err := s.sessions.Create(ctx, sessionID, record, s.config.Expiration); err != nil {
		s.metrics.RecordLogin(role, LoginOutcomeError)
		return nil, appErrors.Store(err, "failed to persist session")
	}

	token, err := s.signToken(sessionID, principal, issuedAt, expiresAt)
	if err != nil {
		s.metrics.RecordLogin(role, LoginOutcomeError)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign session token")
	}

	s.metrics.RecordLogin(role, LoginOutcomeSuccess)
	s.logger.Info("login succeeded", zap.Stringer("principal", principal), zap.Int64("global_id", principal.GlobalID))

	return &dto.LoginResponse{
		Response:  "logged in",
		Token:     token,
		ExpiresAt: expiresAt,
		User:      principal,
	}, nil
}

// registeredPrincipal builds the principal and confirms the user index holds the global id
// under the same role.
func (s *AuthService) registeredPrincipal(ctx context.Context, role models.Role, localID int64) (models.Principal, error) {
	principal, err := s.bands.Principal(role, localID)
	if err != nil {
		s.metrics.RecordLogin(role, LoginOutcomeUnregistered)
		s.logger.Warn("identity outside its band", zap.String("role", string(role)), zap.Int64("id", localID), zap.Error(err))
		return models.Principal{}, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "account not registered")
	}

	entry, err := s.identities.FindIndexEntry(ctx, principal.GlobalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.RecordLogin(role, LoginOutcomeUnregistered)
			return models.Principal{}, appErrors.Clone(appErrors.ErrUnauthorized, "account not registered")
		}
		s.metrics.RecordLogin(role, LoginOutcomeError)
		return models.Principal{}, appErrors.Store(err, "failed to fetch user index")
	}
	if entry.Role != role {
		s.metrics.RecordLogin(role, LoginOutcomeUnregistered)
		s.logger.Warn("user index role mismatch", zap.Int64("global_id", principal.GlobalID), zap.String("indexed_role", string(entry.Role)), zap.String("role", string(role)))
		return models.Principal{}, appErrors.Clone(appErrors.ErrUnauthorized, "account not registered")
	}
	return principal, nil
}

// Authenticate verifies a session token and returns the live session.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*models.Session, error) {
	if tokenString == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "")
	}

	claims, err := s.parseToken(tokenString)
	if err != nil {
		return nil, err
	}

	principal := claims.Principal()
	if err := s.bands.Verify(principal); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "session does not match identity bands")
	}

	record, err := s.sessions.Find(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "session expired or logged out")
		}
		return nil, appErrors.Store(err, "failed to load session")
	}
	if record.Principal != principal {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "session does not match token")
	}

	session := &models.Session{ID: claims.ID, Principal: principal}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session, nil
}

// Logout revokes the session so its token is rejected from now on.
func (s *AuthService) Logout(ctx context.Context, session *models.Session) error {
	if session == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "")
	}
	if err := s.sessions.Delete(ctx, session.ID); err != nil {
		return appErrors.Store(err, "failed to revoke session")
	}
	s.logger.Info("logout", zap.Stringer("principal", session.Principal))
	return nil
}

// UserDetails returns the identity record behind the session.
func (s *AuthService) UserDetails(ctx context.Context, session *models.Session) (interface{}, error) {
	if session == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "")
	}

	var (
		record interface{}
		err    error
	)
	switch session.Principal.Role {
	case models.RoleAdmin:
		record, err = s.identities.FindAdminByID(ctx, session.Principal.LocalID)
	case models.RoleTeacher:
		record, err = s.identities.FindTeacherByID(ctx, session.Principal.LocalID)
	case models.RoleStudent:
		record, err = s.identities.FindStudentByID(ctx, session.Principal.LocalID)
	default:
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "unknown session role")
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Store(err, "failed to load user")
	}
	return record, nil
}

func (s *AuthService) signToken(sessionID string, principal models.Principal, issuedAt, expiresAt time.Time) (string, error) {
	claims := &models.SessionClaims{
		Role:     principal.Role,
		LocalID:  principal.LocalID,
		GlobalID: principal.GlobalID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Issuer:    s.config.Issuer,
			Subject:   fmt.Sprintf("%d", principal.GlobalID),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.Secret))
}

func (s *AuthService) parseToken(tokenString string) (*models.SessionClaims, error) {
	opts := []jwt.ParserOption{jwt.WithTimeFunc(s.now)}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &models.SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	}, opts...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid session token")
	}

	claims, ok := token.Claims.(*models.SessionClaims)
	if !ok || !token.Valid || claims.ID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid session claims")
	}
	return claims, nil
}
