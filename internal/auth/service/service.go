// Package service signs staff in and out and answers "who is this officer"
// for the case workflow.
package service

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"watchdesk/internal/auth/models"
	casemodels "watchdesk/internal/cases/models"
	jwttoken "watchdesk/internal/jwt_token"
	id "watchdesk/pkg/domain"
	dErrors "watchdesk/pkg/domain-errors"
	"watchdesk/pkg/platform/audit"
	"watchdesk/pkg/platform/sentinel"
	"watchdesk/pkg/requestcontext"
	"watchdesk/pkg/secrets"
)

type UserStore interface {
	Save(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	CountByRole(ctx context.Context, role id.Role) (int, error)
}

type RevocationList interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	RevokeTokens(ctx context.Context, jtis []string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

// Config carries token lifetimes.
type Config struct {
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

const (
	defaultAccessTokenTTL  = time.Hour
	defaultRefreshTokenTTL = 7 * 24 * time.Hour
	minPasswordLength      = 8
)

type Service struct {
	users   UserStore
	revoked RevocationList
	tokens  *jwttoken.JWTService
	cfg     Config
	logger  *slog.Logger
	auditor AuditPublisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = publisher
	}
}

func New(users UserStore, revoked RevocationList, tokens *jwttoken.JWTService, cfg Config, opts ...Option) *Service {
	if cfg.AccessTokenTTL <= 0 {
		cfg.AccessTokenTTL = defaultAccessTokenTTL
	}
	if cfg.RefreshTokenTTL <= 0 {
		cfg.RefreshTokenTTL = defaultRefreshTokenTTL
	}
	s := &Service{
		users:   users,
		revoked: revoked,
		tokens:  tokens,
		cfg:     cfg,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login verifies credentials and issues a token pair. Unknown emails and
// wrong passwords fail identically.
func (s *Service) Login(ctx context.Context, email, password string) (*models.TokenPair, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.loginFailed(ctx, email, "unknown email")
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	if err := secrets.Verify(password, user.PasswordHash); err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			s.loginFailed(ctx, email, "wrong password")
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify credentials")
	}

	pair, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "user logged in",
		"user_id", user.ID,
		"role", user.Role,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, audit.Event{Action: audit.EventLoginSucceeded, ActorID: user.ID, ActorRole: user.Role.String()})
	return pair, nil
}

// Refresh trades a refresh token for a new pair and revokes the old one, so
// each refresh token works once.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}
	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check token revocation")
	}
	if revoked {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "refresh token has been revoked")
	}
	userID, err := id.ParseUserID(claims.UserID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "user no longer exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	if err := s.revoked.RevokeToken(ctx, claims.ID, remaining(claims, requestcontext.Now(ctx))); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke refresh token")
	}
	pair, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, audit.Event{Action: audit.EventTokenRefreshed, ActorID: user.ID, ActorRole: user.Role.String()})
	return pair, nil
}

// Logout revokes the access token that authenticated the request and, when
// given, the caller's refresh token.
func (s *Service) Logout(ctx context.Context, userID id.UserID, accessJTI, refreshToken string) error {
	jtis := []string{accessJTI}
	if refreshToken != "" {
		claims, err := s.tokens.ValidateRefreshToken(refreshToken)
		if err != nil {
			return err
		}
		if claims.UserID != userID.String() {
			return dErrors.New(dErrors.CodeForbidden, "refresh token belongs to another user")
		}
		jtis = append(jtis, claims.ID)
	}
	// Revoke for the longest lifetime either token could still have.
	if err := s.revoked.RevokeTokens(ctx, jtis, s.cfg.RefreshTokenTTL); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke tokens")
	}
	s.logger.InfoContext(ctx, "user logged out",
		"user_id", userID,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, audit.Event{Action: audit.EventLoggedOut, ActorID: userID, ActorRole: requestcontext.Role(ctx).String()})
	return nil
}

// Register creates a staff account. Only managers may register users.
func (s *Service) Register(ctx context.Context, requester id.Role, reg models.Registration) (*models.User, error) {
	if requester != id.RoleManager {
		return nil, dErrors.New(dErrors.CodeForbidden, "only managers can register users")
	}
	return s.create(ctx, reg)
}

func (s *Service) create(ctx context.Context, reg models.Registration) (*models.User, error) {
	name := strings.TrimSpace(reg.Name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "name is required")
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(reg.Email))
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "email is invalid")
	}
	if len(reg.Password) < minPasswordLength {
		return nil, dErrors.New(dErrors.CodeValidation, "password must be at least 8 characters")
	}
	role := reg.Role
	if role == "" {
		role = id.RoleOfficer
	}
	if !role.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid role")
	}
	hash, err := secrets.Hash(reg.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           id.UserID(uuid.New()),
		Name:         name,
		Email:        addr.Address,
		Role:         role,
		Gender:       strings.TrimSpace(reg.Gender),
		PasswordHash: hash,
		CreatedAt:    requestcontext.Now(ctx),
	}
	if err := s.users.Save(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "email is already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save user")
	}
	s.logger.InfoContext(ctx, "user registered",
		"user_id", user.ID,
		"role", user.Role,
	)
	s.emit(ctx, audit.Event{Action: audit.EventUserRegistered, ActorID: requestcontext.UserID(ctx), ActorRole: requestcontext.Role(ctx).String(), Reason: user.ID.String()})
	return user, nil
}

// EnsureManager creates the bootstrap manager when no manager exists yet.
// It returns the created user, or nil when one was already present.
func (s *Service) EnsureManager(ctx context.Context, email, password string) (*models.User, error) {
	n, err := s.users.CountByRole(ctx, id.RoleManager)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count managers")
	}
	if n > 0 {
		return nil, nil
	}
	return s.create(ctx, models.Registration{
		Name:     "Bootstrap Manager",
		Email:    email,
		Password: password,
		Role:     id.RoleManager,
	})
}

// FindOfficer resolves a user for the case workflow.
func (s *Service) FindOfficer(ctx context.Context, userID id.UserID) (casemodels.Officer, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return casemodels.Officer{}, err
	}
	return casemodels.Officer{ID: user.ID, Name: user.Name, Role: user.Role}, nil
}

// IsTokenRevoked satisfies the auth middleware's revocation check.
func (s *Service) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	return s.revoked.IsRevoked(ctx, jti)
}

func (s *Service) issue(user *models.User) (*models.TokenPair, error) {
	access, err := s.tokens.GenerateAccessToken(user.ID, user.Role, s.cfg.AccessTokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign access token")
	}
	refresh, err := s.tokens.GenerateRefreshToken(user.ID, user.Role, s.cfg.RefreshTokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign refresh token")
	}
	return &models.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.cfg.AccessTokenTTL.Seconds()),
		ExpiresAt:    time.Now().Add(s.cfg.AccessTokenTTL),
		User:         user,
	}, nil
}

func (s *Service) loginFailed(ctx context.Context, email, reason string) {
	s.logger.WarnContext(ctx, "login failed",
		"reason", reason,
		"client_ip", requestcontext.ClientIP(ctx),
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, audit.Event{Action: audit.EventLoginFailed, Reason: reason + ": " + strings.ToLower(email)})
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	event.Category = event.Action.Category()
	event.Timestamp = requestcontext.Now(ctx)
	event.RequestID = requestcontext.RequestID(ctx)
	event.ClientIP = requestcontext.ClientIP(ctx)
	event.Device = requestcontext.Device(ctx)
	s.auditor.Emit(ctx, event)
}

// remaining is how long a token stays valid past now, with a floor so an
// about-to-expire token is still recorded.
func remaining(claims *jwttoken.Claims, now time.Time) time.Duration {
	if claims.ExpiresAt == nil {
		return time.Minute
	}
	left := claims.ExpiresAt.Sub(now)
	if left < time.Minute {
		return time.Minute
	}
	return left
}
