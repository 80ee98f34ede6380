package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aarvika/storefront-backend/internal/users"
	pkgauth "github.com/aarvika/storefront-backend/pkg/auth"
	"github.com/aarvika/storefront-backend/pkg/auth/session"
	"github.com/aarvika/storefront-backend/pkg/config"
	"github.com/aarvika/storefront-backend/pkg/db/models"
	pkgerrors "github.com/aarvika/storefront-backend/pkg/errors"
	"github.com/aarvika/storefront-backend/pkg/logger"
	"github.com/aarvika/storefront-backend/pkg/security"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRepository is the persistence surface the auth service needs.
type UserRepository interface {
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// SessionManager issues, rotates, and revokes refresh sessions.
type SessionManager interface {
	Generate(ctx context.Context, accessID string) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

// RateLimiter applies fixed-window counters keyed by scope.
type RateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// ServiceParams groups dependencies for the auth service.
type ServiceParams struct {
	UserRepo  UserRepository
	Sessions  SessionManager
	Limiter   RateLimiter
	Notifier  *Notifier
	JWT       config.JWTConfig
	Passwords config.PasswordConfig
	Limits    config.AuthRateLimitConfig
	Logger    *logger.Logger
	Now       func() time.Time
}

// Service owns account lifecycle and token issuance.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResultDTO, error)
	Login(ctx context.Context, input LoginInput) (*AuthResultDTO, error)
	Refresh(ctx context.Context, input RefreshInput) (*AuthResultDTO, error)
	Logout(ctx context.Context, accessToken string) error
	Me(ctx context.Context, userID uuid.UUID) (*UserDTO, error)
}

type service struct {
	userRepo  UserRepository
	sessions  SessionManager
	limiter   RateLimiter
	notifier  *Notifier
	jwt       config.JWTConfig
	passwords config.PasswordConfig
	limits    config.AuthRateLimitConfig
	logg      *logger.Logger
	validate  *validator.Validate
	now       func() time.Time
}

// NewService validates dependencies and constructs the auth service.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user repository is required")
	}
	if params.Sessions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session manager is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		userRepo:  params.UserRepo,
		sessions:  params.Sessions,
		limiter:   params.Limiter,
		notifier:  params.Notifier,
		jwt:       params.JWT,
		passwords: params.Passwords,
		limits:    params.Limits,
		logg:      params.Logger,
		validate:  validator.New(),
		now:       now,
	}, nil
}

// Register creates an account and signs the shopper in.
func (s *service) Register(ctx context.Context, input RegisterInput) (*AuthResultDTO, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid registration payload")
	}
	if err := s.allow(ctx, "register", input.Email, input.ClientIP, s.limits.RegisterEmailLimit, s.limits.RegisterIPLimit, s.limits.RegisterWindow); err != nil {
		return nil, err
	}

	hash, err := security.HashPassword(input.Password, s.passwords)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to hash password")
	}

	user, err := s.userRepo.Create(ctx, users.CreateUserDTO{
		Email:        input.Email,
		PasswordHash: hash,
		FullName:     input.FullName,
		Phone:        input.Phone,
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "duplicate key") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "an account with this email already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to create user")
	}

	result, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "account registered")
	s.notify(ctx, user.ID.String(), EventLogin)
	return result, nil
}

// Login verifies credentials and signs the shopper in.
func (s *service) Login(ctx context.Context, input LoginInput) (*AuthResultDTO, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid login payload")
	}
	if err := s.allow(ctx, "login", input.Email, input.ClientIP, s.limits.LoginEmailLimit, s.limits.LoginIPLimit, s.limits.LoginWindow); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid email or password")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to look up user")
	}

	match, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to verify password")
	}
	if !match {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid email or password")
	}

	result, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, user.ID.String(), EventLogin)
	return result, nil
}

// Refresh rotates the refresh token and mints a fresh access token. The
// presented access token may already be expired; only its signature and jti
// matter here.
func (s *service) Refresh(ctx context.Context, input RefreshInput) (*AuthResultDTO, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid refresh payload")
	}

	claims, err := pkgauth.ParseAccessTokenAllowExpired(s.jwt, input.AccessToken)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid access token")
	}

	newAccessID, newRefresh, err := s.sessions.Rotate(ctx, claims.ID, input.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to rotate session")
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "account no longer exists")
	}

	accessToken, err := pkgauth.MintAccessToken(s.jwt, s.now(), pkgauth.AccessTokenPayload{
		UserID: user.ID,
		Email:  user.Email,
		JTI:    newAccessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to mint access token")
	}

	return &AuthResultDTO{
		AccessToken:  accessToken,
		RefreshToken: newRefresh,
		User:         toUserDTO(user),
	}, nil
}

// Logout revokes the session behind the access token and notifies observers
// so per-user client state gets wiped.
func (s *service) Logout(ctx context.Context, accessToken string) error {
	claims, err := pkgauth.ParseAccessTokenAllowExpired(s.jwt, accessToken)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid access token")
	}
	if err := s.sessions.Revoke(ctx, claims.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to revoke session")
	}
	s.notify(ctx, claims.UserID.String(), EventLogout)
	return nil
}

// Me loads the account behind an authenticated request.
func (s *service) Me(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load account")
	}
	dto := toUserDTO(user)
	return &dto, nil
}

func (s *service) issueTokens(ctx context.Context, user *models.User) (*AuthResultDTO, error) {
	accessID := session.NewAccessID()
	accessToken, err := pkgauth.MintAccessToken(s.jwt, s.now(), pkgauth.AccessTokenPayload{
		UserID: user.ID,
		Email:  user.Email,
		JTI:    accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to mint access token")
	}

	refreshToken, err := s.sessions.Generate(ctx, accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to create session")
	}

	return &AuthResultDTO{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         toUserDTO(user),
	}, nil
}

// allow enforces both the per-email and the per-IP window. Limiter absence
// (tests, local tooling) disables rate limiting.
func (s *service) allow(ctx context.Context, action, email, ip string, emailLimit, ipLimit int, window time.Duration) error {
	if s.limiter == nil || window <= 0 {
		return nil
	}

	checks := []struct {
		scope string
		id    string
		limit int
	}{
		{action + ":email", strings.ToLower(strings.TrimSpace(email)), emailLimit},
		{action + ":ip", strings.TrimSpace(ip), ipLimit},
	}
	for _, check := range checks {
		if check.limit <= 0 || check.id == "" {
			continue
		}
		allowed, _, err := s.limiter.FixedWindowAllow(ctx, fmt.Sprintf("%s:%s", check.scope, check.id), int64(check.limit), window)
		if err != nil {
			// fail open: a Redis hiccup must not lock shoppers out
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"action": action, "error": err.Error()}), "rate limit check failed")
			return nil
		}
		if !allowed {
			return pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, please try again later")
		}
	}
	return nil
}

func (s *service) notify(ctx context.Context, userID, event string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, userID, event)
}
