package auth

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aarvika/storefront-backend/internal/users"
	pkgauth "github.com/aarvika/storefront-backend/pkg/auth"
	"github.com/aarvika/storefront-backend/pkg/auth/session"
	"github.com/aarvika/storefront-backend/pkg/config"
	"github.com/aarvika/storefront-backend/pkg/db/models"
	pkgerrors "github.com/aarvika/storefront-backend/pkg/errors"
	"github.com/aarvika/storefront-backend/pkg/logger"
	"github.com/aarvika/storefront-backend/pkg/security"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubUserRepo struct {
	byEmail map[string]*models.User
	byID    map[uuid.UUID]*models.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{
		byEmail: map[string]*models.User{},
		byID:    map[uuid.UUID]*models.User{},
	}
}

func (r *stubUserRepo) add(user *models.User) {
	r.byEmail[user.Email] = user
	r.byID[user.ID] = user
}

func (r *stubUserRepo) Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(dto.Email))
	if _, exists := r.byEmail[email]; exists {
		return nil, gorm.ErrDuplicatedKey
	}
	user := dto.ToModel()
	user.ID = uuid.New()
	r.add(user)
	return user, nil
}

func (r *stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok := r.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (r *stubUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := r.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

type stubSessions struct {
	refreshByAccessID map[string]string
	revoked           []string
}

func newStubSessions() *stubSessions {
	return &stubSessions{refreshByAccessID: map[string]string{}}
}

func (s *stubSessions) Generate(ctx context.Context, accessID string) (string, error) {
	token := "refresh-" + accessID
	s.refreshByAccessID[accessID] = token
	return token, nil
}

func (s *stubSessions) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	stored, ok := s.refreshByAccessID[oldAccessID]
	if !ok || stored != provided {
		return "", "", session.ErrInvalidRefreshToken
	}
	delete(s.refreshByAccessID, oldAccessID)
	newID := session.NewAccessID()
	token := "refresh-" + newID
	s.refreshByAccessID[newID] = token
	return newID, token, nil
}

func (s *stubSessions) Revoke(ctx context.Context, accessID string) error {
	delete(s.refreshByAccessID, accessID)
	s.revoked = append(s.revoked, accessID)
	return nil
}

type stubLimiter struct {
	counts map[string]int64
}

func (l *stubLimiter) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	if l.counts == nil {
		l.counts = map[string]int64{}
	}
	l.counts[scope]++
	return l.counts[scope] <= limit, l.counts[scope], nil
}

type recordingObserver struct {
	events []string
}

func (o *recordingObserver) OnSessionChange(ctx context.Context, userID, event string) {
	o.events = append(o.events, event+":"+userID)
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:                 "test-secret-please-rotate",
		Issuer:                 "aarvika-test",
		ExpirationMinutes:      15,
		RefreshTokenTTLMinutes: 60,
	}
}

func testPasswordConfig() config.PasswordConfig {
	// deliberately cheap parameters so the suite stays fast
	return config.PasswordConfig{
		ArgonMemoryKB:    8,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     8,
		ArgonKeyLen:      16,
	}
}

type authFixture struct {
	svc      Service
	repo     *stubUserRepo
	sessions *stubSessions
	limiter  *stubLimiter
	observer *recordingObserver
}

func newAuthFixture(t *testing.T, limits config.AuthRateLimitConfig) *authFixture {
	t.Helper()

	repo := newStubUserRepo()
	sessions := newStubSessions()
	limiter := &stubLimiter{}
	observer := &recordingObserver{}
	notifier := NewNotifier()
	notifier.Register(observer)

	svc, err := NewService(ServiceParams{
		UserRepo:  repo,
		Sessions:  sessions,
		Limiter:   limiter,
		Notifier:  notifier,
		JWT:       testJWTConfig(),
		Passwords: testPasswordConfig(),
		Limits:    limits,
		Logger:    logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	require.NoError(t, err)

	return &authFixture{svc: svc, repo: repo, sessions: sessions, limiter: limiter, observer: observer}
}

func registerInput() RegisterInput {
	return RegisterInput{
		Email:    "meera@example.com",
		Password: "silk-sarees-4ever",
		FullName: "Meera Sharma",
		ClientIP: "203.0.113.7",
	}
}

func TestRegisterIssuesTokensAndNotifies(t *testing.T) {
	f := newAuthFixture(t, config.AuthRateLimitConfig{})
	ctx := context.Background()

	result, err := f.svc.Register(ctx, registerInput())
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)
	require.NotEmpty(t, result.RefreshToken)
	require.Equal(t, "meera@example.com", result.User.Email)

	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), result.AccessToken)
	require.NoError(t, err)
	require.Equal(t, result.User.ID, claims.UserID)

	require.Equal(t, []string{EventLogin + ":" + result.User.ID.String()}, f.observer.events)
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	f := newAuthFixture(t, config.AuthRateLimitConfig{})
	ctx := context.Background()

	_, err := f.svc.Register(ctx, registerInput())
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, registerInput())
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	require.Equal(t, pkgerrors.CodeConflict, appErr.Code())
}

func TestRegisterRejectsWeakPayload(t *testing.T) {
	f := newAuthFixture(t, config.AuthRateLimitConfig{})

	input := registerInput()
	input.Password = "short"
	_, err := f.svc.Register(context.Background(), input)
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	require.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}

func TestLoginSuccessAndWrongPassword(t *testing.T) {
	f := newAuthFixture(t, config.AuthRateLimitConfig{})
	ctx := context.Background()

	hash, err := security.HashPassword("silk-sarees-4ever", testPasswordConfig())
	require.NoError(t, err)
	f.repo.add(&models.User{
		ID:           uuid.New(),
		Email:        "meera@example.com",
		PasswordHash: hash,
		FullName:     "Meera Sharma",
	})

	result, err := f.svc.Login(ctx, LoginInput{Email: "Meera@Example.com", Password: "silk-sarees-4ever"})
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)

	_, err = f.svc.Login(ctx, LoginInput{Email: "meera@example.com", Password: "wrong"})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	require.Equal(t, pkgerrors.CodeUnauthorized, appErr.Code())
}

func TestLoginUnknownEmailIsUnauthorizedNotNotFound(t *testing.T) {
	f := newAuthFixture(t, config.AuthRateLimitConfig{})

	_, err := f.svc.Login(context.Background(), LoginInput{Email: "nobody@example.com", Password: "whatever"})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	require.Equal(t, pkgerrors.CodeUnauthorized, appErr.Code())
}

func TestLoginRateLimited(t *testing.T) {
	f := newAuthFixture(t, config.AuthRateLimitConfig{
		LoginWindow:     time.Minute,
		LoginEmailLimit: 2,
		LoginIPLimit:    100,
	})
	ctx := context.Background()

	attempt := LoginInput{Email: "meera@example.com", Password: "wrong", ClientIP: "203.0.113.7"}
	for i := 0; i < 2; i++ {
		_, err := f.svc.Login(ctx, attempt)
		require.Error(t, err)
		appErr := pkgerrors.As(err)
		require.NotNil(t, appErr)
		require.Equal(t, pkgerrors.CodeUnauthorized, appErr.Code())
	}

	_, err := f.svc.Login(ctx, attempt)
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	require.Equal(t, pkgerrors.CodeRateLimit, appErr.Code())
}

func TestRefreshRotatesSession(t *testing.T) {
	f := newAuthFixture(t, config.AuthRateLimitConfig{})
	ctx := context.Background()

	first, err := f.svc.Register(ctx, registerInput())
	require.NoError(t, err)

	second, err := f.svc.Refresh(ctx, RefreshInput{
		AccessToken:  first.AccessToken,
		RefreshToken: first.RefreshToken,
	})
	require.NoError(t, err)
	require.NotEqual(t, first.AccessToken, second.AccessToken)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// the old pair is burned
	_, err = f.svc.Refresh(ctx, RefreshInput{
		AccessToken:  first.AccessToken,
		RefreshToken: first.RefreshToken,
	})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	require.Equal(t, pkgerrors.CodeUnauthorized, appErr.Code())
}

func TestLogoutRevokesAndNotifiesObservers(t *testing.T) {
	f := newAuthFixture(t, config.AuthRateLimitConfig{})
	ctx := context.Background()

	result, err := f.svc.Register(ctx, registerInput())
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, result.AccessToken))
	require.Len(t, f.sessions.revoked, 1)
	require.Contains(t, f.observer.events, EventLogout+":"+result.User.ID.String())

	// session gone: the refresh pair must stop working
	_, err = f.svc.Refresh(ctx, RefreshInput{AccessToken: result.AccessToken, RefreshToken: result.RefreshToken})
	require.Error(t, err)
}

func TestMe(t *testing.T) {
	f := newAuthFixture(t, config.AuthRateLimitConfig{})
	ctx := context.Background()

	result, err := f.svc.Register(ctx, registerInput())
	require.NoError(t, err)

	me, err := f.svc.Me(ctx, result.User.ID)
	require.NoError(t, err)
	require.Equal(t, "Meera Sharma", me.FullName)

	_, err = f.svc.Me(ctx, uuid.New())
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	require.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}
