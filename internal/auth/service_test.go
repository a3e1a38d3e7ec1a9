package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/brandinbox/internal/users"
	pkgAuth "github.com/angelmondragon/brandinbox/pkg/auth"
	"github.com/angelmondragon/brandinbox/pkg/config"
	"github.com/angelmondragon/brandinbox/pkg/db/models"
	pkgerrors "github.com/angelmondragon/brandinbox/pkg/errors"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeUserRepo struct {
	byEmail map[string]*models.User
	nextID  uint
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: map[string]*models.User{}, nextID: 1}
}

func (f *fakeUserRepo) Create(_ context.Context, dto users.CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	user.ID = f.nextID
	user.CreatedAt = time.Now()
	f.nextID++
	f.byEmail[user.Email] = user
	return user, nil
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) FindByID(_ context.Context, id uint) (*models.User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeRevoker struct {
	revoked map[string]time.Duration
	err     error
}

func (f *fakeRevoker) RevokeToken(_ context.Context, id string, ttl time.Duration) error {
	if f.err != nil {
		return f.err
	}
	f.revoked[id] = ttl
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test-secret", Issuer: "bnb-api", ExpirationMinutes: 60}
}

func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{ArgonMemoryKB: 8 * 1024, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}
}

func newTestService(t *testing.T) (*service, *fakeUserRepo, *fakeRevoker) {
	t.Helper()
	repo := newFakeUserRepo()
	revoker := &fakeRevoker{revoked: map[string]time.Duration{}}
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		Revoker:        revoker,
		JWTConfig:      testJWTConfig(),
		PasswordConfig: testPasswordConfig(),
	})
	require.NoError(t, err)
	return svc.(*service), repo, revoker
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	user, err := svc.Register(ctx, RegisterRequest{Email: " Seller@Example.com", Password: "correct-horse"})
	require.NoError(t, err)
	require.Equal(t, "seller@example.com", user.Email)
	require.NotZero(t, user.ID)

	_, err = svc.Register(ctx, RegisterRequest{Email: "seller@example.com", Password: "correct-horse"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "expected conflict, got %v", err)

	token, err := svc.Login(ctx, LoginRequest{Email: "SELLER@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	require.Equal(t, "bearer", token.TokenType)

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig(), token.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)
	require.NotEmpty(t, claims.ID)

	me, err := svc.Me(ctx, claims.UserID)
	require.NoError(t, err)
	require.Equal(t, user.Email, me.Email)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Register(context.Background(), RegisterRequest{Email: "a@b.co", Password: "short"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	_, err := svc.Register(ctx, RegisterRequest{Email: "a@b.co", Password: "password1"})
	require.NoError(t, err)

	for _, req := range []LoginRequest{
		{Email: "a@b.co", Password: "wrong-pass"},
		{Email: "missing@b.co", Password: "password1"},
		{Email: "", Password: "password1"},
	} {
		_, err := svc.Login(ctx, req)
		typed := pkgerrors.As(err)
		require.NotNil(t, typed)
		require.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
		require.Equal(t, invalidCredentialsMessage, typed.Message())
	}
}

func TestLogoutRevokesForRemainingLifetime(t *testing.T) {
	ctx := context.Background()
	svc, _, revoker := newTestService(t)

	parsed, err := pkgAuth.ParseAccessToken(testJWTConfig(), mustMint(t, time.Now(), "jti-2"))
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, parsed))
	require.Contains(t, revoker.revoked, "jti-2")
	require.Greater(t, revoker.revoked["jti-2"], 50*time.Minute)

	// a token past its expiry needs no revocation entry
	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	expiring, err := pkgAuth.ParseAccessToken(testJWTConfig(), mustMint(t, time.Now(), "jti-old"))
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, expiring))
	require.NotContains(t, revoker.revoked, "jti-old")
	svc.now = time.Now

	revoker.err = errors.New("redis down")
	parsed3, err := pkgAuth.ParseAccessToken(testJWTConfig(), mustMint(t, time.Now(), "jti-3"))
	require.NoError(t, err)
	require.True(t, pkgerrors.IsCode(svc.Logout(ctx, parsed3), pkgerrors.CodeDependency))

	require.True(t, pkgerrors.IsCode(svc.Logout(ctx, nil), pkgerrors.CodeUnauthorized))
}

func mustMint(t *testing.T, now time.Time, jti string) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(testJWTConfig(), now, pkgAuth.AccessTokenPayload{UserID: 4, JTI: jti})
	require.NoError(t, err)
	return token
}
