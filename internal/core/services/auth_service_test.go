package services

import (
	"context"
	"strings"
	"sync"
	"testing"

	"shopcore/internal/adapters/persistence/models"
	"shopcore/internal/config"
	"shopcore/internal/pkg/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeUserRepo is an in-memory UserRepository
type fakeUserRepo struct {
	mu     sync.Mutex
	nextID uint
	users  map[uint]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uint]*models.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	u.ID = r.nextID
	clone := *u
	r.users[u.ID] = &clone
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uint) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			clone := *u
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := r.GetByUsername(ctx, username)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (r *fakeUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (r *fakeUserRepo) setActive(id uint, active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[id].IsActive = active
}

func (r *fakeUserRepo) setRole(id uint, role string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[id].Role = role
}

func authTestConfig() *config.Config {
	return &config.Config{
		AppMode: "dev",
		JWT: config.JWTConfig{
			Secret:           "access_secret",
			RefreshSecret:    "refresh_secret",
			AccessTokenMins:  15,
			RefreshTokenDays: 7,
		},
	}
}

func newTestAuthService() (*AuthService, *fakeUserRepo) {
	repo := newFakeUserRepo()
	return NewAuthService(repo, authTestConfig()), repo
}

func registerTestUser(t *testing.T, svc *AuthService) *AuthResponse {
	t.Helper()
	result, err := svc.Register(context.Background(), &RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	return result
}

func TestRegisterIssuesBothTokens(t *testing.T) {
	svc, _ := newTestAuthService()

	result := registerTestUser(t, svc)

	assert.Equal(t, "alice", result.User.Username)
	assert.Equal(t, models.RoleUser, result.User.Role)
	assert.NotEmpty(t, result.AccessToken)
	assert.NotEmpty(t, result.RefreshToken)

	// Both tokens verify under their respective secrets and kinds
	claims, err := token.Validate(result.AccessToken, token.KindAccess, "access_secret")
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, claims.UserID)
	assert.Equal(t, []string{models.RoleUser}, claims.Roles)

	refreshClaims, err := token.Validate(result.RefreshToken, token.KindRefresh, "refresh_secret")
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, refreshClaims.UserID)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	svc, _ := newTestAuthService()
	registerTestUser(t, svc)

	_, err := svc.Register(context.Background(), &RegisterInput{
		Username: "alice",
		Email:    "other@example.com",
		Password: "password123",
	})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)

	_, err = svc.Register(context.Background(), &RegisterInput{
		Username: "bob",
		Email:    "alice@example.com",
		Password: "password123",
	})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestLoginVerifiesPassword(t *testing.T) {
	svc, _ := newTestAuthService()
	registerTestUser(t, svc)

	result, err := svc.Login(context.Background(), &LoginInput{Username: "alice", Password: "password123"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)

	_, err = svc.Login(context.Background(), &LoginInput{Username: "alice", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Unknown user reports the same error as a wrong password
	_, err = svc.Login(context.Background(), &LoginInput{Username: "mallory", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginRejectsInactiveUser(t *testing.T) {
	svc, repo := newTestAuthService()
	result := registerTestUser(t, svc)

	repo.setActive(result.User.ID, false)

	_, err := svc.Login(context.Background(), &LoginInput{Username: "alice", Password: "password123"})
	assert.ErrorIs(t, err, ErrUserInactive)
}

func TestRefreshIssuesNewAccessTokenOnly(t *testing.T) {
	svc, _ := newTestAuthService()
	registered := registerTestUser(t, svc)

	refreshed, err := svc.Refresh(context.Background(), registered.RefreshToken)
	require.NoError(t, err)

	assert.NotEmpty(t, refreshed.AccessToken)
	assert.Empty(t, refreshed.RefreshToken)

	_, err = token.Validate(refreshed.AccessToken, token.KindAccess, "access_secret")
	assert.NoError(t, err)
}

func TestRefreshPicksUpRoleChange(t *testing.T) {
	svc, repo := newTestAuthService()
	registered := registerTestUser(t, svc)

	repo.setRole(registered.User.ID, models.RoleAdmin)

	refreshed, err := svc.Refresh(context.Background(), registered.RefreshToken)
	require.NoError(t, err)

	claims, err := token.Validate(refreshed.AccessToken, token.KindAccess, "access_secret")
	require.NoError(t, err)
	assert.Equal(t, []string{models.RoleAdmin}, claims.Roles)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	svc, _ := newTestAuthService()
	registered := registerTestUser(t, svc)

	// An access token must not be redeemable as a refresh token
	_, err := svc.Refresh(context.Background(), registered.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshRejectsTamperedToken(t *testing.T) {
	svc, _ := newTestAuthService()
	registered := registerTestUser(t, svc)

	parts := strings.Split(registered.RefreshToken, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + ".AAAA"

	_, err := svc.Refresh(context.Background(), tampered)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshRejectsInactiveUser(t *testing.T) {
	svc, repo := newTestAuthService()
	registered := registerTestUser(t, svc)

	repo.setActive(registered.User.ID, false)

	_, err := svc.Refresh(context.Background(), registered.RefreshToken)
	assert.ErrorIs(t, err, ErrUserInactive)
}
