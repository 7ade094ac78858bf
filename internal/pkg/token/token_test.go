package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test_secret_key"

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := IssueAccess(42, "buyer@example.com", []string{"USER", "ADMIN"}, testSecret, 15*time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	claims, err := Validate(tok, KindAccess, testSecret)
	require.NoError(t, err)

	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "buyer@example.com", claims.Email)
	assert.Equal(t, []string{"USER", "ADMIN"}, claims.Roles)
	assert.Equal(t, KindAccess, claims.Kind)
}

func TestRefreshTokenCarriesNoRoles(t *testing.T) {
	tok, err := IssueRefresh(7, testSecret, 24*time.Hour)
	require.NoError(t, err)

	claims, err := Validate(tok, KindRefresh, testSecret)
	require.NoError(t, err)

	assert.Equal(t, uint(7), claims.UserID)
	assert.Empty(t, claims.Roles)
	assert.Empty(t, claims.Email)
}

func TestValidateRejectsWrongKind(t *testing.T) {
	access, err := IssueAccess(1, "a@b.c", []string{"USER"}, testSecret, 15*time.Minute)
	require.NoError(t, err)
	refresh, err := IssueRefresh(1, testSecret, 24*time.Hour)
	require.NoError(t, err)

	// A refresh token must not pass as an access token and vice versa
	_, err = Validate(refresh, KindAccess, testSecret)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = Validate(access, KindRefresh, testSecret)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	tok, err := IssueAccess(1, "a@b.c", []string{"USER"}, testSecret, 15*time.Minute)
	require.NoError(t, err)

	_, err = Validate(tok, KindAccess, "another_secret")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	// Expired beyond the clock skew leeway
	tok, err := IssueAccess(1, "a@b.c", []string{"USER"}, testSecret, -(ClockSkewLeeway + time.Minute))
	require.NoError(t, err)

	_, err = Validate(tok, KindAccess, testSecret)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestValidateToleratesClockSkew(t *testing.T) {
	// Expired, but within the leeway window
	tok, err := IssueAccess(1, "a@b.c", []string{"USER"}, testSecret, -(ClockSkewLeeway / 2))
	require.NoError(t, err)

	_, err = Validate(tok, KindAccess, testSecret)
	assert.NoError(t, err)
}

func TestValidateRejectsGarbage(t *testing.T) {
	_, err := Validate("not.a.token", KindAccess, testSecret)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = Validate("", KindAccess, testSecret)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
