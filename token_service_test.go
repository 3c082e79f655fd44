package accounts_test

import (
	"testing"

	"github.com/google/uuid"
	accounts "github.com/loopscentral/go-accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenService(key string) *accounts.TokenServiceImpl {
	return accounts.NewTokenService([]byte(key), 15, 24, "accounts-test", nil, testLogger{})
}

func staffIdentity() accounts.Identity {
	return accounts.NewIdentity(&accounts.User{
		UUID:     uuid.New(),
		Username: "admin",
		Email:    "admin@example.com",
		IsStaff:  true,
	})
}

func TestGeneratePair(t *testing.T) {
	svc := newTestTokenService("test-key")
	identity := staffIdentity()

	pair, err := svc.GeneratePair(identity)
	require.NoError(t, err)

	assert.NotEmpty(t, pair.Access)
	assert.NotEmpty(t, pair.Refresh)
	assert.NotEqual(t, pair.Access, pair.Refresh)
	assert.True(t, pair.RefreshExpiresAt.After(pair.AccessExpiresAt))
}

func TestValidateAccessToken(t *testing.T) {
	svc := newTestTokenService("test-key")
	identity := staffIdentity()

	pair, err := svc.GeneratePair(identity)
	require.NoError(t, err)

	claims, err := svc.Validate(pair.Access)
	require.NoError(t, err)

	assert.Equal(t, identity.ID(), claims.UserID())
	assert.Equal(t, accounts.TokenUseAccess, claims.TokenUse())
	assert.True(t, claims.IsStaff())
	assert.False(t, claims.Expires().IsZero())
}

func TestValidateRejectsWrongKey(t *testing.T) {
	pair, err := newTestTokenService("key-one").GeneratePair(staffIdentity())
	require.NoError(t, err)

	_, err = newTestTokenService("key-two").Validate(pair.Access)
	assert.Error(t, err)
	assert.True(t, accounts.IsMalformedError(err))
}

func TestValidateRejectsGarbage(t *testing.T) {
	svc := newTestTokenService("test-key")

	_, err := svc.Validate("not.a.jwt")
	assert.Error(t, err)
}

func TestValidateExpiredToken(t *testing.T) {
	// both TTLs in the past
	svc := accounts.NewTokenService([]byte("test-key"), -1, -1, "accounts-test", nil, testLogger{})

	pair, err := svc.GeneratePair(staffIdentity())
	require.NoError(t, err)

	_, err = svc.Validate(pair.Access)
	require.Error(t, err)
	assert.True(t, accounts.IsTokenExpiredError(err))
}

func TestValidateRefreshRequiresRefreshUse(t *testing.T) {
	svc := newTestTokenService("test-key")

	pair, err := svc.GeneratePair(staffIdentity())
	require.NoError(t, err)

	claims, err := svc.ValidateRefresh(pair.Refresh)
	require.NoError(t, err)
	assert.Equal(t, accounts.TokenUseRefresh, claims.TokenUse())

	// an access token never buys a new pair
	_, err = svc.ValidateRefresh(pair.Access)
	assert.Error(t, err)
}

func TestValidateIssuerMismatch(t *testing.T) {
	minted, err := accounts.NewTokenService([]byte("test-key"), 15, 24, "issuer-a", nil, testLogger{}).
		GeneratePair(staffIdentity())
	require.NoError(t, err)

	_, err = accounts.NewTokenService([]byte("test-key"), 15, 24, "issuer-b", nil, testLogger{}).
		Validate(minted.Access)
	assert.Error(t, err)
}
