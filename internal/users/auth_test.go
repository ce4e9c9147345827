package users

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret-pw")
	require.NoError(t, err)
	require.NotEqual(t, "s3cret-pw", hash)

	assert.NoError(t, CheckPassword(hash, "s3cret-pw"))
	assert.ErrorIs(t, CheckPassword(hash, "wrong"), ErrBadCredentials)
	assert.ErrorIs(t, CheckPassword("not-a-hash", "s3cret-pw"), ErrBadCredentials)
}

func TestTokenIssueAndVerify(t *testing.T) {
	issuer := NewTokenIssuer("unit-test-secret")
	u := User{ID: "u-1", Name: "Lan", Email: "lan@example.com", Role: RoleSupplier}

	token, err := issuer.Issue(u)
	require.NoError(t, err)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.Subject)
	assert.Equal(t, RoleSupplier, claims.Role)
	assert.Equal(t, "lan@example.com", claims.Email)
	assert.Equal(t, "Lan", claims.Name)
}

func TestTokenWrongSecretRejected(t *testing.T) {
	token, err := NewTokenIssuer("secret-a").Issue(User{ID: "u-1", Role: RoleCustomer})
	require.NoError(t, err)

	_, err = NewTokenIssuer("secret-b").Verify(token)
	assert.ErrorIs(t, err, ErrBadCredentials)
}

func TestTokenExpiryRejected(t *testing.T) {
	issuer := &TokenIssuer{Secret: []byte("s"), TTL: -time.Minute}
	token, err := issuer.Issue(User{ID: "u-1", Role: RoleCustomer})
	require.NoError(t, err)

	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, ErrBadCredentials)
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleCustomer.Valid())
	assert.True(t, RoleSupplier.Valid())
	assert.True(t, RoleAdmin.Valid())
	assert.False(t, Role("root").Valid())
}
