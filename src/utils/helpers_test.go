package utils

import (
	"eventhub/src/types"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaginate(t *testing.T) {
	page, limit := Paginate(0, 0, 12)
	assert.Equal(t, 1, page)
	assert.Equal(t, 12, limit)

	page, limit = Paginate(3, 500, 10)
	assert.Equal(t, 3, page)
	assert.Equal(t, 100, limit)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret!", hash)
	assert.True(t, VerifyPassword(hash, "s3cret!"))
	assert.False(t, VerifyPassword(hash, "wrong"))
}

func TestJWTRoundTrip(t *testing.T) {
	token, err := GenerateJWT("secret", time.Hour, 42, "ada@example.com", types.ROLE_ADMIN)
	require.NoError(t, err)

	id, claims, err := ParseJWT("secret", token)
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, types.ROLE_ADMIN, claims.Role)

	_, _, err = ParseJWT("other-secret", token)
	assert.Error(t, err)

	expired, err := GenerateJWT("secret", -time.Minute, 42, "ada@example.com", types.ROLE_USER)
	require.NoError(t, err)
	_, _, err = ParseJWT("secret", expired)
	assert.Error(t, err)
}
