package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	Init("test-secret-test-secret-test-secret", time.Hour)

	token, err := GenerateToken("user-1", RoleEditor)
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, RoleEditor, claims.Role)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestParseToken_WrongSecret(t *testing.T) {
	Init("secret-one-secret-one-secret-one-00", time.Hour)
	token, err := GenerateToken("user-1", RoleUser)
	require.NoError(t, err)

	Init("secret-two-secret-two-secret-two-00", time.Hour)
	_, err = ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseToken_Expired(t *testing.T) {
	Init("test-secret-test-secret-test-secret", time.Millisecond)
	token, err := GenerateToken("user-1", RoleUser)
	require.NoError(t, err)

	time.Sleep(1100 * time.Millisecond)
	_, err = ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGenerateOTP(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := GenerateOTP()
		require.NoError(t, err)
		assert.Len(t, code, 6)
		for _, r := range code {
			assert.True(t, r >= '0' && r <= '9')
		}
	}
}

func TestHashOTP(t *testing.T) {
	hash, err := HashOTP("123456")
	require.NoError(t, err)
	assert.True(t, CheckPasswordHash("123456", hash))
	assert.False(t, CheckPasswordHash("654321", hash))
}

func TestValidatePassword(t *testing.T) {
	assert.Error(t, ValidatePassword("short"))
	assert.NoError(t, ValidatePassword("long enough"))
	// runes, not bytes
	assert.Error(t, ValidatePassword("密码密码密码"))
}

func TestPermissions(t *testing.T) {
	assert.True(t, HasPermission(RoleEditor, PermContentModerate))
	assert.False(t, HasPermission(RoleUser, PermContentModerate))
	assert.True(t, HasPermission(RoleAdmin, PermCompaniesAdmin))
	assert.False(t, HasPermission(RoleEditor, PermCompaniesAdmin))
	assert.True(t, IsEditorOrHigher(RoleAdmin))
	assert.Error(t, ValidateRole("moderator"))
}
