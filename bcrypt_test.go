package identity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	identity "github.com/trustlayer/go-identity"
)

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{
			name:     "valid password",
			password: "securePassword123!",
		},
		{
			name:     "empty password",
			password: "",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := identity.HashPassword(tt.password)
			if tt.wantErr {
				assert.ErrorIs(t, err, identity.ErrNoEmptyString)
				return
			}

			require.NoError(t, err)
			assert.NotEqual(t, tt.password, hash)
			assert.NoError(t, identity.ComparePasswordAndHash(tt.password, hash))
		})
	}
}

func TestComparePasswordAndHash_Mismatch(t *testing.T) {
	hash, err := identity.HashPassword("testPassword123!")
	require.NoError(t, err)

	err = identity.ComparePasswordAndHash("wrongPassword", hash)
	assert.ErrorIs(t, err, identity.ErrMismatchedHashAndPassword)
}

func TestHashOTP_SaltedPerCode(t *testing.T) {
	first, err := identity.HashOTP("123456")
	require.NoError(t, err)
	second, err := identity.HashOTP("123456")
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "each hash carries its own salt")
	assert.NoError(t, identity.CompareOTP("123456", first))
	assert.NoError(t, identity.CompareOTP("123456", second))
	assert.ErrorIs(t, identity.CompareOTP("654321", first), identity.ErrMismatchedHashAndPassword)
}

func TestCompareOTP_EmptyHash(t *testing.T) {
	assert.ErrorIs(t, identity.CompareOTP("123456", ""), identity.ErrMismatchedHashAndPassword)
}
