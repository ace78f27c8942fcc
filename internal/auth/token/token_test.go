package token

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portalx/internal/auth/models"
	dErrors "portalx/pkg/domain-errors"
)

const testSecret = "test-signing-key"

func TestGenerateAndValidate(t *testing.T) {
	svc := New(testSecret, time.Hour)

	signed, err := svc.Generate(42, "user@example.com", models.RoleUser)
	require.NoError(t, err)

	payload, err := svc.Validate(signed)
	require.NoError(t, err)
	assert.Equal(t, int64(42), payload.UserID)
	assert.Equal(t, "user@example.com", payload.Email)
	assert.Equal(t, models.RoleUser, payload.Role)
}

func TestValidateExpired(t *testing.T) {
	svc := New(testSecret, -time.Minute)

	signed, err := svc.Generate(42, "user@example.com", models.RoleUser)
	require.NoError(t, err)

	_, err = svc.Validate(signed)
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeTokenExpired, dErrors.CodeOf(err))
}

func TestValidateMalformed(t *testing.T) {
	svc := New(testSecret, time.Hour)

	t.Run("garbage string", func(t *testing.T) {
		_, err := svc.Validate("not-a-token")
		require.Error(t, err)
		assert.Equal(t, dErrors.CodeTokenMalformed, dErrors.CodeOf(err))
	})

	t.Run("wrong signing key", func(t *testing.T) {
		signed, err := New("different-key", time.Hour).Generate(42, "user@example.com", models.RoleUser)
		require.NoError(t, err)

		_, err = svc.Validate(signed)
		require.Error(t, err)
		assert.Equal(t, dErrors.CodeTokenMalformed, dErrors.CodeOf(err))
	})

	t.Run("incomplete payload", func(t *testing.T) {
		// Structurally valid and correctly signed, but missing id/email/role.
		bare := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})
		signed, err := bare.SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = svc.Validate(signed)
		require.Error(t, err)
		assert.Equal(t, dErrors.CodeTokenMalformed, dErrors.CodeOf(err))
	})

	t.Run("expired is distinct from malformed", func(t *testing.T) {
		expired, err := New(testSecret, -time.Minute).Generate(42, "user@example.com", models.RoleUser)
		require.NoError(t, err)

		_, expErr := svc.Validate(expired)
		_, malErr := svc.Validate("not-a-token")
		assert.NotEqual(t, dErrors.CodeOf(expErr), dErrors.CodeOf(malErr))
	})
}

func TestValidateRejectsNonHMAC(t *testing.T) {
	svc := New(testSecret, time.Hour)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		UserID: 42,
		Email:  "user@example.com",
		Role:   models.RoleUser,
	})
	signed, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.Validate(signed)
	require.Error(t, err)
	var domainErr *dErrors.Error
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, dErrors.CodeTokenMalformed, domainErr.Code)
}
