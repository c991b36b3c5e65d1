package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateToken(t *testing.T) {
	validator := NewJWTValidator("test-secret", "neuralmesh")

	t.Run("round trip", func(t *testing.T) {
		token, err := validator.GenerateToken("station_alpha", []string{"operator"}, time.Hour)
		require.NoError(t, err)

		claims, err := validator.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, "station_alpha", claims.StationID)
		assert.Equal(t, []string{"operator"}, claims.Roles)
	})

	t.Run("accepts the Bearer prefix", func(t *testing.T) {
		token, err := validator.GenerateToken("station_alpha", nil, time.Hour)
		require.NoError(t, err)

		claims, err := validator.ValidateToken("Bearer " + token)
		require.NoError(t, err)
		assert.Equal(t, "station_alpha", claims.StationID)
	})

	t.Run("empty token", func(t *testing.T) {
		_, err := validator.ValidateToken("")
		assert.ErrorIs(t, err, ErrMissingToken)
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := validator.GenerateToken("station_alpha", nil, -time.Minute)
		require.NoError(t, err)

		_, err = validator.ValidateToken(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTValidator("other-secret", "neuralmesh")
		token, err := other.GenerateToken("station_alpha", nil, time.Hour)
		require.NoError(t, err)

		_, err = validator.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewJWTValidator("test-secret", "someone-else")
		token, err := other.GenerateToken("station_alpha", nil, time.Hour)
		require.NoError(t, err)

		_, err = validator.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidClaims)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := validator.ValidateToken("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestCallerContext(t *testing.T) {
	claims := &Claims{StationID: "station_alpha"}
	ctx := SetCallerInContext(context.Background(), claims)

	caller, err := GetCallerFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "station_alpha", caller.StationID)

	_, err = GetCallerFromContext(context.Background())
	assert.Error(t, err)
}
