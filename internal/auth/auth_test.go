package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/churnwatch/churnwatch/internal/auth"
)

func newService(t *testing.T, duration time.Duration) *auth.Service {
	t.Helper()
	hash, err := auth.HashPassword("s3cret")
	require.NoError(t, err)
	return auth.NewService(auth.Config{
		Secret:        "test-signing-key",
		TokenDuration: duration,
		Username:      "ops",
		PasswordHash:  hash,
	})
}

func TestService_LoginAndValidate(t *testing.T) {
	svc := newService(t, time.Hour)

	token, err := svc.Login("ops", "s3cret")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Username)
}

func TestService_LoginRejectsBadCredentials(t *testing.T) {
	svc := newService(t, time.Hour)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{name: "wrong password", username: "ops", password: "nope"},
		{name: "unknown user", username: "admin", password: "s3cret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(tt.username, tt.password)
			assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
		})
	}
}

func TestService_ValidateRejectsExpiredToken(t *testing.T) {
	svc := newService(t, time.Millisecond)

	token, err := svc.GenerateToken("ops")
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, auth.ErrTokenExpired)
}

func TestService_ValidateRejectsForeignToken(t *testing.T) {
	svc := newService(t, time.Hour)
	other := auth.NewService(auth.Config{Secret: "different-key", Username: "ops"})

	token, err := other.GenerateToken("ops")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}
