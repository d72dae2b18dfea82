package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventpool/lottery-api/internal/model"
)

func testUser() *model.User {
	u := &model.User{Email: "member@example.com", Name: "Member"}
	u.ID = uuid.New()
	return u
}

func TestTokenRoundTrip(t *testing.T) {
	svc := NewJWTService(Config{Secret: "test-secret", ExpiryHours: 1})
	user := testUser()

	token, expiresAt, err := svc.GenerateAccessToken(user)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	memberID, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, memberID)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	issuer := NewJWTService(Config{Secret: "secret-a", ExpiryHours: 1})
	verifier := NewJWTService(Config{Secret: "secret-b", ExpiryHours: 1})

	token, _, err := issuer.GenerateAccessToken(testUser())
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateRejectsGarbage(t *testing.T) {
	svc := NewJWTService(Config{Secret: "test-secret", ExpiryHours: 1})

	_, err := svc.ValidateToken("not-a-token")
	assert.Error(t, err)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	svc := NewJWTService(Config{Secret: "test-secret", ExpiryHours: -1})

	token, _, err := svc.GenerateAccessToken(testUser())
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}
