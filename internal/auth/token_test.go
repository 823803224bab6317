package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/invest-be/internal/models"
)

func TestGenerateAndParse(t *testing.T) {
	tm := NewTokenManager("secret", "invest-test", time.Hour)
	token, err := tm.Generate(models.User{ID: 42, Email: "a@b.co", IsAdmin: true})
	require.NoError(t, err)

	p, err := tm.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), p.UserID)
	assert.Equal(t, "a@b.co", p.Email)
	assert.True(t, p.IsAdmin())
	assert.True(t, p.Can(models.CapDecideTransactions))
}

func TestParseRejectsForeignTokens(t *testing.T) {
	issued := NewTokenManager("secret", "invest-test", time.Hour)
	token, err := issued.Generate(models.User{ID: 1})
	require.NoError(t, err)

	_, err = NewTokenManager("other", "invest-test", time.Hour).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewTokenManager("secret", "someone-else", time.Hour).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsExpired(t *testing.T) {
	tm := NewTokenManager("secret", "invest-test", time.Minute)
	tm.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := tm.Generate(models.User{ID: 7})
	require.NoError(t, err)

	tm.now = time.Now
	_, err = tm.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestInvestorHasNoAdminCapabilities(t *testing.T) {
	p := Principal{UserID: 3, Role: models.RoleInvestor}
	assert.False(t, p.IsAdmin())
	assert.False(t, p.Can(models.CapManageSettings))

	ctx := WithPrincipal(context.Background(), p)
	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, p, got)
}
