package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseJWT(t *testing.T) {
	token, err := GenerateJWT("secret", "acme", "u-1", RoleCompany, time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWT(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "acme", claims.CompanyID)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, RoleCompany, claims.Role)
}

func TestParseJWTRejects(t *testing.T) {
	token, err := GenerateJWT("secret", "acme", "u-1", RoleCompany, time.Hour)
	require.NoError(t, err)

	_, err = ParseJWT(token, "other-secret")
	assert.Error(t, err)

	expired, err := GenerateJWT("secret", "acme", "u-1", RoleCompany, -time.Minute)
	require.NoError(t, err)
	_, err = ParseJWT(expired, "secret")
	assert.Error(t, err)

	_, err = ParseJWT("not-a-token", "secret")
	assert.Error(t, err)

	_, err = GenerateJWT("", "acme", "u-1", RoleCompany, time.Hour)
	assert.Error(t, err)
}
