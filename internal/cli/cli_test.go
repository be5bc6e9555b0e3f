package cli

import (
	"bytes"
	"strings"
	"testing"

	"talentMarket/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("JWT_SECRET", "cli-secret")
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTokenCommand(t *testing.T) {
	out, err := run(t, "token", "--company", "acme", "--user", "ops")
	require.NoError(t, err)

	claims, err := utils.ParseJWT(strings.TrimSpace(out), "cli-secret")
	require.NoError(t, err)
	assert.Equal(t, "acme", claims.CompanyID)
	assert.Equal(t, "ops", claims.UserID)
	assert.Equal(t, utils.RoleCompany, claims.Role)

	_, err = run(t, "token", "--role", "company")
	assert.Error(t, err)
	_, err = run(t, "token", "--role", "root")
	assert.Error(t, err)
}

func TestTopUpAndReconcileOnMemoryStore(t *testing.T) {
	out, err := run(t, "topup", "--company", "acme", "--amount", "25", "--ref", "invoice-1")
	require.NoError(t, err)
	assert.Contains(t, out, "balance 25")

	// each invocation starts from an empty in-memory store
	out, err = run(t, "reconcile")
	require.NoError(t, err)
	assert.Contains(t, out, "0 wallets checked")
}

func TestGenerateNeedsOneOwner(t *testing.T) {
	_, err := run(t, "generate")
	assert.Error(t, err)

	_, err = run(t, "generate", "--job", "J1", "--candidate", "C1")
	assert.Error(t, err)

	_, err = run(t, "generate", "--job", "J404")
	assert.Error(t, err)
}

func TestMigrateNeedsPostgres(t *testing.T) {
	_, err := run(t, "migrate")
	assert.Error(t, err)
}

func TestRefundValidation(t *testing.T) {
	_, err := run(t, "refund", "--company", "acme", "--amount", "0", "--ref", "r1")
	assert.Error(t, err)

	// no wallet yet
	_, err = run(t, "refund", "--company", "acme", "--amount", "5", "--ref", "r1")
	assert.Error(t, err)
}
