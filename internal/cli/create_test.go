package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cohort/internal/testutil"
)

func TestCreateCommand_Success(t *testing.T) {
	db := testutil.WriteBankDB(t)

	out, err := execute(t, "create", "--db", db,
		"Customers who have a housing loan and balance over 1000")
	require.NoError(t, err)

	assert.Contains(t, out, "Status: success")
	assert.Contains(t, out,
		`SELECT * FROM bank_customers WHERE "housing" = 'yes' AND "balance" > 1000 LIMIT 1000`)
	assert.Contains(t, out, "3 customers")
	assert.Contains(t, out, "intent_parsing")
	assert.Contains(t, out, "activation")
}

func TestCreateCommand_JSONOutput(t *testing.T) {
	db := testutil.WriteBankDB(t)

	out, err := execute(t, "create", "--db", db, "--format", "json",
		"Customers with balance over 5000")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "success", data["status"])
	assert.Contains(t, data["generated_query"], `"balance" > 5000`)
}

func TestCreateCommand_UnparseableInputFails(t *testing.T) {
	db := testutil.WriteBankDB(t)

	out, err := execute(t, "create", "--db", db, "our very best customers")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Status: error")
}

func TestCreateCommand_MissingDatabase(t *testing.T) {
	_, err := execute(t, "create", "--db", "/nonexistent/bank.db", "married customers")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCreateCommand_BadConfig(t *testing.T) {
	db := testutil.WriteBankDB(t)

	_, err := execute(t, "create", "--db", db, "--config", "/nonexistent/cfg.yaml", "married customers")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCreateCommand_RequiresArgument(t *testing.T) {
	_, err := execute(t, "create")
	require.Error(t, err)
}
