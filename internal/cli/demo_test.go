package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cohort/internal/testutil"
)

func TestDemoCommand_AllQueriesSucceed(t *testing.T) {
	db := testutil.WriteBankDB(t)

	out, err := execute(t, "demo", "--db", db)
	require.NoError(t, err)

	// One block per canned query, then the registry summary.
	for _, q := range demoQueries {
		assert.Contains(t, out, "=== "+q)
	}
	assert.Contains(t, out, "Registry: 4 segments")
	assert.Contains(t, out, "SEG_")
}

func TestDemoCommand_MissingDatabase(t *testing.T) {
	_, err := execute(t, "demo", "--db", "/nonexistent/bank.db")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
