package cmd

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradebook/ledger"
)

// run executes the CLI once. Flag variables outlive a single Execute,
// so they are reset first.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cfgFile, dbPath, requester = "", "", "tester"
	answerYes, answerNo, answerLater = false, false, false
	listLimit, listOrg, clearYes = ledger.DefaultListLimit, false, false
	showText, serveAddr = false, ""

	var out bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

const ethTrade = "2026-01-11 14:52:41 eth 多 3090.4 3094.2 0.64"

func TestVersion(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "tradebook version "+version)
}

func TestConfigInitAndValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tradebook.yaml")

	out, err := run(t, "", "config", "init", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Created default configuration")
	assert.FileExists(t, path)

	out, err = run(t, "", "config", "validate", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration valid")
	assert.Contains(t, out, "Pending: memory")
}

func TestTradeWorkflow(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "trades.db")
	trade := append([]string{"--db", db, "trade"}, strings.Fields(ethTrade)...)

	out, err := run(t, "", trade...)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Recorded #1")
	assert.Contains(t, out, "Realized 2.0362")

	out, err = run(t, "", append(trade, "--no")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Looks like a trade already recorded")
	assert.Contains(t, out, "✗ Duplicate discarded")

	out, err = run(t, "y\n", trade...)
	require.NoError(t, err)
	assert.Contains(t, out, "Record it anyway?")
	assert.Contains(t, out, "✓ Recorded #2")

	out, err = run(t, "\n", trade...)
	require.NoError(t, err)
	assert.Contains(t, out, "✗ Duplicate discarded")

	out, err = run(t, "", "--db", db, "list")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "ETH 多"))

	out, err = run(t, "", "--db", db, "view", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "** Trade #1: ETH 多")

	_, err = run(t, "", "--db", db, "trade", "2026-01-11", "14:52:41", "eth", "多", "abc", "3094.2", "0.64")
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrMalformed)

	out, err = run(t, "", "--db", db, "delete", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted trade #1")

	_, err = run(t, "", "--db", db, "view", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	_, err = run(t, "", "--db", db, "view", "x")
	assert.ErrorIs(t, err, ledger.ErrMalformed)

	out, err = run(t, "", "--db", db, "reindex")
	require.NoError(t, err)
	assert.Contains(t, out, "renumbered")

	_, err = run(t, "", "--db", db, "view", "1")
	require.NoError(t, err)

	_, err = run(t, "", "--db", db, "clear")
	require.Error(t, err)

	out, err = run(t, "", "--db", db, "clear", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "All trades deleted")

	out, err = run(t, "", "--db", db, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No trades recorded")
}

func TestBatchReportsAndBalance(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "trades.db")

	batch := strings.Join([]string{
		ethTrade,
		"2026/1/10 9:00:00 btc 空 42000 41800 0.01",
		"garbage",
		ethTrade,
	}, "\n")
	out, err := run(t, batch, "--db", db, "batch", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2, skipped 1 duplicates, 1 malformed")
	assert.Contains(t, out, "line 3:")

	out, err = run(t, "", "--db", db, "query", "all")
	require.NoError(t, err)
	assert.Contains(t, out, "Period: all (since the beginning), 2 trades")

	_, err = run(t, "", "--db", db, "query", "decade")
	assert.ErrorIs(t, err, ledger.ErrMalformed)

	out, err = run(t, "", "--db", db, "daily")
	require.NoError(t, err)
	assert.Contains(t, out, "2026-01-10")
	assert.Contains(t, out, "2026-01-11")

	out, err = run(t, "", "--db", db, "winrate")
	require.NoError(t, err)
	assert.Contains(t, out, "Trades 2: 2 won")

	out, err = run(t, "", "--db", db, "equity")
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(out, "\n"))

	exportDir := filepath.Join(dir, "export")
	out, err = run(t, "", "--db", db, "export", exportDir)
	require.NoError(t, err)
	for _, name := range []string{ledger.TradesFile, ledger.DailyFile, ledger.EquityFile, ledger.WinRateFile} {
		assert.FileExists(t, filepath.Join(exportDir, name))
		assert.Contains(t, out, name)
	}

	out, err = run(t, "", "--db", db, "balance", "init", "1,000")
	require.NoError(t, err)
	assert.Contains(t, out, "init 1000.00 recorded for tester")

	_, err = run(t, "", "--db", db, "balance", "init", "50")
	assert.ErrorIs(t, err, ledger.ErrInitialExists)

	_, err = run(t, "", "--db", db, "balance", "withdraw", "0")
	assert.ErrorIs(t, err, ledger.ErrNonPositiveAmount)

	out, err = run(t, "", "--db", db, "balance")
	require.NoError(t, err)
	assert.Contains(t, out, "Initial      1000.00")
}

func TestBadEnvironmentFailsSetup(t *testing.T) {
	t.Setenv("TRADEBOOK_FEE_RATE", "lots")

	_, err := run(t, "", "--db", filepath.Join(t.TempDir(), "x.db"), "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TRADEBOOK_FEE_RATE")
}
