package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/erp/storesync/internal/infrastructure/auth"
	"github.com/erp/storesync/internal/infrastructure/config"
)

func testCLI() *cli {
	return &cli{
		timeout: time.Minute,
		cfg: &config.Config{
			JWT: config.JWTConfig{Secret: "test-secret-with-enough-length", Issuer: "storesync", TokenExpiration: time.Hour},
		},
		log: zap.NewNop(),
	}
}

func run(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommandTree(t *testing.T) {
	root := newRootCmd()

	names := make([]string, 0, len(root.Commands()))
	for _, sub := range root.Commands() {
		names = append(names, sub.Name())
	}
	for _, want := range []string{"sync", "bulk", "status", "reset", "test-connection", "sweep", "backfill", "purge", "report", "health", "archive-url", "token", "migrate"} {
		assert.Contains(t, names, want)
	}

	for _, path := range [][]string{
		{"token", "issue"},
		{"token", "revoke"},
		{"migrate", "up"},
		{"migrate", "step"},
		{"migrate", "drop"},
		{"migrate", "list"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, strings.Join(path, " "))
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}

	backfill, _, err := root.Find([]string{"backfill"})
	require.NoError(t, err)
	assert.Equal(t, "200", backfill.Flags().Lookup("batch").DefValue)
}

func TestRootFlags(t *testing.T) {
	root := newRootCmd()
	require.NoError(t, root.ParseFlags([]string{"--log-level", "debug", "--timeout", "30s"}))

	level, err := root.PersistentFlags().GetString("log-level")
	require.NoError(t, err)
	assert.Equal(t, "debug", level)

	timeout, err := root.PersistentFlags().GetDuration("timeout")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, timeout)
}

func TestArgsAreValidatedBeforeConfigLoads(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"sync without ids", []string{"sync"}},
		{"status with two ids", []string{"status", "a", "b"}},
		{"unknown sweep", []string{"sweep", "everything"}},
		{"step without count", []string{"migrate", "step"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, newRootCmd(), tt.args...)
			require.Error(t, err)
			assert.NotContains(t, err.Error(), "load config")
		})
	}
}

func TestTokenIssue(t *testing.T) {
	c := testCLI()

	out, err := run(t, newTokenIssueCmd(c), "--operator", "alice", "--scopes", "sync:read, sync:write", "--ttl", "10m")
	require.NoError(t, err)

	var tok auth.IssuedToken
	require.NoError(t, json.Unmarshal([]byte(out), &tok))
	assert.NotEmpty(t, tok.TokenID)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), tok.ExpiresAt, time.Minute)

	claims, err := auth.NewJWTService(c.cfg.JWT).Validate(tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Operator)
	assert.True(t, claims.HasScope(auth.ScopeSyncWrite))
	assert.False(t, claims.HasScope(auth.ScopeSettingsWrite))
}

func TestTokenIssue_Errors(t *testing.T) {
	_, err := run(t, newTokenIssueCmd(testCLI()), "--operator", "alice", "--scopes", "admin")
	assert.ErrorIs(t, err, auth.ErrUnknownScope)

	_, err = run(t, newTokenIssueCmd(testCLI()), "--scopes", "sync:read")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "operator")
}

func TestTokenRevoke_RequiresRedis(t *testing.T) {
	_, err := run(t, newTokenRevokeCmd(testCLI()), "some-jti")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis")
}

func TestArchiveURL_RequiresArchive(t *testing.T) {
	_, err := run(t, newArchiveURLCmd(testCLI()), "reports/2026/10/18/sync-report-063000.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "archive is disabled")
}

func TestMigrateList_Embedded(t *testing.T) {
	out, err := run(t, newMigrateCmd(testCLI()), "list")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.NotEmpty(t, lines)
	assert.Equal(t, "000001_create_catalog", lines[0])
	assert.Contains(t, lines, "000002_create_entity_mappings")
}

func TestMigrateCreate(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, newMigrateCmd(testCLI()), "create", "--path", dir, "add_price_lists", "Store price lists")
	require.NoError(t, err)

	matches, err := filepath.Glob(filepath.Join(dir, "*_add_price_lists.*.sql"))
	require.NoError(t, err)
	assert.Len(t, matches, 2)

	out, err := run(t, newMigrateCmd(testCLI()), "list", "--path", dir)
	require.NoError(t, err)
	assert.Equal(t, "000001_add_price_lists", strings.TrimSpace(out))
}

func TestMigrateDrop_RequiresConfirm(t *testing.T) {
	_, err := run(t, newMigrateCmd(testCLI()), "drop")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--confirm")
}

func TestReadIDs(t *testing.T) {
	input := "SKU-1\n\n# comment\n  SKU-2  \nSKU-3\n"

	ids, err := readIDs(strings.NewReader(input), "-")
	require.NoError(t, err)
	assert.Equal(t, []string{"SKU-1", "SKU-2", "SKU-3"}, ids)

	path := filepath.Join(t.TempDir(), "ids.txt")
	require.NoError(t, os.WriteFile(path, []byte(input), 0o600))
	ids, err = readIDs(nil, path)
	require.NoError(t, err)
	assert.Len(t, ids, 3)

	_, err = readIDs(nil, filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestJoinScopes(t *testing.T) {
	assert.Equal(t, "sync:read, sync:write, settings:write", joinScopes(auth.AllScopes))
}
