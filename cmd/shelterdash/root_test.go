package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useDiscardLogger(t *testing.T) {
	t.Helper()
	prev := logger
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	t.Cleanup(func() { logger = prev })
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"update", "serve", "schema", "inspect"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "shelterdash", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
}

func TestUpdateCommand_Flags(t *testing.T) {
	for _, name := range []string{"from", "to"} {
		flag := updateCmd.Flags().Lookup(name)
		require.NotNil(t, flag, "update command should have --%s flag", name)
		assert.Empty(t, flag.DefValue)
	}
}

func TestServeCommand_Flags(t *testing.T) {
	require.NotNil(t, serveCmd.Flags().Lookup("addr"))
	flag := serveCmd.Flags().Lookup("no-refresh")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
}

func TestSchemaCommand(t *testing.T) {
	t.Setenv("DATABASE_URL", filepath.Join(t.TempDir(), "schema.db"))
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	t.Cleanup(func() { rootCmd.SetOut(nil); rootCmd.SetArgs(nil) })

	rootCmd.SetArgs([]string{"schema", "animals"})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	assert.Contains(t, out.String(), "animals:")
	assert.Contains(t, out.String(), "  desertion_no\n")
	assert.Contains(t, out.String(), "  notice_date\n")
}

func TestSchemaCommand_UnknownTable(t *testing.T) {
	t.Setenv("DATABASE_URL", filepath.Join(t.TempDir(), "schema.db"))
	t.Setenv("LOG_LEVEL", "error")

	rootCmd.SetOut(io.Discard)
	rootCmd.SetErr(io.Discard)
	t.Cleanup(func() { rootCmd.SetOut(nil); rootCmd.SetErr(nil); rootCmd.SetArgs(nil) })

	rootCmd.SetArgs([]string{"schema", "missing"})
	err := rootCmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `table "missing" not found`)
}
