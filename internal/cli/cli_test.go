package cli

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metals-dashboard/internal/config"
)

func TestCommandsRegistered(t *testing.T) {
	want := []string{"serve", "watch", "show", "city", "calc", "forecast", "ask", "export", "simulate", "version"}
	got := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		got[c.Name()] = true
	}
	for _, name := range want {
		assert.True(t, got[name], "missing command %s", name)
	}
}

func TestAmountFlag(t *testing.T) {
	cmd := &cobra.Command{Use: "x"}
	var v float64
	cmd.Flags().Float64Var(&v, "amount", 0, "")

	amount, err := amountFlag(cmd, "amount", v)
	require.NoError(t, err)
	assert.False(t, amount.Valid)

	require.NoError(t, cmd.Flags().Set("amount", "0"))
	amount, err = amountFlag(cmd, "amount", v)
	require.NoError(t, err)
	assert.True(t, amount.Valid)
	assert.True(t, amount.Decimal.IsZero())

	require.NoError(t, cmd.Flags().Set("amount", "-1"))
	_, err = amountFlag(cmd, "amount", v)
	assert.Error(t, err)
}

func TestVersionSkipsConfig(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version", "--config", "/nonexistent/config.yaml"})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "metalsdash dev")
}

func TestVersionJSON(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version", "--json"})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		versionJSON = false
	})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), `"version": "dev"`)
	assert.Contains(t, out.String(), `"go_version"`)
}

func TestGlobalFlagsOverrideLogging(t *testing.T) {
	cfg := &config.Config{}
	cfg.Logging.Level, cfg.Logging.Format = "info", "json"

	globalFlags{}.apply(cfg)
	assert.Equal(t, "info", cfg.Logging.Level)

	globalFlags{logLevel: "debug", logFormat: "console"}.apply(cfg)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}
