package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvDefaults(t *testing.T) {
	envCfg, err := LoadEnv()
	require.NoError(t, err)

	assert.Equal(t, "text", envCfg.Format)
	assert.False(t, envCfg.Verbose)
	assert.Equal(t, "", envCfg.Database)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("VOLITION_DB", "/tmp/volition.db")
	t.Setenv("VOLITION_FORMAT", "json")
	t.Setenv("VOLITION_VERBOSE", "true")

	envCfg, err := LoadEnv()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/volition.db", envCfg.Database)
	assert.Equal(t, "json", envCfg.Format)
	assert.True(t, envCfg.Verbose)
}

func TestLoadEnvInvalidBool(t *testing.T) {
	t.Setenv("VOLITION_VERBOSE", "not-a-bool")

	_, err := LoadEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse environment")
}

func TestEnvSetsFlagDefaults(t *testing.T) {
	t.Setenv("VOLITION_FORMAT", "json")
	t.Setenv("VOLITION_DB", "/tmp/env.db")

	cmd := NewRootCommand()

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "json", formatFlag.DefValue)

	runCmd, _, err := cmd.Find([]string{"run"})
	require.NoError(t, err)
	dbFlag := runCmd.Flags().Lookup("db")
	require.NotNil(t, dbFlag)
	assert.Equal(t, "/tmp/env.db", dbFlag.DefValue)
}

func TestEnvInvalidSurfacesOnExecute(t *testing.T) {
	t.Setenv("VOLITION_VERBOSE", "banana")

	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"runs", "--db", "/tmp/nope.db"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid environment")
}
