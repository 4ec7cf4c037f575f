package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_Flags(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"config", "log-level", "port"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, "INFO", cmd.Flags().Lookup("log-level").DefValue)
}

func TestRootCmd_Errors(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("download: [unclosed"), 0o644))

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "malformed config", args: []string{"--config", bad}, want: "parse config"},
		{name: "unknown log level", args: []string{"--config", filepath.Join(t.TempDir(), "none.yaml"), "--log-level", "LOUD"}, want: "LOUD"},
		{name: "positional argument", args: []string{"serve"}, want: "unknown command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newRootCmd()
			cmd.SetArgs(tt.args)
			cmd.SetOut(io.Discard)
			cmd.SetErr(io.Discard)
			err := cmd.Execute()
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
