package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name       string
		args       []string
		wantPath   string
		wantExit   bool
		wantCode   int
		wantErrMsg string
	}{
		{name: "positional path", args: []string{"forcing.hcl"}, wantPath: "forcing.hcl"},
		{name: "long flag wins over positional", args: []string{"-config", "a.yaml", "b.hcl"}, wantPath: "a.yaml"},
		{name: "shorthand flag", args: []string{"-c", "conf/"}, wantPath: "conf/"},
		{name: "help", args: []string{"-h"}, wantExit: true},
		{name: "no path prints usage", args: nil, wantExit: true},
		{name: "unknown flag", args: []string{"-nope"}, wantCode: ExitUsage, wantErrMsg: "flag provided but not defined"},
		{name: "bad log format", args: []string{"-log-format", "xml", "a.hcl"}, wantCode: ExitUsage, wantErrMsg: "invalid log-format"},
		{name: "bad log level", args: []string{"-log-level", "trace", "a.hcl"}, wantCode: ExitUsage, wantErrMsg: "invalid log-level"},
		{name: "bad reference", args: []string{"-reference", "2020-01-01", "a.hcl"}, wantCode: ExitUsage, wantErrMsg: "must be yyyyMMddHHmm"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			out := &bytes.Buffer{}

			// --- Act ---
			cfg, shouldExit, err := Parse(tc.args, out)

			// --- Assert ---
			if tc.wantErrMsg != "" {
				require.Error(t, err)
				exitErr, ok := err.(*ExitError)
				require.True(t, ok)
				assert.Equal(t, tc.wantCode, exitErr.Code)
				assert.Contains(t, exitErr.Message, tc.wantErrMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantExit, shouldExit)
			if tc.wantExit {
				assert.Contains(t, out.String(), "Usage:")
				return
			}
			assert.Equal(t, tc.wantPath, cfg.ConfigPath)
		})
	}
}

func TestParse_AllOptions(t *testing.T) {
	args := []string{
		"-log-format", "TEXT",
		"-log-level", "debug",
		"-reference", "202001011200",
		"-env-file", ".env",
		"-snapshot", "summary.csv",
		"-progress",
		"forcing.hcl",
	}

	cfg, shouldExit, err := Parse(args, &bytes.Buffer{})

	require.NoError(t, err)
	assert.False(t, shouldExit)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC), cfg.Reference)
	assert.Equal(t, ".env", cfg.EnvFile)
	assert.Equal(t, "summary.csv", cfg.SnapshotPath)
	assert.True(t, cfg.Progress)
}
