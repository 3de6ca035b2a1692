package setup

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func script(t *testing.T, body string) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}

	path := filepath.Join(t.TempDir(), "script")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestCmd(t *testing.T) {
	runner, err := Cmd(context.Background(), "/bin/echo", WithArgs("hello", "world"))
	require.NoError(t, err)

	assert.Equal(t, "/bin/echo", runner.Executable)
	assert.Equal(t, []string{"hello", "world"}, runner.Arguments)
	assert.Equal(t, []string{"/bin/echo", "hello", "world"}, runner.cmd.Args)
}

func TestWithEnv(t *testing.T) {
	t.Run("appends to the current environment", func(t *testing.T) {
		runner, err := Cmd(context.Background(), "echo", WithEnv("FOO=bar", "EMPTY="))
		require.NoError(t, err)

		assert.Contains(t, runner.cmd.Env, "FOO=bar")
		assert.Contains(t, runner.cmd.Env, "EMPTY=")
	})

	t.Run("rejects malformed entries", func(t *testing.T) {
		_, err := Cmd(context.Background(), "echo", WithEnv("FOO"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "doesn't match NAME=value")
	})
}

func TestRun(t *testing.T) {
	t.Run("captures stdout", func(t *testing.T) {
		bin := script(t, `echo "nomad v$1"`)
		out := new(bytes.Buffer)

		err := Run(context.Background(), bin, WithArgs("1.2.6"), WithStdOut(out))

		require.NoError(t, err)
		assert.Equal(t, "nomad v1.2.6\n", out.String())
	})

	t.Run("reports non zero exit", func(t *testing.T) {
		bin := script(t, "exit 3")

		err := Run(context.Background(), bin, WithoutNoise())

		require.Error(t, err)
		assert.Contains(t, err.Error(), bin)
	})

	t.Run("reports launch failures", func(t *testing.T) {
		err := Run(context.Background(), filepath.Join(t.TempDir(), "missing"), WithoutNoise())
		require.Error(t, err)
	})

	t.Run("quiet runs drop output", func(t *testing.T) {
		runner, err := Cmd(context.Background(), "echo", WithoutNoise())
		require.NoError(t, err)

		assert.True(t, runner.quiet)
		assert.Nil(t, runner.cmd.Stdout)
		assert.Nil(t, runner.cmd.Stderr)
	})
}

func TestWithErrMsg(t *testing.T) {
	bin := script(t, "exit 1")

	runner, err := Cmd(context.Background(), bin, WithErrMsg("nomad setup failed"))
	require.NoError(t, err)
	assert.Equal(t, "nomad setup failed", runner.errmsg)

	assert.Error(t, runner.Exec())
}

func TestRun_Cancelled(t *testing.T) {
	bin := script(t, "sleep 5")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, Run(ctx, bin, WithoutNoise()))
}
