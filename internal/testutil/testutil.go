// Package testutil holds fixtures shared by the package tests.
package testutil

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

// Zip builds an in-memory zip archive with the given name -> contents entries.
func Zip(t *testing.T, files map[string]string) []byte {
	t.Helper()

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	buf := new(bytes.Buffer)
	writer := zip.NewWriter(buf)
	for _, name := range names {
		w, err := writer.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(files[name]))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	return buf.Bytes()
}

// FakeNomad returns a shell script standing in for the nomad binary; it exits
// with the given code when called with "version".
func FakeNomad(t *testing.T, exitcode int) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("fake binaries are shell scripts")
	}

	return "#!/bin/sh\n" +
		"if [ \"$1\" = \"version\" ]; then echo \"Nomad v1.2.6\"; exit " + strconv.Itoa(exitcode) + "; fi\n" +
		"exit 1\n"
}

// WriteExecutable writes an executable file and returns its path.
func WriteExecutable(t *testing.T, dir, name, contents string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o755))
	return path
}
