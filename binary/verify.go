package binary

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	setup "github.com/aexvir/setup-nomad"
)

// Lookup searches dirs, in order, for an executable called name and returns its
// absolute path. On windows the .exe extension is added when missing.
func Lookup(name string, dirs []string) (string, error) {
	if runtime.GOOS == "windows" && filepath.Ext(name) == "" {
		name += ".exe"
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}

		candidate := filepath.Join(dir, name)
		if !executable(candidate) {
			continue
		}

		abs, err := filepath.Abs(candidate)
		if err != nil {
			return "", fmt.Errorf("failed to resolve path %s: %w", candidate, err)
		}
		return abs, nil
	}

	return "", setup.NewError(
		setup.BinaryNotFound,
		fmt.Sprintf("%s binary file not found in search path (%s)", name, strings.Join(dirs, string(os.PathListSeparator))),
		nil,
	)
}

// Verify finds name in dirs and runs it with the "version" argument, discarding
// its output; only the exit status matters.
func Verify(ctx context.Context, name string, dirs []string) (string, error) {
	path, err := Lookup(name, dirs)
	if err != nil {
		return "", err
	}

	if err := setup.Run(ctx, path, setup.WithArgs("version"), setup.WithoutNoise()); err != nil {
		return "", setup.NewError(
			setup.VerificationFailed,
			fmt.Sprintf("%s failed to run", path),
			err,
		)
	}

	return path, nil
}

func executable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}

	if runtime.GOOS == "windows" {
		return true
	}

	return info.Mode().Perm()&0o111 != 0
}
