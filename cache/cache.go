// Package cache stores directory snapshots addressed by a string key.
//
// Restoring and saving snapshots is an optimization for the callers: a [Store]
// reports failures as errors and leaves the decision of how severe they are to
// whoever is using it.
package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/aexvir/setup-nomad/archive"
)

// Store persists directory snapshots under a key.
type Store interface {
	// Restore unpacks the snapshot stored under key into dir.
	// It reports false without error when there is no snapshot for key.
	Restore(ctx context.Context, key, dir string) (bool, error)
	// Save stores the contents of dir under key, replacing any previous snapshot.
	Save(ctx context.Context, key, dir string) error
}

const (
	// DefaultLockTimeout bounds how long Save waits for a concurrent writer of the same key.
	DefaultLockTimeout = 30 * time.Second

	snapshotext = ".tar.gz"
)

var unsafechars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// Dir is a [Store] keeping snapshots as compressed tarballs inside a local directory.
// Self-hosted runners keep such a directory between jobs, e.g. under RUNNER_TOOL_CACHE.
type Dir struct {
	root        string
	locktimeout time.Duration
}

// NewDir creates a store rooted at root; the directory is created on first save.
func NewDir(root string, opts ...Option) *Dir {
	d := Dir{
		root:        root,
		locktimeout: DefaultLockTimeout,
	}

	for _, opt := range opts {
		opt(&d)
	}

	return &d
}

// Root is the directory holding the snapshots.
func (d *Dir) Root() string {
	return d.root
}

func (d *Dir) Restore(ctx context.Context, key, dir string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	snapshot, err := d.entry(key)
	if err != nil {
		return false, err
	}

	file, err := os.Open(snapshot)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to open snapshot %s: %w", snapshot, err)
	}
	defer file.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	if err := archive.Untar(file, dir); err != nil {
		return false, fmt.Errorf("failed to restore snapshot %s: %w", snapshot, err)
	}

	return true, nil
}

func (d *Dir) Save(ctx context.Context, key, dir string) error {
	snapshot, err := d.entry(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(d.root, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory %s: %w", d.root, err)
	}

	lockctx, cancel := context.WithTimeout(ctx, d.locktimeout)
	defer cancel()

	lock := flock.New(snapshot + ".lock")
	locked, err := lock.TryLockContext(lockctx, 100*time.Millisecond)
	if err != nil {
		return fmt.Errorf("failed to lock snapshot %s: %w", snapshot, err)
	}
	if !locked {
		return fmt.Errorf("failed to lock snapshot %s: held by another writer", snapshot)
	}
	defer lock.Unlock()

	// write next to the final location so the rename stays on the same filesystem
	tmp := filepath.Join(d.root, fmt.Sprintf(".%s.tmp", uuid.NewString()))
	defer os.Remove(tmp)

	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}

	if err := archive.Tar(out, dir); err != nil {
		out.Close()
		return fmt.Errorf("failed to snapshot %s: %w", dir, err)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to write snapshot file: %w", err)
	}

	if err := os.Rename(tmp, snapshot); err != nil {
		return fmt.Errorf("failed to store snapshot %s: %w", snapshot, err)
	}

	return nil
}

// entry is the snapshot path for a key.
func (d *Dir) entry(key string) (string, error) {
	if key == "" {
		return "", errors.New("cache key must be set")
	}

	return filepath.Join(d.root, unsafechars.ReplaceAllString(key, "_")+snapshotext), nil
}

type Option func(d *Dir)

// WithLockTimeout sets how long Save waits for the per-key lock.
func WithLockTimeout(timeout time.Duration) Option {
	return func(d *Dir) {
		d.locktimeout = timeout
	}
}
