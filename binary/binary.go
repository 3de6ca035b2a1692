package binary

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aexvir/setup-nomad/cache"
	"github.com/aexvir/setup-nomad/platform"
)

// Name of the tool installed by default.
const Name = "nomad"

type Binary struct {
	name    string
	version string
	target  platform.Target
	basedir string

	origin Origin
	store  cache.Store
}

// Result describes a finished installation.
type Result struct {
	// Location is the directory holding the binary; it has to be added to the
	// search path for the binary to be callable by name.
	Location string
	CacheKey string
	CacheHit bool
	// Advisories are failures that didn't stop the installation, like a cache that
	// couldn't be read or written. They should be surfaced as warnings.
	Advisories []error
}

// New describes the binary name at version, built for target.
// The version must be normalized, see [release.Normalize].
func New(name, version string, target platform.Target, options ...Option) (*Binary, error) {
	if version == "" {
		return nil, fmt.Errorf("version must be set")
	}

	bin := Binary{
		name:    name,
		version: version,
		target:  target,
		basedir: os.TempDir(),
	}

	for _, opt := range options {
		opt(&bin)
	}

	if bin.origin == nil {
		bin.origin = RemoteArchiveDownload(DistURL)
	}

	if bin.store == nil {
		bin.store = cache.NewDir(filepath.Join(os.TempDir(), name+"-cache"))
	}

	return &bin, nil
}

// Location is the directory the binary is installed into.
// It only depends on the name and version so repeated runs reuse it.
func (b *Binary) Location() string {
	return filepath.Join(b.basedir, fmt.Sprintf("%s-%s", b.name, b.version))
}

// CacheKey identifies the snapshot of the install location for this version and target.
func (b *Binary) CacheKey() string {
	return fmt.Sprintf("%s-cache-%s-%s-%s", b.name, b.version, b.target.OS, b.target.Arch)
}

// Install makes the binary available in [Binary.Location].
//
// The cache is tried first; failing to read it counts as a miss. On a miss the
// release archive is downloaded and extracted, failures there are fatal. The
// fresh install is then saved to the cache, failing to do so doesn't fail the
// installation. Cache failures are returned as [Result.Advisories].
func (b *Binary) Install(ctx context.Context) (*Result, error) {
	res := Result{
		Location: b.Location(),
		CacheKey: b.CacheKey(),
	}

	logstep(fmt.Sprintf("installing %s %s into %s", b.name, b.version, res.Location))

	hit, err := b.store.Restore(ctx, res.CacheKey, res.Location)
	if err != nil {
		res.Advisories = append(res.Advisories, fmt.Errorf("failed to restore %s from cache: %w", res.CacheKey, err))
		hit = false
	}

	if hit {
		logdetail(fmt.Sprintf("restored from cache %s", res.CacheKey))
		res.CacheHit = true
		return &res, nil
	}

	tmpl, err := templateFor(b.name, b.version, b.target)
	if err != nil {
		return nil, err
	}

	if err := b.origin.Install(ctx, tmpl, res.Location); err != nil {
		return nil, err
	}

	if err := b.store.Save(ctx, res.CacheKey, res.Location); err != nil {
		res.Advisories = append(res.Advisories, fmt.Errorf("failed to save %s to cache: %w", res.CacheKey, err))
	} else {
		logdetail(fmt.Sprintf("saved to cache %s", res.CacheKey))
	}

	return &res, nil
}
