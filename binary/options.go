package binary

import (
	"github.com/aexvir/setup-nomad/cache"
)

type Option func(b *Binary)

// WithBaseDir sets the directory the install location is created in.
// Defaults to the os temp directory.
func WithBaseDir(dir string) Option {
	return func(b *Binary) {
		b.basedir = dir
	}
}

// WithOrigin replaces the origin the binary is fetched from on a cache miss.
func WithOrigin(origin Origin) Option {
	return func(b *Binary) {
		b.origin = origin
	}
}

// WithStore sets the cache the install location is restored from and saved to.
func WithStore(store cache.Store) Option {
	return func(b *Binary) {
		b.store = store
	}
}
