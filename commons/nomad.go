package commons

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/fatih/color"

	setup "github.com/aexvir/setup-nomad"
	"github.com/aexvir/setup-nomad/binary"
	"github.com/aexvir/setup-nomad/platform"
)

// Reporter receives what the setup publishes to the rest of the job.
// It's implemented by [action.Runtime].
type Reporter interface {
	AddPath(dir string) error
	SetOutput(name, value string) error
	Warning(msg string)
	Debug(msg string)
}

// VersionResolver turns the requested version into the one to install.
// It's implemented by [release.Resolver].
type VersionResolver interface {
	Resolve(ctx context.Context, requested string) (string, error)
}

// Step outputs.
const (
	OutputBin      = "nomad-bin"
	OutputVersion  = "nomad-version"
	OutputCacheHit = "cache-hit"
)

// Nomad carries the state of a nomad setup across its stages.
// The stages have to run in order: [Nomad.ResolveVersion], [Nomad.Install], [Nomad.Verify].
type Nomad struct {
	requested string
	resolver  VersionResolver
	reporter  Reporter
	target    platform.Target
	binopts   []binary.Option

	version    string
	result     *binary.Result
	searchpath []string
	bin        string
}

// NewNomad prepares the setup of the requested nomad version, or "latest".
func NewNomad(requested string, resolver VersionResolver, reporter Reporter, opts ...NomadOpt) *Nomad {
	n := Nomad{
		requested: requested,
		resolver:  resolver,
		reporter:  reporter,
		target:    platform.Host(),
	}

	for _, opt := range opts {
		opt(&n)
	}

	return &n
}

// Tasks returns the stages in the order they must run.
func (n *Nomad) Tasks() []setup.Task {
	return []setup.Task{n.ResolveVersion(), n.Install(), n.Verify()}
}

// ResolveVersion determines the version to install.
func (n *Nomad) ResolveVersion() setup.Task {
	return func(ctx context.Context) error {
		if n.requested == "" {
			return fmt.Errorf("input required and not supplied: version")
		}

		n.reporter.Debug(fmt.Sprintf("requested nomad version %s", n.requested))

		version, err := n.resolver.Resolve(ctx, n.requested)
		if err != nil {
			return err
		}

		n.reporter.Debug(fmt.Sprintf("resolved nomad version %s", version))
		n.version = version
		return nil
	}
}

// Install restores nomad from the cache or downloads it, and registers the install
// location both on the search path used by [Nomad.Verify] and on the job PATH.
func (n *Nomad) Install() setup.Task {
	return func(ctx context.Context) (err error) {
		start := time.Now()
		defer elapsed(start, &err)

		if n.version == "" {
			return fmt.Errorf("nomad version hasn't been resolved")
		}

		bin, err := binary.New(binary.Name, n.version, n.target, n.binopts...)
		if err != nil {
			return err
		}

		res, err := bin.Install(ctx)
		if err != nil {
			return err
		}

		for _, advisory := range res.Advisories {
			n.reporter.Warning(advisory.Error())
		}

		if res.CacheHit {
			color.Green("   👌 nomad has been restored from cache")
		}

		n.result = res
		n.searchpath = []string{res.Location}

		if err := n.reporter.AddPath(res.Location); err != nil {
			return fmt.Errorf("failed to add %s to the path: %w", res.Location, err)
		}

		if err := n.reporter.SetOutput(OutputVersion, n.version); err != nil {
			return err
		}

		return n.reporter.SetOutput(OutputCacheHit, strconv.FormatBool(res.CacheHit))
	}
}

// Verify checks that nomad can be found on the search path and runs.
func (n *Nomad) Verify() setup.Task {
	return func(ctx context.Context) (err error) {
		start := time.Now()
		defer elapsed(start, &err)

		path, err := binary.Verify(ctx, binary.Name, n.searchpath)
		if err != nil {
			return err
		}

		color.Green("   nomad installed: %s", path)
		n.bin = path

		return n.reporter.SetOutput(OutputBin, path)
	}
}

// Version returns the resolved version, empty until [Nomad.ResolveVersion] ran.
func (n *Nomad) Version() string {
	return n.version
}

// Result returns the outcome of [Nomad.Install], nil until it ran.
func (n *Nomad) Result() *binary.Result {
	return n.result
}

// Bin returns the absolute path of the verified binary, empty until [Nomad.Verify] ran.
func (n *Nomad) Bin() string {
	return n.bin
}

func elapsed(start time.Time, err *error) {
	took := time.Since(start).Round(time.Millisecond)
	if *err != nil {
		color.Red(" ✘ %s\n\n", took)
		return
	}
	color.Green(" ✔ %s\n\n", took)
}

type NomadOpt func(n *Nomad)

// WithTarget installs the build for target instead of the host one.
func WithTarget(target platform.Target) NomadOpt {
	return func(n *Nomad) {
		n.target = target
	}
}

// WithBinaryOptions forwards options to the underlying [binary.Binary].
func WithBinaryOptions(opts ...binary.Option) NomadOpt {
	return func(n *Nomad) {
		n.binopts = append(n.binopts, opts...)
	}
}
