package binary

import (
	"fmt"
	"sort"
	"strings"

	setup "github.com/aexvir/setup-nomad"
	"github.com/aexvir/setup-nomad/platform"
)

// DistURL is the url format of the release archives published by HashiCorp.
// https://releases.hashicorp.com/nomad
const DistURL = "https://releases.hashicorp.com/{{.Name}}/{{.Version}}/{{.Name}}_{{.Version}}_{{.OS}}_{{.Arch}}.zip"

type dist struct {
	os   string
	arch string
}

// distributions lists the targets with a published release archive.
// Targets not in this table are rejected, there is no fallback architecture.
var distributions = map[platform.Target]dist{
	{OS: platform.Linux, Arch: platform.X86_32}: {"linux", "386"},
	{OS: platform.Linux, Arch: platform.X86_64}: {"linux", "amd64"},
	{OS: platform.Linux, Arch: platform.ARM}:    {"linux", "arm"},
	{OS: platform.Linux, Arch: platform.ARM64}:  {"linux", "arm64"},

	{OS: platform.Darwin, Arch: platform.X86_64}: {"darwin", "amd64"},
	{OS: platform.Darwin, Arch: platform.ARM64}:  {"darwin", "arm64"},

	{OS: platform.Windows, Arch: platform.X86_32}: {"windows", "386"},
	{OS: platform.Windows, Arch: platform.X86_64}: {"windows", "amd64"},
}

// TargetError carries the target that has no release archive.
type TargetError struct {
	Target platform.Target
}

func (e *TargetError) Error() string {
	supported := make([]string, 0, len(distributions))
	for _, target := range Targets() {
		supported = append(supported, target.String())
	}
	return fmt.Sprintf("no release archive for %s, supported targets: %s", e.Target, strings.Join(supported, ", "))
}

// Targets returns every supported target, sorted by os and arch.
func Targets() []platform.Target {
	targets := make([]platform.Target, 0, len(distributions))
	for target := range distributions {
		targets = append(targets, target)
	}

	sort.Slice(targets, func(i, j int) bool {
		if targets[i].OS != targets[j].OS {
			return targets[i].OS < targets[j].OS
		}
		return targets[i].Arch < targets[j].Arch
	})

	return targets
}

// ResolveDownloadURL returns the url of the nomad release archive for a target.
// The version must already be normalized. Unknown targets fail with an
// [setup.UnsupportedTarget] error.
func ResolveDownloadURL(target platform.Target, version string) (string, error) {
	tmpl, err := templateFor(Name, version, target)
	if err != nil {
		return "", err
	}

	return tmpl.Resolve(DistURL)
}

func templateFor(name, version string, target platform.Target) (Template, error) {
	d, ok := distributions[target]
	if !ok {
		return Template{}, unsupported(target)
	}

	return Template{
		Name:    name,
		Version: version,
		OS:      d.os,
		Arch:    d.arch,
	}, nil
}

func unsupported(target platform.Target) error {
	cause := &TargetError{Target: target}

	for known := range distributions {
		if known.OS == target.OS {
			return setup.NewError(
				setup.UnsupportedTarget,
				fmt.Sprintf("unsupported %s architecture (%s)", target.OS, target.Arch),
				cause,
			)
		}
	}

	return setup.NewError(
		setup.UnsupportedTarget,
		fmt.Sprintf("unsupported platform (%s)", target.OS),
		cause,
	)
}
