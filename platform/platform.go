// Package platform describes the machine a setup runs on.
//
// A [Target] is the os/arch pair used to pick a release archive. Values come from
// the Go runtime and are normalized to a closed vocabulary; anything outside that
// vocabulary is kept verbatim so it can be reported back to the user when no
// archive exists for it.
package platform

import (
	"context"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"
)

// Operating systems.
const (
	Linux   = "linux"
	Darwin  = "darwin"
	Windows = "windows"
)

// Architectures.
const (
	X86_32 = "x86_32"
	X86_64 = "x86_64"
	ARM    = "arm"
	ARM64  = "arm64"
)

// Target is the os/arch pair a binary is installed for.
type Target struct {
	OS   string
	Arch string
}

func (t Target) String() string {
	return t.OS + "/" + t.Arch
}

// FromGo builds a target from GOOS/GOARCH values.
func FromGo(goos, goarch string) Target {
	return Target{
		OS:   goos,
		Arch: normalizeArch(goarch),
	}
}

// Host returns the target of the running process.
func Host() Target {
	return FromGo(runtime.GOOS, runtime.GOARCH)
}

// Info is the host target plus details about the machine useful in diagnostics.
type Info struct {
	Target

	// KernelArch is the architecture reported by the kernel, e.g. "aarch64".
	// It may differ from Target.Arch when running emulated binaries.
	KernelArch string
	// Platform is the distribution or os flavour, e.g. "ubuntu".
	Platform        string
	PlatformVersion string
}

func (i Info) String() string {
	if i.Platform == "" {
		return i.Target.String()
	}
	return fmt.Sprintf("%s (%s %s, kernel %s)", i.Target, i.Platform, i.PlatformVersion, i.KernelArch)
}

// Detect returns information about the host.
// Failing to read the host details is not an error, only the target is guaranteed
// to be populated; a cancelled context is.
func Detect(ctx context.Context) (Info, error) {
	info := Info{Target: Host()}

	stat, err := host.InfoWithContext(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return info, fmt.Errorf("platform detection cancelled: %w", ctx.Err())
		}
		return info, nil
	}

	info.KernelArch = stat.KernelArch
	info.Platform = stat.Platform
	info.PlatformVersion = stat.PlatformVersion

	return info, nil
}

func normalizeArch(goarch string) string {
	switch goarch {
	case "386":
		return X86_32
	case "amd64":
		return X86_64
	case "arm":
		return ARM
	case "arm64":
		return ARM64
	default:
		return goarch
	}
}
