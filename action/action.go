// Package action talks to the GitHub Actions runner: it reads step inputs, writes
// step outputs and search path entries, and emits workflow commands.
//
// https://docs.github.com/en/actions/reference/workflow-commands-for-github-actions
package action

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"

	setup "github.com/aexvir/setup-nomad"
)

// Runtime exposes the runner environment of the current step.
// Outside of GitHub Actions workflow commands are rendered as plain colored logs.
type Runtime struct {
	out    io.Writer
	getenv func(string) string
}

func New(opts ...Option) *Runtime {
	r := Runtime{
		out:    os.Stdout,
		getenv: os.Getenv,
	}

	for _, opt := range opts {
		opt(&r)
	}

	return &r
}

// InputEnv returns the name of the environment variable the runner uses to pass
// the input name to the step, e.g. INPUT_GITHUB-TOKEN for github-token.
func InputEnv(name string) string {
	return "INPUT_" + strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), " ", "_"))
}

// InActions returns true when running as a GitHub Actions step.
func (r *Runtime) InActions() bool {
	return r.getenv("GITHUB_ACTIONS") == "true"
}

// IsDebug returns true when step debug logging is enabled for the run.
func (r *Runtime) IsDebug() bool {
	return r.getenv("RUNNER_DEBUG") == "1"
}

// SetOutput sets the step output name to value.
func (r *Runtime) SetOutput(name, value string) error {
	file := r.getenv("GITHUB_OUTPUT")
	if file == "" {
		if !r.InActions() {
			color.New(color.FgHiBlack).Fprintf(r.out, "   └ %s=%s\n", name, value)
			return nil
		}
		// runners older than the output file
		r.command("set-output", map[string]string{"name": name}, value)
		return nil
	}

	delimiter := "ghadelimiter_" + uuid.NewString()
	if strings.Contains(name, delimiter) || strings.Contains(value, delimiter) {
		return fmt.Errorf("unexpected input: output %s contains the delimiter %s", name, delimiter)
	}

	return appendto(file, fmt.Sprintf("%s<<%s\n%s\n%s\n", name, delimiter, value, delimiter))
}

// AddPath prepends dir to the PATH of the following steps of the job.
// The current process environment is not modified.
func (r *Runtime) AddPath(dir string) error {
	file := r.getenv("GITHUB_PATH")
	if file == "" {
		r.Debug(fmt.Sprintf("not running in github actions, add %s to your PATH", dir))
		return nil
	}

	return appendto(file, dir+"\n")
}

func (r *Runtime) Debug(msg string) {
	if !r.InActions() {
		if r.IsDebug() {
			color.New(color.FgHiBlack).Fprintf(r.out, "   └ %s\n", msg)
		}
		return
	}
	r.command("debug", nil, msg)
}

func (r *Runtime) Warning(msg string) {
	if !r.InActions() {
		color.New(color.FgYellow).Fprintf(r.out, " ! %s\n", msg)
		return
	}
	r.command("warning", nil, msg)
}

func (r *Runtime) Error(msg string) {
	if !r.InActions() {
		color.New(color.FgRed).Fprintf(r.out, " ✘ %s\n", msg)
		return
	}
	r.command("error", nil, msg)
}

// StartGroup folds all the following output until [Runtime.EndGroup] under title.
func (r *Runtime) StartGroup(title string) {
	if !r.InActions() {
		fmt.Fprintln(r.out, color.BlueString(" •"), color.New(color.Bold).Sprint(title))
		return
	}
	r.command("group", nil, title)
}

func (r *Runtime) EndGroup() {
	if !r.InActions() {
		return
	}
	r.command("endgroup", nil, "")
}

// Group wraps task so its output is folded under title.
// The group is closed whether the task succeeds or not.
func (r *Runtime) Group(title string, task setup.Task) setup.Task {
	return func(ctx context.Context) error {
		r.StartGroup(title)
		defer r.EndGroup()

		return task(ctx)
	}
}

func (r *Runtime) command(name string, props map[string]string, msg string) {
	var bld strings.Builder
	bld.WriteString("::")
	bld.WriteString(name)

	first := true
	for _, key := range slices.Sorted(maps.Keys(props)) {
		if first {
			bld.WriteString(" ")
			first = false
		} else {
			bld.WriteString(",")
		}
		bld.WriteString(key + "=" + escapeProperty(props[key]))
	}

	bld.WriteString("::")
	bld.WriteString(escapeData(msg))

	fmt.Fprintln(r.out, bld.String())
}

func escapeData(s string) string {
	return strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A").Replace(s)
}

func escapeProperty(s string) string {
	return strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A", ":", "%3A", ",", "%2C").Replace(s)
}

func appendto(path, content string) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	if _, err := file.WriteString(content); err != nil {
		return fmt.Errorf("failed to write to %s: %w", path, err)
	}

	return file.Close()
}

type Option func(r *Runtime)

// WithOutput redirects workflow commands to w.
func WithOutput(w io.Writer) Option {
	return func(r *Runtime) {
		r.out = w
	}
}

// WithGetenv replaces the environment lookup, mostly useful in tests.
func WithGetenv(getenv func(string) string) Option {
	return func(r *Runtime) {
		r.getenv = getenv
	}
}
