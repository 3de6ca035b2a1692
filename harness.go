package setup

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
)

// Harness runs the stages of a setup one after the other, the harness can be customized
// with pre- and post- execution hook functions.
type Harness struct {
	PreExecHook  Task
	PostExecHook Task

	out io.Writer
}

// New constructs a harness.
func New(opts ...Option) *Harness {
	h := Harness{
		PreExecHook:  func(_ context.Context) error { return nil },
		PostExecHook: func(_ context.Context) error { return nil },
		out:          os.Stdout,
	}

	for _, opt := range opts {
		opt(&h)
	}

	return &h
}

// Execute a list of tasks inside the harness.
// Tasks run strictly in order and the first failing task stops the run; a later task
// never starts before its predecessor has finished successfully.
// The error returned is the one produced by the failing task, unwrapped, so callers
// can inspect its [Kind].
func (h *Harness) Execute(ctx context.Context, tasks ...Task) error {
	start := time.Now()

	fmt.Fprintf(h.out, "\n")

	if err := h.PreExecHook(ctx); err != nil {
		return fmt.Errorf("failed to initialize setup harness: %w", err)
	}

	var err error
	for i := range tasks {
		if err = tasks[i](ctx); err != nil {
			break
		}
	}

	if hookerr := h.PostExecHook(ctx); hookerr != nil && err == nil {
		err = fmt.Errorf("failed to run post exec hook: %w", hookerr)
	}

	elapsed := time.Since(start).Round(time.Millisecond)
	color.New(color.FgHiBlack).Fprintf(h.out, "------------------------\n\n")

	if err != nil {
		color.New(color.FgRed).Fprintf(h.out, " ✘ failed after %s\n", elapsed)
		color.New(color.FgRed).Fprintf(h.out, "   • %s\n\n", err)
		return err
	}

	color.New(color.FgGreen).Fprintf(h.out, " ✔ all good after %s\n\n", elapsed)
	return nil
}

// Task defines the basic function that the harness executes.
// Stages that need configuration are built as closures or methods returning Tasks.
type Task func(ctx context.Context) error

type Option func(h *Harness)

// WithPreExecFunc allows specifying a task that will be run before the stages.
func WithPreExecFunc(hook Task) Option {
	return func(h *Harness) {
		h.PreExecHook = hook
	}
}

// WithPostExecFunc allows specifying a task that will be run after the stages,
// whether they succeeded or not.
func WithPostExecFunc(hook Task) Option {
	return func(h *Harness) {
		h.PostExecHook = hook
	}
}

// WithOutput redirects the harness summary to w.
func WithOutput(w io.Writer) Option {
	return func(h *Harness) {
		h.out = w
	}
}
