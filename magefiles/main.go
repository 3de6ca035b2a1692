//go:build mage

package main

import (
	"context"

	setup "github.com/aexvir/setup-nomad"
)

var h = setup.New(
	setup.WithPreExecFunc(
		func(ctx context.Context) error { // ensure go mod download is run before any task
			return setup.Run(ctx, "go", setup.WithArgs("mod", "download"))
		},
	),
)

// format codebase using gofmt
func Format(ctx context.Context) error {
	return h.Execute(
		ctx,
		func(ctx context.Context) error {
			return setup.Run(ctx, "gofmt", setup.WithArgs("-l", "-w", "."))
		},
	)
}

// run unit tests
func Test(ctx context.Context) error {
	return h.Execute(
		ctx,
		func(ctx context.Context) error {
			return setup.Run(ctx, "go", setup.WithArgs("test", "-race", "-cover", "./..."))
		},
	)
}

// run go mod tidy
func Tidy(ctx context.Context) error {
	return h.Execute(
		ctx,
		func(ctx context.Context) error {
			return setup.Run(ctx, "go", setup.WithArgs("mod", "tidy"))
		},
	)
}

// install the latest nomad locally, the same way the action does on a runner
func Nomad(ctx context.Context) error {
	return h.Execute(
		ctx,
		func(ctx context.Context) error {
			return setup.Run(
				ctx,
				"go",
				setup.WithArgs("run", "./cmd/setup-nomad"),
				setup.WithEnv("INPUT_VERSION=latest", "RUNNER_DEBUG=1"),
				setup.WithErrMsg("nomad setup failed, run with GITHUB_ACTIONS=true to see the workflow commands"),
			)
		},
	)
}
