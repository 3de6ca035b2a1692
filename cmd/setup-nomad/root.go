package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	setup "github.com/aexvir/setup-nomad"
	"github.com/aexvir/setup-nomad/action"
	"github.com/aexvir/setup-nomad/binary"
	"github.com/aexvir/setup-nomad/cache"
	"github.com/aexvir/setup-nomad/commons"
	"github.com/aexvir/setup-nomad/platform"
	"github.com/aexvir/setup-nomad/release"
)

// config keys; the ones matching an action input are also read from INPUT_<KEY>.
const (
	keyVersion         = "version"
	keyGitHubToken     = "github-token"
	keyCacheDir        = "cache-dir"
	keyInstallDir      = "install-dir"
	keyAPIURL          = "api-url"
	keyLookupTimeout   = "lookup-timeout"
	keyDownloadTimeout = "download-timeout"
	keyRepository      = "repository"
	keyDistURL         = "dist-url"
)

// inputs are the config keys declared as inputs in action.yml.
var inputs = []string{keyVersion, keyGitHubToken, keyCacheDir, keyInstallDir}

type config struct {
	Version         string
	GitHubToken     string
	CacheDir        string
	InstallDir      string
	APIURL          string
	LookupTimeout   time.Duration
	DownloadTimeout time.Duration
	Repository      string
	DistURL         string
}

func newRootCmd() *cobra.Command {
	return command(run)
}

// command builds the root command; fn receives the resolved configuration.
func command(fn func(cmd *cobra.Command, conf config) error) *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "setup-nomad",
		Short: "Install a HashiCorp Nomad release and put it on the job PATH",
		Long: `setup-nomad installs the requested nomad release, or the latest one, restoring
it from a local snapshot cache when possible, and verifies it runs.

Every flag can also be set through the environment variable the GitHub Actions
runner uses for the matching step input, e.g. INPUT_VERSION.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return fn(cmd, load(v))
		},
	}

	flags := cmd.Flags()
	flags.String(keyVersion, "", "nomad version to install, or latest")
	flags.String(keyGitHubToken, "", "token used to look up the latest release")
	flags.String(keyCacheDir, "", "directory holding the install snapshots")
	flags.String(keyInstallDir, os.TempDir(), "directory nomad is installed into")
	flags.String(keyAPIURL, release.DefaultBaseURL, "github api url")
	flags.Duration(keyLookupTimeout, release.DefaultTimeout, "timeout of the latest release lookup")
	flags.Duration(keyDownloadTimeout, binary.DefaultDownloadTimeout, "timeout of the release download")
	flags.String(keyRepository, release.DefaultRepository, "owner/name of the repository the latest release is looked up in")
	flags.String(keyDistURL, binary.DistURL, "url format of the release archives")
	must(flags.MarkHidden(keyDistURL))

	flags.VisitAll(func(flag *pflag.Flag) {
		must(v.BindPFlag(flag.Name, flag))
	})

	for _, key := range inputs {
		must(v.BindEnv(append([]string{key}, envnames(key)...)...))
	}
	must(v.BindEnv(keyAPIURL, "GITHUB_API_URL"))

	return cmd
}

// must panics on errors that can only come from a miswired command.
func must(err error) {
	if err != nil {
		panic(err)
	}
}

// envnames returns the variables an input can be read from. The runner keeps
// dashes in the name, but shells can't export those, so the underscore form is
// accepted too.
func envnames(input string) []string {
	names := []string{action.InputEnv(input)}
	if alt := action.InputEnv(strings.ReplaceAll(input, "-", "_")); alt != names[0] {
		names = append(names, alt)
	}
	return names
}

func load(v *viper.Viper) config {
	conf := config{
		Version:         v.GetString(keyVersion),
		GitHubToken:     v.GetString(keyGitHubToken),
		CacheDir:        v.GetString(keyCacheDir),
		InstallDir:      v.GetString(keyInstallDir),
		APIURL:          v.GetString(keyAPIURL),
		LookupTimeout:   v.GetDuration(keyLookupTimeout),
		DownloadTimeout: v.GetDuration(keyDownloadTimeout),
		Repository:      v.GetString(keyRepository),
		DistURL:         v.GetString(keyDistURL),
	}

	if conf.CacheDir == "" {
		conf.CacheDir = defaultCacheDir()
	}

	if conf.InstallDir == "" {
		conf.InstallDir = os.TempDir()
	}

	return conf
}

// defaultCacheDir prefers the runner tool cache, which self-hosted runners keep
// between jobs.
func defaultCacheDir() string {
	if dir := os.Getenv("RUNNER_TOOL_CACHE"); dir != "" {
		return filepath.Join(dir, "setup-nomad")
	}

	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "setup-nomad")
	}

	return filepath.Join(os.TempDir(), "setup-nomad-cache")
}

func run(cmd *cobra.Command, conf config) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	rt := action.New(action.WithOutput(out))

	info, err := platform.Detect(ctx)
	if err != nil {
		rt.Error(err.Error())
		return err
	}
	rt.Debug(fmt.Sprintf("runner platform: %s", info))

	nomad := commons.NewNomad(
		conf.Version,
		release.New(
			release.WithToken(conf.GitHubToken),
			release.WithBaseURL(conf.APIURL),
			release.WithTimeout(conf.LookupTimeout),
			release.WithRepository(conf.Repository),
		),
		rt,
		commons.WithTarget(info.Target),
		commons.WithBinaryOptions(
			binary.WithBaseDir(conf.InstallDir),
			binary.WithStore(cache.NewDir(conf.CacheDir)),
			binary.WithOrigin(
				binary.RemoteArchiveDownload(conf.DistURL, binary.WithDownloadTimeout(conf.DownloadTimeout)),
			),
		),
	)

	h := setup.New(setup.WithOutput(out))

	err = h.Execute(
		ctx,
		nomad.ResolveVersion(),
		rt.Group("💾 Install Nomad", nomad.Install()),
		rt.Group("🧪 Installation check", nomad.Verify()),
	)
	if err != nil {
		rt.Debug(fmt.Sprintf("setup failed with %s", setup.KindOf(err)))
		rt.Error(err.Error())
		return err
	}

	return nil
}
