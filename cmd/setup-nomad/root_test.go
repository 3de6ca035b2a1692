package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	setup "github.com/aexvir/setup-nomad"
	"github.com/aexvir/setup-nomad/action"
	"github.com/aexvir/setup-nomad/binary"
	"github.com/aexvir/setup-nomad/internal/testutil"
	"github.com/aexvir/setup-nomad/platform"
	"github.com/aexvir/setup-nomad/release"
)

// loadFrom parses args like the root command does and returns the resulting
// configuration without running the setup.
func loadFrom(t *testing.T, args []string) config {
	t.Helper()

	var conf config
	cmd := command(func(_ *cobra.Command, c config) error {
		conf = c
		return nil
	})
	cmd.SetArgs(append([]string{}, args...))
	require.NoError(t, cmd.Execute())

	return conf
}

func TestConfig_FromInputs(t *testing.T) {
	t.Setenv("INPUT_VERSION", "v1.2.6")
	t.Setenv("INPUT_GITHUB-TOKEN", "secret")
	t.Setenv("INPUT_CACHE_DIR", "/cache")
	t.Setenv("GITHUB_API_URL", "https://ghes.example.com/api/v3")

	conf := loadFrom(t, nil)

	assert.Equal(t, "v1.2.6", conf.Version)
	assert.Equal(t, "secret", conf.GitHubToken)
	assert.Equal(t, "/cache", conf.CacheDir)
	assert.Equal(t, os.TempDir(), conf.InstallDir)
	assert.Equal(t, "https://ghes.example.com/api/v3", conf.APIURL)
	assert.Equal(t, release.DefaultTimeout, conf.LookupTimeout)
	assert.Equal(t, binary.DefaultDownloadTimeout, conf.DownloadTimeout)
	assert.Equal(t, release.DefaultRepository, conf.Repository)
	assert.Equal(t, binary.DistURL, conf.DistURL)
}

func TestConfig_FlagsTakePrecedence(t *testing.T) {
	t.Setenv("INPUT_VERSION", "1.2.6")
	t.Setenv("INPUT_GITHUB_TOKEN", "from-env")

	conf := loadFrom(t, []string{"--version", "latest", "--install-dir", "/opt/tools", "--lookup-timeout", "5s"})

	assert.Equal(t, "latest", conf.Version)
	assert.Equal(t, "from-env", conf.GitHubToken)
	assert.Equal(t, "/opt/tools", conf.InstallDir)
	assert.Equal(t, 5*time.Second, conf.LookupTimeout)
}

func TestConfig_DefaultCacheDir(t *testing.T) {
	t.Setenv("INPUT_CACHE-DIR", "")
	t.Setenv("INPUT_CACHE_DIR", "")
	t.Setenv("RUNNER_TOOL_CACHE", "/opt/hostedtoolcache")

	conf := loadFrom(t, nil)

	assert.Equal(t, filepath.Join("/opt/hostedtoolcache", "setup-nomad"), conf.CacheDir)
}

func TestEnvnames(t *testing.T) {
	assert.Equal(t, []string{"INPUT_VERSION"}, envnames("version"))
	assert.Equal(t, []string{"INPUT_GITHUB-TOKEN", "INPUT_GITHUB_TOKEN"}, envnames("github-token"))
}

func TestRun_LookupFailure(t *testing.T) {
	index := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer index.Close()

	t.Setenv("GITHUB_ACTIONS", "true")
	t.Setenv("GITHUB_OUTPUT", filepath.Join(t.TempDir(), "output"))
	t.Setenv("GITHUB_PATH", filepath.Join(t.TempDir(), "path"))

	out := new(bytes.Buffer)
	cmd := newRootCmd()
	cmd.SetOut(out)
	cmd.SetArgs([]string{
		"--version", "latest",
		"--api-url", index.URL,
		"--cache-dir", t.TempDir(),
		"--install-dir", t.TempDir(),
	})

	err := cmd.ExecuteContext(context.Background())

	assert.ErrorIs(t, err, setup.ErrVersionLookupFailed)
	assert.Contains(t, out.String(), "::error::failed to fetch latest release of hashicorp/nomad")
	assert.Equal(t, 1, strings.Count(out.String(), "::error::"))
	assert.NoFileExists(t, os.Getenv("GITHUB_PATH"))
}

func TestRun_Install(t *testing.T) {
	if _, err := binary.ResolveDownloadURL(platform.Host(), "1.2.6"); err != nil {
		t.Skipf("no release archive for this host: %s", err)
	}

	index := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/nomad/releases/latest", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"tag_name":"v1.2.6"}`))
	}))
	defer index.Close()

	archive := testutil.Zip(t, map[string]string{"nomad": testutil.FakeNomad(t, 0)})
	var (
		mu        sync.Mutex
		downloads []string
	)
	host := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		downloads = append(downloads, r.URL.Path)
		mu.Unlock()
		_, _ = w.Write(archive)
	}))
	defer host.Close()

	outputs := filepath.Join(t.TempDir(), "output")
	paths := filepath.Join(t.TempDir(), "path")
	t.Setenv("GITHUB_ACTIONS", "true")
	t.Setenv("GITHUB_OUTPUT", outputs)
	t.Setenv("GITHUB_PATH", paths)
	t.Setenv("INPUT_VERSION", "latest")

	install := t.TempDir()
	out := new(bytes.Buffer)
	cmd := newRootCmd()
	cmd.SetOut(out)
	cmd.SetArgs([]string{
		"--api-url", index.URL,
		"--repository", "acme/nomad",
		"--dist-url", host.URL + "/{{.Name}}/{{.Version}}/{{.Name}}_{{.Version}}_{{.OS}}_{{.Arch}}.zip",
		"--cache-dir", t.TempDir(),
		"--install-dir", install,
	})

	require.NoError(t, cmd.ExecuteContext(context.Background()), out.String())

	location := filepath.Join(install, "nomad-1.2.6")
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, downloads, 1)
	assert.True(t, strings.HasPrefix(downloads[0], "/nomad/1.2.6/nomad_1.2.6_"))

	content, err := os.ReadFile(paths)
	require.NoError(t, err)
	assert.Equal(t, location+"\n", string(content))

	content, err = os.ReadFile(outputs)
	require.NoError(t, err)
	assert.Contains(t, string(content), "\n"+filepath.Join(location, "nomad")+"\n")
	assert.Contains(t, string(content), "nomad-version<<")
	assert.Contains(t, string(content), "\n1.2.6\n")
	assert.Contains(t, string(content), "cache-hit<<")
	assert.Contains(t, string(content), "\nfalse\n")

	assert.Contains(t, out.String(), "::group::💾 Install Nomad")
	assert.Contains(t, out.String(), "::group::🧪 Installation check")
	assert.NotContains(t, out.String(), "::error::")
}

func TestRun_MissingVersion(t *testing.T) {
	t.Setenv("INPUT_VERSION", "")

	cmd := newRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetArgs([]string{"--cache-dir", t.TempDir()})

	assert.ErrorContains(t, cmd.ExecuteContext(context.Background()), "version")
}

func TestActionMetadata(t *testing.T) {
	content, err := os.ReadFile(filepath.Join("..", "..", "action.yml"))
	require.NoError(t, err)

	var meta struct {
		Inputs  map[string]struct{ Required bool } `yaml:"inputs"`
		Outputs map[string]any                     `yaml:"outputs"`
		Runs    struct {
			Steps []struct {
				ID  string            `yaml:"id"`
				Env map[string]string `yaml:"env"`
			} `yaml:"steps"`
		} `yaml:"runs"`
	}
	require.NoError(t, yaml.Unmarshal(content, &meta))

	declared := make([]string, 0, len(meta.Inputs))
	for name := range meta.Inputs {
		declared = append(declared, name)
	}
	sort.Strings(declared)

	expected := append([]string(nil), inputs...)
	sort.Strings(expected)
	assert.Equal(t, expected, declared)
	assert.True(t, meta.Inputs[keyVersion].Required)

	assert.Contains(t, meta.Outputs, "nomad-bin")
	assert.Contains(t, meta.Outputs, "nomad-version")
	assert.Contains(t, meta.Outputs, "cache-hit")

	var env map[string]string
	for _, step := range meta.Runs.Steps {
		if step.ID == "setup" {
			env = step.Env
		}
	}
	require.NotNil(t, env, "setup step not found")

	for _, input := range inputs {
		names := envnames(input)
		found := false
		for _, name := range names {
			if _, ok := env[name]; ok {
				found = true
			}
		}
		assert.True(t, found, "input %s isn't passed as any of %v", input, names)
	}

	assert.Equal(t, action.InputEnv(keyVersion), "INPUT_VERSION")
}

func TestCommand_Bindings(t *testing.T) {
	assert.NotPanics(t, func() { newRootCmd() })

	cmd := newRootCmd()
	flag := cmd.Flags().Lookup(keyDistURL)
	require.NotNil(t, flag)
	assert.True(t, flag.Hidden)
}
