// Package release resolves the version of nomad to install.
package release

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"golang.org/x/mod/semver"
	"resty.dev/v3"

	setup "github.com/aexvir/setup-nomad"
)

const (
	// Latest is the version alias resolved through the release index.
	Latest = "latest"

	DefaultBaseURL    = "https://api.github.com"
	DefaultRepository = "hashicorp/nomad"
	DefaultTimeout    = 30 * time.Second
)

// Resolver turns a requested version into a concrete one, asking the GitHub
// release index when the latest release is requested.
type Resolver struct {
	baseurl string
	repo    string
	token   string
	timeout time.Duration
}

func New(opts ...Option) *Resolver {
	r := Resolver{
		baseurl: DefaultBaseURL,
		repo:    DefaultRepository,
		timeout: DefaultTimeout,
	}

	for _, opt := range opts {
		opt(&r)
	}

	return &r
}

// Resolve returns the normalized version for requested.
// Only "latest", in any casing, triggers a remote call; anything else is normalized
// and passed through without validation.
func (r *Resolver) Resolve(ctx context.Context, requested string) (string, error) {
	if strings.EqualFold(strings.TrimSpace(requested), Latest) {
		return r.Latest(ctx)
	}

	return Normalize(requested), nil
}

type release struct {
	TagName string `json:"tag_name"`
}

// Latest asks the release index for the latest published release.
// Every failure is reported as a [setup.VersionLookupFailed] error.
func (r *Resolver) Latest(ctx context.Context) (string, error) {
	client := resty.New().
		SetBaseURL(r.baseurl).
		SetTimeout(r.timeout).
		SetHeader("Accept", "application/vnd.github+json").
		SetHeader("X-GitHub-Api-Version", "2022-11-28")
	defer client.Close()

	if r.token != "" {
		client.SetAuthToken(r.token)
	}

	owner, repo, _ := strings.Cut(r.repo, "/")

	logdetail(fmt.Sprintf("looking up latest release of %s", r.repo))

	var rel release
	res, err := client.R().
		SetContext(ctx).
		SetPathParams(map[string]string{"owner": owner, "repo": repo}).
		SetResult(&rel).
		Get("/repos/{owner}/{repo}/releases/latest")
	if err != nil {
		return "", failed(r.repo, err)
	}

	if res.IsError() {
		return "", failed(r.repo, fmt.Errorf("received unexpected response: http%d", res.StatusCode()))
	}

	if rel.TagName == "" {
		return "", failed(r.repo, fmt.Errorf("release has no tag"))
	}

	return Normalize(rel.TagName), nil
}

// Normalize strips surrounding whitespace and one leading "v" or "V".
func Normalize(version string) string {
	version = strings.TrimSpace(version)
	if len(version) > 0 && (version[0] == 'v' || version[0] == 'V') {
		version = version[1:]
	}

	if !semver.IsValid("v" + version) {
		logdetail(fmt.Sprintf("%q doesn't look like a release version, using it as is", version))
	}

	return version
}

func failed(repo string, cause error) error {
	return setup.NewError(
		setup.VersionLookupFailed,
		fmt.Sprintf("failed to fetch latest release of %s", repo),
		cause,
	)
}

func logdetail(text string) {
	fmt.Println(
		color.New(color.FgHiBlack).Sprint("   └"),
		color.New(color.FgHiBlack).Sprint(text),
	)
}

type Option func(r *Resolver)

// WithToken authenticates the release index lookups.
func WithToken(token string) Option {
	return func(r *Resolver) {
		r.token = token
	}
}

// WithBaseURL points the resolver at another GitHub API, e.g. an enterprise server.
func WithBaseURL(url string) Option {
	return func(r *Resolver) {
		if url != "" {
			r.baseurl = strings.TrimSuffix(url, "/")
		}
	}
}

// WithRepository sets the owner/name of the repository whose releases are looked up.
func WithRepository(repo string) Option {
	return func(r *Resolver) {
		if repo != "" {
			r.repo = repo
		}
	}
}

// WithTimeout bounds the release index lookup.
func WithTimeout(timeout time.Duration) Option {
	return func(r *Resolver) {
		r.timeout = timeout
	}
}
