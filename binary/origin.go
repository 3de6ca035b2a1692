package binary

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"

	setup "github.com/aexvir/setup-nomad"
	"github.com/aexvir/setup-nomad/archive"
)

// DefaultDownloadTimeout bounds a single archive download.
const DefaultDownloadTimeout = 10 * time.Minute

// Origin defines the interface for provisioning binaries from different sources.
type Origin interface {
	// Install places the contents of the release described by template into destination.
	Install(ctx context.Context, template Template, destination string) error
}

// remotearchive implements Origin for downloading and extracting archived binaries.
type remotearchive struct {
	urlformat string
	client    *http.Client
	scratch   string
}

// RemoteArchiveDownload creates a new Origin that downloads a release archive and
// extracts all of its contents. The URL can contain template variables that will be
// resolved using the [Template] values during installation.
// e.g. "https://releases.hashicorp.com/{{.Name}}/{{.Version}}/{{.Name}}_{{.Version}}_{{.OS}}_{{.Arch}}.zip"
func RemoteArchiveDownload(url string, opts ...DownloadOpt) Origin {
	r := remotearchive{
		urlformat: url,
		client:    &http.Client{Timeout: DefaultDownloadTimeout},
		scratch:   os.TempDir(),
	}

	for _, opt := range opts {
		opt(&r)
	}

	return &r
}

func (r *remotearchive) Install(ctx context.Context, template Template, destination string) error {
	url, err := template.Resolve(r.urlformat)
	if err != nil {
		return setup.NewError(setup.DownloadFailed, "failed to resolve download url", err)
	}

	// named per run so concurrent jobs on the same machine don't share the file
	scratch := filepath.Join(r.scratch, fmt.Sprintf("%s-%s.tmp", template.Name, uuid.NewString()))
	defer os.Remove(scratch)

	if err := r.download(ctx, url, scratch); err != nil {
		return setup.NewError(setup.DownloadFailed, fmt.Sprintf("failed to download %s", url), err)
	}

	if err := extract(scratch, destination); err != nil {
		return setup.NewError(setup.ExtractFailed, fmt.Sprintf("failed to extract %s", filepath.Base(url)), err)
	}

	return nil
}

// download retrieves url into destination.
func (r *remotearchive) download(ctx context.Context, url, destination string) (err error) {
	logdetail(fmt.Sprintf("downloading %s", url))

	start := time.Now()
	defer func() {
		elapsed := time.Since(start).Round(time.Millisecond)
		if err != nil {
			color.Red("     ✘ %s", elapsed)
			return
		}
		color.Green("     ✔ %s", elapsed)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("received unexpected response: http%d", resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", filepath.Dir(destination), err)
	}

	data, finish := progress(resp.Body, resp.ContentLength)
	defer finish()

	out, err := os.Create(destination)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", destination, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, data); err != nil {
		return fmt.Errorf("failed to copy data to file %s: %w", destination, err)
	}

	return out.Close()
}

// extract unpacks the archive into destination.
func extract(compressed, destination string) (err error) {
	logdetail(fmt.Sprintf("extracting into %s", destination))

	start := time.Now()
	defer func() {
		elapsed := time.Since(start).Round(time.Millisecond)
		if err != nil {
			color.Red("     ✘ %s", elapsed)
			return
		}
		color.Green("     ✔ %s", elapsed)
	}()

	return archive.Extract(compressed, destination)
}

// progress wraps an io.Reader to display a progress bar when running in a terminal.
// Returns the wrapped reader and a function to finalize the progress display.
func progress(reader io.Reader, size int64) (io.Reader, func()) {
	if !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		return reader, func() {}
	}

	bar := pb.
		New64(size).
		SetTemplate(
			pb.ProgressBarTemplate(
				color.New(color.FgHiBlack).Sprint(
					`   └ {{counters . }}` +
						` {{bar . "[" "=" ">" " " "]" }} {{percent . }}` +
						` {{speed . }}`,
				),
			),
		).
		SetRefreshRate(time.Second / 60).
		SetMaxWidth(100).
		Start()

	return bar.NewProxyReader(reader), func() { bar.Finish() }
}

type DownloadOpt func(r *remotearchive)

// WithHTTPClient sets the client used for downloads.
func WithHTTPClient(client *http.Client) DownloadOpt {
	return func(r *remotearchive) {
		r.client = client
	}
}

// WithDownloadTimeout bounds each download, see [DefaultDownloadTimeout].
func WithDownloadTimeout(timeout time.Duration) DownloadOpt {
	return func(r *remotearchive) {
		r.client.Timeout = timeout
	}
}

// WithScratchDir sets where archives are downloaded to before being extracted.
func WithScratchDir(dir string) DownloadOpt {
	return func(r *remotearchive) {
		r.scratch = dir
	}
}

func logstep(text string) {
	fmt.Println(
		color.BlueString(" •"),
		color.New(color.FgHiBlack).Sprint(text),
	)
}

func logdetail(text string) {
	fmt.Println(
		color.New(color.FgHiBlack).Sprint("   └"),
		color.New(color.FgHiBlack).Sprint(text),
	)
}
