package download

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/schollz/progressbar/v3"

	"github.com/oshokin/desktop-packager/internal/domain/platform"
	"github.com/oshokin/desktop-packager/internal/logger"
	"github.com/oshokin/desktop-packager/internal/service/archive"
	"github.com/oshokin/desktop-packager/internal/service/common"
)

const (
	versionsFile   = "versions.json"
	completeMarker = ".complete"
	flavorSDK      = "sdk"
)

var (
	errBadHTTPStatus  = errors.New("unexpected http status")
	errUnknownRelease = errors.New("unknown runtime release alias")
)

// Options configure a Downloader.
type Options struct {
	// Mirror serves runtime packages.
	Mirror string
	// CodecMirror serves codec packages.
	CodecMirror string
	// CacheDir stores archives and extracted trees.
	CacheDir string
	// Archiver extracts downloaded archives.
	Archiver *archive.Tool
	// Client performs requests; nil means http.DefaultClient.
	Client *http.Client
	// Progress receives download progress bars; nil disables them.
	Progress io.Writer
}

// Downloader fetches and extracts runtime and codec packages.
type Downloader struct {
	opts Options
}

// New returns a Downloader.
func New(opts Options) *Downloader {
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}

	return &Downloader{opts: opts}
}

// ResolveVersion maps the "latest", "stable" and "lts" aliases to a
// concrete runtime version using the mirror's version index. Concrete
// versions are returned without the leading "v".
func (d *Downloader) ResolveVersion(ctx context.Context, version string) (string, error) {
	alias := strings.ToLower(strings.TrimSpace(version))

	switch alias {
	case "latest", "stable", "lts":
	default:
		return strings.TrimPrefix(version, "v"), nil
	}

	body, err := d.get(ctx, d.opts.Mirror, versionsFile)
	if err != nil {
		return "", err
	}

	defer func() {
		_ = body.Close()
	}()

	index := make(map[string]json.RawMessage)
	if err = json.NewDecoder(body).Decode(&index); err != nil {
		return "", fmt.Errorf("decode %s: %w", versionsFile, err)
	}

	var resolved string
	if raw, ok := index[alias]; ok {
		_ = json.Unmarshal(raw, &resolved)
	}

	if resolved == "" {
		return "", fmt.Errorf("%w: %s", errUnknownRelease, alias)
	}

	logger.InfoKV(ctx, "Resolved runtime version", "alias", alias, "version", resolved)

	return strings.TrimPrefix(resolved, "v"), nil
}

// FetchRuntime returns the extracted runtime package for task.
func (d *Downloader) FetchRuntime(ctx context.Context, task platform.Task, version, flavor string) (string, error) {
	name := RuntimeArchiveName(task, version, flavor)

	return d.fetch(ctx, d.opts.Mirror, "v"+version+"/"+name)
}

// FetchCodec returns the extracted codec package for task.
func (d *Downloader) FetchCodec(ctx context.Context, task platform.Task, version string) (string, error) {
	name := fmt.Sprintf("%s-%s-%s.zip", version, mirrorOS(task.Platform), mirrorArch(task.Arch))

	return d.fetch(ctx, d.opts.CodecMirror, version+"/"+name)
}

// RuntimeArchiveName builds the mirror file name of a runtime package.
func RuntimeArchiveName(task platform.Task, version, flavor string) string {
	prefix := "nwjs"
	if flavor == flavorSDK {
		prefix += "-sdk"
	}

	ext := ".zip"
	if task.Platform == platform.Linux {
		ext = ".tar.gz"
	}

	return fmt.Sprintf("%s-v%s-%s-%s%s", prefix, version, mirrorOS(task.Platform), mirrorArch(task.Arch), ext)
}

func (d *Downloader) fetch(ctx context.Context, mirror, remote string) (string, error) {
	name := path.Base(remote)
	archivePath := filepath.Join(d.opts.CacheDir, name)
	extracted := filepath.Join(d.opts.CacheDir, strings.TrimSuffix(strings.TrimSuffix(name, ".zip"), ".tar.gz"))

	if ok, err := common.Exists(filepath.Join(extracted, completeMarker)); err != nil {
		return "", err
	} else if ok {
		logger.DebugKV(ctx, "Using cached package", "path", extracted)

		return extracted, nil
	}

	if err := os.MkdirAll(d.opts.CacheDir, common.DirMode); err != nil {
		return "", err
	}

	if err := d.download(ctx, mirror, remote, archivePath); err != nil {
		return "", err
	}

	if err := common.ResetDir(extracted); err != nil {
		return "", err
	}

	if err := d.opts.Archiver.Extract(ctx, archivePath, extracted); err != nil {
		return "", fmt.Errorf("extract %s: %w", name, err)
	}

	if err := os.WriteFile(filepath.Join(extracted, completeMarker), nil, 0o644); err != nil {
		return "", err
	}

	return extracted, nil
}

func (d *Downloader) download(ctx context.Context, mirror, remote, dest string) error {
	logger.InfoKV(ctx, "Downloading package", "url", mirror, "file", remote)

	body, err := d.get(ctx, mirror, remote)
	if err != nil {
		return err
	}

	defer func() {
		_ = body.Close()
	}()

	out, err := renameio.TempFile("", dest)
	if err != nil {
		return err
	}

	defer func() {
		_ = out.Cleanup()
	}()

	var reader io.Reader = body
	if d.opts.Progress != nil {
		bar := progressbar.NewOptions64(-1,
			progressbar.OptionSetDescription("Downloading "+path.Base(remote)),
			progressbar.OptionSetWriter(d.opts.Progress),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(40),
			progressbar.OptionClearOnFinish(),
		)
		r := progressbar.NewReader(body, bar)
		reader = &r
	}

	if _, err = io.Copy(out, reader); err != nil {
		return fmt.Errorf("download %s: %w", remote, err)
	}

	return out.CloseAtomicallyReplace()
}

// get fetches remote relative to mirror.
func (d *Downloader) get(ctx context.Context, mirror, remote string) (io.ReadCloser, error) {
	base, err := url.Parse(mirror)
	if err != nil {
		return nil, err
	}

	base.Path = path.Join(base.Path, remote)
	finalURL := base.String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalURL, http.NoBody)
	if err != nil {
		return nil, err
	}

	response, err := d.opts.Client.Do(req)
	if err != nil {
		return nil, err
	}

	if response.StatusCode != http.StatusOK {
		_ = response.Body.Close()

		return nil, fmt.Errorf("%s, %s: %w", finalURL, response.Status, errBadHTTPStatus)
	}

	return response.Body, nil
}

func mirrorOS(p platform.Platform) string {
	switch p {
	case platform.Windows:
		return "win"
	case platform.Mac:
		return "osx"
	default:
		return "linux"
	}
}

func mirrorArch(a platform.Arch) string {
	if a == platform.X86 {
		return "ia32"
	}

	return "x64"
}
