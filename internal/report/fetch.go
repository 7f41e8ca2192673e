package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/avast/retry-go/v4"
)

// FetcherConfig configures a Fetcher.
type FetcherConfig struct {
	Dir        string        // destination directory for <index>.jpg
	HTTPClient *http.Client  // default: 60s timeout
	Attempts   uint          // default: 3
	Delay      time.Duration // initial backoff, default: 1s
	Logger     *slog.Logger
}

// Fetcher downloads report screenshots to a local directory.
type Fetcher struct {
	dir      string
	client   *http.Client
	attempts uint
	delay    time.Duration
	logger   *slog.Logger
}

// NewFetcher creates a screenshot fetcher.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 3
	}
	if cfg.Delay <= 0 {
		cfg.Delay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Fetcher{
		dir:      cfg.Dir,
		client:   cfg.HTTPClient,
		attempts: cfg.Attempts,
		delay:    cfg.Delay,
		logger:   cfg.Logger,
	}
}

// ImagePath resolves the local path for a report index.
func (f *Fetcher) ImagePath(index string) string {
	return ImagePath(f.dir, index)
}

// Has reports whether the screenshot for index is already on disk.
func (f *Fetcher) Has(index string) bool {
	info, err := os.Stat(f.ImagePath(index))
	return err == nil && info.Size() > 0
}

// Download fetches url into <dir>/<index>.jpg. Existing files are kept.
// It returns the local path.
func (f *Fetcher) Download(ctx context.Context, url, index string) (string, error) {
	if err := ValidateIndex(index); err != nil {
		return "", err
	}
	dest := f.ImagePath(index)
	if f.Has(index) {
		return dest, nil
	}
	if url == "" {
		return "", fmt.Errorf("report %s: %w: no image url", index, ErrAssetMissing)
	}
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create image directory: %w", err)
	}

	err := retry.Do(
		func() error {
			return f.fetch(ctx, url, dest)
		},
		retry.Context(ctx),
		retry.Attempts(f.attempts),
		retry.Delay(f.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, errPermanent)
		}),
		retry.OnRetry(func(n uint, err error) {
			f.logger.Debug("retrying image download", "index", index, "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return "", fmt.Errorf("report %s: download image: %w", index, err)
	}
	return dest, nil
}

// DownloadAll fetches every report's screenshot and returns the reports with
// ImagePath set. Failures are logged and the report keeps an empty path, so
// deciding it later fails with ErrAssetMissing.
func (f *Fetcher) DownloadAll(ctx context.Context, reports []Report) ([]Report, int) {
	out := make([]Report, len(reports))
	failed := 0
	for i, r := range reports {
		if ctx.Err() != nil {
			out[i] = r
			failed++
			continue
		}
		path, err := f.Download(ctx, r.ImageURL, r.Index)
		if err != nil {
			f.logger.Warn("image download failed", "index", r.Index, "error", err)
			failed++
		} else {
			r.ImagePath = path
		}
		out[i] = r
	}
	return out, failed
}

var errPermanent = errors.New("permanent download failure")

func (f *Fetcher) fetch(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", errPermanent, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status %d", resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return fmt.Errorf("%w: %v", errPermanent, err)
		}
		return err
	}

	// Write to a temp file so a partial download never looks complete.
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return fmt.Errorf("%w: %v", errPermanent, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}
