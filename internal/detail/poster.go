package detail

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pfrederiksen/promoter-events/internal/logger"
	"github.com/pfrederiksen/promoter-events/internal/retry"
)

const DefaultDownloadTimeout = 60 * time.Second

// Downloader streams poster images to disk.
type Downloader struct {
	client *resty.Client
	policy retry.Policy
}

// NewDownloader creates a Downloader sending userAgent, giving up on a single
// transfer after timeout and retrying per policy.
func NewDownloader(userAgent string, timeout time.Duration, policy retry.Policy) *Downloader {
	client := resty.New()
	if userAgent != "" {
		client.SetHeader("User-Agent", userAgent)
	}
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return &Downloader{
		client: client,
		policy: policy,
	}
}

// Download fetches imageURL into dest and returns the number of bytes written.
// dest only appears once the whole body has been flushed to disk.
// Client errors other than 408 and 429 are not retried.
func (d *Downloader) Download(ctx context.Context, imageURL, dest string) (int64, error) {
	n, _, err := retry.Do(ctx, d.policy,
		func(ctx context.Context, attempt int) (int64, error) {
			return d.fetch(ctx, imageURL, dest)
		},
		func(err error, attempt, remaining int) {
			logger.Warn("Poster download attempt failed", logger.Fields{
				"url":               imageURL,
				"attempt":           attempt,
				"retries_remaining": remaining,
				"error":             err.Error(),
			})
		})
	return n, err
}

func (d *Downloader) fetch(ctx context.Context, imageURL, dest string) (int64, error) {
	resp, err := d.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(imageURL)
	if err != nil {
		return 0, fmt.Errorf("requesting image: %w", err)
	}
	body := resp.RawBody()
	defer body.Close()

	if status := resp.StatusCode(); status != http.StatusOK {
		err := fmt.Errorf("unexpected status code: %d", status)
		if status >= 400 && status < 500 && status != http.StatusRequestTimeout && status != http.StatusTooManyRequests {
			return 0, retry.Permanent(err)
		}
		return 0, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".poster-*")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	n, err := io.Copy(tmp, body)
	if err != nil {
		_ = tmp.Close()
		return 0, fmt.Errorf("streaming image: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return 0, fmt.Errorf("flushing image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("closing image: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return 0, fmt.Errorf("moving image into place: %w", err)
	}
	committed = true

	return n, nil
}
