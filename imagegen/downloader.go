package imagegen

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// maxDownloadBytes caps a single fetched image.
const maxDownloadBytes = 32 << 20

// Downloader fetches images that a backend returned as temporary URLs and
// inlines them as data URLs.
type Downloader struct {
	client *http.Client
}

// NewDownloaderWithClient creates a downloader around an explicit client.
func NewDownloaderWithClient(client *http.Client) *Downloader {
	if client == nil {
		client = http.DefaultClient
	}
	return &Downloader{client: client}
}

// FetchDataURL downloads url and returns it as a data URL.
func (d *Downloader) FetchDataURL(ctx context.Context, url string) (string, error) {
	if url == "" {
		return "", fmt.Errorf("imagegen: URL cannot be empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("imagegen: failed to create download request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("imagegen: failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("imagegen: download failed with status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes+1))
	if err != nil {
		return "", fmt.Errorf("imagegen: failed to read image data: %w", err)
	}
	if len(data) > maxDownloadBytes {
		return "", fmt.Errorf("imagegen: image exceeds %d bytes", maxDownloadBytes)
	}

	return DataURL(mimeFromContentType(resp.Header.Get("Content-Type")), data), nil
}
