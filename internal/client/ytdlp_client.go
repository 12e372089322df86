package client

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// Downloader resolves a playlist URL into a local media file
type Downloader interface {
	Download(ctx context.Context, url, dest string) error
}

// YtDlpClient implements Downloader by shelling out to the yt-dlp binary
type YtDlpClient struct {
	binary  string
	timeout time.Duration
}

// NewYtDlpClient creates a new yt-dlp downloader client
func NewYtDlpClient(binary string, timeout time.Duration) *YtDlpClient {
	if binary == "" {
		binary = "yt-dlp"
	}
	return &YtDlpClient{binary: binary, timeout: timeout}
}

// Download fetches the media behind url into dest. HLS playlists get picked
// up by yt-dlp's "best" format selection; certificate checks are skipped
// because v.redd.it CDN hosts rotate certs per edge node.
func (c *YtDlpClient) Download(ctx context.Context, url, dest string) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.binary, c.downloadArgs(url, dest)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("yt-dlp failed for %s: %w: %s", url, err, string(out))
	}

	// yt-dlp can exit 0 without producing a file for some unavailable media
	if _, err := os.Stat(dest); err != nil {
		return fmt.Errorf("yt-dlp produced no output for %s", url)
	}

	return nil
}

func (c *YtDlpClient) downloadArgs(url, dest string) []string {
	return []string{
		"-f", "best",
		"--no-warnings",
		"--no-check-certificate",
		"-o", dest,
		url,
	}
}
