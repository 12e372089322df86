package client

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Encoder covers the video transforms the merge pipeline needs. Implemented
// by FFmpegClient; tests substitute fakes.
type Encoder interface {
	// Normalize scales and pads src into the target vertical frame at dest.
	Normalize(ctx context.Context, src, dest string) error
	// Concat joins srcs in order into dest with stream copy.
	Concat(ctx context.Context, srcs []string, dest string) error
	// Overlay re-encodes src with the given drawtext filter chain into dest.
	Overlay(ctx context.Context, src, filter, dest string) error
	// Duration returns the playable length of path in seconds.
	Duration(ctx context.Context, path string) (float64, error)
}

// FFmpegClient implements Encoder via the ffmpeg and ffprobe binaries
type FFmpegClient struct {
	ffmpeg        string
	ffprobe       string
	width         int
	height        int
	encodeTimeout time.Duration
	finalTimeout  time.Duration
}

// NewFFmpegClient creates a new ffmpeg encoder client for the given frame size
func NewFFmpegClient(ffmpeg, ffprobe string, width, height int, encodeTimeout, finalTimeout time.Duration) *FFmpegClient {
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	if ffprobe == "" {
		ffprobe = "ffprobe"
	}
	return &FFmpegClient{
		ffmpeg:        ffmpeg,
		ffprobe:       ffprobe,
		width:         width,
		height:        height,
		encodeTimeout: encodeTimeout,
		finalTimeout:  finalTimeout,
	}
}

func (c *FFmpegClient) Normalize(ctx context.Context, src, dest string) error {
	return c.run(ctx, c.encodeTimeout, c.normalizeArgs(src, dest))
}

func (c *FFmpegClient) normalizeArgs(src, dest string) []string {
	vf := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black",
		c.width, c.height, c.width, c.height,
	)
	return []string{
		"-i", src,
		"-vf", vf,
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-c:a", "aac",
		"-b:a", "128k",
		"-y",
		dest,
	}
}

func (c *FFmpegClient) Concat(ctx context.Context, srcs []string, dest string) error {
	listFile := filepath.Join(filepath.Dir(dest), "concat.txt")
	if err := writeConcatList(listFile, srcs); err != nil {
		return err
	}
	defer os.Remove(listFile)

	return c.run(ctx, c.encodeTimeout, []string{
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c", "copy",
		"-y",
		dest,
	})
}

func (c *FFmpegClient) Overlay(ctx context.Context, src, filter, dest string) error {
	return c.run(ctx, c.finalTimeout, []string{
		"-i", src,
		"-vf", filter,
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "23",
		"-c:a", "copy",
		"-y",
		dest,
	})
}

func (c *FFmpegClient) Duration(ctx context.Context, path string) (float64, error) {
	if c.encodeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.encodeTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed for %s: %w", path, err)
	}

	d, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe returned unparsable duration %q: %w", out, err)
	}
	return d, nil
}

func (c *FFmpegClient) run(ctx context.Context, timeout time.Duration, args []string) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.ffmpeg, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg failed: %w: %s", err, tail(string(out), 512))
	}
	return nil
}

// writeConcatList writes a concat-demuxer file list. Single quotes in paths
// are escaped the way the demuxer expects.
func writeConcatList(path string, srcs []string) error {
	var b strings.Builder
	for _, src := range srcs {
		escaped := strings.ReplaceAll(src, "'", `'\''`)
		fmt.Fprintf(&b, "file '%s'\n", escaped)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write concat list: %w", err)
	}
	return nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
