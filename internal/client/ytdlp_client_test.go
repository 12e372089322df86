package client

import (
	"reflect"
	"testing"
	"time"
)

func TestDownloadArgs(t *testing.T) {
	c := NewYtDlpClient("yt-dlp", 5*time.Minute)

	got := c.downloadArgs("https://v.redd.it/abc/HLSPlaylist.m3u8", "/tmp/job/video_0.mp4")
	want := []string{
		"-f", "best",
		"--no-warnings",
		"--no-check-certificate",
		"-o", "/tmp/job/video_0.mp4",
		"https://v.redd.it/abc/HLSPlaylist.m3u8",
	}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("downloadArgs = %v, want %v", got, want)
	}
}

func TestNewYtDlpClient_DefaultBinary(t *testing.T) {
	c := NewYtDlpClient("", 0)
	if c.binary != "yt-dlp" {
		t.Errorf("expected default binary yt-dlp, got %s", c.binary)
	}
}
