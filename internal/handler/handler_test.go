package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/videomerger/api/internal/client"
	"github.com/videomerger/api/internal/config"
	"github.com/videomerger/api/internal/service"
	"github.com/videomerger/api/internal/store"
)

// stubDownloader writes marker files; URLs listed in failing error out
type stubDownloader struct {
	failing map[string]bool
}

func (d *stubDownloader) Download(ctx context.Context, url, dest string) error {
	if d.failing[url] {
		return errors.New("download failed")
	}
	return os.WriteFile(dest, []byte("clip"), 0o644)
}

// stubEncoder produces marker outputs without touching ffmpeg
type stubEncoder struct{}

func (stubEncoder) Normalize(ctx context.Context, src, dest string) error {
	return os.WriteFile(dest, []byte("normalized"), 0o644)
}

func (stubEncoder) Concat(ctx context.Context, srcs []string, dest string) error {
	return os.WriteFile(dest, []byte("concatenated"), 0o644)
}

func (stubEncoder) Overlay(ctx context.Context, src, filter, dest string) error {
	return os.WriteFile(dest, []byte("merged-video-bytes"), 0o644)
}

func (stubEncoder) Duration(ctx context.Context, path string) (float64, error) {
	return 2.5, nil
}

type testApp struct {
	app   *fiber.App
	store *store.Store
}

// setupApp wires the sync routes the way main.go does, with stubbed external
// tools so no yt-dlp or ffmpeg binary is needed.
func setupApp(t *testing.T, dl client.Downloader) *testApp {
	t.Helper()

	st, err := store.New(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	cfg := config.MergeConfig{
		MaxWorkers:      2,
		QueueSize:       2,
		MaxVideos:       15,
		DownloadTimeout: time.Minute,
		EncodeTimeout:   time.Minute,
		FinalTimeout:    time.Minute,
	}

	filters := client.NewFilterBuilder("/fonts/test.ttf")
	mergeService := service.NewMergeService(dl, stubEncoder{}, filters, st, t.TempDir(), cfg)

	validate := validator.New()
	mergeHandler := NewMergeHandler(mergeService, nil, validate)
	downloadHandler := NewDownloadHandler(st)

	app := fiber.New()
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})
	app.Post("/merge", mergeHandler.Merge)
	app.Get("/download/:filename", downloadHandler.Get)

	return &testApp{app: app, store: st}
}

func doRequest(app *fiber.App, method, path, body string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	return app.Test(req, -1)
}

func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	var result map[string]interface{}
	if err := json.Unmarshal(b, &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, b)
	}
	return result
}

func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

func mergeBody(n int) string {
	videos := make([]string, n)
	for i := range videos {
		videos[i] = fmt.Sprintf(`{
			"title": "Clip %d",
			"url": "https://v.redd.it/clip%d",
			"secure_media": {"reddit_video": {"hls_url": "https://v.redd.it/clip%d/HLSPlaylist.m3u8"}}
		}`, i+1, i, i)
	}
	return `{"videos":[` + strings.Join(videos, ",") + `]}`
}

func TestHealth(t *testing.T) {
	ta := setupApp(t, &stubDownloader{})

	resp, err := doRequest(ta.app, http.MethodGet, "/health", "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusOK)
	body := parseJSON(t, resp)
	if body["status"] != "healthy" {
		t.Errorf("expected status 'healthy', got %v", body["status"])
	}
}

func TestMerge_Success(t *testing.T) {
	ta := setupApp(t, &stubDownloader{})

	resp, err := doRequest(ta.app, http.MethodPost, "/merge", mergeBody(3))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusOK)
	body := parseJSON(t, resp)
	if body["status"] != "success" {
		t.Fatalf("expected success, got %v", body)
	}
	if body["video_count"] != float64(3) {
		t.Errorf("expected video_count 3, got %v", body["video_count"])
	}

	outputFile, _ := body["output_file"].(string)
	if !strings.HasSuffix(outputFile, ".mp4") {
		t.Fatalf("unexpected output_file %q", outputFile)
	}

	// The merged file is downloadable
	dlResp, err := doRequest(ta.app, http.MethodGet, "/download/"+outputFile, "")
	if err != nil {
		t.Fatalf("download request failed: %v", err)
	}
	assertStatus(t, dlResp, http.StatusOK)
	defer dlResp.Body.Close()
	content, _ := io.ReadAll(dlResp.Body)
	if string(content) != "merged-video-bytes" {
		t.Errorf("unexpected download content %q", content)
	}
}

func TestMerge_EmptyVideos(t *testing.T) {
	ta := setupApp(t, &stubDownloader{})

	resp, err := doRequest(ta.app, http.MethodPost, "/merge", `{"videos":[]}`)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusBadRequest)
	body := parseJSON(t, resp)
	if body["status"] != "error" {
		t.Errorf("expected error status, got %v", body)
	}
}

func TestMerge_MissingVideosKey(t *testing.T) {
	ta := setupApp(t, &stubDownloader{})

	resp, err := doRequest(ta.app, http.MethodPost, "/merge", `{"something":"else"}`)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusBadRequest)

	// No files were created
	entries, _ := os.ReadDir(ta.store.Dir())
	if len(entries) != 0 {
		t.Errorf("expected no output files, found %d", len(entries))
	}
}

func TestMerge_MalformedJSON(t *testing.T) {
	ta := setupApp(t, &stubDownloader{})

	resp, err := doRequest(ta.app, http.MethodPost, "/merge", `{"videos": [`)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusBadRequest)
}

func TestMerge_InvalidHLSURL(t *testing.T) {
	ta := setupApp(t, &stubDownloader{})

	body := `{"videos":[{
		"title": "Bad",
		"url": "https://v.redd.it/x",
		"secure_media": {"reddit_video": {"hls_url": "not a url"}}
	}]}`

	resp, err := doRequest(ta.app, http.MethodPost, "/merge", body)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusBadRequest)
}

func TestMerge_DownloadFailure(t *testing.T) {
	ta := setupApp(t, &stubDownloader{failing: map[string]bool{
		"https://v.redd.it/clip1/HLSPlaylist.m3u8": true,
	}})

	resp, err := doRequest(ta.app, http.MethodPost, "/merge", mergeBody(3))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusInternalServerError)
	body := parseJSON(t, resp)
	if body["status"] != "error" {
		t.Errorf("expected error status, got %v", body)
	}

	// No output file was created
	entries, _ := os.ReadDir(ta.store.Dir())
	if len(entries) != 0 {
		t.Errorf("expected no output files, found %d", len(entries))
	}
}

func TestDownload_NotFound(t *testing.T) {
	ta := setupApp(t, &stubDownloader{})

	resp, err := doRequest(ta.app, http.MethodGet, "/download/nonexistent.mp4", "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusNotFound)
	body := parseJSON(t, resp)
	if body["status"] != "error" {
		t.Errorf("expected error body, got %v", body)
	}
}

func TestDownload_RejectsTraversal(t *testing.T) {
	ta := setupApp(t, &stubDownloader{})

	resp, err := doRequest(ta.app, http.MethodGet, "/download/..%2Fsecret", "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusNotFound)
}

func TestDownload_StaysPinnedUntilBodyWritten(t *testing.T) {
	ta := setupApp(t, &stubDownloader{})

	src := filepath.Join(t.TempDir(), "out.mp4")
	if err := os.WriteFile(src, []byte("merged-video-bytes"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	if err := ta.store.Publish(src, "old.mp4"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	published := filepath.Join(ta.store.Dir(), "old.mp4")
	stale := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(published, stale, stale); err != nil {
		t.Fatalf("age file: %v", err)
	}

	resp, err := doRequest(ta.app, http.MethodGet, "/download/old.mp4", "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(data) != "merged-video-bytes" {
		t.Errorf("body = %q, want merged file contents", data)
	}

	// The transfer is done, so the pin must be gone and the sweep free to
	// reclaim the expired file.
	removed, err := ta.store.Sweep(24 * time.Hour)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if removed != 1 {
		t.Errorf("sweep removed %d files, want 1", removed)
	}
}

func TestPinnedFileReleasesOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	var releases int
	pf := &pinnedFile{File: f, release: func() { releases++ }}
	if err := pf.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	pf.Close()

	if releases != 1 {
		t.Errorf("release ran %d times, want exactly once", releases)
	}
}
