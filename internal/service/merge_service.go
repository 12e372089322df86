package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/videomerger/api/internal/client"
	"github.com/videomerger/api/internal/config"
	"github.com/videomerger/api/internal/model"
	"github.com/videomerger/api/internal/store"
)

var (
	// ErrBusy is returned when all workers and queue slots are taken
	ErrBusy = errors.New("server at capacity")
	// ErrTooManyVideos is returned when the request exceeds the video limit
	ErrTooManyVideos = errors.New("too many videos")
)

// MergeService runs merge pipelines: download every clip, normalize each to
// the reels frame, concatenate, burn in overlays, publish the output.
// Admission is a fixed worker count plus a bounded wait queue; anything
// beyond that is rejected.
type MergeService struct {
	downloader client.Downloader
	encoder    client.Encoder
	filters    *client.FilterBuilder
	store      *store.Store
	tempDir    string
	maxVideos  int

	sem       chan struct{}
	queueSize int64
	waiting   int64
}

func NewMergeService(downloader client.Downloader, encoder client.Encoder, filters *client.FilterBuilder, st *store.Store, tempDir string, cfg config.MergeConfig) *MergeService {
	workers := cfg.MaxWorkers
	if workers < 1 {
		workers = 1
	}
	return &MergeService{
		downloader: downloader,
		encoder:    encoder,
		filters:    filters,
		store:      st,
		tempDir:    tempDir,
		maxVideos:  cfg.MaxVideos,
		sem:        make(chan struct{}, workers),
		queueSize:  int64(cfg.QueueSize),
	}
}

// Merge processes one synchronous merge request end to end
func (s *MergeService) Merge(ctx context.Context, req *model.MergeRequest) (*model.MergeResponse, error) {
	if s.maxVideos > 0 && len(req.Videos) > s.maxVideos {
		return nil, fmt.Errorf("%w: maximum %d videos allowed", ErrTooManyVideos, s.maxVideos)
	}

	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.release()

	jobID := uuid.New().String()
	outputFile, err := s.RunJob(ctx, jobID, req.Videos, nil)
	if err != nil {
		return nil, err
	}

	return &model.MergeResponse{
		Status:     model.StatusSuccess,
		Message:    "Videos merged successfully",
		OutputFile: outputFile,
		VideoCount: len(req.Videos),
	}, nil
}

// ProgressFunc receives pipeline progress updates (percent, step)
type ProgressFunc func(progress int, step string)

// RunJob executes the merge pipeline for jobID. All temporary files live in
// a job-owned directory that is removed whatever the outcome; the output is
// published into the store only after the final encode succeeds, so a failed
// job never leaves a partial file reachable for download.
func (s *MergeService) RunJob(ctx context.Context, jobID string, videos []model.VideoInput, progress ProgressFunc) (string, error) {
	if progress == nil {
		progress = func(int, string) {}
	}
	if len(videos) == 0 {
		return "", errors.New("no videos provided")
	}

	jobDir := filepath.Join(s.tempDir, jobID)
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create job dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(jobDir); err != nil {
			log.Printf("Failed to clean up job %s: %v", jobID, err)
		}
	}()

	// Download every clip; any failure fails the whole job
	downloaded := make([]string, len(videos))
	for i, v := range videos {
		progress(progressAt(i, len(videos), 0, 40), fmt.Sprintf("Downloading video %d/%d...", i+1, len(videos)))
		dest := filepath.Join(jobDir, fmt.Sprintf("video_%d.mp4", i))
		if err := s.downloader.Download(ctx, v.SecureMedia.RedditVideo.HLSURL, dest); err != nil {
			return "", fmt.Errorf("failed to download video %d (%s): %w", i+1, v.Title, err)
		}
		downloaded[i] = dest
	}

	// Normalize each clip to the reels frame
	processed := make([]string, len(videos))
	for i, src := range downloaded {
		progress(progressAt(i, len(videos), 40, 70), fmt.Sprintf("Processing video %d/%d...", i+1, len(videos)))
		dest := filepath.Join(jobDir, fmt.Sprintf("processed_%d.mp4", i))
		if err := s.encoder.Normalize(ctx, src, dest); err != nil {
			return "", fmt.Errorf("failed to process video %d (%s): %w", i+1, videos[i].Title, err)
		}
		processed[i] = dest
	}

	// Overlay windows come from the normalized clips' probed durations
	clips := make([]client.Clip, len(videos))
	for i, p := range processed {
		d, err := s.encoder.Duration(ctx, p)
		if err != nil {
			return "", fmt.Errorf("failed to probe video %d: %w", i+1, err)
		}
		clips[i] = client.Clip{Title: videos[i].Title, Duration: d}
	}

	progress(75, "Concatenating clips...")
	concatFile := filepath.Join(jobDir, "merged.mp4")
	if err := s.encoder.Concat(ctx, processed, concatFile); err != nil {
		return "", fmt.Errorf("failed to concatenate videos: %w", err)
	}

	progress(85, "Rendering overlays...")
	finalFile := filepath.Join(jobDir, "final.mp4")
	if err := s.encoder.Overlay(ctx, concatFile, s.filters.Build(clips), finalFile); err != nil {
		return "", fmt.Errorf("failed to render overlays: %w", err)
	}

	progress(95, "Publishing output...")
	outputName := jobID + ".mp4"
	if err := s.store.Publish(finalFile, outputName); err != nil {
		return "", fmt.Errorf("failed to publish output: %w", err)
	}

	log.Printf("Merge job %s completed: %s (%d videos)", jobID, outputName, len(videos))
	return outputName, nil
}

// acquire takes a worker slot, waiting in the bounded queue if all workers
// are busy. A saturated queue rejects immediately with ErrBusy.
func (s *MergeService) acquire(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	default:
	}

	if atomic.AddInt64(&s.waiting, 1) > s.queueSize {
		atomic.AddInt64(&s.waiting, -1)
		return ErrBusy
	}
	defer atomic.AddInt64(&s.waiting, -1)

	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *MergeService) release() {
	<-s.sem
}

// progressAt maps item i of n onto the [lo,hi) band of the progress bar
func progressAt(i, n, lo, hi int) int {
	if n == 0 {
		return lo
	}
	return lo + (hi-lo)*i/n
}
