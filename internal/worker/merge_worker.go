package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/videomerger/api/internal/model"
	"github.com/videomerger/api/internal/service"
	"github.com/videomerger/api/internal/websocket"
)

// MergeWorker processes queued merge jobs
type MergeWorker struct {
	merges *service.MergeService
	jobs   *service.JobService
	hub    *websocket.Hub
}

// NewMergeWorker creates a new merge worker
func NewMergeWorker(merges *service.MergeService, jobs *service.JobService, hub *websocket.Hub) *MergeWorker {
	return &MergeWorker{
		merges: merges,
		jobs:   jobs,
		hub:    hub,
	}
}

// ProcessTask handles merge task processing
func (w *MergeWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var taskPayload struct {
		JobID   string          `json:"jobId"`
		Payload json.RawMessage `json:"payload"`
	}

	if err := json.Unmarshal(t.Payload(), &taskPayload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	jobID := taskPayload.JobID
	log.Printf("Starting merge job: %s", jobID)

	var payload model.MergeJobPayload
	if err := json.Unmarshal(taskPayload.Payload, &payload); err != nil {
		w.failJob(ctx, jobID, "Invalid payload")
		return fmt.Errorf("failed to unmarshal merge payload: %w", err)
	}

	outputFile, err := w.merges.RunJob(ctx, jobID, payload.Videos, func(progress int, step string) {
		if err := w.jobs.UpdateJobProgress(ctx, jobID, progress, step); err != nil {
			log.Printf("Failed to update progress for job %s: %v", jobID, err)
		}
		w.hub.BroadcastProgress(jobID, progress, model.JobStatusRunning, step)
	})
	if err != nil {
		w.failJob(ctx, jobID, err.Error())
		return err
	}

	result := &model.MergeResponse{
		Status:     model.StatusSuccess,
		Message:    "Videos merged successfully",
		OutputFile: outputFile,
		VideoCount: len(payload.Videos),
	}

	if err := w.jobs.CompleteJob(ctx, jobID, result); err != nil {
		w.failJob(ctx, jobID, "Failed to save result")
		return err
	}

	w.hub.BroadcastComplete(jobID, result)

	log.Printf("Merge job %s completed", jobID)
	return nil
}

func (w *MergeWorker) failJob(ctx context.Context, jobID, errMsg string) {
	if err := w.jobs.FailJob(ctx, jobID, errMsg); err != nil {
		log.Printf("Failed to mark job as failed: %v", err)
	}
	w.hub.BroadcastError(jobID, "MERGE_FAILED", errMsg)
}
