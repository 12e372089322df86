package model

import "time"

// RedditVideo holds the playable media reference of a descriptor
type RedditVideo struct {
	HLSURL string `json:"hls_url" validate:"required,url"`
}

// SecureMedia wraps the nested media block as Reddit serves it
type SecureMedia struct {
	RedditVideo RedditVideo `json:"reddit_video" validate:"required"`
}

// VideoInput describes one source video; request order decides both the
// overlay counter value and the concatenation position.
type VideoInput struct {
	Title          string      `json:"title" validate:"required"`
	AuthorFullname *string     `json:"author_fullname,omitempty"`
	SecureMedia    SecureMedia `json:"secure_media" validate:"required"`
	URL            string      `json:"url" validate:"required,url"`
}

// MergeRequest is the body of POST /merge
type MergeRequest struct {
	Videos []VideoInput `json:"videos" validate:"required,min=1,dive"`
}

// MergeResponse is the terminal result of a merge, both for the synchronous
// endpoint and as the stored result of an async job.
type MergeResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	OutputFile string `json:"output_file,omitempty"`
	VideoCount int    `json:"video_count,omitempty"`
}

// MergeStartResponse is returned when an async merge is queued
type MergeStartResponse struct {
	JobID     string    `json:"jobId"`
	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// MergeStatusResponse reports the state of an async merge job
type MergeStatusResponse struct {
	JobID       string     `json:"jobId"`
	Status      JobStatus  `json:"status"`
	Progress    int        `json:"progress"`
	CurrentStep string     `json:"currentStep,omitempty"`
	Error       *string    `json:"error"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt"`
}
