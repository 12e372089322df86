package model

import "time"

// Job represents a background merge job in the system
type Job struct {
	ID          string     `json:"id"`
	Status      JobStatus  `json:"status"`
	Progress    int        `json:"progress"`
	CurrentStep string     `json:"currentStep,omitempty"`
	Error       *string    `json:"error,omitempty"`
	Payload     []byte     `json:"payload,omitempty"` // JSON-encoded MergeJobPayload
	Result      []byte     `json:"result,omitempty"`  // JSON-encoded MergeResponse
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// MergeJobPayload contains the data for an async merge job
type MergeJobPayload struct {
	Videos []VideoInput `json:"videos"`
}
