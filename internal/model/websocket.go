package model

// Message types pushed to merge-job subscribers
const (
	WSMessageTypeProgress = "progress"
	WSMessageTypeComplete = "complete"
	WSMessageTypeError    = "error"
	WSMessageTypePing     = "ping"
	WSMessageTypePong     = "pong"
)

// WSMessage is the envelope for client-sent frames (ping/pong keep-alive)
type WSMessage struct {
	Type string `json:"type"`
}

// WSProgressMessage reports pipeline progress for one merge job: which
// download/encode step is running and how far along the job is.
type WSProgressMessage struct {
	Type        string    `json:"type"`
	JobID       string    `json:"jobId"`
	Progress    int       `json:"progress"`
	Status      JobStatus `json:"status"`
	CurrentStep string    `json:"currentStep,omitempty"`
}

// WSCompleteMessage carries the finished merge result, including the
// output filename subscribers need for the download endpoint.
type WSCompleteMessage struct {
	Type   string         `json:"type"`
	JobID  string         `json:"jobId"`
	Result *MergeResponse `json:"result"`
}

// WSErrorMessage reports a failed merge job
type WSErrorMessage struct {
	Type  string  `json:"type"`
	JobID string  `json:"jobId"`
	Error WSError `json:"error"`
}

// WSError carries the failure code and the diagnostic message
type WSError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
