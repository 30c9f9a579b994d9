package model

// JobEventType tags every frame on the /ws/jobs/:jobId socket
type JobEventType string

const (
	JobEventProgress JobEventType = "progress"
	JobEventComplete JobEventType = "complete"
	JobEventError    JobEventType = "error"
	JobEventPing     JobEventType = "ping"
	JobEventPong     JobEventType = "pong"
)

// JobEvent is the single frame shape exchanged with job subscribers. Which
// optional fields are set depends on Type.
type JobEvent struct {
	Type  JobEventType `json:"type"`
	JobID string       `json:"jobId,omitempty"`

	// progress
	Progress    int       `json:"progress,omitempty"`
	Status      JobStatus `json:"status,omitempty"`
	CurrentStep string    `json:"currentStep,omitempty"`

	// complete
	Result *CreatePlaylistResponse `json:"result,omitempty"`

	// error
	Error *JobErrorBody `json:"error,omitempty"`
}

type JobErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
