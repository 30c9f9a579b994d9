package service

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// Task types
const (
	TaskTypePlaylistCreate = "playlist:create"
)

// QueuePlaylists is the asynq queue playlist saves run on
const QueuePlaylists = "playlists"

// PlaylistTask is the asynq payload of a playlist save. It only names the job;
// the request and the caller's token stay in the short-lived job record.
type PlaylistTask struct {
	JobID string `json:"jobId"`
}

func newPlaylistTask(jobID string) (*asynq.Task, error) {
	data, err := json.Marshal(PlaylistTask{JobID: jobID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypePlaylistCreate, data), nil
}

// ParsePlaylistTask decodes the payload of a playlist:create task
func ParsePlaylistTask(t *asynq.Task) (*PlaylistTask, error) {
	var p PlaylistTask
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task payload: %w", err)
	}
	if p.JobID == "" {
		return nil, fmt.Errorf("task payload has no job id")
	}
	return &p, nil
}
