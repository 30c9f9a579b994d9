package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hibiken/asynq"

	"github.com/sonolens/api/internal/client"
	"github.com/sonolens/api/internal/model"
	"github.com/sonolens/api/internal/service"
	"github.com/sonolens/api/internal/store"
)

// JobFailedCode is the error code subscribers receive when a job gives up
const JobFailedCode = "JOB_FAILED"

// Notifier pushes job updates to live subscribers
type Notifier interface {
	BroadcastProgress(jobID string, progress int, status model.JobStatus, step string)
	BroadcastComplete(jobID string, result *model.CreatePlaylistResponse)
	BroadcastError(jobID string, code, message string)
}

// PlaylistCreator saves a playlist, reporting progress as it goes
type PlaylistCreator interface {
	Save(ctx context.Context, userID, token string, req *model.CreatePlaylistRequest, opts service.SaveOptions) (*model.CreatePlaylistResponse, error)
}

// PlaylistWorker processes playlist:create tasks
type PlaylistWorker struct {
	jobs      *store.JobStore
	playlists PlaylistCreator
	notifier  Notifier
	logger    *log.Logger

	// willRetry reports whether asynq runs the task again after a failure
	willRetry func(ctx context.Context) bool
}

func NewPlaylistWorker(jobs *store.JobStore, playlists PlaylistCreator, notifier Notifier, logger *log.Logger) *PlaylistWorker {
	return &PlaylistWorker{
		jobs:      jobs,
		playlists: playlists,
		notifier:  notifier,
		logger:    logger,
		willRetry: asynqWillRetry,
	}
}

// ProcessTask handles a playlist save task
func (w *PlaylistWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	task, err := service.ParsePlaylistTask(t)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	jobID := task.JobID
	w.logger.Info("starting playlist job", "job", jobID)

	job, err := w.jobs.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrJobNotFound) {
			return fmt.Errorf("job %s expired: %w", jobID, asynq.SkipRetry)
		}
		return fmt.Errorf("failed to load job %s: %w", jobID, err)
	}

	var payload model.PlaylistJobPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		w.failJob(ctx, jobID, "Invalid payload")
		return fmt.Errorf("failed to unmarshal playlist payload: %v: %w", err, asynq.SkipRetry)
	}

	w.updateJobStatus(ctx, jobID, model.JobStatusRunning, 0, "Starting")

	// created without checkpointed means a retry would create a second playlist
	var created, checkpointed bool
	result, err := w.playlists.Save(ctx, payload.UserID, payload.SpotifyToken, &payload.Request, service.SaveOptions{
		Progress: func(progress int, step string) {
			w.updateJobStatus(ctx, jobID, model.JobStatusRunning, progress, step)
		},
		Existing: payload.Playlist,
		OnCreated: func(playlist *model.SpotifyPlaylist) error {
			created = true
			if err := w.checkpoint(ctx, jobID, payload, playlist); err != nil {
				return err
			}
			checkpointed = true
			return nil
		},
	})
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			w.failJob(ctx, jobID, "Spotify session expired")
			return fmt.Errorf("playlist job %s: %v: %w", jobID, err, asynq.SkipRetry)
		}
		if created && !checkpointed {
			w.failJob(ctx, jobID, fmt.Sprintf("Failed to create playlist: %v", err))
			return fmt.Errorf("playlist job %s: %v: %w", jobID, err, asynq.SkipRetry)
		}
		if w.willRetry(ctx) {
			w.markRetry(ctx, jobID, err)
			return err
		}
		w.failJob(ctx, jobID, fmt.Sprintf("Failed to create playlist: %v", err))
		return err
	}

	w.completeJob(ctx, jobID, result)
	w.notifier.BroadcastComplete(jobID, result)

	w.logger.Info("playlist job completed", "job", jobID, "playlist", result.Playlist.ID, "tracks", result.TracksAdded)
	return nil
}

// checkpoint stores the created playlist in the job payload
func (w *PlaylistWorker) checkpoint(ctx context.Context, jobID string, payload model.PlaylistJobPayload, playlist *model.SpotifyPlaylist) error {
	payload.Playlist = playlist
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = w.jobs.Update(ctx, jobID, func(job *model.Job) {
		job.Payload = data
	})
	return err
}

func asynqWillRetry(ctx context.Context) bool {
	retried, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return false
	}
	maxRetry, ok := asynq.GetMaxRetry(ctx)
	if !ok {
		return false
	}
	return retried < maxRetry
}

func (w *PlaylistWorker) markRetry(ctx context.Context, jobID string, cause error) {
	_, err := w.jobs.Update(ctx, jobID, func(job *model.Job) {
		job.Status = model.JobStatusQueued
		job.RetryCount++
		job.CurrentStep = "Retrying"
	})
	if err != nil {
		w.logger.Error("failed to update job", "job", jobID, "err", err)
		return
	}
	w.logger.Warn("playlist job failed, will retry", "job", jobID, "err", cause)
	w.notifier.BroadcastProgress(jobID, 0, model.JobStatusQueued, "Retrying")
}

func (w *PlaylistWorker) updateJobStatus(ctx context.Context, jobID string, status model.JobStatus, progress int, step string) {
	_, err := w.jobs.Update(ctx, jobID, func(job *model.Job) {
		job.Status = status
		job.Progress = progress
		job.CurrentStep = step
		if status == model.JobStatusRunning && job.StartedAt == nil {
			now := time.Now()
			job.StartedAt = &now
		}
	})
	if err != nil {
		w.logger.Error("failed to update job", "job", jobID, "err", err)
	}
	w.notifier.BroadcastProgress(jobID, progress, status, step)
}

func (w *PlaylistWorker) completeJob(ctx context.Context, jobID string, result *model.CreatePlaylistResponse) {
	resultBytes, err := json.Marshal(result)
	if err != nil {
		w.logger.Error("failed to marshal job result", "job", jobID, "err", err)
		return
	}

	_, err = w.jobs.Update(ctx, jobID, func(job *model.Job) {
		now := time.Now()
		job.Status = model.JobStatusSucceeded
		job.Progress = 100
		job.CurrentStep = ""
		job.Result = resultBytes
		job.CompletedAt = &now
		// drops the caller's Spotify token
		job.Payload = nil
	})
	if err != nil {
		w.logger.Error("failed to update job", "job", jobID, "err", err)
	}
}

func (w *PlaylistWorker) failJob(ctx context.Context, jobID, errMsg string) {
	_, err := w.jobs.Update(ctx, jobID, func(job *model.Job) {
		now := time.Now()
		job.Status = model.JobStatusFailed
		job.Error = &errMsg
		job.CompletedAt = &now
		job.Payload = nil
	})
	if err != nil {
		w.logger.Error("failed to update job", "job", jobID, "err", err)
	}
	w.notifier.BroadcastError(jobID, JobFailedCode, errMsg)
}
