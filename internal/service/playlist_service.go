package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/sonolens/api/internal/model"
	"github.com/sonolens/api/internal/store"
)

// JobTTL bounds how long a playlist job, and the Spotify token inside it, is kept
const JobTTL = time.Hour

const playlistTaskRetries = 2

// Progress steps of a playlist save
const (
	StepFetchProfile   = "Fetching Spotify profile"
	StepCreatePlaylist = "Creating playlist"
	StepAddTracks      = "Adding tracks"
	StepUploadCover    = "Uploading cover image"
	StepRecordHistory  = "Saving to history"
)

// ProgressFunc receives the percentage and name of the step about to run
type ProgressFunc func(progress int, step string)

// TaskEnqueuer is satisfied by *asynq.Client
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// PlaylistService saves playlists to Spotify, directly or through a background job
type PlaylistService struct {
	spotify  SpotifyAPI
	history  PlaylistHistory
	jobs     *store.JobStore
	enqueuer TaskEnqueuer
	logger   *log.Logger
}

// NewPlaylistService creates the service. history and enqueuer may be nil.
func NewPlaylistService(spotify SpotifyAPI, history PlaylistHistory, jobs *store.JobStore, enqueuer TaskEnqueuer, logger *log.Logger) *PlaylistService {
	return &PlaylistService{
		spotify:  spotify,
		history:  history,
		jobs:     jobs,
		enqueuer: enqueuer,
		logger:   logger,
	}
}

// SaveOptions tunes a playlist save. The zero value creates a new playlist
// without reporting progress.
type SaveOptions struct {
	Progress ProgressFunc
	// Existing is a playlist an earlier attempt of the same save created.
	// It is filled instead of creating another one.
	Existing *model.SpotifyPlaylist
	// OnCreated runs once a new playlist exists on Spotify, before any track
	// is added. An error aborts the save.
	OnCreated func(*model.SpotifyPlaylist) error
}

// Create saves the playlist, reporting each step to progress when it is non-nil
func (s *PlaylistService) Create(ctx context.Context, userID, token string, req *model.CreatePlaylistRequest, progress ProgressFunc) (*model.CreatePlaylistResponse, error) {
	return s.Save(ctx, userID, token, req, SaveOptions{Progress: progress})
}

// Save runs profile, create, add tracks, cover and history. With
// opts.Existing set it skips straight to adding tracks.
func (s *PlaylistService) Save(ctx context.Context, userID, token string, req *model.CreatePlaylistRequest, opts SaveOptions) (*model.CreatePlaylistResponse, error) {
	progress := opts.Progress
	if progress == nil {
		progress = func(int, string) {}
	}

	playlist := opts.Existing
	if playlist == nil {
		created, err := s.createPlaylist(ctx, token, req, progress)
		if err != nil {
			return nil, err
		}
		if opts.OnCreated != nil {
			if err := opts.OnCreated(created); err != nil {
				return nil, fmt.Errorf("record created playlist %s: %w", created.ID, err)
			}
		}
		playlist = created
	}

	progress(50, StepAddTracks)
	added, err := s.spotify.AddTracks(ctx, token, playlist.ID, req.TrackURIs)
	if err != nil {
		return nil, fmt.Errorf("add tracks: %w", err)
	}

	coverUploaded := false
	if req.CoverImage != "" {
		progress(75, StepUploadCover)
		if err := s.spotify.UploadCover(ctx, token, playlist.ID, req.CoverImage); err != nil {
			s.logger.Warn("failed to upload playlist cover", "playlist", playlist.ID, "err", err)
		} else {
			coverUploaded = true
		}
	}

	resp := &model.CreatePlaylistResponse{
		Playlist: model.PlaylistSummary{
			ID:   playlist.ID,
			Name: playlist.Name,
			URL:  playlist.ExternalURLs.Spotify,
			URI:  playlist.URI,
		},
		CoverUploaded: coverUploaded,
		TracksAdded:   added,
	}

	progress(90, StepRecordHistory)
	s.record(ctx, userID, req, resp)

	return resp, nil
}

func (s *PlaylistService) createPlaylist(ctx context.Context, token string, req *model.CreatePlaylistRequest, progress ProgressFunc) (*model.SpotifyPlaylist, error) {
	progress(10, StepFetchProfile)
	user, err := s.spotify.CurrentUser(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	description := req.Description
	if description == "" {
		description = model.DefaultPlaylistDescription
	}

	progress(25, StepCreatePlaylist)
	playlist, err := s.spotify.CreatePlaylist(ctx, token, user.ID, req.Title, description, req.Public())
	if err != nil {
		return nil, fmt.Errorf("create playlist: %w", err)
	}
	return playlist, nil
}

func (s *PlaylistService) record(ctx context.Context, userID string, req *model.CreatePlaylistRequest, resp *model.CreatePlaylistResponse) {
	if s.history == nil {
		return
	}

	rec := &model.PlaylistRecord{
		UserID:            userID,
		SpotifyPlaylistID: resp.Playlist.ID,
		Name:              resp.Playlist.Name,
		URL:               resp.Playlist.URL,
		URI:               resp.Playlist.URI,
		TrackCount:        resp.TracksAdded,
		ImageURL:          req.ImageURL,
	}
	if req.MoodAnalysis != nil {
		rec.MoodTags = req.MoodAnalysis.MoodTags
		rec.EnergyLevel = req.MoodAnalysis.EnergyLevel
	}

	if err := s.history.Record(ctx, rec); err != nil {
		s.logger.Warn("failed to record playlist history", "playlist", resp.Playlist.ID, "err", err)
	}
}

// Enqueue stores a playlist job and queues it for the worker
func (s *PlaylistService) Enqueue(ctx context.Context, userID, token string, req *model.CreatePlaylistRequest) (*model.CreatePlaylistAsyncResponse, error) {
	if !s.jobs.Available() || s.enqueuer == nil {
		return nil, fmt.Errorf("%w: job queue", ErrNotConfigured)
	}

	payload, err := json.Marshal(model.PlaylistJobPayload{
		UserID:       userID,
		SpotifyToken: token,
		Request:      *req,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	job := &model.Job{
		ID:        uuid.New().String(),
		Type:      model.JobTypePlaylist,
		UserID:    userID,
		Status:    model.JobStatusQueued,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
	if err := s.jobs.Save(ctx, job, JobTTL); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	task, err := newPlaylistTask(job.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	_, err = s.enqueuer.EnqueueContext(ctx, task,
		asynq.Queue(QueuePlaylists),
		asynq.MaxRetry(playlistTaskRetries),
		asynq.Retention(JobTTL),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	return &model.CreatePlaylistAsyncResponse{
		JobID:  job.ID,
		Status: model.JobStatusQueued,
	}, nil
}

// Status returns the public view of a job owned by userID
func (s *PlaylistService) Status(ctx context.Context, userID, jobID string) (*model.JobStatusResponse, error) {
	job, err := s.ownedJob(ctx, userID, jobID)
	if err != nil {
		return nil, err
	}

	return &model.JobStatusResponse{
		JobID:       job.ID,
		Type:        job.Type,
		Status:      job.Status,
		Progress:    job.Progress,
		CurrentStep: job.CurrentStep,
		Error:       job.Error,
	}, nil
}

// Result returns the saved playlist of a succeeded job
func (s *PlaylistService) Result(ctx context.Context, userID, jobID string) (*model.CreatePlaylistResponse, error) {
	job, err := s.ownedJob(ctx, userID, jobID)
	if err != nil {
		return nil, err
	}

	if job.Status != model.JobStatusSucceeded {
		return nil, ErrJobNotCompleted
	}

	var result model.CreatePlaylistResponse
	if err := json.Unmarshal(job.Result, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return &result, nil
}

func (s *PlaylistService) ownedJob(ctx context.Context, userID, jobID string) (*model.Job, error) {
	if !s.jobs.Available() {
		return nil, fmt.Errorf("%w: job store", ErrNotConfigured)
	}
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.UserID != userID {
		return nil, ErrJobForbidden
	}
	return job, nil
}

// History lists the user's saved playlists, newest first
func (s *PlaylistService) History(ctx context.Context, userID string, limit, offset int) (*model.PlaylistHistoryResponse, error) {
	if s.history == nil {
		return nil, fmt.Errorf("%w: playlist history", ErrNotConfigured)
	}

	records, total, err := s.history.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []model.PlaylistRecord{}
	}
	return &model.PlaylistHistoryResponse{Playlists: records, Total: total}, nil
}
