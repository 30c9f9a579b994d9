package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/sonolens/api/internal/client"
	"github.com/sonolens/api/internal/model"
	"github.com/sonolens/api/internal/service"
	"github.com/sonolens/api/internal/store"
)

type fakeNotifier struct {
	mu       sync.Mutex
	steps    []string
	complete []*model.CreatePlaylistResponse
	errors   []string
}

func (f *fakeNotifier) BroadcastProgress(_ string, _ int, _ model.JobStatus, step string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.steps = append(f.steps, step)
}

func (f *fakeNotifier) BroadcastComplete(_ string, result *model.CreatePlaylistResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.complete = append(f.complete, result)
}

func (f *fakeNotifier) BroadcastError(_ string, code, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, code+": "+message)
}

type fakeCreator struct {
	token string
	err   error

	// addErrs fail the track step of successive attempts
	addErrs  []error
	creates  int
	existing []*model.SpotifyPlaylist
}

func (f *fakeCreator) Save(_ context.Context, _, token string, _ *model.CreatePlaylistRequest, opts service.SaveOptions) (*model.CreatePlaylistResponse, error) {
	f.token = token
	f.existing = append(f.existing, opts.Existing)

	playlist := opts.Existing
	if playlist == nil {
		f.creates++
		playlist = &model.SpotifyPlaylist{ID: "pl1", Name: "t"}
		if opts.OnCreated != nil {
			if err := opts.OnCreated(playlist); err != nil {
				return nil, err
			}
		}
	}

	opts.Progress(50, service.StepAddTracks)
	if len(f.addErrs) > 0 {
		err := f.addErrs[0]
		f.addErrs = f.addErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &model.CreatePlaylistResponse{
		Playlist:    model.PlaylistSummary{ID: playlist.ID},
		TracksAdded: 2,
	}, nil
}

func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 13})

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		t.Skipf("redis not available: %v", err)
	}

	t.Cleanup(func() {
		rdb.FlushDB(context.Background())
		rdb.Close()
	})
	return rdb
}

func seedJob(t *testing.T, jobs *store.JobStore, id string) *asynq.Task {
	t.Helper()
	payload, _ := json.Marshal(model.PlaylistJobPayload{
		UserID:       "u1",
		SpotifyToken: "user-token",
		Request:      model.CreatePlaylistRequest{Title: "t", TrackURIs: []string{"spotify:track:1"}},
	})
	job := &model.Job{ID: id, Type: model.JobTypePlaylist, UserID: "u1", Status: model.JobStatusQueued, Payload: payload}
	if err := jobs.Save(context.Background(), job, time.Minute); err != nil {
		t.Fatalf("save job: %v", err)
	}
	data, _ := json.Marshal(service.PlaylistTask{JobID: id})
	return asynq.NewTask(service.TaskTypePlaylistCreate, data)
}

func TestPlaylistWorker_Success(t *testing.T) {
	jobs := store.NewJobStore(testRedis(t))
	creator := &fakeCreator{}
	notifier := &fakeNotifier{}
	w := NewPlaylistWorker(jobs, creator, notifier, log.New(io.Discard))

	task := seedJob(t, jobs, "job-ok")
	if err := w.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if creator.token != "user-token" {
		t.Errorf("expected caller token, got %q", creator.token)
	}
	job, err := jobs.Get(context.Background(), "job-ok")
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if job.Status != model.JobStatusSucceeded || job.Progress != 100 || job.CompletedAt == nil || job.StartedAt == nil {
		t.Errorf("unexpected job %+v", job)
	}
	if job.Payload != nil {
		t.Error("expected payload with token to be cleared")
	}

	var result model.CreatePlaylistResponse
	if err := json.Unmarshal(job.Result, &result); err != nil || result.Playlist.ID != "pl1" {
		t.Errorf("unexpected result %s (%v)", job.Result, err)
	}
	if len(notifier.complete) != 1 || len(notifier.steps) != 2 || notifier.steps[1] != service.StepAddTracks {
		t.Errorf("unexpected notifications %+v", notifier)
	}
}

func TestPlaylistWorker_FailureWithoutRetries(t *testing.T) {
	jobs := store.NewJobStore(testRedis(t))
	notifier := &fakeNotifier{}
	w := NewPlaylistWorker(jobs, &fakeCreator{err: errors.New("spotify down")}, notifier, log.New(io.Discard))

	task := seedJob(t, jobs, "job-fail")
	if err := w.ProcessTask(context.Background(), task); err == nil {
		t.Fatal("expected error")
	}

	job, _ := jobs.Get(context.Background(), "job-fail")
	if job.Status != model.JobStatusFailed || job.Error == nil {
		t.Errorf("expected failed job, got %+v", job)
	}
	if len(notifier.errors) != 1 {
		t.Errorf("expected one error broadcast, got %v", notifier.errors)
	}
}

func TestPlaylistWorker_UnauthorizedSkipsRetry(t *testing.T) {
	jobs := store.NewJobStore(testRedis(t))
	w := NewPlaylistWorker(jobs, &fakeCreator{err: &client.APIError{StatusCode: 401}}, &fakeNotifier{}, log.New(io.Discard))

	task := seedJob(t, jobs, "job-401")
	err := w.ProcessTask(context.Background(), task)
	if !errors.Is(err, asynq.SkipRetry) {
		t.Errorf("expected SkipRetry, got %v", err)
	}

	job, _ := jobs.Get(context.Background(), "job-401")
	if job.Status != model.JobStatusFailed || *job.Error != "Spotify session expired" {
		t.Errorf("unexpected job %+v", job)
	}
}

func TestPlaylistWorker_ExpiredJob(t *testing.T) {
	jobs := store.NewJobStore(testRedis(t))
	w := NewPlaylistWorker(jobs, &fakeCreator{}, &fakeNotifier{}, log.New(io.Discard))

	data, _ := json.Marshal(service.PlaylistTask{JobID: "gone"})
	err := w.ProcessTask(context.Background(), asynq.NewTask(service.TaskTypePlaylistCreate, data))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Errorf("expected SkipRetry, got %v", err)
	}
}

func TestPlaylistWorker_BadTask(t *testing.T) {
	w := NewPlaylistWorker(store.NewJobStore(nil), &fakeCreator{}, &fakeNotifier{}, log.New(io.Discard))

	err := w.ProcessTask(context.Background(), asynq.NewTask(service.TaskTypePlaylistCreate, []byte("{")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Errorf("expected SkipRetry, got %v", err)
	}
}

func TestPlaylistWorker_RetryReusesCreatedPlaylist(t *testing.T) {
	jobs := store.NewJobStore(testRedis(t))
	creator := &fakeCreator{addErrs: []error{errors.New("spotify 503")}}
	notifier := &fakeNotifier{}
	w := NewPlaylistWorker(jobs, creator, notifier, log.New(io.Discard))
	w.willRetry = func(context.Context) bool { return true }

	task := seedJob(t, jobs, "job-retry")
	if err := w.ProcessTask(context.Background(), task); err == nil {
		t.Fatal("expected the first attempt to fail")
	}

	job, err := jobs.Get(context.Background(), "job-retry")
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if job.Status != model.JobStatusQueued || job.RetryCount != 1 {
		t.Errorf("expected queued retry, got %+v", job)
	}
	var payload model.PlaylistJobPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil || payload.Playlist == nil || payload.Playlist.ID != "pl1" {
		t.Fatalf("expected created playlist in payload, got %s (%v)", job.Payload, err)
	}

	if err := w.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("retry failed: %v", err)
	}

	if creator.creates != 1 {
		t.Errorf("expected one playlist created across attempts, got %d", creator.creates)
	}
	if len(creator.existing) != 2 || creator.existing[1] == nil || creator.existing[1].ID != "pl1" {
		t.Errorf("expected the retry to reuse pl1, got %v", creator.existing)
	}
	job, _ = jobs.Get(context.Background(), "job-retry")
	if job.Status != model.JobStatusSucceeded || job.Payload != nil {
		t.Errorf("expected succeeded job without payload, got %+v", job)
	}
}
