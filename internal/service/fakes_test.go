package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/sonolens/api/internal/client"
	"github.com/sonolens/api/internal/model"
	"github.com/sonolens/api/internal/store"
)

func discardLogger() *log.Logger {
	return log.New(io.Discard)
}

func noCache() *store.Cache {
	return store.NewCache(nil, time.Hour, time.Hour, discardLogger())
}

type fakeVision struct {
	configured bool
	answer     string
	err        error

	mu    sync.Mutex
	calls int
	mime  string
}

func (f *fakeVision) AnalyzeImage(_ context.Context, _, mimeType, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.mime = mimeType
	return f.answer, f.err
}

func (f *fakeVision) IsConfigured() bool {
	return f.configured
}

type fakeStorage struct {
	url       string
	err       error
	signErr   error
	keys      []string
	deleted   []string
	signedTTL time.Duration
}

func (f *fakeStorage) PutImage(_ context.Context, key string, _ []byte, _ string) (string, error) {
	f.keys = append(f.keys, key)
	return f.url, f.err
}

func (f *fakeStorage) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeStorage) SignedURL(_ context.Context, key string, expiry time.Duration) (string, error) {
	f.signedTTL = expiry
	if f.signErr != nil {
		return "", f.signErr
	}
	return "https://signed.example.com/" + key, nil
}

func (f *fakeStorage) PublicURL(key string) string { return f.url }

// fakeSpotify answers from the configured maps and funcs; unset calls return zero values
type fakeSpotify struct {
	mu sync.Mutex

	tracksByName  map[string]*model.Track
	trackErrs     map[string]error
	artistsByName map[string]string
	artistLookup  func(name string) (string, error)
	genreSeeds    []string
	genreSeedsErr error
	user          *model.SpotifyUser
	userErr       error

	searchTracks    func(query string, limit int) ([]model.Track, error)
	genreSearch     func(genres []string, limit int) ([]model.Track, error)
	recommendations func(req client.RecommendationsRequest) ([]model.Track, error)
	createPlaylist  func(userID, name, description string, public bool) (*model.SpotifyPlaylist, error)
	addTracksErr    error
	uploadCoverErr  error

	topArtists []model.SpotifyArtist
	topTracks  []model.Track
	recent     []model.PlayHistory
	topErr     error

	trackLookups    []string
	genreSeedCalls  int
	recommendCalls  []client.RecommendationsRequest
	addedURIs       []string
	coverUploads    int
	createdPlaylist []string
}

func (f *fakeSpotify) SearchTracks(_ context.Context, _, query string, limit int, _ string) ([]model.Track, error) {
	if f.searchTracks == nil {
		return []model.Track{}, nil
	}
	return f.searchTracks(query, limit)
}

func (f *fakeSpotify) SearchTrack(_ context.Context, _, name string) (*model.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trackLookups = append(f.trackLookups, name)
	if err := f.trackErrs[name]; err != nil {
		return nil, err
	}
	return f.tracksByName[name], nil
}

func (f *fakeSpotify) SearchArtistID(_ context.Context, _, name string) (string, error) {
	if f.artistLookup != nil {
		return f.artistLookup(name)
	}
	return f.artistsByName[name], nil
}

func (f *fakeSpotify) SearchTracksByGenres(_ context.Context, _ string, genres []string, limit int, _ string) ([]model.Track, error) {
	if f.genreSearch == nil {
		return []model.Track{}, nil
	}
	return f.genreSearch(genres, limit)
}

func (f *fakeSpotify) Recommendations(_ context.Context, _ string, req client.RecommendationsRequest) ([]model.Track, error) {
	f.mu.Lock()
	f.recommendCalls = append(f.recommendCalls, req)
	f.mu.Unlock()
	if f.recommendations == nil {
		return []model.Track{}, nil
	}
	return f.recommendations(req)
}

func (f *fakeSpotify) GenreSeeds(context.Context, string) ([]string, error) {
	f.mu.Lock()
	f.genreSeedCalls++
	f.mu.Unlock()
	return f.genreSeeds, f.genreSeedsErr
}

func (f *fakeSpotify) CurrentUser(context.Context, string) (*model.SpotifyUser, error) {
	if f.userErr != nil {
		return nil, f.userErr
	}
	if f.user == nil {
		return &model.SpotifyUser{ID: "spotify-user"}, nil
	}
	return f.user, nil
}

func (f *fakeSpotify) TopArtists(context.Context, string, string, int) ([]model.SpotifyArtist, error) {
	return f.topArtists, f.topErr
}

func (f *fakeSpotify) TopTracks(context.Context, string, string, int) ([]model.Track, error) {
	return f.topTracks, nil
}

func (f *fakeSpotify) RecentlyPlayed(context.Context, string, int) ([]model.PlayHistory, error) {
	return f.recent, nil
}

func (f *fakeSpotify) CreatePlaylist(_ context.Context, _, userID, name, description string, public bool) (*model.SpotifyPlaylist, error) {
	f.createdPlaylist = append(f.createdPlaylist, userID, name, description)
	if f.createPlaylist != nil {
		return f.createPlaylist(userID, name, description, public)
	}
	return &model.SpotifyPlaylist{
		ID:           "pl1",
		Name:         name,
		URI:          "spotify:playlist:pl1",
		ExternalURLs: model.ExternalURLs{Spotify: "https://open.spotify.com/playlist/pl1"},
	}, nil
}

func (f *fakeSpotify) AddTracks(_ context.Context, _, _ string, uris []string) (int, error) {
	if f.addTracksErr != nil {
		return 0, f.addTracksErr
	}
	f.addedURIs = append(f.addedURIs, uris...)
	return len(uris), nil
}

func (f *fakeSpotify) UploadCover(context.Context, string, string, string) error {
	f.coverUploads++
	return f.uploadCoverErr
}

type fakeHistory struct {
	records []model.PlaylistRecord
	err     error
}

func (f *fakeHistory) Record(_ context.Context, rec *model.PlaylistRecord) error {
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, *rec)
	return nil
}

func (f *fakeHistory) ListByUser(_ context.Context, userID string, _, _ int) ([]model.PlaylistRecord, int64, error) {
	var out []model.PlaylistRecord
	for _, r := range f.records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, int64(len(out)), f.err
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "task-1", Queue: QueuePlaylists}, nil
}

func track(id, name string) *model.Track {
	return &model.Track{ID: id, Name: name, URI: "spotify:track:" + id}
}

// testRedis returns a client on a scratch database, skipping when no local redis answers
func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 14})

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
