package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != "8000" {
		t.Errorf("expected port 8000, got %q", cfg.Server.Port)
	}
	if cfg.LLM.BaseURL != "https://api.openai.com/v1" || cfg.LLM.Model != "gpt-4o" {
		t.Errorf("unexpected llm defaults: %+v", cfg.LLM)
	}
	if cfg.LLM.Timeout != 60*time.Second {
		t.Errorf("expected llm timeout 60s, got %v", cfg.LLM.Timeout)
	}
	if cfg.Spotify.MaxRetries != 3 || cfg.Spotify.RetryBackoff != 500*time.Millisecond {
		t.Errorf("unexpected retry defaults: %+v", cfg.Spotify)
	}
	if cfg.Spotify.MaxRetryWait != 30*time.Second {
		t.Errorf("expected max retry wait 30s, got %v", cfg.Spotify.MaxRetryWait)
	}
	if cfg.R2.SignedURLTTL != 0 {
		t.Errorf("expected public image urls by default, got ttl %v", cfg.R2.SignedURLTTL)
	}
	if cfg.Spotify.LookupBatchSize != 5 {
		t.Errorf("expected lookup batch size 5, got %d", cfg.Spotify.LookupBatchSize)
	}
	if cfg.RateLimit.AnalyzePerHour != 30 || cfg.RateLimit.SearchPerMin != 60 {
		t.Errorf("unexpected rate limits: %+v", cfg.RateLimit)
	}
	if cfg.Database.Path != "sonolens.db" {
		t.Errorf("expected sonolens.db, got %q", cfg.Database.Path)
	}
	if cfg.Cache.AnalysisTTL != 24*time.Hour {
		t.Errorf("expected 24h analysis ttl, got %v", cfg.Cache.AnalysisTTL)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SERVER_PORT", "9100")
	t.Setenv("SPOTIFY_LOOKUP_BATCH_SIZE", "8")
	t.Setenv("GATEWAY_ENABLED", "true")
	t.Setenv("SPOTIFY_MAX_RETRY_WAIT_S", "5")
	t.Setenv("R2_SIGNED_URL_TTL_MINUTES", "15")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != "9100" {
		t.Errorf("expected port 9100, got %q", cfg.Server.Port)
	}
	if cfg.Spotify.LookupBatchSize != 8 {
		t.Errorf("expected batch size 8, got %d", cfg.Spotify.LookupBatchSize)
	}
	if !cfg.Gateway.Enabled {
		t.Error("expected gateway to be enabled")
	}
	if cfg.Spotify.MaxRetryWait != 5*time.Second || cfg.R2.SignedURLTTL != 15*time.Minute {
		t.Errorf("unexpected overrides: max wait %v, signed ttl %v", cfg.Spotify.MaxRetryWait, cfg.R2.SignedURLTTL)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	yaml := "spotify:\n  requests_per_second: 2.5\ndatabase:\n  path: ':memory:'\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Spotify.RequestsPerSecond != 2.5 {
		t.Errorf("expected 2.5 rps, got %v", cfg.Spotify.RequestsPerSecond)
	}
	if cfg.Database.Path != ":memory:" {
		t.Errorf("expected :memory:, got %q", cfg.Database.Path)
	}
}

func TestReadSecret(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret")
	if err := os.WriteFile(path, []byte("  s3cret\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("LLM_API_KEY", "")
	t.Setenv("LLM_API_KEY_FILE", path)

	readSecret("LLM_API_KEY")
	if got := os.Getenv("LLM_API_KEY"); got != "s3cret" {
		t.Errorf("expected secret from file, got %q", got)
	}

	t.Setenv("LLM_API_KEY", "direct")
	readSecret("LLM_API_KEY")
	if got := os.Getenv("LLM_API_KEY"); got != "direct" {
		t.Errorf("expected direct value to win, got %q", got)
	}
}

func TestSpotifyConfig_HasClientCredentials(t *testing.T) {
	if (SpotifyConfig{ClientID: "id"}).HasClientCredentials() {
		t.Error("expected false without secret")
	}
	if !(SpotifyConfig{ClientID: "id", ClientSecret: "s"}).HasClientCredentials() {
		t.Error("expected true with id and secret")
	}
}

// chdir changes the working directory for the duration of the test
// (equivalent to testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
