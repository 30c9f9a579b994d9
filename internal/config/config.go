package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	filePath := os.Getenv(envKey + "_FILE")
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	os.Setenv(envKey, strings.TrimSpace(string(data)))
}

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	JWT       JWTConfig
	OIDC      OIDCConfig
	Gateway   GatewayConfig
	RateLimit RateLimitConfig
	LLM       LLMConfig
	Spotify   SpotifyConfig
	R2        R2Config
	Database  DatabaseConfig
	Cache     CacheConfig
	Worker    WorkerConfig
}

type ServerConfig struct {
	Port      string
	Env       string
	LogLevel  string
	ApiDomain string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration int // hours
}

type OIDCConfig struct {
	Issuer   string
	ClientID string
}

type GatewayConfig struct {
	Enabled bool
}

type RateLimitConfig struct {
	AnalyzePerHour  int
	RecommendPerMin int
	SearchPerMin    int
	PlaylistPerHour int
}

type LLMConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

type SpotifyConfig struct {
	ClientID          string
	ClientSecret      string
	APIBaseURL        string
	TokenURL          string
	RequestsPerSecond float64
	MaxRetries        int
	RetryBackoff      time.Duration
	MaxRetryWait      time.Duration
	LookupBatchSize   int
	Timeout           time.Duration
}

// HasClientCredentials reports whether an app token can be minted for catalog calls
func (s SpotifyConfig) HasClientCredentials() bool {
	return s.ClientID != "" && s.ClientSecret != ""
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
	// SignedURLTTL > 0 serves images through presigned links
	SignedURLTTL    time.Duration
}

type DatabaseConfig struct {
	Path string
}

type CacheConfig struct {
	AnalysisTTL   time.Duration
	GenreSeedsTTL time.Duration
}

type WorkerConfig struct {
	Concurrency int
}

var envBindings = map[string]string{
	"server.port":                 "SERVER_PORT",
	"server.env":                  "SERVER_ENV",
	"server.log_level":            "LOG_LEVEL",
	"server.api_domain":           "API_DOMAIN",
	"redis.addr":                  "REDIS_ADDR",
	"redis.password":              "REDIS_PASSWORD",
	"redis.db":                    "REDIS_DB",
	"jwt.secret":                  "JWT_SECRET",
	"jwt.expiration":              "JWT_EXPIRATION",
	"oidc.issuer":                 "OIDC_ISSUER",
	"oidc.client_id":              "OIDC_CLIENT_ID",
	"gateway.enabled":             "GATEWAY_ENABLED",
	"ratelimit.analyze_per_hour":  "RATELIMIT_ANALYZE_PER_HOUR",
	"ratelimit.recommend_per_min": "RATELIMIT_RECOMMEND_PER_MIN",
	"ratelimit.search_per_min":    "RATELIMIT_SEARCH_PER_MIN",
	"ratelimit.playlist_per_hour": "RATELIMIT_PLAYLIST_PER_HOUR",
	"llm.api_key":                 "LLM_API_KEY",
	"llm.base_url":                "LLM_BASE_URL",
	"llm.model":                   "LLM_MODEL",
	"llm.max_tokens":              "LLM_MAX_TOKENS",
	"llm.timeout":                 "LLM_TIMEOUT",
	"spotify.client_id":           "SPOTIFY_CLIENT_ID",
	"spotify.client_secret":       "SPOTIFY_CLIENT_SECRET",
	"spotify.api_base_url":        "SPOTIFY_API_BASE_URL",
	"spotify.token_url":           "SPOTIFY_TOKEN_URL",
	"spotify.requests_per_second": "SPOTIFY_REQUESTS_PER_SECOND",
	"spotify.max_retries":         "SPOTIFY_MAX_RETRIES",
	"spotify.retry_backoff_ms":    "SPOTIFY_RETRY_BACKOFF_MS",
	"spotify.max_retry_wait_s":    "SPOTIFY_MAX_RETRY_WAIT_S",
	"spotify.lookup_batch_size":   "SPOTIFY_LOOKUP_BATCH_SIZE",
	"spotify.timeout":             "SPOTIFY_TIMEOUT",
	"r2.account_id":               "R2_ACCOUNT_ID",
	"r2.access_key_id":            "R2_ACCESS_KEY_ID",
	"r2.secret_access_key":        "R2_SECRET_ACCESS_KEY",
	"r2.bucket_name":              "R2_BUCKET_NAME",
	"r2.public_url":               "R2_PUBLIC_URL",
	"r2.signed_url_ttl_minutes":   "R2_SIGNED_URL_TTL_MINUTES",
	"database.path":               "DATABASE_PATH",
	"cache.analysis_ttl_hours":    "CACHE_ANALYSIS_TTL_HOURS",
	"cache.genre_seeds_ttl_hours": "CACHE_GENRE_SEEDS_TTL_HOURS",
	"worker.concurrency":          "WORKER_CONCURRENCY",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.expiration", 24)
	v.SetDefault("gateway.enabled", false)

	v.SetDefault("ratelimit.analyze_per_hour", 30)
	v.SetDefault("ratelimit.recommend_per_min", 20)
	v.SetDefault("ratelimit.search_per_min", 60)
	v.SetDefault("ratelimit.playlist_per_hour", 20)

	// LLM defaults
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-4o")
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.timeout", 60) // seconds

	// Spotify defaults
	v.SetDefault("spotify.api_base_url", "https://api.spotify.com/v1")
	v.SetDefault("spotify.token_url", "https://accounts.spotify.com/api/token")
	v.SetDefault("spotify.requests_per_second", 10)
	v.SetDefault("spotify.max_retries", 3)
	v.SetDefault("spotify.retry_backoff_ms", 500)
	v.SetDefault("spotify.max_retry_wait_s", 30)
	v.SetDefault("spotify.lookup_batch_size", 5)
	v.SetDefault("spotify.timeout", 15) // seconds

	v.SetDefault("database.path", "sonolens.db")
	v.SetDefault("cache.analysis_ttl_hours", 24)
	v.SetDefault("cache.genre_seeds_ttl_hours", 24)
	v.SetDefault("worker.concurrency", 5)
}

// Load reads configuration from defaults, an optional config.yaml in . or
// ./config, and environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	for _, key := range []string{
		"REDIS_PASSWORD", "JWT_SECRET", "LLM_API_KEY", "SPOTIFY_CLIENT_ID", "SPOTIFY_CLIENT_SECRET",
		"R2_ACCOUNT_ID", "R2_ACCESS_KEY_ID", "R2_SECRET_ACCESS_KEY", "OIDC_CLIENT_ID",
	} {
		readSecret(key)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}
	setDefaults(v)

	// Try to read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port:      v.GetString("server.port"),
			Env:       v.GetString("server.env"),
			LogLevel:  v.GetString("server.log_level"),
			ApiDomain: v.GetString("server.api_domain"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:     v.GetString("jwt.secret"),
			Expiration: v.GetInt("jwt.expiration"),
		},
		OIDC: OIDCConfig{
			Issuer:   v.GetString("oidc.issuer"),
			ClientID: v.GetString("oidc.client_id"),
		},
		Gateway: GatewayConfig{
			Enabled: v.GetBool("gateway.enabled"),
		},
		RateLimit: RateLimitConfig{
			AnalyzePerHour:  v.GetInt("ratelimit.analyze_per_hour"),
			RecommendPerMin: v.GetInt("ratelimit.recommend_per_min"),
			SearchPerMin:    v.GetInt("ratelimit.search_per_min"),
			PlaylistPerHour: v.GetInt("ratelimit.playlist_per_hour"),
		},
		LLM: LLMConfig{
			APIKey:    v.GetString("llm.api_key"),
			BaseURL:   v.GetString("llm.base_url"),
			Model:     v.GetString("llm.model"),
			MaxTokens: v.GetInt("llm.max_tokens"),
			Timeout:   time.Duration(v.GetInt("llm.timeout")) * time.Second,
		},
		Spotify: SpotifyConfig{
			ClientID:          v.GetString("spotify.client_id"),
			ClientSecret:      v.GetString("spotify.client_secret"),
			APIBaseURL:        v.GetString("spotify.api_base_url"),
			TokenURL:          v.GetString("spotify.token_url"),
			RequestsPerSecond: v.GetFloat64("spotify.requests_per_second"),
			MaxRetries:        v.GetInt("spotify.max_retries"),
			RetryBackoff:      time.Duration(v.GetInt("spotify.retry_backoff_ms")) * time.Millisecond,
			MaxRetryWait:      time.Duration(v.GetInt("spotify.max_retry_wait_s")) * time.Second,
			LookupBatchSize:   v.GetInt("spotify.lookup_batch_size"),
			Timeout:           time.Duration(v.GetInt("spotify.timeout")) * time.Second,
		},
		R2: R2Config{
			AccountID:       v.GetString("r2.account_id"),
			AccessKeyID:     v.GetString("r2.access_key_id"),
			SecretAccessKey: v.GetString("r2.secret_access_key"),
			BucketName:      v.GetString("r2.bucket_name"),
			PublicURL:       v.GetString("r2.public_url"),
			SignedURLTTL:    time.Duration(v.GetInt("r2.signed_url_ttl_minutes")) * time.Minute,
		},
		Database: DatabaseConfig{
			Path: v.GetString("database.path"),
		},
		Cache: CacheConfig{
			AnalysisTTL:   time.Duration(v.GetInt("cache.analysis_ttl_hours")) * time.Hour,
			GenreSeedsTTL: time.Duration(v.GetInt("cache.genre_seeds_ttl_hours")) * time.Hour,
		},
		Worker: WorkerConfig{
			Concurrency: v.GetInt("worker.concurrency"),
		},
	}
}
