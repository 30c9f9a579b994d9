package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/sonolens/api/internal/auth"
	"github.com/sonolens/api/internal/client"
	"github.com/sonolens/api/internal/config"
	"github.com/sonolens/api/internal/handler"
	"github.com/sonolens/api/internal/logger"
	"github.com/sonolens/api/internal/middleware"
	"github.com/sonolens/api/internal/service"
	"github.com/sonolens/api/internal/store"
	ws "github.com/sonolens/api/internal/websocket"
	"github.com/sonolens/api/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", "err", err)
	}

	l := logger.New(os.Stderr, cfg.Server.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redis is optional: without it rate limits, caches and async jobs are off
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	var redisClient *redis.Client
	rc := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rc.Ping(ctx).Err(); err != nil {
		l.Warn("redis not available, async jobs and caching disabled", "addr", cfg.Redis.Addr, "err", err)
		rc.Close()
	} else {
		redisClient = rc
		defer redisClient.Close()
	}

	var enqueuer service.TaskEnqueuer
	if redisClient != nil {
		asynqClient := asynq.NewClient(redisOpt)
		defer asynqClient.Close()
		enqueuer = asynqClient
	}

	// Playlist history
	var history service.PlaylistHistory
	historyStore, err := store.OpenHistory(cfg.Database.Path)
	if err != nil {
		l.Warn("playlist history not available", "path", cfg.Database.Path, "err", err)
	} else {
		defer historyStore.Close()
		history = historyStore
	}

	// External clients
	llmClient := client.NewLLMClient(&cfg.LLM)
	spotifyClient := client.NewSpotifyClient(&cfg.Spotify, l)

	var imageStorage client.ImageStorage
	if cfg.R2.AccessKeyID != "" && cfg.R2.SecretAccessKey != "" {
		r2Client, err := client.NewR2Client(&cfg.R2)
		if err != nil {
			l.Warn("R2 client not initialized", "err", err)
		} else {
			imageStorage = r2Client
		}
	} else {
		l.Info("R2 storage not configured, images will not be stored")
	}

	// OIDC verifier (optional, falls back to the legacy HMAC secret)
	var tokenVerifier auth.TokenVerifier
	if cfg.OIDC.Issuer != "" {
		jwksVerifier, err := auth.NewJWKSVerifier(ctx, &cfg.OIDC)
		if err != nil {
			l.Warn("JWKS verifier not initialized", "issuer", cfg.OIDC.Issuer, "err", err)
		} else {
			defer jwksVerifier.Close()
			tokenVerifier = jwksVerifier
		}
	}

	hub := ws.NewHub(logger.Component(l, "hub"))
	go hub.Run(ctx)

	cache := store.NewCache(redisClient, cfg.Cache.AnalysisTTL, cfg.Cache.GenreSeedsTTL, l)
	jobs := store.NewJobStore(redisClient)

	analysisService := service.NewAnalysisService(llmClient, cache, imageStorage, logger.Component(l, "analysis")).
		WithSignedURLs(cfg.R2.SignedURLTTL)
	recommendService := service.NewRecommendService(spotifyClient, cache, cfg.Spotify.LookupBatchSize, logger.Component(l, "recommend"))
	catalogService := service.NewCatalogService(spotifyClient, cache, logger.Component(l, "catalog"))
	playlistService := service.NewPlaylistService(spotifyClient, history, jobs, enqueuer, logger.Component(l, "playlist"))

	validate := handler.NewValidator()

	var apiAuth fiber.Handler
	if cfg.Gateway.Enabled {
		// Behind Traefik: auth is handled by ForwardAuth, read X-User-* headers
		l.Info("gateway mode enabled, using header-based auth")
		apiAuth = middleware.GatewayAuthMiddleware()
	} else {
		apiAuth = middleware.New(tokenVerifier, cfg.JWT.Secret).Authenticate()
	}

	health := handler.NewHealthHandler(map[string]handler.HealthCheck{
		"llm":     handler.Static(llmClient.IsConfigured()),
		"spotify": handler.Static(cfg.Spotify.APIBaseURL != ""),
		"r2":      handler.Static(imageStorage != nil),
		"auth":    handler.Static(tokenVerifier != nil || cfg.JWT.Secret != ""),
		"redis": func(ctx context.Context) bool {
			return redisClient != nil && redisClient.Ping(ctx).Err() == nil
		},
		"database": func(ctx context.Context) bool {
			return historyStore != nil && historyStore.Ping(ctx) == nil
		},
	})

	app := fiber.New(fiber.Config{
		ErrorHandler: handler.ErrorHandler,
		BodyLimit:    30 * 1024 * 1024, // base64 of a 20 MB image
	})

	app.Use(recover.New())
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${reqHeaders}\n"
	}
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization," + middleware.SpotifyTokenHeader,
	}))

	handler.Register(app, &handler.Routes{
		Auth:     apiAuth,
		Limiter:  middleware.NewRateLimiter(redisClient),
		Limits:   cfg.RateLimit,
		Health:   health,
		Verify:   handler.NewAuthHandler(tokenVerifier, cfg.JWT.Secret),
		Analysis: handler.NewAnalysisHandler(analysisService, validate),
		Spotify:  handler.NewSpotifyHandler(recommendService, catalogService, validate),
		Playlist: handler.NewPlaylistHandler(playlistService, validate),
		Hub:      hub,
	})

	var workerServer *asynq.Server
	if redisClient != nil {
		workerServer = newWorkerServer(cfg, redisOpt, l)
		playlistWorker := worker.NewPlaylistWorker(jobs, playlistService, hub, logger.Component(l, "worker"))

		mux := asynq.NewServeMux()
		mux.HandleFunc(service.TaskTypePlaylistCreate, playlistWorker.ProcessTask)

		go func() {
			if err := workerServer.Run(mux); err != nil {
				l.Error("asynq worker stopped", "err", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		l.Info("shutting down server")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			l.Error("server shutdown error", "err", err)
		}
		if workerServer != nil {
			workerServer.Shutdown()
		}
	}()

	addr := ":" + cfg.Server.Port
	l.Info("server starting", "addr", addr, "env", cfg.Server.Env)
	if err := app.Listen(addr); err != nil {
		l.Fatal("server error", "err", err)
	}
}

func newWorkerServer(cfg *config.Config, redisOpt asynq.RedisClientOpt, l *log.Logger) *asynq.Server {
	concurrency := cfg.Worker.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}

	return asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			service.QueuePlaylists: 1,
		},
		Logger:   logger.NewAsynqLogger(logger.Component(l, "asynq")),
		LogLevel: asynqLogLevel(cfg.Server.LogLevel),
	})
}

func asynqLogLevel(level string) asynq.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return asynq.DebugLevel
	case "warn":
		return asynq.WarnLevel
	case "error":
		return asynq.ErrorLevel
	default:
		return asynq.InfoLevel
	}
}
