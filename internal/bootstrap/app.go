package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"transcript-advisor/internal/presenter"
	"transcript-advisor/internal/queue"
	"transcript-advisor/internal/recommender"
	"transcript-advisor/internal/services/health"
	"transcript-advisor/internal/shared/config"
	"transcript-advisor/internal/shared/server"
	"transcript-advisor/internal/shared/server/middleware"
	"transcript-advisor/internal/shared/storage/db"
	"transcript-advisor/internal/shared/storage/object"
	localstore "transcript-advisor/internal/shared/storage/object/local"
	s3store "transcript-advisor/internal/shared/storage/object/s3"
	"transcript-advisor/internal/shared/telemetry"
	"transcript-advisor/internal/submissions"
	"transcript-advisor/internal/transfer"
	"transcript-advisor/internal/uploads"
)

// App holds shared dependencies.
type App struct {
	Config      config.Config
	Router      *gin.Engine
	DB          *sql.DB
	Store       object.ObjectStore
	Queue       queue.Client
	Recommender *recommender.HTTPClient
	Slots       *transfer.MemoryStore
	Registry    *uploads.Registry
	Ledger      submissions.Repo
	Uploads     *uploads.Service
	Limiter     *middleware.RateLimiter
}

// Build prepares dependencies and the router.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	client, err := recommender.NewHTTPClient(cfg.RecommenderURL, cfg.RecommenderTimeout)
	if err != nil {
		return nil, fmt.Errorf("recommender client: %w", err)
	}

	app := &App{
		Config:      cfg,
		DB:          sqlDB,
		Store:       store,
		Queue:       queueClient,
		Recommender: client,
		Slots:       transfer.NewMemoryStore(cfg.TransferTTL, nil),
		Limiter:     middleware.NewRateLimiter(nil),
	}
	buildServices(app)

	app.Router = server.NewRouter(cfg, server.RouterDeps{
		Handlers: []server.RouteRegistrar{
			uploads.NewHandler(app.Uploads, cfg.MaxUploadBytes),
			presenter.NewHandler(app.Slots),
		},
		Health:  buildHealth(app),
		Limiter: app.Limiter,
	})

	return app, nil
}

// Close releases the database handle.
func (a *App) Close() error {
	if a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

func buildHealth(app *App) *health.Service {
	checks := []health.Check{{Name: "recommender", Probe: app.Recommender.Health}}
	if app.DB != nil {
		checks = append(checks, health.Check{Name: "database", Probe: app.DB.PingContext})
	}
	return health.NewService(checks...)
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Info("bootstrap.db.memory", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err == nil {
		err = db.RunMigrations(ctx, sqlDB)
		if err != nil {
			_ = sqlDB.Close()
		}
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Error("bootstrap.db.memory", map[string]any{"err": err.Error()})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.SubmissionsQueue) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx, cfg.SubmissionsQueue, cfg.AWSRegion)
}

func buildServices(app *App) {
	if app.DB != nil {
		app.Ledger = &submissions.PGRepo{DB: app.DB}
	} else {
		app.Ledger = submissions.NewMemoryRepo()
	}

	store, client := app.Store, app.Recommender
	app.Registry = uploads.NewRegistry(func(contextID string) *uploads.Orchestrator {
		return uploads.NewOrchestrator(contextID, store, client)
	})

	app.Uploads = uploads.NewService(app.Registry, app.Slots, app.Ledger, app.Queue, app.Config.RecommenderTimeout)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
