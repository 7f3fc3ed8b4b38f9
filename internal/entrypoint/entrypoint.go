package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/exambank/exambank/internal/audit"
	"github.com/exambank/exambank/internal/config"
	"github.com/exambank/exambank/internal/database"
	auditrepo "github.com/exambank/exambank/internal/database/audit"
	"github.com/exambank/exambank/internal/database/exercises"
	"github.com/exambank/exambank/internal/database/sources"
	"github.com/exambank/exambank/internal/database/tags"
	"github.com/exambank/exambank/internal/database/variants"
	"github.com/exambank/exambank/internal/generator"
	http_controllers "github.com/exambank/exambank/internal/http"
	"github.com/exambank/exambank/internal/importer"
	"github.com/exambank/exambank/internal/scheduler"
	"github.com/exambank/exambank/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		// service connections
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	// Wait for interrupt signal to gracefully shutdown the server with
	// the configured timeout.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Call shutdown callback first (e.g., to stop task queue)
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Exambank v%s", version)

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	// Repositories
	sourcesRepo := sources.NewRepository(db.DB)
	tagsRepo := tags.NewRepository(db.DB)
	exercisesRepo := exercises.NewRepository(db.DB)
	variantsRepo := variants.NewRepository(db.DB)

	// Create auditor for saving incoming import payloads
	auditor := audit.NewAuditor(cfg.Audit.Dir)
	auditService := audit.NewService(auditrepo.NewRepository(db.DB))

	// Import pipeline and variant generation
	imp := importer.New(db.DB)
	gen := generator.New(variantsRepo, exercisesRepo)

	// Initialize task queue if enabled. The queue lives in a dedicated
	// sidecar SQLite database, so it is only available with the sqlite
	// driver.
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	var maintenance *scheduler.MaintenanceScheduler
	if cfg.Tasks.Enabled && cfg.Database.Driver != database.DriverPostgres {
		taskCfg := tasks.Config{
			Workers:           cfg.Tasks.Workers,
			MaxRetries:        cfg.Tasks.MaxRetries,
			RetryDelay:        cfg.Tasks.RetryDelay,
			TaskTimeout:       cfg.Tasks.TaskTimeout,
			ReleaseAfter:      cfg.Tasks.ReleaseAfter,
			CleanupInterval:   cfg.Tasks.CleanupInterval,
			RetentionDuration: cfg.Tasks.RetentionDuration,
		}

		taskClient, err = tasks.NewClient(cfg.Database.DSN, taskCfg)
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		// Register task queues
		taskClient.Register(
			tasks.NewCleanupOrphanTagsQueue(tagsRepo),
			tasks.NewCleanupAuditEventsQueue(auditService),
			tasks.NewRecountVariantPointsQueue(variantsRepo),
		)

		// Start task workers in background
		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)

		if cfg.Maintenance.Enabled {
			maintenance = scheduler.NewMaintenanceScheduler(taskClient, cfg.Maintenance.Schedule, cfg.Audit.RetentionDays)
			if err := maintenance.Start(taskCtx); err != nil {
				log.Fatalf("Failed to start maintenance scheduler: %v", err)
			}
		}
	} else if cfg.Tasks.Enabled {
		log.Printf("Task queue disabled: requires the sqlite driver")
	}

	// Build router configuration with all dependencies
	routerCfg := http_controllers.RouterConfig{
		Database:      db,
		ImportRunner:  imp,
		Auditor:       auditor,
		AuditService:  auditService,
		SourceStore:   sourcesRepo,
		SegmentStore:  sourcesRepo,
		ExerciseStore: exercisesRepo,
		TagStore:      tagsRepo,
		VariantStore:  variantsRepo,
		Generator:     gen,
		UploadDir:     cfg.Upload.Dir,
		TaskClient:    taskClient,
		Version:       version,
	}

	router := http_controllers.NewRouter(routerCfg)

	// Shutdown callback for graceful cleanup
	onShutdown := func(ctx context.Context) {
		if maintenance != nil {
			maintenance.Stop()
		}
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	Serve(router, cfg, onShutdown)
}
