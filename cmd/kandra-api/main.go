package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/blockedby/kandra/internal/api"
	"github.com/blockedby/kandra/internal/config"
	"github.com/blockedby/kandra/internal/database"
	"github.com/blockedby/kandra/internal/filter"
	"github.com/blockedby/kandra/internal/logger"
	"github.com/blockedby/kandra/internal/migrator"
	"github.com/blockedby/kandra/internal/repository"
	"github.com/blockedby/kandra/migrations"
)

func main() {
	// 1. Load config
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// 2. Initialize logger
	if err := logger.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	log := logger.Get()
	log.Info().Msg("starting development backend")

	// 3. Setup context with graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("received shutdown signal")
		cancel()
	}()

	// 4. Connect to database
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := migrate(ctx, db, cfg.DatabaseURL); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}
	if cfg.SeedFixtures {
		if err := repository.Seed(ctx, db.GORM, log); err != nil {
			log.Fatal().Err(err).Msg("failed to seed database")
		}
	}

	// 5. Initialize storage and repositories
	files, err := api.NewDiskStore(cfg.StorageDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to prepare storage")
	}

	deps := &api.Dependencies{
		Users:        repository.NewUsersRepository(db.GORM),
		Jobs:         repository.NewJobsRepository(db.GORM),
		Applications: repository.NewApplicationsRepository(db.GORM, log),
		Bookmarks:    repository.NewBookmarksRepository(db.GORM),
		Stats:        repository.NewStatsRepository(db.GORM),
		Files:        files,
		Domain:       filter.Domain{SalaryMin: cfg.SalaryDomainMin, SalaryMax: cfg.SalaryDomainMax},
		Log:          log,
	}

	// 6. Start server
	server := api.NewServer(&api.Config{
		Port:        cfg.APIPort,
		Title:       "Kandra API",
		Description: "Development job board backend",
		Version:     "dev",
	}, deps)

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// 7. Wait for shutdown
	<-ctx.Done()
	log.Info().Msg("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}

	log.Info().Msg("shutdown complete")
}

// migrate applies the embedded SQL migrations on postgresql. sqlite files
// get the schema from the gorm models.
func migrate(ctx context.Context, db *database.DB, databaseURL string) error {
	if !database.IsPostgres(databaseURL) {
		return repository.Migrate(db.GORM)
	}

	m, err := migrator.NewWithFS(migrations.FS)
	if err != nil {
		return err
	}
	if err := m.Up(ctx, databaseURL); err != nil {
		return err
	}

	version, dirty, err := m.Version(ctx, databaseURL)
	if err != nil {
		return err
	}
	logger.Get().Info().Uint("version", version).Bool("dirty", dirty).Msg("schema migrated")
	return nil
}
