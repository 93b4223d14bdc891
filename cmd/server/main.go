// Package main is the entry point for the Fluxlab spectral analysis service.
// It exposes superconducting circuit models over HTTP: Hamiltonian
// diagonalization, flux sweeps with per-point failure recovery, anti-crossing
// detection and gate metric extraction.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aristath/fluxlab/internal/config"
	"github.com/aristath/fluxlab/internal/database"
	"github.com/aristath/fluxlab/internal/modules/simulation"
	"github.com/aristath/fluxlab/internal/reliability"
	"github.com/aristath/fluxlab/internal/scheduler"
	"github.com/aristath/fluxlab/internal/server"
	"github.com/aristath/fluxlab/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting Fluxlab")

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.DataDir).Msg("Failed to create data directory")
	}

	resultsDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "results.db"),
		Name:    "results",
		Profile: database.ProfileStandard,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open results database")
	}
	defer resultsDB.Close()

	repo, err := simulation.NewRepository(resultsDB.Conn(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize sweep repository")
	}

	service := simulation.NewService(repo, cfg.Simulator, log)

	sched := scheduler.New(log)

	cleanupJob := simulation.NewCleanupJob(repo, resultsDB, cfg.Simulator.RetentionDays, log)
	if err := sched.AddJob("0 0 3 * * *", cleanupJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register cleanup job")
	}

	if cfg.Backup != nil {
		s3Client, err := reliability.NewS3Client(
			cfg.Backup.Endpoint,
			cfg.Backup.AccessKeyID,
			cfg.Backup.SecretAccessKey,
			cfg.Backup.Bucket,
			cfg.Backup.Region,
			log,
		)
		if err != nil {
			log.Warn().Err(err).Msg("Backup disabled: S3 client initialization failed")
		} else {
			backupService := reliability.NewBackupService(s3Client, resultsDB, cfg.DataDir, log)
			backupJob := reliability.NewBackupJob(backupService, cfg.Backup.MaxBackups, log)
			if err := sched.AddJob("0 30 3 * * *", backupJob); err != nil {
				log.Fatal().Err(err).Msg("Failed to register backup job")
			}
			log.Info().Str("bucket", cfg.Backup.Bucket).Msg("Cloud backup enabled")
		}
	}

	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Log:       log,
		Cfg:       cfg,
		ResultsDB: resultsDB,
		Service:   service,
		Scheduler: sched,
	})

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
