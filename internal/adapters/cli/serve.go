package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/taigaharvest/saphouse-go/internal/adapters/httpapi"
	"github.com/taigaharvest/saphouse-go/internal/adapters/metrics"
	"github.com/taigaharvest/saphouse-go/internal/adapters/persistence"
	appbatch "github.com/taigaharvest/saphouse-go/internal/application/batch"
	"github.com/taigaharvest/saphouse-go/internal/domain/shared"
	"github.com/taigaharvest/saphouse-go/internal/infrastructure/config"
	"github.com/taigaharvest/saphouse-go/internal/infrastructure/database"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Long:  `Connect to the database, run schema migrations and serve the REST API.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.MustLoadConfig(configPath)
			return runServer(cfg)
		},
	}
}

// NewMigrateCommand creates the migrate command
func NewMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run schema migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.MustLoadConfig(configPath)

			db, err := database.NewConnection(&cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer database.Close(db)

			if err := database.AutoMigrate(db); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			log.Println("schema migration complete")
			return nil
		},
	}
}

func runServer(cfg *config.Config) error {
	log.Printf("connecting to %s database", cfg.Database.Type)
	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close(db)

	if err := database.AutoMigrate(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	// Metrics
	var httpMetrics *metrics.HTTPMetricsCollector
	if cfg.Server.MetricsEnabled {
		metrics.InitRegistry()
		batchMetrics := metrics.NewBatchMetricsCollector()
		if err := batchMetrics.Register(); err != nil {
			return fmt.Errorf("failed to register batch metrics: %w", err)
		}
		metrics.SetGlobalBatchCollector(batchMetrics)

		httpMetrics = metrics.NewHTTPMetricsCollector()
		if err := httpMetrics.Register(); err != nil {
			return fmt.Errorf("failed to register http metrics: %w", err)
		}
	}

	// Repositories
	ledger := persistence.NewGormUnitLedger(db)
	processingRepo := persistence.NewGormProcessingRepository(db)
	packagingRepo := persistence.NewGormPackagingRepository(db)
	labelingRepo := persistence.NewGormLabelingRepository(db)
	draftRepo := persistence.NewGormDraftRepository(db)
	eventLog := persistence.NewGormEventLog(db)

	// Application services
	clock := shared.NewRealClock()
	services := httpapi.Services{
		Lifecycle:  appbatch.NewLifecycleService(processingRepo, packagingRepo, labelingRepo, ledger, eventLog, clock),
		Assignment: appbatch.NewAssignmentService(processingRepo, ledger, eventLog, clock),
		Linker:     appbatch.NewLinkerService(processingRepo, packagingRepo, labelingRepo, eventLog, clock),
		Drafts:     appbatch.NewDraftService(draftRepo, ledger, clock),
		Queries:    appbatch.NewQueryService(processingRepo, packagingRepo, labelingRepo, eventLog),
	}

	server := httpapi.NewServer(cfg.Server, services, httpMetrics)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Printf("received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	log.Println("server stopped")
	return nil
}
