package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	grpcadapter "github.com/simaogato/dealflow-backend/internal/adapter/grpc"
	"github.com/simaogato/dealflow-backend/internal/adapter/repository/postgres"
	"github.com/simaogato/dealflow-backend/internal/config"
	"github.com/simaogato/dealflow-backend/internal/logger"
	"github.com/simaogato/dealflow-backend/internal/scheduler"
	"github.com/simaogato/dealflow-backend/internal/usecase/pipeline"
	"github.com/simaogato/dealflow-backend/internal/usecase/report"
	"github.com/simaogato/dealflow-backend/internal/usecase/seeder"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Logger is not configured yet
		fallback := logger.New(logger.Config{Level: "info"})
		fallback.Fatal().Err(err).Msg("Invalid configuration")
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	logger.SetGlobalLogger(log)

	// 2. Setup Database
	db, err := connectWithRetry(cfg.DBConnStr, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database schema")
	}

	// 3. Initialize Repositories (Postgres)
	dealRepo := postgres.NewDealRepository(db)
	voteRepo := postgres.NewVoteRepository(db)
	goalRepo := postgres.NewGoalRepository(db)

	// 4. Initialize Services (Use Cases)
	pipelineService := pipeline.NewPipelineService(dealRepo, voteRepo, log)
	reportService := report.NewReportService(dealRepo, voteRepo, goalRepo, cfg.Location)

	// Seed goals for the current year so pacing has targets from day one
	goalSeeder := seeder.NewGoalSeeder(goalRepo, seeder.DefaultTargets{
		Deals:      cfg.DefaultTargetDeals,
		Investment: cfg.DefaultTargetInvestment,
	})
	year := time.Now().In(cfg.Location).Year()
	created, err := goalSeeder.Seed(ctx, year)
	if err != nil {
		log.Fatal().Err(err).Int("year", year).Msg("Failed to seed investment goals")
	}
	log.Info().Int("year", year).Int("created", created).Msg("Investment goals seeded")

	// 5. Start background jobs
	sched := scheduler.New(log, cfg.Location)
	pacingJob := scheduler.NewPacingCheckJob(scheduler.PacingCheckConfig{
		Log:      log,
		Pacer:    reportService,
		Location: cfg.Location,
	})
	if err := sched.AddJob(cfg.PacingSchedule, pacingJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register pacing check job")
	}
	if err := sched.AddJob("0 0 1 * * *", scheduler.NewGoalSeedJob(log, goalSeeder, cfg.Location)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register goal seed job")
	}
	sched.Start()

	// Report where the current quarter stands without waiting for the first tick
	if err := sched.RunNow(pacingJob); err != nil {
		log.Warn().Err(err).Msg("Startup pacing check failed")
	}

	// 6. Start gRPC Server
	grpcServer := grpclib.NewServer(
		grpclib.ChainUnaryInterceptor(
			grpcadapter.RecoveryInterceptor(log),
			grpcadapter.LoggingInterceptor(log),
		),
	)

	grpcAdapter := grpcadapter.NewServer(pipelineService, reportService)
	grpcadapter.RegisterDealflowServiceServer(grpcServer, grpcAdapter)

	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.GRPCPort)
	if err != nil {
		log.Fatal().Err(err).Str("port", cfg.GRPCPort).Msg("Failed to listen")
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.GRPCPort).Msg("gRPC server listening")
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatal().Err(err).Msg("Failed to serve gRPC server")
		}
	}()

	// Graceful shutdown
	waitForShutdown(grpcServer, sched, log)
}

// connectWithRetry gives Postgres a few seconds to come up (docker compose starts both together)
func connectWithRetry(connStr string, log zerolog.Logger) (*postgres.DB, error) {
	var lastErr error
	for attempt := 1; attempt <= 5; attempt++ {
		db, err := postgres.NewDB(connStr)
		if err == nil {
			return db, nil
		}
		lastErr = err
		log.Warn().Err(err).Int("attempt", attempt).Msg("Database not ready, retrying")
		time.Sleep(2 * time.Second)
	}
	return nil, lastErr
}

// waitForShutdown waits for SIGTERM or SIGINT and gracefully shuts down the server
func waitForShutdown(grpcServer *grpclib.Server, sched *scheduler.Scheduler, log zerolog.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully")

	sched.Stop()
	grpcServer.GracefulStop()
	log.Info().Msg("gRPC server stopped")
}
