package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"barbershop-system/config"
	"barbershop-system/internal/database"
	"barbershop-system/internal/gateway/clients"
	"barbershop-system/internal/services/reconciler"
)

func main() {
	cfg := config.LoadConfig()
	logger := config.NewLogger(cfg.Log)

	db, err := database.NewConnection(cfg.DB, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		logger.WithError(err).Fatal("failed to migrate database")
	}

	redisClient, err := config.NewRedisClient(cfg.Redis, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to redis")
	}
	defer redisClient.Close()

	sweeper := reconciler.NewSweeper(db, config.NewRedisLock(redisClient), logger, cfg.Worker)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	c := cron.New()
	if _, err := c.AddFunc(cfg.Worker.Schedule, func() {
		if _, err := sweeper.Run(ctx); err != nil {
			config.LogError(logger, "reconciler", "cron", "sweep", cfg.Worker.Schedule, err)
		}
	}); err != nil {
		logger.WithError(err).Fatal("invalid RECONCILE_SCHEDULE")
	}
	c.Start()

	lis, err := net.Listen("tcp", ":"+cfg.Worker.GRPCPort)
	if err != nil {
		logger.WithError(err).Fatal("failed to listen")
	}

	s := grpc.NewServer()
	healthServer := health.NewServer()
	healthServer.SetServingStatus(clients.ReconcilerService, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, healthServer)
	reflection.Register(s)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		healthServer.Shutdown()
		stop()
		<-c.Stop().Done()
		s.GracefulStop()
	}()

	logger.WithFields(logrus.Fields{
		"port":     cfg.Worker.GRPCPort,
		"schedule": cfg.Worker.Schedule,
	}).Info("reconciler listening")
	if err := s.Serve(lis); err != nil {
		logger.WithError(err).Fatal("failed to serve")
	}
}
