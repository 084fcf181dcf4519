package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"

	"github.com/jcmexdev/book-escrow/internal/order-service/adapters/grpc/server"
	"github.com/jcmexdev/book-escrow/internal/order-service/bootstrap"
	"github.com/jcmexdev/book-escrow/internal/pkg/config"
	"github.com/jcmexdev/book-escrow/internal/pkg/telemetry"
)

func main() {
	configPath := flag.String("config", os.Getenv("ESCROW_CONFIG"), "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := telemetry.InitLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.SetupTracer(ctx, telemetry.TracerConfig{
		ServiceName: cfg.Telemetry.ServiceName + "-order-service",
		Environment: cfg.Env,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
	})
	if err != nil {
		slog.Error("failed to initialise tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Error("tracer shutdown error", "error", err)
		}
	}()

	services, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		slog.Error("failed to build services", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := services.Close(); err != nil {
			slog.Error("failed to close stores", "error", err)
		}
	}()

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		slog.Error("failed to listen", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}

	grpcServer, health := server.NewGRPCServer(server.New(services.Engine, services.Checkout, services.Catalog))

	go services.Engine.RunSweeper(ctx)

	go func() {
		<-ctx.Done()
		slog.Info("shutting down order service")
		health.Shutdown()
		grpcServer.GracefulStop()
	}()

	slog.Info("order service gRPC running", "addr", cfg.Server.GRPCAddr)
	if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		slog.Error("failed to serve", "error", err)
		os.Exit(1)
	}
}
