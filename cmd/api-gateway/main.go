package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/jcmexdev/book-escrow/internal/api-gateway/core/ports"
	"github.com/jcmexdev/book-escrow/internal/api-gateway/infra/adapters/service"
	"github.com/jcmexdev/book-escrow/internal/api-gateway/infra/httpx"
	"github.com/jcmexdev/book-escrow/internal/api-gateway/infra/httpx/middlewares"
	"github.com/jcmexdev/book-escrow/internal/order-service/app"
	"github.com/jcmexdev/book-escrow/internal/order-service/bootstrap"
	"github.com/jcmexdev/book-escrow/internal/pkg/config"
	"github.com/jcmexdev/book-escrow/internal/pkg/interceptors"
	"github.com/jcmexdev/book-escrow/internal/pkg/telemetry"
)

func main() {
	configPath := flag.String("config", os.Getenv("ESCROW_CONFIG"), "path to the YAML config file")
	tokenFor := flag.String("token-for", "", "print a bearer token for this user id and exit")
	tokenRole := flag.String("token-role", string(app.RoleUser), "role claim of the printed token (user or admin)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Auth.JWTSecret == "" {
		slog.Error("auth.jwt_secret is required")
		os.Exit(1)
	}
	secret := []byte(cfg.Auth.JWTSecret)

	if *tokenFor != "" {
		tok, err := middlewares.NewToken(secret, *tokenFor, app.Role(*tokenRole), cfg.Auth.TokenTTL, time.Now())
		if err != nil {
			slog.Error("failed to sign token", "error", err)
			os.Exit(1)
		}
		fmt.Println(tok)
		return
	}

	logger := telemetry.InitLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.SetupTracer(ctx, telemetry.TracerConfig{
		ServiceName: cfg.Telemetry.ServiceName + "-api-gateway",
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

	var market ports.Marketplace
	if addr := cfg.Server.OrderServiceAddr; addr != "" {
		conn, err := grpc.NewClient(addr,
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithUnaryInterceptor(interceptors.PropagateClientInterceptor()),
		)
		if err != nil {
			slog.Error("could not connect to order service", "addr", addr, "error", err)
			os.Exit(1)
		}
		defer conn.Close()
		market = service.NewGRPCMarketplace(conn)
		slog.Info("using remote order service", "addr", addr)
	} else {
		services, err := bootstrap.Build(ctx, cfg, logger)
		if err != nil {
			slog.Error("failed to build services", "error", err)
			os.Exit(1)
		}
		defer services.Close()
		go services.Engine.RunSweeper(ctx)
		market = service.NewLocalMarketplace(services.Engine, services.Checkout, services.Catalog)
		slog.Info("running order engine in process")
	}

	srv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           httpx.NewRouter(httpx.NewHandler(market), secret),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http shutdown error", "error", err)
		}
	}()

	slog.Info("API gateway running", "addr", cfg.Server.HTTPAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("http server failed", "error", err)
		os.Exit(1)
	}
}
