package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/cryptofolio/api/internal/config"
	httphandler "github.com/cryptofolio/api/internal/handler/http"
	"github.com/cryptofolio/api/internal/repository"
	"github.com/cryptofolio/api/internal/service"
	"github.com/cryptofolio/api/storage/postgres"
	"github.com/cryptofolio/api/storage/redis"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type App struct {
	cfg        *config.Config
	log        *slog.Logger
	httpServer *http.Server
	storage    *postgres.Storage
	cache      *redis.Cache
}

func New(log *slog.Logger, cfg *config.Config) *App {
	storage, err := postgres.New(cfg.Database)
	if err != nil {
		panic(fmt.Errorf("failed to init storage: %w", err))
	}

	cache := redis.New(cfg.Redis, log)

	usersService := service.NewUsersService(storage.DB, cfg.Security)
	pricingService := service.NewPricingService(cache, cfg.Pricing, log)
	tradeService := service.NewTradeService(storage.DB, pricingService)
	portfoliosService := service.NewPortfoliosService(
		repository.NewPortfoliosRepository(storage.DB),
		repository.NewTransactionsRepository(storage.DB),
		pricingService,
	)

	ginEngine := gin.New()
	ginEngine.Use(gin.Recovery())
	ginEngine.Use(cors.New(corsConfig(cfg.HTTP)))

	handler := httphandler.NewHandler(usersService, tradeService, portfoliosService, log, cfg.Security.JWTSecret)
	handler.RegisterRoutes(ginEngine)

	httpServer := &http.Server{
		Addr:    net.JoinHostPort("", strconv.FormatUint(uint64(cfg.HTTP.Port), 10)),
		Handler: ginEngine,
	}

	return &App{
		cfg:        cfg,
		log:        log,
		httpServer: httpServer,
		storage:    storage,
		cache:      cache,
	}
}

func corsConfig(cfg config.HTTPConfig) cors.Config {
	corsCfg := cors.DefaultConfig()
	if cfg.AllowOrigins == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = strings.Split(cfg.AllowOrigins, ",")
		corsCfg.AllowCredentials = true
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	return corsCfg
}

func (a *App) Run() error {
	const op = "app.Run"

	a.log.Info("HTTP server is running", "addr", a.httpServer.Addr)

	if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (a *App) Stop(ctx context.Context) {
	a.log.Info("stopping application components gracefully...")

	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.log.Warn("failed to gracefully shutdown HTTP server", "error", err)
	} else {
		a.log.Info("HTTP server stopped")
	}

	a.cache.Close()

	if err := a.storage.Stop(); err != nil {
		a.log.Error("failed to stop storage", "error", err)
	} else {
		a.log.Info("database connection closed")
	}
}
