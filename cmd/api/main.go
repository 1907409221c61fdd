package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ArowuTest/raffle-ledger-backend/api/routes"
	"github.com/ArowuTest/raffle-ledger-backend/internal/config"
	"github.com/ArowuTest/raffle-ledger-backend/internal/handlers"
	"github.com/ArowuTest/raffle-ledger-backend/internal/logger"
	"github.com/ArowuTest/raffle-ledger-backend/internal/raffle"
	"github.com/ArowuTest/raffle-ledger-backend/internal/services"
	"github.com/ArowuTest/raffle-ledger-backend/internal/storage"
	pkgjwt "github.com/ArowuTest/raffle-ledger-backend/pkg/jwt"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// the logger is not configured yet
		_, _ = os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Initialize(logger.Configuration{
		LogFile:   cfg.Log.File,
		ErrorFile: cfg.Log.ErrorFile,
		Level:     cfg.Log.Level,
		Console:   cfg.Log.Console,
	}); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	repos, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal("failed to open storage", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	defer func() {
		if err := repos.Close(context.Background()); err != nil {
			logger.Error("error closing storage", zap.Error(err))
		}
	}()

	// Rebuild the in-memory ledger from what was persisted
	lastSeq, err := repos.Events.LastSequence(ctx)
	if err != nil {
		logger.Fatal("failed to read event sequence", zap.Error(err))
	}
	bus := raffle.NewEventBus()
	bus.Resume(lastSeq)

	factory := raffle.NewFactory(common.HexToAddress(cfg.Ledger.FactoryAddress), repos.Raffles, bus)
	records, err := repos.Raffles.FindAll(ctx)
	if err != nil {
		logger.Fatal("failed to load raffles", zap.Error(err))
	}
	if err := factory.Restore(records); err != nil {
		logger.Fatal("failed to restore raffles", zap.Error(err))
	}
	logger.Info("ledger restored",
		zap.String("factory", common.HexToAddress(cfg.Ledger.FactoryAddress).Hex()),
		zap.Int("raffles", len(records)),
		zap.Uint64("lastEventSeq", lastSeq))

	tokens := pkgjwt.NewTokenService(cfg.JWT.Secret, cfg.JWT.ExpiresIn)

	raffleService := services.NewRaffleService(factory)
	authService := services.NewAuthService(tokens, cfg.JWT.NonceTTL)
	eventService := services.NewEventService(repos.Events, bus)
	payoutService := services.NewPayoutService(repos.Payouts)

	handlerDeps := routes.HandlerDependencies{
		Tokens:        tokens,
		AuthHandler:   handlers.NewAuthHandler(authService),
		RaffleHandler: handlers.NewRaffleHandler(raffleService),
		EventHandler:  handlers.NewEventHandler(eventService, cfg.Ledger.EventBuffer),
		PayoutHandler: handlers.NewPayoutHandler(payoutService),
	}
	router := routes.SetupRouter(cfg, handlerDeps)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	logger.Info("server starting", zap.String("port", cfg.Server.Port))

	// Run server in a goroutine so that it doesn't block
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exiting")
}
