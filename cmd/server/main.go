package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/dkeye/Watch/internal/adapters/http"
	signalws "github.com/dkeye/Watch/internal/adapters/signal"
	"github.com/dkeye/Watch/internal/app"
	"github.com/dkeye/Watch/internal/config"
	"github.com/dkeye/Watch/internal/core"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
	}

	clock := clockwork.NewRealClock()
	registry := core.NewRegistry(clock)
	sessions := app.NewSessions()

	ctl := &signalws.Controller{
		Registry:    registry,
		Sessions:    sessions,
		Clock:       clock,
		RoomMaxAge:  cfg.RoomMaxAge,
		ChatLimiter: signalws.NewChatRateLimiter(cfg.ChatLimit, cfg.ChatWindow, clock),
	}

	sweeper := &app.Sweeper{
		Registry: registry,
		Interval: cfg.SweepInterval,
		MaxAge:   cfg.RoomMaxAge,
		Clock:    clock,
	}
	go sweeper.Run(ctx)

	r := router.SetupRouter(ctx, cfg, ctl)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Watch server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
