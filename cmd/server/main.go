package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/dkeye/Stage/internal/adapters/codec"
	router "github.com/dkeye/Stage/internal/adapters/http"
	wssignal "github.com/dkeye/Stage/internal/adapters/signal"
	"github.com/dkeye/Stage/internal/app"
	"github.com/dkeye/Stage/internal/app/orch"
	"github.com/dkeye/Stage/internal/app/relay"
	"github.com/dkeye/Stage/internal/app/vote"
	"github.com/dkeye/Stage/internal/auth"
	"github.com/dkeye/Stage/internal/config"
	"github.com/dkeye/Stage/internal/store"
	"github.com/dkeye/Stage/internal/store/memory"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.Mode == "release" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	verifier, err := auth.NewVerifier(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TTL)
	if err != nil {
		log.Fatal().Err(err).Msg("token verifier")
	}

	var policy app.Policy = app.SimplePolicy{}
	if cfg.Rooms.DropSlowFrames {
		policy = app.DropFramePolicy{}
	}
	reg, err := app.NewRegistry(codec.JSON{}, app.WithPolicy(policy))
	if err != nil {
		log.Fatal().Err(err).Msg("room registry")
	}

	scores, err := store.NewScores(cfg.Scores)
	if err != nil {
		log.Fatal().Err(err).Msg("score store")
	}
	defer scores.Close()

	ballots := memory.NewCatalog()
	votes, err := vote.New(ballots, scores, vote.WithPoints(cfg.Quiz.Points), vote.WithPublisher(reg))
	if err != nil {
		log.Fatal().Err(err).Msg("vote aggregator")
	}

	o := &orch.Orchestrator{
		Registry: reg,
		Relay:    relay.New(reg),
		Votes:    votes,
		Ballots:  ballots,
		Scores:   scores,
	}
	limiter := wssignal.NewRoomRateLimiter(cfg.Chat.RateLimit, cfg.Chat.RateInterval)

	r := router.SetupRouter(ctx, cfg, router.Deps{
		Orch:    o,
		Auth:    verifier,
		Scores:  scores,
		Limiter: limiter,
	})
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		reg.RunSweeper(gctx, cfg.Rooms.SweepPeriod, cfg.Rooms.IdleTTL)
		return nil
	})
	g.Go(func() error {
		pruneLimiter(gctx, limiter, cfg.Rooms.SweepPeriod)
		return nil
	})
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("Stage server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server error")
	}
	log.Info().Msg("Server exited gracefully")
}

func pruneLimiter(ctx context.Context, l *wssignal.RoomRateLimiter, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Prune()
		}
	}
}
