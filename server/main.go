package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rohit-710/wallet-bounce/server/api"
	"github.com/rohit-710/wallet-bounce/server/auth"
	"github.com/rohit-710/wallet-bounce/server/claims"
	"github.com/rohit-710/wallet-bounce/server/config"
	"github.com/rohit-710/wallet-bounce/server/metrics"
	"github.com/rohit-710/wallet-bounce/server/reward"
	"github.com/rohit-710/wallet-bounce/server/srv"
	"github.com/rohit-710/wallet-bounce/server/treasury"
	"github.com/rohit-710/wallet-bounce/server/txstatus"
)

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(lvl)
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg config.Config, logger zerolog.Logger) error {
	signer, err := treasury.FromBase58(cfg.TreasuryKey)
	if err != nil {
		return err
	}
	client := rpc.New(cfg.RPCURL)

	dispenser := reward.NewDispenser(client, signer, reward.Options{
		Lamports:   cfg.RewardLamports,
		Commitment: cfg.Commitment,
		Logger:     logger,
	})
	tracker := txstatus.NewTracker(client, logger)

	ledger, err := claims.Open(cfg.DataDir, logger)
	if err != nil {
		return err
	}
	tracker.OnFailed(func(sig string) {
		if _, err := ledger.MarkFailed(sig); err != nil {
			logger.Error().Err(err).Str("signature", sig).Msg("failed to persist failed claim")
		}
	})
	authn, err := auth.NewAuth(cfg.DataDir, cfg.OperatorKeyHash, logger)
	if err != nil {
		return err
	}
	hub := srv.NewHub(tracker, cfg.PollInterval, cfg.ConfirmTimeout, logger)

	endpoints := api.NewEndpoints(api.Deps{
		Dispenser:   dispenser,
		Tracker:     tracker,
		Ledger:      ledger,
		Auth:        authn,
		RequireAuth: cfg.RequireWalletAuth,
		Explorer:    cfg.ExplorerURL,
		Logger:      logger,
	})
	router := api.NewRouter(endpoints, api.Routes{
		Challenge:     authn.HandleChallenge,
		Verify:        authn.HandleVerify,
		StatusStream:  hub.Handler(),
		Metrics:       metrics.Handler(),
		Operator:      authn.RequireOperator,
		AccessLogging: api.AccessLog(logger),
	})

	s := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().
			Str("addr", cfg.ListenAddr).
			Str("treasury", signer.PublicKey().String()).
			Uint64("rewardLamports", cfg.RewardLamports).
			Str("cluster", cfg.Cluster).
			Bool("walletAuth", cfg.RequireWalletAuth).
			Bool("operator", authn.OperatorEnabled()).
			Msg("server listening")
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")
		hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
