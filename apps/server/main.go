package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"yatzy-lite/apps/server/internal/auth"
	"yatzy-lite/apps/server/internal/config"
	"yatzy-lite/apps/server/internal/gateway"
	"yatzy-lite/apps/server/internal/leaderboard"
	"yatzy-lite/apps/server/internal/ledger"
	"yatzy-lite/apps/server/internal/lobby"
	"yatzy-lite/apps/server/internal/table"
	"yatzy-lite/yatzy"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	cfg.ConfigureLogging()
	logger := log.WithField("component", "server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	authService, err := auth.NewService(auth.Options{
		Mode:        cfg.AuthMode,
		SQLitePath:  cfg.DBPath,
		PostgresDSN: cfg.AuthDSN,
		SessionTTL:  cfg.SessionTTL,
	})
	if err != nil {
		logger.Fatalf("init auth: %v", err)
	}
	defer authService.Close()

	ledgerService, err := ledger.NewService(ledger.Options{
		Mode:        cfg.LedgerMode,
		SQLitePath:  cfg.DBPath,
		PostgresDSN: cfg.LedgerDSN,
	})
	if err != nil {
		logger.Fatalf("init ledger: %v", err)
	}
	defer ledgerService.Close()

	board, err := newBoard(ctx, cfg)
	if err != nil {
		logger.Fatalf("init leaderboard: %v", err)
	}
	defer board.Close()

	lby := lobby.New(table.Config{
		Rounds:          yatzy.DefaultRounds,
		RollsPerTurn:    cfg.RollsPerTurn,
		BlockZeroScores: cfg.BlockZeroScores,
		BotDelay:        cfg.BotDelay,
	}, cfg.IdleTimeout, ledgerService, board)
	gw := gateway.New(lby, authService, cfg.AllowedOrigins)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", gw.HandleWebSocket)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	auth.NewHTTPHandler(authService).RegisterRoutes(mux)
	ledger.NewHTTPHandler(authService, ledgerService).RegisterRoutes(mux)
	leaderboard.RegisterRoutes(mux, board)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithFields(log.Fields{
			"addr":   cfg.Addr,
			"auth":   cfg.AuthMode,
			"ledger": cfg.LedgerMode,
		}).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return lby.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		gw.CloseAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("server stopped")
		return
	}
	logger.Info("bye")
}

// newBoard uses Redis when REDIS_ADDR is set and an in-memory board otherwise.
func newBoard(ctx context.Context, cfg config.Config) (leaderboard.Board, error) {
	if cfg.RedisAddr == "" {
		return leaderboard.NewMemoryBoard(), nil
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	board, err := leaderboard.NewRedisBoard(pingCtx, &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, cfg.RedisKey)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"component": "leaderboard", "addr": cfg.RedisAddr}).Info("redis leaderboard ready")
	return board, nil
}
