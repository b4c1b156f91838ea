package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/playerid-backend/internal/catalog"
	"github.com/DoyleJ11/playerid-backend/internal/config"
	"github.com/DoyleJ11/playerid-backend/internal/httpapi"
	"github.com/DoyleJ11/playerid-backend/internal/hub"
	"github.com/DoyleJ11/playerid-backend/internal/logging"
	"github.com/DoyleJ11/playerid-backend/internal/names"
	"github.com/DoyleJ11/playerid-backend/internal/records"
	"github.com/DoyleJ11/playerid-backend/internal/session"
	"github.com/DoyleJ11/playerid-backend/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.New(cfg.Server.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	players, err := catalog.Load()
	if err != nil {
		return err
	}
	idx := names.Build(players)

	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN, logger)
	if err != nil {
		return err
	}
	keeper := records.NewKeeper(st, logger, cfg.Store.Timeout)
	defer func() {
		keeper.Flush()
		err = multierr.Append(err, st.Close())
	}()
	keeper.Load(ctx)

	opts := cfg.Game.SessionOptions()
	h := hub.NewHub(context.Background(), session.Deps{
		Catalog: players,
		Index:   idx,
		Records: keeper,
		Logger:  logger,
	})

	// Build the router *with* the hub injected
	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: httpapi.SetupRoutes(httpapi.Deps{
			Hub:     h,
			Index:   idx,
			Records: keeper,
			Options: opts,
			Logger:  logger,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening",
			zap.String("addr", cfg.Server.Addr),
			zap.Int("players", len(players)),
			zap.Int("names", idx.Len()),
			zap.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return multierr.Combine(srv.Shutdown(sctx), h.Shutdown(sctx))
	})
	return g.Wait()
}
