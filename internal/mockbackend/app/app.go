package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/worldviewlab/claimgraph/internal/mockbackend/config"
	"github.com/worldviewlab/claimgraph/internal/mockbackend/httpapi"
	"github.com/worldviewlab/claimgraph/internal/mockbackend/pipeline"
	"github.com/worldviewlab/claimgraph/internal/mockbackend/scenario"
	"github.com/worldviewlab/claimgraph/internal/platform/logger"
)

type App struct {
	Log    *logger.Logger
	Config *config.Config

	server *http.Server
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	var scn *scenario.Scenario
	if path := strings.TrimSpace(cfg.Pipeline.ScenarioPath); path != "" {
		scn, err = scenario.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load scenario: %w", err)
		}
		log.Info("scenario loaded", "path", path, "entries", len(scn.Worldviews))
	}

	p := pipeline.New(log, scn, cfg.Pipeline)
	srv := httpapi.NewServer(cfg, log, p)

	return &App{
		Log:    log,
		Config: cfg,
		server: srv,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.Log.Info("mock backend listening", "addr", a.Config.HTTP.Addr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.HTTP.ShutdownTimeout.Duration)
		defer cancel()
		_ = a.server.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
