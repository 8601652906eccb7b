package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/glabrego/itmonitor-cli/internal/app"
	"github.com/glabrego/itmonitor-cli/internal/config"
	"github.com/glabrego/itmonitor-cli/internal/feedstate"
	"github.com/glabrego/itmonitor-cli/internal/itmonitor"
	"github.com/glabrego/itmonitor-cli/internal/storage"
)

const setupTimeout = 15 * time.Second

// runtime is everything a command needs, built from the resolved config.
type runtime struct {
	cfg     config.Config
	repo    *storage.Repository
	client  *itmonitor.Client
	service *app.Service
	state   *feedstate.Manager
	logFile io.Closer
}

func setup(c *cli.Context) (*runtime, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	logFile, err := configureLogging(cfg)
	if err != nil {
		return nil, err
	}
	rt := &runtime{cfg: cfg, logFile: logFile}

	repo, err := storage.NewRepository(cfg.DBPath)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("storage init error: %w", err)
	}
	rt.repo = repo

	ctx, cancel := context.WithTimeout(c.Context, setupTimeout)
	defer cancel()
	if err := repo.Init(ctx); err != nil {
		rt.Close()
		return nil, fmt.Errorf("storage schema error: %w", err)
	}
	if err := repo.CheckWritable(ctx); err != nil {
		rt.Close()
		return nil, fmt.Errorf("storage write check failed (%w), verify the database path is writable: %s", err, cfg.DBPath)
	}

	rt.client = itmonitor.NewClient(cfg.APIBaseURL, &http.Client{Timeout: cfg.HTTPTimeout}, itmonitor.WithRetries(cfg.HTTPRetries))
	rt.service = app.NewService(rt.client, repo, cfg.FetchLimit)
	rt.state = feedstate.New(repo, feedstate.WithDefaultTypes(cfg.DefaultTypes))
	rt.state.LoadPersistedState()

	log.WithFields(log.Fields{
		"api":   cfg.APIBaseURL,
		"db":    cfg.DBPath,
		"limit": cfg.FetchLimit,
	}).Debug("runtime ready")
	return rt, nil
}

func (rt *runtime) Close() {
	if rt.repo != nil {
		if err := rt.repo.Close(); err != nil {
			log.WithError(err).Warn("closing storage")
		}
	}
	if rt.logFile != nil {
		log.SetOutput(os.Stderr)
		_ = rt.logFile.Close()
	}
}

// configureLogging sends logrus output to the configured file, keeping the
// terminal free for the UI. An empty path discards logs.
func configureLogging(cfg config.Config) (io.Closer, error) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true, DisableColors: true})

	if cfg.LogPath == "" {
		log.SetOutput(io.Discard)
		return nil, nil
	}
	f, err := os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	log.SetOutput(f)
	return f, nil
}

// loadFeed runs a full load and applies it. When entries could not be
// fetched the cached ones are used instead, with a warning on w.
func (rt *runtime) loadFeed(ctx context.Context, w io.Writer, trackVisit bool) (int, error) {
	snap, loadErr := rt.service.LoadAll(ctx)
	fresh, applyErr := app.Apply(rt.state, snap, trackVisit)
	if applyErr != nil {
		fmt.Fprintf(w, "warning: %v\n", applyErr)
	}
	if loadErr == nil {
		return fresh, nil
	}
	if snap.EntriesFetched {
		fmt.Fprintf(w, "warning: %v\n", loadErr)
		return fresh, nil
	}

	cached, err := rt.service.ListCached(ctx)
	if err != nil {
		return 0, errors.Join(loadErr, err)
	}
	if len(cached) == 0 {
		return 0, fmt.Errorf("load feed: %w", loadErr)
	}
	fmt.Fprintf(w, "warning: %v, using %d cached entries\n", loadErr, len(cached))
	rt.state.SetEntries(cached)
	return 0, nil
}
