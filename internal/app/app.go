// Package app wires configuration, logging, storage and the two engines
// into one runnable unit with a clean start/stop lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"postpilot/internal/analytics"
	"postpilot/internal/config"
	"postpilot/internal/report"
	"postpilot/internal/scheduling"
	"postpilot/internal/social"
	"postpilot/internal/store"
	"postpilot/pkg/logx"
)

type App struct {
	cfgMgr *config.Manager
	logSvc *logx.Service
	log    logx.Logger

	st       store.Store
	sched    *scheduling.Service
	metrics  *analytics.Service
	reporter *report.Reporter

	watchCancel context.CancelFunc
	cfgCh       chan *config.Config
}

// New builds the full service graph from the config file. A missing file is
// not fatal: defaults apply, and the watcher picks the file up if it appears.
func New(cfgPath string) (*App, error) {
	mgr := config.NewManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load config %q: %w", cfgPath, err)
		}
		cfg = config.Default()
		mgr.Commit(cfg)
	}

	logSvc, log := logx.New(cfg.LogConfig())
	mgr.SetLogger(log.With(logx.String("component", "config")))
	if errors.Is(err, os.ErrNotExist) {
		log.Warn("config file missing; using defaults", logx.String("path", cfgPath))
	}

	busy, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	st, err := store.Open(store.Config{
		Driver:      cfg.Storage.Driver,
		Dir:         cfg.DataDir,
		Path:        cfg.Storage.Path,
		BusyTimeout: busy,
	}, log.With(logx.String("component", "store")))
	if err != nil {
		_ = logSvc.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}

	metrics := analytics.New(st, log.With(logx.String("component", "analytics")))

	every, err := cfg.ScanEvery()
	if err != nil {
		_ = st.Close()
		_ = logSvc.Close()
		return nil, err
	}
	sched := scheduling.New(scheduling.Config{
		ScanEvery:   every,
		PublishRate: cfg.PublishRate,
	}, st, log.With(logx.String("component", "scheduling")))

	// Delivered posts feed the cumulative "posts" series.
	sched.SetPublishHook(func(user string, post social.ScheduledPost) {
		metrics.MarkPublished(user, post.Platform, post.ID)
	})

	return &App{
		cfgMgr:   mgr,
		logSvc:   logSvc,
		log:      log,
		st:       st,
		sched:    sched,
		metrics:  metrics,
		reporter: report.New(metrics, sched),
	}, nil
}

// Start loads persisted state, begins the publishing scan and watches the
// config file for live changes.
func (a *App) Start(ctx context.Context) error {
	if err := a.sched.Load(ctx); err != nil {
		return err
	}
	if err := a.metrics.Load(ctx); err != nil {
		return err
	}
	if err := a.sched.Start(ctx); err != nil {
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	a.watchCancel = cancel
	a.cfgCh = a.cfgMgr.Subscribe(1)

	go func() {
		if err := a.cfgMgr.Watch(watchCtx); err != nil {
			a.log.Warn("config watch unavailable", logx.Err(err))
		}
	}()
	go a.applyUpdates(watchCtx)

	a.log.Info("postpilot started")
	return nil
}

func (a *App) applyUpdates(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-a.cfgCh:
			if !ok || cfg == nil {
				return
			}
			a.logSvc.Apply(cfg.LogConfig())
			every, err := cfg.ScanEvery()
			if err != nil {
				a.log.Warn("reload kept previous scan interval", logx.Err(err))
				continue
			}
			a.sched.Apply(ctx, scheduling.Config{
				ScanEvery:   every,
				PublishRate: cfg.PublishRate,
			})
			// Storage settings are fixed for the process lifetime.
			a.log.Debug("config applied; storage changes require restart")
		}
	}
}

// Stop shuts the app down in dependency order: scan first (drains the
// in-flight pass), then storage, then logging.
func (a *App) Stop(ctx context.Context) error {
	if a.watchCancel != nil {
		a.watchCancel()
		a.watchCancel = nil
	}
	if a.cfgCh != nil {
		a.cfgMgr.Unsubscribe(a.cfgCh)
		a.cfgCh = nil
	}

	a.sched.Stop(ctx)

	var firstErr error
	if err := a.st.Close(); err != nil {
		firstErr = err
	}
	a.log.Info("postpilot stopped")
	if err := a.logSvc.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Consumer contract for the menu/profile layer.

func (a *App) Scheduler() *scheduling.Service { return a.sched }
func (a *App) Metrics() *analytics.Service    { return a.metrics }
func (a *App) Reporter() *report.Reporter     { return a.reporter }
