package runner

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"vlife/internal/config"
)

// Controller is what a config reload can change on a live run.
// Runner and Ensemble implement it.
type Controller interface {
	SetSpeed(speed int)
	Pause()
	Resume()
}

// WatchConfig reloads the config file at path whenever it changes and applies
// runner.speed and runner.paused to ctl. Rapid saves within debounce are
// coalesced into one reload. Invalid files are logged and ignored.
// It blocks until ctx is canceled.
func WatchConfig(ctx context.Context, path string, ctl Controller, debounce time.Duration, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	path = filepath.Clean(path)
	// Watch the directory: editors replace files by renaming over them.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}
	log.Info("watching config", zap.String("path", path))

	poll := time.NewTicker(max(debounce/5, 10*time.Millisecond))
	defer poll.Stop()

	var pending time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			log.Debug("config event", zap.String("op", event.Op.String()))
			pending = time.Now()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("config watcher error", zap.Error(err))

		case <-poll.C:
			if pending.IsZero() || time.Since(pending) < debounce {
				continue
			}
			pending = time.Time{}
			reload(path, ctl, log)
		}
	}
}

func reload(path string, ctl Controller, log *zap.Logger) {
	cfg, err := config.Load(path)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		log.Warn("config reload skipped", zap.String("path", path), zap.Error(err))
		return
	}

	ctl.SetSpeed(cfg.Runner.Speed)
	if cfg.Runner.Paused {
		ctl.Pause()
	} else {
		ctl.Resume()
	}
	log.Info("config reloaded", zap.Int("speed", cfg.Runner.Speed), zap.Bool("paused", cfg.Runner.Paused))
}
