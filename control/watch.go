// control/watch.go
// Author: momentics <momentics@gmail.com>
//
// fsnotify-backed config file watcher.

package control

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// WatchFile reloads path into cs whenever it is written or re-created and
// then fires the registered reload hooks. The parent directory is watched so
// editors that replace the file are followed. It blocks until ctx is done.
func WatchFile(ctx context.Context, cs *ConfigStore, path string, logger logrus.FieldLogger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(path)); err != nil {
		return err
	}
	target := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := cs.LoadFile(path); err != nil {
				logger.WithError(err).Warn("config reload failed")
				continue
			}
			logger.WithField("path", path).Info("config reloaded")
			TriggerHotReloadSync()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.WithError(err).Warn("config watcher error")
		}
	}
}
