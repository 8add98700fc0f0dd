package siteconfig

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/louisbranch/folio/internal/platform/timeouts"
	"go.uber.org/zap"
)

// Watch imports path once and then again after every change to it until
// ctx is done. The parent directory is watched so editors that replace the
// file by rename are still seen. Failed imports are logged and the last
// good configuration stays in place.
func (s *Service) Watch(ctx context.Context, path string) error {
	path, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve theme file: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}
	s.logger.Info("watching theme file", zap.String("path", path))
	if err := s.importFile(ctx, path); err != nil {
		s.logger.Warn("theme file import failed", zap.String("path", path), zap.Error(err))
	}

	debounce := time.NewTimer(time.Hour)
	debounce.Stop()
	defer debounce.Stop()
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
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			debounce.Reset(timeouts.WatchDebounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("theme watcher error", zap.Error(err))
		case <-debounce.C:
			if err := s.importFile(ctx, path); err != nil {
				s.logger.Warn("theme file import failed", zap.String("path", path), zap.Error(err))
				continue
			}
			s.logger.Info("theme file reloaded", zap.String("path", path))
		}
	}
}

func (s *Service) importFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return s.ImportYAML(ctx, f)
}
