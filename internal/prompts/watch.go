package prompts

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watch starts reloading the prompts file whenever it changes on disk.
// The parent directory is watched rather than the file itself so that
// editors which replace the file by rename keep triggering reloads.
func (s *Store) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	s.watcher = watcher
	s.done = make(chan struct{})
	go s.eventLoop()

	log.Info().Str("path", s.path).Msg("Prompt hot reload enabled")
	return nil
}

// Stop stops the watcher. Safe to call when Watch was never started.
func (s *Store) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		if s.watcher == nil {
			return
		}
		close(s.done)

		s.debounceMu.Lock()
		if s.reloadTimer != nil {
			s.reloadTimer.Stop()
		}
		s.debounceMu.Unlock()

		err = s.watcher.Close()
	})
	if err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

func (s *Store) eventLoop() {
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(s.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			s.scheduleReload()

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("Prompt watcher error")

		case <-s.done:
			return
		}
	}
}

// scheduleReload debounces rapid write events so the file is re-read
// once it has settled.
func (s *Store) scheduleReload() {
	s.debounceMu.Lock()
	defer s.debounceMu.Unlock()

	if s.reloadTimer != nil {
		s.reloadTimer.Stop()
	}

	s.reloadTimer = time.AfterFunc(s.stabilityThreshold, func() {
		select {
		case <-s.done:
			return
		default:
		}

		if err := s.Load(); err != nil {
			log.Error().Err(err).Str("path", s.path).Msg("Prompt reload failed, keeping previous prompts")
			return
		}
		log.Info().Str("path", s.path).Msg("Prompts reloaded")
	})
}
