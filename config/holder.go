package config

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/pnpstats/adminapi/core/schema"
)

// SpecHolder provides thread-safe access to the model document with hot
// reload support. A failed reload keeps the previous document.
type SpecHolder struct {
	mu       sync.RWMutex
	doc      *schema.Document
	path     string
	logger   zerolog.Logger
	watcher  *fsnotify.Watcher
	onChange []func(*schema.Document)
	stopCh   chan struct{}
}

// NewSpecHolder creates a holder and parses the initial model document.
func NewSpecHolder(path string, logger zerolog.Logger) (*SpecHolder, error) {
	doc, err := schema.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("load spec: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}

	h := &SpecHolder{
		doc:    &doc,
		path:   absPath,
		logger: logger,
		stopCh: make(chan struct{}),
	}

	return h, nil
}

// Get returns the current model document (thread-safe).
func (h *SpecHolder) Get() *schema.Document {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.doc
}

// Path returns the absolute path of the watched document.
func (h *SpecHolder) Path() string {
	return h.path
}

// Reload re-parses the model document from disk.
// Returns error if parsing fails (keeps old document).
func (h *SpecHolder) Reload() error {
	h.logger.Info().Str("path", h.path).Msg("reloading model document")

	newDoc, err := schema.ParseFile(h.path)
	if err != nil {
		h.logger.Error().Err(err).Msg("model document reload failed, keeping old document")
		return fmt.Errorf("reload spec: %w", err)
	}

	h.mu.Lock()
	oldDoc := h.doc
	h.doc = &newDoc
	listeners := make([]func(*schema.Document), len(h.onChange))
	copy(listeners, h.onChange)
	h.mu.Unlock()

	h.logChanges(oldDoc, &newDoc)

	for _, fn := range listeners {
		fn(&newDoc)
	}

	h.logger.Info().Int("models", len(newDoc.Models)).Msg("model document reloaded")
	return nil
}

// OnChange registers a callback to be called when the document changes.
func (h *SpecHolder) OnChange(fn func(*schema.Document)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onChange = append(h.onChange, fn)
}

// WatchFile starts watching the model document for changes.
// Changes trigger automatic reload.
func (h *SpecHolder) WatchFile() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	h.watcher = watcher

	// Watch the directory (more reliable for editors that do atomic saves)
	dir := filepath.Dir(h.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}

	go h.watchLoop()

	h.logger.Info().Str("path", h.path).Msg("watching model document for changes")
	return nil
}

// WatchSignals starts listening for SIGHUP to trigger reload.
func (h *SpecHolder) WatchSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)

	go func() {
		for {
			select {
			case <-sigCh:
				h.logger.Info().Msg("received SIGHUP, reloading model document")
				if err := h.Reload(); err != nil {
					h.logger.Error().Err(err).Msg("SIGHUP reload failed")
				}
			case <-h.stopCh:
				signal.Stop(sigCh)
				return
			}
		}
	}()
}

// Stop stops watching for file changes and signals.
func (h *SpecHolder) Stop() {
	close(h.stopCh)
	if h.watcher != nil {
		h.watcher.Close()
	}
}

func (h *SpecHolder) watchLoop() {
	filename := filepath.Base(h.path)

	for {
		select {
		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}

			// Only react to our document
			if filepath.Base(event.Name) != filename {
				continue
			}

			// React to write or create (atomic save = create)
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				h.logger.Debug().
					Str("event", event.Op.String()).
					Str("file", event.Name).
					Msg("model document changed")

				if err := h.Reload(); err != nil {
					h.logger.Error().Err(err).Msg("file watch reload failed")
				}
			}

		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Msg("file watcher error")

		case <-h.stopCh:
			return
		}
	}
}

func (h *SpecHolder) logChanges(old, new *schema.Document) {
	if len(old.Models) != len(new.Models) {
		h.logger.Info().
			Int("old", len(old.Models)).
			Int("new", len(new.Models)).
			Msg("model count changed")
	}

	for _, key := range new.Keys() {
		if _, ok := old.Models[key]; !ok {
			h.logger.Info().Str("model", key).Msg("model added")
		}
	}
	for _, key := range old.Keys() {
		if _, ok := new.Models[key]; !ok {
			h.logger.Info().Str("model", key).Msg("model removed")
		}
	}
}
