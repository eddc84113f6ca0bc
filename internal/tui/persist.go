package tui

import (
	"sync"

	"github.com/janekbaraniewski/calgrid/internal/settings"
)

const ownWriteHistory = 16

// settingsWriter orders settings writes and remembers recent blobs this
// process wrote, so their watcher echoes are not applied as external edits.
// A write whose sequence is older than one already on disk is dropped.
type settingsWriter struct {
	path string

	mu      sync.Mutex
	queued  uint64
	written uint64
	recent  []settings.Settings
}

func newSettingsWriter(path string) *settingsWriter {
	if path == "" {
		return nil
	}
	return &settingsWriter{path: path}
}

// enqueue records s as the newest blob and returns its sequence number.
func (w *settingsWriter) enqueue(s settings.Settings) uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.queued++
	w.recent = append(w.recent, s)
	if len(w.recent) > ownWriteHistory {
		w.recent = w.recent[len(w.recent)-ownWriteHistory:]
	}
	return w.queued
}

// write saves s unless a newer sequence already reached disk.
func (w *settingsWriter) write(seq uint64, s settings.Settings) (skipped bool, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if seq <= w.written {
		return true, nil
	}
	if err := settings.SaveTo(w.path, s); err != nil {
		return false, err
	}
	w.written = seq
	return false, nil
}

// isOwn reports whether s matches a blob this process recently queued.
func (w *settingsWriter) isOwn(s settings.Settings) bool {
	if w == nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, own := range w.recent {
		if own.Equal(s) {
			return true
		}
	}
	return false
}
