package rbac

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Manager keeps the last valid Document loaded from a file. It reloads on
// file events and on a fixed interval; a document that fails to load or
// validate never replaces the current one.
type Manager struct {
	filePath string
	dirPath  string
	baseName string

	log      *slog.Logger
	debounce time.Duration
	interval time.Duration
	onReload func(*Document)

	current atomic.Pointer[Document]
}

type Options struct {
	Logger   *slog.Logger
	Debounce time.Duration
	Interval time.Duration
	// OnReload runs after every successful load, including the first.
	OnReload func(*Document)
}

func NewManager(filePath string, opts Options) *Manager {
	m := &Manager{
		filePath: filePath,
		dirPath:  filepath.Dir(filePath),
		baseName: filepath.Base(filePath),
		log:      opts.Logger,
		debounce: opts.Debounce,
		interval: opts.Interval,
		onReload: opts.OnReload,
	}
	if m.log == nil {
		m.log = slog.Default()
	}
	if m.debounce <= 0 {
		m.debounce = 200 * time.Millisecond
	}
	if m.interval <= 0 {
		m.interval = 30 * time.Second
	}
	return m
}

func (m *Manager) Current() (*Document, bool) {
	d := m.current.Load()
	return d, d != nil
}

// Start loads the file once and fails if that load fails. Watching stops
// when ctx is done.
func (m *Manager) Start(ctx context.Context) error {
	if err := m.reload(); err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if err := w.Add(m.dirPath); err != nil {
		_ = w.Close()
		return err
	}

	go m.watch(ctx, w)
	return nil
}

func (m *Manager) watch(ctx context.Context, w *fsnotify.Watcher) {
	defer w.Close()

	var timer *time.Timer
	trigger := func() {
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(m.debounce, func() {
			if err := m.reload(); err != nil {
				m.log.Error("rbac reload failed, keeping last known good", "path", m.filePath, "err", err)
			} else {
				m.log.Info("rbac policy reloaded", "path", m.filePath)
			}
		})
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-ticker.C:
			if err := m.reload(); err != nil {
				m.log.Error("rbac periodic reload failed, keeping last known good", "path", m.filePath, "err", err)
			}
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			// ConfigMap mounts swap a "..data" symlink instead of writing the file.
			name := filepath.Base(ev.Name)
			if name == m.baseName || name == "..data" {
				trigger()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			m.log.Error("rbac watcher error", "err", err)
		}
	}
}

func (m *Manager) reload() error {
	doc, err := LoadFromFile(m.filePath)
	if err != nil {
		return err
	}
	m.current.Store(doc)
	if m.onReload != nil {
		m.onReload(doc)
	}
	return nil
}
