// Package watcher ingests documents dropped into a filesystem directory.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/kart-io/logger"

	"github.com/kart-io/docintel/internal/docintel/biz"
)

// settleDelay is how long a file must sit quiet before it is read.
// Writers that stream a large upload into the drop directory otherwise
// race the ingest.
const settleDelay = 2 * time.Second

var watchedExtensions = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".tif":  true,
	".tiff": true,
	".bmp":  true,
	".webp": true,
}

// Watcher ingests supported documents as they appear in a directory.
type Watcher struct {
	dir    string
	svc    biz.Service
	fs     *fsnotify.Watcher
	settle time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// New creates a watcher on dir. The directory is created if missing.
func New(dir string, svc biz.Service) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fs.Add(dir); err != nil {
		_ = fs.Close()
		return nil, err
	}
	return &Watcher{
		dir:     dir,
		svc:     svc,
		fs:      fs,
		settle:  settleDelay,
		pending: make(map[string]*time.Timer),
	}, nil
}

// Run processes events until the context is cancelled. Files already
// present in the directory are ingested on startup.
func (w *Watcher) Run(ctx context.Context) {
	w.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !watchedExtensions[strings.ToLower(filepath.Ext(event.Name))] {
				continue
			}
			w.schedule(ctx, event.Name)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			logger.Warnw("drop directory watch error", "error", err)
		}
	}
}

// schedule arms the per-path settle timer, or pushes it back when the
// path is already pending. Writers flush a large file in several bursts,
// each raising its own event; the ingest runs once, after the file has
// been quiet for the settle window.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Reset(w.settle)
		return
	}
	w.pending[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		w.ingestFile(ctx, path)
	})
}

// Close releases the underlying filesystem watch and stops pending
// ingests.
func (w *Watcher) Close() {
	_ = w.fs.Close()

	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
}

// sweep ingests files that were dropped while the server was down.
func (w *Watcher) sweep(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		logger.Warnw("failed to list drop directory", "dir", w.dir, "error", err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !watchedExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		w.ingestFile(ctx, filepath.Join(w.dir, entry.Name()))
	}
}

func (w *Watcher) ingestFile(ctx context.Context, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warnw("failed to read dropped file", "path", path, "error", err)
		return
	}
	resp, err := w.svc.Ingest(ctx, filepath.Base(path), data)
	if err != nil {
		logger.Errorw("failed to ingest dropped file", "path", path, "error", err)
		return
	}
	logger.Infow("Ingested dropped file",
		"path", path,
		"document_id", resp.ID,
		"pages", resp.PageCount,
		"chunks", resp.TotalChunks)

	if err := os.Remove(path); err != nil {
		logger.Warnw("failed to remove ingested file", "path", path, "error", err)
	}
}
