package lifecycle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/artur/clipforge/internal/logger"
)

// RunPaths holds the scratch locations for one pipeline run
type RunPaths struct {
	Video    string
	Audio    string
	ClipsDir string
}

// Manager owns the scratch and clips roots: it allocates per-run paths,
// sweeps stale scratch files, and deletes delivered clips.
type Manager struct {
	scratchRoot string
	clipsRoot   string
	logger      logger.Logger
}

// New creates a Manager for the given roots
func New(scratchRoot, clipsRoot string, log logger.Logger) *Manager {
	return &Manager{
		scratchRoot: scratchRoot,
		clipsRoot:   clipsRoot,
		logger:      log,
	}
}

// EnsureDirs creates the scratch and clips roots if they do not exist
func (m *Manager) EnsureDirs() error {
	for _, dir := range []string{m.scratchRoot, m.clipsRoot} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// NewRunPaths allocates unique scratch locations for one run. Uniqueness
// comes from a timestamp plus a random suffix so concurrent runs never collide.
func (m *Manager) NewRunPaths() (RunPaths, error) {
	suffix := fmt.Sprintf("%d-%s", time.Now().UnixNano(), uuid.NewString()[:8])

	paths := RunPaths{
		Video:    filepath.Join(m.scratchRoot, "original-"+suffix+".mp4"),
		Audio:    filepath.Join(m.scratchRoot, "audio-"+suffix+".mp3"),
		ClipsDir: filepath.Join(m.clipsRoot, "clips-"+suffix),
	}

	if err := os.MkdirAll(paths.ClipsDir, 0755); err != nil {
		return RunPaths{}, fmt.Errorf("failed to create clips directory: %w", err)
	}

	return paths, nil
}

// Sweep deletes anything under the scratch root older than maxAge. Failures
// are logged and do not stop the sweep.
func (m *Manager) Sweep(ctx context.Context, maxAge time.Duration) {
	entries, err := os.ReadDir(m.scratchRoot)
	if err != nil {
		m.logger.Warn(ctx, "Failed to read scratch root %s: %v", m.scratchRoot, err)
		return
	}

	now := time.Now()
	for _, entry := range entries {
		path := filepath.Join(m.scratchRoot, entry.Name())

		info, err := entry.Info()
		if err != nil {
			m.logger.Warn(ctx, "Failed to stat %s: %v", path, err)
			continue
		}

		if now.Sub(info.ModTime()) <= maxAge {
			continue
		}

		if err := os.RemoveAll(path); err != nil {
			m.logger.Warn(ctx, "Failed to sweep %s: %v", path, err)
			continue
		}
		m.logger.Info(ctx, "Swept stale scratch entry: %s", entry.Name())
	}
}

// CleanupFile removes a file best-effort, logging on failure
func (m *Manager) CleanupFile(ctx context.Context, path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil {
		if !os.IsNotExist(err) {
			m.logger.Warn(ctx, "Failed to cleanup file %s: %v", path, err)
		}
		return
	}
	m.logger.Debug(ctx, "Cleaned up file: %s", path)
}

// CleanupDir removes a directory tree best-effort, logging on failure
func (m *Manager) CleanupDir(ctx context.Context, path string) {
	if path == "" {
		return
	}
	if err := os.RemoveAll(path); err != nil {
		m.logger.Warn(ctx, "Failed to cleanup directory %s: %v", path, err)
		return
	}
	m.logger.Debug(ctx, "Cleaned up directory: %s", path)
}
