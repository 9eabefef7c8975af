// Package staging reclaims artifacts left behind in the work directory by
// fetches that never reached cleanup, such as those interrupted by a crash.
package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"trackbot/internal/logging"
)

const lockExt = ".lock"

// CleanStaleResult contains the outcome of a sweep.
type CleanStaleResult struct {
	Removed []string
	Skipped []string
	Errors  []CleanupError
}

// CleanupError pairs a path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStale removes artifacts in workDir older than maxAge. Files belonging
// to a key whose lock file is currently held are left alone, and lock files
// themselves are never removed.
func CleanStale(ctx context.Context, workDir string, maxAge time.Duration, logger *slog.Logger) CleanStaleResult {
	result := CleanStaleResult{}

	workDir = strings.TrimSpace(workDir)
	if workDir == "" || maxAge <= 0 {
		return result
	}

	entries, err := os.ReadDir(workDir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: workDir, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	groups := make(map[string][]os.DirEntry)
	var order []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		key := keyOf(entry.Name())
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], entry)
	}

	for _, key := range order {
		if ctx.Err() != nil {
			return result
		}
		sweepKey(workDir, key, groups[key], cutoff, logger, &result)
	}
	return result
}

func sweepKey(workDir, key string, entries []os.DirEntry, cutoff time.Time, logger *slog.Logger, result *CleanStaleResult) {
	var stale []string
	hasLock := false
	for _, entry := range entries {
		path := filepath.Join(workDir, entry.Name())
		if strings.HasSuffix(entry.Name(), lockExt) {
			hasLock = true
			continue
		}
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			continue
		}
		if info.ModTime().Before(cutoff) {
			stale = append(stale, path)
		}
	}

	if hasLock {
		lock := flock.New(filepath.Join(workDir, key+lockExt))
		locked, err := lock.TryLock()
		if err != nil || !locked {
			result.Skipped = append(result.Skipped, stale...)
			if logger != nil && len(stale) > 0 {
				logger.Debug("stale artifacts in use; skipping",
					logging.String("key", key),
					logging.Int("files", len(stale)),
				)
			}
			return
		}
		defer func() { _ = lock.Unlock() }()
	}

	// Lock files stay: a waiter may already hold the inode open.
	for _, path := range stale {
		removeFile(path, logger, result)
	}
}

func removeFile(path string, logger *slog.Logger, result *CleanStaleResult) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
		if logger != nil {
			logger.Warn("failed to remove stale artifact",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldEventType, "artifact_sweep_failed"),
				logging.String(logging.FieldErrorHint, "check work_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
		}
		return
	}
	result.Removed = append(result.Removed, path)
	if logger != nil {
		logger.Info("removed stale artifact",
			logging.String("path", path),
			logging.String(logging.FieldEventType, "artifact_sweep"),
		)
	}
}

// keyOf strips everything from the first dot, so "abc.mp3", "abc.webm.part"
// and "abc.lock" share the key "abc".
func keyOf(name string) string {
	if i := strings.IndexByte(name, '.'); i > 0 {
		return name[:i]
	}
	return name
}

// FileInfo describes one file in the work directory.
type FileInfo struct {
	Name    string
	Path    string
	ModTime time.Time
	Size    int64
}

// ListFiles returns the regular files in workDir with their metadata.
func ListFiles(workDir string) ([]FileInfo, error) {
	workDir = strings.TrimSpace(workDir)
	if workDir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(workDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Name:    entry.Name(),
			Path:    filepath.Join(workDir, entry.Name()),
			ModTime: info.ModTime(),
			Size:    info.Size(),
		})
	}
	return files, nil
}

// Usage totals the artifact files in workDir. Lock files are not counted.
func Usage(workDir string) (count int, bytes int64, err error) {
	files, err := ListFiles(workDir)
	if err != nil {
		return 0, 0, err
	}
	for _, f := range files {
		if strings.HasSuffix(f.Name, lockExt) {
			continue
		}
		count++
		bytes += f.Size
	}
	return count, bytes, nil
}
