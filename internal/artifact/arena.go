package artifact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"trackbot/internal/logging"
)

const (
	lockExt           = ".lock"
	defaultRetryDelay = 250 * time.Millisecond
)

// ErrInvalidKey is returned for keys that could name a path outside the
// working directory.
var ErrInvalidKey = errors.New("invalid artifact key")

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidKey reports whether key is safe to use as a file stem.
func ValidKey(key string) bool {
	return keyPattern.MatchString(key)
}

// Arena hands out leases on artifact keys under one directory.
type Arena struct {
	dir        string
	ext        string
	retryDelay time.Duration
	logger     *slog.Logger

	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	sem  chan struct{}
	refs int
}

// New prepares dir and returns an arena producing files with extension ext
// (for example "mp3").
func New(dir, ext string, logger *slog.Logger) (*Arena, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("artifact directory required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve artifact directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Arena{
		dir:        abs,
		ext:        strings.TrimPrefix(strings.TrimSpace(ext), "."),
		retryDelay: defaultRetryDelay,
		logger:     logging.NewComponentLogger(logger, "artifact"),
		slots:      make(map[string]*slot),
	}, nil
}

// Dir returns the absolute working directory.
func (a *Arena) Dir() string {
	return a.dir
}

// Acquire blocks until key is free in this process and across processes, or
// ctx ends.
func (a *Arena) Acquire(ctx context.Context, key string) (*Lease, error) {
	if !ValidKey(key) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	s := a.ref(key)
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		a.unref(key)
		return nil, ctx.Err()
	}

	lock := flock.New(filepath.Join(a.dir, key+lockExt))
	ok, err := lock.TryLockContext(ctx, a.retryDelay)
	if err != nil || !ok {
		<-s.sem
		a.unref(key)
		if err == nil {
			err = errors.New("lock not acquired")
		}
		return nil, fmt.Errorf("lock artifact %s: %w", key, err)
	}
	return &Lease{arena: a, key: key, lock: lock, slot: s}, nil
}

func (a *Arena) ref(key string) *slot {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.slots[key]
	if !ok {
		s = &slot{sem: make(chan struct{}, 1)}
		a.slots[key] = s
	}
	s.refs++
	return s
}

func (a *Arena) unref(key string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.slots[key]
	if !ok {
		return
	}
	s.refs--
	if s.refs <= 0 {
		delete(a.slots, key)
	}
}

// Lease is exclusive access to one artifact key.
type Lease struct {
	arena *Arena
	key   string
	lock  *flock.Flock
	slot  *slot
	once  sync.Once
}

// Key returns the media ID the lease covers.
func (l *Lease) Key() string {
	return l.key
}

// Path is the final artifact location, <work>/<id>.<ext>.
func (l *Lease) Path() string {
	return filepath.Join(l.arena.dir, l.key+"."+l.arena.ext)
}

// OutputTemplate is the yt-dlp -o value that lands intermediates next to the
// final artifact.
func (l *Lease) OutputTemplate() string {
	return filepath.Join(l.arena.dir, l.key+".%(ext)s")
}

// Stat returns the size of the final artifact. A missing file reports
// os.ErrNotExist.
func (l *Lease) Stat() (int64, error) {
	info, err := os.Stat(l.Path())
	if err != nil {
		return 0, err
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("%s is not a regular file", l.Path())
	}
	return info.Size(), nil
}

// Remove deletes the final artifact and any intermediates for the key. It is
// safe to call repeatedly.
func (l *Lease) Remove() error {
	matches, err := filepath.Glob(filepath.Join(l.arena.dir, l.key+".*"))
	if err != nil {
		return fmt.Errorf("list artifacts for %s: %w", l.key, err)
	}
	var errs []error
	for _, path := range matches {
		if strings.HasSuffix(path, lockExt) {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		l.arena.logger.Debug("artifact removed", logging.String("path", path))
	}
	return errors.Join(errs...)
}

// Release gives the key back. Subsequent calls are no-ops.
func (l *Lease) Release() error {
	var err error
	l.once.Do(func() {
		err = l.lock.Unlock()
		<-l.slot.sem
		l.arena.unref(l.key)
	})
	return err
}
