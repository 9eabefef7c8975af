package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"trackbot/internal/artifact"
	"trackbot/internal/identity"
	"trackbot/internal/logging"
	"trackbot/internal/media"
	"trackbot/internal/mp3info"
	"trackbot/internal/services"
	"trackbot/internal/services/ytdlp"
	"trackbot/internal/sizing"
)

// Resolver obtains stream metadata without transferring payload bytes.
type Resolver interface {
	Resolve(ctx context.Context, mediaID string) (media.StreamInfo, error)
}

// Transcoder downloads the best audio stream and converts it.
type Transcoder interface {
	Download(ctx context.Context, mediaID string, opts ytdlp.DownloadOptions) error
}

// Options holds the policy values the engine applies.
type Options struct {
	CeilingBytes    int64
	BitrateKbps     int
	Codec           string
	ResolveTimeout  time.Duration
	DownloadTimeout time.Duration
}

// Option configures the engine.
type Option func(*Engine)

// WithObserver receives every state transition (primarily for tests).
func WithObserver(fn func(mediaID string, state State)) Option {
	return func(e *Engine) {
		if fn != nil {
			e.observe = fn
		}
	}
}

// WithProbe replaces artifact inspection.
func WithProbe(fn func(path string) (mp3info.Info, error)) Option {
	return func(e *Engine) {
		if fn != nil {
			e.probe = fn
		}
	}
}

// Engine runs fetches.
type Engine struct {
	resolver   Resolver
	transcoder Transcoder
	estimator  sizing.Estimator
	arena      *artifact.Arena
	opts       Options
	logger     *slog.Logger
	observe    func(string, State)
	probe      func(string) (mp3info.Info, error)
}

// New constructs an engine writing artifacts into arena.
func New(resolver Resolver, transcoder Transcoder, arena *artifact.Arena, opts Options, logger *slog.Logger, options ...Option) *Engine {
	if opts.Codec == "" {
		opts.Codec = "mp3"
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	e := &Engine{
		resolver:   resolver,
		transcoder: transcoder,
		estimator:  sizing.New(opts.BitrateKbps),
		arena:      arena,
		opts:       opts,
		logger:     logging.NewComponentLogger(logger, "fetch"),
		observe:    func(string, State) {},
		probe:      mp3info.Probe,
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

// Fetch produces a Result for mediaID. Cancelling ctx does not abort the
// fetch; only the configured timeouts bound it.
func (e *Engine) Fetch(ctx context.Context, mediaID string) Result {
	ctx = services.WithMediaID(context.WithoutCancel(ctx), mediaID)
	logger := logging.WithContext(ctx, e.logger)

	acquireCtx, cancel := withTimeout(ctx, e.opts.ResolveTimeout+e.opts.DownloadTimeout)
	lease, err := e.arena.Acquire(acquireCtx, mediaID)
	cancel()
	if err != nil {
		marker := services.ErrTranscodeFailed
		if errors.Is(err, artifact.ErrInvalidKey) {
			marker = services.ErrResolveFailed
		}
		return e.fail(logger, mediaID, nil, services.Wrap(marker, "fetch", "acquire artifact", "", err))
	}
	if err := lease.Remove(); err != nil {
		return e.fail(logger, mediaID, lease, services.Wrap(services.ErrTranscodeFailed, "fetch", "remove stale artifact", "", err))
	}

	e.enter(logger, mediaID, StateResolving)
	info, err := e.resolve(ctx, mediaID)
	if err != nil {
		return e.fail(logger, mediaID, lease, services.Wrap(services.ErrResolveFailed, "fetch", "resolve", "metadata unavailable", err))
	}

	e.enter(logger, mediaID, StateEstimating)
	estimate := e.estimator.Estimate(info)
	logger.Debug("size estimated",
		logging.Int64("estimated_bytes", estimate.Bytes),
		logging.String("basis", string(estimate.Basis)),
		logging.Int64("ceiling_bytes", e.opts.CeilingBytes),
	)
	if estimate.Exceeds(e.opts.CeilingBytes) {
		e.enter(logger, mediaID, StateGated)
		e.cleanup(logger, lease)
		logger.Info("fetch gated by size ceiling",
			logging.String(logging.FieldEventType, "fetch_gated"),
			logging.Int64("estimated_bytes", estimate.Bytes),
		)
		return TooLarge{MediaID: mediaID, EstimatedBytes: estimate.Bytes, CeilingBytes: e.opts.CeilingBytes, Basis: estimate.Basis}
	}
	if estimate.Basis == sizing.BasisUnknown {
		logging.WarnWithContext(logger, "size unknown before transcoding", "size_unknown",
			logging.String(logging.FieldImpact, "artifact size is checked only after transcoding"),
		)
	}

	e.enter(logger, mediaID, StateTranscoding)
	started := time.Now()
	if err := e.transcode(ctx, logger, lease); err != nil {
		marker := services.ErrTranscodeFailed
		if errors.Is(err, identity.ErrRejected) || errors.Is(err, services.ErrCredentialsMissing) {
			marker = services.ErrResolveFailed
		}
		return e.fail(logger, mediaID, lease, services.Wrap(marker, "fetch", "transcode", "", err))
	}

	size, err := lease.Stat()
	if err == nil && size == 0 {
		err = errors.New("output file is empty")
	}
	if err != nil {
		return e.fail(logger, mediaID, lease, services.Wrap(services.ErrTranscodeFailed, "fetch", "verify output", "expected artifact missing", err))
	}
	if size > e.opts.CeilingBytes {
		e.enter(logger, mediaID, StateGated)
		e.cleanup(logger, lease)
		logger.Info("artifact exceeds size ceiling after transcoding",
			logging.String(logging.FieldEventType, "fetch_gated"),
			logging.Int64("size_bytes", size),
		)
		return TooLarge{MediaID: mediaID, EstimatedBytes: size, CeilingBytes: e.opts.CeilingBytes, Basis: estimate.Basis}
	}

	ready := Ready{
		MediaID:   mediaID,
		Title:     info.Title,
		Path:      lease.Path(),
		SizeBytes: size,
		Duration:  time.Duration(info.DurationSeconds * float64(time.Second)),
		lease:     lease,
	}
	if probed, err := e.probe(ready.Path); err != nil {
		logger.Debug("artifact probe failed", logging.Error(err))
	} else if probed.Duration > 0 {
		ready.Duration = probed.Duration
	}

	e.enter(logger, mediaID, StateReady)
	logger.Info("artifact ready",
		logging.String(logging.FieldEventType, "fetch_ready"),
		logging.Int64("size_bytes", size),
		logging.Int64("estimated_bytes", estimate.Bytes),
		logging.Duration("duration", ready.Duration),
		logging.Duration("elapsed", time.Since(started)),
	)
	return ready
}

func (e *Engine) resolve(ctx context.Context, mediaID string) (media.StreamInfo, error) {
	resolveCtx, cancel := withTimeout(ctx, e.opts.ResolveTimeout)
	defer cancel()
	info, err := e.resolver.Resolve(resolveCtx, mediaID)
	if err != nil {
		return media.StreamInfo{}, err
	}
	if info.MediaID == "" {
		info.MediaID = mediaID
	}
	return info, nil
}

func (e *Engine) transcode(ctx context.Context, logger *slog.Logger, lease *artifact.Lease) error {
	downloadCtx, cancel := withTimeout(ctx, e.opts.DownloadTimeout)
	defer cancel()
	return e.transcoder.Download(downloadCtx, lease.Key(), ytdlp.DownloadOptions{
		OutputTemplate: lease.OutputTemplate(),
		Codec:          e.opts.Codec,
		BitrateKbps:    e.opts.BitrateKbps,
		Progress: func(line string) {
			if line = strings.TrimSpace(line); line != "" {
				logger.Debug("ytdlp output", logging.String("line", line))
			}
		},
	})
}

func (e *Engine) enter(logger *slog.Logger, mediaID string, state State) {
	logger.Debug("fetch state", logging.String("state", string(state)))
	e.observe(mediaID, state)
}

func (e *Engine) fail(logger *slog.Logger, mediaID string, lease *artifact.Lease, err error) Result {
	if lease != nil {
		e.cleanup(logger, lease)
	}
	e.enter(logger, mediaID, StateFailed)
	logging.ErrorWithContext(logger, "fetch failed", "fetch_failed",
		logging.String(logging.FieldErrorKind, services.Kind(err)),
		logging.String(logging.FieldErrorHint, hintFor(err)),
		logging.Error(err),
	)
	return Failed{MediaID: mediaID, Err: err}
}

func (e *Engine) cleanup(logger *slog.Logger, lease *artifact.Lease) {
	if err := lease.Remove(); err != nil {
		logger.Warn("artifact cleanup failed", logging.Error(err), logging.String(logging.FieldImpact, "stale files remain until the next sweep"))
	}
	if err := lease.Release(); err != nil {
		logger.Warn("artifact lock release failed", logging.Error(err))
	}
}

func hintFor(err error) string {
	switch {
	case errors.Is(err, services.ErrCredentialsMissing):
		return "provide identity.cookies_file or disable identity.require_cookies"
	case errors.Is(err, identity.ErrRejected):
		return "source asked for sign-in; export fresh cookies to identity.cookies_file"
	case errors.Is(err, os.ErrNotExist):
		return "check that ffmpeg is installed and reachable by yt-dlp"
	case errors.Is(err, services.ErrResolveFailed):
		return "update yt-dlp and verify the media is still available"
	case errors.Is(err, services.ErrTranscodeFailed):
		return "check ffmpeg installation and free space in paths.work_dir"
	default:
		return fmt.Sprintf("inspect %s failure details", services.Kind(err))
	}
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
