package botrun

import (
	"fmt"
	"log/slog"

	"trackbot/internal/artifact"
	"trackbot/internal/catalog"
	"trackbot/internal/config"
	"trackbot/internal/delivery"
	"trackbot/internal/fetch"
	"trackbot/internal/identity"
	"trackbot/internal/logging"
	"trackbot/internal/notifications"
	"trackbot/internal/services/youtube"
	"trackbot/internal/services/ytdlp"
)

// Core holds the transport-independent components.
type Core struct {
	Catalog  *catalog.Client
	Engine   *fetch.Engine
	Pipeline *delivery.Pipeline
	Arena    *artifact.Arena
	Notifier notifications.Service
}

// BuildOption customizes Build.
type BuildOption func(*buildOptions)

type buildOptions struct {
	ytdlpOpts []ytdlp.Option
	notifier  notifications.Service
}

// WithYTDLPOptions appends options to the yt-dlp client (primarily for tests).
func WithYTDLPOptions(opts ...ytdlp.Option) BuildOption {
	return func(b *buildOptions) {
		b.ytdlpOpts = append(b.ytdlpOpts, opts...)
	}
}

// WithNotifier replaces the ntfy-backed notifier.
func WithNotifier(n notifications.Service) BuildOption {
	return func(b *buildOptions) {
		b.notifier = n
	}
}

// Build wires the core from cfg. The work directory must already exist.
func Build(cfg *config.Config, logger *slog.Logger, opts ...BuildOption) (*Core, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	var options buildOptions
	for _, opt := range opts {
		opt(&options)
	}

	provider := identity.NewFileProvider(cfg.Identity)
	ytdlpOpts := []ytdlp.Option{
		ytdlp.WithIdentity(provider),
		ytdlp.WithRateLimit(cfg.Index.RequestsPerSecond, cfg.Index.Burst),
		ytdlp.WithFFmpeg(cfg.Binaries.FFmpeg),
	}
	client, err := ytdlp.New(cfg.Binaries.YTDLP, append(ytdlpOpts, options.ytdlpOpts...)...)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp client: %w", err)
	}

	var resolver fetch.Resolver = client
	if cfg.Index.Resolver == config.ResolverNative {
		resolver = youtube.New(cfg.ResolveTimeout(),
			youtube.WithIdentity(provider),
			youtube.WithRateLimit(cfg.Index.RequestsPerSecond, cfg.Index.Burst),
		)
	}

	arena, err := artifact.New(cfg.Paths.WorkDir, cfg.Fetch.Codec, logger)
	if err != nil {
		return nil, fmt.Errorf("artifact arena: %w", err)
	}

	engine := fetch.New(resolver, client, arena, fetch.Options{
		CeilingBytes:    cfg.Fetch.SizeCeilingBytes,
		BitrateKbps:     cfg.Fetch.BitrateKbps,
		Codec:           cfg.Fetch.Codec,
		ResolveTimeout:  cfg.ResolveTimeout(),
		DownloadTimeout: cfg.DownloadTimeout(),
	}, logger)

	notifier := options.notifier
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}

	searcher := catalog.New(client, cfg.Index.CandidateCount, cfg.SearchTimeout(), logger)
	return &Core{
		Catalog:  searcher,
		Engine:   engine,
		Pipeline: delivery.New(searcher, engine, notifier, cfg.Fetch.SizeCeilingBytes, logger),
		Arena:    arena,
		Notifier: notifier,
	}, nil
}
