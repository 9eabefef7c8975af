package botrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"trackbot/internal/config"
	"trackbot/internal/deps"
	"trackbot/internal/logging"
	"trackbot/internal/notifications"
	"trackbot/internal/preflight"
	"trackbot/internal/services/telegram"
	"trackbot/internal/staging"
)

// ErrAlreadyRunning is returned when another instance holds the lock.
var ErrAlreadyRunning = errors.New("another trackbot instance is already running")

// Options configures process runtime behavior.
type Options struct {
	LogLevel string
}

// Run starts the bot and blocks until ctx is cancelled or SIGINT/SIGTERM
// arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.RequireBotToken(); err != nil {
		return err
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	lock := flock.New(cfg.Paths.LockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return ErrAlreadyRunning
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release instance lock", logging.Error(err))
		}
	}()

	logDependencySnapshot(logger, cfg)
	logPreflight(signalCtx, logger, cfg)

	core, err := Build(cfg, logger)
	if err != nil {
		return err
	}

	api, err := telegram.NewAPI(cfg.Telegram.BotToken,
		time.Duration(cfg.Telegram.PollTimeout)*time.Second,
		time.Duration(cfg.Telegram.SendTimeout)*time.Second,
	)
	if err != nil {
		return err
	}
	bot := telegram.New(api, core.Pipeline, telegram.Options{
		PollTimeoutSeconds: cfg.Telegram.PollTimeout,
		CandidateCount:     cfg.Index.CandidateCount,
		CeilingBytes:       cfg.Fetch.SizeCeilingBytes,
	}, logger)

	go sweepLoop(signalCtx, cfg.Paths.WorkDir, cfg.StaleArtifactAge(), logger)

	if err := core.Notifier.Publish(signalCtx, notifications.EventBotStarted, startupPayload(api.Self.UserName)); err != nil {
		logger.Debug("startup notification failed", logging.Error(err))
	}

	logger.Info("trackbot started",
		logging.String(logging.FieldEventType, "bot_started"),
		logging.String("work_dir", cfg.Paths.WorkDir),
		logging.String("resolver", cfg.Index.Resolver),
	)
	err = bot.Run(signalCtx)
	logger.Info("trackbot shutting down")
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// sweepLoop reclaims stale artifacts once at startup and then periodically.
func sweepLoop(ctx context.Context, workDir string, maxAge time.Duration, logger *slog.Logger) {
	if maxAge <= 0 {
		return
	}
	sweep := func() {
		result := staging.CleanStale(ctx, workDir, maxAge, logger)
		if len(result.Removed) > 0 || len(result.Errors) > 0 {
			logger.Info("artifact sweep complete",
				logging.String(logging.FieldEventType, "artifact_sweep_summary"),
				logging.Int("removed", len(result.Removed)),
				logging.Int("skipped", len(result.Skipped)),
				logging.Int("errors", len(result.Errors)),
			)
		}
	}
	sweep()

	interval := max(maxAge/2, time.Minute)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}

func startupPayload(botName string) notifications.Payload {
	return notifications.Payload{"bot": botName}
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	statuses := deps.Check(cfg)
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("cookies_configured", cfg.Identity.CookiesFile != ""),
		logging.Bool("notifications_enabled", cfg.Notifications.NtfyTopic != ""),
	}
	for _, status := range statuses {
		key := strings.ReplaceAll(strings.ToLower(status.Name), "-", "")
		attrs = append(attrs,
			logging.Bool(key+"_available", status.Available),
			logging.String(key+"_binary", status.Command),
		)
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)

	for _, missing := range deps.Missing(statuses) {
		logging.WarnWithContext(logger, "required dependency unavailable", "dependency_missing",
			logging.String(logging.FieldErrorHint, "install "+missing.Name+" or set its path under [binaries]"),
			logging.String(logging.FieldImpact, "fetches will fail until it is installed"),
			logging.String("dependency", missing.Name),
			logging.String("detail", missing.Detail),
		)
	}
}

func logPreflight(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	for _, result := range preflight.RunAll(ctx, cfg, preflight.Options{}) {
		if result.Passed {
			logger.Debug("preflight check passed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail),
			)
			continue
		}
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "run 'trackbot status' for details"),
			logging.String(logging.FieldImpact, "requests depending on this check will fail"),
		)
	}
}
