package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable by the core pipeline. The bot
// token is checked separately by RequireBotToken because CLI commands that do
// not talk to the transport can run without it.
func (c *Config) Validate() error {
	if err := c.validateIndex(); err != nil {
		return err
	}
	if err := c.validateFetch(); err != nil {
		return err
	}
	if c.Paths.WorkDir == "" {
		return errors.New("paths.work_dir must be set")
	}
	return ensurePositiveMap(map[string]int{
		"telegram.poll_timeout":         c.Telegram.PollTimeout,
		"telegram.send_timeout":         c.Telegram.SendTimeout,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	})
}

// RequireBotToken reports a descriptive error when no bot token is configured.
func (c *Config) RequireBotToken() error {
	if c.Telegram.BotToken != "" {
		return nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = defaultConfigPath
	}
	return fmt.Errorf("telegram.bot_token is required. Set TELEGRAM_BOT_TOKEN (or add it to .env) or edit %s (create with 'trackbot config init')", defaultPath)
}

func (c *Config) validateIndex() error {
	if c.Index.CandidateCount < 1 {
		return errors.New("index.candidate_count must be at least 1")
	}
	if c.Index.RequestsPerSecond < 0 {
		return errors.New("index.requests_per_second must be >= 0 (0 disables limiting)")
	}
	switch c.Index.Resolver {
	case ResolverYTDLP, ResolverNative:
	default:
		return fmt.Errorf("index.resolver: unsupported value %q (want %q or %q)", c.Index.Resolver, ResolverYTDLP, ResolverNative)
	}
	return ensurePositiveMap(map[string]int{
		"index.search_timeout":  c.Index.SearchTimeout,
		"index.resolve_timeout": c.Index.ResolveTimeout,
	})
}

func (c *Config) validateFetch() error {
	if c.Fetch.SizeCeilingBytes <= 0 {
		return errors.New("fetch.size_ceiling_bytes must be positive")
	}
	if c.Fetch.BitrateKbps <= 0 {
		return errors.New("fetch.bitrate_kbps must be positive")
	}
	if c.Fetch.Codec != defaultCodec {
		return fmt.Errorf("fetch.codec: unsupported value %q (only %q is produced)", c.Fetch.Codec, defaultCodec)
	}
	if c.Fetch.DownloadTimeout <= 0 {
		return errors.New("fetch.download_timeout must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
