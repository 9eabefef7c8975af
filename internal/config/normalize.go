package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTelegram()
	c.normalizeIndex()
	c.normalizeFetch()
	if err := c.normalizeIdentity(); err != nil {
		return err
	}
	c.normalizeBinaries()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LockPath) == "" {
		c.Paths.LockPath = defaultLockPath
	}
	if c.Paths.LockPath, err = expandPath(c.Paths.LockPath); err != nil {
		return fmt.Errorf("paths.lock_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeTelegram() {
	c.Telegram.BotToken = strings.TrimSpace(c.Telegram.BotToken)
	if c.Telegram.BotToken == "" {
		if value, ok := os.LookupEnv("TELEGRAM_BOT_TOKEN"); ok {
			c.Telegram.BotToken = strings.TrimSpace(value)
		}
	}
	if c.Telegram.PollTimeout <= 0 {
		c.Telegram.PollTimeout = defaultPollTimeout
	}
	if c.Telegram.SendTimeout <= 0 {
		c.Telegram.SendTimeout = defaultSendTimeout
	}
}

func (c *Config) normalizeIndex() {
	if c.Index.CandidateCount == 0 {
		c.Index.CandidateCount = defaultCandidateCount
	}
	if c.Index.SearchTimeout == 0 {
		c.Index.SearchTimeout = defaultSearchTimeout
	}
	if c.Index.ResolveTimeout == 0 {
		c.Index.ResolveTimeout = defaultResolveTimeout
	}
	if c.Index.Burst <= 0 {
		c.Index.Burst = defaultBurst
	}
	c.Index.Resolver = strings.ToLower(strings.TrimSpace(c.Index.Resolver))
	if c.Index.Resolver == "" {
		c.Index.Resolver = defaultResolver
	}
}

func (c *Config) normalizeFetch() {
	if c.Fetch.SizeCeilingBytes == 0 {
		c.Fetch.SizeCeilingBytes = defaultSizeCeilingBytes
	}
	if c.Fetch.BitrateKbps == 0 {
		c.Fetch.BitrateKbps = defaultBitrateKbps
	}
	c.Fetch.Codec = strings.ToLower(strings.TrimSpace(c.Fetch.Codec))
	if c.Fetch.Codec == "" {
		c.Fetch.Codec = defaultCodec
	}
	if c.Fetch.DownloadTimeout == 0 {
		c.Fetch.DownloadTimeout = defaultDownloadTimeout
	}
	if c.Fetch.StaleArtifactMinutes < 0 {
		c.Fetch.StaleArtifactMinutes = 0
	}
}

func (c *Config) normalizeIdentity() error {
	c.Identity.UserAgent = strings.TrimSpace(c.Identity.UserAgent)
	cookies := strings.TrimSpace(c.Identity.CookiesFile)
	if cookies == "" {
		if value, ok := os.LookupEnv("TRACKBOT_COOKIES_FILE"); ok {
			cookies = strings.TrimSpace(value)
		}
	}
	if cookies == "" {
		c.Identity.CookiesFile = ""
		return nil
	}
	expanded, err := expandPath(cookies)
	if err != nil {
		return fmt.Errorf("identity.cookies_file: %w", err)
	}
	c.Identity.CookiesFile = expanded
	return nil
}

func (c *Config) normalizeBinaries() {
	c.Binaries.YTDLP = strings.TrimSpace(c.Binaries.YTDLP)
	if c.Binaries.YTDLP == "" {
		c.Binaries.YTDLP = defaultYTDLPBinary
	}
	c.Binaries.FFmpeg = strings.TrimSpace(c.Binaries.FFmpeg)
	if c.Binaries.FFmpeg == "" {
		c.Binaries.FFmpeg = defaultFFmpegBinary
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("TRACKBOT_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
