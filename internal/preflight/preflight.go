package preflight

import (
	"context"

	"trackbot/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Options adjusts RunAll for tests.
type Options struct {
	// TelegramBaseURL replaces https://api.telegram.org.
	TelegramBaseURL string
	// SkipTelegram disables the network check, e.g. for CLI commands that
	// never talk to the transport.
	SkipTelegram bool
}

// RunAll executes all applicable preflight checks for the given config.
// Checks for unconfigured features are skipped.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir))
	// Transcoding briefly holds the source stream and the mp3 side by side.
	results = append(results, CheckFreeSpace("Work directory space", cfg.Paths.WorkDir, 2*uint64(cfg.Fetch.SizeCeilingBytes)))

	if cfg.Identity.CookiesFile != "" || cfg.Identity.RequireCookies {
		results = append(results, CheckCookies(cfg.Identity.CookiesFile))
	}

	if !opts.SkipTelegram && cfg.Telegram.BotToken != "" {
		results = append(results, CheckTelegram(ctx, opts.TelegramBaseURL, cfg.Telegram.BotToken))
	}

	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
