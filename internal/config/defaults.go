package config

const (
	defaultConfigPath           = "~/.config/trackbot/config.toml"
	defaultWorkDir              = "~/.local/share/trackbot/work"
	defaultLogDir               = "~/.local/share/trackbot/logs"
	defaultLockPath             = "~/.local/share/trackbot/trackbot.lock"
	defaultPollTimeout          = 60
	defaultSendTimeout          = 60
	defaultCandidateCount       = 5
	defaultSearchTimeout        = 30
	defaultResolveTimeout       = 60
	defaultRequestsPerSecond    = 1.0
	defaultBurst                = 2
	defaultResolver             = ResolverYTDLP
	defaultSizeCeilingBytes     = 50 * 1024 * 1024
	defaultBitrateKbps          = 192
	defaultCodec                = "mp3"
	defaultDownloadTimeout      = 600
	defaultStaleArtifactMinutes = 60
	defaultYTDLPBinary          = "yt-dlp"
	defaultFFmpegBinary         = "ffmpeg"
	defaultNotifyTimeout        = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Resolver backends accepted by index.resolver.
const (
	ResolverYTDLP  = "ytdlp"
	ResolverNative = "native"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:  defaultWorkDir,
			LogDir:   defaultLogDir,
			LockPath: defaultLockPath,
		},
		Telegram: Telegram{
			PollTimeout: defaultPollTimeout,
			SendTimeout: defaultSendTimeout,
		},
		Index: Index{
			CandidateCount:    defaultCandidateCount,
			SearchTimeout:     defaultSearchTimeout,
			ResolveTimeout:    defaultResolveTimeout,
			RequestsPerSecond: defaultRequestsPerSecond,
			Burst:             defaultBurst,
			Resolver:          defaultResolver,
		},
		Fetch: Fetch{
			SizeCeilingBytes:     defaultSizeCeilingBytes,
			BitrateKbps:          defaultBitrateKbps,
			Codec:                defaultCodec,
			DownloadTimeout:      defaultDownloadTimeout,
			StaleArtifactMinutes: defaultStaleArtifactMinutes,
		},
		Binaries: Binaries{
			YTDLP:  defaultYTDLPBinary,
			FFmpeg: defaultFFmpegBinary,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
