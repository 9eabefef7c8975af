package ytdlp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"golang.org/x/time/rate"

	"trackbot/internal/identity"
	"trackbot/internal/media"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onStdout func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithIdentity attaches cookies and user agent to every invocation.
func WithIdentity(provider identity.Provider) Option {
	return func(c *Client) {
		if provider != nil {
			c.identity = provider
		}
	}
}

// WithRateLimit throttles outbound invocations. A non-positive rate disables
// throttling.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithFFmpeg points yt-dlp at a specific ffmpeg binary or directory. Bare
// command names are left to PATH lookup.
func WithFFmpeg(location string) Option {
	return func(c *Client) {
		c.ffmpeg = strings.TrimSpace(location)
	}
}

// Client wraps yt-dlp CLI interactions.
type Client struct {
	binary   string
	ffmpeg   string
	identity identity.Provider
	limiter  *rate.Limiter
	exec     Executor
}

// New constructs a yt-dlp client.
func New(binary string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("yt-dlp binary required")
	}
	client := &Client{
		binary:   binary,
		identity: identity.Static{},
		limiter:  rate.NewLimiter(rate.Inf, 1),
		exec:     commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Search queries the index for up to limit entries. Entries the index could
// not describe are returned as nil so callers can count what was dropped.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]*media.IndexEntry, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("search query required")
	}
	if limit < 1 {
		limit = 1
	}
	args := []string{"--flat-playlist", "--dump-single-json", "--ignore-errors", "--no-warnings"}
	out, err := c.run(ctx, "search", args, fmt.Sprintf("ytsearch%d:%s", limit, query))
	if err != nil {
		return nil, err
	}
	var payload struct {
		Entries []*media.IndexEntry `json:"entries"`
	}
	if err := json.Unmarshal(out, &payload); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return payload.Entries, nil
}

// Resolve fetches metadata for mediaID without downloading payload bytes.
func (c *Client) Resolve(ctx context.Context, mediaID string) (media.StreamInfo, error) {
	if strings.TrimSpace(mediaID) == "" {
		return media.StreamInfo{}, errors.New("media id required")
	}
	args := []string{"--dump-single-json", "--skip-download", "--no-playlist", "--no-warnings", "-f", formatSelector}
	out, err := c.run(ctx, "resolve", args, media.WatchURL(mediaID))
	if err != nil {
		return media.StreamInfo{}, err
	}
	return parseStreamInfo(out, mediaID)
}

// DownloadOptions controls audio extraction.
type DownloadOptions struct {
	// OutputTemplate is the yt-dlp -o value, e.g. /work/<id>.%(ext)s.
	OutputTemplate string
	Codec          string
	BitrateKbps    int
	// Progress receives yt-dlp stdout lines; may be nil.
	Progress func(string)
}

// Download fetches the best audio stream for mediaID and transcodes it.
func (c *Client) Download(ctx context.Context, mediaID string, opts DownloadOptions) error {
	if strings.TrimSpace(mediaID) == "" {
		return errors.New("media id required")
	}
	if strings.TrimSpace(opts.OutputTemplate) == "" {
		return errors.New("output template required")
	}
	codec := opts.Codec
	if codec == "" {
		codec = "mp3"
	}
	args := []string{
		"-f", formatSelector,
		"-x",
		"--audio-format", codec,
		"--no-playlist",
		"--no-progress",
		"-o", opts.OutputTemplate,
	}
	if opts.BitrateKbps > 0 {
		args = append(args, "--audio-quality", fmt.Sprintf("%dK", opts.BitrateKbps))
	}
	if strings.ContainsRune(c.ffmpeg, '/') {
		args = append(args, "--ffmpeg-location", c.ffmpeg)
	}
	_, err := c.runStreaming(ctx, "download", args, media.WatchURL(mediaID), opts.Progress)
	return err
}

const formatSelector = "bestaudio/best"

func (c *Client) run(ctx context.Context, op string, args []string, target string) ([]byte, error) {
	return c.runStreaming(ctx, op, args, target, nil)
}

func (c *Client) runStreaming(ctx context.Context, op string, args []string, target string, progress func(string)) ([]byte, error) {
	id, err := c.identity.Current(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("ytdlp %s: rate limit: %w", op, err)
	}

	full := make([]string, 0, len(args)+6)
	full = append(full, args...)
	full = append(full, id.CommandArgs()...)
	full = append(full, "--", target)

	var out strings.Builder
	runErr := c.exec.Run(ctx, c.binary, full, func(line string) {
		if progress != nil {
			progress(line)
			return
		}
		out.WriteString(line)
		out.WriteByte('\n')
	})
	if runErr != nil {
		if identity.LooksExpired(runErr.Error()) {
			return nil, fmt.Errorf("ytdlp %s: %w: %w", op, identity.ErrRejected, runErr)
		}
		return nil, fmt.Errorf("ytdlp %s: %w", op, runErr)
	}
	return []byte(out.String()), nil
}

type formatJSON struct {
	FormatID       string  `json:"format_id"`
	Ext            string  `json:"ext"`
	ACodec         string  `json:"acodec"`
	VCodec         string  `json:"vcodec"`
	ABR            float64 `json:"abr"`
	TBR            float64 `json:"tbr"`
	Filesize       float64 `json:"filesize"`
	FilesizeApprox float64 `json:"filesize_approx"`
}

type videoJSON struct {
	ID               string       `json:"id"`
	Title            string       `json:"title"`
	Duration         float64      `json:"duration"`
	Filesize         float64      `json:"filesize"`
	FilesizeApprox   float64      `json:"filesize_approx"`
	Formats          []formatJSON `json:"formats"`
	RequestedFormats []formatJSON `json:"requested_formats"`
}

func parseStreamInfo(raw []byte, mediaID string) (media.StreamInfo, error) {
	var video videoJSON
	if err := json.Unmarshal(raw, &video); err != nil {
		return media.StreamInfo{}, fmt.Errorf("decode resolve response: %w", err)
	}
	if video.ID == "" {
		return media.StreamInfo{}, errors.New("resolve response missing id")
	}
	if video.ID != mediaID {
		return media.StreamInfo{}, fmt.Errorf("resolve response id %q does not match %q", video.ID, mediaID)
	}
	info := media.StreamInfo{
		MediaID:         video.ID,
		Title:           video.Title,
		DurationSeconds: math.Max(video.Duration, 0),
	}
	for _, f := range video.Formats {
		info.Formats = append(info.Formats, media.Format{
			ID:          f.FormatID,
			Ext:         f.Ext,
			AudioCodec:  f.ACodec,
			VideoCodec:  f.VCodec,
			BitrateKbps: firstPositive(f.ABR, f.TBR),
			SizeBytes:   int64(firstPositive(f.Filesize, f.FilesizeApprox)),
		})
	}
	reported := firstPositive(video.FilesizeApprox, video.Filesize)
	if reported == 0 {
		var sum float64
		for _, f := range video.RequestedFormats {
			sum += firstPositive(f.Filesize, f.FilesizeApprox)
		}
		reported = sum
	}
	info.ReportedSizeBytes = int64(reported)
	return info, nil
}

func firstPositive(values ...float64) float64 {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
