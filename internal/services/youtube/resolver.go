package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	yt "github.com/kkdai/youtube/v2"
	"golang.org/x/time/rate"

	"trackbot/internal/identity"
	"trackbot/internal/media"
)

// VideoFetcher is the subset of the kkdai client the resolver needs.
type VideoFetcher interface {
	GetVideoContext(ctx context.Context, id string) (*yt.Video, error)
}

// Option configures the resolver.
type Option func(*Resolver)

// WithFetcherFactory replaces construction of the kkdai client (primarily
// for tests).
func WithFetcherFactory(factory func(*http.Client) VideoFetcher) Option {
	return func(r *Resolver) {
		if factory != nil {
			r.newFetcher = factory
		}
	}
}

// WithIdentity attaches cookies and user agent to metadata requests.
func WithIdentity(provider identity.Provider) Option {
	return func(r *Resolver) {
		if provider != nil {
			r.identity = provider
		}
	}
}

// WithRateLimit throttles metadata requests.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(r *Resolver) {
		if perSecond <= 0 {
			r.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		if burst < 1 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// Resolver implements metadata resolution against the YouTube player API.
type Resolver struct {
	timeout    time.Duration
	identity   identity.Provider
	limiter    *rate.Limiter
	newFetcher func(*http.Client) VideoFetcher
}

// New constructs a resolver whose HTTP requests time out after timeout.
func New(timeout time.Duration, opts ...Option) *Resolver {
	r := &Resolver{
		timeout:  timeout,
		identity: identity.Static{},
		limiter:  rate.NewLimiter(rate.Inf, 1),
		newFetcher: func(client *http.Client) VideoFetcher {
			return &yt.Client{HTTPClient: client}
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns metadata for mediaID. The reported size is the content
// length of the best audio-only stream when the player response lists one.
func (r *Resolver) Resolve(ctx context.Context, mediaID string) (media.StreamInfo, error) {
	mediaID = strings.TrimSpace(mediaID)
	if mediaID == "" {
		return media.StreamInfo{}, errors.New("media id required")
	}
	id, err := r.identity.Current(ctx)
	if err != nil {
		return media.StreamInfo{}, err
	}
	httpClient, err := id.HTTPClient(&http.Client{Timeout: r.timeout})
	if err != nil {
		return media.StreamInfo{}, fmt.Errorf("native resolve: %w", err)
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return media.StreamInfo{}, fmt.Errorf("native resolve: rate limit: %w", err)
	}

	video, err := r.newFetcher(httpClient).GetVideoContext(ctx, mediaID)
	if err != nil {
		if errors.Is(err, yt.ErrLoginRequired) {
			return media.StreamInfo{}, fmt.Errorf("native resolve: %w: %w", identity.ErrRejected, err)
		}
		return media.StreamInfo{}, fmt.Errorf("native resolve: %w", err)
	}
	if video == nil {
		return media.StreamInfo{}, errors.New("native resolve: empty video response")
	}
	return streamInfo(video), nil
}

func streamInfo(video *yt.Video) media.StreamInfo {
	info := media.StreamInfo{
		MediaID:         video.ID,
		Title:           video.Title,
		DurationSeconds: video.Duration.Seconds(),
	}
	for _, f := range video.Formats {
		format := media.Format{
			ID:          fmt.Sprintf("%d", f.ItagNo),
			Ext:         mimeToExt(f.MimeType),
			BitrateKbps: float64(bitrate(f)) / 1000,
			SizeBytes:   int64(f.ContentLength),
		}
		if f.AudioChannels > 0 {
			format.AudioCodec = codecFromMime(f.MimeType)
		} else {
			format.AudioCodec = "none"
		}
		if strings.HasPrefix(f.MimeType, "video/") && f.Width > 0 {
			format.VideoCodec = codecFromMime(f.MimeType)
		} else {
			format.VideoCodec = "none"
		}
		info.Formats = append(info.Formats, format)
	}
	if best, ok := info.BestAudio(); ok {
		info.ReportedSizeBytes = best.SizeBytes
	}
	return info
}

func bitrate(f yt.Format) int {
	if f.AverageBitrate > 0 {
		return f.AverageBitrate
	}
	return f.Bitrate
}

// mimeToExt maps `audio/webm; codecs="opus"` to "webm".
func mimeToExt(mime string) string {
	base, _, _ := strings.Cut(mime, ";")
	_, sub, ok := strings.Cut(strings.TrimSpace(base), "/")
	if !ok {
		return ""
	}
	return sub
}

func codecFromMime(mime string) string {
	_, params, ok := strings.Cut(mime, "codecs=")
	if !ok {
		return mimeToExt(mime)
	}
	codec := strings.Trim(strings.TrimSpace(params), `"`)
	codec, _, _ = strings.Cut(codec, ",")
	return strings.TrimSpace(codec)
}
