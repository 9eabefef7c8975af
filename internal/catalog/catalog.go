package catalog

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"

	"trackbot/internal/logging"
	"trackbot/internal/media"
	"trackbot/internal/services"
	"trackbot/internal/textutil"
)

// Candidate is one searchable item. MediaID and Title are never empty.
type Candidate struct {
	MediaID         string
	Title           string
	DurationSeconds int
}

// Index is the raw search backend.
type Index interface {
	Search(ctx context.Context, query string, limit int) ([]*media.IndexEntry, error)
}

// Client queries the index and filters its answer down to usable candidates.
type Client struct {
	index   Index
	limit   int
	timeout time.Duration
	logger  *slog.Logger
}

// New constructs a catalog client returning at most limit candidates.
func New(index Index, limit int, timeout time.Duration, logger *slog.Logger) *Client {
	if limit < 1 {
		limit = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Client{
		index:   index,
		limit:   limit,
		timeout: timeout,
		logger:  logging.NewComponentLogger(logger, "catalog"),
	}
}

// Search returns up to the configured number of candidates in index order.
// A reachable index with no usable hits yields ErrEmptyResult; an unreachable
// index or malformed response yields ErrSearchFailed.
func (c *Client) Search(ctx context.Context, query string) ([]Candidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, services.Wrap(services.ErrEmptyResult, "catalog", "search", "empty query", nil)
	}
	searchCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		searchCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	logger := logging.WithContext(ctx, c.logger)
	started := time.Now()
	entries, err := c.index.Search(searchCtx, query, c.limit)
	if err != nil {
		if errors.Is(err, services.ErrCredentialsMissing) {
			return nil, services.Wrap(services.ErrSearchFailed, "catalog", "search", "index credentials missing", err)
		}
		return nil, services.Wrap(services.ErrSearchFailed, "catalog", "search", "index request failed", err)
	}

	candidates, dropped := filter(entries, c.limit)
	logger.Debug("index search completed",
		logging.String("query", query),
		logging.Int("raw_entries", len(entries)),
		logging.Int("candidates", len(candidates)),
		logging.Int("dropped", dropped),
		logging.Duration("elapsed", time.Since(started)),
	)
	if len(candidates) == 0 {
		return nil, services.Wrap(services.ErrEmptyResult, "catalog", "search", "no usable candidates", nil)
	}
	return candidates, nil
}

// filter keeps index order, drops entries without an id or title, and caps
// the result at limit.
func filter(entries []*media.IndexEntry, limit int) ([]Candidate, int) {
	out := make([]Candidate, 0, min(len(entries), limit))
	dropped := 0
	for _, entry := range entries {
		if len(out) == limit {
			break
		}
		if entry == nil || entry.ID == nil || entry.Title == nil {
			dropped++
			continue
		}
		id := strings.TrimSpace(*entry.ID)
		title := textutil.NormalizeTitle(*entry.Title)
		if id == "" || title == "" {
			dropped++
			continue
		}
		out = append(out, Candidate{
			MediaID:         id,
			Title:           title,
			DurationSeconds: durationSeconds(entry.Duration),
		})
	}
	return out, dropped
}

func durationSeconds(value *float64) int {
	if value == nil || math.IsNaN(*value) || *value <= 0 {
		return 0
	}
	return int(*value)
}
