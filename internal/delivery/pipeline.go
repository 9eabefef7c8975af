package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"trackbot/internal/catalog"
	"trackbot/internal/fetch"
	"trackbot/internal/identity"
	"trackbot/internal/logging"
	"trackbot/internal/notifications"
	"trackbot/internal/selection"
	"trackbot/internal/services"
)

// Searcher finds candidates for a query.
type Searcher interface {
	Search(ctx context.Context, query string) ([]catalog.Candidate, error)
}

// Fetcher produces a fetch result for a media ID.
type Fetcher interface {
	Fetch(ctx context.Context, mediaID string) fetch.Result
}

// Artifact is what the transport receives.
type Artifact struct {
	MediaID   string
	Title     string
	Path      string
	SizeBytes int64
	Duration  time.Duration
}

// Handoff sends an artifact to the requesting channel.
type Handoff interface {
	Deliver(ctx context.Context, artifact Artifact) error
}

// HandoffFunc adapts a function to Handoff.
type HandoffFunc func(ctx context.Context, artifact Artifact) error

// Deliver implements Handoff.
func (f HandoffFunc) Deliver(ctx context.Context, artifact Artifact) error {
	return f(ctx, artifact)
}

// Option is one selectable candidate.
type Option struct {
	Label     string
	Token     string
	Candidate catalog.Candidate
}

// OutcomeKind classifies how a selection ended.
type OutcomeKind string

const (
	OutcomeDelivered      OutcomeKind = "delivered"
	OutcomeTooLarge       OutcomeKind = "too_large"
	OutcomeFailed         OutcomeKind = "failed"
	OutcomeDeliveryFailed OutcomeKind = "delivery_failed"
)

// Outcome is the result of Finalize. Message is empty when the artifact was
// delivered.
type Outcome struct {
	Kind    OutcomeKind
	Message string
	Err     error
}

// Pipeline wires search, fetch and handoff together.
type Pipeline struct {
	searcher     Searcher
	fetcher      Fetcher
	notifier     notifications.Service
	ceilingBytes int64
	logger       *slog.Logger
}

// New constructs a pipeline. notifier may be nil.
func New(searcher Searcher, fetcher Fetcher, notifier notifications.Service, ceilingBytes int64, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{
		searcher:     searcher,
		fetcher:      fetcher,
		notifier:     notifier,
		ceilingBytes: ceilingBytes,
		logger:       logging.NewComponentLogger(logger, "delivery"),
	}
}

// PresentCandidates searches and returns labelled options in index order.
// Errors carry ErrEmptyResult or ErrSearchFailed.
func (p *Pipeline) PresentCandidates(ctx context.Context, query string) ([]Option, error) {
	logger := logging.WithContext(ctx, p.logger)
	candidates, err := p.searcher.Search(ctx, query)
	if err != nil {
		if errors.Is(err, services.ErrEmptyResult) {
			logger.Info("search returned no candidates", logging.String("query", query))
			return nil, err
		}
		logging.ErrorWithContext(logger, "search failed", "search_failed",
			logging.String(logging.FieldErrorKind, services.Kind(err)),
			logging.String(logging.FieldErrorHint, "check yt-dlp availability and identity settings"),
			logging.Error(err),
		)
		p.publish(ctx, notifications.EventSearchUnavailable, notifications.Payload{"error": err.Error()})
		return nil, err
	}

	options := make([]Option, 0, len(candidates))
	for _, c := range candidates {
		token, err := selection.Encode(selection.ActionDownload, c.MediaID)
		if err != nil {
			logger.Warn("candidate skipped",
				logging.String(logging.FieldMediaID, c.MediaID),
				logging.String(logging.FieldImpact, "candidate not offered"),
				logging.Error(err),
			)
			continue
		}
		options = append(options, Option{Label: Label(c), Token: token, Candidate: c})
	}
	if len(options) == 0 {
		return nil, services.Wrap(services.ErrEmptyResult, "delivery", "present", "no candidate could be tokenised", nil)
	}
	logger.Info("candidates presented", logging.Int("count", len(options)))
	return options, nil
}

// ResolveSelection decodes token and fetches the selected item. A token that
// does not decode yields Failed without touching the fetcher.
func (p *Pipeline) ResolveSelection(ctx context.Context, token string) fetch.Result {
	decoded, err := selection.Decode(token)
	if err != nil {
		logging.WithContext(ctx, p.logger).Warn("selection rejected",
			logging.String("token", token),
			logging.String(logging.FieldImpact, "selection ignored"),
			logging.Error(err),
		)
		return fetch.Failed{Err: err}
	}
	return p.fetcher.Fetch(ctx, decoded.MediaID)
}

// Finalize completes a selection. A Ready artifact is handed off and then
// removed whether or not the handoff succeeded.
func (p *Pipeline) Finalize(ctx context.Context, result fetch.Result, handoff Handoff) Outcome {
	switch r := result.(type) {
	case fetch.Ready:
		return p.deliver(ctx, r, handoff)
	case fetch.TooLarge:
		return Outcome{Kind: OutcomeTooLarge, Message: TooLargeMessage(r.CeilingBytes)}
	case fetch.Failed:
		p.reportFetchFailure(ctx, r)
		return Outcome{Kind: OutcomeFailed, Message: MessageFetchFailed, Err: r.Err}
	default:
		err := fmt.Errorf("unhandled fetch result %T", result)
		logging.WithContext(ctx, p.logger).Error("finalize failed", logging.Error(err))
		return Outcome{Kind: OutcomeFailed, Message: MessageFetchFailed, Err: err}
	}
}

func (p *Pipeline) deliver(ctx context.Context, ready fetch.Ready, handoff Handoff) Outcome {
	ctx = services.WithMediaID(ctx, ready.MediaID)
	logger := logging.WithContext(ctx, p.logger)
	defer func() {
		if err := ready.Cleanup(); err != nil {
			logging.WarnWithContext(logger, "artifact cleanup failed", "cleanup_failed",
				logging.String(logging.FieldImpact, "file remains until the stale sweep"),
				logging.String(logging.FieldErrorHint, "check permissions on paths.work_dir"),
				logging.Error(err),
			)
		}
	}()

	artifact := Artifact{
		MediaID:   ready.MediaID,
		Title:     ready.Title,
		Path:      ready.Path,
		SizeBytes: ready.SizeBytes,
		Duration:  ready.Duration,
	}
	if err := invoke(ctx, handoff, artifact); err != nil {
		err = services.Wrap(services.ErrDeliveryFailed, "delivery", "handoff", "", err)
		logging.ErrorWithContext(logger, "delivery failed", "delivery_failed",
			logging.String(logging.FieldErrorKind, services.Kind(err)),
			logging.String(logging.FieldErrorHint, "check transport connectivity and telegram.send_timeout"),
			logging.Error(err),
		)
		p.publish(ctx, notifications.EventDeliveryFailed, notifications.Payload{"mediaId": ready.MediaID, "error": err.Error()})
		return Outcome{Kind: OutcomeDeliveryFailed, Message: MessageDeliveryFailed, Err: err}
	}
	logger.Info("artifact delivered",
		logging.String(logging.FieldEventType, "delivered"),
		logging.Int64("size_bytes", ready.SizeBytes),
	)
	return Outcome{Kind: OutcomeDelivered}
}

func invoke(ctx context.Context, handoff Handoff, artifact Artifact) (err error) {
	if handoff == nil {
		return errors.New("no transport handoff supplied")
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handoff panicked: %v", rec)
		}
	}()
	return handoff.Deliver(ctx, artifact)
}

func (p *Pipeline) reportFetchFailure(ctx context.Context, failed fetch.Failed) {
	if !services.IsIncident(failed.Err) {
		return
	}
	if errors.Is(failed.Err, identity.ErrRejected) || errors.Is(failed.Err, services.ErrCredentialsMissing) {
		p.publish(ctx, notifications.EventCredentialsRejected, notifications.Payload{"mediaId": failed.MediaID})
		return
	}
	p.publish(ctx, notifications.EventFetchFailed, notifications.Payload{
		"kind":    services.Kind(failed.Err),
		"mediaId": failed.MediaID,
		"error":   failed.Error(),
	})
}

func (p *Pipeline) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.Publish(context.WithoutCancel(ctx), event, payload); err != nil {
		p.logger.Warn("operator notification failed",
			logging.String("event", string(event)),
			logging.String(logging.FieldImpact, "operator not alerted"),
			logging.Error(err),
		)
	}
}
