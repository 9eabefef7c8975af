package delivery_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"trackbot/internal/artifact"
	"trackbot/internal/catalog"
	"trackbot/internal/delivery"
	"trackbot/internal/fetch"
	"trackbot/internal/identity"
	"trackbot/internal/logging"
	"trackbot/internal/media"
	"trackbot/internal/mp3info"
	"trackbot/internal/notifications"
	"trackbot/internal/services"
	"trackbot/internal/services/ytdlp"
)

const ceiling = 50 * 1024 * 1024

type stubSearcher struct {
	candidates []catalog.Candidate
	err        error
}

func (s stubSearcher) Search(context.Context, string) ([]catalog.Candidate, error) {
	return s.candidates, s.err
}

type countingFetcher struct {
	calls int
}

func (c *countingFetcher) Fetch(context.Context, string) fetch.Result {
	c.calls++
	return fetch.Failed{Err: errors.New("unexpected fetch")}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (r *recordingNotifier) Publish(_ context.Context, event notifications.Event, _ notifications.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

type stubResolver struct {
	duration float64
	err      error
}

func (s stubResolver) Resolve(_ context.Context, id string) (media.StreamInfo, error) {
	if s.err != nil {
		return media.StreamInfo{}, s.err
	}
	return media.StreamInfo{MediaID: id, Title: "Track " + id, DurationSeconds: s.duration}, nil
}

type writingTranscoder struct{}

func (writingTranscoder) Download(_ context.Context, id string, opts ytdlp.DownloadOptions) error {
	path := strings.ReplaceAll(opts.OutputTemplate, "%(ext)s", opts.Codec)
	return os.WriteFile(path, []byte("ID3 fake audio for "+id), 0o644)
}

func newEngine(t *testing.T, resolver fetch.Resolver) (*fetch.Engine, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "work")
	arena, err := artifact.New(dir, "mp3", logging.NewNop())
	if err != nil {
		t.Fatalf("artifact.New: %v", err)
	}
	engine := fetch.New(resolver, writingTranscoder{}, arena, fetch.Options{
		CeilingBytes:    ceiling,
		BitrateKbps:     192,
		Codec:           "mp3",
		ResolveTimeout:  time.Second,
		DownloadTimeout: time.Second,
	}, logging.NewNop(), fetch.WithProbe(func(string) (mp3info.Info, error) {
		return mp3info.Info{}, errors.New("skip")
	}))
	return engine, arena.Dir()
}

func fiveCandidates() []catalog.Candidate {
	out := make([]catalog.Candidate, 0, 5)
	for i := 0; i < 5; i++ {
		out = append(out, catalog.Candidate{
			MediaID:         fmt.Sprintf("vid%d", i),
			Title:           strings.Repeat("x", 40+i*5),
			DurationSeconds: 60*i + 7,
		})
	}
	return out
}

func TestPresentCandidates(t *testing.T) {
	pipeline := delivery.New(stubSearcher{candidates: fiveCandidates()}, &countingFetcher{}, nil, ceiling, logging.NewNop())
	options, err := pipeline.PresentCandidates(context.Background(), "test song")
	if err != nil {
		t.Fatalf("PresentCandidates: %v", err)
	}
	if len(options) != 5 {
		t.Fatalf("expected 5 options, got %d", len(options))
	}
	for i, opt := range options {
		wantID := fmt.Sprintf("vid%d", i)
		if opt.Candidate.MediaID != wantID {
			t.Fatalf("order not preserved at %d", i)
		}
		if opt.Token != "download_"+wantID {
			t.Fatalf("unexpected token %q", opt.Token)
		}
		if opt.Label != delivery.Label(opt.Candidate) {
			t.Fatalf("unexpected label %q", opt.Label)
		}
	}
	if !strings.HasSuffix(options[4].Label, "... (4:07)") {
		t.Fatalf("expected truncated label with duration, got %q", options[4].Label)
	}
}

func TestPresentCandidatesSkipsUntokenisableIDs(t *testing.T) {
	candidates := []catalog.Candidate{
		{MediaID: strings.Repeat("z", 80), Title: "too long id"},
		{MediaID: "ok", Title: "fine"},
	}
	pipeline := delivery.New(stubSearcher{candidates: candidates}, &countingFetcher{}, nil, ceiling, logging.NewNop())
	options, err := pipeline.PresentCandidates(context.Background(), "q")
	if err != nil {
		t.Fatalf("PresentCandidates: %v", err)
	}
	if len(options) != 1 || options[0].Candidate.MediaID != "ok" {
		t.Fatalf("unexpected options %+v", options)
	}
}

func TestPresentCandidatesEmptyAndFailedAreDistinct(t *testing.T) {
	notifier := &recordingNotifier{}
	empty := delivery.New(stubSearcher{err: services.Wrap(services.ErrEmptyResult, "catalog", "search", "", nil)}, &countingFetcher{}, notifier, ceiling, logging.NewNop())
	_, err := empty.PresentCandidates(context.Background(), "q")
	if !errors.Is(err, services.ErrEmptyResult) {
		t.Fatalf("expected ErrEmptyResult, got %v", err)
	}
	if len(notifier.events) != 0 {
		t.Fatalf("empty results must not alert the operator: %v", notifier.events)
	}

	failed := delivery.New(stubSearcher{err: services.Wrap(services.ErrSearchFailed, "catalog", "search", "", errors.New("dns"))}, &countingFetcher{}, notifier, ceiling, logging.NewNop())
	_, err = failed.PresentCandidates(context.Background(), "q")
	if !errors.Is(err, services.ErrSearchFailed) {
		t.Fatalf("expected ErrSearchFailed, got %v", err)
	}
	if len(notifier.events) != 1 || notifier.events[0] != notifications.EventSearchUnavailable {
		t.Fatalf("expected search alert, got %v", notifier.events)
	}
}

func TestResolveSelectionRejectsBadTokens(t *testing.T) {
	fetcher := &countingFetcher{}
	notifier := &recordingNotifier{}
	pipeline := delivery.New(stubSearcher{}, fetcher, notifier, ceiling, logging.NewNop())
	for _, token := range []string{"", "download", "play_abc", "_abc", "download_"} {
		result := pipeline.ResolveSelection(context.Background(), token)
		failed, ok := result.(fetch.Failed)
		if !ok || !errors.Is(failed.Err, services.ErrInvalidToken) {
			t.Fatalf("token %q: expected invalid token failure, got %#v", token, result)
		}
		outcome := pipeline.Finalize(context.Background(), result, nil)
		if outcome.Kind != delivery.OutcomeFailed || outcome.Message != delivery.MessageFetchFailed {
			t.Fatalf("token %q: unexpected outcome %+v", token, outcome)
		}
	}
	if fetcher.calls != 0 {
		t.Fatalf("fetcher must not run for bad tokens, ran %d times", fetcher.calls)
	}
	if len(notifier.events) != 0 {
		t.Fatalf("bad tokens are not incidents: %v", notifier.events)
	}
}

func TestSelectionDeliversAndCleansUp(t *testing.T) {
	engine, dir := newEngine(t, stubResolver{duration: 180})
	pipeline := delivery.New(stubSearcher{}, engine, nil, ceiling, logging.NewNop())

	var delivered delivery.Artifact
	outcome := pipeline.Finalize(context.Background(), pipeline.ResolveSelection(context.Background(), "download_abc"), delivery.HandoffFunc(func(_ context.Context, a delivery.Artifact) error {
		info, err := os.Stat(a.Path)
		if err != nil || info.Size() == 0 {
			t.Errorf("artifact should exist during handoff: %v", err)
		}
		delivered = a
		return nil
	}))
	if outcome.Kind != delivery.OutcomeDelivered || outcome.Message != "" || outcome.Err != nil {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if delivered.Path != filepath.Join(dir, "abc.mp3") || delivered.Title != "Track abc" {
		t.Fatalf("unexpected artifact %+v", delivered)
	}
	if _, err := os.Stat(delivered.Path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected artifact removed after finalize, err=%v", err)
	}
}

func TestFinalizeCleansUpWhenHandoffFails(t *testing.T) {
	engine, dir := newEngine(t, stubResolver{duration: 180})
	notifier := &recordingNotifier{}
	pipeline := delivery.New(stubSearcher{}, engine, notifier, ceiling, logging.NewNop())

	result := pipeline.ResolveSelection(context.Background(), "download_abc")
	if _, ok := result.(fetch.Ready); !ok {
		t.Fatalf("expected Ready, got %#v", result)
	}
	outcome := pipeline.Finalize(context.Background(), result, delivery.HandoffFunc(func(context.Context, delivery.Artifact) error {
		return errors.New("telegram: request entity too large")
	}))
	if outcome.Kind != delivery.OutcomeDeliveryFailed || !errors.Is(outcome.Err, services.ErrDeliveryFailed) {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if outcome.Message != delivery.MessageDeliveryFailed || strings.Contains(outcome.Message, "telegram") {
		t.Fatalf("user message leaks detail: %q", outcome.Message)
	}
	if _, err := os.Stat(filepath.Join(dir, "abc.mp3")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected artifact removed after failed handoff, err=%v", err)
	}
	if len(notifier.events) != 1 || notifier.events[0] != notifications.EventDeliveryFailed {
		t.Fatalf("expected delivery alert, got %v", notifier.events)
	}
}

func TestFinalizeCleansUpWhenHandoffPanics(t *testing.T) {
	engine, dir := newEngine(t, stubResolver{duration: 180})
	pipeline := delivery.New(stubSearcher{}, engine, nil, ceiling, logging.NewNop())
	outcome := pipeline.Finalize(context.Background(), pipeline.ResolveSelection(context.Background(), "download_abc"), delivery.HandoffFunc(func(context.Context, delivery.Artifact) error {
		panic("transport exploded")
	}))
	if outcome.Kind != delivery.OutcomeDeliveryFailed {
		t.Fatalf("expected delivery failure, got %+v", outcome)
	}
	if _, err := os.Stat(filepath.Join(dir, "abc.mp3")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected artifact removed after panic, err=%v", err)
	}
}

func TestFinalizeTooLarge(t *testing.T) {
	engine, dir := newEngine(t, stubResolver{duration: 4000})
	called := false
	pipeline := delivery.New(stubSearcher{}, engine, nil, ceiling, logging.NewNop())
	outcome := pipeline.Finalize(context.Background(), pipeline.ResolveSelection(context.Background(), "download_long"), delivery.HandoffFunc(func(context.Context, delivery.Artifact) error {
		called = true
		return nil
	}))
	if outcome.Kind != delivery.OutcomeTooLarge || outcome.Message != "Sorry, the audio is >50MB and cannot be sent." {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if called {
		t.Fatal("handoff must not run for oversized items")
	}
	if _, err := os.Stat(filepath.Join(dir, "long.mp3")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected no artifact, err=%v", err)
	}
}

func TestFinalizeFailedNotifiesOperator(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		event notifications.Event
	}{
		{"generic", errors.New("HTTP Error 403"), notifications.EventFetchFailed},
		{"rejected", fmt.Errorf("ytdlp resolve: %w", identity.ErrRejected), notifications.EventCredentialsRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, _ := newEngine(t, stubResolver{err: tt.err})
			notifier := &recordingNotifier{}
			pipeline := delivery.New(stubSearcher{}, engine, notifier, ceiling, logging.NewNop())
			outcome := pipeline.Finalize(context.Background(), pipeline.ResolveSelection(context.Background(), "download_abc"), nil)
			if outcome.Kind != delivery.OutcomeFailed || outcome.Message != delivery.MessageFetchFailed {
				t.Fatalf("unexpected outcome %+v", outcome)
			}
			if !errors.Is(outcome.Err, services.ErrResolveFailed) {
				t.Fatalf("expected ErrResolveFailed, got %v", outcome.Err)
			}
			if len(notifier.events) != 1 || notifier.events[0] != tt.event {
				t.Fatalf("expected %s, got %v", tt.event, notifier.events)
			}
		})
	}
}

type unknownResult struct{ fetch.Failed }

func TestFinalizeUnknownResultFails(t *testing.T) {
	pipeline := delivery.New(stubSearcher{}, &countingFetcher{}, nil, ceiling, logging.NewNop())
	outcome := pipeline.Finalize(context.Background(), unknownResult{}, nil)
	if outcome.Kind != delivery.OutcomeFailed || outcome.Err == nil {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
}
