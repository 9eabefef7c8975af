package catalog_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"trackbot/internal/catalog"
	"trackbot/internal/logging"
	"trackbot/internal/media"
	"trackbot/internal/services"
)

type stubIndex struct {
	entries []*media.IndexEntry
	err     error
	queries []string
	limits  []int
}

func (s *stubIndex) Search(_ context.Context, query string, limit int) ([]*media.IndexEntry, error) {
	s.queries = append(s.queries, query)
	s.limits = append(s.limits, limit)
	return s.entries, s.err
}

func entry(id, title string, duration float64) *media.IndexEntry {
	return &media.IndexEntry{ID: &id, Title: &title, Duration: &duration}
}

func newClient(index catalog.Index, limit int) *catalog.Client {
	return catalog.New(index, limit, time.Second, logging.NewNop())
}

func TestSearchKeepsOrderAndCapsAtLimit(t *testing.T) {
	var entries []*media.IndexEntry
	for i := 0; i < 7; i++ {
		entries = append(entries, entry(fmt.Sprintf("id%d", i), fmt.Sprintf("Title %d", i), float64(60*i)))
	}
	index := &stubIndex{entries: entries}
	got, err := newClient(index, 5).Search(context.Background(), "  query  ")
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("expected 5 candidates, got %d", len(got))
	}
	for i, c := range got {
		if c.MediaID != fmt.Sprintf("id%d", i) {
			t.Fatalf("order not preserved at %d: %+v", i, c)
		}
	}
	if index.queries[0] != "query" || index.limits[0] != 5 {
		t.Fatalf("unexpected backend call %q/%d", index.queries[0], index.limits[0])
	}
}

func TestSearchDropsMalformedEntries(t *testing.T) {
	missingTitle := "x"
	index := &stubIndex{entries: []*media.IndexEntry{
		nil,
		{ID: &missingTitle},
		entry("", "No id", 10),
		entry("ok1", "Kept", 125.9),
		{ID: strPtr("ok2"), Title: strPtr("No duration")},
		entry("ok3", "Negative", -4),
	}}
	got, err := newClient(index, 5).Search(context.Background(), "q")
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 candidates, got %+v", got)
	}
	if got[0].DurationSeconds != 125 {
		t.Fatalf("expected truncated duration 125, got %d", got[0].DurationSeconds)
	}
	if got[1].DurationSeconds != 0 || got[2].DurationSeconds != 0 {
		t.Fatalf("expected missing/negative durations to read 0: %+v", got)
	}
}

func TestSearchEmptyResult(t *testing.T) {
	index := &stubIndex{entries: []*media.IndexEntry{nil, nil}}
	_, err := newClient(index, 5).Search(context.Background(), "q")
	if !errors.Is(err, services.ErrEmptyResult) {
		t.Fatalf("expected ErrEmptyResult, got %v", err)
	}
	if errors.Is(err, services.ErrSearchFailed) {
		t.Fatal("empty result must be distinguishable from search failure")
	}
}

func TestSearchBackendFailure(t *testing.T) {
	index := &stubIndex{err: errors.New("network unreachable")}
	_, err := newClient(index, 5).Search(context.Background(), "q")
	if !errors.Is(err, services.ErrSearchFailed) {
		t.Fatalf("expected ErrSearchFailed, got %v", err)
	}
}

func TestSearchMissingCredentialsIsExplicit(t *testing.T) {
	index := &stubIndex{err: services.Wrap(services.ErrCredentialsMissing, "identity", "load cookies", "missing", nil)}
	_, err := newClient(index, 5).Search(context.Background(), "q")
	if !errors.Is(err, services.ErrCredentialsMissing) {
		t.Fatalf("expected ErrCredentialsMissing, got %v", err)
	}
	if errors.Is(err, services.ErrEmptyResult) {
		t.Fatal("missing credentials must not look like an empty result")
	}
	if services.Kind(err) != "credentials_missing" {
		t.Fatalf("unexpected kind %q", services.Kind(err))
	}
}

func TestSearchNormalizesTitles(t *testing.T) {
	index := &stubIndex{entries: []*media.IndexEntry{entry("a", "  Cafe   del  Mar ", 1)}}
	got, err := newClient(index, 5).Search(context.Background(), "q")
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if got[0].Title != "Cafe del Mar" {
		t.Fatalf("unexpected title %q", got[0].Title)
	}
}

func strPtr(s string) *string { return &s }
