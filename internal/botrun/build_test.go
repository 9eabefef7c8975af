package botrun_test

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"trackbot/internal/botrun"
	"trackbot/internal/delivery"
	"trackbot/internal/logging"
	"trackbot/internal/selection"
	"trackbot/internal/services/ytdlp"
	"trackbot/internal/testsupport"
)

// scriptedExecutor answers search, resolve and download invocations the way
// yt-dlp would, writing a fake artifact for downloads.
type scriptedExecutor struct {
	mu    sync.Mutex
	calls [][]string
}

func (s *scriptedExecutor) Run(_ context.Context, _ string, args []string, onStdout func(string)) error {
	s.mu.Lock()
	s.calls = append(s.calls, append([]string(nil), args...))
	s.mu.Unlock()

	switch {
	case slices.Contains(args, "--flat-playlist"):
		onStdout(`{"entries":[{"id":"abc123","title":"  Night   Drive ","duration":185.0},{"id":"def456","title":"Second"}]}`)
	case slices.Contains(args, "--skip-download"):
		onStdout(`{"id":"abc123","title":"Night Drive","duration":185.0}`)
	case slices.Contains(args, "-x"):
		idx := slices.Index(args, "-o")
		target := strings.ReplaceAll(args[idx+1], "%(ext)s", "mp3")
		return os.WriteFile(target, []byte("fake-audio"), 0o644)
	}
	return nil
}

func TestBuildSearchAndDeliver(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	exec := &scriptedExecutor{}
	core, err := botrun.Build(cfg, logging.NewNop(), botrun.WithYTDLPOptions(ytdlp.WithExecutor(exec)))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	options, err := core.Pipeline.PresentCandidates(context.Background(), "night drive")
	if err != nil {
		t.Fatalf("PresentCandidates: %v", err)
	}
	if len(options) != 2 {
		t.Fatalf("expected 2 options, got %d", len(options))
	}
	if options[0].Candidate.Title != "Night Drive" {
		t.Fatalf("title not normalized: %q", options[0].Candidate.Title)
	}
	want, _ := selection.Encode(selection.ActionDownload, "abc123")
	if options[0].Token != want {
		t.Fatalf("token = %q, want %q", options[0].Token, want)
	}

	var delivered delivery.Artifact
	outcome := core.Pipeline.Finalize(context.Background(), core.Pipeline.ResolveSelection(context.Background(), options[0].Token), delivery.HandoffFunc(func(_ context.Context, a delivery.Artifact) error {
		if _, err := os.Stat(a.Path); err != nil {
			t.Errorf("artifact missing during handoff: %v", err)
		}
		delivered = a
		return nil
	}))
	if outcome.Kind != delivery.OutcomeDelivered {
		t.Fatalf("expected delivered, got %+v", outcome)
	}
	if delivered.Path != filepath.Join(cfg.Paths.WorkDir, "abc123.mp3") {
		t.Fatalf("unexpected artifact path %q", delivered.Path)
	}
	if _, err := os.Stat(delivered.Path); !os.IsNotExist(err) {
		t.Fatalf("artifact should be removed after delivery, stat err=%v", err)
	}
}

func TestBuildRequiresConfig(t *testing.T) {
	if _, err := botrun.Build(nil, nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestRunRequiresBotToken(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithBotToken(""))
	if err := botrun.Run(context.Background(), cfg, botrun.Options{}); err == nil {
		t.Fatal("expected error without bot token")
	}
}
