package deps

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"trackbot/internal/testsupport"
)

func writeStub(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
}

func TestCheckBinaries(t *testing.T) {
	present := filepath.Join(t.TempDir(), "present")
	writeStub(t, present)
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Unset", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Detail != "" {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected detail for unset command: %q", results[2].Detail)
	}
}

func TestCheckUsesConfiguredBinaries(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs")
	}
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())

	statuses := Check(cfg)
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	if missing := Missing(statuses); len(missing) != 0 {
		t.Fatalf("expected nothing missing, got %#v", missing)
	}
	if statuses[0].Command != cfg.Binaries.YTDLP || statuses[1].Command != cfg.Binaries.FFmpeg {
		t.Fatalf("expected configured stubs, got %#v", statuses)
	}
}

func TestCheckReportsMissingFFmpegStub(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs")
	}
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("yt-dlp"))
	cfg.Binaries.FFmpeg = filepath.Join(testsupport.BaseDir(cfg), "bin", "ffmpeg")

	missing := Missing(Check(cfg))
	if len(missing) != 1 || missing[0].Name != "FFmpeg" {
		t.Fatalf("expected only FFmpeg missing, got %#v", missing)
	}
}

func TestMissingSkipsOptional(t *testing.T) {
	statuses := []Status{
		{Name: "a", Available: true},
		{Name: "b", Available: false, Optional: true},
		{Name: "c", Available: false},
	}
	missing := Missing(statuses)
	if len(missing) != 1 || missing[0].Name != "c" {
		t.Fatalf("unexpected missing set %#v", missing)
	}
}

func TestCheckFFmpegPrefersSidecar(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs")
	}
	dir := t.TempDir()
	ytdlp := filepath.Join(dir, "yt-dlp")
	sidecar := filepath.Join(dir, "ffmpeg")
	writeStub(t, ytdlp)
	writeStub(t, sidecar)

	status := CheckFFmpegForYTDLP("ffmpeg", ytdlp)
	if !status.Available || status.Command != sidecar {
		t.Fatalf("expected sidecar %q, got %#v", sidecar, status)
	}
}

func TestCheckFFmpegConfiguredPathMissing(t *testing.T) {
	status := CheckFFmpegForYTDLP(filepath.Join(t.TempDir(), "nope", "ffmpeg"), "")
	if status.Available || status.Detail == "" {
		t.Fatalf("expected missing configured ffmpeg, got %#v", status)
	}
}

func TestCheckFFmpegNotExecutable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits")
	}
	path := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
	if status := CheckFFmpegForYTDLP(path, ""); status.Available {
		t.Fatalf("expected non-executable ffmpeg to be unavailable, got %#v", status)
	}
}
