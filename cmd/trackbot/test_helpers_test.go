package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// fakeYTDLP mimics the three yt-dlp invocations trackbot makes: a flat
// search, a metadata dump and an audio download into the -o template.
const fakeYTDLP = `#!/bin/sh
mode=search
out=""
prev=""
for arg in "$@"; do
  case "$arg" in
    --skip-download) mode=resolve ;;
    -x) mode=download ;;
  esac
  if [ "$prev" = "-o" ]; then out="$arg"; fi
  prev="$arg"
done
case "$mode" in
  search) echo '{"entries":[{"id":"abc123","title":"Night Drive","duration":185},{"id":"def456","title":"Second Song"}]}' ;;
  resolve) echo '{"id":"abc123","title":"Night Drive","duration":185}' ;;
  download) printf 'fake-audio' > "$(printf '%s' "$out" | sed 's/%(ext)s/mp3/')" ;;
esac
`

type cliTestEnv struct {
	configPath string
	workDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs")
	}

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("TRACKBOT_NTFY_TOPIC", "")
	t.Setenv("TRACKBOT_COOKIES_FILE", "")

	binDir := filepath.Join(base, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("mkdir bin: %v", err)
	}
	ytdlp := filepath.Join(binDir, "yt-dlp")
	if err := os.WriteFile(ytdlp, []byte(fakeYTDLP), 0o755); err != nil {
		t.Fatalf("write yt-dlp stub: %v", err)
	}
	ffmpeg := filepath.Join(binDir, "ffmpeg")
	if err := os.WriteFile(ffmpeg, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write ffmpeg stub: %v", err)
	}

	workDir := filepath.Join(base, "work")
	configPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[paths]
work_dir = %q
log_dir = %q
lock_path = %q

[index]
requests_per_second = 0.0

[binaries]
ytdlp = %q
ffmpeg = %q
`, workDir, filepath.Join(base, "logs"), filepath.Join(base, "trackbot.lock"), ytdlp, ffmpeg)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliTestEnv{configPath: configPath, workDir: workDir}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !bytes.Contains([]byte(haystack), []byte(needle)) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}
