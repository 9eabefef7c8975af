package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// CheckFFmpegForYTDLP reports the ffmpeg binary yt-dlp will execute.
//
// An explicit path in binaries.ffmpeg is passed to yt-dlp as
// --ffmpeg-location and must exist. Otherwise an ffmpeg placed next to the
// yt-dlp executable wins over PATH, matching how standalone yt-dlp builds
// are usually deployed.
func CheckFFmpegForYTDLP(ffmpegSetting, ytdlpCommand string) Status {
	result := Status{
		Name:        "FFmpeg",
		Description: "Used by yt-dlp to extract and transcode audio",
	}

	setting := strings.TrimSpace(ffmpegSetting)
	if strings.ContainsRune(setting, filepath.Separator) {
		result.Command = setting
		info, err := os.Stat(setting)
		if err != nil || !isExecutable(info) {
			result.Detail = fmt.Sprintf("configured ffmpeg %q is not an executable file", setting)
			return result
		}
		result.Available = true
		return result
	}

	if ytdlp := strings.TrimSpace(ytdlpCommand); ytdlp != "" {
		if resolved, err := exec.LookPath(ytdlp); err == nil {
			candidate := sidecarCandidate(resolved)
			if info, statErr := os.Stat(candidate); statErr == nil && isExecutable(info) {
				result.Command = candidate
				result.Available = true
				return result
			}
		}
	}

	name := setting
	if name == "" {
		name = "ffmpeg"
	}
	if ffmpegPath, err := exec.LookPath(name); err == nil {
		result.Command = ffmpegPath
		result.Available = true
		return result
	}

	result.Command = name
	result.Detail = fmt.Sprintf("binary %q not found", name)
	return result
}

func sidecarCandidate(ytdlpPath string) string {
	name := "ffmpeg"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(filepath.Dir(ytdlpPath), name)
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
