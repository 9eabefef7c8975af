// Package mp3info inspects finished mp3 artifacts.
package mp3info

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hajimehoshi/go-mp3"
)

// go-mp3 decodes to 16-bit stereo PCM.
const bytesPerSample = 4

// Info describes a decoded mp3 file.
type Info struct {
	SampleRate int
	Duration   time.Duration
	SizeBytes  int64
}

// Probe decodes the frame headers of path and reports its playback length.
func Probe(path string) (Info, error) {
	file, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("open mp3: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return Info{}, fmt.Errorf("stat mp3: %w", err)
	}
	if stat.Size() == 0 {
		return Info{}, errors.New("mp3 file is empty")
	}

	decoder, err := mp3.NewDecoder(file)
	if err != nil {
		return Info{}, fmt.Errorf("decode mp3: %w", err)
	}
	info := Info{SampleRate: decoder.SampleRate(), SizeBytes: stat.Size()}
	if length := decoder.Length(); length > 0 && info.SampleRate > 0 {
		samples := length / bytesPerSample
		info.Duration = time.Duration(samples) * time.Second / time.Duration(info.SampleRate)
	}
	return info, nil
}
