package media

import "fmt"

// WatchURLTemplate builds the canonical source reference for a media ID.
const WatchURLTemplate = "https://www.youtube.com/watch?v=%s"

// WatchURL returns the canonical source reference for mediaID.
func WatchURL(mediaID string) string {
	return fmt.Sprintf(WatchURLTemplate, mediaID)
}

// IndexEntry is one raw search hit as reported by the index. Pointer fields
// are nil when the index omitted them.
type IndexEntry struct {
	ID       *string  `json:"id"`
	Title    *string  `json:"title"`
	Duration *float64 `json:"duration"`
}

// Format describes one stream offered by the source.
type Format struct {
	ID          string
	Ext         string
	AudioCodec  string
	VideoCodec  string
	BitrateKbps float64
	SizeBytes   int64
}

// AudioOnly reports whether the format carries audio without video.
func (f Format) AudioOnly() bool {
	return f.AudioCodec != "" && f.AudioCodec != "none" && (f.VideoCodec == "" || f.VideoCodec == "none")
}

// StreamInfo is resolved metadata for one media item. It is produced without
// transferring payload bytes.
type StreamInfo struct {
	MediaID         string
	Title           string
	DurationSeconds float64
	// ReportedSizeBytes is the backend's size figure for the selected stream,
	// 0 when absent.
	ReportedSizeBytes int64
	Formats           []Format
}

// BestAudio returns the audio-only format with the highest bitrate. The
// boolean is false when no audio-only format is listed.
func (s StreamInfo) BestAudio() (Format, bool) {
	var best Format
	found := false
	for _, f := range s.Formats {
		if !f.AudioOnly() {
			continue
		}
		if !found || f.BitrateKbps > best.BitrateKbps {
			best = f
			found = true
		}
	}
	return best, found
}
