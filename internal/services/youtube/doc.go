// Package youtube resolves stream metadata natively over HTTP using
// github.com/kkdai/youtube/v2, without spawning yt-dlp. It never reads
// stream payloads.
package youtube
