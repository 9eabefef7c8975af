// Package ytdlp wraps the yt-dlp command line for index search, metadata
// resolution, and audio extraction.
//
// All invocations go through an Executor so tests can replace the process
// with canned output. Outbound calls share one rate limiter.
package ytdlp
