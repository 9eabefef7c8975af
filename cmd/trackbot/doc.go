// Package main hosts the trackbot CLI entrypoint and command graph.
//
// `trackbot serve` runs the Telegram bot. The remaining commands drive the
// same catalog and fetch engine directly from a terminal, which is the
// quickest way to check cookies, yt-dlp and ffmpeg on a new host without
// involving the chat transport.
package main
