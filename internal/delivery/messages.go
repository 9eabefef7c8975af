package delivery

import (
	"errors"
	"fmt"

	"trackbot/internal/catalog"
	"trackbot/internal/services"
	"trackbot/internal/textutil"
)

const (
	// MaxLabelTitleRunes bounds the title portion of an option label.
	MaxLabelTitleRunes = 50

	labelPrefix = "🎵 "
	ellipsis    = "..."
)

// User-facing replies.
const (
	MessageWelcome = "Welcome to the music bot! 🎵\n\n" +
		"Just send me the name of a song, and I will find it for you."
	MessageResultsHeader  = "Here are the top results:"
	MessageDownloading    = "Downloading your selection... Please wait."
	MessageSending        = "Download complete. Sending audio..."
	MessageEmptyResult    = "Sorry, I couldn't find any results for that query."
	MessageSearchFailed   = "Sorry, search is unavailable right now. Please try again later."
	MessageFetchFailed    = "Sorry, an error occurred during download."
	MessageDeliveryFailed = "Sorry, the audio could not be sent. Please try again."
)

// HelpMessage explains usage for a bot offering candidateCount results under
// a ceilingBytes transport limit.
func HelpMessage(candidateCount int, ceilingBytes int64) string {
	return fmt.Sprintf("How to use this bot:\n\n"+
		"1. Type the name of a song or artist.\n"+
		"2. The bot will show you the top %d search results.\n"+
		"3. Click the button for the song you want to download.\n\n"+
		"Note the %s file size limit.", candidateCount, sizeLimit(ceilingBytes))
}

// SearchingMessage acknowledges a query.
func SearchingMessage(query string) string {
	return fmt.Sprintf("Searching for '%s'...", query)
}

// TooLargeMessage explains the size policy using the configured ceiling.
func TooLargeMessage(ceilingBytes int64) string {
	return fmt.Sprintf("Sorry, the audio is >%s and cannot be sent.", sizeLimit(ceilingBytes))
}

func sizeLimit(bytes int64) string {
	const mib = 1024 * 1024
	if bytes >= mib {
		return fmt.Sprintf("%dMB", bytes/mib)
	}
	return fmt.Sprintf("%d bytes", bytes)
}

// SearchErrorMessage maps a search error to its reply.
func SearchErrorMessage(err error) string {
	if errors.Is(err, services.ErrEmptyResult) {
		return MessageEmptyResult
	}
	return MessageSearchFailed
}

// Label renders a candidate as "🎵 <title> (M:SS)". Titles longer than
// MaxLabelTitleRunes are cut and end in "...".
func Label(c catalog.Candidate) string {
	title, cut := textutil.Truncate(c.Title, MaxLabelTitleRunes)
	if cut {
		title += ellipsis
	}
	return fmt.Sprintf("%s%s (%s)", labelPrefix, title, textutil.FormatDuration(c.DurationSeconds))
}
