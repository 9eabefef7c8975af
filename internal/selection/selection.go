// Package selection encodes and decodes the opaque tokens attached to
// presented candidates. A token carries an action and a media identifier and
// must fit inside a chat callback payload.
package selection

import (
	"fmt"
	"strings"

	"trackbot/internal/services"
)

// Action names what the user asked to do with a candidate.
type Action string

// ActionDownload requests fetch and delivery of the candidate's audio.
const ActionDownload Action = "download"

// MaxTokenBytes is the largest callback payload the transport accepts.
const MaxTokenBytes = 64

const separator = "_"

var knownActions = map[Action]struct{}{
	ActionDownload: {},
}

// Token is a decoded selection.
type Token struct {
	Action  Action
	MediaID string
}

// Encode renders action and mediaID as "<action>_<mediaID>". The media
// identifier may itself contain the separator; decoding splits on the first one.
func Encode(action Action, mediaID string) (string, error) {
	if _, ok := knownActions[action]; !ok {
		return "", services.Wrap(services.ErrInvalidToken, "selection", "encode", fmt.Sprintf("unknown action %q", action), nil)
	}
	if mediaID == "" {
		return "", services.Wrap(services.ErrInvalidToken, "selection", "encode", "empty media id", nil)
	}
	token := string(action) + separator + mediaID
	if len(token) > MaxTokenBytes {
		return "", services.Wrap(services.ErrInvalidToken, "selection", "encode", fmt.Sprintf("token exceeds %d bytes", MaxTokenBytes), nil)
	}
	return token, nil
}

// Decode parses a token produced by Encode. Unknown actions and malformed
// payloads are rejected with ErrInvalidToken.
func Decode(raw string) (Token, error) {
	action, mediaID, ok := strings.Cut(raw, separator)
	if !ok || action == "" || mediaID == "" {
		return Token{}, services.Wrap(services.ErrInvalidToken, "selection", "decode", "malformed token", nil)
	}
	if _, known := knownActions[Action(action)]; !known {
		return Token{}, services.Wrap(services.ErrInvalidToken, "selection", "decode", fmt.Sprintf("unknown action %q", action), nil)
	}
	return Token{Action: Action(action), MediaID: mediaID}, nil
}
