// Package telegram adapts the delivery pipeline to the Telegram Bot API.
//
// Text messages become searches, inline keyboard callbacks become selections,
// and ready artifacts are uploaded with sendAudio. Each update is handled on
// its own goroutine so slow fetches never stall polling.
package telegram
