// Package identity supplies the authentication material presented to the
// media index: an optional Netscape cookie jar and an optional user agent.
//
// Strategies implement Provider. FileProvider re-reads the cookie file on
// every call so operators can rotate it without restarting the bot.
package identity
