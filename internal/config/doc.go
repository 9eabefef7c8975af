// Package config loads, normalizes, and validates trackbot configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// TELEGRAM_BOT_TOKEN, optionally sourced from a .env file. The Config type
// centralizes every knob the bot and CLI need: the working directory for
// transient artifacts, the transport size ceiling, the candidate count, the
// target bitrate, and the identity material used against the media index.
//
// Components receive the relevant sections explicitly at construction; there
// is no package-level mutable configuration.
package config
