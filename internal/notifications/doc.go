// Package notifications alerts the operator about bot lifecycle and incident
// events.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and degrades to a no-op when no topic is set. End users never
// see these messages; they carry the diagnostic detail the chat reply omits.
package notifications
