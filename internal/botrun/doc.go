// Package botrun assembles trackbot's components from configuration and runs
// the long-polling bot until the process is signalled.
//
// Build is shared with the CLI so that `trackbot search` and `trackbot fetch`
// exercise exactly the same catalog and fetch engine as the running bot.
package botrun
