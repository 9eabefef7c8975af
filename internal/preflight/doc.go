// Package preflight provides readiness checks for the filesystem paths,
// credentials and remote endpoints trackbot depends on.
//
// These checks run in two contexts:
//   - botrun calls RunAll at startup and logs every failure with a hint, so a
//     misconfigured host is visible before the first user request fails.
//   - The CLI "trackbot status" command renders the same results as a table.
package preflight
