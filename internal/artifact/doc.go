// Package artifact manages the transient files a fetch produces inside the
// working directory.
//
// Every artifact is keyed by media ID. A Lease grants exclusive use of one
// key: an in-process slot serialises goroutines and an advisory flock on
// <work>/<id>.lock serialises processes sharing the directory. The lease is
// held from fetch start until the artifact has been delivered and removed.
package artifact
