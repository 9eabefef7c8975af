// Package media defines the metadata records exchanged between the index
// backends and the retrieval pipeline.
package media
