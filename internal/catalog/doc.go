// Package catalog turns a free-text query into a bounded, ordered list of
// candidates from the media index.
package catalog
