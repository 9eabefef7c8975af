package fetch

import (
	"errors"
	"time"

	"trackbot/internal/artifact"
	"trackbot/internal/sizing"
)

// Result is one of Ready, TooLarge or Failed.
type Result interface {
	isResult()
}

// Ready carries a confirmed, non-empty artifact. The artifact lease stays held
// until Cleanup or Keep is called.
type Ready struct {
	MediaID   string
	Title     string
	Path      string
	SizeBytes int64
	Duration  time.Duration

	lease *artifact.Lease
}

// TooLarge reports that the item exceeds the transport ceiling. No artifact
// exists for it.
type TooLarge struct {
	MediaID        string
	EstimatedBytes int64
	CeilingBytes   int64
	Basis          sizing.Basis
}

// Failed carries a classified error. No artifact exists for it.
type Failed struct {
	MediaID string
	Err     error
}

func (Ready) isResult()    {}
func (TooLarge) isResult() {}
func (Failed) isResult()   {}

// Cleanup deletes the artifact and releases the key. It is safe to call more
// than once.
func (r Ready) Cleanup() error {
	if r.lease == nil {
		return nil
	}
	return errors.Join(r.lease.Remove(), r.lease.Release())
}

// Keep releases the key but leaves the artifact on disk.
func (r Ready) Keep() error {
	if r.lease == nil {
		return nil
	}
	return r.lease.Release()
}

// Error implements error so a Failed can be returned where an error is
// expected.
func (f Failed) Error() string {
	if f.Err == nil {
		return "fetch failed"
	}
	return f.Err.Error()
}

func (f Failed) Unwrap() error {
	return f.Err
}
