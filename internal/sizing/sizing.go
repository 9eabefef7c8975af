// Package sizing predicts the byte size of a transcoded artifact before any
// payload is transferred.
package sizing

import (
	"math"

	"trackbot/internal/media"
)

// Basis names the figure an estimate was derived from.
type Basis string

const (
	// BasisReported means the source reported a size for the stream.
	BasisReported Basis = "reported"
	// BasisDuration means the size was derived from duration and bitrate.
	BasisDuration Basis = "duration"
	// BasisUnknown means neither size nor duration was available.
	BasisUnknown Basis = "unknown"
)

// Estimate is a predicted artifact size.
type Estimate struct {
	Bytes int64
	Basis Basis
}

// Estimator predicts artifact sizes for a target bitrate.
type Estimator struct {
	bitrateKbps int
}

// New returns an estimator for bitrateKbps (kilobits per second, 1 kbit =
// 1024 bits).
func New(bitrateKbps int) Estimator {
	return Estimator{bitrateKbps: bitrateKbps}
}

// BytesPerSecond is the output rate implied by the configured bitrate.
func (e Estimator) BytesPerSecond() int64 {
	return int64(e.bitrateKbps) * 1024 / 8
}

// Estimate prefers a positive reported size and otherwise falls back to
// duration × bitrate. A missing reported size is never read as zero.
func (e Estimator) Estimate(info media.StreamInfo) Estimate {
	if info.ReportedSizeBytes > 0 {
		return Estimate{Bytes: info.ReportedSizeBytes, Basis: BasisReported}
	}
	if info.DurationSeconds > 0 && !math.IsInf(info.DurationSeconds, 0) {
		return Estimate{
			Bytes: int64(info.DurationSeconds * float64(e.BytesPerSecond())),
			Basis: BasisDuration,
		}
	}
	return Estimate{Basis: BasisUnknown}
}

// Exceeds reports whether the estimate is strictly above ceiling.
func (e Estimate) Exceeds(ceiling int64) bool {
	return e.Bytes > ceiling
}
