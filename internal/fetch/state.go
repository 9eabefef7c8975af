package fetch

// State names a step of a fetch.
type State string

const (
	StateResolving   State = "resolving"
	StateEstimating  State = "estimating"
	StateGated       State = "gated"
	StateTranscoding State = "transcoding"
	StateReady       State = "ready"
	StateFailed      State = "failed"
)
