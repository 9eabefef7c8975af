// Package services defines shared utilities consumed by the retrieval and
// delivery components and their external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp request IDs, media IDs, and chat IDs for
//     logging and tracing.
//   - Structured error markers plus the Wrap helper that translate failures
//     into the coarse taxonomy surfaced to users (search failed, empty result,
//     resolve failed, transcode failed, delivery failed).
//
// Use these helpers when wiring new components so error classification and
// observability stay uniform across the pipeline.
package services
