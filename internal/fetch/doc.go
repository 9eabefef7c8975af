// Package fetch resolves, size-gates, downloads and transcodes one media item
// into a local artifact.
//
// Each call walks Resolving → Estimating → (Gated | Transcoding → Ready) and
// may end in Failed from any state. The size estimate is always taken before
// any payload is transferred. Results are a closed set of variants: Ready,
// TooLarge and Failed.
package fetch
