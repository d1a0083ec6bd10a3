// Package voiceid provides the voice-conditioning capability used both for
// live in-call enrollment and for the asynchronous permanent-enrollment job.
// The identity payload it produces is opaque; only synthesis consumes it.
package voiceid

import "context"

// Encoder defines the interface for voice-identity computation.
type Encoder interface {
	// ComputeIdentity derives a voice-conditioning payload from sample audio.
	ComputeIdentity(ctx context.Context, pcm []byte) ([]byte, error)
}
