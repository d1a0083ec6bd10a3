// Package diarize provides the optional speaker-separation capability.
// When no client is configured the pipeline degrades to its single-speaker
// branch.
package diarize

import "context"

// Segment is one speaker-labeled region of an audio buffer, in seconds from
// the start of the buffer.
type Segment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

// Client defines the interface for diarization providers.
type Client interface {
	// Diarize partitions a PCM buffer into speaker-labeled segments ordered by
	// start time.
	Diarize(ctx context.Context, pcm []byte) ([]Segment, error)
}
