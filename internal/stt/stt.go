package stt

import "context"

// Client defines the interface for speech-to-text providers.
type Client interface {
	// Transcribe converts a window of raw PCM audio into text in the given
	// language. An empty string with a nil error means nothing was recognized;
	// callers treat it as "nothing to process", not a failure.
	Transcribe(ctx context.Context, pcm []byte, language string) (string, error)
}
