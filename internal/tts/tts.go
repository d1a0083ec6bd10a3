package tts

import "context"

// Request describes one synthesis call.
type Request struct {
	Text     string
	Language string
	// Identity is the opaque voice-conditioning payload produced by enrollment.
	// Nil selects the provider's default reference voice.
	Identity []byte
	Emotion  EmotionParams
}

// Client defines the interface for text-to-speech providers.
type Client interface {
	// SynthesizeStream converts text to speech and streams raw audio chunks in
	// production order. The returned channel is a finite, non-restartable
	// sequence: it is closed when the utterance is complete and must be drained
	// or cancelled via ctx.
	SynthesizeStream(ctx context.Context, req Request) (<-chan []byte, error)
}
