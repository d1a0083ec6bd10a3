// Package audio holds the PCM stream format shared by the translation pipeline
// and helpers for converting between byte counts, durations and time-bounded
// slices of a buffer.
package audio

// The stream format is negotiated out of band: every translation connection
// carries 16 kHz, 16-bit signed, mono PCM.
const (
	SampleRate     = 16000
	BytesPerSample = 2
	Channels       = 1
	BytesPerSecond = SampleRate * BytesPerSample * Channels
)

// Duration returns the playback time in seconds of n bytes of PCM.
func Duration(n int) float64 {
	return float64(n) / float64(BytesPerSecond)
}

// Bytes returns the buffer size covering the given number of seconds.
func Bytes(seconds float64) int {
	return alignToSample(int(seconds * float64(BytesPerSecond)))
}

// Slice returns the sub-buffer covering [start, end) seconds. The bounds are
// clamped to the buffer and aligned down to sample boundaries, so the result
// is always a valid (possibly empty) run of whole samples.
func Slice(pcm []byte, start, end float64) []byte {
	if start < 0 {
		start = 0
	}
	lo := alignToSample(int(start * float64(BytesPerSecond)))
	hi := alignToSample(int(end * float64(BytesPerSecond)))
	if lo > len(pcm) {
		lo = alignToSample(len(pcm))
	}
	if hi > len(pcm) {
		hi = alignToSample(len(pcm))
	}
	if hi < lo {
		hi = lo
	}
	return pcm[lo:hi]
}

func alignToSample(n int) int {
	return n - n%BytesPerSample
}
