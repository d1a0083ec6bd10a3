package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/avolkov/volkovoice/internal/audio"
)

// LangPair is one enabled translation direction.
type LangPair struct {
	Source string
	Target string
}

type Config struct {
	HTTPAddr    string
	DatabaseURL string
	SentryDSN   string

	// Inference service endpoints. Diarize and Keywords are optional; an
	// empty URL disables the capability and the pipeline degrades gracefully.
	STTURL       string
	TTSURL       string
	TranslateURL string
	DiarizeURL   string
	KeywordsURL  string
	VoiceIDURL   string

	// Enabled translation directions, e.g. ru->en and en->ru
	TranslatePairs []LangPair

	// Defaults for a fresh translation session
	DefaultSourceLang string
	DefaultTargetLang string
	DefaultFormality  string

	// Fixed two-language chat pair
	ChatPrimaryLang   string
	ChatSecondaryLang string

	// Buffer trigger thresholds, in bytes of 16kHz 16-bit mono PCM
	LiveEnrollThreshold int
	DiarizeThreshold    int
	FallbackThreshold   int

	// Per-session audio work queue capacity
	AudioQueueSize int

	// Voice clone training job
	CloneTrainingInterval time.Duration

	// JWT Authentication
	JWTSecret string
}

func LoadConfigFromEnv() Config {
	trainingInterval, err := time.ParseDuration(getenv("CLONE_TRAINING_INTERVAL", "30s"))
	if err != nil {
		trainingInterval = 30 * time.Second
	}

	return Config{
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		DatabaseURL: getenv("DATABASE_URL", ""),
		SentryDSN:   getenv("SENTRY_DSN", ""),

		STTURL:       getenv("STT_URL", ""),
		TTSURL:       getenv("TTS_URL", ""),
		TranslateURL: getenv("TRANSLATE_URL", ""),
		DiarizeURL:   getenv("DIARIZE_URL", ""),
		KeywordsURL:  getenv("KEYWORDS_URL", ""),
		VoiceIDURL:   getenv("VOICEID_URL", ""),

		TranslatePairs: parseLangPairs(getenv("TRANSLATE_PAIRS", "ru:en,en:ru")),

		DefaultSourceLang: getenv("DEFAULT_SOURCE_LANG", "ru"),
		DefaultTargetLang: getenv("DEFAULT_TARGET_LANG", "en"),
		DefaultFormality:  getenv("DEFAULT_FORMALITY", "formal"),

		ChatPrimaryLang:   getenv("CHAT_PRIMARY_LANG", "ru"),
		ChatSecondaryLang: getenv("CHAT_SECONDARY_LANG", "en"),

		// One second of audio is 32000 bytes; the clamps keep the triggers
		// between one second and one minute of buffered speech.
		LiveEnrollThreshold: getenvIntClamped("LIVE_ENROLL_THRESHOLD", 5*audio.BytesPerSecond, audio.BytesPerSecond, 60*audio.BytesPerSecond),
		DiarizeThreshold:    getenvIntClamped("DIARIZE_THRESHOLD", 180000, audio.BytesPerSecond, 60*audio.BytesPerSecond),
		FallbackThreshold:   getenvIntClamped("FALLBACK_THRESHOLD", 3*audio.BytesPerSecond, audio.BytesPerSecond, 60*audio.BytesPerSecond),

		AudioQueueSize: getenvIntClamped("AUDIO_QUEUE_SIZE", 64, 1, 1024),

		CloneTrainingInterval: trainingInterval,

		JWTSecret: os.Getenv("JWT_SECRET"), // Required - no fallback for security
	}
}

// parseLangPairs parses "ru:en,en:ru" into translation directions. Malformed
// entries are skipped.
func parseLangPairs(s string) []LangPair {
	if s == "" {
		return nil
	}
	var pairs []LangPair
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		source, target, ok := strings.Cut(entry, ":")
		source = strings.TrimSpace(source)
		target = strings.TrimSpace(target)
		if !ok || source == "" || target == "" {
			continue
		}
		pairs = append(pairs, LangPair{Source: source, Target: target})
	}
	return pairs
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntClamped(k string, def, min, max int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}
