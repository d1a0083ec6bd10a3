package httpapi

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avolkov/volkovoice/internal/diarize"
	"github.com/avolkov/volkovoice/internal/eventlog"
	"github.com/avolkov/volkovoice/internal/keywords"
	"github.com/avolkov/volkovoice/internal/metrics"
	"github.com/avolkov/volkovoice/internal/store"
	"github.com/avolkov/volkovoice/internal/stt"
	"github.com/avolkov/volkovoice/internal/translate"
	"github.com/avolkov/volkovoice/internal/tts"
	"github.com/avolkov/volkovoice/internal/voiceid"
)

type RouterConfig struct {
	// JWT Authentication (websocket token query parameter)
	JWTSecret string

	// Default per-session config, overridable by live config messages
	DefaultSourceLang string
	DefaultTargetLang string
	DefaultFormality  string

	// Fixed two-language chat pair; a chat message's target language is the
	// complement of its source within this pair
	ChatPrimaryLang   string
	ChatSecondaryLang string

	// Buffer trigger thresholds, in bytes of 16kHz 16-bit mono PCM
	LiveEnrollThreshold int
	DiarizeThreshold    int
	FallbackThreshold   int

	// Audio work queue capacity; a full queue stalls the receiver
	AudioQueueSize int
}

// Capabilities bundles the external inference clients. Diarizer and Keywords
// are optional: a nil client degrades the pipeline gracefully. STT and TTS
// are required for a translation session to start at all.
type Capabilities struct {
	STT         stt.Client
	TTS         tts.Client
	Translators *translate.Registry
	Diarizer    diarize.Client
	Keywords    keywords.Client
	VoiceID     voiceid.Encoder
}

// CloneStore is the persistence surface the pipeline needs: enrolled clone
// lookup and fire-and-forget history recording.
type CloneStore interface {
	GetVoiceClone(ctx context.Context, id int64, userID string) (*store.VoiceClone, error)
	InsertTranslationHistory(ctx context.Context, h store.TranslationHistory) error
}

// Deps are the lifecycle-scoped services the router serves with. Registries
// are injected rather than package globals so tests can instantiate isolated
// instances and main can drain them on shutdown.
type Deps struct {
	Clones          CloneStore
	EventLog        *eventlog.Logger
	Metrics         *metrics.Metrics
	MetricsRegistry *prometheus.Registry
	Caps            Capabilities
	Sessions        *SessionRegistry
	Rooms           *RoomRegistry
}

type Router struct {
	cfg      RouterConfig
	logger   *log.Logger
	clones   CloneStore
	eventLog *eventlog.Logger
	metrics  *metrics.Metrics
	caps     Capabilities
	sessions *SessionRegistry
	rooms    *RoomRegistry
	mux      *http.ServeMux
}

func NewRouter(cfg RouterConfig, logger *log.Logger, deps Deps) http.Handler {
	r := &Router{
		cfg:      cfg,
		logger:   logger,
		clones:   deps.Clones,
		eventLog: deps.EventLog,
		metrics:  deps.Metrics,
		caps:     deps.Caps,
		sessions: deps.Sessions,
		rooms:    deps.Rooms,
		mux:      http.NewServeMux(),
	}

	r.routes(deps.MetricsRegistry)
	return withSentryRecovery(withCORS(r.mux))
}

func (r *Router) routes(reg *prometheus.Registry) {
	// Health check
	r.mux.HandleFunc("GET /healthz", r.handleHealthz)

	// Prometheus scrape endpoint
	if reg != nil {
		r.mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	// Websocket endpoints (token query parameter auth)
	r.mux.HandleFunc("GET /ws/translate", r.handleTranslateWS)
	r.mux.HandleFunc("GET /ws/chat/{session}", r.handleChatWS)
}

func (r *Router) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func withSentryRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				hub := sentry.CurrentHub().Clone()
				hub.Scope().SetRequest(req)
				hub.RecoverWithContext(req.Context(), err)
				hub.Flush(2 * time.Second)
				http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, req)
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if req.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, req)
	})
}

// captureError sends an error to Sentry with request context
func captureError(req *http.Request, err error, msg string) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetRequest(req)
		scope.SetExtra("message", msg)
		sentry.CaptureException(err)
	})
}
