// Package metrics defines the Prometheus instruments of the translation
// service. A Metrics value is constructed once per process (or per test, with
// an isolated registry) and shared through injection.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the translation service.
type Metrics struct {
	// Translation session metrics
	ActiveSessions  prometheus.Gauge
	SessionsStarted prometheus.Counter
	AudioBytesIn    prometheus.Counter

	// Buffering and pipeline metrics
	PipelineTriggers  *prometheus.CounterVec // branch: diarized | single
	StageErrors       *prometheus.CounterVec // stage: diarization | transcription | translation | synthesis
	EnrollmentResults *prometheus.CounterVec // outcome: succeeded | failed
	SynthesisChunks   prometheus.Counter

	// Chat metrics
	ChatMessages       prometheus.Counter
	ChatMembersDropped prometheus.Counter
}

// New creates and registers all metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "volkovoice_active_sessions",
			Help: "Current number of active translation sessions",
		}),
		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "volkovoice_sessions_started_total",
			Help: "Total number of translation sessions started",
		}),
		AudioBytesIn: factory.NewCounter(prometheus.CounterOpts{
			Name: "volkovoice_audio_bytes_in_total",
			Help: "Total bytes of inbound PCM audio",
		}),
		PipelineTriggers: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "volkovoice_pipeline_triggers_total",
			Help: "Total pipeline triggers by branch",
		}, []string{"branch"}),
		StageErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "volkovoice_stage_errors_total",
			Help: "Total recoverable pipeline stage errors by stage",
		}, []string{"stage"}),
		EnrollmentResults: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "volkovoice_live_enrollments_total",
			Help: "Total live voice enrollment attempts by outcome",
		}, []string{"outcome"}),
		SynthesisChunks: factory.NewCounter(prometheus.CounterOpts{
			Name: "volkovoice_synthesis_chunks_total",
			Help: "Total synthesized audio chunks streamed to clients",
		}),
		ChatMessages: factory.NewCounter(prometheus.CounterOpts{
			Name: "volkovoice_chat_messages_total",
			Help: "Total chat messages relayed",
		}),
		ChatMembersDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "volkovoice_chat_members_dropped_total",
			Help: "Total chat members removed after a failed delivery",
		}),
	}
}
