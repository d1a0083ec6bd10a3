package app

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/avolkov/volkovoice/internal/diarize"
	"github.com/avolkov/volkovoice/internal/eventlog"
	"github.com/avolkov/volkovoice/internal/httpapi"
	"github.com/avolkov/volkovoice/internal/jobs"
	"github.com/avolkov/volkovoice/internal/keywords"
	"github.com/avolkov/volkovoice/internal/metrics"
	"github.com/avolkov/volkovoice/internal/store"
	"github.com/avolkov/volkovoice/internal/stt"
	"github.com/avolkov/volkovoice/internal/translate"
	"github.com/avolkov/volkovoice/internal/tts"
	"github.com/avolkov/volkovoice/internal/voiceid"
)

type App struct {
	cfg        Config
	logger     *log.Logger
	db         *pgxpool.Pool
	store      *store.Store
	eventLog   *eventlog.Logger
	metricsReg *prometheus.Registry
	metrics    *metrics.Metrics
	caps       httpapi.Capabilities
	httpClient *http.Client // Shared HTTP client with connection pooling for the inference services
}

func New(cfg Config, logger *log.Logger) (*App, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}

	s := store.New(db)
	el := eventlog.New(db)

	// Migrations are applied externally by the CI deploy job (docker exec psql).
	// No automatic migration runner at startup.

	// Shared HTTP client with connection pooling. Keeps TCP connections alive
	// to reduce latency for repeated calls to the inference sidecars.
	httpClient := &http.Client{
		Timeout: 60 * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   5 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}

	reg := prometheus.NewRegistry()

	a := &App{
		cfg:        cfg,
		logger:     logger,
		db:         db,
		store:      s,
		eventLog:   el,
		metricsReg: reg,
		metrics:    metrics.New(reg),
		httpClient: httpClient,
	}
	a.caps = a.buildCapabilities()
	return a, nil
}

// buildCapabilities wires the inference clients from the configured endpoint
// URLs. Diarization and keyword extraction stay nil when unconfigured; the
// pipeline degrades to single-speaker processing without keyword events.
func (a *App) buildCapabilities() httpapi.Capabilities {
	caps := httpapi.Capabilities{}

	if a.cfg.STTURL != "" {
		caps.STT = stt.NewWhisperClient(stt.WhisperConfig{BaseURL: a.cfg.STTURL, HTTPClient: a.httpClient})
	}
	if a.cfg.TTSURL != "" {
		caps.TTS = tts.NewXTTSClient(tts.XTTSConfig{BaseURL: a.cfg.TTSURL, HTTPClient: a.httpClient})
	}
	if a.cfg.VoiceIDURL != "" {
		caps.VoiceID = voiceid.NewEncoderClient(voiceid.EncoderConfig{BaseURL: a.cfg.VoiceIDURL, HTTPClient: a.httpClient})
	}
	if a.cfg.DiarizeURL != "" {
		caps.Diarizer = diarize.NewPyannoteClient(diarize.PyannoteConfig{BaseURL: a.cfg.DiarizeURL, HTTPClient: a.httpClient})
	}
	if a.cfg.KeywordsURL != "" {
		caps.Keywords = keywords.NewKeyBERTClient(keywords.KeyBERTConfig{BaseURL: a.cfg.KeywordsURL, HTTPClient: a.httpClient})
	}

	if a.cfg.TranslateURL != "" && len(a.cfg.TranslatePairs) > 0 {
		registry := translate.NewRegistry()
		for _, pair := range a.cfg.TranslatePairs {
			registry.Add(pair.Source, pair.Target, translate.NewOpusMTClient(translate.OpusMTConfig{
				BaseURL:    a.cfg.TranslateURL,
				Source:     pair.Source,
				Target:     pair.Target,
				HTTPClient: a.httpClient,
			}))
		}
		caps.Translators = registry
	}

	return caps
}

func (a *App) Router(sessions *httpapi.SessionRegistry, rooms *httpapi.RoomRegistry) http.Handler {
	routerCfg := httpapi.RouterConfig{
		JWTSecret:           a.cfg.JWTSecret,
		DefaultSourceLang:   a.cfg.DefaultSourceLang,
		DefaultTargetLang:   a.cfg.DefaultTargetLang,
		DefaultFormality:    a.cfg.DefaultFormality,
		ChatPrimaryLang:     a.cfg.ChatPrimaryLang,
		ChatSecondaryLang:   a.cfg.ChatSecondaryLang,
		LiveEnrollThreshold: a.cfg.LiveEnrollThreshold,
		DiarizeThreshold:    a.cfg.DiarizeThreshold,
		FallbackThreshold:   a.cfg.FallbackThreshold,
		AudioQueueSize:      a.cfg.AudioQueueSize,
	}
	return httpapi.NewRouter(routerCfg, a.logger, httpapi.Deps{
		Clones:          a.store,
		EventLog:        a.eventLog,
		Metrics:         a.metrics,
		MetricsRegistry: a.metricsReg,
		Caps:            a.caps,
		Sessions:        sessions,
		Rooms:           rooms,
	})
}

// CloneTrainingJob builds the background job that turns pending voice clones
// into usable ones. Returns nil when no voice-identity encoder is configured.
func (a *App) CloneTrainingJob() *jobs.CloneTrainingJob {
	if a.caps.VoiceID == nil {
		return nil
	}
	return jobs.NewCloneTrainingJob(a.store, a.caps.VoiceID, a.eventLog, a.logger, a.cfg.CloneTrainingInterval)
}

func (a *App) Close() error {
	if a.db != nil {
		a.db.Close()
	}
	return nil
}
