package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/avolkov/volkovoice/internal/eventlog"
	"github.com/avolkov/volkovoice/internal/metrics"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Outbound event frame types.
const (
	eventStatus      = "status"
	eventTranscript  = "transcript"
	eventTranslation = "translation"
	eventKeywords    = "keywords"
	eventError       = "error"
	eventLiveClone   = "live_clone_success"
)

// wsEvent is the JSON frame sent to translation clients alongside raw
// binary audio frames.
type wsEvent struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// segmentText is the payload of transcript and translation events.
type segmentText struct {
	Text    string `json:"text"`
	Lang    string `json:"lang"`
	Speaker string `json:"speaker"`
}

// controlMessage is an inbound text frame.
type controlMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// configUpdate is the payload of a "config" control message. Pointer fields
// give shallow per-key overwrite semantics: only keys present in the JSON
// are applied.
type configUpdate struct {
	SourceLang   *string `json:"source_lang"`
	TargetLang   *string `json:"target_lang"`
	VoiceCloneID *int64  `json:"voice_clone_id"`
	Formality    *string `json:"formality"`
	Emotion      *string `json:"emotion"`
}

// sessionConfig is the live per-session configuration. The receiver goroutine
// writes it while the pipeline driver reads it mid-pipeline, so every access
// goes through the lock.
type sessionConfig struct {
	mu           sync.RWMutex
	sourceLang   string
	targetLang   string
	voiceCloneID int64 // 0 = no enrolled clone selected
	formality    string
	emotion      string
}

// configSnapshot is an immutable copy of the config taken at one point in the
// pipeline.
type configSnapshot struct {
	sourceLang   string
	targetLang   string
	voiceCloneID int64
	formality    string
	emotion      string
}

func (c *sessionConfig) apply(u configUpdate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if u.SourceLang != nil {
		c.sourceLang = *u.SourceLang
	}
	if u.TargetLang != nil {
		c.targetLang = *u.TargetLang
	}
	if u.VoiceCloneID != nil {
		c.voiceCloneID = *u.VoiceCloneID
	}
	if u.Formality != nil {
		c.formality = *u.Formality
	}
	if u.Emotion != nil {
		c.emotion = *u.Emotion
	}
}

func (c *sessionConfig) snapshot() configSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return configSnapshot{
		sourceLang:   c.sourceLang,
		targetLang:   c.targetLang,
		voiceCloneID: c.voiceCloneID,
		formality:    c.formality,
		emotion:      c.emotion,
	}
}

// enrollState is the per-session live-enrollment state machine. It moves from
// enrollNotAttempted exactly once and is only touched by the pipeline driver
// goroutine.
type enrollState int

const (
	enrollNotAttempted enrollState = iota
	enrollAttempting
	enrollSucceeded
	enrollFailed
)

// translateSession manages one live translation connection: a receiver
// goroutine demultiplexing inbound frames and a pipeline driver consuming the
// audio queue.
type translateSession struct {
	id       string // fresh per connection, used for event logging
	identity string

	ws   *websocket.Conn // inbound reads; nil in pipeline tests
	conn Transport       // serialized outbound writes

	cfg sessionConfig

	caps     Capabilities
	clones   CloneStore
	eventLog *eventlog.Logger
	metrics  *metrics.Metrics
	logger   *log.Logger

	thresholds Thresholds
	audioCh    chan []byte

	// Pipeline-driver state; never touched by the receiver.
	buf          []byte
	enrollState  enrollState
	liveIdentity []byte

	ctx    context.Context
	cancel context.CancelFunc
}

func (r *Router) handleTranslateWS(w http.ResponseWriter, req *http.Request) {
	// Fatal-session check: a session without transcription or synthesis can
	// never do useful work, so it is refused before it exists.
	if r.caps.STT == nil || r.caps.TTS == nil || r.caps.Translators == nil {
		r.logger.Printf("translate_ws: core capabilities not configured")
		captureError(req, errors.New("translation service not configured"), "translate_ws: configuration error")
		http.Error(w, "translation service unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Printf("translate_ws: upgrade failed: %v", err)
		return
	}

	identity, err := r.identityFromToken(req.URL.Query().Get("token"))
	if err != nil {
		r.logger.Printf("translate_ws: auth failed: %v", err)
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication failed"))
		_ = conn.Close()
		return
	}

	session := r.newTranslateSession(identity, conn)

	prev, ok := r.sessions.Register(identity, session)
	if !ok {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server shutting down"))
		_ = conn.Close()
		return
	}
	if prev != nil {
		// Last registration wins; actively close the superseded transport so
		// its receiver unwinds instead of lingering as a stale duplicate.
		r.logger.Printf("translate_ws: superseding active session for %s", identity)
		_ = prev.conn.Close()
	}
	defer r.sessions.Unregister(identity, session)

	session.run()
}

func (r *Router) newTranslateSession(identity string, conn *websocket.Conn) *translateSession {
	ctx, cancel := context.WithCancel(context.Background())

	queueSize := r.cfg.AudioQueueSize
	if queueSize <= 0 {
		queueSize = defaultAudioQueueSize
	}

	s := &translateSession{
		id:       uuid.NewString(),
		identity: identity,
		ws:       conn,
		conn:     newLockedConn(conn),
		caps:     r.caps,
		clones:   r.clones,
		eventLog: r.eventLog,
		metrics:  r.metrics,
		logger:   r.logger,
		thresholds: Thresholds{
			LiveEnroll: r.cfg.LiveEnrollThreshold,
			Diarize:    r.cfg.DiarizeThreshold,
			Fallback:   r.cfg.FallbackThreshold,
		}.withDefaults(),
		audioCh: make(chan []byte, queueSize),
		ctx:     ctx,
		cancel:  cancel,
	}
	s.cfg.sourceLang = r.cfg.DefaultSourceLang
	s.cfg.targetLang = r.cfg.DefaultTargetLang
	s.cfg.formality = r.cfg.DefaultFormality
	return s
}

// run drives the session to completion: the pipeline driver runs as a
// goroutine, the receiver runs inline, and both are awaited before the
// session is released.
func (s *translateSession) run() {
	defer s.cleanup()

	s.metrics.SessionsStarted.Inc()
	s.metrics.ActiveSessions.Inc()
	s.eventLog.LogAsync(s.id, eventlog.EventSessionStarted, map[string]any{"identity": s.identity})
	s.sendStatus("Connected.")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.processLoop()
	}()

	s.receiveLoop()
	wg.Wait()
}

// receiveLoop is the inbound demultiplexer: binary frames are queued for the
// pipeline driver, text frames become live config updates. External model
// calls never run here, so the session stays responsive to control messages
// during long-running synthesis. Closing the audio queue is the termination
// sentinel for the pipeline driver.
func (s *translateSession) receiveLoop() {
	defer close(s.audioCh)

	for {
		msgType, data, err := s.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Printf("translate_ws: connection closed for %s", s.identity)
			} else {
				s.logger.Printf("translate_ws: read error for %s: %v", s.identity, err)
			}
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			select {
			case s.audioCh <- data:
				// A full queue blocks here, stalling the reader: backpressure
				// instead of unbounded growth when synthesis lags ingestion.
			case <-s.ctx.Done():
				return
			}
		case websocket.TextMessage:
			s.handleControl(data)
		}
	}
}

// handleControl parses one inbound text frame. Malformed JSON is logged and
// ignored; it never aborts the connection.
func (s *translateSession) handleControl(data []byte) {
	var msg controlMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.logger.Printf("translate_ws: invalid control JSON from %s: %v", s.identity, err)
		return
	}
	if msg.Type != "config" {
		return
	}

	var u configUpdate
	if err := json.Unmarshal(msg.Data, &u); err != nil {
		s.logger.Printf("translate_ws: invalid config payload from %s: %v", s.identity, err)
		return
	}
	s.cfg.apply(u)

	snap := s.cfg.snapshot()
	s.logger.Printf("translate_ws: %s updated config: %s->%s clone=%d formality=%s emotion=%s",
		s.identity, snap.sourceLang, snap.targetLang, snap.voiceCloneID, snap.formality, snap.emotion)
	s.eventLog.LogAsync(s.id, eventlog.EventConfigUpdated, map[string]any{
		"source_lang": snap.sourceLang,
		"target_lang": snap.targetLang,
	})
	s.sendStatus("Configuration updated.")
}

func (s *translateSession) sendEvent(eventType string, data any) {
	if err := s.conn.WriteJSON(wsEvent{Type: eventType, Data: data}); err != nil {
		s.logger.Printf("translate_ws: send %s to %s failed: %v", eventType, s.identity, err)
	}
}

func (s *translateSession) sendStatus(msg string) { s.sendEvent(eventStatus, msg) }
func (s *translateSession) sendError(msg string)  { s.sendEvent(eventError, msg) }

func (s *translateSession) cleanup() {
	s.cancel()
	_ = s.conn.Close()
	s.metrics.ActiveSessions.Dec()
	s.eventLog.LogAsync(s.id, eventlog.EventSessionEnded, nil)
	s.logger.Printf("translate_ws: session cleaned up for %s", s.identity)
}
