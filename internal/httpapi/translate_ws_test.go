package httpapi

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/avolkov/volkovoice/internal/eventlog"
	"github.com/avolkov/volkovoice/internal/metrics"
)

func TestConfigUpdateMergesPerKey(t *testing.T) {
	var cfg sessionConfig
	cfg.sourceLang = "ru"
	cfg.targetLang = "en"
	cfg.formality = "formal"

	target := "de"
	cloneID := int64(4)
	cfg.apply(configUpdate{TargetLang: &target, VoiceCloneID: &cloneID})

	snap := cfg.snapshot()
	if snap.sourceLang != "ru" {
		t.Errorf("source_lang = %q, absent key must keep its value", snap.sourceLang)
	}
	if snap.targetLang != "de" || snap.voiceCloneID != 4 {
		t.Errorf("snapshot = %+v, want target de clone 4", snap)
	}
	if snap.formality != "formal" {
		t.Errorf("formality = %q, absent key must keep its value", snap.formality)
	}
}

func TestHandleControlIgnoresMalformedJSON(t *testing.T) {
	s, ft := newTestSession(baseCaps(&fakeSTT{}, &fakeTTS{}), nil, Thresholds{})
	s.handleControl([]byte("{not json"))
	s.handleControl([]byte(`{"type":"config","data":"not-an-object"}`))

	if got := s.cfg.snapshot(); got.sourceLang != "ru" {
		t.Errorf("config mutated by malformed input: %+v", got)
	}
	if got := ft.events(eventError); len(got) != 0 {
		t.Errorf("malformed control produced %d error events, want 0", len(got))
	}

	s.handleControl([]byte(`{"type":"config","data":{"source_lang":"en","target_lang":"ru"}}`))
	if got := s.cfg.snapshot(); got.sourceLang != "en" || got.targetLang != "ru" {
		t.Errorf("valid config not applied: %+v", got)
	}
	if got := ft.events(eventStatus); len(got) != 1 {
		t.Errorf("status events = %d, want 1 ack", len(got))
	}
}

func newWSTestServer(t *testing.T, caps Capabilities) (*httptest.Server, *SessionRegistry) {
	t.Helper()
	sessions := NewSessionRegistry()
	reg := prometheus.NewRegistry()
	handler := NewRouter(RouterConfig{
		JWTSecret:           "test-secret",
		DefaultSourceLang:   "ru",
		DefaultTargetLang:   "en",
		DefaultFormality:    "formal",
		ChatPrimaryLang:     "ru",
		ChatSecondaryLang:   "en",
		LiveEnrollThreshold: 1 << 30,
	}, discardLogger(), Deps{
		EventLog:        eventlog.New(nil),
		Metrics:         metrics.New(reg),
		MetricsRegistry: reg,
		Caps:            caps,
		Sessions:        sessions,
		Rooms:           NewRoomRegistry(discardLogger()),
	})
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, sessions
}

func dialWS(t *testing.T, srv *httptest.Server, path, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	return conn
}

// readUntilEvent drains frames until a JSON event of the wanted type arrives,
// collecting any binary frames seen on the way.
func readUntilEvent(t *testing.T, conn *websocket.Conn, want string) (json.RawMessage, [][]byte) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var binary [][]byte
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %s event: %v", want, err)
		}
		if msgType == websocket.BinaryMessage {
			binary = append(binary, data)
			continue
		}
		var ev struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("bad event frame %q: %v", data, err)
		}
		if ev.Type == want {
			return ev.Data, binary
		}
	}
}

func TestTranslateWSRejectsBadToken(t *testing.T) {
	srv, _ := newWSTestServer(t, baseCaps(&fakeSTT{}, &fakeTTS{}))

	conn := dialWS(t, srv, "/ws/translate", "bad-token")
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("read err = %v, want close %d", err, websocket.ClosePolicyViolation)
	}
}

func TestTranslateWSEndToEnd(t *testing.T) {
	sttC := &fakeSTT{text: "privet"}
	ttsC := &fakeTTS{chunks: [][]byte{{1, 2}, {3, 4}}}
	srv, sessions := newWSTestServer(t, baseCaps(sttC, ttsC))

	token := signToken(t, "test-secret", "alice", time.Hour)
	conn := dialWS(t, srv, "/ws/translate", token)
	defer conn.Close()

	readUntilEvent(t, conn, eventStatus) // "Connected."

	err := conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"config","data":{"emotion":"excited"}}`))
	if err != nil {
		t.Fatalf("send config: %v", err)
	}
	readUntilEvent(t, conn, eventStatus) // config ack

	// One chunk past the fallback threshold triggers the single-speaker
	// pipeline.
	if err := conn.WriteMessage(websocket.BinaryMessage, make([]byte, 100000)); err != nil {
		t.Fatalf("send audio: %v", err)
	}

	data, _ := readUntilEvent(t, conn, eventTranscript)
	var seg segmentText
	if err := json.Unmarshal(data, &seg); err != nil {
		t.Fatalf("transcript payload: %v", err)
	}
	if seg.Text != "privet" || seg.Speaker != singleSpeakerLabel {
		t.Errorf("transcript = %+v", seg)
	}

	data, _ = readUntilEvent(t, conn, eventTranslation)
	if err := json.Unmarshal(data, &seg); err != nil {
		t.Fatalf("translation payload: %v", err)
	}
	if seg.Text != "en:privet" || seg.Lang != "en" {
		t.Errorf("translation = %+v", seg)
	}

	if reqs := ttsC.requests(); len(reqs) != 1 || reqs[0].Emotion.Temperature != 0.85 {
		t.Errorf("synthesis requests = %+v, want one with excited preset", reqs)
	}

	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = conn.Close()

	waitForCount(t, sessions, 0)
}

func TestTranslateWSSupersedesDuplicate(t *testing.T) {
	srv, sessions := newWSTestServer(t, baseCaps(&fakeSTT{}, &fakeTTS{}))
	token := signToken(t, "test-secret", "alice", time.Hour)

	first := dialWS(t, srv, "/ws/translate", token)
	defer first.Close()
	readUntilEvent(t, first, eventStatus)

	second := dialWS(t, srv, "/ws/translate", token)
	defer second.Close()
	readUntilEvent(t, second, eventStatus)

	// The first connection is actively closed by the superseding register.
	_ = first.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		if _, _, err := first.ReadMessage(); err != nil {
			break
		}
	}

	waitForCount(t, sessions, 1)
}

func TestTranslateWSUnavailableWithoutCoreCapabilities(t *testing.T) {
	srv, _ := newWSTestServer(t, Capabilities{})

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/translate?token=x"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("dial succeeded without STT/TTS configured")
	}
	if resp == nil || resp.StatusCode != 503 {
		t.Fatalf("status = %v, want 503", resp)
	}
}

func waitForCount(t *testing.T, sessions *SessionRegistry, want int64) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if sessions.ActiveCount() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("active sessions = %d, want %d", sessions.ActiveCount(), want)
}
