package httpapi

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/avolkov/volkovoice/internal/diarize"
	"github.com/avolkov/volkovoice/internal/eventlog"
	"github.com/avolkov/volkovoice/internal/metrics"
	"github.com/avolkov/volkovoice/internal/store"
	"github.com/avolkov/volkovoice/internal/translate"
	"github.com/avolkov/volkovoice/internal/tts"
)

// fakeTransport records everything written to it.
type fakeTransport struct {
	mu      sync.Mutex
	writes  []any
	binary  [][]byte
	failAll bool
	closed  bool
}

func (f *fakeTransport) WriteJSON(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errors.New("transport failed")
	}
	f.writes = append(f.writes, v)
	return nil
}

func (f *fakeTransport) WriteMessage(_ int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errors.New("transport failed")
	}
	f.binary = append(f.binary, append([]byte(nil), data...))
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// events returns the wsEvent frames written so far, filtered by type.
func (f *fakeTransport) events(eventType string) []wsEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []wsEvent
	for _, w := range f.writes {
		if ev, ok := w.(wsEvent); ok && ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

func (f *fakeTransport) binaryFrames() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.binary...)
}

func (f *fakeTransport) broadcasts() []chatBroadcast {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []chatBroadcast
	for _, w := range f.writes {
		if b, ok := w.(chatBroadcast); ok {
			out = append(out, b)
		}
	}
	return out
}

type fakeSTT struct {
	mu    sync.Mutex
	calls [][]byte
	text  string
	err   error
}

func (f *fakeSTT) Transcribe(_ context.Context, pcm []byte, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, pcm)
	return f.text, f.err
}

func (f *fakeSTT) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeTranslator struct {
	prefix string
	err    error
}

func (f *fakeTranslator) Translate(_ context.Context, text, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.prefix + text, nil
}

type fakeTTS struct {
	mu     sync.Mutex
	chunks [][]byte
	err    error
	reqs   []tts.Request
}

func (f *fakeTTS) SynthesizeStream(_ context.Context, req tts.Request) (<-chan []byte, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan []byte, len(f.chunks))
	for _, c := range f.chunks {
		ch <- c
	}
	close(ch)
	return ch, nil
}

func (f *fakeTTS) requests() []tts.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tts.Request(nil), f.reqs...)
}

type fakeDiarizer struct {
	segs []diarize.Segment
	err  error
}

func (f *fakeDiarizer) Diarize(_ context.Context, _ []byte) ([]diarize.Segment, error) {
	return f.segs, f.err
}

type fakeKeywords struct {
	mu    sync.Mutex
	calls int
	kws   []string
	err   error
}

func (f *fakeKeywords) Extract(_ context.Context, _ string) ([]string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.kws, f.err
}

type fakeEncoder struct {
	mu       sync.Mutex
	calls    int
	lastPCM  []byte
	identity []byte
	err      error
}

func (f *fakeEncoder) ComputeIdentity(_ context.Context, pcm []byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastPCM = append([]byte(nil), pcm...)
	return f.identity, f.err
}

type fakeCloneStore struct {
	mu        sync.Mutex
	clones    map[int64]*store.VoiceClone
	histories []store.TranslationHistory
	getErr    error
}

func (f *fakeCloneStore) GetVoiceClone(_ context.Context, id int64, userID string) (*store.VoiceClone, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	c, ok := f.clones[id]
	if !ok || c.UserID != userID {
		return nil, nil
	}
	return c, nil
}

func (f *fakeCloneStore) InsertTranslationHistory(_ context.Context, h store.TranslationHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.histories = append(f.histories, h)
	return nil
}

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// newTestSession builds a translateSession wired to fakes, bypassing the
// websocket upgrade path.
func newTestSession(caps Capabilities, clones CloneStore, th Thresholds) (*translateSession, *fakeTransport) {
	ft := &fakeTransport{}
	ctx, cancel := context.WithCancel(context.Background())
	s := &translateSession{
		id:         "sess-test",
		identity:   "user-1",
		conn:       ft,
		caps:       caps,
		clones:     clones,
		eventLog:   eventlog.New(nil),
		metrics:    metrics.New(prometheus.NewRegistry()),
		logger:     discardLogger(),
		thresholds: th.withDefaults(),
		audioCh:    make(chan []byte, defaultAudioQueueSize),
		ctx:        ctx,
		cancel:     cancel,
	}
	s.cfg.sourceLang = "ru"
	s.cfg.targetLang = "en"
	s.cfg.formality = "formal"
	return s, ft
}

func testTranslators() *translate.Registry {
	reg := translate.NewRegistry()
	reg.Add("ru", "en", &fakeTranslator{prefix: "en:"})
	reg.Add("en", "ru", &fakeTranslator{prefix: "ru:"})
	return reg
}
