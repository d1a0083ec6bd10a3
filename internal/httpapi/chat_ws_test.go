package httpapi

import (
	"context"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/avolkov/volkovoice/internal/eventlog"
	"github.com/avolkov/volkovoice/internal/metrics"
	"github.com/avolkov/volkovoice/internal/translate"
)

func newTestRouter(caps Capabilities) *Router {
	return &Router{
		cfg: RouterConfig{
			JWTSecret:         "test-secret",
			DefaultSourceLang: "ru",
			DefaultTargetLang: "en",
			DefaultFormality:  "formal",
			ChatPrimaryLang:   "ru",
			ChatSecondaryLang: "en",
		},
		logger:   discardLogger(),
		eventLog: eventlog.New(nil),
		metrics:  metrics.New(prometheus.NewRegistry()),
		caps:     caps,
		sessions: NewSessionRegistry(),
		rooms:    NewRoomRegistry(discardLogger()),
		mux:      http.NewServeMux(),
	}
}

func TestRelayChatMessageBroadcastsBothDirections(t *testing.T) {
	r := newTestRouter(Capabilities{Translators: testTranslators()})
	alice := &fakeTransport{}
	bob := &fakeTransport{}
	r.rooms.Join("call-1", "alice", alice)
	r.rooms.Join("call-1", "bob", bob)

	r.relayChatMessage(context.Background(), "call-1", "alice", chatMessage{Text: "privet", SourceLang: "ru"})

	for _, ft := range []*fakeTransport{alice, bob} {
		got := ft.broadcasts()
		if len(got) != 1 {
			t.Fatalf("broadcasts = %d, want 1 (sender included)", len(got))
		}
		b := got[0]
		if b.Sender != "alice" || b.OriginalText != "privet" || b.OriginalLang != "ru" {
			t.Errorf("original side = %+v", b)
		}
		if b.TranslatedText != "en:privet" || b.TranslatedLang != "en" {
			t.Errorf("translated side = %+v", b)
		}
		if b.ID == "" || b.Timestamp.IsZero() {
			t.Errorf("missing id or timestamp: %+v", b)
		}
	}

	// Reply in the other direction of the pair.
	r.relayChatMessage(context.Background(), "call-1", "bob", chatMessage{Text: "hello", SourceLang: "en"})
	got := alice.broadcasts()
	if len(got) != 2 {
		t.Fatalf("broadcasts = %d, want 2", len(got))
	}
	if got[1].TranslatedLang != "ru" || got[1].TranslatedText != "ru:hello" {
		t.Errorf("reply = %+v, want ru:hello", got[1])
	}
	if got[0].ID == got[1].ID {
		t.Error("broadcast ids not unique")
	}
}

func TestRelayChatUnsupportedPairDropsMessage(t *testing.T) {
	reg := translate.NewRegistry()
	reg.Add("ru", "en", &fakeTranslator{prefix: "en:"})
	r := newTestRouter(Capabilities{Translators: reg})
	alice := &fakeTransport{}
	r.rooms.Join("call-1", "alice", alice)

	// en->ru is not registered; the message is dropped, the room stays up.
	r.relayChatMessage(context.Background(), "call-1", "alice", chatMessage{Text: "hello", SourceLang: "en"})
	if got := alice.broadcasts(); len(got) != 0 {
		t.Fatalf("broadcasts = %d, want 0", len(got))
	}
	if n := r.rooms.MemberCount("call-1"); n != 1 {
		t.Fatalf("members = %d, want 1", n)
	}
}

func TestChatComplement(t *testing.T) {
	r := newTestRouter(Capabilities{Translators: testTranslators()})
	if got := r.chatComplement("ru"); got != "en" {
		t.Errorf("complement(ru) = %q, want en", got)
	}
	if got := r.chatComplement("en"); got != "ru" {
		t.Errorf("complement(en) = %q, want ru", got)
	}
	// Anything outside the pair maps to the primary language.
	if got := r.chatComplement("de"); got != "ru" {
		t.Errorf("complement(de) = %q, want ru", got)
	}
}
