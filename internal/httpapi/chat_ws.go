package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/avolkov/volkovoice/internal/eventlog"
)

// chatMessage is an inbound chat frame.
type chatMessage struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
}

// chatBroadcast is the record delivered to every room member, sender
// included. It carries both sides of the translation so each client renders
// whichever language it prefers.
type chatBroadcast struct {
	ID             string    `json:"id"`
	Sender         string    `json:"sender"`
	OriginalText   string    `json:"original_text"`
	OriginalLang   string    `json:"original_lang"`
	TranslatedText string    `json:"translated_text"`
	TranslatedLang string    `json:"translated_lang"`
	Timestamp      time.Time `json:"timestamp"`
}

func (r *Router) handleChatWS(w http.ResponseWriter, req *http.Request) {
	if r.caps.Translators == nil {
		r.logger.Printf("chat: translators not configured")
		http.Error(w, "chat service unavailable", http.StatusServiceUnavailable)
		return
	}
	room := req.PathValue("session")

	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Printf("chat: upgrade failed: %v", err)
		return
	}

	identity, err := r.identityFromToken(req.URL.Query().Get("token"))
	if err != nil {
		r.logger.Printf("chat: auth failed: %v", err)
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication failed"))
		_ = conn.Close()
		return
	}

	t := newLockedConn(conn)
	r.rooms.Join(room, identity, t)
	defer func() {
		r.rooms.Leave(room, identity)
		_ = t.Close()
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				r.logger.Printf("chat: %s disconnected from room %s", identity, room)
			} else {
				r.logger.Printf("chat: read error for %s in room %s: %v", identity, room, err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var msg chatMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			r.logger.Printf("chat: invalid message from %s in room %s: %v", identity, room, err)
			continue
		}
		r.relayChatMessage(req.Context(), room, identity, msg)
	}
}

// relayChatMessage translates one inbound message to the complement of the
// fixed chat language pair and broadcasts the record to the whole room. An
// unsupported pair or a translation failure drops the message only; the room
// stays up.
func (r *Router) relayChatMessage(ctx context.Context, room, sender string, msg chatMessage) {
	target := r.chatComplement(msg.SourceLang)
	tr, ok := r.caps.Translators.Lookup(msg.SourceLang, target)
	if !ok {
		r.logger.Printf("chat: unsupported translation %s->%s in room %s", msg.SourceLang, target, room)
		return
	}

	translated, err := tr.Translate(ctx, msg.Text, "")
	if err != nil {
		r.logger.Printf("chat: translation failed in room %s: %v", room, err)
		return
	}

	rec := chatBroadcast{
		ID:             uuid.NewString(),
		Sender:         sender,
		OriginalText:   msg.Text,
		OriginalLang:   msg.SourceLang,
		TranslatedText: translated,
		TranslatedLang: target,
		Timestamp:      time.Now().UTC(),
	}
	dropped := r.rooms.Broadcast(room, rec)

	r.metrics.ChatMessages.Inc()
	if dropped > 0 {
		r.metrics.ChatMembersDropped.Add(float64(dropped))
	}
	r.eventLog.LogAsync(room, eventlog.EventChatMessage, map[string]any{
		"sender":      sender,
		"source_lang": msg.SourceLang,
		"target_lang": target,
	})
}

// chatComplement returns the other language of the fixed chat pair. Any
// source outside the pair maps to the primary language.
func (r *Router) chatComplement(source string) string {
	if source == r.cfg.ChatPrimaryLang {
		return r.cfg.ChatSecondaryLang
	}
	return r.cfg.ChatPrimaryLang
}
