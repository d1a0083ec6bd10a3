package translate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

type staticClient struct{ out string }

func (c *staticClient) Translate(ctx context.Context, text, formality string) (string, error) {
	return c.out, nil
}

func TestRegistry_Lookup(t *testing.T) {
	r := NewRegistry()
	r.Add("ru", "en", &staticClient{out: "hello"})

	if _, ok := r.Lookup("ru", "en"); !ok {
		t.Error("Lookup(ru, en) ok = false, want true")
	}
	if _, ok := r.Lookup("en", "ru"); ok {
		t.Error("Lookup(en, ru) ok = true, want false for unregistered pair")
	}
	// Direction matters.
	if _, ok := r.Lookup("en", "en"); ok {
		t.Error("Lookup(en, en) ok = true, want false")
	}
}

func TestRegistry_AddReplaces(t *testing.T) {
	r := NewRegistry()
	r.Add("ru", "en", &staticClient{out: "first"})
	r.Add("ru", "en", &staticClient{out: "second"})

	c, ok := r.Lookup("ru", "en")
	if !ok {
		t.Fatal("Lookup(ru, en) ok = false, want true")
	}
	got, _ := c.Translate(context.Background(), "x", "")
	if got != "second" {
		t.Errorf("Translate() = %q, want %q (latest registration wins)", got, "second")
	}
}

func TestOpusMTClient_Translate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/translate" {
			t.Errorf("path = %q, want /v1/translate", r.URL.Path)
		}
		var req translateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Source != "ru" || req.Target != "en" {
			t.Errorf("pair = %s->%s, want ru->en", req.Source, req.Target)
		}
		if req.Formality != "formal" {
			t.Errorf("formality = %q, want %q", req.Formality, "formal")
		}
		_ = json.NewEncoder(w).Encode(translateResponse{Text: "Hello"})
	}))
	defer srv.Close()

	c := NewOpusMTClient(OpusMTConfig{BaseURL: srv.URL, Source: "ru", Target: "en"})

	got, err := c.Translate(context.Background(), "Привет", "formal")
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if got != "Hello" {
		t.Errorf("Translate() = %q, want %q", got, "Hello")
	}
}

func TestOpusMTClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unsupported pair", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewOpusMTClient(OpusMTConfig{BaseURL: srv.URL, Source: "ru", Target: "en"})
	if _, err := c.Translate(context.Background(), "Привет", ""); err == nil {
		t.Error("Translate() error = nil, want non-nil on 400")
	}
}
