// Package translate provides machine-translation capability clients, one per
// language pair, and a registry for resolving the client for a pair at runtime.
package translate

import (
	"context"
	"fmt"
)

// Client defines the interface for a single-direction machine translator.
type Client interface {
	// Translate converts text from the client's source language to its target
	// language. Formality is a hint ("formal", "informal" or empty) that
	// providers may ignore.
	Translate(ctx context.Context, text, formality string) (string, error)
}

// Pair identifies a translation direction.
type Pair struct {
	Source string
	Target string
}

func (p Pair) String() string {
	return fmt.Sprintf("%s->%s", p.Source, p.Target)
}

// Registry maps language pairs to translation clients. A missing pair is a
// reportable, non-fatal condition for callers.
type Registry struct {
	clients map[Pair]Client
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[Pair]Client)}
}

// Add registers a client for the given direction, replacing any existing one.
func (r *Registry) Add(source, target string, c Client) {
	r.clients[Pair{Source: source, Target: target}] = c
}

// Lookup returns the client for the given direction, if one is registered.
func (r *Registry) Lookup(source, target string) (Client, bool) {
	c, ok := r.clients[Pair{Source: source, Target: target}]
	return c, ok
}

// Pairs returns every registered direction.
func (r *Registry) Pairs() []Pair {
	pairs := make([]Pair, 0, len(r.clients))
	for p := range r.clients {
		pairs = append(pairs, p)
	}
	return pairs
}
