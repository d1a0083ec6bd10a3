// Package keywords provides the optional topic-recognition capability.
package keywords

import "context"

// Client defines the interface for keyword extraction providers.
type Client interface {
	// Extract returns the most relevant keywords of a text segment.
	Extract(ctx context.Context, text string) ([]string, error)
}
