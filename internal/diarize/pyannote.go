package diarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
)

// PyannoteClient implements the Client interface against a pyannote-style
// diarization server.
type PyannoteClient struct {
	baseURL    string
	httpClient *http.Client
}

// PyannoteConfig holds configuration for the diarization client.
type PyannoteConfig struct {
	BaseURL    string // e.g., "http://diarize:9003"
	HTTPClient *http.Client
}

// NewPyannoteClient creates a new diarization client.
func NewPyannoteClient(cfg PyannoteConfig) *PyannoteClient {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &PyannoteClient{
		baseURL:    cfg.BaseURL,
		httpClient: httpClient,
	}
}

type diarizeResponse struct {
	Segments []Segment `json:"segments"`
}

// Diarize sends a PCM buffer to the server and returns its speaker segments
// ordered by start time.
func (c *PyannoteClient) Diarize(ctx context.Context, pcm []byte) ([]Segment, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/diarize", bytes.NewReader(pcm))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("diarize API error: %s - %s", resp.Status, string(respBody))
	}

	var dr diarizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	// The server usually emits segments in order, but the pipeline depends on it.
	sort.SliceStable(dr.Segments, func(i, j int) bool {
		return dr.Segments[i].Start < dr.Segments[j].Start
	})
	return dr.Segments, nil
}
