package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/avolkov/volkovoice/internal/audio"
)

// WhisperClient implements the Client interface against a whisper inference
// server that accepts raw PCM and returns a transcript.
type WhisperClient struct {
	baseURL    string
	httpClient *http.Client
}

// WhisperConfig holds configuration for the whisper client.
type WhisperConfig struct {
	BaseURL    string       // e.g., "http://whisper:9000"
	HTTPClient *http.Client // optional shared client with connection pooling
}

// NewWhisperClient creates a new whisper STT client.
func NewWhisperClient(cfg WhisperConfig) *WhisperClient {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &WhisperClient{
		baseURL:    cfg.BaseURL,
		httpClient: httpClient,
	}
}

// transcribeResponse is the server's answer; Text may be empty when the
// window contained no recognizable speech.
type transcribeResponse struct {
	Text string `json:"text"`
}

// Transcribe sends one PCM window to the inference server and returns the
// recognized text.
func (c *WhisperClient) Transcribe(ctx context.Context, pcm []byte, language string) (string, error) {
	q := url.Values{}
	q.Set("language", language)
	q.Set("sample_rate", fmt.Sprintf("%d", audio.SampleRate))
	reqURL := fmt.Sprintf("%s/v1/transcribe?%s", c.baseURL, q.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(pcm))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("whisper API error: %s - %s", resp.Status, string(respBody))
	}

	var tr transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return tr.Text, nil
}
