package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// XTTSClient implements the Client interface against an XTTS inference server
// with a chunked streaming endpoint.
type XTTSClient struct {
	baseURL    string
	httpClient *http.Client
}

// XTTSConfig holds configuration for the XTTS client.
type XTTSConfig struct {
	BaseURL    string // e.g., "http://xtts:9002"
	HTTPClient *http.Client
}

// NewXTTSClient creates a new XTTS streaming client.
func NewXTTSClient(cfg XTTSConfig) *XTTSClient {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &XTTSClient{
		baseURL:    cfg.BaseURL,
		httpClient: httpClient,
	}
}

// synthesisRequest is the wire form of a Request. Identity travels base64
// encoded; an empty string tells the server to use its default reference voice.
type synthesisRequest struct {
	Text     string        `json:"text"`
	Language string        `json:"language"`
	Identity string        `json:"identity,omitempty"`
	Emotion  EmotionParams `json:"emotion"`
}

// streamChunkSize is how much of the response body is forwarded per chunk:
// 4096 bytes is 128ms of 16kHz 16-bit mono PCM.
const streamChunkSize = 4096

// SynthesizeStream starts a synthesis call and returns a channel of raw audio
// chunks read incrementally from the response body.
func (c *XTTSClient) SynthesizeStream(ctx context.Context, req Request) (<-chan []byte, error) {
	wire := synthesisRequest{
		Text:     req.Text,
		Language: req.Language,
		Emotion:  req.Emotion,
	}
	if len(req.Identity) > 0 {
		wire.Identity = base64.StdEncoding.EncodeToString(req.Identity)
	}

	body, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/synthesize/stream", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("XTTS API error: %s - %s", resp.Status, string(respBody))
	}

	ch := make(chan []byte, 16)

	go func() {
		defer close(ch)
		defer resp.Body.Close()

		buf := make([]byte, streamChunkSize)
		for {
			n, err := resp.Body.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				select {
				case <-ctx.Done():
					return
				case ch <- chunk:
				}
			}
			if err != nil {
				return
			}
		}
	}()

	return ch, nil
}
