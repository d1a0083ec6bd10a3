package voiceid

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// EncoderClient implements the Encoder interface against the conditioning
// endpoint of an XTTS-style inference server.
type EncoderClient struct {
	baseURL    string
	httpClient *http.Client
}

// EncoderConfig holds configuration for the encoder client.
type EncoderConfig struct {
	BaseURL    string // e.g., "http://xtts:9002"
	HTTPClient *http.Client
}

// NewEncoderClient creates a new voice-identity encoder client.
func NewEncoderClient(cfg EncoderConfig) *EncoderClient {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &EncoderClient{
		baseURL:    cfg.BaseURL,
		httpClient: httpClient,
	}
}

type identityResponse struct {
	Identity string `json:"identity"` // base64 conditioning payload
}

// ComputeIdentity sends sample audio to the server and returns the decoded
// conditioning payload.
func (c *EncoderClient) ComputeIdentity(ctx context.Context, pcm []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/voice-identity", bytes.NewReader(pcm))
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
		return nil, fmt.Errorf("voice identity API error: %s - %s", resp.Status, string(respBody))
	}

	var ir identityResponse
	if err := json.NewDecoder(resp.Body).Decode(&ir); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	identity, err := base64.StdEncoding.DecodeString(ir.Identity)
	if err != nil {
		return nil, fmt.Errorf("failed to decode identity payload: %w", err)
	}
	if len(identity) == 0 {
		return nil, fmt.Errorf("server returned empty identity payload")
	}
	return identity, nil
}
