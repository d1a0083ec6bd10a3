package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// OpusMTClient implements the Client interface against an OPUS-MT style
// translation server serving one language pair.
type OpusMTClient struct {
	baseURL    string
	source     string
	target     string
	httpClient *http.Client
}

// OpusMTConfig holds configuration for one translation direction.
type OpusMTConfig struct {
	BaseURL    string // e.g., "http://translate:9001"
	Source     string // e.g., "ru"
	Target     string // e.g., "en"
	HTTPClient *http.Client
}

// NewOpusMTClient creates a translation client for one direction.
func NewOpusMTClient(cfg OpusMTConfig) *OpusMTClient {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &OpusMTClient{
		baseURL:    cfg.BaseURL,
		source:     cfg.Source,
		target:     cfg.Target,
		httpClient: httpClient,
	}
}

type translateRequest struct {
	Text      string `json:"text"`
	Source    string `json:"source"`
	Target    string `json:"target"`
	Formality string `json:"formality,omitempty"`
}

type translateResponse struct {
	Text string `json:"text"`
}

// Translate sends text to the translation server and returns the result.
func (c *OpusMTClient) Translate(ctx context.Context, text, formality string) (string, error) {
	body, err := json.Marshal(translateRequest{
		Text:      text,
		Source:    c.source,
		Target:    c.target,
		Formality: formality,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/translate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("translate API error: %s - %s", resp.Status, string(respBody))
	}

	var tr translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return tr.Text, nil
}
