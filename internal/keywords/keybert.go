package keywords

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// KeyBERTClient implements the Client interface against a KeyBERT-style
// extraction server.
type KeyBERTClient struct {
	baseURL    string
	topN       int
	httpClient *http.Client
}

// KeyBERTConfig holds configuration for the keyword extraction client.
type KeyBERTConfig struct {
	BaseURL    string // e.g., "http://keywords:9004"
	TopN       int    // number of keywords per segment, defaults to 3
	HTTPClient *http.Client
}

// NewKeyBERTClient creates a new keyword extraction client.
func NewKeyBERTClient(cfg KeyBERTConfig) *KeyBERTClient {
	topN := cfg.TopN
	if topN == 0 {
		topN = 3
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &KeyBERTClient{
		baseURL:    cfg.BaseURL,
		topN:       topN,
		httpClient: httpClient,
	}
}

type extractRequest struct {
	Text string `json:"text"`
	TopN int    `json:"top_n"`
}

type extractResponse struct {
	Keywords []string `json:"keywords"`
}

// Extract returns the top keywords of the text.
func (c *KeyBERTClient) Extract(ctx context.Context, text string) ([]string, error) {
	body, err := json.Marshal(extractRequest{Text: text, TopN: c.topN})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/keywords", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("keywords API error: %s - %s", resp.Status, string(respBody))
	}

	var er extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return er.Keywords, nil
}
