// Package moderation wraps the external content classifier. The classifier
// itself is a black box; this package only carries its request/response
// shapes and a null object for deployments that run without one.
package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Result is the classifier's verdict for one submitted item.
type Result struct {
	Flagged    bool     `json:"flagged"`
	Categories []string `json:"categories,omitempty"`
}

// Checker classifies texts and images. Results are positional: texts first,
// then images.
type Checker interface {
	Check(ctx context.Context, texts []string, imagesBase64 []string) ([]Result, error)
}

// Disabled never flags anything. Selected at startup when no classifier is
// configured.
type Disabled struct{}

func (Disabled) Check(ctx context.Context, texts []string, imagesBase64 []string) ([]Result, error) {
	results := make([]Result, len(texts)+len(imagesBase64))
	return results, nil
}

// HTTPChecker calls a remote classifier endpoint.
type HTTPChecker struct {
	url    string
	apiKey string
	client *http.Client
}

// NewHTTPChecker creates a classifier client for the given endpoint.
func NewHTTPChecker(url, apiKey string) *HTTPChecker {
	return &HTTPChecker{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *HTTPChecker) Check(ctx context.Context, texts []string, imagesBase64 []string) ([]Result, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"texts":  texts,
		"images": imagesBase64,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("moderation service returned status %d", resp.StatusCode)
	}

	var body struct {
		Results []Result `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	return body.Results, nil
}
