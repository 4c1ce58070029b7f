package classifier

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"ecoguardian/backend/models"
)

type classifyRequest struct {
	Image string `json:"image"`
	TopK  int    `json:"top_k"`
}

type classifyResponse struct {
	Predictions []models.Label `json:"predictions"`
}

// HTTPClient calls an inference service that accepts a base64 JPEG and
// returns labelled predictions.
type HTTPClient struct {
	endpoint string
	client   *http.Client
}

func NewHTTPClient(endpoint string) *HTTPClient {
	return &HTTPClient{
		endpoint: endpoint,
		client:   &http.Client{},
	}
}

func (c *HTTPClient) SourceName() string { return "http" }

func (c *HTTPClient) Classify(ctx context.Context, image []byte, topK int) ([]models.Label, error) {
	jsonData, err := json.Marshal(classifyRequest{
		Image: base64.StdEncoding.EncodeToString(image),
		TopK:  topK,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classifier error (status %d): %s", resp.StatusCode, string(body))
	}

	var out classifyResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	labels := make([]models.Label, 0, len(out.Predictions))
	for _, p := range out.Predictions {
		name := strings.ToLower(strings.TrimSpace(p.Name))
		if name == "" {
			continue
		}
		labels = append(labels, models.Label{Name: name, Confidence: p.Confidence})
	}
	sort.SliceStable(labels, func(i, j int) bool { return labels[i].Confidence > labels[j].Confidence })
	if topK > 0 && len(labels) > topK {
		labels = labels[:topK]
	}
	return labels, nil
}
