package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/engiverse/engiverse-backend/internal/ingest/domain"
)

const analyzeTimeout = 90 * time.Second

// Client invokes the external analysis service and normalizes its response.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: analyzeTimeout},
	}
}

type analyzeRequest struct {
	RepoURL string `json:"repo_url"`
}

// Analyze requests a report for the canonical repository identified by
// repoFullName and returns the normalized result.
func (c *Client) Analyze(ctx context.Context, repoFullName string) (*domain.Report, error) {
	if c.baseURL == "" {
		return nil, domain.ErrAnalysisUnavailable
	}

	payload, err := json.Marshal(analyzeRequest{
		RepoURL: fmt.Sprintf("https://github.com/%s.git", repoFullName),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze-repository", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrAnalysisService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &domain.AnalysisServiceError{Status: resp.StatusCode, Body: string(body)}
	}

	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrAnalysisService, err)
	}

	report := Normalize(raw)
	return &report, nil
}
