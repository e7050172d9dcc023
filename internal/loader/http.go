package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Saturate/YellowLabTools/internal/model"
)

// HTTPLoader fetches results from a YellowLab API server and relaunches
// tests on it.
type HTTPLoader struct {
	BaseURL string
	Auth    string // optional Authorization header value
	Client  *http.Client
}

// NewHTTPLoader creates a loader for the API at baseURL.
func NewHTTPLoader(baseURL string) *HTTPLoader {
	return &HTTPLoader{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Fetch returns the raw result document of runID.
// GET /api/results/{runId}
func (l *HTTPLoader) Fetch(ctx context.Context, runID string) ([]byte, error) {
	u := fmt.Sprintf("%s/api/results/%s", l.BaseURL, url.PathEscape(runID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &LoadError{RunID: runID, Err: err}
	}
	if l.Auth != "" {
		req.Header.Set("Authorization", l.Auth)
	}

	resp, err := l.Client.Do(req)
	if err != nil {
		log.Printf("[Loader] Error fetching %s: %v", runID, err)
		return nil, &LoadError{RunID: runID, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, &LoadError{RunID: runID, Err: ErrResultNotFound}
	case resp.StatusCode != http.StatusOK:
		log.Printf("[Loader] Results API returned status %d for %s", resp.StatusCode, runID)
		return nil, &LoadError{RunID: runID, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &LoadError{RunID: runID, Err: err}
	}
	return body, nil
}

// Load fetches and decodes the result of runID.
func (l *HTTPLoader) Load(ctx context.Context, runID string) (*model.Result, error) {
	body, err := l.Fetch(ctx, runID)
	if err != nil {
		return nil, err
	}
	res, err := DecodeResult(runID, body)
	if err != nil {
		return nil, &LoadError{RunID: runID, Err: err}
	}
	return res, nil
}

// Relaunch starts a new test of pageURL and returns the new run id.
// POST /api/runs
func (l *HTTPLoader) Relaunch(ctx context.Context, pageURL string) (string, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"url":             pageURL,
		"waitForResponse": false,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.BaseURL+"/api/runs", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if l.Auth != "" {
		req.Header.Set("Authorization", l.Auth)
	}

	resp, err := l.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("launch test: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("launch test: unexpected status %d", resp.StatusCode)
	}

	var out struct {
		RunID string `json:"runId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("launch test: %w", err)
	}
	return out.RunID, nil
}
