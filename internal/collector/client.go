package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/RMahshie/sdrwatch/pkg/models"
)

// ErrMalformedResponse is returned when the collector's data body cannot be mapped
var ErrMalformedResponse = errors.New("malformed collector response")

// Client talks to the remote noise collector
type Client interface {
	FetchData(ctx context.Context) (models.Snapshot, error)
	AddNode(ctx context.Context, node models.NodeRegistration) error
	RemoveNode(ctx context.Context, address string) error
	Tasking(ctx context.Context, task models.FrequencyTask) error
}

// StatusError is a non-2xx response from the collector
type StatusError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: collector returned %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: collector returned %d", e.Op, e.StatusCode)
}

// Config holds configuration for the collector client
type Config struct {
	BaseURL           string
	Timeout           time.Duration
	LegacyLatitudeKey bool
	HTTPClient        *http.Client
}

type httpClient struct {
	baseURL           string
	http              *http.Client
	legacyLatitudeKey bool
}

// NewClient creates a collector client for cfg.BaseURL
func NewClient(cfg Config) (Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("COLLECTOR_URL is required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid collector URL %q", cfg.BaseURL)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}

	return &httpClient{
		baseURL:           strings.TrimRight(cfg.BaseURL, "/"),
		http:              hc,
		legacyLatitudeKey: cfg.LegacyLatitudeKey,
	}, nil
}

// FetchData retrieves the current task and node readings
func (c *httpClient) FetchData(ctx context.Context) (models.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/data", nil)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("failed to build data request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("failed to fetch data: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus("fetch data", resp); err != nil {
		return models.Snapshot{}, err
	}

	var body models.DataResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return models.Snapshot{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	snap, err := body.ToSnapshot()
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return snap, nil
}

// AddNode registers a node, or updates its position if already known
func (c *httpClient) AddNode(ctx context.Context, node models.NodeRegistration) error {
	return c.post(ctx, "add node", "/node/add", models.NewAddNodeRequest(node, c.legacyLatitudeKey))
}

// RemoveNode deregisters a node
func (c *httpClient) RemoveNode(ctx context.Context, address string) error {
	return c.post(ctx, "remove node", "/node/remove", models.RemoveNodeRequest{Address: address})
}

// Tasking reconfigures the scanned band
func (c *httpClient) Tasking(ctx context.Context, task models.FrequencyTask) error {
	return c.post(ctx, "tasking", "/tasking", models.NewTaskingRequest(task))
}

func (c *httpClient) post(ctx context.Context, op, path string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: failed to encode body: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%s: failed to build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(op, resp); err != nil {
		return err
	}
	// drain so the connection can be reused
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// checkStatus turns a non-2xx response into a StatusError, keeping the
// collector's error message when it sent one
func checkStatus(op string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	statusErr := &StatusError{Op: op, StatusCode: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var body models.ErrorBody
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		statusErr.Message = body.Error
	}
	return statusErr
}
