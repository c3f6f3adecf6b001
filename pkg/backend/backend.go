// Package backend provides a client for the dashboard backend that owns
// projects, widgets and positions.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dashwall/dashwall/internal/logger"
	"github.com/dashwall/dashwall/internal/models"
)

// Client defines the backend operations the kiosk consumes
type Client interface {
	// GetDashboard retrieves one dashboard by its opaque token
	GetDashboard(ctx context.Context, token string) (*models.Dashboard, error)
	// GetProjectWidgets retrieves every widget instance of a dashboard
	GetProjectWidgets(ctx context.Context, token string) ([]models.ProjectWidget, error)
	// UpdateWidgetPositions submits the full position batch for a dashboard
	UpdateWidgetPositions(ctx context.Context, token string, batch []models.PositionUpdate) error
	// GetWidget retrieves a widget definition by id
	GetWidget(ctx context.Context, id int) (*models.Widget, error)
	// BaseURL returns the configured backend base URL
	BaseURL() string
	// SetBaseURL updates the backend base URL
	SetBaseURL(url string)
}

// HTTPClient is a real HTTP client for the dashboard backend
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	log        logger.Logger
}

// NewHTTPClient creates a backend HTTP client
func NewHTTPClient(baseURL string, log logger.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

// NewHTTPClientWithHTTPClient creates a backend client with a custom http.Client
func NewHTTPClientWithHTTPClient(baseURL string, httpClient *http.Client, log logger.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		httpClient: httpClient,
		log:        log,
	}
}

// BaseURL returns the configured backend base URL
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// SetBaseURL updates the backend base URL
func (c *HTTPClient) SetBaseURL(url string) {
	c.baseURL = url
}

// GetDashboard retrieves one dashboard by token
func (c *HTTPClient) GetDashboard(ctx context.Context, token string) (*models.Dashboard, error) {
	var dashboard models.Dashboard
	if err := c.doGet(ctx, fmt.Sprintf("/dashboard/%s", token), &dashboard); err != nil {
		return nil, err
	}
	return &dashboard, nil
}

// GetProjectWidgets retrieves every widget instance of a dashboard
func (c *HTTPClient) GetProjectWidgets(ctx context.Context, token string) ([]models.ProjectWidget, error) {
	var widgets []models.ProjectWidget
	if err := c.doGet(ctx, fmt.Sprintf("/dashboard/%s/widgets", token), &widgets); err != nil {
		return nil, err
	}
	return widgets, nil
}

// GetWidget retrieves a widget definition by id
func (c *HTTPClient) GetWidget(ctx context.Context, id int) (*models.Widget, error) {
	var widget models.Widget
	if err := c.doGet(ctx, fmt.Sprintf("/widgets/%d", id), &widget); err != nil {
		return nil, err
	}
	return &widget, nil
}

// UpdateWidgetPositions submits the full position batch for a dashboard.
// Partial failure is the backend's concern; the call either succeeds as a
// whole or returns an error.
func (c *HTTPClient) UpdateWidgetPositions(ctx context.Context, token string, batch []models.PositionUpdate) error {
	payload, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("failed to encode position batch: %w", err)
	}

	reqURL := fmt.Sprintf("%s/dashboard/%s/widget-positions", c.baseURL, token)
	c.log.Debug("Backend request", "method", "PUT", "url", reqURL, "positions", len(batch))

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, reqURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("backend returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// doGet executes a GET request and decodes the JSON response
func (c *HTTPClient) doGet(ctx context.Context, path string, response interface{}) error {
	reqURL := c.baseURL + path
	c.log.Debug("Backend request", "method", "GET", "url", reqURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to backend: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("backend returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, response); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
