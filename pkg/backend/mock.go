package backend

import (
	"context"
	"sync"

	"github.com/dashwall/dashwall/internal/models"
)

// MockClient is a mock backend client for testing
type MockClient struct {
	mu            sync.Mutex
	dashboards    map[string]*models.Dashboard
	widgets       map[string][]models.ProjectWidget
	definitions   map[int]*models.Widget
	baseURL       string
	dashboardErr  error
	widgetsErr    error
	updateErr     error
	definitionErr error
	batches       [][]models.PositionUpdate
	widgetCalls   int
}

// MockOption configures the mock client
type MockOption func(*MockClient)

// WithDashboard registers a dashboard to return for its token
func WithDashboard(d *models.Dashboard) MockOption {
	return func(m *MockClient) {
		m.dashboards[d.Token] = d
	}
}

// WithProjectWidgets registers the widget instances of a dashboard
func WithProjectWidgets(token string, widgets []models.ProjectWidget) MockOption {
	return func(m *MockClient) {
		m.widgets[token] = widgets
	}
}

// WithWidgetDefinition registers a widget definition
func WithWidgetDefinition(w *models.Widget) MockOption {
	return func(m *MockClient) {
		m.definitions[w.ID] = w
	}
}

// WithDashboardError sets an error to return from GetDashboard
func WithDashboardError(err error) MockOption {
	return func(m *MockClient) {
		m.dashboardErr = err
	}
}

// WithWidgetsError sets an error to return from GetProjectWidgets
func WithWidgetsError(err error) MockOption {
	return func(m *MockClient) {
		m.widgetsErr = err
	}
}

// WithUpdateError sets an error to return from UpdateWidgetPositions
func WithUpdateError(err error) MockOption {
	return func(m *MockClient) {
		m.updateErr = err
	}
}

// WithDefinitionError sets an error to return from GetWidget
func WithDefinitionError(err error) MockOption {
	return func(m *MockClient) {
		m.definitionErr = err
	}
}

// NewMockClient creates a mock backend client pre-loaded with sample data
func NewMockClient(opts ...MockOption) *MockClient {
	m := &MockClient{
		baseURL:     "http://mock-backend.local",
		dashboards:  map[string]*models.Dashboard{},
		widgets:     map[string][]models.ProjectWidget{},
		definitions: map[int]*models.Widget{},
	}
	sample := DefaultMockDashboard()
	m.dashboards[sample.Token] = sample
	m.widgets[sample.Token] = DefaultMockWidgets()
	for _, w := range DefaultMockDefinitions() {
		m.definitions[w.ID] = w
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// BaseURL returns the configured base URL
func (m *MockClient) BaseURL() string {
	return m.baseURL
}

// SetBaseURL updates the base URL
func (m *MockClient) SetBaseURL(url string) {
	m.baseURL = url
}

// GetDashboard returns the registered dashboard or the configured error
func (m *MockClient) GetDashboard(ctx context.Context, token string) (*models.Dashboard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dashboardErr != nil {
		return nil, m.dashboardErr
	}
	if d, ok := m.dashboards[token]; ok {
		return d, nil
	}
	return nil, ErrMockNotFound
}

// GetProjectWidgets returns the registered widget instances or the configured error
func (m *MockClient) GetProjectWidgets(ctx context.Context, token string) ([]models.ProjectWidget, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.widgetsErr != nil {
		return nil, m.widgetsErr
	}
	return m.widgets[token], nil
}

// GetWidget returns a registered widget definition or the configured error.
// Call counts are recorded so cache tests can assert fetch suppression.
func (m *MockClient) GetWidget(ctx context.Context, id int) (*models.Widget, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.widgetCalls++
	if m.definitionErr != nil {
		return nil, m.definitionErr
	}
	if w, ok := m.definitions[id]; ok {
		return w, nil
	}
	return nil, ErrMockNotFound
}

// UpdateWidgetPositions records the submitted batch or returns the configured error
func (m *MockClient) UpdateWidgetPositions(ctx context.Context, token string, batch []models.PositionUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	m.batches = append(m.batches, batch)
	return nil
}

// PositionBatches returns every batch recorded by UpdateWidgetPositions
func (m *MockClient) PositionBatches() [][]models.PositionUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]models.PositionUpdate, len(m.batches))
	copy(out, m.batches)
	return out
}

// WidgetCalls returns how many times GetWidget was invoked
func (m *MockClient) WidgetCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.widgetCalls
}

// DefaultMockDashboard returns a sample two-grid rotating dashboard
func DefaultMockDashboard() *models.Dashboard {
	return &models.Dashboard{
		Token: "sample-token",
		Name:  "Operations Wall",
		GridProperties: models.GridProperties{
			MaxColumn:    12,
			WidgetHeight: 360,
		},
		LibrariesToken:     []string{"chartjs", "d3"},
		DisplayProgressBar: true,
		Grids: []models.Grid{
			{ID: 1, Time: 5},
			{ID: 2, Time: 3},
		},
	}
}

// DefaultMockWidgets returns sample widget instances across both grids
func DefaultMockWidgets() []models.ProjectWidget {
	return []models.ProjectWidget{
		{
			ID:       11,
			GridID:   1,
			WidgetID: 1,
			WidgetPosition: models.WidgetPosition{
				GridColumn: 1, GridRow: 1, Width: 4, Height: 2,
			},
			BackendConfig:   "url=https://ci.example.com\nrefresh=60",
			State:           models.WidgetStateRunning,
			InstantiateHTML: `<div class="build-status">green</div>`,
		},
		{
			ID:       12,
			GridID:   1,
			WidgetID: 2,
			WidgetPosition: models.WidgetPosition{
				GridColumn: 5, GridRow: 1, Width: 2, Height: 2,
			},
			State:           models.WidgetStateWarning,
			InstantiateHTML: `<div class="queue-depth">42</div><script>drawGauge();</script>`,
		},
		{
			ID:       21,
			GridID:   2,
			WidgetID: 1,
			WidgetPosition: models.WidgetPosition{
				GridColumn: 1, GridRow: 1, Width: 6, Height: 3,
			},
			State:           models.WidgetStateRunning,
			InstantiateHTML: `<div class="release-calendar"></div>`,
		},
	}
}

// DefaultMockDefinitions returns sample widget definitions
func DefaultMockDefinitions() []*models.Widget {
	return []*models.Widget{
		{ID: 1, Name: "Build Status", HTMLContent: `<div class="build-status">{{status}}</div>`},
		{ID: 2, Name: "Queue Depth", HTMLContent: `<div class="queue-depth">{{depth}}</div>`},
	}
}

// Ensure MockClient implements Client
var _ Client = (*MockClient)(nil)
