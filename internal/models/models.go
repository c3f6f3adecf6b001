package models

import "encoding/json"

// WidgetState is the rendering state reported by the backend for a widget instance
type WidgetState string

const (
	WidgetStateRunning WidgetState = "RUNNING"
	WidgetStateStopped WidgetState = "STOPPED"
	WidgetStateWarning WidgetState = "WARNING"
)

// GridProperties holds the layout parameters of a dashboard
type GridProperties struct {
	MaxColumn    int    `json:"maxColumn"`
	WidgetHeight int    `json:"widgetHeight"`
	CSSStyle     string `json:"cssStyle"`
}

// Grid is one rotation page of a dashboard. Time is the display duration
// in seconds when the dashboard rotates.
type Grid struct {
	ID   int `json:"id"`
	Time int `json:"time"`
}

// Dashboard is a read-only cached copy of a backend project, identified
// by an opaque token. A dashboard with more than one grid rotates among
// them on the TV view.
type Dashboard struct {
	Token              string         `json:"token"`
	Name               string         `json:"name,omitempty"`
	GridProperties     GridProperties `json:"gridProperties"`
	LibrariesToken     []string       `json:"librariesToken"`
	DisplayProgressBar bool           `json:"displayProgressBar"`
	Grids              []Grid         `json:"grids"`
}

// WidgetPosition is a one-based grid position with size in grid units
type WidgetPosition struct {
	GridColumn int `json:"gridColumn"`
	GridRow    int `json:"gridRow"`
	Width      int `json:"width"`
	Height     int `json:"height"`
}

// ProjectWidget is a widget instance placed on one grid of a dashboard
type ProjectWidget struct {
	ID              int            `json:"id"`
	GridID          int            `json:"gridId"`
	WidgetID        int            `json:"widgetId"`
	WidgetPosition  WidgetPosition `json:"widgetPosition"`
	BackendConfig   string         `json:"backendConfig"`
	State           WidgetState    `json:"state"`
	InstantiateHTML string         `json:"instantiateHtml"`
	Log             string         `json:"log,omitempty"`
}

// Widget is a widget definition referenced by project widgets via WidgetID
type Widget struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	HTMLContent string `json:"htmlContent"`
	CSSContent  string `json:"cssContent,omitempty"`
}

// PositionUpdate is one entry of the widget-position batch PUT
type PositionUpdate struct {
	ProjectWidgetID int `json:"projectWidgetId"`
	GridColumn      int `json:"gridColumn"`
	GridRow         int `json:"gridRow"`
	Width           int `json:"width"`
	Height          int `json:"height"`
}

// EventType discriminates live update events pushed by the backend
type EventType string

const (
	EventDisconnect       EventType = "DISCONNECT"
	EventDisplayNumber    EventType = "DISPLAY_NUMBER"
	EventRefreshDashboard EventType = "REFRESH_DASHBOARD"
	EventReload           EventType = "RELOAD"
	EventRefreshWidget    EventType = "REFRESH_WIDGET"
	EventConnectDashboard EventType = "CONNECT_DASHBOARD"
)

// UpdateEvent is a typed push message. Content depends on Type; for
// CONNECT_DASHBOARD it carries a Dashboard.
type UpdateEvent struct {
	Type    EventType       `json:"type"`
	Content json.RawMessage `json:"content,omitempty"`
}

// DashboardContent decodes the event content as a dashboard
func (e UpdateEvent) DashboardContent() (*Dashboard, error) {
	var d Dashboard
	if err := json.Unmarshal(e.Content, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// PairingSession is one remote-control pairing of a physical screen,
// recorded in the local journal for the status API.
type PairingSession struct {
	ID             string `json:"id"`
	ScreenCode     int    `json:"screen_code"`
	DashboardToken string `json:"dashboard_token"`
	ConnectedAt    string `json:"connected_at"`
	DisconnectedAt string `json:"disconnected_at,omitempty"`
}
