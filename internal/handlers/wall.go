package handlers

import (
	"html/template"
	"net/http"

	"github.com/dashwall/dashwall/internal/models"
	"github.com/dashwall/dashwall/internal/rotation"
	"github.com/dashwall/dashwall/internal/screen"
)

// wallWidget is one widget prepared for the wall template. Positions
// are one-based CSS grid lines.
type wallWidget struct {
	ID     int
	State  models.WidgetState
	Column int
	Row    int
	SpanW  int
	SpanH  int
	HTML   template.HTML
}

// libraryScript is one external library tag for the wall page head
type libraryScript struct {
	Token string
	URL   string
}

// WallPageData holds the data passed to the wall template
type WallPageData struct {
	Title        string
	ScreenCode   int
	State        rotation.State
	Dashboard    *models.Dashboard
	Settings     screen.GridSettings
	GridIndex    int
	Widgets      []wallWidget
	Libraries    []libraryScript
	CustomCSS    template.CSS
	ShowProgress bool
	Progress     float64
	Overlay      bool
}

func (h *Handlers) handleHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/wall", http.StatusFound)
}

// handleWall renders the current grid of the paired dashboard, or the
// pairing screen when nothing is assigned yet
func (h *Handlers) handleWall(w http.ResponseWriter, r *http.Request) {
	status := h.Rotation.Status()
	data := WallPageData{
		Title:      "dashwall",
		ScreenCode: status.ScreenCode,
		State:      status.State,
		GridIndex:  status.GridIndex,
		Progress:   status.ProgressPercent,
		Overlay:    h.Screen.OverlayVisible(),
	}

	dashboard := h.Screen.Dashboard()
	if dashboard != nil && len(dashboard.Grids) > 0 {
		index := status.GridIndex
		if index >= len(dashboard.Grids) {
			index = 0
		}
		views, err := h.Screen.WidgetsForGrid(dashboard.Grids[index].ID)
		if err != nil {
			respondError(w, InternalError())
			return
		}
		for _, v := range views {
			data.Widgets = append(data.Widgets, wallWidget{
				ID:     v.ID,
				State:  v.State,
				Column: v.Layout.X + 1,
				Row:    v.Layout.Y + 1,
				SpanW:  v.Layout.W,
				SpanH:  v.Layout.H,
				// Widget fragments come pre-sanitized from the backend
				// and already passed through the script engine
				HTML: template.HTML(v.HTML),
			})
		}
		for _, token := range dashboard.LibrariesToken {
			data.Libraries = append(data.Libraries, libraryScript{
				Token: token,
				URL:   h.Backend.BaseURL() + "/assets/" + token + "/content",
			})
		}
		if dashboard.Name != "" {
			data.Title = dashboard.Name
		}
		data.Dashboard = dashboard
		data.Settings = h.Screen.Settings()
		data.CustomCSS = template.CSS(dashboard.GridProperties.CSSStyle)
		data.ShowProgress = dashboard.DisplayProgressBar && len(dashboard.Grids) > 1
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.Wall.Execute(w, data); err != nil {
		respondError(w, InternalError())
	}
}
