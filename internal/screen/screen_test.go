package screen

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dashwall/dashwall/internal/assets"
	"github.com/dashwall/dashwall/internal/grid"
	"github.com/dashwall/dashwall/internal/logger"
	"github.com/dashwall/dashwall/internal/models"
	"github.com/dashwall/dashwall/internal/render"
	"github.com/dashwall/dashwall/pkg/backend"
)

func newTestController(t *testing.T, mock *backend.MockClient, opts ...Option) *Controller {
	t.Helper()
	log := logger.New()
	return NewController(log, mock, nil, assets.New(log), &render.Engine{}, 123456, opts...)
}

func TestSetDashboard_FirstAssignmentMarksPageLoaded(t *testing.T) {
	c := newTestController(t, backend.NewMockClient())

	if c.PageLoaded() {
		t.Fatal("Page should not be loaded before any dashboard")
	}

	c.SetDashboard(context.Background(), backend.DefaultMockDashboard(), backend.DefaultMockWidgets())

	if !c.PageLoaded() {
		t.Error("Page should be loaded after first dashboard")
	}
}

func TestClear_DropsDashboardKeepsPageLoaded(t *testing.T) {
	c := newTestController(t, backend.NewMockClient())
	c.SetDashboard(context.Background(), backend.DefaultMockDashboard(), backend.DefaultMockWidgets())

	c.Clear()

	if c.Dashboard() != nil {
		t.Error("Clear should drop the cached dashboard")
	}
	if len(c.Widgets()) != 0 {
		t.Error("Clear should drop the cached widgets")
	}
	if c.Settings() != (GridSettings{}) {
		t.Error("Clear should reset the grid settings")
	}
	if !c.PageLoaded() {
		t.Error("Clear should not rewind the page-loaded flag")
	}
}

func TestSetDashboard_ComputesGridSettings(t *testing.T) {
	c := newTestController(t, backend.NewMockClient())
	c.SetDashboard(context.Background(), backend.DefaultMockDashboard(), nil)

	settings := c.Settings()
	if settings.Columns != 12 {
		t.Errorf("Expected 12 columns, got %d", settings.Columns)
	}
	if settings.RowHeight != 360 {
		t.Errorf("Expected row height 360, got %d", settings.RowHeight)
	}
	if !settings.Draggable || !settings.Resizable {
		t.Error("Editable screen should be draggable and resizable")
	}
}

func TestSetDashboard_ReadOnlyDisablesEditing(t *testing.T) {
	c := newTestController(t, backend.NewMockClient(), WithReadOnly(true))
	c.SetDashboard(context.Background(), backend.DefaultMockDashboard(), nil)

	settings := c.Settings()
	if settings.Draggable || settings.Resizable {
		t.Error("Read-only screen should not be draggable or resizable")
	}
}

func TestSetDashboard_SameTokenSkipsLibraryInit(t *testing.T) {
	c := newTestController(t, backend.NewMockClient())
	dashboard := backend.DefaultMockDashboard()
	dashboard.LibrariesToken = []string{"chartjs"}

	c.SetDashboard(context.Background(), dashboard, nil)
	c.loader.MarkScriptAsLoaded("chartjs")
	if !c.loader.Ready() {
		t.Fatal("Loader should be ready after the single library loaded")
	}

	// Same token again: widgets refresh, init cycle does not re-run
	c.SetDashboard(context.Background(), dashboard, backend.DefaultMockWidgets())
	if !c.loader.Ready() {
		t.Error("Re-assigning the same token should not reset the loader")
	}

	// A different token starts a fresh cycle
	other := backend.DefaultMockDashboard()
	other.Token = "other-token"
	other.LibrariesToken = []string{"chartjs", "d3"}
	c.SetDashboard(context.Background(), other, nil)
	if c.loader.Ready() {
		t.Error("A new dashboard should reset the loader")
	}
}

func TestHandleDashboardEvent_DisplayNumberOverlay(t *testing.T) {
	c := newTestController(t, backend.NewMockClient())
	c.overlayFor = 50 * time.Millisecond

	c.handleDashboardEvent(context.Background(), models.UpdateEvent{Type: models.EventDisplayNumber})

	if !c.OverlayVisible() {
		t.Fatal("Overlay should be visible right after the event")
	}

	time.Sleep(100 * time.Millisecond)
	if c.OverlayVisible() {
		t.Error("Overlay should hide after the overlay window")
	}
}

func TestHandleDashboardEvent_DisconnectFiresCallback(t *testing.T) {
	c := newTestController(t, backend.NewMockClient())
	fired := false
	c.SetOnDisconnect(func() { fired = true })

	c.handleDashboardEvent(context.Background(), models.UpdateEvent{Type: models.EventDisconnect})

	if !fired {
		t.Error("Disconnect callback should fire")
	}
}

func TestHandleDashboardEvent_UnknownTypeRefreshes(t *testing.T) {
	mock := backend.NewMockClient()
	c := newTestController(t, mock)
	c.SetDashboard(context.Background(), backend.DefaultMockDashboard(), nil)

	refreshed := false
	c.SetOnRefresh(func() { refreshed = true })

	c.handleDashboardEvent(context.Background(), models.UpdateEvent{Type: "SOMETHING_NEW"})

	if !refreshed {
		t.Error("Unknown event types should trigger a refresh")
	}
	if len(c.Widgets()) != len(backend.DefaultMockWidgets()) {
		t.Error("Refresh should re-fetch the widget instances")
	}
}

func TestHandleDashboardEvent_ReloadFiresCallback(t *testing.T) {
	c := newTestController(t, backend.NewMockClient())
	fired := false
	c.SetOnReload(func() { fired = true })

	c.handleDashboardEvent(context.Background(), models.UpdateEvent{Type: models.EventReload})

	if !fired {
		t.Error("Reload callback should fire")
	}
}

func TestHandleScreenEvent_IgnoresNonDisconnect(t *testing.T) {
	c := newTestController(t, backend.NewMockClient())
	fired := false
	c.SetOnDisconnect(func() { fired = true })

	c.handleScreenEvent(models.UpdateEvent{Type: models.EventRefreshDashboard})
	if fired {
		t.Error("Screen channel should only react to DISCONNECT")
	}

	c.handleScreenEvent(models.UpdateEvent{Type: models.EventDisconnect})
	if !fired {
		t.Error("Screen channel DISCONNECT should fire the callback")
	}
}

func TestApplyLayout_OneWidgetDragSubmitsFullBatch(t *testing.T) {
	mock := backend.NewMockClient()
	c := newTestController(t, mock)
	widgets := backend.DefaultMockWidgets()
	c.SetDashboard(context.Background(), backend.DefaultMockDashboard(), widgets)

	layout := grid.ToLayout(widgets)
	layout[0].X += 2 // drag one widget

	if err := c.ApplyLayout(context.Background(), layout); err != nil {
		t.Fatalf("ApplyLayout returned error: %v", err)
	}

	batches := mock.PositionBatches()
	if len(batches) != 1 {
		t.Fatalf("Expected 1 batch, got %d", len(batches))
	}
	// Full batch, not a diff
	if len(batches[0]) != len(widgets) {
		t.Errorf("Expected batch of %d entries, got %d", len(widgets), len(batches[0]))
	}

	changed := 0
	original := grid.PositionRequests(grid.ToLayout(widgets))
	for i, update := range batches[0] {
		if update != original[i] {
			changed++
		}
	}
	if changed != 1 {
		t.Errorf("Expected exactly 1 changed entry, got %d", changed)
	}
}

func TestApplyLayout_NoMoveNoSubmit(t *testing.T) {
	mock := backend.NewMockClient()
	c := newTestController(t, mock)
	widgets := backend.DefaultMockWidgets()
	c.SetDashboard(context.Background(), backend.DefaultMockDashboard(), widgets)

	if err := c.ApplyLayout(context.Background(), grid.ToLayout(widgets)); err != nil {
		t.Fatalf("ApplyLayout returned error: %v", err)
	}
	if len(mock.PositionBatches()) != 0 {
		t.Error("Unchanged layout should not be submitted")
	}
}

func TestApplyLayout_SnapshotAdvances(t *testing.T) {
	mock := backend.NewMockClient()
	c := newTestController(t, mock)
	widgets := backend.DefaultMockWidgets()
	c.SetDashboard(context.Background(), backend.DefaultMockDashboard(), widgets)

	moved := grid.ToLayout(widgets)
	moved[0].X += 2
	if err := c.ApplyLayout(context.Background(), moved); err != nil {
		t.Fatalf("ApplyLayout returned error: %v", err)
	}

	// The same layout again compares against the advanced snapshot
	if err := c.ApplyLayout(context.Background(), moved); err != nil {
		t.Fatalf("ApplyLayout returned error: %v", err)
	}
	if len(mock.PositionBatches()) != 1 {
		t.Error("Re-applying the submitted layout should not submit again")
	}
}

func TestApplyLayout_ReadOnlyNeverSubmits(t *testing.T) {
	mock := backend.NewMockClient()
	c := newTestController(t, mock, WithReadOnly(true))
	widgets := backend.DefaultMockWidgets()
	c.SetDashboard(context.Background(), backend.DefaultMockDashboard(), widgets)

	layout := grid.ToLayout(widgets)
	layout[0].Y += 1
	if err := c.ApplyLayout(context.Background(), layout); err != nil {
		t.Fatalf("ApplyLayout returned error: %v", err)
	}
	if len(mock.PositionBatches()) != 0 {
		t.Error("Read-only screen should never submit positions")
	}
}

func TestWidgetsForGrid_RewritesScripts(t *testing.T) {
	c := newTestController(t, backend.NewMockClient())
	c.SetDashboard(context.Background(), backend.DefaultMockDashboard(), backend.DefaultMockWidgets())

	views, err := c.WidgetsForGrid(1)
	if err != nil {
		t.Fatalf("WidgetsForGrid returned error: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("Expected 2 widgets on grid 1, got %d", len(views))
	}

	// Widget 12 carries an inline script that must be re-emitted
	var gauge *WidgetView
	for i := range views {
		if views[i].ID == 12 {
			gauge = &views[i]
		}
	}
	if gauge == nil {
		t.Fatal("Widget 12 missing from grid 1")
	}
	if len(gauge.Scripts) != 1 {
		t.Fatalf("Expected 1 script, got %d", len(gauge.Scripts))
	}
	if !strings.Contains(gauge.HTML, `async="false"`) {
		t.Error("Re-emitted script should carry async=false")
	}
	if gauge.Layout.X != 4 || gauge.Layout.Y != 0 {
		t.Errorf("Expected layout (4,0), got (%d,%d)", gauge.Layout.X, gauge.Layout.Y)
	}
}
