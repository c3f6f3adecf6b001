// Package screen drives one dashboard on the wall: it holds the cached
// dashboard and its widget instances, keeps them fresh from push events,
// renders the wall fragments, and submits layout edits back to the
// backend.
package screen

import (
	"context"
	"sync"
	"time"

	"github.com/dashwall/dashwall/internal/assets"
	"github.com/dashwall/dashwall/internal/grid"
	"github.com/dashwall/dashwall/internal/liveupdate"
	"github.com/dashwall/dashwall/internal/logger"
	"github.com/dashwall/dashwall/internal/models"
	"github.com/dashwall/dashwall/internal/render"
	"github.com/dashwall/dashwall/pkg/backend"
)

const (
	// gridGap is the pixel gap between widgets on the wall
	gridGap = 5
	// overlayDuration is how long the screen-code overlay stays visible
	overlayDuration = 10 * time.Second
)

// GridSettings is the resolved layout configuration for the current
// dashboard. Editing is disabled on read-only screens.
type GridSettings struct {
	Columns   int
	RowHeight int
	Gap       int
	Draggable bool
	Resizable bool
}

// WidgetView is one widget instance prepared for the wall page
type WidgetView struct {
	ID      int
	GridID  int
	State   models.WidgetState
	HTML    string
	Scripts []render.Script
	Layout  grid.Item
}

// Controller composes the layout engine, the script engine, the library
// loader and the live channel around one dashboard at a time
type Controller struct {
	log     logger.Logger
	client  backend.Client
	channel *liveupdate.Channel
	loader  *assets.Loader
	engine  *render.Engine

	screenCode     int
	readOnly       bool
	openWebsockets bool

	// overlayFor is a field so tests can shorten the overlay window
	overlayFor time.Duration

	onDisconnect func()
	onRefresh    func()
	onReload     func()

	mu           sync.Mutex
	dashboard    *models.Dashboard
	widgets      []models.ProjectWidget
	lastLayout   grid.Layout
	settings     GridSettings
	pageLoaded   bool
	overlay      bool
	overlayTimer *time.Timer
	dashboardSub *liveupdate.Subscription
	screenSub    *liveupdate.Subscription
}

// ScreenCode returns this screen's pairing identity
func (c *Controller) ScreenCode() int {
	return c.screenCode
}

// Option configures a Controller
type Option func(*Controller)

// WithReadOnly disables layout editing
func WithReadOnly(readOnly bool) Option {
	return func(c *Controller) {
		c.readOnly = readOnly
	}
}

// WithWebsockets enables per-dashboard push subscriptions. The deployed
// kiosk turns this on; tests that exercise the controller without a live
// channel leave it off.
func WithWebsockets(open bool) Option {
	return func(c *Controller) {
		c.openWebsockets = open
	}
}

// NewController creates a screen controller with no dashboard assigned
func NewController(log logger.Logger, client backend.Client, channel *liveupdate.Channel,
	loader *assets.Loader, engine *render.Engine, screenCode int, opts ...Option) *Controller {
	c := &Controller{
		log:        log,
		client:     client,
		channel:    channel,
		loader:     loader,
		engine:     engine,
		screenCode: screenCode,
		overlayFor: overlayDuration,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetOnDisconnect registers the callback fired when a DISCONNECT event
// arrives on either subscription
func (c *Controller) SetOnDisconnect(fn func()) {
	c.onDisconnect = fn
}

// SetOnRefresh registers the callback fired after the controller
// refreshed its cached dashboard and widgets
func (c *Controller) SetOnRefresh(fn func()) {
	c.onRefresh = fn
}

// SetOnReload registers the callback for a full reload push
func (c *Controller) SetOnReload(fn func()) {
	c.onReload = fn
}

// SetDashboard installs a dashboard and its widget instances. A change
// is detected by token inequality only; re-assigning the same token
// refreshes the widgets without re-running the init cycle.
func (c *Controller) SetDashboard(ctx context.Context, dashboard *models.Dashboard, widgets []models.ProjectWidget) {
	c.mu.Lock()
	changed := c.dashboard == nil || c.dashboard.Token != dashboard.Token
	c.dashboard = dashboard
	c.widgets = widgets
	c.lastLayout = grid.ToLayout(widgets)
	c.settings = c.computeSettings(dashboard)
	if changed && !c.pageLoaded {
		// First dashboard on this screen; the wall page marks itself usable
		c.pageLoaded = true
	}
	c.mu.Unlock()

	if !changed {
		return
	}

	c.log.Info("Dashboard assigned", "token", dashboard.Token, "widgets", len(widgets))
	c.loader.Init(len(dashboard.LibrariesToken))
	if c.openWebsockets {
		c.resubscribe(dashboard.Token)
	}
}

// computeSettings derives layout configuration; callers hold c.mu
func (c *Controller) computeSettings(d *models.Dashboard) GridSettings {
	return GridSettings{
		Columns:   d.GridProperties.MaxColumn,
		RowHeight: d.GridProperties.WidgetHeight,
		Gap:       gridGap,
		Draggable: !c.readOnly,
		Resizable: !c.readOnly,
	}
}

// resubscribe tears the old subscriptions down and opens fresh ones for
// the new token. Old subscriptions are never left to the GC.
func (c *Controller) resubscribe(token string) {
	c.mu.Lock()
	oldDashboard := c.dashboardSub
	oldScreen := c.screenSub
	c.mu.Unlock()

	if oldDashboard != nil {
		oldDashboard.Unsubscribe()
	}
	if oldScreen != nil {
		oldScreen.Unsubscribe()
	}

	dashboardSub := c.channel.Watch(liveupdate.DashboardDestination(token))
	screenSub := c.channel.Watch(liveupdate.ScreenDestination(token, c.screenCode))

	c.mu.Lock()
	c.dashboardSub = dashboardSub
	c.screenSub = screenSub
	c.mu.Unlock()

	go c.pumpDashboard(dashboardSub)
	go c.pumpScreen(screenSub)
}

func (c *Controller) pumpDashboard(sub *liveupdate.Subscription) {
	for event := range sub.Events() {
		c.handleDashboardEvent(context.Background(), event)
	}
}

func (c *Controller) pumpScreen(sub *liveupdate.Subscription) {
	for event := range sub.Events() {
		c.handleScreenEvent(event)
	}
}

// handleDashboardEvent dispatches a dashboard-scoped push. Unknown types
// fall through to a full refresh; stale data is worse than a spare
// fetch.
func (c *Controller) handleDashboardEvent(ctx context.Context, event models.UpdateEvent) {
	switch event.Type {
	case models.EventDisconnect:
		c.Teardown()
		if c.onDisconnect != nil {
			c.onDisconnect()
		}
	case models.EventDisplayNumber:
		c.showOverlay()
	case models.EventReload:
		if c.onReload != nil {
			c.onReload()
		}
	case models.EventRefreshDashboard, models.EventRefreshWidget:
		c.refresh(ctx)
	default:
		c.log.Debug("Unknown dashboard event, refreshing", "type", event.Type)
		c.refresh(ctx)
	}
}

// handleScreenEvent dispatches a screen-scoped push; only DISCONNECT is
// meaningful on this destination
func (c *Controller) handleScreenEvent(event models.UpdateEvent) {
	if event.Type != models.EventDisconnect {
		return
	}
	c.Teardown()
	if c.onDisconnect != nil {
		c.onDisconnect()
	}
}

// refresh re-fetches the current dashboard and widgets from the backend
func (c *Controller) refresh(ctx context.Context) {
	c.mu.Lock()
	dashboard := c.dashboard
	c.mu.Unlock()
	if dashboard == nil {
		return
	}

	fresh, err := c.client.GetDashboard(ctx, dashboard.Token)
	if err != nil {
		c.log.Error("Failed to refresh dashboard", "token", dashboard.Token, "error", err)
		return
	}
	widgets, err := c.client.GetProjectWidgets(ctx, dashboard.Token)
	if err != nil {
		c.log.Error("Failed to refresh widgets", "token", dashboard.Token, "error", err)
		return
	}

	c.mu.Lock()
	c.dashboard = fresh
	c.widgets = widgets
	c.lastLayout = grid.ToLayout(widgets)
	c.settings = c.computeSettings(fresh)
	c.mu.Unlock()

	if c.onRefresh != nil {
		c.onRefresh()
	}
}

// showOverlay reveals the screen-code overlay and hides it again after
// the overlay window. A second push restarts the window.
func (c *Controller) showOverlay() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.overlay = true
	if c.overlayTimer != nil {
		c.overlayTimer.Stop()
	}
	c.overlayTimer = time.AfterFunc(c.overlayFor, func() {
		c.mu.Lock()
		c.overlay = false
		c.mu.Unlock()
	})
}

// OverlayVisible reports whether the screen-code overlay is showing
func (c *Controller) OverlayVisible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.overlay
}

// PageLoaded reports whether a dashboard has ever been assigned
func (c *Controller) PageLoaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pageLoaded
}

// Settings returns the layout configuration of the current dashboard
func (c *Controller) Settings() GridSettings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

// Dashboard returns the cached dashboard, nil when none is assigned
func (c *Controller) Dashboard() *models.Dashboard {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dashboard
}

// Widgets returns the cached widget instances
func (c *Controller) Widgets() []models.ProjectWidget {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.ProjectWidget, len(c.widgets))
	copy(out, c.widgets)
	return out
}

// WidgetsForGrid prepares the widgets of one grid for the wall page,
// rewriting each fragment through the script engine
func (c *Controller) WidgetsForGrid(gridID int) ([]WidgetView, error) {
	c.mu.Lock()
	widgets := make([]models.ProjectWidget, len(c.widgets))
	copy(widgets, c.widgets)
	c.mu.Unlock()

	var views []WidgetView
	for _, w := range widgets {
		if w.GridID != gridID {
			continue
		}
		rewritten, scripts, err := c.engine.Rewrite(w.InstantiateHTML)
		if err != nil {
			return nil, err
		}
		layout := grid.ToLayout([]models.ProjectWidget{w})
		views = append(views, WidgetView{
			ID:      w.ID,
			GridID:  w.GridID,
			State:   w.State,
			HTML:    rewritten,
			Scripts: scripts,
			Layout:  layout[0],
		})
	}
	return views, nil
}

// ApplyLayout handles a layout edit from the wall. When any matched
// widget moved or resized, the full current layout is submitted as one
// batch; the retained snapshot always advances to the submitted layout,
// the backend stays source of truth on the next refresh.
func (c *Controller) ApplyLayout(ctx context.Context, layout grid.Layout) error {
	c.mu.Lock()
	if c.readOnly {
		c.mu.Unlock()
		return nil
	}
	moved := grid.HasMoved(c.lastLayout, layout)
	c.lastLayout = layout
	dashboard := c.dashboard
	c.mu.Unlock()

	if !moved || dashboard == nil {
		return nil
	}

	batch := grid.PositionRequests(layout)
	if err := c.client.UpdateWidgetPositions(ctx, dashboard.Token, batch); err != nil {
		c.log.Error("Failed to submit widget positions", "token", dashboard.Token, "error", err)
		return err
	}
	c.log.Info("Widget positions submitted", "token", dashboard.Token, "count", len(batch))
	return nil
}

// Clear drops the cached dashboard so the wall falls back to the
// pairing screen. The page-loaded flag survives; it records history,
// not current state.
func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dashboard = nil
	c.widgets = nil
	c.lastLayout = nil
	c.settings = GridSettings{}
}

// Teardown drops the subscriptions and the overlay timer. The cached
// dashboard survives so the wall can keep rendering until replaced;
// disconnect flows call Clear as well.
func (c *Controller) Teardown() {
	c.mu.Lock()
	dashboardSub := c.dashboardSub
	screenSub := c.screenSub
	c.dashboardSub = nil
	c.screenSub = nil
	if c.overlayTimer != nil {
		c.overlayTimer.Stop()
		c.overlayTimer = nil
	}
	c.overlay = false
	c.mu.Unlock()

	if dashboardSub != nil {
		dashboardSub.Unsubscribe()
	}
	if screenSub != nil {
		screenSub.Unsubscribe()
	}
}
