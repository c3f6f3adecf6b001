// Package rotation runs the TV mode of the wall: it waits for a
// dashboard to be assigned to this screen, then cycles through the
// dashboard's grids on per-grid timers until told to disconnect.
package rotation

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/dashwall/dashwall/internal/liveupdate"
	"github.com/dashwall/dashwall/internal/logger"
	"github.com/dashwall/dashwall/internal/models"
	"github.com/dashwall/dashwall/internal/screen"
	"github.com/dashwall/dashwall/pkg/backend"
)

// State is the display state of the TV screen
type State string

const (
	// StateNoProject means the screen is waiting to be paired
	StateNoProject State = "NO_PROJECT"
	// StateLoading means a dashboard assignment is being fetched
	StateLoading State = "LOADING"
	// StateDisplaying means a dashboard is on the wall
	StateDisplaying State = "DISPLAYING"
)

const (
	// listenDelay orders teardown before the next pairing window
	listenDelay = 500 * time.Millisecond
	// progressStepMS is the logical progress resolution in milliseconds
	progressStepMS = 100
)

// Journal records pairing sessions for the status API. Implementations
// must tolerate being called on every connect and disconnect.
type Journal interface {
	RecordConnect(ctx context.Context, screenCode int, token string) (string, error)
	RecordDisconnect(ctx context.Context, sessionID string) error
}

// Status is a snapshot of the controller for the status API
type Status struct {
	ScreenCode      int     `json:"screen_code"`
	State           State   `json:"state"`
	Token           string  `json:"token,omitempty"`
	GridIndex       int     `json:"grid_index"`
	GridCount       int     `json:"grid_count"`
	ProgressPercent float64 `json:"progress_percent"`
	PageLoaded      bool    `json:"page_loaded"`
}

// Controller owns the screen identity, the pairing listener and the
// grid rotation timers
type Controller struct {
	log     logger.Logger
	client  backend.Client
	channel *liveupdate.Channel
	screen  *screen.Controller
	journal Journal

	// timeUnit scales grid durations; production uses time.Second,
	// tests shrink it
	timeUnit time.Duration
	// relistenAfter is the pause between disconnect and the next
	// pairing window
	relistenAfter time.Duration

	mu            sync.Mutex
	screenCode    int
	state         State
	loading       bool
	dashboard     *models.Dashboard
	gridIndex     int
	rotationTimer *time.Timer
	progressStop  chan struct{}
	remainingMS   int
	totalMS       int
	connectSub    *liveupdate.Subscription
	sessionID     string
}

// NewController creates a TV controller sharing the screen controller's
// code, so the advertised pairing code and the screen-queue destination
// always agree. The code lives for the process only and is never
// persisted.
func NewController(log logger.Logger, client backend.Client, channel *liveupdate.Channel,
	screenCtrl *screen.Controller, journal Journal) *Controller {
	return &Controller{
		log:           log,
		client:        client,
		channel:       channel,
		screen:        screenCtrl,
		journal:       journal,
		timeUnit:      time.Second,
		relistenAfter: listenDelay,
		screenCode:    screenCtrl.ScreenCode(),
		state:         StateNoProject,
	}
}

// NewScreenCode returns a random screen identity in [100000, 999999]
func NewScreenCode() int {
	return 100000 + rand.IntN(900000)
}

// ScreenCode returns this session's screen identity
func (c *Controller) ScreenCode() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.screenCode
}

// Start connects the live channel and opens the pairing window
func (c *Controller) Start() {
	c.channel.StartConnection()
	c.listenForConnect()
	c.log.Info("Screen waiting for dashboard", "screen_code", c.ScreenCode())
}

// listenForConnect subscribes to this screen's pairing destination and
// routes CONNECT_DASHBOARD pushes into the load path
func (c *Controller) listenForConnect() {
	c.mu.Lock()
	if c.connectSub != nil {
		c.mu.Unlock()
		return
	}
	sub := c.channel.Watch(liveupdate.ConnectDestination(c.screenCode))
	c.connectSub = sub
	c.mu.Unlock()

	go func() {
		for event := range sub.Events() {
			if event.Type != models.EventConnectDashboard {
				continue
			}
			dashboard, err := event.DashboardContent()
			if err != nil {
				c.log.Warn("Connect event without dashboard content", "error", err)
				continue
			}
			c.Connect(context.Background(), dashboard.Token)
		}
	}()
}

// Connect is the single load path for both the pairing push and the
// local control API
func (c *Controller) Connect(ctx context.Context, token string) {
	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		return
	}
	c.loading = true
	c.state = StateLoading
	c.mu.Unlock()

	c.load(ctx, token)
}

// load fetches the dashboard and its widgets, then schedules rotation.
// The loading flag clears on success and on error alike.
func (c *Controller) load(ctx context.Context, token string) {
	defer func() {
		c.mu.Lock()
		c.loading = false
		c.mu.Unlock()
	}()

	dashboard, err := c.client.GetDashboard(ctx, token)
	if err != nil {
		c.log.Error("Failed to load dashboard", "token", token, "error", err)
		c.mu.Lock()
		if c.dashboard == nil {
			c.state = StateNoProject
		} else {
			c.state = StateDisplaying
		}
		c.mu.Unlock()
		return
	}

	widgets, err := c.client.GetProjectWidgets(ctx, token)
	if err != nil {
		c.log.Error("Failed to load widgets", "token", token, "error", err)
		c.mu.Lock()
		if c.dashboard == nil {
			c.state = StateNoProject
		} else {
			c.state = StateDisplaying
		}
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	c.dashboard = dashboard
	c.gridIndex = 0
	c.state = StateDisplaying
	c.mu.Unlock()

	c.screen.SetDashboard(ctx, dashboard, widgets)
	c.log.Info("Dashboard displayed", "token", token,
		"grids", len(dashboard.Grids), "widgets", len(widgets))

	if c.journal != nil {
		c.mu.Lock()
		previous := c.sessionID
		c.mu.Unlock()
		// A still-open session belongs to the dashboard just replaced
		if previous != "" {
			if err := c.journal.RecordDisconnect(ctx, previous); err != nil {
				c.log.Warn("Failed to close previous pairing session", "error", err)
			}
		}
		sessionID, err := c.journal.RecordConnect(ctx, c.ScreenCode(), token)
		if err != nil {
			c.log.Warn("Failed to journal pairing session", "error", err)
		} else {
			c.mu.Lock()
			c.sessionID = sessionID
			c.mu.Unlock()
		}
	}

	c.scheduleRotation()
}

// scheduleRotation arms the rotation timer for the current grid and
// restarts the progress countdown. With a single grid nothing rotates.
func (c *Controller) scheduleRotation() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTimersLocked()

	dashboard := c.dashboard
	if dashboard == nil || len(dashboard.Grids) == 0 {
		return
	}

	gridTime := dashboard.Grids[c.gridIndex].Time
	c.totalMS = gridTime * 1000
	c.remainingMS = c.totalMS

	if len(dashboard.Grids) > 1 {
		c.rotationTimer = time.AfterFunc(time.Duration(gridTime)*c.timeUnit, c.advance)
	}
	if dashboard.DisplayProgressBar {
		stop := make(chan struct{})
		c.progressStop = stop
		go c.runProgress(stop)
	}
}

// advance moves to the next grid circularly and re-arms with the new
// grid's duration. Re-arming happens inside the callback so firings
// never overlap.
func (c *Controller) advance() {
	c.mu.Lock()
	dashboard := c.dashboard
	if dashboard == nil || len(dashboard.Grids) < 2 {
		c.mu.Unlock()
		return
	}
	c.gridIndex = (c.gridIndex + 1) % len(dashboard.Grids)
	index := c.gridIndex
	c.mu.Unlock()

	c.log.Debug("Rotating to grid", "index", index)
	c.scheduleRotation()
}

// runProgress decrements the remaining display time every logical step.
// The ticker interval scales with the time unit so percentages match
// the rotation timer.
func (c *Controller) runProgress(stop chan struct{}) {
	interval := c.timeUnit / 10
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			if c.remainingMS > 0 {
				c.remainingMS -= progressStepMS
				if c.remainingMS < 0 {
					c.remainingMS = 0
				}
			}
			c.mu.Unlock()
		}
	}
}

// ProgressPercent returns how much of the current grid's display time
// remains, 0..100
func (c *Controller) ProgressPercent() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.totalMS == 0 {
		return 0
	}
	return float64(c.remainingMS) / float64(c.totalMS) * 100
}

// GridIndex returns the grid currently on the wall
func (c *Controller) GridIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gridIndex
}

// State returns the display state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Resync adopts the dashboard the screen controller just refreshed from
// a push and re-arms rotation against its grids. Used as the screen's
// refresh callback so pushed grid changes reach the rotation timers.
func (c *Controller) Resync() {
	dashboard := c.screen.Dashboard()
	if dashboard == nil {
		return
	}

	c.mu.Lock()
	c.dashboard = dashboard
	if c.gridIndex >= len(dashboard.Grids) {
		c.gridIndex = 0
	}
	c.mu.Unlock()

	c.scheduleRotation()
}

// Refresh resets rotation to the first grid and reloads the current
// dashboard from the backend
func (c *Controller) Refresh(ctx context.Context) {
	c.mu.Lock()
	dashboard := c.dashboard
	if dashboard == nil || c.loading {
		c.mu.Unlock()
		return
	}
	c.loading = true
	c.state = StateLoading
	c.gridIndex = 0
	token := dashboard.Token
	c.mu.Unlock()

	c.log.Info("Manual refresh", "token", token)
	c.load(ctx, token)
}

// Disconnect tears the display down: both timers stop, every
// subscription unwinds, the channel closes, and after a short pause the
// pairing window re-opens for the next assignment.
func (c *Controller) Disconnect(ctx context.Context) {
	c.mu.Lock()
	c.stopTimersLocked()
	connectSub := c.connectSub
	c.connectSub = nil
	sessionID := c.sessionID
	c.sessionID = ""
	c.dashboard = nil
	c.gridIndex = 0
	c.totalMS = 0
	c.remainingMS = 0
	c.state = StateNoProject
	c.mu.Unlock()

	c.screen.Teardown()
	c.screen.Clear()
	if connectSub != nil {
		connectSub.Unsubscribe()
	}
	c.channel.Disconnect()

	if c.journal != nil && sessionID != "" {
		if err := c.journal.RecordDisconnect(ctx, sessionID); err != nil {
			c.log.Warn("Failed to close pairing session", "error", err)
		}
	}

	c.log.Info("Screen disconnected", "screen_code", c.ScreenCode())
	time.AfterFunc(c.relistenAfter, func() {
		c.channel.StartConnection()
		c.listenForConnect()
		c.log.Info("Screen waiting for dashboard", "screen_code", c.ScreenCode())
	})
}

// stopTimersLocked halts the rotation timer and the progress ticker;
// callers hold c.mu
func (c *Controller) stopTimersLocked() {
	if c.rotationTimer != nil {
		c.rotationTimer.Stop()
		c.rotationTimer = nil
	}
	if c.progressStop != nil {
		close(c.progressStop)
		c.progressStop = nil
	}
}

// Status reports a consistent snapshot for the control API
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := Status{
		ScreenCode: c.screenCode,
		State:      c.state,
		GridIndex:  c.gridIndex,
		PageLoaded: c.screen.PageLoaded(),
	}
	if c.dashboard != nil {
		status.Token = c.dashboard.Token
		status.GridCount = len(c.dashboard.Grids)
	}
	if c.totalMS > 0 {
		status.ProgressPercent = float64(c.remainingMS) / float64(c.totalMS) * 100
	}
	return status
}
