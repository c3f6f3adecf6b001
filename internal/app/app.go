// Package app wires the kiosk together: persistence, the backend
// client, the live update channel, both controllers and the local HTTP
// surface.
package app

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/dashwall/dashwall/internal/assets"
	"github.com/dashwall/dashwall/internal/config"
	"github.com/dashwall/dashwall/internal/handlers"
	"github.com/dashwall/dashwall/internal/liveupdate"
	"github.com/dashwall/dashwall/internal/logger"
	"github.com/dashwall/dashwall/internal/render"
	"github.com/dashwall/dashwall/internal/repository"
	"github.com/dashwall/dashwall/internal/rotation"
	"github.com/dashwall/dashwall/internal/screen"
	"github.com/dashwall/dashwall/internal/widgets"
	"github.com/dashwall/dashwall/pkg/backend"
)

// App holds all application dependencies
type App struct {
	log       logger.Logger
	cfg       *config.Config
	handlers  *handlers.Handlers
	repo      *repository.Repository
	channel   *liveupdate.Channel
	rotation  *rotation.Controller
	widgets   *widgets.Cache
	closeOnce sync.Once
}

// lastTokenKey stores the token of the currently paired dashboard so a
// restarted kiosk resumes the same wall
const lastTokenKey = "last_token"

// sessionJournal adapts the repository to the rotation controller's
// journal and keeps the last paired token persisted
type sessionJournal struct {
	repo repository.FullRepository
	log  logger.Logger
}

func (j sessionJournal) RecordConnect(ctx context.Context, screenCode int, token string) (string, error) {
	if err := j.repo.SetSetting(ctx, lastTokenKey, token); err != nil {
		j.log.Warn("Failed to persist last token", "error", err)
	}
	return j.repo.CreateSession(ctx, screenCode, token)
}

func (j sessionJournal) RecordDisconnect(ctx context.Context, sessionID string) error {
	if err := j.repo.SetSetting(ctx, lastTokenKey, ""); err != nil {
		j.log.Warn("Failed to clear last token", "error", err)
	}
	return j.repo.CloseSession(ctx, sessionID)
}

// New creates and initializes a new application instance
func New(log logger.Logger, cfg *config.Config, templatesFS fs.FS) (*App, error) {
	repo, err := repository.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	backendClient := backend.NewHTTPClient(cfg.BackendURL, log)
	definitions := widgets.NewCache(backendClient, cfg.CacheTTL, log)

	channel := liveupdate.New(liveupdate.Config{
		URL:               cfg.WebsocketURL,
		HeartbeatInterval: cfg.HeartbeatInterval,
		ReconnectDelay:    cfg.ReconnectDelay,
	}, log)

	loader := assets.New(log)
	engine := &render.Engine{}

	screenCode := rotation.NewScreenCode()
	screenCtrl := screen.NewController(log, backendClient, channel, loader, engine, screenCode,
		screen.WithReadOnly(cfg.ReadOnly),
		screen.WithWebsockets(true))
	rotationCtrl := rotation.NewController(log, backendClient, channel, screenCtrl,
		sessionJournal{repo: repo, log: log})

	// Push events on the dashboard and screen queues drive the TV flow
	screenCtrl.SetOnDisconnect(func() {
		rotationCtrl.Disconnect(context.Background())
	})
	screenCtrl.SetOnRefresh(rotationCtrl.Resync)
	screenCtrl.SetOnReload(func() {
		rotationCtrl.Refresh(context.Background())
	})

	h, err := handlers.New(rotationCtrl, screenCtrl, repo, loader, definitions, backendClient, templatesFS, log)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	return &App{
		log:      log,
		cfg:      cfg,
		handlers: h,
		repo:     repo,
		channel:  channel,
		rotation: rotationCtrl,
		widgets:  definitions,
	}, nil
}

// Router returns the configured HTTP router
func (a *App) Router() chi.Router {
	return a.handlers.Router()
}

// Rotation returns the TV controller
func (a *App) Rotation() *rotation.Controller {
	return a.rotation
}

// Start opens the live channel and the pairing window. A kiosk that was
// paired before the restart resumes its dashboard.
func (a *App) Start() {
	a.rotation.Start()

	ctx := context.Background()
	token, err := a.repo.GetSetting(ctx, lastTokenKey)
	if err != nil || token == "" {
		return
	}
	a.log.Info("Resuming last dashboard", "token", token)
	a.rotation.Connect(ctx, token)
}

// Run starts the control API server; it blocks until the server stops
func (a *App) Run() error {
	a.log.Info("Control API starting", "addr", a.cfg.ListenAddr)
	a.log.Info("Wall view", "url", fmt.Sprintf("http://localhost%s/wall", a.cfg.ListenAddr))
	return http.ListenAndServe(a.cfg.ListenAddr, a.Router())
}

// Close performs graceful shutdown of app resources. Safe to call
// more than once.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		a.channel.Disconnect()
		a.widgets.Stop()
		if err := a.repo.Close(); err != nil {
			a.log.Warn("Failed to close database", "error", err)
		}
	})
}
