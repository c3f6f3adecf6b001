// Package handlers exposes the kiosk's local control API and the
// assembled wall page.
package handlers

import (
	"fmt"
	"html/template"
	"io/fs"

	"github.com/dashwall/dashwall/internal/assets"
	"github.com/dashwall/dashwall/internal/repository"
	"github.com/dashwall/dashwall/internal/rotation"
	"github.com/dashwall/dashwall/internal/screen"
	"github.com/dashwall/dashwall/internal/widgets"
	"github.com/dashwall/dashwall/pkg/backend"
)

// Templates holds all parsed HTML templates
type Templates struct {
	Wall *template.Template
}

// HTTPLogger is an interface for loggers that support HTTP logging control
type HTTPLogger interface {
	IsHTTPLoggingEnabled() bool
}

// Handlers holds all HTTP handler dependencies
type Handlers struct {
	Rotation    *rotation.Controller
	Screen      *screen.Controller
	Sessions    repository.SessionRepository
	Loader      *assets.Loader
	Definitions *widgets.Cache
	Backend     backend.Client
	Log         HTTPLogger
	templates   *Templates
}

// New creates a new Handlers instance with all dependencies
func New(
	rotationCtrl *rotation.Controller,
	screenCtrl *screen.Controller,
	sessions repository.SessionRepository,
	loader *assets.Loader,
	definitions *widgets.Cache,
	backendClient backend.Client,
	templatesFS fs.FS,
	log HTTPLogger,
) (*Handlers, error) {
	templates, err := loadTemplates(templatesFS)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	return &Handlers{
		Rotation:    rotationCtrl,
		Screen:      screenCtrl,
		Sessions:    sessions,
		Loader:      loader,
		Definitions: definitions,
		Backend:     backendClient,
		Log:         log,
		templates:   templates,
	}, nil
}

// NoopHTTPLogger is a test logger that never logs HTTP requests
type NoopHTTPLogger struct{}

func (NoopHTTPLogger) IsHTTPLoggingEnabled() bool { return false }

// NewForTesting creates a Handlers instance without loading templates
// (for testing the API endpoints)
func NewForTesting(
	rotationCtrl *rotation.Controller,
	screenCtrl *screen.Controller,
	sessions repository.SessionRepository,
	loader *assets.Loader,
	definitions *widgets.Cache,
	backendClient backend.Client,
) *Handlers {
	return &Handlers{
		Rotation:    rotationCtrl,
		Screen:      screenCtrl,
		Sessions:    sessions,
		Loader:      loader,
		Definitions: definitions,
		Backend:     backendClient,
		Log:         NoopHTTPLogger{},
		// templates left nil - API endpoints don't use templates
	}
}

// loadTemplates parses all templates once at startup
func loadTemplates(templatesFS fs.FS) (*Templates, error) {
	t := &Templates{}
	var err error

	if t.Wall, err = template.ParseFS(templatesFS, "wall.html"); err != nil {
		return nil, fmt.Errorf("wall template: %w", err)
	}

	return t, nil
}
