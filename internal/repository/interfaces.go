package repository

import (
	"context"

	"github.com/dashwall/dashwall/internal/models"
)

// SettingsRepository defines kiosk settings data operations
type SettingsRepository interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// SessionRepository defines pairing-session journal operations
type SessionRepository interface {
	CreateSession(ctx context.Context, screenCode int, dashboardToken string) (string, error)
	CloseSession(ctx context.Context, id string) error
	GetSession(ctx context.Context, id string) (*models.PairingSession, error)
	ListSessions(ctx context.Context, limit int) ([]models.PairingSession, error)
}

// FullRepository combines all repository interfaces
type FullRepository interface {
	SettingsRepository
	SessionRepository
}

// Ensure Repository implements all interfaces
var _ FullRepository = (*Repository)(nil)
