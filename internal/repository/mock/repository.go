package mock

import (
	"context"

	"github.com/dashwall/dashwall/internal/models"
	"github.com/dashwall/dashwall/internal/repository"
)

// Repository wraps a real repository and allows injecting errors for
// testing. This provides a flexible way to test error paths without
// complex database manipulation.
//
// Usage:
//
//	realRepo := testutil.NewTestRepository(t)
//	mockRepo := mock.NewRepository(realRepo)
//	mockRepo.CreateSessionError = errors.New("database error")
type Repository struct {
	repository.FullRepository

	// ===== Settings Errors =====
	GetSettingError error
	SetSettingError error

	// ===== Session Errors =====
	CreateSessionError error
	CloseSessionError  error
	GetSessionError    error
	ListSessionsError  error
}

// NewRepository creates a mock wrapping the given repository
func NewRepository(repo repository.FullRepository) *Repository {
	return &Repository{FullRepository: repo}
}

func (m *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	if m.GetSettingError != nil {
		return "", m.GetSettingError
	}
	return m.FullRepository.GetSetting(ctx, key)
}

func (m *Repository) SetSetting(ctx context.Context, key, value string) error {
	if m.SetSettingError != nil {
		return m.SetSettingError
	}
	return m.FullRepository.SetSetting(ctx, key, value)
}

func (m *Repository) CreateSession(ctx context.Context, screenCode int, dashboardToken string) (string, error) {
	if m.CreateSessionError != nil {
		return "", m.CreateSessionError
	}
	return m.FullRepository.CreateSession(ctx, screenCode, dashboardToken)
}

func (m *Repository) CloseSession(ctx context.Context, id string) error {
	if m.CloseSessionError != nil {
		return m.CloseSessionError
	}
	return m.FullRepository.CloseSession(ctx, id)
}

func (m *Repository) GetSession(ctx context.Context, id string) (*models.PairingSession, error) {
	if m.GetSessionError != nil {
		return nil, m.GetSessionError
	}
	return m.FullRepository.GetSession(ctx, id)
}

func (m *Repository) ListSessions(ctx context.Context, limit int) ([]models.PairingSession, error) {
	if m.ListSessionsError != nil {
		return nil, m.ListSessionsError
	}
	return m.FullRepository.ListSessions(ctx, limit)
}
