package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/dashwall/dashwall/internal/models"
)

// Repository provides data access methods
type Repository struct {
	db *sql.DB
}

// New creates a new Repository
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// SQLite works best with a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	repo := &Repository{db: db}

	if err := repo.migrate(); err != nil {
		return nil, err
	}

	return repo, nil
}

// NewWithDB wraps an existing database handle, used by tests
func NewWithDB(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Close closes the database connection
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks if the database connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// migrate runs database migrations
func (r *Repository) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			screen_code INTEGER NOT NULL,
			dashboard_token TEXT NOT NULL,
			connected_at DATETIME NOT NULL,
			disconnected_at DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_connected ON sessions(connected_at)`,
	}

	for _, migration := range migrations {
		if _, err := r.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}

// ==================== Settings Methods ====================

// GetSetting retrieves a setting value
func (r *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return value, err
}

// SetSetting updates a setting value
func (r *Repository) SetSetting(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`, key, value)
	return err
}

// ==================== Session Methods ====================

// CreateSession journals a new pairing session and returns its id
func (r *Repository) CreateSession(ctx context.Context, screenCode int, dashboardToken string) (string, error) {
	id := uuid.NewString()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, screen_code, dashboard_token, connected_at)
		VALUES (?, ?, ?, ?)`,
		id, screenCode, dashboardToken, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return "", err
	}
	return id, nil
}

// CloseSession stamps the disconnect time on an open session
func (r *Repository) CloseSession(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET disconnected_at = ?
		WHERE id = ? AND disconnected_at IS NULL`,
		time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// GetSession retrieves one pairing session by id
func (r *Repository) GetSession(ctx context.Context, id string) (*models.PairingSession, error) {
	var s models.PairingSession
	var disconnected sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT id, screen_code, dashboard_token, connected_at, disconnected_at
		FROM sessions WHERE id = ?`, id).
		Scan(&s.ID, &s.ScreenCode, &s.DashboardToken, &s.ConnectedAt, &disconnected)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if disconnected.Valid {
		s.DisconnectedAt = disconnected.String
	}
	return &s, nil
}

// ListSessions returns the most recent pairing sessions, newest first
func (r *Repository) ListSessions(ctx context.Context, limit int) ([]models.PairingSession, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, screen_code, dashboard_token, connected_at, disconnected_at
		FROM sessions ORDER BY connected_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.PairingSession
	for rows.Next() {
		var s models.PairingSession
		var disconnected sql.NullString
		if err := rows.Scan(&s.ID, &s.ScreenCode, &s.DashboardToken, &s.ConnectedAt, &disconnected); err != nil {
			return nil, err
		}
		if disconnected.Valid {
			s.DisconnectedAt = disconnected.String
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
