package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

// TestGetSetting_QueryError tests a failing settings query
func TestGetSetting_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	repo := &Repository{db: db}
	mock.ExpectQuery("SELECT value FROM settings").WillReturnError(errors.New("disk I/O error"))

	_, err = repo.GetSetting(context.Background(), "backend_url")
	if err == nil {
		t.Error("expected error from failing query, got nil")
	}
}

// TestCreateSession_ExecError tests a failing session insert
func TestCreateSession_ExecError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	repo := &Repository{db: db}
	mock.ExpectExec("INSERT INTO sessions").WillReturnError(errors.New("database is locked"))

	_, err = repo.CreateSession(context.Background(), 123456, "abc123")
	if err == nil {
		t.Error("expected error from failing insert, got nil")
	}
}

// TestListSessions_ScanError tests row scanning error
func TestListSessions_ScanError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	repo := &Repository{db: db}

	// screen_code should be an integer, not text
	rows := sqlmock.NewRows([]string{"id", "screen_code", "dashboard_token", "connected_at", "disconnected_at"}).
		AddRow("session-1", "not-a-number", "abc123", "2026-01-01T00:00:00Z", nil)

	mock.ExpectQuery("SELECT (.+) FROM sessions").WillReturnRows(rows)

	_, err = repo.ListSessions(context.Background(), 10)
	if err == nil {
		t.Error("expected error from scan failure, got nil")
	}
}

// TestCloseSession_ExecError tests a failing session update
func TestCloseSession_ExecError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	repo := &Repository{db: db}
	mock.ExpectExec("UPDATE sessions").WillReturnError(errors.New("database is locked"))

	if err := repo.CloseSession(context.Background(), "session-1"); err == nil {
		t.Error("expected error from failing update, got nil")
	}
}
