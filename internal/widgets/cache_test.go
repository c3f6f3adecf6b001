package widgets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dashwall/dashwall/internal/logger"
	"github.com/dashwall/dashwall/pkg/backend"
)

func TestCache_SuppressesRepeatFetches(t *testing.T) {
	mock := backend.NewMockClient()
	cache := NewCache(mock, time.Minute, logger.New())
	defer cache.Stop()

	for i := 0; i < 5; i++ {
		widget, err := cache.Get(context.Background(), 1)
		if err != nil {
			t.Fatalf("Get returned error: %v", err)
		}
		if widget.Name != "Build Status" {
			t.Errorf("Expected widget name 'Build Status', got %q", widget.Name)
		}
	}

	if calls := mock.WidgetCalls(); calls != 1 {
		t.Errorf("Expected 1 backend call, got %d", calls)
	}
}

func TestCache_DistinctIDsFetchSeparately(t *testing.T) {
	mock := backend.NewMockClient()
	cache := NewCache(mock, time.Minute, logger.New())
	defer cache.Stop()

	if _, err := cache.Get(context.Background(), 1); err != nil {
		t.Fatalf("Get(1) returned error: %v", err)
	}
	if _, err := cache.Get(context.Background(), 2); err != nil {
		t.Fatalf("Get(2) returned error: %v", err)
	}

	if calls := mock.WidgetCalls(); calls != 2 {
		t.Errorf("Expected 2 backend calls, got %d", calls)
	}
}

func TestCache_ErrorsAreNotCached(t *testing.T) {
	mock := backend.NewMockClient(backend.WithDefinitionError(errors.New("backend down")))
	cache := NewCache(mock, time.Minute, logger.New())
	defer cache.Stop()

	if _, err := cache.Get(context.Background(), 1); err == nil {
		t.Fatal("Expected error from failed fetch")
	}
	if _, err := cache.Get(context.Background(), 1); err == nil {
		t.Fatal("Expected error from second failed fetch")
	}

	if calls := mock.WidgetCalls(); calls != 2 {
		t.Errorf("Expected failed fetches to hit the backend each time, got %d calls", calls)
	}
}

func TestCache_InvalidateForcesRefetch(t *testing.T) {
	mock := backend.NewMockClient()
	cache := NewCache(mock, time.Minute, logger.New())
	defer cache.Stop()

	if _, err := cache.Get(context.Background(), 1); err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	cache.Invalidate(1)
	if _, err := cache.Get(context.Background(), 1); err != nil {
		t.Fatalf("Get after invalidate returned error: %v", err)
	}

	if calls := mock.WidgetCalls(); calls != 2 {
		t.Errorf("Expected 2 backend calls after invalidate, got %d", calls)
	}
}
