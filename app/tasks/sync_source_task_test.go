package tasks

import (
	"context"
	"testing"

	"github.com/mkazmer/approval-watch/app/database"
	"github.com/mkazmer/approval-watch/app/watch"
)

func TestSyncSourceTaskExecute(t *testing.T) {
	db := newTestDB(t)
	sourceRepo := database.NewSourceRepository(db)

	config := &watch.Config{
		Name: "ema-updates",
		URL:  "https://example.com/feed.xml",
		Kind: watch.KindFeed,
		Settings: watch.ConfigSettings{
			Enabled: false,
		},
	}

	task := NewSyncSourceTask("ema-updates", config, sourceRepo)
	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	source, err := sourceRepo.GetSource("ema-updates")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if source == nil {
		t.Fatal("Expected source to be synced")
	}
	if source.URL != "https://example.com/feed.xml" {
		t.Errorf("Expected URL 'https://example.com/feed.xml', got '%s'", source.URL)
	}
	if source.Kind != "feed" {
		t.Errorf("Expected kind 'feed', got '%s'", source.Kind)
	}
	if source.Enabled {
		t.Error("Expected source to be synced as disabled")
	}
}

func TestSyncSourceTaskCancelled(t *testing.T) {
	config := &watch.Config{Name: "ema-updates", URL: "https://example.com/feed.xml"}
	task := NewSyncSourceTask("ema-updates", config, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := task.Execute(ctx); err == nil {
		t.Error("Expected context error for cancelled task")
	}
}
