package retention

import (
	"context"
	"testing"
	"time"

	"github.com/RelientS/cursor-api/pkg/usage/storage"
)

func TestScheduler_Start(t *testing.T) {
	tests := []struct {
		name        string
		schedule    string
		wantRunning bool
		wantError   bool
	}{
		{
			name:        "valid daily schedule",
			schedule:    "0 3 * * *",
			wantRunning: true,
			wantError:   false,
		},
		{
			name:        "valid hourly schedule",
			schedule:    "0 * * * *",
			wantRunning: true,
			wantError:   false,
		},
		{
			name:        "empty schedule, no error, not running",
			schedule:    "",
			wantRunning: false,
			wantError:   false,
		},
		{
			name:        "invalid schedule",
			schedule:    "not a cron expr",
			wantRunning: false,
			wantError:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMemoryStorage()
			pruner := NewPruner(store, &Config{
				RetentionDays: 90,
				PruneSchedule: tt.schedule,
			})
			scheduler := NewScheduler(pruner)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			err := scheduler.Start(ctx)
			if (err != nil) != tt.wantError {
				t.Errorf("Start() error = %v, wantError %v", err, tt.wantError)
			}

			if scheduler.IsRunning() != tt.wantRunning {
				t.Errorf("IsRunning() = %v, want %v", scheduler.IsRunning(), tt.wantRunning)
			}

			if tt.wantRunning {
				next := scheduler.NextRun()
				if next == nil {
					t.Error("NextRun() returned nil for running scheduler")
				} else if !next.After(time.Now()) {
					t.Errorf("NextRun() = %v, want a future time", next)
				}
			}

			scheduler.Stop()

			if scheduler.IsRunning() {
				t.Error("scheduler still running after Stop()")
			}
		})
	}
}

func TestScheduler_StopViaContext(t *testing.T) {
	store := storage.NewMemoryStorage()
	pruner := NewPruner(store, &Config{
		RetentionDays: 90,
		PruneSchedule: "0 3 * * *",
	})
	scheduler := NewScheduler(pruner)

	ctx, cancel := context.WithCancel(context.Background())

	if err := scheduler.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if !scheduler.IsRunning() {
		t.Fatal("scheduler should be running after Start")
	}

	cancel()

	// The context watcher stops the scheduler in the background.
	deadline := time.Now().Add(2 * time.Second)
	for scheduler.IsRunning() {
		if time.Now().After(deadline) {
			t.Fatal("scheduler still running after context cancellation")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestScheduler_StopIdempotent(t *testing.T) {
	store := storage.NewMemoryStorage()
	pruner := NewPruner(store, &Config{
		RetentionDays: 90,
		PruneSchedule: "0 3 * * *",
	})
	scheduler := NewScheduler(pruner)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := scheduler.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	scheduler.Stop()
	scheduler.Stop()

	if scheduler.IsRunning() {
		t.Error("scheduler still running after Stop()")
	}
}

func TestScheduler_NextRunBeforeStart(t *testing.T) {
	store := storage.NewMemoryStorage()
	pruner := NewPruner(store, &Config{
		RetentionDays: 90,
		PruneSchedule: "0 3 * * *",
	})
	scheduler := NewScheduler(pruner)

	if next := scheduler.NextRun(); next != nil {
		t.Errorf("NextRun() before Start = %v, want nil", next)
	}
}
