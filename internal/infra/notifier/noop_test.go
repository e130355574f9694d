package notifier

import (
	"context"
	"testing"
	"time"

	"feedmill/internal/domain/entity"
)

func TestNoOpNotifier_NotifyDeadLetter(t *testing.T) {
	t.Run("TC-1: should return nil without error", func(t *testing.T) {
		// Arrange
		notifier := NewNoOpNotifier()
		ctx := context.Background()

		dl := &entity.DeadLetter{
			ID:         "dl-1",
			ArticleIDs: []int64{1, 2, 3},
			Attempts:   5,
			LastError:  "worker pool full",
			CreatedAt:  time.Now(),
		}

		// Act
		err := notifier.NotifyDeadLetter(ctx, dl)

		// Assert
		if err != nil {
			t.Errorf("expected nil error, got %v", err)
		}
	})

	t.Run("TC-2: should complete immediately without side effects", func(t *testing.T) {
		// Arrange
		notifier := NewNoOpNotifier()
		ctx := context.Background()
		dl := &entity.DeadLetter{ID: "dl-2", ArticleIDs: []int64{1}}

		// Act
		start := time.Now()
		err := notifier.NotifyDeadLetter(ctx, dl)
		elapsed := time.Since(start)

		// Assert
		if err != nil {
			t.Errorf("expected nil error, got %v", err)
		}
		if elapsed > time.Millisecond {
			t.Errorf("expected no-op to complete immediately, but took %v", elapsed)
		}
	})

	t.Run("TC-3: should work with a nil dead letter", func(t *testing.T) {
		notifier := NewNoOpNotifier()
		if err := notifier.NotifyDeadLetter(context.Background(), nil); err != nil {
			t.Errorf("expected nil error with nil dead letter, got %v", err)
		}
	})

	t.Run("TC-4: should work with canceled context", func(t *testing.T) {
		notifier := NewNoOpNotifier()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		dl := &entity.DeadLetter{ID: "dl-3", ArticleIDs: []int64{1}}
		if err := notifier.NotifyDeadLetter(ctx, dl); err != nil {
			t.Errorf("expected nil error even with canceled context, got %v", err)
		}
	})
}

func TestNewNoOpNotifier(t *testing.T) {
	t.Run("should create a new NoOpNotifier instance", func(t *testing.T) {
		notifier := NewNoOpNotifier()
		if notifier == nil {
			t.Fatal("expected non-nil notifier")
		}
	})
}
