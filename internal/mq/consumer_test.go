package mq

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

// Stop может прийти раньше, чем goroutine со Start успела выполниться.
// Consumer обязан учесть такой Stop и не остаться работать.
func TestConsumerStopBeforeStart(t *testing.T) {
	c := NewConsumer(nil, slog.New(slog.NewTextHandler(io.Discard, nil)), ConsumerConfig{
		Queue: "campaign.jobs.test",
		Handler: func(_ context.Context, _ *Delivery) error {
			return nil
		},
	})

	c.Stop()

	done := make(chan error, 1)
	go func() { done <- c.Start(context.Background()) }()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Start() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Stop")
	}
}
