package pubsub_test

import (
	"testing"
	"time"

	"github.com/netdox/netdox/pubsub"
)

func TestLoggerSubscribe(t *testing.T) {
	l := pubsub.NewLogger()
	sub := l.Subscribe()

	l.Publish("hello")

	select {
	case msg := <-sub:
		if *msg != "hello" {
			t.Errorf("expected %q, got %q", "hello", *msg)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a log message but didn't receive any")
	}
}

func TestLoggerSubscribeFanoutAlongsidePrimary(t *testing.T) {
	l := pubsub.NewLogger()
	primary := l.Subscribe()
	fanout := l.SubscribeFanout(4)

	l.Publish("fanout message")

	select {
	case msg := <-fanout:
		if *msg != "fanout message" {
			t.Errorf("expected %q, got %q", "fanout message", *msg)
		}
	case <-time.After(time.Second):
		t.Fatal("expected the fanout subscriber to receive the message")
	}

	select {
	case msg := <-primary:
		if *msg != "fanout message" {
			t.Errorf("expected %q, got %q", "fanout message", *msg)
		}
	case <-time.After(time.Second):
		t.Fatal("expected the primary channel to still receive the message")
	}
}

func TestLoggerWriteIsPublish(t *testing.T) {
	l := pubsub.NewLogger()
	sub := l.Subscribe()

	msg := `{"msg":"structured"}`
	n, err := l.Write([]byte(msg))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != len(msg) {
		t.Errorf("expected Write to report the full length written")
	}

	select {
	case got := <-sub:
		if *got != msg {
			t.Errorf("unexpected message: %s", *got)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a log message but didn't receive any")
	}
}

func TestLoggerPublishDropsOldestWhenPrimaryFull(t *testing.T) {
	l := pubsub.NewLogger()
	for i := 0; i < 150; i++ {
		l.Publish("filler")
	}
	// Publish must not block even once the 100-entry primary buffer is full.
	done := make(chan struct{})
	go func() {
		l.Publish("final")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked instead of dropping the oldest entry")
	}
}
