package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return client, cleanup
}

// publishUntilReceived retries until a subscriber is registered on the channel.
func publishUntilReceived(t *testing.T, ch *LifecycleChannel, signal string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		n, err := ch.Publish(context.Background(), signal)
		if err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
		if n > 0 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("no subscriber received the signal")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestLifecycleChannel_Listen(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	ch := NewLifecycleChannel(client, "", nil)
	if ch.Channel() != DefaultChannel {
		t.Errorf("Channel() = %q, want %q", ch.Channel(), DefaultChannel)
	}

	ctx, cancel := context.WithCancel(context.Background())
	received := make(chan string, 4)
	done := make(chan error, 1)
	go func() {
		done <- ch.Listen(ctx, func(signal string) { received <- signal })
	}()

	publishUntilReceived(t, ch, " background\n")
	publishUntilReceived(t, ch, "")
	publishUntilReceived(t, ch, "foreground")

	for _, want := range []string{"background", "foreground"} {
		select {
		case got := <-received:
			if got != want {
				t.Errorf("received %q, want %q", got, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Listen() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Listen did not return after cancel")
	}
}

func TestLifecycleChannel_Ping(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	ch := NewLifecycleChannel(client, "test:lifecycle", nil)

	if err := ch.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}

	cleanup()
	if err := ch.Ping(context.Background()); err == nil {
		t.Error("expected error after server shutdown")
	}
}

func TestLifecycleChannel_ListenError(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	cleanup()

	ch := NewLifecycleChannel(client, "test:lifecycle", nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := ch.Listen(ctx, func(string) {}); err == nil {
		t.Error("expected subscribe error for closed server")
	}
}
