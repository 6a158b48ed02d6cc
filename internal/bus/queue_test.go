package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/coopco/dodgem/internal/bump"
)

// waitFor polls cond until it holds or a second passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatal("timeout waiting for dispatch")
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func TestPublishConsumeInbound(t *testing.T) {
	tests := []struct {
		name string
		msg  InboundMessage
	}{
		{
			name: "basic message",
			msg:  InboundMessage{Channel: "telegram", SenderID: "u1", ChatID: "c1", Content: "status"},
		},
		{
			name: "empty content",
			msg:  InboundMessage{Channel: "discord", SenderID: "u2", ChatID: "c2"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := NewMessageBus(10)
			b.PublishInbound(tc.msg)

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			got, err := b.ConsumeInbound(ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.msg {
				t.Errorf("got %+v, want %+v", got, tc.msg)
			}
		})
	}
}

func TestConsumeInboundCancellation(t *testing.T) {
	b := NewMessageBus(10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := b.ConsumeInbound(ctx); err == nil {
		t.Fatal("expected error on cancelled context, got nil")
	}
}

func TestConsumeInboundAfterClose(t *testing.T) {
	b := NewMessageBus(10)
	b.Close()
	if _, err := b.ConsumeInbound(context.Background()); err == nil {
		t.Fatal("expected error on closed bus, got nil")
	}
}

func TestOutboundDispatch(t *testing.T) {
	tests := []struct {
		name    string
		subChan string
		pubChan string
		wantHit bool
	}{
		{"matching channel", "telegram", "telegram", true},
		{"non-matching channel", "discord", "telegram", false},
		{"wildcard", "", "slack", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := NewMessageBus(10)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			var mu sync.Mutex
			var received []OutboundMessage
			b.Subscribe(tc.subChan, func(msg OutboundMessage) {
				mu.Lock()
				received = append(received, msg)
				mu.Unlock()
			})

			done := make(chan struct{})
			go func() {
				b.Dispatch(ctx)
				close(done)
			}()

			b.PublishOutbound(OutboundMessage{Channel: tc.pubChan, Content: "hi", Type: TypeReport})
			// Close drains the buffer before Dispatch returns.
			b.Close()
			<-done

			mu.Lock()
			got := len(received) > 0
			mu.Unlock()
			if got != tc.wantHit {
				t.Errorf("received=%v, wantHit=%v", got, tc.wantHit)
			}
		})
	}
}

func TestEventDispatchByKind(t *testing.T) {
	b := NewMessageBus(10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var fatal, all []bump.EventKind
	b.SubscribeEvents(bump.EventFatal, func(e bump.Event) {
		mu.Lock()
		fatal = append(fatal, e.Kind)
		mu.Unlock()
	})
	b.SubscribeEvents("", func(e bump.Event) {
		mu.Lock()
		all = append(all, e.Kind)
		mu.Unlock()
	})

	go b.Dispatch(ctx)

	kinds := []bump.EventKind{bump.EventSessionStarted, bump.EventAuthStarted, bump.EventFatal}
	for _, k := range kinds {
		b.Emit(bump.Event{Kind: k})
	}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(all) == len(kinds)
	})

	mu.Lock()
	defer mu.Unlock()
	for i, k := range kinds {
		if all[i] != k {
			t.Errorf("event %d: got %s, want %s", i, all[i], k)
		}
	}
	if len(fatal) != 1 {
		t.Errorf("fatal subscriber got %d events, want 1", len(fatal))
	}
}

func TestEmitAfterCloseDoesNotBlock(t *testing.T) {
	b := NewMessageBus(1)
	b.Close()
	b.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			b.Emit(bump.Event{Kind: bump.EventWaiting})
			b.PublishOutbound(OutboundMessage{Channel: "x"})
			b.PublishInbound(InboundMessage{Channel: "x"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publishing after Close blocked")
	}
}

func TestBusIsProgressSink(t *testing.T) {
	var _ bump.ProgressSink = NewMessageBus(1)
}
