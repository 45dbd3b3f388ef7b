package notify_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/caphe-pos/storefront/internal/notify"
)

func TestBus_SessionFilter(t *testing.T) {
	bus := notify.NewBus()

	chA, cancelA := bus.Subscribe("session-a")
	defer cancelA()
	chAll, cancelAll := bus.Subscribe("")
	defer cancelAll()

	bus.Publish(notify.Event{
		Type:      notify.EventCartUpdated,
		SessionID: "session-b",
		Cart:      &notify.CartUpdate{ItemCount: 1, TotalPrice: decimal.NewFromInt(30000)},
	})

	select {
	case e := <-chAll:
		if e.SessionID != "session-b" {
			t.Errorf("wildcard subscriber got wrong session: %q", e.SessionID)
		}
	case <-time.After(time.Second):
		t.Fatal("wildcard subscriber received nothing")
	}

	select {
	case e := <-chA:
		t.Errorf("session-a subscriber received event for %q", e.SessionID)
	default:
	}
}

func TestBus_CancelClosesChannel(t *testing.T) {
	bus := notify.NewBus()
	ch, cancel := bus.Subscribe("s")
	cancel()
	cancel() // second cancel is harmless

	if _, open := <-ch; open {
		t.Error("channel still open after cancel")
	}
}

func TestBus_SlowSubscriberDoesNotBlock(t *testing.T) {
	bus := notify.NewBus()
	_, cancel := bus.Subscribe("s")
	defer cancel()

	done := make(chan struct{})
	go func() {
		// Publish far more than the buffer holds; must not deadlock.
		for i := 0; i < 100; i++ {
			bus.Publish(notify.Event{Type: notify.EventCartUpdated, SessionID: "s"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}
