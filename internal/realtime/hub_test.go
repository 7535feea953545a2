package realtime_test

import (
	"testing"
	"time"

	"onebid/internal/realtime"
)

func TestPublishReachesTopicSubscribers(t *testing.T) {
	h := realtime.NewHub()
	a, cancelA := h.Subscribe(realtime.ListingTopic("l1"))
	defer cancelA()
	b, cancelB := h.Subscribe(realtime.ListingTopic("l2"))
	defer cancelB()

	h.Publish(realtime.ListingTopic("l1"), "bid.placed", "b1")

	select {
	case evt := <-a:
		if evt.Type != "bid.placed" || evt.ID != "b1" || evt.Topic != "listing:l1" {
			t.Fatalf("unexpected event %+v", evt)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber on l1 got nothing")
	}
	select {
	case evt := <-b:
		t.Fatalf("l2 subscriber should not see %+v", evt)
	default:
	}
}

func TestSlowSubscriberIsDropped(t *testing.T) {
	h := realtime.NewHub()
	ch, cancel := h.Subscribe("table:bids")
	defer cancel()
	for i := 0; i < 100; i++ {
		h.Publish("table:bids", "changed", "")
	}
	if n := h.Subscribers("table:bids"); n != 0 {
		t.Fatalf("slow subscriber still registered (%d)", n)
	}
	// drained channel ends closed
	count := 0
	for range ch {
		count++
	}
	if count == 0 {
		t.Fatal("expected buffered events before drop")
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	h := realtime.NewHub()
	var total float64
	h.OnChange = func(d float64) { total += d }
	_, cancel := h.Subscribe("x")
	cancel()
	cancel()
	if total != 0 {
		t.Fatalf("subscriber gauge delta = %v", total)
	}
}
