package fanout

import (
	"sync"
	"testing"

	"github.com/suPer8Hu/gopherchat/internal/logger"
)

func newTestHub() *Hub {
	return NewHub(logger.NewNop())
}

func TestPublish_DeliversToAllSubscribersInOrder(t *testing.T) {
	h := newTestHub()

	var got1, got2 []int
	s1 := h.Subscribe("conv:a", func(p any) { got1 = append(got1, p.(int)) })
	s2 := h.Subscribe("conv:a", func(p any) { got2 = append(got2, p.(int)) })
	defer s1.Cancel()
	defer s2.Cancel()

	for i := 1; i <= 3; i++ {
		h.Publish("conv:a", i)
	}

	for _, got := range [][]int{got1, got2} {
		if len(got) != 3 {
			t.Fatalf("expected 3 deliveries, got %d", len(got))
		}
		for i, v := range got {
			if v != i+1 {
				t.Fatalf("out of order delivery: %v", got)
			}
		}
	}
}

func TestPublish_TopicIsolation(t *testing.T) {
	h := newTestHub()

	delivered := 0
	s := h.Subscribe("conv:a", func(any) { delivered++ })
	defer s.Cancel()

	h.Publish("conv:b", 1)
	if delivered != 0 {
		t.Fatalf("subscriber of conv:a received event for conv:b")
	}
}

func TestCancel_IdempotentAndStopsDelivery(t *testing.T) {
	h := newTestHub()

	delivered := 0
	s := h.Subscribe("conv:a", func(any) { delivered++ })

	h.Publish("conv:a", 1)
	s.Cancel()
	s.Cancel()
	h.Publish("conv:a", 2)

	if delivered != 1 {
		t.Fatalf("expected exactly 1 delivery, got %d", delivered)
	}
	if n := h.SubscriberCount("conv:a"); n != 0 {
		t.Fatalf("expected empty topic after cancel, got %d subscribers", n)
	}
}

func TestPublish_PanickingObserverIsIsolated(t *testing.T) {
	h := newTestHub()

	bad := h.Subscribe("conv:a", func(any) { panic("boom") })
	defer bad.Cancel()

	delivered := 0
	good := h.Subscribe("conv:a", func(any) { delivered++ })
	defer good.Cancel()

	h.Publish("conv:a", 1)
	h.Publish("conv:a", 2)

	if delivered != 2 {
		t.Fatalf("healthy subscriber missed deliveries: got %d", delivered)
	}
	// panicking subscriber is not auto-removed
	if n := h.SubscriberCount("conv:a"); n != 2 {
		t.Fatalf("expected 2 subscribers, got %d", n)
	}
}

func TestCancel_ConcurrentWithPublish(t *testing.T) {
	h := newTestHub()

	s := h.Subscribe("conv:a", func(any) {})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			h.Publish("conv:a", i)
		}
	}()
	go func() {
		defer wg.Done()
		s.Cancel()
	}()
	wg.Wait()
}
