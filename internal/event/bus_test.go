package event

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestPublishFanOut(t *testing.T) {
	bus := NewBus(zap.NewNop())
	defer bus.Close()

	sub1 := bus.Subscribe("company-1")
	sub2 := bus.Subscribe("company-1")
	other := bus.Subscribe("company-2")
	all := bus.Subscribe("")

	bus.Publish(Event{Kind: KindCreated, CompanyID: "company-1"})

	for _, sub := range []*Subscriber{sub1, sub2, all} {
		select {
		case evt := <-sub.Events:
			if evt.Kind != KindCreated {
				t.Errorf("unexpected kind %s", evt.Kind)
			}
			if evt.Timestamp.IsZero() {
				t.Error("expected timestamp to be set")
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %s did not receive event", sub.ID)
		}
	}

	select {
	case evt := <-other.Events:
		t.Errorf("company-2 subscriber should not receive company-1 event, got %+v", evt)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus(zap.NewNop())
	defer bus.Close()

	sub := bus.Subscribe("company-1")
	bus.Unsubscribe(sub.ID)

	if _, ok := <-sub.Events; ok {
		t.Error("expected channel to be closed after unsubscribe")
	}
	if bus.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", bus.SubscriberCount())
	}

	// 重复取消不应 panic
	bus.Unsubscribe(sub.ID)
}

func TestPublishDropsWhenBufferFull(t *testing.T) {
	bus := NewBus(zap.NewNop())
	defer bus.Close()

	slow := bus.Subscribe("company-1")
	healthy := bus.Subscribe("company-1")

	// 填满 slow 的缓冲后继续发布，两边都不应阻塞
	for i := 0; i < bus.bufferSize+5; i++ {
		bus.Publish(Event{Kind: KindStatusUpdated, CompanyID: "company-1"})
		// healthy 及时消费
		select {
		case <-healthy.Events:
		case <-time.After(time.Second):
			t.Fatal("healthy subscriber starved")
		}
	}

	received := 0
	for {
		select {
		case <-slow.Events:
			received++
		default:
			if received != bus.bufferSize {
				t.Errorf("expected slow subscriber to hold %d events, got %d", bus.bufferSize, received)
			}
			return
		}
	}
}
