package notify

import "testing"

func TestSubscribeByKind(t *testing.T) {
	var b Bus
	var got []Kind

	b.Subscribe(FoldApplied, func(ev Event) { got = append(got, ev.Kind) })
	b.Publish(FoldApplied, nil)
	b.Publish(DyeApplied, nil)

	if len(got) != 1 || got[0] != FoldApplied {
		t.Errorf("events = %v, want [fold.applied]", got)
	}
}

func TestSubscribeAllAndOrder(t *testing.T) {
	var b Bus
	var order []string

	b.SubscribeAll(func(Event) { order = append(order, "first") })
	b.Subscribe(DyeCleared, func(Event) { order = append(order, "second") })
	b.Publish(DyeCleared, nil)

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("order = %v", order)
	}
}

func TestUnsubscribe(t *testing.T) {
	var b Bus
	n := 0
	unsub := b.Subscribe(FoldUndone, func(Event) { n++ })

	b.Publish(FoldUndone, nil)
	unsub()
	unsub()
	b.Publish(FoldUndone, nil)

	if n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
	if b.Len() != 0 {
		t.Errorf("len = %d, want 0", b.Len())
	}
}

func TestUnsubscribeDuringPublish(t *testing.T) {
	var b Bus
	calls := 0
	var unsub func()
	unsub = b.Subscribe(UnfoldStep, func(Event) {
		calls++
		unsub()
	})
	b.Subscribe(UnfoldStep, func(Event) { calls++ })

	b.Publish(UnfoldStep, nil)
	b.Publish(UnfoldStep, nil)

	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestPayloadDelivered(t *testing.T) {
	var b Bus
	var payload any
	b.Subscribe(UnfoldComplete, func(ev Event) { payload = ev.Payload })
	b.Publish(UnfoldComplete, 42)
	if payload != 42 {
		t.Errorf("payload = %v", payload)
	}
}
