package actionbox_test

import (
	"testing"

	"github.com/fieldline/actionbox"
)

func TestBusDeliversToSubscribers(t *testing.T) {
	t.Parallel()
	bus := actionbox.NewBus()

	var got []actionbox.Snapshot
	cancel := bus.Subscribe(func(snap actionbox.Snapshot) {
		got = append(got, snap)
	})
	defer cancel()

	bus.Publish(actionbox.Snapshot{Summary: actionbox.Summary{PendingCount: 1}})
	bus.Publish(actionbox.Snapshot{Summary: actionbox.Summary{PendingCount: 2}})

	if len(got) != 2 {
		t.Fatalf("received %d snapshots, want 2", len(got))
	}
	if got[1].Summary.PendingCount != 2 {
		t.Fatalf("last snapshot pending = %d, want 2", got[1].Summary.PendingCount)
	}
}

func TestBusPrimesLateSubscribersWithLastValue(t *testing.T) {
	t.Parallel()
	bus := actionbox.NewBus()
	bus.Publish(actionbox.Snapshot{Summary: actionbox.Summary{PendingCount: 3}})

	var got []actionbox.Snapshot
	cancel := bus.Subscribe(func(snap actionbox.Snapshot) {
		got = append(got, snap)
	})
	defer cancel()

	if len(got) != 1 || got[0].Summary.PendingCount != 3 {
		t.Fatalf("late subscriber got %+v, want the last published snapshot", got)
	}
}

func TestBusUnsubscribeStopsDelivery(t *testing.T) {
	t.Parallel()
	bus := actionbox.NewBus()

	count := 0
	cancel := bus.Subscribe(func(actionbox.Snapshot) {
		count++
	})

	bus.Publish(actionbox.Snapshot{})
	cancel()
	bus.Publish(actionbox.Snapshot{})

	if count != 1 {
		t.Fatalf("delivery count = %d, want 1", count)
	}
}
