package ingest

import (
	"sync"
	"testing"
	"time"

	"github.com/Artic67/iot-labs/internal/adapters/observability"
	"github.com/Artic67/iot-labs/internal/domain"
)

func storedRecord(userID int64, z float64) domain.StoredRecord {
	return domain.StoredRecord{
		RoadState: domain.RoadStateNormal,
		UserID:    userID,
		Z:         z,
		Latitude:  50.45,
		Longitude: 30.52,
		Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func recvOne(t *testing.T, sub *Subscription) domain.StoredRecord {
	t.Helper()
	select {
	case rec, ok := <-sub.C:
		if !ok {
			t.Fatalf("subscription %s closed unexpectedly", sub.ID)
		}
		return rec
	case <-time.After(time.Second):
		t.Fatalf("subscription %s received nothing", sub.ID)
	}
	return domain.StoredRecord{}
}

func TestRegistryFanoutIsolatedByUser(t *testing.T) {
	r := NewRegistry(observability.Nop{})
	a := r.Subscribe(1, 4)
	b := r.Subscribe(1, 4)
	other := r.Subscribe(2, 4)

	rec := storedRecord(1, 15000)
	if got := r.Notify(1, rec); got != 2 {
		t.Fatalf("Notify delivered %d, want 2", got)
	}

	for _, sub := range []*Subscription{a, b} {
		got := recvOne(t, sub)
		if got.UserID != 1 || got.Z != 15000 {
			t.Fatalf("subscription %s got %+v", sub.ID, got)
		}
	}
	select {
	case rec := <-other.C:
		t.Fatalf("user 2 subscriber received user 1 record %+v", rec)
	default:
	}
}

func TestRegistryNotifyWithoutSubscribers(t *testing.T) {
	r := NewRegistry(observability.Nop{})
	if got := r.Notify(7, storedRecord(7, 1)); got != 0 {
		t.Fatalf("Notify delivered %d, want 0", got)
	}
}

func TestRegistryUnsubscribeIdempotent(t *testing.T) {
	r := NewRegistry(observability.Nop{})
	sub := r.Subscribe(1, 1)

	r.Unsubscribe(sub)
	r.Unsubscribe(sub) // second call must be a no-op

	if _, ok := <-sub.C; ok {
		t.Fatal("channel still open after Unsubscribe")
	}
	if got := r.Notify(1, storedRecord(1, 1)); got != 0 {
		t.Fatalf("Notify delivered %d after unsubscribe, want 0", got)
	}
}

func TestRegistrySlowSubscriberEvicted(t *testing.T) {
	r := NewRegistry(observability.Nop{})
	slow := r.Subscribe(1, 1)
	healthy := r.Subscribe(1, 4)

	// First record fills the slow subscriber's buffer.
	if got := r.Notify(1, storedRecord(1, 1)); got != 2 {
		t.Fatalf("first Notify delivered %d, want 2", got)
	}
	// Second record cannot be delivered to the slow subscriber, which must
	// be evicted without disturbing the healthy one.
	if got := r.Notify(1, storedRecord(1, 2)); got != 1 {
		t.Fatalf("second Notify delivered %d, want 1", got)
	}

	if got := recvOne(t, slow); got.Z != 1 {
		t.Fatalf("slow subscriber got z=%v, want 1", got.Z)
	}
	if _, ok := <-slow.C; ok {
		t.Fatal("slow subscriber channel not closed after eviction")
	}

	if got := recvOne(t, healthy); got.Z != 1 {
		t.Fatalf("healthy subscriber got z=%v, want 1", got.Z)
	}
	if got := recvOne(t, healthy); got.Z != 2 {
		t.Fatalf("healthy subscriber got z=%v, want 2", got.Z)
	}
}

func TestRegistryOrderPerUser(t *testing.T) {
	const n = 64
	r := NewRegistry(observability.Nop{})
	sub := r.Subscribe(1, n)

	for i := 0; i < n; i++ {
		if got := r.Notify(1, storedRecord(1, float64(i))); got != 1 {
			t.Fatalf("Notify %d delivered %d, want 1", i, got)
		}
	}
	for i := 0; i < n; i++ {
		if got := recvOne(t, sub); got.Z != float64(i) {
			t.Fatalf("record %d arrived with z=%v", i, got.Z)
		}
	}
}

func TestRegistryConcurrentNotifyAndUnsubscribe(t *testing.T) {
	r := NewRegistry(observability.Nop{})

	var notifiers, readers sync.WaitGroup
	subs := make([]*Subscription, 0, 4)
	for u := int64(0); u < 4; u++ {
		sub := r.Subscribe(u, 1)
		subs = append(subs, sub)

		notifiers.Add(1)
		go func(u int64) {
			defer notifiers.Done()
			for i := 0; i < 100; i++ {
				r.Notify(u, storedRecord(u, float64(i)))
			}
		}(u)

		readers.Add(1)
		go func(sub *Subscription) {
			defer readers.Done()
			for range sub.C {
			}
		}(sub)
	}
	notifiers.Wait()
	for _, sub := range subs {
		r.Unsubscribe(sub)
	}
	readers.Wait()

	// Every subscriber is gone by now, so nothing should be deliverable.
	for u := int64(0); u < 4; u++ {
		if got := r.Notify(u, storedRecord(u, 0)); got != 0 {
			t.Fatalf("user %d still has %d live subscribers", u, got)
		}
	}
}

func TestRegistrySubscriptionIDsUnique(t *testing.T) {
	r := NewRegistry(observability.Nop{})
	seen := make(map[string]bool)
	for i := 0; i < 16; i++ {
		sub := r.Subscribe(1, 1)
		if seen[sub.ID] {
			t.Fatalf("duplicate subscription id %s", sub.ID)
		}
		seen[sub.ID] = true
	}
	if len(seen) != 16 {
		t.Fatalf("expected 16 unique ids, got %d", len(seen))
	}
}

func TestRegistryNotifyLockCleanup(t *testing.T) {
	r := NewRegistry(observability.Nop{})

	// Notifications for many distinct producers, with and without
	// subscribers, must not accumulate serialization state.
	sub := r.Subscribe(0, 4)
	var wg sync.WaitGroup
	for u := int64(0); u < 64; u++ {
		wg.Add(1)
		go func(u int64) {
			defer wg.Done()
			r.Notify(u, storedRecord(u, 15000))
		}(u)
	}
	wg.Wait()
	recvOne(t, sub)
	r.Unsubscribe(sub)

	r.orderMu.Lock()
	live := len(r.userLocks)
	r.orderMu.Unlock()
	if live != 0 {
		t.Fatalf("expected no lingering per-user locks, got %d", live)
	}
}
