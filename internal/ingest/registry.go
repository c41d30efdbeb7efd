// Package ingest is the store-side heart of the pipeline: durable batch
// acceptance plus live fan-out to subscribers keyed by producer identity.
package ingest

import (
	"sync"

	"github.com/google/uuid"

	"github.com/Artic67/iot-labs/internal/domain"
	"github.com/Artic67/iot-labs/internal/ports"
)

// Subscription is one live subscriber channel for a producer id. Records
// arrive on C; the registry closes C when the subscription is cancelled or
// evicted after a failed send.
type Subscription struct {
	ID     string
	UserID int64
	C      <-chan domain.StoredRecord

	// sendMu orders sends against close so a disconnect that races a
	// notification can never panic the notifier.
	sendMu sync.Mutex
	closed bool
	ch     chan domain.StoredRecord
}

// trySend delivers without blocking; false means the channel is full or
// already closed.
func (s *Subscription) trySend(rec domain.StoredRecord) bool {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- rec:
		return true
	default:
		return false
	}
}

func (s *Subscription) closeChan() {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Registry maps producer ids to their live subscriber channels. All methods
// are safe for concurrent use; notifications for the same producer id are
// serialized so subscribers observe records in ingestion order.
type Registry struct {
	mu   sync.RWMutex
	subs map[int64]map[string]*Subscription

	// orderMu guards userLocks. An entry exists only while a Notify for
	// that producer id is in flight; the last holder removes it, so the
	// map stays bounded by concurrent notifications rather than by every
	// producer id ever seen.
	orderMu   sync.Mutex
	userLocks map[int64]*notifyLock

	obs ports.Observability
}

// notifyLock serializes Notify per producer id; refs counts the notifiers
// holding or waiting on it.
type notifyLock struct {
	mu   sync.Mutex
	refs int
}

func NewRegistry(obs ports.Observability) *Registry {
	return &Registry{
		subs:      make(map[int64]map[string]*Subscription),
		userLocks: make(map[int64]*notifyLock),
		obs:       obs,
	}
}

// Subscribe registers a new channel under userID. The buffer bounds how far
// a slow subscriber may lag before a send fails and the subscription is
// evicted.
func (r *Registry) Subscribe(userID int64, buffer int) *Subscription {
	if buffer < 1 {
		buffer = 1
	}
	sub := &Subscription{
		ID:     uuid.NewString(),
		UserID: userID,
		ch:     make(chan domain.StoredRecord, buffer),
	}
	sub.C = sub.ch

	r.mu.Lock()
	set, ok := r.subs[userID]
	if !ok {
		set = make(map[string]*Subscription)
		r.subs[userID] = set
	}
	set[sub.ID] = sub
	total := r.totalLocked()
	r.mu.Unlock()

	r.obs.SetGauge("roadlab_subscribers", float64(total))
	r.obs.LogInfo("subscriber added",
		ports.Field{Key: "user_id", Value: userID},
		ports.Field{Key: "subscription_id", Value: sub.ID})
	return sub
}

// Unsubscribe removes the subscription and closes its channel. Calling it
// for an already-removed subscription is a no-op.
func (r *Registry) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	r.mu.Lock()
	set, ok := r.subs[sub.UserID]
	if ok {
		if _, present := set[sub.ID]; present {
			delete(set, sub.ID)
			if len(set) == 0 {
				delete(r.subs, sub.UserID)
			}
		} else {
			ok = false
		}
	}
	total := r.totalLocked()
	r.mu.Unlock()

	if ok {
		sub.closeChan()
		r.obs.SetGauge("roadlab_subscribers", float64(total))
	}
}

// Notify delivers rec to every channel currently subscribed to userID and
// returns the number of deliveries. A full or concurrently-cancelled channel
// fails in isolation: the other subscribers still receive the record and the
// failed subscription is evicted.
func (r *Registry) Notify(userID int64, rec domain.StoredRecord) int {
	lock := r.acquireNotifyLock(userID)
	lock.mu.Lock()
	defer func() {
		lock.mu.Unlock()
		r.releaseNotifyLock(userID, lock)
	}()

	r.mu.RLock()
	targets := make([]*Subscription, 0, len(r.subs[userID]))
	for _, sub := range r.subs[userID] {
		targets = append(targets, sub)
	}
	r.mu.RUnlock()

	var delivered int
	for _, sub := range targets {
		if sub.trySend(rec) {
			delivered++
			continue
		}
		// Subscriber is gone or cannot keep up; evict it rather than block
		// the fan-out or fail delivery to the others.
		r.Unsubscribe(sub)
		r.obs.IncCounter("roadlab_fanout_evicted_total", 1)
		r.obs.LogError("subscriber evicted", nil,
			ports.Field{Key: "user_id", Value: userID},
			ports.Field{Key: "subscription_id", Value: sub.ID})
	}
	if delivered > 0 {
		r.obs.IncCounter("roadlab_fanout_delivered_total", float64(delivered))
	}
	return delivered
}

func (r *Registry) acquireNotifyLock(userID int64) *notifyLock {
	r.orderMu.Lock()
	defer r.orderMu.Unlock()
	lock, ok := r.userLocks[userID]
	if !ok {
		lock = &notifyLock{}
		r.userLocks[userID] = lock
	}
	lock.refs++
	return lock
}

func (r *Registry) releaseNotifyLock(userID int64, lock *notifyLock) {
	r.orderMu.Lock()
	defer r.orderMu.Unlock()
	lock.refs--
	if lock.refs == 0 {
		delete(r.userLocks, userID)
	}
}

func (r *Registry) totalLocked() int {
	var n int
	for _, set := range r.subs {
		n += len(set)
	}
	return n
}
