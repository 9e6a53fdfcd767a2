package bus

import "sync"

// Handler receives events published on a subscribed topic.
// Handlers are invoked synchronously from Publish; keep them non-blocking
// (streams hand the event to a buffered channel and return).
type Handler func(Event)

// Subscription identifies one registered handler so it can be removed.
// Every Subscribe must have a matching Unsubscribe reachable from the same
// disconnect path; the bus holds a live reference to the handler otherwise.
type Subscription struct {
	topic string
	id    uint64
}

// Bus is a process-local publish/subscribe registry keyed by exact topic
// string. Delivery is best-effort and in-memory: events published with no
// registered listener are dropped, there is no replay or buffering.
//
// Construct one per process in main and inject it; a fresh Bus per test keeps
// tests isolated.
type Bus struct {
	mu     sync.Mutex
	nextID uint64
	topics map[string]map[uint64]Handler
}

func New() *Bus {
	return &Bus{topics: make(map[string]map[uint64]Handler)}
}

// Subscribe registers handler under topic and returns a handle for removal.
func (b *Bus) Subscribe(topic string, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	hs, ok := b.topics[topic]
	if !ok {
		hs = make(map[uint64]Handler)
		b.topics[topic] = hs
	}
	hs[id] = handler
	return Subscription{topic: topic, id: id}
}

// Unsubscribe removes a previously registered handler. Unsubscribing twice,
// or with a zero Subscription, is a no-op.
func (b *Bus) Unsubscribe(s Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	hs, ok := b.topics[s.topic]
	if !ok {
		return
	}
	delete(hs, s.id)
	if len(hs) == 0 {
		delete(b.topics, s.topic)
	}
}

// Publish delivers ev synchronously to every handler registered on exactly
// topic. No wildcard or prefix matching.
func (b *Bus) Publish(topic string, ev Event) {
	b.mu.Lock()
	hs := b.topics[topic]
	snapshot := make([]Handler, 0, len(hs))
	for _, h := range hs {
		snapshot = append(snapshot, h)
	}
	b.mu.Unlock()

	for _, h := range snapshot {
		h(ev)
	}
}

// PublishCall fans ev out to both scopes every call event is published under:
// the owning user's topic and the call's own topic.
func (b *Bus) PublishCall(ev Event) {
	b.Publish(UserTopic(ev.UserID), ev)
	b.Publish(CallTopic(ev.CallSid), ev)
}

// Listeners reports the number of handlers registered on topic.
func (b *Bus) Listeners(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.topics[topic])
}
