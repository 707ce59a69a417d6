package sim

import (
	"github.com/sirupsen/logrus"
)

// DefaultMailboxSize bounds each recipient's mailbox. On overflow the oldest
// queued envelope is evicted (drop-oldest), which keeps memory bounded at the
// cost of losing the stalest message.
const DefaultMailboxSize = 100

// Handler consumes a single delivered envelope.
type Handler func(*Envelope) error

// MessageBus routes envelopes between actors through bounded per-recipient
// mailboxes. Delivery is pull-based: nothing is pushed into an actor; the
// scheduler drains each mailbox at the start of a tick. FIFO order is
// preserved per recipient and no envelope is delivered twice.
//
// Not safe for concurrent use; the scheduler owns it within a single tick.
type MessageBus struct {
	handlers  map[string]Handler
	mailboxes map[string][]*Envelope
	maxQueue  int
	clock     int64
	log       *logrus.Entry
}

// BusStats is a point-in-time snapshot of bus occupancy for observers.
type BusStats struct {
	Subscribers  int
	TotalQueued  int
	QueueSizes   map[string]int
	MaxQueueSize int
}

// NewMessageBus creates a bus with the given mailbox bound. A bound <= 0
// falls back to DefaultMailboxSize. A nil logger uses the standard logger.
func NewMessageBus(maxQueue int, logger *logrus.Logger) *MessageBus {
	if maxQueue <= 0 {
		maxQueue = DefaultMailboxSize
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &MessageBus{
		handlers:  make(map[string]Handler),
		mailboxes: make(map[string][]*Envelope),
		maxQueue:  maxQueue,
		log:       logger.WithField("component", "bus"),
	}
}

// Subscribe registers the handler invoked for envelopes drained for actorID.
// Re-subscribing replaces the previous handler; any queued envelopes remain.
func (b *MessageBus) Subscribe(actorID string, h Handler) {
	b.handlers[actorID] = h
	b.log.Debugf("subscribed %s", actorID)
}

// Unsubscribe removes the handler for actorID and discards its mailbox.
func (b *MessageBus) Unsubscribe(actorID string) {
	delete(b.handlers, actorID)
	delete(b.mailboxes, actorID)
	b.log.Debugf("unsubscribed %s", actorID)
}

// Publish enqueues the envelope on the recipient's mailbox. Publishing to a
// recipient that has not subscribed still enqueues: callers rely on fire and
// forget semantics toward peers that register later. When the mailbox is
// full, the oldest envelope is evicted to admit the new one.
func (b *MessageBus) Publish(env *Envelope) {
	if env == nil {
		return
	}
	q := b.mailboxes[env.Recipient]
	if len(q) >= b.maxQueue {
		dropped := q[0]
		q = q[1:]
		b.log.Warnf("mailbox overflow for %s: dropped oldest %s from %s", env.Recipient, dropped.Kind, dropped.Sender)
	}
	b.mailboxes[env.Recipient] = append(q, env)
	if _, ok := b.handlers[env.Recipient]; !ok {
		b.log.Debugf("queued %s for not-yet-subscribed recipient %s", env.Kind, env.Recipient)
	}
}

// Drain atomically returns and empties actorID's mailbox, in publish order.
// Not idempotent: a second consecutive call returns an empty batch.
func (b *MessageBus) Drain(actorID string) []*Envelope {
	batch := b.mailboxes[actorID]
	if len(batch) == 0 {
		return nil
	}
	delete(b.mailboxes, actorID)
	b.log.Debugf("delivering %d envelopes to %s", len(batch), actorID)
	return batch
}

// SetClock records the current simulation tick; publishes stamp envelopes
// with it. The scheduler advances it once per tick.
func (b *MessageBus) SetClock(tick int64) {
	b.clock = tick
}

// Clock returns the bus's view of the current simulation tick.
func (b *MessageBus) Clock() int64 {
	return b.clock
}

// HandlerFor returns the subscribed handler for actorID, if any.
func (b *MessageBus) HandlerFor(actorID string) (Handler, bool) {
	h, ok := b.handlers[actorID]
	return h, ok
}

// QueueLen reports the number of queued envelopes for actorID.
func (b *MessageBus) QueueLen(actorID string) int {
	return len(b.mailboxes[actorID])
}

// ClearAll discards every mailbox. Used on simulation stop/reset.
func (b *MessageBus) ClearAll() {
	b.mailboxes = make(map[string][]*Envelope)
	b.log.Info("all mailboxes cleared")
}

// Stats snapshots bus occupancy.
func (b *MessageBus) Stats() BusStats {
	sizes := make(map[string]int, len(b.mailboxes))
	total := 0
	for id, q := range b.mailboxes {
		sizes[id] = len(q)
		total += len(q)
	}
	return BusStats{
		Subscribers:  len(b.handlers),
		TotalQueued:  total,
		QueueSizes:   sizes,
		MaxQueueSize: b.maxQueue,
	}
}
