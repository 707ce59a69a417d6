package sim

import (
	"github.com/sirupsen/logrus"
)

// Role tags the closed set of actor variants.
type Role string

const (
	RoleRetailer     Role = "retailer"
	RoleDistributor  Role = "distributor"
	RoleProducer     Role = "producer"
	RoleCarrier      Role = "carrier"
	RoleDemandSource Role = "demand_source"
)

// Actor is the capability interface every role variant implements: advance
// one tick, absorb one message. Snapshot exposes a read-only diagnostic view
// for external observers; it is never the source of truth for logic.
type Actor interface {
	ID() string
	Role() Role
	Active() bool
	Deactivate()
	Advance(tick int64) error
	OnMessage(env *Envelope) error
	Snapshot() map[string]any
}

// actorCore carries the state and plumbing shared by all role variants:
// identity, position, bus access, activity flag and a scoped logger.
// Role structs embed it and implement the rest of the Actor interface.
type actorCore struct {
	id       string
	role     Role
	location *Point
	bus      *MessageBus
	sink     PerformanceSink
	log      *logrus.Entry
	active   bool
}

func newActorCore(id string, role Role, location *Point, bus *MessageBus, sink PerformanceSink, logger *logrus.Logger) actorCore {
	if sink == nil {
		sink = NopSink{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return actorCore{
		id:       id,
		role:     role,
		location: location,
		bus:      bus,
		sink:     sink,
		log:      logger.WithFields(logrus.Fields{"actor": id, "role": string(role)}),
		active:   true,
	}
}

func (c *actorCore) ID() string   { return c.id }
func (c *actorCore) Role() Role   { return c.role }
func (c *actorCore) Active() bool { return c.active }

// Deactivate removes the actor from participation and drops its mailbox.
func (c *actorCore) Deactivate() {
	c.active = false
	c.bus.Unsubscribe(c.id)
	c.log.Info("actor deactivated")
}

// Location returns the point the actor is anchored at.
func (c *actorCore) Location() *Point { return c.location }

// send publishes a fire-and-forget envelope to another actor. Construction
// errors indicate a caller bug and are logged, never propagated.
func (c *actorCore) send(recipient, kind string, data Payload) {
	env, err := NewEnvelope(c.id, recipient, kind, data, c.bus.Clock())
	if err != nil {
		c.log.Errorf("dropping malformed outgoing %s to %s: %v", kind, recipient, err)
		return
	}
	c.bus.Publish(env)
	c.log.Debugf("sent %s to %s", kind, recipient)
}
