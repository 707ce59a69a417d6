package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// CarrierStatus names the carrier FSM states.
type CarrierStatus string

const (
	CarrierAvailable        CarrierStatus = "available"
	CarrierMovingToPickup   CarrierStatus = "moving_to_pickup"
	CarrierLoading          CarrierStatus = "loading"
	CarrierMovingToDelivery CarrierStatus = "moving_to_delivery"
	CarrierUnloading        CarrierStatus = "unloading"
)

// arrivalTolerance absorbs floating point drift when deciding whether the
// remaining distance has reached zero.
const arrivalTolerance = 0.01

const (
	defaultCarrierSpeed    = 10.0
	defaultCarrierCapacity = 100
)

// CarrierAssignment exists only while the carrier is not available; it is
// destroyed on delivery completion or reset.
type CarrierAssignment struct {
	OrderID      string
	ProductID    string
	Quantity     int
	PickupPoint  string
	DeliverPoint string
	RecipientID  string
	DispatcherID string
}

// CarrierConfig groups construction parameters for a Carrier.
type CarrierConfig struct {
	Speed    float64 // distance units per tick
	Capacity int     // max cargo units
}

// Carrier moves goods between points through the FSM
// available -> moving_to_pickup -> loading -> moving_to_delivery ->
// unloading -> available. Dispatch instructions are accepted only while
// available.
type Carrier struct {
	actorCore

	directory *Directory
	speed     float64
	capacity  int

	status         CarrierStatus
	currentPointID string
	originPointID  string // movement origin, kept for position interpolation
	destPointID    string

	cargo       map[string]int
	cargoWeight int
	assignment  *CarrierAssignment

	totalDistance     float64
	remainingDistance float64

	deliveriesCompleted int
	distanceTraveled    float64
	cargoDelivered      int
}

// NewCarrier builds a Carrier subscribed to the bus, parked at location.
func NewCarrier(id string, location *Point, bus *MessageBus, directory *Directory, cfg CarrierConfig, sink PerformanceSink, logger *logrus.Logger) *Carrier {
	if cfg.Speed <= 0 {
		cfg.Speed = defaultCarrierSpeed
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = defaultCarrierCapacity
	}
	c := &Carrier{
		actorCore:      newActorCore(id, RoleCarrier, location, bus, sink, logger),
		directory:      directory,
		speed:          cfg.Speed,
		capacity:       cfg.Capacity,
		status:         CarrierAvailable,
		currentPointID: location.ID,
		cargo:          make(map[string]int),
	}
	bus.Subscribe(id, c.OnMessage)
	c.log.Infof("carrier initialized at %s with speed %.1f, capacity %d", location.Name, cfg.Speed, cfg.Capacity)
	return c
}

// Advance drives the FSM one tick.
func (c *Carrier) Advance(tick int64) error {
	switch c.status {
	case CarrierMovingToPickup:
		c.moveTowardsDestination()
		if c.reachedDestination() {
			c.arriveAtPickup()
		}
	case CarrierLoading:
		c.completeLoading()
	case CarrierMovingToDelivery:
		c.moveTowardsDestination()
		if c.reachedDestination() {
			c.arriveAtDelivery()
		}
	case CarrierUnloading:
		c.completeUnloading()
	}
	return nil
}

// OnMessage absorbs dispatch instructions.
func (c *Carrier) OnMessage(env *Envelope) error {
	switch env.Kind {
	case KindDispatchOrder:
		return c.handleDispatch(env)
	default:
		c.log.Warnf("unknown message kind %s from %s", env.Kind, env.Sender)
		return nil
	}
}

func (c *Carrier) handleDispatch(env *Envelope) error {
	if c.status != CarrierAvailable {
		c.log.Warnf("dispatch refused: carrier busy (%s)", c.status)
		return nil
	}
	orderID, ok := env.Data.String("order_id")
	if !ok {
		return fmt.Errorf("dispatch missing order_id")
	}
	productID, ok := env.Data.String("product_id")
	if !ok {
		return fmt.Errorf("dispatch missing product_id")
	}
	quantity, ok := env.Data.Int("quantity")
	if !ok || quantity <= 0 {
		return fmt.Errorf("dispatch with invalid quantity")
	}
	pickup, ok := env.Data.String("pickup_location")
	if !ok {
		return fmt.Errorf("dispatch missing pickup_location")
	}
	delivery, ok := env.Data.String("delivery_location")
	if !ok {
		return fmt.Errorf("dispatch missing delivery_location")
	}
	recipient, ok := env.Data.String("recipient")
	if !ok {
		return fmt.Errorf("dispatch missing recipient")
	}
	// An over-capacity instruction is dropped without notifying the
	// dispatcher, which leaves the order parked in processing on its side.
	if quantity > c.capacity {
		c.log.Errorf("cannot take order %s: quantity %d exceeds capacity %d", orderID, quantity, c.capacity)
		return nil
	}

	c.assignment = &CarrierAssignment{
		OrderID:      orderID,
		ProductID:    productID,
		Quantity:     quantity,
		PickupPoint:  pickup,
		DeliverPoint: delivery,
		RecipientID:  recipient,
		DispatcherID: env.Sender,
	}
	c.log.Infof("accepted dispatch for order %s from %s", orderID, env.Sender)

	if c.currentPointID == pickup {
		c.arriveAtPickup()
	} else {
		c.startMovement(pickup, CarrierMovingToPickup)
	}
	return nil
}

// startMovement measures the leg and enters a movement state. An unknown
// endpoint aborts the assignment back to available.
func (c *Carrier) startMovement(destID string, status CarrierStatus) {
	dist, err := c.directory.Distance(c.currentPointID, destID)
	if err != nil {
		c.log.Errorf("cannot route to %s: %v", destID, err)
		c.resetToAvailable()
		return
	}
	c.originPointID = c.currentPointID
	c.destPointID = destID
	c.totalDistance = dist
	c.remainingDistance = dist
	c.status = status
	if c.reachedDestination() {
		if status == CarrierMovingToPickup {
			c.arriveAtPickup()
		} else {
			c.arriveAtDelivery()
		}
		return
	}
	c.log.Infof("moving to %s (distance %.1f)", destID, dist)
}

func (c *Carrier) moveTowardsDestination() {
	if c.totalDistance <= 0 {
		return
	}
	step := min(c.speed, c.remainingDistance)
	c.remainingDistance -= step
	c.distanceTraveled += step
	c.log.Debugf("moved %.1f units, %.1f remaining", step, c.remainingDistance)
}

func (c *Carrier) reachedDestination() bool {
	return c.remainingDistance <= arrivalTolerance
}

func (c *Carrier) arriveAtPickup() {
	if c.assignment == nil {
		c.log.Error("arrived at pickup with no assignment")
		c.resetToAvailable()
		return
	}
	c.currentPointID = c.assignment.PickupPoint
	c.settleAt(c.assignment.PickupPoint)
	c.status = CarrierLoading
	c.log.Infof("arrived at pickup %s", c.currentPointID)
}

// completeLoading credits cargo, tells the dispatcher pickup is done and
// heads for the delivery point.
func (c *Carrier) completeLoading() {
	if c.assignment == nil {
		c.log.Error("loading with no assignment")
		c.resetToAvailable()
		return
	}
	a := c.assignment
	c.cargo[a.ProductID] += a.Quantity
	c.cargoWeight += a.Quantity

	c.send(a.DispatcherID, KindPickupComplete, Payload{
		"order_id":   a.OrderID,
		"product_id": a.ProductID,
		"quantity":   a.Quantity,
	})
	c.log.Infof("loaded %d units of %s", a.Quantity, a.ProductID)

	if c.currentPointID == a.DeliverPoint {
		c.arriveAtDelivery()
	} else {
		c.startMovement(a.DeliverPoint, CarrierMovingToDelivery)
	}
}

func (c *Carrier) arriveAtDelivery() {
	if c.assignment == nil {
		c.log.Error("arrived at delivery with no assignment")
		c.resetToAvailable()
		return
	}
	c.currentPointID = c.assignment.DeliverPoint
	c.settleAt(c.assignment.DeliverPoint)
	c.status = CarrierUnloading
	c.log.Infof("arrived at delivery %s", c.currentPointID)
}

// completeUnloading debits cargo, notifies the dispatcher and the recipient,
// and resets unconditionally to available. A cargo mismatch is a logged
// error, never a blocking fault.
func (c *Carrier) completeUnloading() {
	if c.assignment == nil {
		c.log.Error("unloading with no assignment")
		c.resetToAvailable()
		return
	}
	a := c.assignment
	if c.cargo[a.ProductID] >= a.Quantity {
		c.cargo[a.ProductID] -= a.Quantity
		if c.cargo[a.ProductID] == 0 {
			delete(c.cargo, a.ProductID)
		}
		c.cargoWeight -= a.Quantity
		c.cargoDelivered += a.Quantity
		c.deliveriesCompleted++
	} else {
		c.log.Errorf("cannot unload %d units of %s: insufficient cargo", a.Quantity, a.ProductID)
	}

	c.send(a.DispatcherID, KindDeliveryComplete, Payload{
		"order_id":          a.OrderID,
		"product_id":        a.ProductID,
		"quantity":          a.Quantity,
		"delivery_location": a.DeliverPoint,
	})
	c.send(a.RecipientID, KindDeliveryNotification, Payload{
		"order_id":   a.OrderID,
		"product_id": a.ProductID,
		"quantity":   a.Quantity,
	})
	c.log.Infof("delivered %d units of %s to %s", a.Quantity, a.ProductID, a.RecipientID)

	dispatcher := a.DispatcherID
	c.resetToAvailable()
	c.send(dispatcher, KindTruckAvailable, Payload{})
}

func (c *Carrier) resetToAvailable() {
	c.status = CarrierAvailable
	c.assignment = nil
	c.originPointID = ""
	c.destPointID = ""
	c.totalDistance = 0
	c.remainingDistance = 0
	c.log.Info("carrier available")
}

// settleAt re-anchors the carrier's location object after arriving.
func (c *Carrier) settleAt(pointID string) {
	c.destPointID = ""
	c.remainingDistance = 0
	if p, ok := c.directory.Get(pointID); ok {
		c.location = p
	}
}

// movementProgress reports the fraction of the current leg already covered.
func (c *Carrier) movementProgress() float64 {
	if c.totalDistance <= 0 {
		return 1.0
	}
	return 1.0 - c.remainingDistance/c.totalDistance
}

// InterpolatedPosition returns the carrier's map position, linearly
// interpolated along the current leg for observers that animate movement.
func (c *Carrier) InterpolatedPosition() (x, y float64, moving bool) {
	if c.status == CarrierMovingToPickup || c.status == CarrierMovingToDelivery {
		origin, okA := c.directory.Get(c.originPointID)
		dest, okB := c.directory.Get(c.destPointID)
		if okA && okB {
			progress := c.movementProgress()
			return origin.X + (dest.X-origin.X)*progress, origin.Y + (dest.Y-origin.Y)*progress, true
		}
	}
	if p, ok := c.directory.Get(c.currentPointID); ok {
		return p.X, p.Y, false
	}
	return c.location.X, c.location.Y, false
}

// Status reports the current FSM state.
func (c *Carrier) Status() CarrierStatus {
	return c.status
}

// IsAvailable reports whether the carrier can take a new assignment.
func (c *Carrier) IsAvailable() bool {
	return c.status == CarrierAvailable
}

// CargoWeight reports total units on board.
func (c *Carrier) CargoWeight() int {
	return c.cargoWeight
}

// RemainingDistance reports the distance left on the current leg.
func (c *Carrier) RemainingDistance() float64 {
	return c.remainingDistance
}

// Snapshot exposes a diagnostic view for observers.
func (c *Carrier) Snapshot() map[string]any {
	cargo := make(map[string]int, len(c.cargo))
	for pid, qty := range c.cargo {
		cargo[pid] = qty
	}
	x, y, moving := c.InterpolatedPosition()
	snap := map[string]any{
		"status":               string(c.status),
		"current_point":        c.currentPointID,
		"destination_point":    c.destPointID,
		"cargo":                cargo,
		"cargo_weight":         c.cargoWeight,
		"capacity":             c.capacity,
		"remaining_distance":   c.remainingDistance,
		"movement_progress":    c.movementProgress(),
		"deliveries_completed": c.deliveriesCompleted,
		"distance_traveled":    c.distanceTraveled,
		"cargo_delivered":      c.cargoDelivered,
		"position_x":           x,
		"position_y":           y,
		"is_moving":            moving,
	}
	if c.assignment != nil {
		snap["order_id"] = c.assignment.OrderID
	}
	return snap
}
