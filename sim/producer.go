package sim

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
)

const (
	defaultProductionCapacity = 2
	defaultProductionLeadTime = 3
)

// ProductionJob occupies one capacity slot from StartTick until
// CompleteTick, when it converts back into inventory and an
// acknowledgement to the requester.
type ProductionJob struct {
	Order        *Order
	StartTick    int64
	CompleteTick int64
}

// ProducerConfig groups construction parameters for a Producer.
type ProducerConfig struct {
	Capacity         int   // concurrent production slots
	LeadTime         int64 // ticks from start to completion of one job
	InitialInventory map[string]int
}

// Producer manufactures goods against a fixed concurrent capacity and lead
// time. Orders coverable from finished-goods inventory are acknowledged
// immediately; the rest queue FIFO for a free slot.
type Producer struct {
	actorCore

	capacity      int
	leadTime      int64
	finishedGoods map[string]int

	queue      *OrderQueue
	activeJobs map[string]*ProductionJob // order id -> job

	ordersReceived  int
	ordersCompleted int
	productionTicks int64
}

// NewProducer builds a Producer subscribed to the bus.
func NewProducer(id string, location *Point, bus *MessageBus, cfg ProducerConfig, sink PerformanceSink, logger *logrus.Logger) *Producer {
	if cfg.Capacity <= 0 {
		cfg.Capacity = defaultProductionCapacity
	}
	if cfg.LeadTime <= 0 {
		cfg.LeadTime = defaultProductionLeadTime
	}
	inv := make(map[string]int, len(cfg.InitialInventory))
	for pid, qty := range cfg.InitialInventory {
		inv[pid] = qty
	}
	p := &Producer{
		actorCore:     newActorCore(id, RoleProducer, location, bus, sink, logger),
		capacity:      cfg.Capacity,
		leadTime:      cfg.LeadTime,
		finishedGoods: inv,
		queue:         &OrderQueue{},
		activeJobs:    make(map[string]*ProductionJob),
	}
	bus.Subscribe(id, p.OnMessage)
	p.log.Infof("producer initialized with capacity %d, lead time %d ticks", cfg.Capacity, cfg.LeadTime)
	return p
}

// Advance retires jobs whose completion tick has arrived, then starts queued
// orders while spare capacity exists.
func (p *Producer) Advance(tick int64) error {
	p.retireCompletedJobs(tick)
	p.startQueuedOrders(tick)
	return nil
}

// OnMessage absorbs factory orders from distributors.
func (p *Producer) OnMessage(env *Envelope) error {
	switch env.Kind {
	case KindFactoryOrder:
		return p.handleFactoryOrder(env)
	default:
		p.log.Warnf("unknown message kind %s from %s", env.Kind, env.Sender)
		return nil
	}
}

func (p *Producer) handleFactoryOrder(env *Envelope) error {
	orderID, ok := env.Data.String("order_id")
	if !ok {
		return fmt.Errorf("factory order missing order_id")
	}
	productID, ok := env.Data.String("product_id")
	if !ok {
		return fmt.Errorf("factory order missing product_id")
	}
	quantity, ok := env.Data.Int("quantity")
	if !ok {
		return fmt.Errorf("factory order missing quantity")
	}
	requester, ok := env.Data.String("requester")
	if !ok {
		return fmt.Errorf("factory order missing requester")
	}
	order, err := NewOrder(orderID, productID, quantity, requester, env.SentAt)
	if err != nil {
		return fmt.Errorf("factory order rejected: %w", err)
	}
	p.ordersReceived++

	// Finished goods on hand satisfy the order without entering production.
	if p.finishedGoods[productID] >= quantity {
		p.fulfillFromInventory(order)
		return nil
	}
	p.queue.Enqueue(order)
	p.log.Infof("queued order %s for %d units of %s (queue length %d)", orderID, quantity, productID, p.queue.Len())
	return nil
}

func (p *Producer) fulfillFromInventory(order *Order) {
	p.finishedGoods[order.ProductID] -= order.Quantity
	p.acknowledge(order)
	p.ordersCompleted++
	p.log.Infof("fulfilled order %s from finished goods", order.ID)
}

// retireCompletedJobs ships due jobs straight to the requester. The produced
// units are never parked in finished goods: crediting them here and again at
// the distributor would double-count the stock.
func (p *Producer) retireCompletedJobs(tick int64) {
	for _, id := range p.sortedDueJobs(tick) {
		job := p.activeJobs[id]
		order := job.Order
		p.acknowledge(order)
		delete(p.activeJobs, id)
		p.ordersCompleted++
		p.productionTicks += job.CompleteTick - job.StartTick
		p.log.Infof("completed production of order %s at tick %d", id, tick)
	}
}

// startQueuedOrders pops the queue head into a free slot until capacity is
// exhausted or the queue empties.
func (p *Producer) startQueuedOrders(tick int64) {
	for len(p.activeJobs) < p.capacity && p.queue.Len() > 0 {
		order := p.queue.Dequeue()
		if err := order.Advance(StatusProcessing); err != nil {
			p.log.Errorf("order %s: %v", order.ID, err)
			continue
		}
		p.activeJobs[order.ID] = &ProductionJob{
			Order:        order,
			StartTick:    tick,
			CompleteTick: tick + p.leadTime,
		}
		p.log.Infof("started production of order %s, completion at tick %d", order.ID, tick+p.leadTime)
	}
}

func (p *Producer) acknowledge(order *Order) {
	p.send(order.Requester, KindProductionComplete, Payload{
		"order_id":   order.ID,
		"product_id": order.ProductID,
		"quantity":   order.Quantity,
	})
	if order.Status == StatusPending {
		if err := order.Advance(StatusProcessing); err != nil {
			p.log.Errorf("order %s: %v", order.ID, err)
			return
		}
	}
	if err := order.Advance(StatusDelivered); err != nil {
		p.log.Errorf("order %s: %v", order.ID, err)
	}
}

// sortedDueJobs returns ids of jobs due at or before tick, ordered by
// completion then id for deterministic retirement.
func (p *Producer) sortedDueJobs(tick int64) []string {
	var due []string
	for id, job := range p.activeJobs {
		if tick >= job.CompleteTick {
			due = append(due, id)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		a, b := p.activeJobs[due[i]], p.activeJobs[due[j]]
		if a.CompleteTick != b.CompleteTick {
			return a.CompleteTick < b.CompleteTick
		}
		return due[i] < due[j]
	})
	return due
}

// ActiveJobs reports how many capacity slots are occupied.
func (p *Producer) ActiveJobs() int {
	return len(p.activeJobs)
}

// QueueLen reports how many orders await a production slot.
func (p *Producer) QueueLen() int {
	return p.queue.Len()
}

// InventoryLevel reports finished goods on hand for a product.
func (p *Producer) InventoryLevel(productID string) int {
	return p.finishedGoods[productID]
}

// Snapshot exposes a diagnostic view for observers.
func (p *Producer) Snapshot() map[string]any {
	inv := make(map[string]int, len(p.finishedGoods))
	for pid, qty := range p.finishedGoods {
		inv[pid] = qty
	}
	return map[string]any{
		"finished_goods":       inv,
		"queue_length":         p.queue.Len(),
		"active_jobs":          len(p.activeJobs),
		"capacity":             p.capacity,
		"capacity_utilization": float64(len(p.activeJobs)) / float64(p.capacity),
		"orders_received":      p.ordersReceived,
		"orders_completed":     p.ordersCompleted,
	}
}
