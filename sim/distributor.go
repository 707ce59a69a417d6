package sim

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	defaultDistributorThreshold  = 20
	defaultDistributorReorderQty = 100
)

// DistributorConfig groups construction parameters for a Distributor.
type DistributorConfig struct {
	InitialInventory map[string]int
	ReorderThreshold int
	ReorderQuantity  int
	ProducerID       string   // single replenishment target (documented simplification)
	CarrierIDs       []string // carrier pool managed by this distributor
	Catalog          map[string]*Product
}

// Distributor fulfills retailer orders from its own stock by dispatching
// carriers, replenishes from a producer, and mediates completion
// notifications between carriers and retailers.
type Distributor struct {
	actorCore

	inventory        map[string]int
	reorderThreshold int
	reorderQuantity  int
	producerID       string
	catalog          map[string]*Product

	pendingOrders    map[string]*Order // incoming retailer orders, not yet resolved
	processingOrders map[string]*Order // dispatched, awaiting delivery
	factoryOrders    map[string]*Order // outstanding orders to the producer

	availableCarriers []string          // FIFO pool
	assignedCarriers  map[string]string // carrier id -> order id

	ordersProcessed int
	ordersFulfilled int
	ordersRejected  int
}

// NewDistributor builds a Distributor subscribed to the bus.
func NewDistributor(id string, location *Point, bus *MessageBus, cfg DistributorConfig, sink PerformanceSink, logger *logrus.Logger) *Distributor {
	if cfg.ReorderThreshold <= 0 {
		cfg.ReorderThreshold = defaultDistributorThreshold
	}
	if cfg.ReorderQuantity <= 0 {
		cfg.ReorderQuantity = defaultDistributorReorderQty
	}
	inv := make(map[string]int, len(cfg.InitialInventory))
	for pid, qty := range cfg.InitialInventory {
		inv[pid] = qty
	}
	d := &Distributor{
		actorCore:         newActorCore(id, RoleDistributor, location, bus, sink, logger),
		inventory:         inv,
		reorderThreshold:  cfg.ReorderThreshold,
		reorderQuantity:   cfg.ReorderQuantity,
		producerID:        cfg.ProducerID,
		catalog:           cfg.Catalog,
		pendingOrders:     make(map[string]*Order),
		processingOrders:  make(map[string]*Order),
		factoryOrders:     make(map[string]*Order),
		availableCarriers: append([]string(nil), cfg.CarrierIDs...),
		assignedCarriers:  make(map[string]string),
	}
	bus.Subscribe(id, d.OnMessage)
	d.log.Infof("distributor initialized with inventory %v, carriers %v", inv, d.availableCarriers)
	return d
}

// Advance runs one tick: replenish from the producer if low, then try to
// resolve every pending retailer order, then charge storage on remaining
// stock.
func (d *Distributor) Advance(tick int64) error {
	d.checkAndReorderFromProducer(tick)
	d.processPendingOrders()
	d.chargeStorage()
	return nil
}

// OnMessage absorbs retailer orders, carrier notifications and producer
// completions.
func (d *Distributor) OnMessage(env *Envelope) error {
	switch env.Kind {
	case KindOrderRequest:
		return d.handleOrderRequest(env)
	case KindDeliveryComplete:
		return d.handleDeliveryComplete(env)
	case KindPickupComplete:
		d.log.Debugf("carrier %s picked up order", env.Sender)
		return nil
	case KindProductionComplete:
		return d.handleProductionComplete(env)
	case KindTruckAvailable:
		d.releaseCarrier(env.Sender)
		return nil
	default:
		d.log.Warnf("unknown message kind %s from %s", env.Kind, env.Sender)
		return nil
	}
}

func (d *Distributor) handleOrderRequest(env *Envelope) error {
	orderID, ok := env.Data.String("order_id")
	if !ok {
		return fmt.Errorf("order request missing order_id")
	}
	productID, ok := env.Data.String("product_id")
	if !ok {
		return fmt.Errorf("order request missing product_id")
	}
	quantity, ok := env.Data.Int("quantity")
	if !ok {
		return fmt.Errorf("order request missing quantity")
	}
	requester, ok := env.Data.String("requester")
	if !ok {
		return fmt.Errorf("order request missing requester")
	}
	deliveryLoc, ok := env.Data.String("delivery_location")
	if !ok {
		return fmt.Errorf("order request missing delivery_location")
	}
	order, err := NewOrder(orderID, productID, quantity, requester, env.SentAt)
	if err != nil {
		return fmt.Errorf("order request rejected: %w", err)
	}
	order.DeliveryPoint = deliveryLoc
	d.pendingOrders[orderID] = order
	d.ordersProcessed++
	d.log.Infof("received order %s for %d units of %s from %s", orderID, quantity, productID, requester)
	return nil
}

// processPendingOrders resolves each pending retailer order. Insufficient
// inventory rejects the order outright; a covered order waits for a carrier
// if none is free. Rejection and wait-for-capacity are distinct outcomes.
func (d *Distributor) processPendingOrders() {
	for _, order := range d.sortedPending() {
		available := d.inventory[order.ProductID]
		if available < order.Quantity {
			d.rejectOrder(order, available)
			delete(d.pendingOrders, order.ID)
			d.ordersRejected++
			continue
		}
		if !d.dispatchCarrier(order) {
			continue // stays pending until a carrier frees up
		}
		d.inventory[order.ProductID] = available - order.Quantity
		if err := order.Advance(StatusProcessing); err != nil {
			d.log.Errorf("order %s: %v", order.ID, err)
			continue
		}
		d.processingOrders[order.ID] = order
		delete(d.pendingOrders, order.ID)
		d.ordersFulfilled++
	}
}

// dispatchCarrier pops the first free carrier and hands it the order.
func (d *Distributor) dispatchCarrier(order *Order) bool {
	if len(d.availableCarriers) == 0 {
		d.log.Warnf("no carrier available for order %s", order.ID)
		return false
	}
	carrierID := d.availableCarriers[0]
	d.availableCarriers = d.availableCarriers[1:]
	d.assignedCarriers[carrierID] = order.ID

	d.send(carrierID, KindDispatchOrder, Payload{
		"order_id":          order.ID,
		"product_id":        order.ProductID,
		"quantity":          order.Quantity,
		"pickup_location":   d.location.ID,
		"delivery_location": order.DeliveryPoint,
		"recipient":         order.Requester,
	})
	d.log.Infof("dispatched carrier %s for order %s", carrierID, order.ID)
	return true
}

func (d *Distributor) rejectOrder(order *Order, available int) {
	d.send(order.Requester, KindOrderRejected, Payload{
		"order_id": order.ID,
		"reason":   fmt.Sprintf("insufficient inventory: available %d, requested %d", available, order.Quantity),
	})
	if err := order.Advance(StatusCancelled); err != nil {
		d.log.Errorf("order %s: %v", order.ID, err)
	}
	d.log.Warnf("rejected order %s: insufficient inventory", order.ID)
}

func (d *Distributor) handleDeliveryComplete(env *Envelope) error {
	orderID, ok := env.Data.String("order_id")
	if !ok {
		return fmt.Errorf("delivery complete missing order_id")
	}
	// The carrier comes back to the pool even when the order is unknown.
	d.releaseCarrier(env.Sender)

	order, known := d.processingOrders[orderID]
	if !known {
		d.log.Warnf("delivery complete for unknown order %s", orderID)
		return nil
	}
	if err := order.Advance(StatusDelivered); err != nil {
		return err
	}
	d.send(order.Requester, KindDeliveryNotification, Payload{
		"order_id":   order.ID,
		"product_id": order.ProductID,
		"quantity":   order.Quantity,
	})
	delete(d.processingOrders, orderID)
	d.log.Infof("completed delivery for order %s", orderID)
	return nil
}

func (d *Distributor) handleProductionComplete(env *Envelope) error {
	orderID, ok := env.Data.String("order_id")
	if !ok {
		return fmt.Errorf("production complete missing order_id")
	}
	productID, ok := env.Data.String("product_id")
	if !ok {
		return fmt.Errorf("production complete missing product_id")
	}
	quantity, ok := env.Data.Int("quantity")
	if !ok || quantity <= 0 {
		return fmt.Errorf("production complete with invalid quantity")
	}
	order, known := d.factoryOrders[orderID]
	if !known {
		d.log.Warnf("production complete for unknown order %s", orderID)
		return nil
	}
	d.inventory[productID] += quantity
	if order.Status == StatusPending {
		if err := order.Advance(StatusProcessing); err != nil {
			return err
		}
	}
	if err := order.Advance(StatusDelivered); err != nil {
		return err
	}
	delete(d.factoryOrders, orderID)
	d.log.Infof("received production of %d units of %s for order %s", quantity, productID, orderID)
	return nil
}

// releaseCarrier returns a carrier to the available pool, once.
func (d *Distributor) releaseCarrier(carrierID string) {
	delete(d.assignedCarriers, carrierID)
	for _, id := range d.availableCarriers {
		if id == carrierID {
			return
		}
	}
	d.availableCarriers = append(d.availableCarriers, carrierID)
	d.log.Debugf("carrier %s is available", carrierID)
}

// checkAndReorderFromProducer issues a factory order per low product unless
// one is already outstanding.
func (d *Distributor) checkAndReorderFromProducer(tick int64) {
	for _, pid := range d.sortedInventory() {
		if d.inventory[pid] > d.reorderThreshold {
			continue
		}
		if d.hasFactoryOrderFor(pid) {
			continue
		}
		d.placeFactoryOrder(pid, d.reorderQuantity, tick)
	}
}

func (d *Distributor) hasFactoryOrderFor(productID string) bool {
	for _, o := range d.factoryOrders {
		if o.ProductID == productID && o.Status == StatusPending {
			return true
		}
	}
	return false
}

func (d *Distributor) placeFactoryOrder(productID string, quantity int, tick int64) {
	orderID := fmt.Sprintf("%s-factory-%s", d.id, uuid.NewString()[:8])
	order, err := NewOrder(orderID, productID, quantity, d.id, tick)
	if err != nil {
		d.log.Errorf("refusing to place factory order: %v", err)
		return
	}
	d.factoryOrders[orderID] = order
	d.send(d.producerID, KindFactoryOrder, Payload{
		"order_id":   orderID,
		"product_id": productID,
		"quantity":   quantity,
		"requester":  d.id,
	})
	d.log.Infof("placed factory order %s for %d units of %s", orderID, quantity, productID)
}

func (d *Distributor) chargeStorage() {
	for _, pid := range d.sortedInventory() {
		if qty := d.inventory[pid]; qty > 0 {
			d.sink.RecordStorageCost(d.id, pid, qty, d.storageCost(pid))
		}
	}
}

func (d *Distributor) storageCost(productID string) float64 {
	if p, ok := d.catalog[productID]; ok {
		return p.StorageCost / 2 // bulk storage runs cheaper than retail shelves
	}
	return defaultDepotStorageCost
}

func (d *Distributor) sortedInventory() []string {
	ids := make([]string, 0, len(d.inventory))
	for pid := range d.inventory {
		ids = append(ids, pid)
	}
	sort.Strings(ids)
	return ids
}

// sortedPending returns pending orders oldest first, with requester and
// product as tiebreaks, so a tick resolves them deterministically. Order ids
// carry a random component and must not influence the ordering.
func (d *Distributor) sortedPending() []*Order {
	orders := make([]*Order, 0, len(d.pendingOrders))
	for _, o := range d.pendingOrders {
		orders = append(orders, o)
	}
	sort.Slice(orders, func(i, j int) bool {
		a, b := orders[i], orders[j]
		if a.CreatedAt != b.CreatedAt {
			return a.CreatedAt < b.CreatedAt
		}
		if a.Requester != b.Requester {
			return a.Requester < b.Requester
		}
		return a.ProductID < b.ProductID
	})
	return orders
}

// InventoryLevel reports on-hand stock for a product.
func (d *Distributor) InventoryLevel(productID string) int {
	return d.inventory[productID]
}

// AvailableCarriers reports how many carriers are free.
func (d *Distributor) AvailableCarriers() int {
	return len(d.availableCarriers)
}

// ProcessingOrder looks up a dispatched-but-undelivered order by id.
func (d *Distributor) ProcessingOrder(orderID string) (*Order, bool) {
	o, ok := d.processingOrders[orderID]
	return o, ok
}

// PendingOrder looks up an unresolved incoming order by id.
func (d *Distributor) PendingOrder(orderID string) (*Order, bool) {
	o, ok := d.pendingOrders[orderID]
	return o, ok
}

// OutstandingFactoryOrders reports open orders to the producer.
func (d *Distributor) OutstandingFactoryOrders() int {
	return len(d.factoryOrders)
}

// Snapshot exposes a diagnostic view for observers.
func (d *Distributor) Snapshot() map[string]any {
	inv := make(map[string]int, len(d.inventory))
	for pid, qty := range d.inventory {
		inv[pid] = qty
	}
	return map[string]any{
		"inventory":          inv,
		"pending_orders":     len(d.pendingOrders),
		"processing_orders":  len(d.processingOrders),
		"factory_orders":     len(d.factoryOrders),
		"available_carriers": len(d.availableCarriers),
		"assigned_carriers":  len(d.assignedCarriers),
		"orders_processed":   d.ordersProcessed,
		"orders_fulfilled":   d.ordersFulfilled,
		"orders_rejected":    d.ordersRejected,
	}
}
