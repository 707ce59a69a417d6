package sim

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Fallbacks when a product is not in the catalog.
const (
	defaultUnitPrice          = 10.0
	defaultRetailStorageCost  = 0.10
	defaultDepotStorageCost   = 0.05
	defaultRetailerThreshold  = 10
	defaultRetailerReorderQty = 50
)

// RetailerConfig groups construction parameters for a Retailer.
type RetailerConfig struct {
	InitialInventory map[string]int
	ReorderThreshold int // at or below triggers replenishment
	ReorderQuantity  int
	DistributorID    string // replenishment target
	Catalog          map[string]*Product
}

// Retailer sells stock to simulated customers, reorders from a distributor
// when inventory runs low, and reports sales, stockouts and storage costs to
// the performance sink.
type Retailer struct {
	actorCore

	inventory        map[string]int
	reorderThreshold int
	reorderQuantity  int
	distributorID    string
	catalog          map[string]*Product

	demandRate    float64
	pendingOrders map[string]*Order

	salesRevenue float64
	lostSales    int

	rng *rand.Rand
}

// NewRetailer builds a Retailer subscribed to the bus.
func NewRetailer(id string, location *Point, bus *MessageBus, cfg RetailerConfig, sink PerformanceSink, rng *rand.Rand, logger *logrus.Logger) *Retailer {
	if cfg.ReorderThreshold <= 0 {
		cfg.ReorderThreshold = defaultRetailerThreshold
	}
	if cfg.ReorderQuantity <= 0 {
		cfg.ReorderQuantity = defaultRetailerReorderQty
	}
	inv := make(map[string]int, len(cfg.InitialInventory))
	for pid, qty := range cfg.InitialInventory {
		inv[pid] = qty
	}
	r := &Retailer{
		actorCore:        newActorCore(id, RoleRetailer, location, bus, sink, logger),
		inventory:        inv,
		reorderThreshold: cfg.ReorderThreshold,
		reorderQuantity:  cfg.ReorderQuantity,
		distributorID:    cfg.DistributorID,
		catalog:          cfg.Catalog,
		demandRate:       1.0,
		pendingOrders:    make(map[string]*Order),
		rng:              rng,
	}
	bus.Subscribe(id, r.OnMessage)
	r.log.Infof("retailer initialized with inventory %v", inv)
	return r
}

// Advance simulates one tick: customer demand against current stock, then
// replenishment for any product at or below threshold, then storage cost on
// what remains. Mailbox draining is the scheduler's job, not ours.
func (r *Retailer) Advance(tick int64) error {
	r.serveCustomers()
	r.checkAndReorder(tick)
	r.chargeStorage()
	return nil
}

// OnMessage absorbs deliveries, demand updates and rejections.
func (r *Retailer) OnMessage(env *Envelope) error {
	switch env.Kind {
	case KindDeliveryNotification:
		return r.handleDelivery(env)
	case KindDemandUpdate:
		return r.handleDemandUpdate(env)
	case KindOrderRejected:
		return r.handleRejection(env)
	default:
		r.log.Warnf("unknown message kind %s from %s", env.Kind, env.Sender)
		return nil
	}
}

// serveCustomers draws stochastic demand per product and sells against
// on-hand inventory. Unmet demand is a stockout, not a backorder.
func (r *Retailer) serveCustomers() {
	for _, pid := range r.sortedProducts() {
		demand := int(r.demandRate + (r.rng.Float64() - 0.5))
		if demand <= 0 {
			continue
		}
		available := r.inventory[pid]
		sold := min(demand, available)
		lost := demand - sold

		if sold > 0 {
			r.inventory[pid] = available - sold
			price := r.unitPrice(pid)
			r.salesRevenue += float64(sold) * price
			r.sink.RecordSale(r.id, pid, sold, price)
			r.log.Debugf("sold %d units of %s", sold, pid)
		}
		if lost > 0 {
			r.lostSales += lost
			r.sink.RecordStockout(r.id, pid, lost, float64(lost)*r.unitPrice(pid))
			r.log.Warnf("lost %d sales of %s to stockout", lost, pid)
		}
	}
}

// checkAndReorder issues one replenishment order per low product, skipping
// products that already have a pending order in flight.
func (r *Retailer) checkAndReorder(tick int64) {
	for _, pid := range r.sortedProducts() {
		if r.inventory[pid] > r.reorderThreshold {
			continue
		}
		if r.hasPendingOrderFor(pid) {
			continue
		}
		r.placeOrder(pid, r.reorderQuantity, tick)
	}
}

func (r *Retailer) hasPendingOrderFor(productID string) bool {
	for _, o := range r.pendingOrders {
		if o.ProductID == productID && o.Status == StatusPending {
			return true
		}
	}
	return false
}

func (r *Retailer) placeOrder(productID string, quantity int, tick int64) {
	orderID := fmt.Sprintf("%s-order-%s", r.id, uuid.NewString()[:8])
	order, err := NewOrder(orderID, productID, quantity, r.id, tick)
	if err != nil {
		r.log.Errorf("refusing to place order: %v", err)
		return
	}
	r.pendingOrders[orderID] = order
	r.send(r.distributorID, KindOrderRequest, Payload{
		"order_id":          orderID,
		"product_id":        productID,
		"quantity":          quantity,
		"requester":         r.id,
		"delivery_location": r.location.ID,
	})
	r.log.Infof("placed order %s for %d units of %s to %s", orderID, quantity, productID, r.distributorID)
}

func (r *Retailer) chargeStorage() {
	for _, pid := range r.sortedProducts() {
		if qty := r.inventory[pid]; qty > 0 {
			r.sink.RecordStorageCost(r.id, pid, qty, r.storageCost(pid))
		}
	}
}

func (r *Retailer) handleDelivery(env *Envelope) error {
	orderID, ok := env.Data.String("order_id")
	if !ok {
		return fmt.Errorf("delivery notification missing order_id")
	}
	productID, ok := env.Data.String("product_id")
	if !ok {
		return fmt.Errorf("delivery notification missing product_id")
	}
	quantity, ok := env.Data.Int("quantity")
	if !ok || quantity <= 0 {
		return fmt.Errorf("delivery notification with invalid quantity")
	}
	order, known := r.pendingOrders[orderID]
	if !known {
		r.log.Warnf("delivery for unknown order %s", orderID)
		return nil
	}
	if order.Terminal() {
		r.log.Warnf("duplicate delivery for order %s ignored", orderID)
		return nil
	}
	r.inventory[productID] += quantity
	// A delivery implies the distributor processed the order; walk the
	// status through processing so the lattice is never skipped.
	if order.Status == StatusPending {
		if err := order.Advance(StatusProcessing); err != nil {
			return err
		}
	}
	if err := order.Advance(StatusDelivered); err != nil {
		return err
	}
	r.log.Infof("received delivery of %d units of %s for order %s", quantity, productID, orderID)
	return nil
}

func (r *Retailer) handleDemandUpdate(env *Envelope) error {
	rate, ok := env.Data.Float("demand_rate")
	if !ok {
		return fmt.Errorf("demand update missing demand_rate")
	}
	r.demandRate = max(0, rate)
	r.log.Infof("demand rate updated to %.2f", r.demandRate)
	return nil
}

func (r *Retailer) handleRejection(env *Envelope) error {
	orderID, ok := env.Data.String("order_id")
	if !ok {
		return fmt.Errorf("rejection missing order_id")
	}
	reason, _ := env.Data.String("reason")
	order, known := r.pendingOrders[orderID]
	if !known {
		r.log.Warnf("rejection for unknown order %s", orderID)
		return nil
	}
	if err := order.Advance(StatusCancelled); err != nil {
		return err
	}
	r.log.Warnf("order %s rejected: %s", orderID, reason)
	return nil
}

func (r *Retailer) sortedProducts() []string {
	ids := make([]string, 0, len(r.inventory))
	for pid := range r.inventory {
		ids = append(ids, pid)
	}
	sort.Strings(ids)
	return ids
}

func (r *Retailer) unitPrice(productID string) float64 {
	if p, ok := r.catalog[productID]; ok {
		return p.UnitCost
	}
	return defaultUnitPrice
}

func (r *Retailer) storageCost(productID string) float64 {
	if p, ok := r.catalog[productID]; ok {
		return p.StorageCost
	}
	return defaultRetailStorageCost
}

// InventoryLevel reports on-hand stock for a product.
func (r *Retailer) InventoryLevel(productID string) int {
	return r.inventory[productID]
}

// DemandRate reports the current per-tick customer demand rate.
func (r *Retailer) DemandRate() float64 {
	return r.demandRate
}

// PendingOrder looks up an outstanding replenishment order by id.
func (r *Retailer) PendingOrder(orderID string) (*Order, bool) {
	o, ok := r.pendingOrders[orderID]
	return o, ok
}

// Snapshot exposes a diagnostic view for observers.
func (r *Retailer) Snapshot() map[string]any {
	inv := make(map[string]int, len(r.inventory))
	total := 0
	for pid, qty := range r.inventory {
		inv[pid] = qty
		total += qty
	}
	pending := 0
	for _, o := range r.pendingOrders {
		if o.Status == StatusPending {
			pending++
		}
	}
	return map[string]any{
		"inventory":       inv,
		"total_inventory": total,
		"pending_orders":  pending,
		"demand_rate":     r.demandRate,
		"sales_revenue":   r.salesRevenue,
		"lost_sales":      r.lostSales,
	}
}
