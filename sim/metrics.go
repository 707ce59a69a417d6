// Aggregates sale, stockout and storage-cost events reported by actors
// for end-of-run evaluation of the supply network.

package sim

import "fmt"

// PerformanceSink receives business events from actors. The core only calls
// into it and never reads it back, so implementations may aggregate, stream
// or discard as they see fit.
type PerformanceSink interface {
	RecordSale(actorID, productID string, quantity int, unitPrice float64)
	RecordStockout(actorID, productID string, quantity int, lostRevenue float64)
	RecordStorageCost(actorID, productID string, quantity int, costPerUnit float64)
}

// NopSink discards every event. Actors constructed without an explicit sink
// default to it.
type NopSink struct{}

func (NopSink) RecordSale(string, string, int, float64)        {}
func (NopSink) RecordStockout(string, string, int, float64)    {}
func (NopSink) RecordStorageCost(string, string, int, float64) {}

// SaleEvent is one recorded sale.
type SaleEvent struct {
	ActorID   string
	ProductID string
	Quantity  int
	UnitPrice float64
	Revenue   float64
}

// StockoutEvent is one recorded lost sale.
type StockoutEvent struct {
	ActorID   string
	ProductID string
	Quantity  int
	LostValue float64
}

// Tracker is the default PerformanceSink: it aggregates totals and keeps
// per-actor breakdowns plus raw event logs.
type Tracker struct {
	TotalRevenue      float64
	TotalStorageCosts float64
	TotalLostSales    float64
	OrdersFulfilled   int
	OrdersLost        int

	ActorRevenues     map[string]float64
	ActorStorageCosts map[string]float64

	Sales     []SaleEvent
	Stockouts []StockoutEvent
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		ActorRevenues:     make(map[string]float64),
		ActorStorageCosts: make(map[string]float64),
	}
}

// RecordSale records a successful sale. Non-positive quantities and negative
// prices are ignored rather than corrupting the totals.
func (t *Tracker) RecordSale(actorID, productID string, quantity int, unitPrice float64) {
	if quantity <= 0 || unitPrice < 0 {
		return
	}
	revenue := float64(quantity) * unitPrice
	t.TotalRevenue += revenue
	t.OrdersFulfilled++
	t.ActorRevenues[actorID] += revenue
	t.Sales = append(t.Sales, SaleEvent{
		ActorID:   actorID,
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		Revenue:   revenue,
	})
}

// RecordStockout records a lost sale.
func (t *Tracker) RecordStockout(actorID, productID string, quantity int, lostRevenue float64) {
	if quantity <= 0 || lostRevenue < 0 {
		return
	}
	t.TotalLostSales += lostRevenue
	t.OrdersLost++
	t.Stockouts = append(t.Stockouts, StockoutEvent{
		ActorID:   actorID,
		ProductID: productID,
		Quantity:  quantity,
		LostValue: lostRevenue,
	})
}

// RecordStorageCost records the per-tick holding cost of stored inventory.
func (t *Tracker) RecordStorageCost(actorID, productID string, quantity int, costPerUnit float64) {
	if quantity < 0 || costPerUnit < 0 {
		return
	}
	cost := float64(quantity) * costPerUnit
	t.TotalStorageCosts += cost
	t.ActorStorageCosts[actorID] += cost
}

// NetProfit returns revenue minus storage costs.
func (t *Tracker) NetProfit() float64 {
	return t.TotalRevenue - t.TotalStorageCosts
}

// FulfillmentRate returns the share of demand met, as a percentage.
// An idle run with no demand counts as fully fulfilled.
func (t *Tracker) FulfillmentRate() float64 {
	total := t.OrdersFulfilled + t.OrdersLost
	if total == 0 {
		return 100.0
	}
	return float64(t.OrdersFulfilled) / float64(total) * 100.0
}

// EfficiencyScore combines fulfillment rate and profit margin into a single
// 0-100 score, weighting fulfillment 0.6 and normalized margin 0.4.
func (t *Tracker) EfficiencyScore() float64 {
	if t.TotalRevenue == 0 {
		return 0
	}
	margin := t.NetProfit() / t.TotalRevenue * 100
	normalized := min(max(margin, 0), 50) * 2
	return 0.6*t.FulfillmentRate() + 0.4*normalized
}

// Print displays aggregated metrics at the end of the simulation.
func (t *Tracker) Print(ticks int64) {
	fmt.Println("=== Simulation Metrics ===")
	fmt.Printf("Ticks Simulated      : %d\n", ticks)
	fmt.Printf("Total Revenue        : $%.2f\n", t.TotalRevenue)
	fmt.Printf("Storage Costs        : $%.2f\n", t.TotalStorageCosts)
	fmt.Printf("Lost Sales Value     : $%.2f\n", t.TotalLostSales)
	fmt.Printf("Net Profit           : $%.2f\n", t.NetProfit())
	fmt.Printf("Fulfillment Rate     : %.1f%%\n", t.FulfillmentRate())
	fmt.Printf("Efficiency Score     : %.1f\n", t.EfficiencyScore())
	fmt.Printf("Sales / Stockouts    : %d / %d\n", t.OrdersFulfilled, t.OrdersLost)
}
