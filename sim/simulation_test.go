package sim

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipeline wires a minimal network: one producer, one distributor with one
// carrier, one retailer, all driven by a real scheduler. The store sits 25
// units from the warehouse so a delivery leg takes three movement ticks.
type pipeline struct {
	bus         *MessageBus
	scheduler   *Scheduler
	retailer    *Retailer
	distributor *Distributor
	producer    *Producer
	carrier     *Carrier
}

func newPipeline(t *testing.T, retailStock, depotStock, factoryStock int) *pipeline {
	t.Helper()
	bus := NewMessageBus(0, nil)
	dir := NewDirectory()

	factory := mustPoint(t, "factory_1", "Factory", 50, 0, CategoryProducer)
	warehouse := mustPoint(t, "warehouse_1", "Warehouse", 0, 0, CategoryDistributor)
	store := mustPoint(t, "store_1", "Store", 25, 0, CategoryRetailer)
	for _, p := range []*Point{factory, warehouse, store} {
		require.NoError(t, dir.Add(p))
	}

	producer := NewProducer("factory_1", factory, bus, ProducerConfig{
		Capacity:         2,
		LeadTime:         3,
		InitialInventory: map[string]int{"p1": factoryStock},
	}, nil, nil)
	distributor := NewDistributor("warehouse_1", warehouse, bus, DistributorConfig{
		InitialInventory: map[string]int{"p1": depotStock},
		ReorderThreshold: 20,
		ReorderQuantity:  100,
		ProducerID:       "factory_1",
		CarrierIDs:       []string{"truck_1"},
	}, nil, nil)
	carrier := NewCarrier("truck_1", warehouse, bus, dir, CarrierConfig{
		Speed:    10,
		Capacity: 100,
	}, nil, nil)
	retailer := NewRetailer("store_1", store, bus, RetailerConfig{
		InitialInventory: map[string]int{"p1": retailStock},
		ReorderThreshold: 10,
		ReorderQuantity:  50,
		DistributorID:    "warehouse_1",
	}, nil, rand.New(rand.NewSource(1)), nil)
	quietDemand(t, retailer)

	scheduler := NewScheduler(bus, 1.0, nil)
	scheduler.Register(producer)
	scheduler.Register(distributor)
	scheduler.Register(carrier)
	scheduler.Register(retailer)

	return &pipeline{
		bus:         bus,
		scheduler:   scheduler,
		retailer:    retailer,
		distributor: distributor,
		producer:    producer,
		carrier:     carrier,
	}
}

// systemUnits counts every unit the network owes an account of: on-hand
// stock everywhere plus dispatched-but-unconfirmed retail orders. Carrier
// cargo is deliberately excluded; it is the physical half of a processing
// order and counting both would double-book the load.
func (pl *pipeline) systemUnits() int {
	total := pl.retailer.InventoryLevel("p1") +
		pl.distributor.InventoryLevel("p1") +
		pl.producer.InventoryLevel("p1")
	for _, o := range pl.distributor.processingOrders {
		total += o.Quantity
	}
	return total
}

// With zero customer demand, stock only moves between actors: the ledger
// total must hold at every tick boundary while a replenishment order flows
// store -> warehouse -> truck -> store.
func TestPipeline_ReplenishmentConservesStock(t *testing.T) {
	pl := newPipeline(t, 5, 100, 0)
	start := pl.systemUnits()
	require.Equal(t, 105, start)

	pl.scheduler.Start()
	for i := 0; i < 20; i++ {
		require.True(t, pl.scheduler.Tick())
		assert.Equal(t, start, pl.systemUnits(), "ledger broke after tick %d", i)
	}

	// the order ran to completion: 50 units moved from depot to shelf
	assert.Equal(t, 55, pl.retailer.InventoryLevel("p1"))
	assert.Equal(t, 50, pl.distributor.InventoryLevel("p1"))
	assert.True(t, pl.carrier.IsAvailable())
	assert.Zero(t, pl.carrier.CargoWeight())
	assert.Equal(t, 1, pl.distributor.AvailableCarriers())

	snap := pl.distributor.Snapshot()
	assert.Equal(t, 0, snap["pending_orders"])
	assert.Equal(t, 0, snap["processing_orders"])
}

// A duplicate delivery notification arrives at the store in this topology:
// the truck notifies it directly and the warehouse notifies it again after
// the truck's completion report. The stock must be credited exactly once.
func TestPipeline_DuplicateNotificationCreditsOnce(t *testing.T) {
	pl := newPipeline(t, 5, 100, 0)
	pl.scheduler.RunForTicks(20)
	assert.Equal(t, 55, pl.retailer.InventoryLevel("p1"))
}

// Low depot stock pulls a factory order through production and back into
// depot inventory, with the producer's three-tick lead time in the middle.
func TestPipeline_FactoryReplenishment(t *testing.T) {
	pl := newPipeline(t, 50, 10, 0)

	pl.scheduler.Start()

	// tick 0: warehouse notices 10 <= 20 and orders 100 from the factory
	require.True(t, pl.scheduler.Tick())
	assert.Equal(t, 1, pl.distributor.OutstandingFactoryOrders())

	// tick 1: factory receives and starts the job (no finished goods)
	require.True(t, pl.scheduler.Tick())
	assert.Equal(t, 1, pl.producer.ActiveJobs())

	// job started at tick 1, so it retires at tick 4 and the warehouse
	// books the goods on tick 5
	for i := 0; i < 3; i++ {
		require.True(t, pl.scheduler.Tick())
	}
	assert.Zero(t, pl.producer.ActiveJobs())
	assert.Equal(t, 10, pl.distributor.InventoryLevel("p1"))

	require.True(t, pl.scheduler.Tick())
	assert.Equal(t, 110, pl.distributor.InventoryLevel("p1"))
	assert.Zero(t, pl.distributor.OutstandingFactoryOrders())
}

// A factory holding finished goods skips production entirely.
func TestPipeline_FactoryFulfillsFromStock(t *testing.T) {
	pl := newPipeline(t, 50, 10, 500)

	pl.scheduler.Start()
	// order out at tick 0, fulfilled from stock at tick 1, booked at tick 2
	for i := 0; i < 3; i++ {
		require.True(t, pl.scheduler.Tick())
	}
	assert.Equal(t, 110, pl.distributor.InventoryLevel("p1"))
	assert.Equal(t, 400, pl.producer.InventoryLevel("p1"))
	assert.Zero(t, pl.producer.ActiveJobs())
}
