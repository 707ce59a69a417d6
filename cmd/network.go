package cmd

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/chainsim/chainsim/sim"
)

// Network bundles everything a built scenario needs to run.
type Network struct {
	Scheduler *sim.Scheduler
	Bus       *sim.MessageBus
	Directory *sim.Directory
	Tracker   *sim.Tracker
}

// BuildNetwork realizes a scenario: it lays out points on a 100x100 map,
// creates the actor fleet, wires everyone to the bus and registers them with
// a fresh scheduler. Actor layout is deterministic for a given config.
func BuildNetwork(cfg ScenarioConfig, logger *logrus.Logger) (*Network, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	directory := sim.NewDirectory()
	bus := sim.NewMessageBus(cfg.MailboxSize, logger)
	tracker := sim.NewTracker()
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(cfg.Seed))
	scheduler := sim.NewScheduler(bus, cfg.TickDuration, logger)

	catalog := make(map[string]*sim.Product, len(cfg.Products))
	for _, ps := range cfg.Products {
		p, err := sim.NewProduct(ps.ID, ps.Name, ps.UnitCost, ps.StorageCost)
		if err != nil {
			return nil, err
		}
		catalog[ps.ID] = p
	}

	scale := cfg.InventoryMultiplier
	if scale == 0 {
		scale = 1.0
	}
	stock := func(base int) int { return int(float64(base) * scale) }

	// Producer in the center of the map.
	producerPoint, err := sim.NewPoint("factory_1", "Factory 1", 50, 50, sim.CategoryProducer)
	if err != nil {
		return nil, err
	}
	if err := directory.Add(producerPoint); err != nil {
		return nil, err
	}
	producerStock := make(map[string]int, len(cfg.Products))
	for _, ps := range cfg.Products {
		producerStock[ps.ID] = stock(ps.ProducerStock)
	}
	producer := sim.NewProducer("factory_1", producerPoint, bus, sim.ProducerConfig{
		Capacity:         cfg.ProducerCapacity,
		LeadTime:         cfg.ProducerLeadTime,
		InitialInventory: producerStock,
	}, tracker, logger)
	scheduler.Register(producer)

	// Distributors on an inner ring, each with its own carrier fleet.
	distributorIDs := make([]string, 0, cfg.Distributors)
	for i := 0; i < cfg.Distributors; i++ {
		id := fmt.Sprintf("warehouse_%d", i+1)
		x, y := ringPosition(50, 50, 25, i, cfg.Distributors)
		point, err := sim.NewPoint(id, fmt.Sprintf("Warehouse %d", i+1), x, y, sim.CategoryDistributor)
		if err != nil {
			return nil, err
		}
		if err := directory.Add(point); err != nil {
			return nil, err
		}
		distributorIDs = append(distributorIDs, id)

		carrierIDs := make([]string, 0, cfg.CarriersPerDistributor)
		for j := 0; j < cfg.CarriersPerDistributor; j++ {
			carrierID := fmt.Sprintf("truck_%s_%d", id, j+1)
			carrierIDs = append(carrierIDs, carrierID)
		}

		distStock := make(map[string]int, len(cfg.Products))
		for _, ps := range cfg.Products {
			distStock[ps.ID] = stock(ps.DistributorStock)
		}
		distributor := sim.NewDistributor(id, point, bus, sim.DistributorConfig{
			InitialInventory: distStock,
			ReorderThreshold: cfg.DistributorThreshold,
			ReorderQuantity:  cfg.DistributorReorder,
			ProducerID:       "factory_1",
			CarrierIDs:       carrierIDs,
			Catalog:          catalog,
		}, tracker, logger)
		scheduler.Register(distributor)

		for _, carrierID := range carrierIDs {
			carrier := sim.NewCarrier(carrierID, point, bus, directory, sim.CarrierConfig{
				Speed:    cfg.CarrierSpeed,
				Capacity: cfg.CarrierCapacity,
			}, tracker, logger)
			scheduler.Register(carrier)
		}
	}

	// Retailers on an outer ring, round-robin across distributors.
	retailerIDs := make([]string, 0, cfg.Retailers)
	for i := 0; i < cfg.Retailers; i++ {
		id := fmt.Sprintf("store_%d", i+1)
		x, y := ringPosition(50, 50, 45, i, cfg.Retailers)
		point, err := sim.NewPoint(id, fmt.Sprintf("Store %d", i+1), x, y, sim.CategoryRetailer)
		if err != nil {
			return nil, err
		}
		if err := directory.Add(point); err != nil {
			return nil, err
		}
		retailerIDs = append(retailerIDs, id)

		retailStock := make(map[string]int, len(cfg.Products))
		for _, ps := range cfg.Products {
			retailStock[ps.ID] = stock(ps.RetailerStock)
		}
		retailer := sim.NewRetailer(id, point, bus, sim.RetailerConfig{
			InitialInventory: retailStock,
			ReorderThreshold: cfg.RetailerThreshold,
			ReorderQuantity:  cfg.RetailerReorderQty,
			DistributorID:    distributorIDs[i%len(distributorIDs)],
			Catalog:          catalog,
		}, tracker, rng.ForSubsystem(sim.SubsystemRetailer(id)), logger)
		scheduler.Register(retailer)
	}

	// One market demand source managing every retailer.
	marketPoint, err := sim.NewPoint("market_1", "Market", 50, 5, sim.CategoryRetailer)
	if err != nil {
		return nil, err
	}
	if err := directory.Add(marketPoint); err != nil {
		return nil, err
	}
	market := sim.NewDemandSource("market_1", marketPoint, bus, sim.DemandSourceConfig{
		RetailerIDs:      retailerIDs,
		BaseRate:         cfg.BaseDemandRate,
		Variation:        cfg.DemandVariation,
		EventProbability: cfg.EventProbability,
	}, rng.ForSubsystem(sim.SubsystemDemand), logger)
	scheduler.Register(market)

	return &Network{
		Scheduler: scheduler,
		Bus:       bus,
		Directory: directory,
		Tracker:   tracker,
	}, nil
}

// ringPosition spreads n points evenly on a circle around (cx, cy).
func ringPosition(cx, cy, radius float64, i, n int) (float64, float64) {
	angle := 2 * math.Pi * float64(i) / float64(n)
	return cx + radius*math.Cos(angle), cy + radius*math.Sin(angle)
}
