package cmd

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ProductSpec describes one product line in a scenario: its pricing and the
// opening stock at each tier.
type ProductSpec struct {
	ID               string  `yaml:"id"`
	Name             string  `yaml:"name"`
	UnitCost         float64 `yaml:"unit_cost"`
	StorageCost      float64 `yaml:"storage_cost"`
	RetailerStock    int     `yaml:"retailer_stock"`
	DistributorStock int     `yaml:"distributor_stock"`
	ProducerStock    int     `yaml:"producer_stock"`
}

// ScenarioConfig describes a complete simulation setup loadable from YAML.
type ScenarioConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	DurationTicks int64   `yaml:"duration_ticks"`
	Seed          int64   `yaml:"seed"`
	TickDuration  float64 `yaml:"tick_duration"`
	MailboxSize   int     `yaml:"mailbox_size"`

	Retailers              int `yaml:"retailers"`
	Distributors           int `yaml:"distributors"`
	CarriersPerDistributor int `yaml:"carriers_per_distributor"`

	RetailerThreshold    int `yaml:"retailer_threshold"`
	RetailerReorderQty   int `yaml:"retailer_reorder_qty"`
	DistributorThreshold int `yaml:"distributor_threshold"`
	DistributorReorder   int `yaml:"distributor_reorder_qty"`

	ProducerCapacity int     `yaml:"producer_capacity"`
	ProducerLeadTime int64   `yaml:"producer_lead_time"`
	CarrierSpeed     float64 `yaml:"carrier_speed"`
	CarrierCapacity  int     `yaml:"carrier_capacity"`

	BaseDemandRate      float64 `yaml:"base_demand_rate"`
	DemandVariation     float64 `yaml:"demand_variation"`
	EventProbability    float64 `yaml:"event_probability"`
	InventoryMultiplier float64 `yaml:"inventory_multiplier"`

	Products []ProductSpec `yaml:"products"`
}

// DefaultScenario returns a small steady-demand network: one producer, two
// distributors, four retailers and two carriers per distributor.
func DefaultScenario() ScenarioConfig {
	return ScenarioConfig{
		Name:                   "steady",
		Description:            "small network under steady demand",
		DurationTicks:          200,
		Seed:                   42,
		TickDuration:           1.0,
		Retailers:              4,
		Distributors:           2,
		CarriersPerDistributor: 2,
		RetailerThreshold:      10,
		RetailerReorderQty:     50,
		DistributorThreshold:   20,
		DistributorReorder:     100,
		ProducerCapacity:       2,
		ProducerLeadTime:       3,
		CarrierSpeed:           10.0,
		CarrierCapacity:        100,
		BaseDemandRate:         2.0,
		DemandVariation:        0.5,
		EventProbability:       0.15,
		InventoryMultiplier:    1.0,
		Products: []ProductSpec{
			{ID: "p1", Name: "Widgets", UnitCost: 10.0, StorageCost: 0.10, RetailerStock: 40, DistributorStock: 200, ProducerStock: 500},
			{ID: "p2", Name: "Gadgets", UnitCost: 25.0, StorageCost: 0.20, RetailerStock: 25, DistributorStock: 120, ProducerStock: 300},
		},
	}
}

// LoadScenario reads a YAML scenario file, filling omitted fields from the
// default scenario.
func LoadScenario(path string) (ScenarioConfig, error) {
	cfg := DefaultScenario()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read scenario: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations the builder cannot realize.
func (c ScenarioConfig) Validate() error {
	if c.DurationTicks <= 0 {
		return fmt.Errorf("scenario: duration_ticks must be positive")
	}
	if c.Retailers <= 0 {
		return fmt.Errorf("scenario: at least one retailer required")
	}
	if c.Distributors <= 0 {
		return fmt.Errorf("scenario: at least one distributor required")
	}
	if c.CarriersPerDistributor < 0 {
		return fmt.Errorf("scenario: carriers_per_distributor cannot be negative")
	}
	if len(c.Products) == 0 {
		return fmt.Errorf("scenario: at least one product required")
	}
	for _, p := range c.Products {
		if p.ID == "" {
			return fmt.Errorf("scenario: product with empty id")
		}
	}
	if c.InventoryMultiplier < 0 {
		return fmt.Errorf("scenario: inventory_multiplier cannot be negative")
	}
	return nil
}
