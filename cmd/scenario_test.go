package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_FillsDefaults(t *testing.T) {
	path := writeScenario(t, `
name: partial
retailers: 8
base_demand_rate: 3.5
`)
	cfg, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "partial", cfg.Name)
	assert.Equal(t, 8, cfg.Retailers)
	assert.InDelta(t, 3.5, cfg.BaseDemandRate, 1e-9)

	// omitted fields come from the default scenario
	assert.Equal(t, int64(200), cfg.DurationTicks)
	assert.Equal(t, 2, cfg.Distributors)
	assert.Len(t, cfg.Products, 2)
}

func TestLoadScenario_FullOverride(t *testing.T) {
	path := writeScenario(t, `
name: stress
duration_ticks: 50
seed: 7
retailers: 2
distributors: 1
carriers_per_distributor: 1
producer_capacity: 4
producer_lead_time: 5
carrier_speed: 20
inventory_multiplier: 2.0
products:
  - id: p9
    name: Sprockets
    unit_cost: 12.5
    storage_cost: 0.05
    retailer_stock: 30
    distributor_stock: 90
    producer_stock: 400
`)
	cfg, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, int64(50), cfg.DurationTicks)
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, int64(5), cfg.ProducerLeadTime)
	require.Len(t, cfg.Products, 1)
	assert.Equal(t, "p9", cfg.Products[0].ID)
	assert.InDelta(t, 12.5, cfg.Products[0].UnitCost, 1e-9)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadScenario_MalformedYAML(t *testing.T) {
	path := writeScenario(t, "retailers: [not a number")
	_, err := LoadScenario(path)
	assert.Error(t, err)
}

func TestScenarioConfig_Validate(t *testing.T) {
	valid := DefaultScenario()
	require.NoError(t, valid.Validate())

	cases := []struct {
		name   string
		mutate func(*ScenarioConfig)
	}{
		{"no duration", func(c *ScenarioConfig) { c.DurationTicks = 0 }},
		{"no retailers", func(c *ScenarioConfig) { c.Retailers = 0 }},
		{"no distributors", func(c *ScenarioConfig) { c.Distributors = 0 }},
		{"negative carriers", func(c *ScenarioConfig) { c.CarriersPerDistributor = -1 }},
		{"no products", func(c *ScenarioConfig) { c.Products = nil }},
		{"empty product id", func(c *ScenarioConfig) { c.Products[0].ID = "" }},
		{"negative multiplier", func(c *ScenarioConfig) { c.InventoryMultiplier = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultScenario()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
