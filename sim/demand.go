package sim

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/sirupsen/logrus"
)

// DemandEventKind names the market event variants.
type DemandEventKind string

const (
	EventSpike    DemandEventKind = "spike"
	EventDrop     DemandEventKind = "drop"
	EventRegional DemandEventKind = "regional"
)

// DemandEvent multiplies demand for a subset of retailers while its
// remaining-duration counter runs down; expiry restores baseline demand.
type DemandEvent struct {
	Kind       DemandEventKind
	Affected   []string
	Multiplier float64
	Remaining  int
}

// minDemandRate floors every pushed rate so demand never collapses to zero.
const minDemandRate = 0.1

// DemandSourceConfig groups construction parameters for a DemandSource.
type DemandSourceConfig struct {
	RetailerIDs      []string
	BaseRate         float64 // baseline customers per tick, default 2.0
	Variation        float64 // max +/- noise on recomputed baselines, default 0.5
	EventProbability float64 // chance per tick of a new event, default 0.15
	UpdateInterval   int64   // ticks between baseline recomputes, default 3
}

// DemandSource drives market dynamics: it periodically recomputes each
// managed retailer's demand rate with noise, and occasionally layers
// spike/drop/regional events on top.
type DemandSource struct {
	actorCore

	retailerIDs    []string
	baseRate       float64
	variation      float64
	eventProb      float64
	updateInterval int64

	rates        map[string]float64
	events       map[string]*DemandEvent
	eventCounter int
	lastUpdate   int64

	rng *rand.Rand
}

// NewDemandSource builds a DemandSource subscribed to the bus.
func NewDemandSource(id string, location *Point, bus *MessageBus, cfg DemandSourceConfig, rng *rand.Rand, logger *logrus.Logger) *DemandSource {
	if cfg.BaseRate <= 0 {
		cfg.BaseRate = 2.0
	}
	if cfg.Variation <= 0 {
		cfg.Variation = 0.5
	}
	if cfg.EventProbability <= 0 {
		cfg.EventProbability = 0.15
	}
	if cfg.UpdateInterval <= 0 {
		cfg.UpdateInterval = 3
	}
	ids := append([]string(nil), cfg.RetailerIDs...)
	sort.Strings(ids)
	rates := make(map[string]float64, len(ids))
	for _, rid := range ids {
		rates[rid] = cfg.BaseRate
	}
	m := &DemandSource{
		actorCore:      newActorCore(id, RoleDemandSource, location, bus, nil, logger),
		retailerIDs:    ids,
		baseRate:       cfg.BaseRate,
		variation:      cfg.Variation,
		eventProb:      cfg.EventProbability,
		updateInterval: cfg.UpdateInterval,
		rates:          rates,
		events:         make(map[string]*DemandEvent),
		lastUpdate:     -1,
		rng:            rng,
	}
	bus.Subscribe(id, m.OnMessage)
	m.log.Infof("demand source initialized managing %d retailers", len(ids))
	return m
}

// Advance runs one tick of market dynamics: at most one new event, aging
// and expiry of existing events, and the periodic baseline recompute.
func (m *DemandSource) Advance(tick int64) error {
	m.maybeTriggerEvent()
	m.ageEvents()
	if m.lastUpdate < 0 || tick-m.lastUpdate >= m.updateInterval {
		m.recomputeDemand(tick)
		m.lastUpdate = tick
	}
	return nil
}

// OnMessage absorbs retailer registration changes.
func (m *DemandSource) OnMessage(env *Envelope) error {
	switch env.Kind {
	case KindRegisterStore:
		return m.handleRegister(env)
	case KindUnregisterStore:
		return m.handleUnregister(env)
	default:
		m.log.Warnf("unknown message kind %s from %s", env.Kind, env.Sender)
		return nil
	}
}

func (m *DemandSource) maybeTriggerEvent() {
	if len(m.retailerIDs) == 0 || m.rng.Float64() >= m.eventProb {
		return
	}
	m.eventCounter++
	eventID := fmt.Sprintf("event_%d", m.eventCounter)

	var ev *DemandEvent
	switch m.rng.Intn(3) {
	case 0:
		ev = &DemandEvent{
			Kind:       EventSpike,
			Affected:   m.sampleRetailers(m.randBetween(1, 3)),
			Multiplier: 1.5 + m.rng.Float64()*1.5,
			Remaining:  m.randBetween(3, 8),
		}
	case 1:
		ev = &DemandEvent{
			Kind:       EventDrop,
			Affected:   m.sampleRetailers(m.randBetween(1, 2)),
			Multiplier: 0.2 + m.rng.Float64()*0.5,
			Remaining:  m.randBetween(4, 10),
		}
	default:
		multiplier := 0.3 + m.rng.Float64()*0.5
		if m.rng.Intn(2) == 0 {
			multiplier = 1.2 + m.rng.Float64()*0.8
		}
		ev = &DemandEvent{
			Kind:       EventRegional,
			Affected:   append([]string(nil), m.retailerIDs...),
			Multiplier: multiplier,
			Remaining:  m.randBetween(5, 12),
		}
	}
	m.events[eventID] = ev

	// The affected retailers hear about the shift immediately rather than
	// waiting for the next periodic recompute.
	for _, rid := range ev.Affected {
		rate := m.rates[rid] * ev.Multiplier
		m.rates[rid] = rate
		m.pushRate(rid, rate)
	}
	m.log.Infof("triggered %s event %s (x%.2f) affecting %d retailers", ev.Kind, eventID, ev.Multiplier, len(ev.Affected))
}

// ageEvents counts down event durations; expired events restore baseline
// demand plus small noise for their targets.
func (m *DemandSource) ageEvents() {
	var expired []string
	for id, ev := range m.events {
		ev.Remaining--
		if ev.Remaining <= 0 {
			expired = append(expired, id)
		}
	}
	sort.Strings(expired)
	for _, id := range expired {
		ev := m.events[id]
		for _, rid := range ev.Affected {
			if _, managed := m.rates[rid]; !managed {
				continue
			}
			noise := (m.rng.Float64() - 0.5) * m.variation
			rate := max(minDemandRate, m.baseRate+noise)
			m.rates[rid] = rate
			m.pushRate(rid, rate)
		}
		delete(m.events, id)
		m.log.Infof("ended %s event %s", ev.Kind, id)
	}
}

// recomputeDemand refreshes every managed retailer's baseline with random
// variation, multiplied by the combined effect of all active events
// targeting it.
func (m *DemandSource) recomputeDemand(tick int64) {
	for _, rid := range m.retailerIDs {
		noise := (m.rng.Float64()*2 - 1) * m.variation
		rate := max(minDemandRate, m.baseRate+noise) * m.eventMultiplier(rid)
		m.rates[rid] = rate
		m.pushRate(rid, rate)
		m.log.Debugf("recomputed demand for %s: %.2f at tick %d", rid, rate, tick)
	}
}

// eventMultiplier combines every active event touching the retailer, in
// event id order so the float product is reproducible.
func (m *DemandSource) eventMultiplier(retailerID string) float64 {
	ids := make([]string, 0, len(m.events))
	for id := range m.events {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	multiplier := 1.0
	for _, id := range ids {
		for _, rid := range m.events[id].Affected {
			if rid == retailerID {
				multiplier *= m.events[id].Multiplier
				break
			}
		}
	}
	return multiplier
}

func (m *DemandSource) pushRate(retailerID string, rate float64) {
	m.send(retailerID, KindDemandUpdate, Payload{
		"demand_rate": rate,
		"timestamp":   m.bus.Clock(),
		"source":      "market_update",
	})
}

// sampleRetailers picks up to n distinct managed retailers.
func (m *DemandSource) sampleRetailers(n int) []string {
	if n > len(m.retailerIDs) {
		n = len(m.retailerIDs)
	}
	perm := m.rng.Perm(len(m.retailerIDs))
	out := make([]string, 0, n)
	for _, idx := range perm[:n] {
		out = append(out, m.retailerIDs[idx])
	}
	sort.Strings(out)
	return out
}

// randBetween returns a uniform integer in [lo, hi].
func (m *DemandSource) randBetween(lo, hi int) int {
	return lo + m.rng.Intn(hi-lo+1)
}

func (m *DemandSource) handleRegister(env *Envelope) error {
	storeID, ok := env.Data.String("store_id")
	if !ok {
		return fmt.Errorf("register missing store_id")
	}
	if _, managed := m.rates[storeID]; managed {
		return nil
	}
	m.retailerIDs = append(m.retailerIDs, storeID)
	sort.Strings(m.retailerIDs)
	m.rates[storeID] = m.baseRate
	m.log.Infof("registered retailer %s", storeID)
	return nil
}

func (m *DemandSource) handleUnregister(env *Envelope) error {
	storeID, ok := env.Data.String("store_id")
	if !ok {
		return fmt.Errorf("unregister missing store_id")
	}
	for i, rid := range m.retailerIDs {
		if rid == storeID {
			m.retailerIDs = append(m.retailerIDs[:i], m.retailerIDs[i+1:]...)
			break
		}
	}
	delete(m.rates, storeID)
	m.log.Infof("unregistered retailer %s", storeID)
	return nil
}

// ManagedRetailers reports how many retailers receive demand updates.
func (m *DemandSource) ManagedRetailers() int {
	return len(m.retailerIDs)
}

// ActiveEvents reports how many demand events are currently live.
func (m *DemandSource) ActiveEvents() int {
	return len(m.events)
}

// RateFor reports the current demand rate tracked for a retailer.
func (m *DemandSource) RateFor(retailerID string) (float64, bool) {
	rate, ok := m.rates[retailerID]
	return rate, ok
}

// Snapshot exposes a diagnostic view for observers.
func (m *DemandSource) Snapshot() map[string]any {
	rates := make(map[string]float64, len(m.rates))
	for rid, rate := range m.rates {
		rates[rid] = rate
	}
	return map[string]any{
		"managed_retailers": len(m.retailerIDs),
		"demand_rates":      rates,
		"active_events":     len(m.events),
		"base_rate":         m.baseRate,
		"event_probability": m.eventProb,
	}
}
