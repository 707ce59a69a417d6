package sim

import "fmt"

// recordingSink captures performance events for assertions.
type recordingSink struct {
	sales     []SaleEvent
	stockouts []StockoutEvent
	storage   []SaleEvent // reuse shape: UnitPrice holds cost-per-unit
}

func (s *recordingSink) RecordSale(actorID, productID string, quantity int, unitPrice float64) {
	s.sales = append(s.sales, SaleEvent{ActorID: actorID, ProductID: productID, Quantity: quantity, UnitPrice: unitPrice})
}

func (s *recordingSink) RecordStockout(actorID, productID string, quantity int, lostRevenue float64) {
	s.stockouts = append(s.stockouts, StockoutEvent{ActorID: actorID, ProductID: productID, Quantity: quantity, LostValue: lostRevenue})
}

func (s *recordingSink) RecordStorageCost(actorID, productID string, quantity int, costPerUnit float64) {
	s.storage = append(s.storage, SaleEvent{ActorID: actorID, ProductID: productID, Quantity: quantity, UnitPrice: costPerUnit})
}

// stubActor is a scriptable Actor for scheduler tests.
type stubActor struct {
	id        string
	active    bool
	bus       *MessageBus
	advances  int
	received  []*Envelope
	onAdvance func(tick int64) error
	onMessage func(env *Envelope) error
}

func newStubActor(id string, bus *MessageBus) *stubActor {
	a := &stubActor{id: id, active: true, bus: bus}
	bus.Subscribe(id, a.OnMessage)
	return a
}

func (a *stubActor) ID() string   { return a.id }
func (a *stubActor) Role() Role   { return RoleRetailer }
func (a *stubActor) Active() bool { return a.active }

func (a *stubActor) Deactivate() {
	a.active = false
	a.bus.Unsubscribe(a.id)
}

func (a *stubActor) Advance(tick int64) error {
	a.advances++
	if a.onAdvance != nil {
		return a.onAdvance(tick)
	}
	return nil
}

func (a *stubActor) OnMessage(env *Envelope) error {
	a.received = append(a.received, env)
	if a.onMessage != nil {
		return a.onMessage(env)
	}
	return nil
}

func (a *stubActor) Snapshot() map[string]any {
	return map[string]any{"advances": a.advances}
}

// mustEnvelope builds an envelope or panics; test construction only.
func mustEnvelope(sender, recipient, kind string, data Payload) *Envelope {
	env, err := NewEnvelope(sender, recipient, kind, data, 0)
	if err != nil {
		panic(fmt.Sprintf("mustEnvelope: %v", err))
	}
	return env
}
