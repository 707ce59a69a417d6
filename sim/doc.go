// Package sim provides the coordination engine for the supply-chain
// simulator: a bounded-mailbox message bus, a stepped scheduler, and the
// cooperating actor state machines that drive an order from creation through
// fulfillment or rejection across four tiers.
//
// # Reading Guide
//
// Start with these three files to understand the kernel:
//   - envelope.go / bus.go: the message model and per-recipient bounded
//     mailboxes with drop-oldest overflow
//   - scheduler.go: the tick loop and its two-phase ordering (deliver all
//     mailboxes, then advance all actors)
//   - actor.go: the closed set of role variants behind the Actor interface
//
// # Actors
//
// Five role variants cooperate exclusively through bus messages:
//   - Retailer (retailer.go): sells to stochastic customer demand, reorders
//     from a distributor at a threshold
//   - Distributor (distributor.go): fulfills retailer orders by dispatching
//     carriers, replenishes from a producer
//   - Producer (producer.go): capacity-limited production with a fixed lead
//     time and a FIFO backlog
//   - Carrier (carrier.go): pickup/delivery movement FSM over the location
//     directory
//   - DemandSource (demand.go): pushes demand-rate updates and market events
//
// All actor handlers and advances run sequentially within one tick; messages
// published during a tick become visible to recipients on the next tick's
// delivery phase. Randomness flows only through PartitionedRNG (rng.go) so
// runs are reproducible from a seed.
package sim
