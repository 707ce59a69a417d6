package sim

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// SchedulerState is a read-only snapshot of the scheduler for observers.
type SchedulerState struct {
	Tick        int64
	SimTime     float64
	Running     bool
	Paused      bool
	TotalActors int
	ActiveCount int
	WallElapsed float64
}

// Scheduler owns the actor roster and the tick loop. Each tick runs two
// phases in strict order: (1) every active actor's mailbox is drained and
// each envelope fed to its handler, (2) every active actor's Advance runs.
// Messages published during a tick are therefore visible to recipients only
// on the next tick's delivery phase.
//
// Draining happens here, centrally and exactly once per tick; actor Advance
// implementations never touch the bus mailboxes themselves.
type Scheduler struct {
	bus          *MessageBus
	actors       []Actor
	tick         int64
	simTime      float64
	tickDuration float64
	running      bool
	paused       bool
	startedAt    time.Time
	log          *logrus.Entry
}

// NewScheduler creates a stopped scheduler. tickDuration is the simulated
// seconds one tick advances; values <= 0 default to 1.0.
func NewScheduler(bus *MessageBus, tickDuration float64, logger *logrus.Logger) *Scheduler {
	if tickDuration <= 0 {
		tickDuration = 1.0
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Scheduler{
		bus:          bus,
		tickDuration: tickDuration,
		log:          logger.WithField("component", "scheduler"),
	}
}

// Register adds an actor to the roster. Registering the same actor twice is
// a logged no-op.
func (s *Scheduler) Register(a Actor) {
	for _, existing := range s.actors {
		if existing.ID() == a.ID() {
			s.log.Warnf("actor %s already registered", a.ID())
			return
		}
	}
	s.actors = append(s.actors, a)
	s.log.Infof("registered actor %s (%s)", a.ID(), a.Role())
}

// Unregister removes an actor from the roster, deactivating it and dropping
// its bus subscription and mailbox. Other actors are unaffected.
func (s *Scheduler) Unregister(id string) error {
	for i, a := range s.actors {
		if a.ID() == id {
			s.actors = append(s.actors[:i], s.actors[i+1:]...)
			a.Deactivate()
			s.log.Infof("unregistered actor %s", id)
			return nil
		}
	}
	return fmt.Errorf("scheduler: actor %q not registered", id)
}

// Start transitions stopped -> running, resetting the tick counter and the
// wall-clock anchor. Starting a running scheduler is a logged no-op.
func (s *Scheduler) Start() {
	if s.running {
		s.log.Warn("simulation is already running")
		return
	}
	s.running = true
	s.paused = false
	s.tick = 0
	s.simTime = 0
	s.startedAt = time.Now()
	s.bus.SetClock(0)
	s.log.Infof("simulation started with %d actors", len(s.actors))
}

// Pause suspends ticking; requires running.
func (s *Scheduler) Pause() {
	if !s.running {
		s.log.Warn("cannot pause: simulation is not running")
		return
	}
	s.paused = true
	s.log.Info("simulation paused")
}

// Resume lifts a pause; requires running.
func (s *Scheduler) Resume() {
	if !s.running {
		s.log.Warn("cannot resume: simulation is not running")
		return
	}
	s.paused = false
	s.log.Info("simulation resumed")
}

// Stop halts the simulation from any state, deactivates every registered
// actor and clears all mailboxes.
func (s *Scheduler) Stop() {
	s.running = false
	s.paused = false
	for _, a := range s.actors {
		if a.Active() {
			a.Deactivate()
		}
	}
	s.bus.ClearAll()
	s.log.Infof("simulation stopped after %d ticks", s.tick)
}

// Tick executes one simulation step. It is a no-op returning false when the
// scheduler is stopped or paused, and returns false after auto-stopping on
// zero remaining active actors.
func (s *Scheduler) Tick() bool {
	if !s.running || s.paused {
		return false
	}
	s.bus.SetClock(s.tick)

	// Phase 1: deliver. A handler fault drops that envelope only; the rest
	// of the actor's mailbox still gets processed.
	for _, a := range s.actors {
		if !a.Active() {
			continue
		}
		for _, env := range s.bus.Drain(a.ID()) {
			if err := a.OnMessage(env); err != nil {
				s.log.Errorf("[tick %07d] handler fault in %s on %s: %v", s.tick, a.ID(), env.Kind, err)
			}
		}
	}

	// Phase 2: advance. An advance fault retires that actor; the tick
	// continues for the others.
	active := 0
	for _, a := range s.actors {
		if !a.Active() {
			continue
		}
		if err := a.Advance(s.tick); err != nil {
			s.log.Errorf("[tick %07d] advance fault in %s, deactivating: %v", s.tick, a.ID(), err)
			a.Deactivate()
			continue
		}
		active++
	}

	s.tick++
	s.simTime += s.tickDuration
	s.log.Debugf("[tick %07d] step complete, %d active actors", s.tick, active)

	if active == 0 {
		s.log.Warn("no active actors remaining, stopping simulation")
		s.Stop()
		return false
	}
	return true
}

// RunForTicks starts the scheduler if needed and runs up to n ticks,
// stopping early if the simulation halts.
func (s *Scheduler) RunForTicks(n int64) {
	if !s.running {
		s.Start()
	}
	for i := int64(0); i < n; i++ {
		if !s.Tick() {
			break
		}
	}
}

// State snapshots the scheduler.
func (s *Scheduler) State() SchedulerState {
	active := 0
	for _, a := range s.actors {
		if a.Active() {
			active++
		}
	}
	var wall float64
	if !s.startedAt.IsZero() {
		wall = time.Since(s.startedAt).Seconds()
	}
	return SchedulerState{
		Tick:        s.tick,
		SimTime:     s.simTime,
		Running:     s.running,
		Paused:      s.paused,
		TotalActors: len(s.actors),
		ActiveCount: active,
		WallElapsed: wall,
	}
}

// ActorSnapshots returns every registered actor's diagnostic snapshot.
func (s *Scheduler) ActorSnapshots() []map[string]any {
	out := make([]map[string]any, 0, len(s.actors))
	for _, a := range s.actors {
		snap := a.Snapshot()
		snap["actor_id"] = a.ID()
		snap["role"] = string(a.Role())
		snap["active"] = a.Active()
		out = append(out, snap)
	}
	return out
}
