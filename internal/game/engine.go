package game

import (
	"context"
	"log"
	"math/rand"
	"time"

	"valhalla/internal/tuning"
)

// TickResult reports what a tick changed.
type TickResult struct {
	Tick          uint64
	MapChanged    bool // Fortresses or packets changed
	ColorsChanged bool // A sector changed owner
	Events        []Event
}

// Engine owns the world state and serializes every access to it. A tick is one
// critical section; commands wait a bounded time for it and are dropped otherwise.
type Engine struct {
	cfg    tuning.Tuning
	rng    *rand.Rand
	logger *log.Logger
	sem    chan struct{}
	state  *WorldState
}

// NewEngine creates an engine. The world is generated lazily on first use. A nil
// rng seeds from the clock and a nil logger uses the standard logger.
func NewEngine(cfg tuning.Tuning, rng *rand.Rand, logger *log.Logger) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		cfg:    cfg,
		rng:    rng,
		logger: logger,
		sem:    make(chan struct{}, 1),
	}
}

func (e *Engine) lock() {
	e.sem <- struct{}{}
}

func (e *Engine) unlock() {
	<-e.sem
}

// tryLock waits up to the command timeout for the tick lock.
func (e *Engine) tryLock() error {
	select {
	case e.sem <- struct{}{}:
		return nil
	default:
	}
	timer := time.NewTimer(e.cfg.CommandTimeout())
	defer timer.Stop()
	select {
	case e.sem <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrEngineBusy
	}
}

// ensureWorld generates the world if none exists. Caller holds the lock.
func (e *Engine) ensureWorld() {
	if e.state != nil {
		return
	}
	e.state = NewWorldState(e.cfg, e.rng)
	e.logger.Printf("Generated world %s: %d fortresses, %d sectors, %d roads",
		e.state.ID, len(e.state.Fortresses), len(e.state.World.Faces), len(e.state.Edges))
}

// Snapshot returns a copy of the world, generating it on first call.
func (e *Engine) Snapshot() *WorldSnapshot {
	e.lock()
	defer e.unlock()
	e.ensureWorld()
	return e.state.Snapshot()
}

// Restore replaces the world with a stored snapshot.
func (e *Engine) Restore(snap *WorldSnapshot) error {
	state, err := RestoreSnapshot(snap, e.cfg, e.rng)
	if err != nil {
		return err
	}
	e.lock()
	defer e.unlock()
	e.state = state
	e.logger.Printf("Restored world %s at tick %d", state.ID, state.Tick)
	return nil
}

// Tick runs one simulation step: dominance, AI, production and upgrades, then combat.
func (e *Engine) Tick() TickResult {
	e.lock()
	defer e.unlock()
	e.ensureWorld()

	s := e.state
	s.Tick++
	colors := s.RecomputeDominance()
	aiChanged := s.RunAI()
	produced := s.ProduceUnits()
	upgraded := s.ApplyUpgrades()
	fought, events := s.ResolveCombat()

	return TickResult{
		Tick:          s.Tick,
		MapChanged:    colors || aiChanged || produced || upgraded || fought,
		ColorsChanged: colors,
		Events:        events,
	}
}

// Run ticks on a fixed interval until ctx is done, handing each result to publish
// outside the lock.
func (e *Engine) Run(ctx context.Context, interval time.Duration, publish func(TickResult)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	e.logger.Printf("Simulation running every %s", interval)

	for {
		select {
		case <-ctx.Done():
			e.logger.Printf("Simulation stopped")
			return
		case <-ticker.C:
			result := e.Tick()
			if publish != nil {
				publish(result)
			}
		}
	}
}

// Join registers a faction, keeping the existing record if the ID is known.
func (e *Engine) Join(id, name string, race Race) (*Faction, error) {
	if err := e.tryLock(); err != nil {
		return nil, err
	}
	defer e.unlock()
	e.ensureWorld()
	f := *e.state.AddFaction(NewFaction(id, name, race))
	return &f, nil
}

// AssignHomeSector seats a faction on the world.
func (e *Engine) AssignHomeSector(factionID string) (int, error) {
	if err := e.tryLock(); err != nil {
		return -1, err
	}
	defer e.unlock()
	e.ensureWorld()
	return e.state.AssignHomeSector(factionID)
}

// TogglePath adds or removes a path between two fortresses.
func (e *Engine) TogglePath(source, target int, factionID string) error {
	if err := e.tryLock(); err != nil {
		return err
	}
	defer e.unlock()
	e.ensureWorld()
	return e.state.TogglePath(source, target, factionID)
}

// Specialize converts a fortress to a new type.
func (e *Engine) Specialize(id int, newType FortressType, factionID string) error {
	if err := e.tryLock(); err != nil {
		return err
	}
	defer e.unlock()
	e.ensureWorld()
	return e.state.Specialize(id, newType, factionID)
}

// Regenerate throws the world away and builds a new one. Human factions are kept
// but must claim a new home sector.
func (e *Engine) Regenerate() (Event, error) {
	if err := e.tryLock(); err != nil {
		return Event{}, err
	}
	defer e.unlock()

	var humans []*Faction
	if e.state != nil {
		for _, f := range e.state.Factions {
			if !f.IsAI {
				c := *f
				c.HomeFace = -1
				humans = append(humans, &c)
			}
		}
	}
	e.state = NewWorldState(e.cfg, e.rng)
	for _, f := range humans {
		e.state.AddFaction(f)
	}
	e.logger.Printf("Regenerated world %s with %d returning factions", e.state.ID, len(humans))
	return Event{Kind: EventRegenerate, Tick: e.state.Tick}, nil
}

// Faction returns a copy of a faction record.
func (e *Engine) Faction(id string) (*Faction, bool) {
	e.lock()
	defer e.unlock()
	if e.state == nil {
		return nil, false
	}
	f, ok := e.state.Factions[id]
	if !ok {
		return nil, false
	}
	c := *f
	return &c, true
}

// Clock returns the current world id and tick.
func (e *Engine) Clock() (string, uint64) {
	e.lock()
	defer e.unlock()
	e.ensureWorld()
	return e.state.ID, e.state.Tick
}

// Sector returns the fortress ids at the corners of a face.
func (e *Engine) Sector(face int) ([3]int, bool) {
	e.lock()
	defer e.unlock()
	e.ensureWorld()
	if face < 0 || face >= len(e.state.World.Faces) {
		return [3]int{}, false
	}
	return e.state.World.Faces[face], true
}
