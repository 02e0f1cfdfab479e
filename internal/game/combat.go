package game

import (
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

// EventKind names a notable simulation outcome.
type EventKind string

const (
	EventCapture        EventKind = "capture"
	EventSanctuarySpawn EventKind = "sanctuary_spawn"
	EventHomeAssigned   EventKind = "home_assigned"
	EventRegenerate     EventKind = "regenerate"
)

// Event is emitted by a tick for logging and replay.
type Event struct {
	Kind     EventKind `json:"kind"`
	Tick     uint64    `json:"tick"`
	Fortress int       `json:"fortress,omitempty"`
	Target   string    `json:"target,omitempty"` // Fortress name
	Face     int       `json:"face,omitempty"`
	Owner    string    `json:"owner,omitempty"`
	Previous string    `json:"previous,omitempty"`
	Unit     string    `json:"unit,omitempty"`
	Amount   float64   `json:"amount,omitempty"`
}

// arrival is a packet that reached the end of its edge this tick.
type arrival struct {
	edge   *Edge
	packet *Packet
}

// ResolveCombat runs the flow phase: spawn, per-edge advance and clash, arrivals,
// then sanctuary spawns.
func (s *WorldState) ResolveCombat() (bool, []Event) {
	changed := s.spawnPackets()
	arrivals, moved := s.advanceEdges()
	if moved {
		changed = true
	}

	var events []Event
	for _, list := range arrivals {
		for _, a := range list {
			if ev, ok := s.deliver(a.edge, a.packet); ok {
				events = append(events, ev)
			}
			changed = true
		}
	}
	spawns := s.spawnSpecials()
	if len(spawns) > 0 {
		changed = true
	}
	return changed, append(events, spawns...)
}

// AttackSnapshot is the attack modifier a packet leaving f carries.
func (s *WorldState) AttackSnapshot(f *Fortress) float64 {
	atk := f.AttackPower()
	if s.Dominated(f) {
		atk *= s.cfg.Gameplay.DominanceBonus
	}
	return atk
}

// spawnPackets sends one flow unit down every active path that the garrison can pay for.
func (s *WorldState) spawnPackets() bool {
	flow := s.cfg.Gameplay.FlowRate
	changed := false
	for _, f := range s.Fortresses {
		if f.Owner == "" || len(f.Paths) == 0 {
			continue
		}
		attack := s.AttackSnapshot(f)
		for _, target := range f.Paths {
			if f.Units < flow {
				break
			}
			e, ok := s.Edge(f.ID, target)
			if !ok {
				continue
			}
			f.Units -= flow
			s.launch(e, &Packet{
				ID:     s.newPacketID(),
				Owner:  f.Owner,
				Race:   f.Race,
				Class:  f.Type.Stats().Class,
				Kind:   PacketStandard,
				Amount: flow,
				Attack: attack,
			}, f.ID)
			changed = true
		}
	}
	return changed
}

// launch places a packet at the end of the edge it leaves from.
func (s *WorldState) launch(e *Edge, p *Packet, from int) {
	if from == e.U {
		p.Position, p.Direction = 0, 1
	} else {
		p.Position, p.Direction = 1, -1
	}
	e.Packets = append(e.Packets, p)
}

// advanceEdges steps every busy edge in parallel. Edges share nothing, so each
// worker only touches its own edge; arrivals are returned for a serial pass.
func (s *WorldState) advanceEdges() ([][]arrival, bool) {
	results := make([][]arrival, len(s.Edges))
	changed := false

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, e := range s.Edges {
		if len(e.Packets) == 0 {
			if e.Contested {
				e.Contested = false
				changed = true
			}
			continue
		}
		changed = true
		g.Go(func() error {
			results[i] = s.stepEdge(e)
			return nil
		})
	}
	_ = g.Wait()
	return results, changed
}

// stepEdge advances, clashes and collects arrivals on one edge. It must not touch
// anything outside e.
func (s *WorldState) stepEdge(e *Edge) []arrival {
	cfg := s.cfg.Gameplay
	e.Contested = false
	e.sortPackets()

	fwdBuff, revBuff := 1.0, 1.0
	if e.hasMage(1) {
		fwdBuff = cfg.MageBuff
	}
	if e.hasMage(-1) {
		revBuff = cfg.MageBuff
	}

	for _, p := range e.Packets {
		buff := revBuff
		if p.Forward() {
			buff = fwdBuff
		}
		speed := cfg.PacketSpeed * p.Class.Stats().Speed * p.Race.Stats().Speed * buff
		p.Position += float64(p.Direction) * speed
		if e.Hazard {
			p.Amount -= p.Amount * cfg.HazardAttrition
		}
	}
	e.sortPackets()

	fwd, rev := e.leads()
	if fwd != nil && rev != nil && fwd.Owner != rev.Owner && fwd.Position >= rev.Position {
		Clash(fwd, rev, fwdBuff, revBuff)
		e.Contested = true
	}

	var arrived []arrival
	kept := e.Packets[:0]
	for _, p := range e.Packets {
		switch {
		case p.Amount <= 0:
		case p.Arrived():
			if p.Forward() {
				p.Position = 1
			} else {
				p.Position = 0
			}
			arrived = append(arrived, arrival{edge: e, packet: p})
		default:
			kept = append(kept, p)
		}
	}
	for i := len(kept); i < len(e.Packets); i++ {
		e.Packets[i] = nil
	}
	e.Packets = kept
	return arrived
}

// StrikePower is the damage a packet deals to another packet.
func StrikePower(p *Packet, mageBuff float64) float64 {
	return p.Amount * p.Race.Stats().Atk * p.Attack * mageBuff * p.Class.Multiplier(VsUnit)
}

// Clash resolves a head-on meeting. Both packets snap to their midpoint and take
// damage computed from their pre-clash amounts.
func Clash(fwd, rev *Packet, fwdBuff, revBuff float64) {
	mid := (fwd.Position + rev.Position) / 2
	fwd.Position, rev.Position = mid, mid

	fwdDamage := StrikePower(fwd, fwdBuff)
	revDamage := StrikePower(rev, revBuff)
	fwd.Amount -= revDamage
	rev.Amount -= fwdDamage
}

// deliver resolves an arrival against the destination fortress. Heroes keep
// patrolling and Titans push on toward hostile ground instead.
func (s *WorldState) deliver(e *Edge, p *Packet) (Event, bool) {
	dest := e.Destination(p)
	from := e.Source(p)
	target := s.Fortresses[dest]

	switch p.Kind {
	case PacketHero:
		if p.Patrol != nil {
			if sanc, ok := s.Sanctuaries[p.Patrol.Face]; ok && sanc.Owner == p.Owner {
				if next := s.patrolNext(p.Patrol.Face, from, dest); next >= 0 {
					if ne, ok := s.Edge(dest, next); ok {
						s.launch(ne, p, dest)
						return Event{}, false
					}
				}
			}
			p.Patrol = nil
		}
	case PacketTitan:
		if target.Owner == p.Owner {
			if next := s.weakestHostileNeighbor(dest, p.Owner); next >= 0 {
				if ne, ok := s.Edge(dest, next); ok {
					s.launch(ne, p, dest)
					return Event{}, false
				}
			}
		}
	}

	if target.Owner == p.Owner {
		target.Units += p.Amount
		return Event{}, false
	}
	return s.Siege(target, p)
}

// Siege applies an attacking packet to a hostile fortress.
func (s *WorldState) Siege(target *Fortress, p *Packet) (Event, bool) {
	damage := p.Amount * p.Race.Stats().Atk * p.Attack * p.Class.Multiplier(VsFortress)
	defMult := target.DefenseMultiplier()
	defense := target.Units * defMult

	if damage > defense {
		previous := target.Owner
		target.Owner = p.Owner
		target.Race = p.Race
		target.Units = 1.0
		target.Tier = 1
		target.Paths = []int{}
		target.Type = target.BaselineType()
		target.IsCapital = false
		return Event{
			Kind:     EventCapture,
			Tick:     s.Tick,
			Fortress: target.ID,
			Target:   target.Name,
			Owner:    p.Owner,
			Previous: previous,
			Unit:     p.Class.String(),
			Amount:   p.Amount,
		}, true
	}

	remaining := (defense - damage) / defMult
	if remaining < 0 {
		remaining = 0
	}
	target.Units = remaining
	return Event{}, false
}

// patrolNext returns the third vertex of the face, continuing the loop from -> at.
func (s *WorldState) patrolNext(face, from, at int) int {
	for _, v := range s.World.Faces[face] {
		if v != from && v != at {
			return v
		}
	}
	return -1
}

// weakestHostileNeighbor returns the neighbor with the smallest garrison not held
// by owner, or -1. The first neighbor wins ties.
func (s *WorldState) weakestHostileNeighbor(v int, owner string) int {
	best := -1
	for _, n := range s.Neighbors(v) {
		f := s.Fortresses[n]
		if f.Owner == owner {
			continue
		}
		if best < 0 || f.Units < s.Fortresses[best].Units {
			best = n
		}
	}
	return best
}

// sectorEdges returns the traversable edges of a face.
func (s *WorldState) sectorEdges(face int) []*Edge {
	verts := s.World.Faces[face]
	out := make([]*Edge, 0, 3)
	pairs := [3][2]int{{verts[0], verts[1]}, {verts[1], verts[2]}, {verts[2], verts[0]}}
	for _, pair := range pairs {
		if e, ok := s.Edge(pair[0], pair[1]); ok {
			out = append(out, e)
		}
	}
	return out
}

// spawnSpecials ticks sanctuary cooldowns and launches a Hero or Titan from each
// sanctuary whose cooldown ran out.
func (s *WorldState) spawnSpecials() []Event {
	faces := make([]int, 0, len(s.Sanctuaries))
	for face := range s.Sanctuaries {
		faces = append(faces, face)
	}
	sort.Ints(faces)

	var events []Event
	for _, face := range faces {
		sanc := s.Sanctuaries[face]
		// Arrivals earlier in this tick may have broken the sector.
		if s.sectorOwner(face) != sanc.Owner {
			delete(s.Sanctuaries, face)
			continue
		}
		sanc.Cooldown--
		if sanc.Cooldown > 0 {
			continue
		}
		unit := s.specialFor(sanc.AvgTier)
		sanc.Cooldown = unit.Cooldown

		edges := s.sectorEdges(face)
		if len(edges) == 0 {
			continue
		}
		e := edges[s.rng.Intn(len(edges))]
		from := e.U
		if s.rng.Intn(2) == 1 {
			from = e.V
		}

		race := s.Fortresses[from].Race
		if faction, ok := s.Factions[sanc.Owner]; ok {
			race = faction.Race
		}
		p := &Packet{
			ID:     s.newPacketID(),
			Owner:  sanc.Owner,
			Race:   race,
			Class:  unit.Class,
			Kind:   unit.Kind,
			Amount: unit.Size,
			Attack: unit.Atk,
		}
		if unit.Kind == PacketHero {
			p.Patrol = &HeroPatrol{Face: face}
		}
		s.launch(e, p, from)
		events = append(events, Event{
			Kind:   EventSanctuarySpawn,
			Tick:   s.Tick,
			Face:   face,
			Owner:  sanc.Owner,
			Unit:   unit.Class.String(),
			Amount: unit.Size,
		})
	}
	return events
}
