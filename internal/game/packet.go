package game

import (
	"sort"

	"valhalla/pkg/sphere"
)

// PacketKind tags the variant carried by a packet.
type PacketKind int

const (
	PacketStandard PacketKind = iota
	PacketHero
	PacketTitan
)

func (k PacketKind) String() string {
	switch k {
	case PacketHero:
		return "hero"
	case PacketTitan:
		return "titan"
	default:
		return "standard"
	}
}

func (k PacketKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *PacketKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "hero":
		*k = PacketHero
	case "titan":
		*k = PacketTitan
	default:
		*k = PacketStandard
	}
	return nil
}

// HeroPatrol holds the sector a hero circles.
type HeroPatrol struct {
	Face int `json:"face"`
}

// Packet is a batch of units in transit along an edge.
type Packet struct {
	ID        uint64      `json:"id"`
	Owner     string      `json:"owner"`
	Race      Race        `json:"race"`
	Class     UnitClass   `json:"class"`
	Kind      PacketKind  `json:"kind"`
	Amount    float64     `json:"amount"`
	Position  float64     `json:"position"`  // 0 at U, 1 at V
	Direction int         `json:"direction"` // +1 toward V, -1 toward U
	Attack    float64     `json:"attack"`    // Source attack modifier at spawn
	Patrol    *HeroPatrol `json:"patrol,omitempty"`
}

// Forward returns true if the packet moves toward V.
func (p *Packet) Forward() bool {
	return p.Direction > 0
}

// Arrived returns true once the packet reaches its destination end.
func (p *Packet) Arrived() bool {
	if p.Forward() {
		return p.Position >= 1
	}
	return p.Position <= 0
}

func (p *Packet) clone() *Packet {
	c := *p
	if p.Patrol != nil {
		patrol := *p.Patrol
		c.Patrol = &patrol
	}
	return &c
}

// Edge is a traversable road and the packets on it.
type Edge struct {
	U         int       `json:"u"`
	V         int       `json:"v"`
	Hazard    bool      `json:"hazard"`
	Contested bool      `json:"contested"` // A clash happened this tick
	Packets   []*Packet `json:"packets"`
}

// Key returns the canonical key of the edge.
func (e *Edge) Key() sphere.EdgeKey {
	return sphere.EdgeKey{U: e.U, V: e.V}
}

// Destination returns the vertex a packet on this edge is heading to.
func (e *Edge) Destination(p *Packet) int {
	if p.Forward() {
		return e.V
	}
	return e.U
}

// Source returns the vertex a packet on this edge came from.
func (e *Edge) Source(p *Packet) int {
	if p.Forward() {
		return e.U
	}
	return e.V
}

// sortPackets orders packets by position, then id.
func (e *Edge) sortPackets() {
	sort.SliceStable(e.Packets, func(i, j int) bool {
		if e.Packets[i].Position != e.Packets[j].Position {
			return e.Packets[i].Position < e.Packets[j].Position
		}
		return e.Packets[i].ID < e.Packets[j].ID
	})
}

// leads returns the forward packet furthest along and the reverse packet furthest
// along. Packets must be sorted.
func (e *Edge) leads() (fwd, rev *Packet) {
	for _, p := range e.Packets {
		if p.Forward() {
			fwd = p
		} else if rev == nil {
			rev = p
		}
	}
	return fwd, rev
}

// hasMage reports whether a Mage packet travels in the given direction.
func (e *Edge) hasMage(direction int) bool {
	for _, p := range e.Packets {
		if p.Direction == direction && p.Class == ClassMage {
			return true
		}
	}
	return false
}

func (e *Edge) clone() *Edge {
	c := *e
	c.Packets = make([]*Packet, len(e.Packets))
	for i, p := range e.Packets {
		c.Packets[i] = p.clone()
	}
	return &c
}

// newEdges builds an empty edge for every road.
func newEdges(roads []sphere.Road) []*Edge {
	edges := make([]*Edge, len(roads))
	for i, r := range roads {
		edges[i] = &Edge{U: r.U, V: r.V, Hazard: r.Hazard, Packets: []*Packet{}}
	}
	return edges
}
