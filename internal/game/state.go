// Package game contains the simulation core: fortresses, sector dominance, packet
// combat, the AI and the tick engine that orders them.
package game

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/google/uuid"

	"valhalla/internal/tuning"
	"valhalla/pkg/sphere"
)

// Faction is a player or AI that owns fortresses.
type Faction struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Race       Race       `json:"race"`
	IsAI       bool       `json:"isAI"`
	Difficulty Difficulty `json:"difficulty"`
	HomeFace   int        `json:"homeFace"` // -1 until a home sector is assigned
}

// Sanctuary is a fully owned sector that periodically spawns a special unit.
type Sanctuary struct {
	Face     int     `json:"face"`
	Owner    string  `json:"owner"`
	AvgTier  float64 `json:"avgTier"`
	Cooldown int     `json:"cooldown"`
}

// WorldState is the single aggregate every phase operates on.
type WorldState struct {
	ID           string
	Tick         uint64
	World        *sphere.World
	Fortresses   []*Fortress // Indexed by vertex
	Factions     map[string]*Faction
	Edges        []*Edge
	SectorOwners []string // Face -> owner, empty when contested
	FaceColors   []uint32
	Sanctuaries  map[int]*Sanctuary // Keyed by face
	NextPacketID uint64

	edgeIndex map[sphere.EdgeKey]int
	dominant  []string // Vertex -> owner of a fully owned incident face
	cfg       tuning.Tuning
	rng       *rand.Rand
}

// NewWorldState generates a fresh world and seats the configured AI factions.
func NewWorldState(cfg tuning.Tuning, rng *rand.Rand) *WorldState {
	world := sphere.NewGenerator(cfg.GeneratorOptions(), rng).Generate()
	s := &WorldState{
		ID:           uuid.New().String(),
		World:        world,
		Fortresses:   InitializeFortresses(world, rng, cfg.Gameplay.NeutralMin, cfg.Gameplay.NeutralMax),
		Factions:     make(map[string]*Faction),
		Edges:        newEdges(world.Roads),
		SectorOwners: make([]string, len(world.Faces)),
		FaceColors:   world.FaceColors(),
		Sanctuaries:  make(map[int]*Sanctuary),
		dominant:     make([]string, len(world.Vertices)),
		cfg:          cfg,
		rng:          rng,
	}
	s.indexEdges()
	s.seedAIFactions()
	s.RecomputeDominance()
	return s
}

func (s *WorldState) indexEdges() {
	s.edgeIndex = make(map[sphere.EdgeKey]int, len(s.Edges))
	for i, e := range s.Edges {
		s.edgeIndex[e.Key()] = i
	}
}

func (s *WorldState) seedAIFactions() {
	for _, ai := range s.cfg.AI.Factions {
		race, err := ParseRace(ai.Race)
		if err != nil || race == RaceNeutral {
			race = RaceOrc
		}
		difficulty, err := ParseDifficulty(ai.Difficulty)
		if err != nil {
			difficulty = DifficultyNormal
		}
		f := &Faction{
			ID:         uuid.New().String(),
			Name:       ai.Name,
			Race:       race,
			IsAI:       true,
			Difficulty: difficulty,
			HomeFace:   -1,
		}
		s.Factions[f.ID] = f
		// A crowded world leaves the AI without a home; it simply owns nothing.
		_, _ = s.AssignHomeSector(f.ID)
	}
}

// Config returns the tuning the state runs with.
func (s *WorldState) Config() tuning.Tuning {
	return s.cfg
}

// Fortress returns the fortress on a vertex.
func (s *WorldState) Fortress(id int) (*Fortress, bool) {
	if id < 0 || id >= len(s.Fortresses) {
		return nil, false
	}
	return s.Fortresses[id], true
}

// Edge returns the traversable edge between two vertices.
func (s *WorldState) Edge(a, b int) (*Edge, bool) {
	i, ok := s.edgeIndex[sphere.MakeEdgeKey(a, b)]
	if !ok {
		return nil, false
	}
	return s.Edges[i], true
}

// Neighbors returns the traversable neighbors of a vertex in ascending order.
func (s *WorldState) Neighbors(id int) []int {
	if id < 0 || id >= len(s.World.Adjacency) {
		return nil
	}
	return s.World.Adjacency[id]
}

// IsAdjacent returns true if a road joins the two vertices.
func (s *WorldState) IsAdjacent(a, b int) bool {
	_, ok := s.edgeIndex[sphere.MakeEdgeKey(a, b)]
	return ok
}

// Dominated returns true if the fortress sits on a sector its owner fully holds.
func (s *WorldState) Dominated(f *Fortress) bool {
	return f.Owner != "" && s.dominant[f.ID] == f.Owner
}

// AddFaction registers a faction. An existing faction with the same ID is kept.
func (s *WorldState) AddFaction(f *Faction) *Faction {
	if existing, ok := s.Factions[f.ID]; ok {
		return existing
	}
	s.Factions[f.ID] = f
	return f
}

// NewFaction creates a human faction without a home sector.
func NewFaction(id, name string, race Race) *Faction {
	return &Faction{ID: id, Name: name, Race: race, HomeFace: -1}
}

// FactionFortresses counts the fortresses each faction owns.
func (s *WorldState) FactionFortresses() map[string]int {
	counts := make(map[string]int)
	for _, f := range s.Fortresses {
		if f.Owner != "" {
			counts[f.Owner]++
		}
	}
	return counts
}

func (s *WorldState) newPacketID() uint64 {
	s.NextPacketID++
	return s.NextPacketID
}

// WorldSnapshot is the serializable view of a world handed to transport and storage.
type WorldSnapshot struct {
	ID            string           `json:"id"`
	Tick          uint64           `json:"tick"`
	Vertices      [][3]float64     `json:"vertices"`
	Faces         [][3]int         `json:"faces"`
	FaceNeighbors [][]int          `json:"faceNeighbors"`
	Adjacency     [][]int          `json:"adjacency"`
	Terrain       []sphere.Terrain `json:"terrain"`
	Roads         []sphere.Road    `json:"roads"`
	Fortresses    []*Fortress      `json:"fortresses"`
	Factions      []*Faction       `json:"factions"`
	Edges         []*Edge          `json:"edges"`
	SectorOwners  []string         `json:"sectorOwners"`
	FaceColors    []uint32         `json:"faceColors"`
	Sanctuaries   []*Sanctuary     `json:"sanctuaries"`
	NextPacketID  uint64           `json:"nextPacketId"`
}

// Snapshot copies everything mutable so the result can be read without the tick lock.
// Generated geometry is never mutated and is shared.
func (s *WorldState) Snapshot() *WorldSnapshot {
	snap := &WorldSnapshot{
		ID:            s.ID,
		Tick:          s.Tick,
		Vertices:      s.World.Vertices,
		Faces:         s.World.Faces,
		FaceNeighbors: s.World.FaceNeighbors,
		Adjacency:     s.World.Adjacency,
		Terrain:       s.World.Terrain,
		Roads:         s.World.Roads,
		Fortresses:    make([]*Fortress, len(s.Fortresses)),
		Factions:      make([]*Faction, 0, len(s.Factions)),
		Edges:         make([]*Edge, len(s.Edges)),
		SectorOwners:  append([]string(nil), s.SectorOwners...),
		FaceColors:    append([]uint32(nil), s.FaceColors...),
		Sanctuaries:   make([]*Sanctuary, 0, len(s.Sanctuaries)),
		NextPacketID:  s.NextPacketID,
	}
	for i, f := range s.Fortresses {
		snap.Fortresses[i] = f.clone()
	}
	for _, f := range s.Factions {
		c := *f
		snap.Factions = append(snap.Factions, &c)
	}
	sort.Slice(snap.Factions, func(i, j int) bool { return snap.Factions[i].ID < snap.Factions[j].ID })
	for i, e := range s.Edges {
		snap.Edges[i] = e.clone()
	}
	for _, sanc := range s.Sanctuaries {
		c := *sanc
		snap.Sanctuaries = append(snap.Sanctuaries, &c)
	}
	sort.Slice(snap.Sanctuaries, func(i, j int) bool { return snap.Sanctuaries[i].Face < snap.Sanctuaries[j].Face })
	return snap
}

// RestoreSnapshot rebuilds a live state from a snapshot.
func RestoreSnapshot(snap *WorldSnapshot, cfg tuning.Tuning, rng *rand.Rand) (*WorldState, error) {
	if snap == nil {
		return nil, fmt.Errorf("%w: nil snapshot", ErrCorruptSnapshot)
	}
	numVerts, numFaces := len(snap.Vertices), len(snap.Faces)
	switch {
	case numVerts == 0 || numFaces == 0:
		return nil, fmt.Errorf("%w: empty geometry", ErrCorruptSnapshot)
	case len(snap.Fortresses) != numVerts:
		return nil, fmt.Errorf("%w: %d fortresses for %d vertices", ErrCorruptSnapshot, len(snap.Fortresses), numVerts)
	case len(snap.Adjacency) != numVerts:
		return nil, fmt.Errorf("%w: adjacency length %d", ErrCorruptSnapshot, len(snap.Adjacency))
	case len(snap.Terrain) != numFaces || len(snap.FaceNeighbors) != numFaces:
		return nil, fmt.Errorf("%w: face arrays do not match %d faces", ErrCorruptSnapshot, numFaces)
	case len(snap.SectorOwners) != numFaces || len(snap.FaceColors) != numFaces:
		return nil, fmt.Errorf("%w: sector arrays do not match %d faces", ErrCorruptSnapshot, numFaces)
	}

	mesh := &sphere.Mesh{Vertices: snap.Vertices, Faces: snap.Faces}
	world := &sphere.World{
		Vertices:      snap.Vertices,
		Faces:         snap.Faces,
		FaceNeighbors: snap.FaceNeighbors,
		Terrain:       snap.Terrain,
		Roads:         snap.Roads,
		Adjacency:     snap.Adjacency,
		MeshAdjacency: mesh.VertexAdjacency(),
		VertexFaces:   mesh.VertexFaces(),
	}

	s := &WorldState{
		ID:           snap.ID,
		Tick:         snap.Tick,
		World:        world,
		Fortresses:   make([]*Fortress, numVerts),
		Factions:     make(map[string]*Faction, len(snap.Factions)),
		Edges:        make([]*Edge, len(snap.Edges)),
		SectorOwners: append([]string(nil), snap.SectorOwners...),
		FaceColors:   append([]uint32(nil), snap.FaceColors...),
		Sanctuaries:  make(map[int]*Sanctuary, len(snap.Sanctuaries)),
		NextPacketID: snap.NextPacketID,
		dominant:     make([]string, numVerts),
		cfg:          cfg,
		rng:          rng,
	}
	for i, f := range snap.Fortresses {
		if f == nil || f.ID != i {
			return nil, fmt.Errorf("%w: fortress %d out of place", ErrCorruptSnapshot, i)
		}
		s.Fortresses[i] = f.clone()
	}
	for _, f := range snap.Factions {
		c := *f
		s.Factions[c.ID] = &c
	}
	for i, e := range snap.Edges {
		s.Edges[i] = e.clone()
	}
	for _, sanc := range snap.Sanctuaries {
		c := *sanc
		s.Sanctuaries[c.Face] = &c
	}
	s.indexEdges()
	s.rebuildDominantCache()
	return s, nil
}
