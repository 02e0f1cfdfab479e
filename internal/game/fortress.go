package game

import (
	"math/rand"

	"valhalla/pkg/sphere"
)

// Fortress represents the stronghold on a single mesh vertex.
type Fortress struct {
	ID            int              `json:"id"`
	Name          string           `json:"name"`
	Owner         string           `json:"owner"` // Faction ID, empty if neutral
	Units         float64          `json:"units"`
	Race          Race             `json:"race"`
	Type          FortressType     `json:"type"`
	Tier          int              `json:"tier"`
	Paths         []int            `json:"paths"`     // Outgoing targets, oldest first
	Terrain       sphere.Terrain   `json:"terrain"`   // Most common incident terrain
	LandTouch     []sphere.Terrain `json:"landTouch"` // Terrain of every incident face
	IsCapital     bool             `json:"isCapital"`
	SpecialActive bool             `json:"specialActive"`
}

// MaxTier is the highest upgrade level.
const MaxTier = 3

// Bonus sums the terrain bonuses of every incident face.
func (f *Fortress) Bonus() TerrainBonus {
	var total TerrainBonus
	for _, t := range f.LandTouch {
		total = total.add(BonusFor(t))
	}
	return total
}

// LegalTypes returns the fortress types this vertex may hold.
func (f *Fortress) LegalTypes() []FortressType {
	return LegalTypes(f.LandTouch)
}

// CanBuild reports whether the type is legal for this vertex.
func (f *Fortress) CanBuild(t FortressType) bool {
	for _, legal := range f.LegalTypes() {
		if legal == t {
			return true
		}
	}
	return false
}

// BaselineType is the type a captured fortress falls back to.
func (f *Fortress) BaselineType() FortressType {
	legal := f.LegalTypes()
	for _, t := range legal {
		if t == TypeKeep {
			return TypeKeep
		}
	}
	return legal[0]
}

// Capacity is the production cap including terrain.
func (f *Fortress) Capacity() float64 {
	return f.Type.Stats().Cap + f.Bonus().Cap
}

// Growth is the base production per tick including terrain.
func (f *Fortress) Growth() float64 {
	return f.Type.Stats().Gen + f.Bonus().Gen
}

// AttackPower is the fortress's attack modifier before race and dominance.
func (f *Fortress) AttackPower() float64 {
	return f.Type.Stats().Atk + f.Bonus().Atk
}

// DefenseMultiplier combines race, type and terrain defense.
func (f *Fortress) DefenseMultiplier() float64 {
	mod := f.Type.Stats().Def + f.Bonus().Def
	if mod < 0.1 {
		mod = 0.1
	}
	return f.Race.Stats().Def * mod
}

// HasPath returns true if the fortress is sending to target.
func (f *Fortress) HasPath(target int) bool {
	for _, p := range f.Paths {
		if p == target {
			return true
		}
	}
	return false
}

// RemovePath drops a target, keeping the order of the rest.
func (f *Fortress) RemovePath(target int) bool {
	for i, p := range f.Paths {
		if p == target {
			f.Paths = append(f.Paths[:i], f.Paths[i+1:]...)
			return true
		}
	}
	return false
}

// TruncatePaths enforces |paths| <= tier.
func (f *Fortress) TruncatePaths() bool {
	limit := f.Tier
	if limit < 0 {
		limit = 0
	}
	if len(f.Paths) > limit {
		f.Paths = f.Paths[:limit]
		return true
	}
	return false
}

// clone returns a deep copy.
func (f *Fortress) clone() *Fortress {
	c := *f
	c.Paths = append(make([]int, 0, len(f.Paths)), f.Paths...)
	c.LandTouch = append(make([]sphere.Terrain, 0, len(f.LandTouch)), f.LandTouch...)
	return &c
}

// InitializeFortresses creates a neutral fortress on every vertex. The type is
// sampled from the vertex's legal set, weighted by spawn probability.
func InitializeFortresses(world *sphere.World, rng *rand.Rand, garrisonMin, garrisonMax int) []*Fortress {
	fortresses := make([]*Fortress, len(world.Vertices))
	names := world.Names()
	for v := range world.Vertices {
		touch := world.LandTouch(v)
		f := &Fortress{
			ID:        v,
			Name:      names[v],
			Race:      RaceNeutral,
			Tier:      1,
			Paths:     []int{},
			Terrain:   dominantTerrain(touch),
			LandTouch: touch,
		}
		f.Type = sampleType(f.LegalTypes(), rng)
		f.Units = float64(garrisonMin)
		if garrisonMax > garrisonMin {
			f.Units += float64(rng.Intn(garrisonMax - garrisonMin + 1))
		}
		fortresses[v] = f
	}
	return fortresses
}

func sampleType(legal []FortressType, rng *rand.Rand) FortressType {
	total := 0.0
	for _, t := range legal {
		total += t.Stats().Prob
	}
	if total <= 0 {
		return legal[0]
	}
	roll := rng.Float64() * total
	for _, t := range legal {
		roll -= t.Stats().Prob
		if roll < 0 {
			return t
		}
	}
	return legal[len(legal)-1]
}

// dominantTerrain returns the most common terrain, first seen on ties.
func dominantTerrain(touch []sphere.Terrain) sphere.Terrain {
	if len(touch) == 0 {
		return sphere.TerrainPlain
	}
	counts := make(map[sphere.Terrain]int)
	best := touch[0]
	for _, t := range touch {
		counts[t]++
		if counts[t] > counts[best] {
			best = t
		}
	}
	return best
}
