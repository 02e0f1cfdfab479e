package sphere

import (
	"math/rand"
	"strconv"
)

// Name pools, themed by the terrain around a vertex.
var (
	namesCoastal  = []string{"Haven", "Landing", "Point", "Strand", "Skerry", "Firth", "Wick", "Harbor"}
	namesHighland = []string{"Ridge", "Crag", "Fell", "Tor", "Peak", "Spire", "Scar", "Pike"}
	namesWoodland = []string{"Woods", "Glen", "Holt", "Grove", "Shaw", "Thicket", "Hollow", "Weald"}
	namesLowland  = []string{"Fields", "Meadows", "Dale", "Mire", "Fen", "Moor", "Brook", "Springs"}
	namesScorched = []string{"Ash", "Cinder", "Forge", "Ember", "Slag", "Brand"}
	namesGeneric  = []string{"Plains", "Valley", "Hills", "Stead", "Garth", "Hold", "Watch", "Gate"}

	nameSuffixes = []string{"", "", "", "land", "ton", "burg", "ford", "heim", "gard"}
	namePrefixes = []string{"New", "Old", "Upper", "Lower", "Greater", "Inner"}
)

// poleLatitude is the |z| above which a vertex counts as northern or southern.
const poleLatitude = 0.6

// Names gives every vertex a deterministic, unique place name. Vertices near the
// poles take North/South prefixes and those far along the x axis East/West.
func (w *World) Names() []string {
	names := make([]string, len(w.Vertices))
	seen := make(map[string]int, len(w.Vertices))
	for v := range w.Vertices {
		name := w.baseName(v)
		seen[name]++
		if n := seen[name]; n > 1 {
			name += " " + ordinal(n)
		}
		names[v] = name
	}
	return names
}

func (w *World) baseName(v int) string {
	r := rand.New(rand.NewSource(int64(v*7919 + 1)))
	pool := namePool(w.LandTouch(v))
	base := pool[r.Intn(len(pool))] + nameSuffixes[r.Intn(len(nameSuffixes))]

	p := w.Vertices[v]
	switch {
	case p[2] > poleLatitude:
		return "North " + base
	case p[2] < -poleLatitude:
		return "South " + base
	case p[0] > poleLatitude:
		return "East " + base
	case p[0] < -poleLatitude:
		return "West " + base
	}
	if r.Intn(3) == 0 {
		return namePrefixes[r.Intn(len(namePrefixes))] + " " + base
	}
	return base
}

// namePool picks the pool of the first notable terrain around a vertex.
func namePool(touch []Terrain) []string {
	for _, t := range touch {
		switch t {
		case TerrainSea, TerrainDeepSea:
			return namesCoastal
		case TerrainLava, TerrainWaste:
			return namesScorched
		}
	}
	for _, t := range touch {
		switch t {
		case TerrainMountain, TerrainHill:
			return namesHighland
		case TerrainForest:
			return namesWoodland
		case TerrainSwamp, TerrainFarm:
			return namesLowland
		}
	}
	return namesGeneric
}

var romans = []string{"", "", "II", "III", "IV", "V", "VI", "VII", "VIII", "IX", "X"}

func ordinal(n int) string {
	if n < len(romans) {
		return romans[n]
	}
	return strconv.Itoa(n)
}
