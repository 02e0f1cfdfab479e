package sphere

import (
	"math/rand"
	"sort"
	"time"
)

// GeneratorOptions contains settings for world generation.
type GeneratorOptions struct {
	Subdivisions int // Icosphere depth: 0-5

	Oceans     int     // Number of deep-sea blobs to grow
	MinDeepSea float64 // Lower bound of the deep-sea face fraction
	MaxDeepSea float64 // Upper bound of the deep-sea face fraction

	HillChance  float64 // Per-face roll on plain land
	SwampChance float64 // Rolled after hills, mutually exclusive

	ForestFraction float64 // Forest clusters per land face
	ForestMinSize  int
	ForestMaxSize  int

	MountainFraction  float64 // Mountain ranges per land face
	MountainMinLength int
	MountainMaxLength int

	LavaRivers    int
	LavaMinLength int
	LavaMaxLength int

	WasteChance float64
	FarmChance  float64 // Only rolled next to a plain
}

// DefaultOptions returns default generator options. Lava is scaled down from
// 25 rivers of 15-35 faces to suit a depth-2 (320 face) world.
func DefaultOptions() GeneratorOptions {
	return GeneratorOptions{
		Subdivisions:      2,
		Oceans:            4,
		MinDeepSea:        0.20,
		MaxDeepSea:        0.40,
		HillChance:        0.25,
		SwampChance:       0.15,
		ForestFraction:    0.05,
		ForestMinSize:     3,
		ForestMaxSize:     8,
		MountainFraction:  0.02,
		MountainMinLength: 8,
		MountainMaxLength: 22,
		LavaRivers:        2,
		LavaMinLength:     3,
		LavaMaxLength:     8,
		WasteChance:       0.03,
		FarmChance:        0.02,
	}
}

// Generator handles procedural world generation.
type Generator struct {
	options   GeneratorOptions
	rng       *rand.Rand
	mesh      *Mesh
	neighbors [][]int
	terrain   []Terrain
}

// NewGenerator creates a world generator. A nil rng seeds from the clock.
func NewGenerator(opts GeneratorOptions, rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	opts.Subdivisions = clamp(opts.Subdivisions, 0, 5)
	return &Generator{options: opts, rng: rng}
}

// clamp restricts a value to a range
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// Generate builds the mesh, paints terrain and prunes roads. It never fails: when a
// body runs out of free faces it simply stops short of its target size.
func (g *Generator) Generate() *World {
	g.mesh = NewIcosphere(g.options.Subdivisions)
	g.neighbors = g.mesh.FaceNeighbors()
	g.terrain = make([]Terrain, len(g.mesh.Faces))

	g.growOceans()
	g.drownIslands()
	g.paintCoasts()
	g.paintBiomes()

	return g.buildWorld()
}

func (g *Generator) growOceans() {
	if g.options.Oceans <= 0 {
		return
	}
	numFaces := len(g.terrain)
	fraction := g.uniform(g.options.MinDeepSea, g.options.MaxDeepSea)
	target := int(fraction * float64(numFaces))
	avgSize := target / g.options.Oceans
	if avgSize < 5 {
		avgSize = 5
	}

	occupied := make(map[int]bool)
	for i := 0; i < g.options.Oceans; i++ {
		available := make([]int, 0, numFaces)
		for f := 0; f < numFaces; f++ {
			if !occupied[f] {
				available = append(available, f)
			}
		}
		if len(available) == 0 {
			break
		}
		seed := available[g.rng.Intn(len(available))]
		size := int(float64(avgSize) * g.uniform(0.8, 1.2))
		for f := range g.growBody(seed, size, occupied) {
			occupied[f] = true
			g.terrain[f] = TerrainDeepSea
		}
	}
}

// drownIslands keeps the largest connected land mass and floods every other one.
func (g *Generator) drownIslands() {
	components := g.components(func(t Terrain) bool { return t != TerrainDeepSea })
	if len(components) <= 1 {
		return
	}
	largest := 0
	for i, comp := range components {
		if len(comp) > len(components[largest]) {
			largest = i
		}
	}
	for i, comp := range components {
		if i == largest {
			continue
		}
		for _, f := range comp {
			g.terrain[f] = TerrainDeepSea
		}
	}
}

func (g *Generator) paintCoasts() {
	coast := make([]int, 0)
	for f, t := range g.terrain {
		if t != TerrainDeepSea {
			continue
		}
		for _, n := range g.neighbors[f] {
			if g.terrain[n] != TerrainDeepSea {
				coast = append(coast, n)
			}
		}
	}
	for _, f := range coast {
		g.terrain[f] = TerrainSea
	}
}

func (g *Generator) paintBiomes() {
	land := g.facesWhere(func(t Terrain) bool { return t == TerrainPlain })
	for _, f := range land {
		r := g.rng.Float64()
		if r < g.options.HillChance {
			g.terrain[f] = TerrainHill
		} else if r < g.options.HillChance+g.options.SwampChance {
			g.terrain[f] = TerrainSwamp
		}
	}

	water := make(map[int]bool)
	for f, t := range g.terrain {
		if t.IsWater() {
			water[f] = true
		}
	}

	forestSeeds := make([]int, 0, len(land))
	for _, f := range land {
		if g.terrain[f] == TerrainPlain {
			forestSeeds = append(forestSeeds, f)
		}
	}
	if len(forestSeeds) > 0 {
		numForests := int(float64(len(land)) * g.options.ForestFraction)
		for i := 0; i < numForests; i++ {
			seed := forestSeeds[g.rng.Intn(len(forestSeeds))]
			size := g.between(g.options.ForestMinSize, g.options.ForestMaxSize)
			for f := range g.growBody(seed, size, water) {
				g.terrain[f] = TerrainForest
			}
		}
	}

	numRanges := int(float64(len(land)) * g.options.MountainFraction)
	for i := 0; i < numRanges; i++ {
		seeds := g.facesWhere(func(t Terrain) bool { return !t.IsWater() })
		if len(seeds) == 0 {
			break
		}
		length := g.between(g.options.MountainMinLength, g.options.MountainMaxLength)
		g.walk(seeds[g.rng.Intn(len(seeds))], length, TerrainMountain, func(t Terrain) bool {
			return !t.IsWater()
		})
	}

	for i := 0; i < g.options.LavaRivers; i++ {
		seeds := g.facesWhere(func(t Terrain) bool { return !t.IsWater() && t != TerrainMountain })
		if len(seeds) == 0 {
			break
		}
		length := g.between(g.options.LavaMinLength, g.options.LavaMaxLength)
		g.walk(seeds[g.rng.Intn(len(seeds))], length, TerrainLava, func(t Terrain) bool {
			return !t.IsWater() && t != TerrainMountain
		})
	}

	rest := g.facesWhere(func(t Terrain) bool {
		return !t.IsWater() && t != TerrainMountain && t != TerrainLava
	})
	for _, f := range rest {
		if g.rng.Float64() < g.options.WasteChance {
			g.terrain[f] = TerrainWaste
		}
		nearPlain := false
		for _, n := range g.neighbors[f] {
			if g.terrain[n] == TerrainPlain {
				nearPlain = true
				break
			}
		}
		if nearPlain && g.rng.Float64() < g.options.FarmChance {
			g.terrain[f] = TerrainFarm
		}
	}
}

// growBody expands a blob from start by repeatedly claiming a random frontier face.
// Picking uniformly from the frontier instead of breadth-first gives ragged edges.
func (g *Generator) growBody(start, target int, occupied map[int]bool) map[int]bool {
	body := map[int]bool{start: true}
	frontier := make([]int, 0)
	inFrontier := make(map[int]bool)
	push := func(f int) {
		for _, n := range g.neighbors[f] {
			if !body[n] && !occupied[n] && !inFrontier[n] {
				frontier = append(frontier, n)
				inFrontier[n] = true
			}
		}
	}
	push(start)

	for len(body) < target && len(frontier) > 0 {
		idx := g.rng.Intn(len(frontier))
		cur := frontier[idx]
		frontier = append(frontier[:idx], frontier[idx+1:]...)
		delete(inFrontier, cur)
		if occupied[cur] || body[cur] {
			continue
		}
		body[cur] = true
		push(cur)
	}
	return body
}

// walk paints a random path of faces, stopping early when boxed in.
func (g *Generator) walk(start, length int, paint Terrain, allowed func(Terrain) bool) {
	cur := start
	for i := 0; i < length; i++ {
		g.terrain[cur] = paint
		next := make([]int, 0, 3)
		for _, n := range g.neighbors[cur] {
			if allowed(g.terrain[n]) {
				next = append(next, n)
			}
		}
		if len(next) == 0 {
			return
		}
		cur = next[g.rng.Intn(len(next))]
	}
}

// components finds the face-connected groups of faces matching keep.
func (g *Generator) components(keep func(Terrain) bool) [][]int {
	visited := make([]bool, len(g.terrain))
	var out [][]int
	for start, t := range g.terrain {
		if visited[start] || !keep(t) {
			continue
		}
		comp := []int{start}
		visited[start] = true
		queue := []int{start}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, n := range g.neighbors[cur] {
				if !visited[n] && keep(g.terrain[n]) {
					visited[n] = true
					comp = append(comp, n)
					queue = append(queue, n)
				}
			}
		}
		out = append(out, comp)
	}
	return out
}

func (g *Generator) facesWhere(match func(Terrain) bool) []int {
	out := make([]int, 0, len(g.terrain))
	for f, t := range g.terrain {
		if match(t) {
			out = append(out, f)
		}
	}
	return out
}

func (g *Generator) uniform(lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + g.rng.Float64()*(hi-lo)
}

func (g *Generator) between(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + g.rng.Intn(hi-lo+1)
}

func (g *Generator) buildWorld() *World {
	edgeFaces := g.mesh.EdgeFaces()
	keys := make([]EdgeKey, 0, len(edgeFaces))
	for e := range edgeFaces {
		keys = append(keys, e)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].U != keys[j].U {
			return keys[i].U < keys[j].U
		}
		return keys[i].V < keys[j].V
	})

	adj := make([]map[int]bool, len(g.mesh.Vertices))
	for i := range adj {
		adj[i] = make(map[int]bool)
	}

	roads := make([]Road, 0, len(keys))
	for _, e := range keys {
		faces := edgeFaces[e]
		wet := false
		for _, f := range faces {
			if g.terrain[f].IsWater() {
				wet = true
				break
			}
		}
		if wet {
			continue
		}
		hazard := len(faces) == 2 &&
			g.terrain[faces[0]] == TerrainLava && g.terrain[faces[1]] == TerrainLava
		roads = append(roads, Road{U: e.U, V: e.V, Hazard: hazard})
		adj[e.U][e.V] = true
		adj[e.V][e.U] = true
	}

	return &World{
		Vertices:      g.mesh.Vertices,
		Faces:         g.mesh.Faces,
		FaceNeighbors: g.neighbors,
		Terrain:       g.terrain,
		Roads:         roads,
		Adjacency:     sortedSets(adj),
		MeshAdjacency: g.mesh.VertexAdjacency(),
		VertexFaces:   g.mesh.VertexFaces(),
	}
}
