// Package sphere handles world-graph generation: the icosphere mesh, its face and
// vertex adjacency, terrain painting and road pruning.
package sphere

import "fmt"

// Terrain is the biome painted on a face.
type Terrain int

const (
	TerrainPlain Terrain = iota
	TerrainDeepSea
	TerrainSea
	TerrainHill
	TerrainForest
	TerrainMountain
	TerrainSwamp
	TerrainWaste
	TerrainFarm
	TerrainLava
)

var terrainNames = map[Terrain]string{
	TerrainPlain:    "Plain",
	TerrainDeepSea:  "Deep Sea",
	TerrainSea:      "Sea",
	TerrainHill:     "Hill",
	TerrainForest:   "Forest",
	TerrainMountain: "Mountain",
	TerrainSwamp:    "Swamp",
	TerrainWaste:    "Waste",
	TerrainFarm:     "Farm",
	TerrainLava:     "Lava",
}

var terrainColors = map[Terrain]uint32{
	TerrainDeepSea:  0x000033,
	TerrainSea:      0x00008B,
	TerrainPlain:    0x90EE90,
	TerrainHill:     0x8B4513,
	TerrainForest:   0x006400,
	TerrainMountain: 0x808080,
	TerrainSwamp:    0x556B2F,
	TerrainWaste:    0xDEB887,
	TerrainFarm:     0xFFD700,
	TerrainLava:     0xFC470A,
}

// AllTerrains returns every terrain in declaration order.
func AllTerrains() []Terrain {
	return []Terrain{
		TerrainPlain, TerrainDeepSea, TerrainSea, TerrainHill, TerrainForest,
		TerrainMountain, TerrainSwamp, TerrainWaste, TerrainFarm, TerrainLava,
	}
}

// String returns the terrain name.
func (t Terrain) String() string {
	if name, ok := terrainNames[t]; ok {
		return name
	}
	return "None"
}

// IsWater returns true for open water, which blocks roads.
func (t Terrain) IsWater() bool {
	return t == TerrainDeepSea || t == TerrainSea
}

// Color returns the display color for the terrain.
func (t Terrain) Color() uint32 {
	if c, ok := terrainColors[t]; ok {
		return c
	}
	return 0xFF00FF
}

// ParseTerrain looks up a terrain by name.
func ParseTerrain(name string) (Terrain, error) {
	for t, n := range terrainNames {
		if n == name {
			return t, nil
		}
	}
	return TerrainPlain, fmt.Errorf("unknown terrain %q", name)
}

// MarshalText encodes the terrain by name so it can key JSON maps.
func (t Terrain) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a terrain name.
func (t *Terrain) UnmarshalText(b []byte) error {
	parsed, err := ParseTerrain(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// EdgeKey identifies a mesh edge by its endpoints, U < V.
type EdgeKey struct {
	U, V int
}

// MakeEdgeKey builds the canonical key for an unordered vertex pair.
func MakeEdgeKey(a, b int) EdgeKey {
	if a > b {
		a, b = b, a
	}
	return EdgeKey{U: a, V: b}
}

// Road is a traversable mesh edge.
type Road struct {
	U      int  `json:"u"`
	V      int  `json:"v"`
	Hazard bool `json:"hazard"` // both adjacent faces are lava
}

// World is the generated graph handed to the fortress registry.
type World struct {
	Vertices      [][3]float64
	Faces         [][3]int
	FaceNeighbors [][]int
	Terrain       []Terrain
	Roads         []Road
	// Adjacency lists only traversable neighbors, in ascending order.
	Adjacency [][]int
	// MeshAdjacency lists every mesh neighbor regardless of water.
	MeshAdjacency [][]int
	// VertexFaces lists the faces incident to each vertex.
	VertexFaces [][]int
}

// FaceColors returns the terrain color of each face.
func (w *World) FaceColors() []uint32 {
	colors := make([]uint32, len(w.Terrain))
	for i, t := range w.Terrain {
		colors[i] = t.Color()
	}
	return colors
}

// LandTouch returns the terrains of every face incident to the vertex.
func (w *World) LandTouch(vertex int) []Terrain {
	faces := w.VertexFaces[vertex]
	out := make([]Terrain, 0, len(faces))
	for _, f := range faces {
		out = append(out, w.Terrain[f])
	}
	return out
}

// FaceEdges returns the three edges of a face.
func FaceEdges(face [3]int) [3]EdgeKey {
	return [3]EdgeKey{
		MakeEdgeKey(face[0], face[1]),
		MakeEdgeKey(face[1], face[2]),
		MakeEdgeKey(face[2], face[0]),
	}
}
