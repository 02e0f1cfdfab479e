package sphere

import (
	"math"
	"sort"
)

// Mesh is a closed triangulated sphere.
type Mesh struct {
	Vertices [][3]float64
	Faces    [][3]int
}

var icosahedronFaces = [][3]int{
	{0, 11, 5}, {0, 5, 1}, {0, 1, 7}, {0, 7, 10}, {0, 10, 11},
	{1, 5, 9}, {5, 11, 4}, {11, 10, 2}, {10, 7, 6}, {7, 1, 8},
	{3, 9, 4}, {3, 4, 2}, {3, 2, 6}, {3, 6, 8}, {3, 8, 9},
	{4, 9, 5}, {2, 4, 11}, {6, 2, 10}, {8, 6, 7}, {9, 8, 1},
}

// NewIcosphere builds a unit icosphere. Each subdivision splits every triangle into
// four, so depth d yields 20*4^d faces and 10*4^d+2 vertices.
func NewIcosphere(subdivisions int) *Mesh {
	t := (1.0 + math.Sqrt(5.0)) / 2.0
	vertices := [][3]float64{
		{-1, t, 0}, {1, t, 0}, {-1, -t, 0}, {1, -t, 0},
		{0, -1, t}, {0, 1, t}, {0, -1, -t}, {0, 1, -t},
		{t, 0, -1}, {t, 0, 1}, {-t, 0, -1}, {-t, 0, 1},
	}
	faces := make([][3]int, len(icosahedronFaces))
	copy(faces, icosahedronFaces)

	for i := 0; i < subdivisions; i++ {
		// Midpoints are shared between the two faces of an edge.
		midCache := make(map[EdgeKey]int)
		midpoint := func(a, b int) int {
			key := MakeEdgeKey(a, b)
			if idx, ok := midCache[key]; ok {
				return idx
			}
			v1, v2 := vertices[a], vertices[b]
			mid := normalize([3]float64{
				(v1[0] + v2[0]) / 2,
				(v1[1] + v2[1]) / 2,
				(v1[2] + v2[2]) / 2,
			})
			idx := len(vertices)
			vertices = append(vertices, mid)
			midCache[key] = idx
			return idx
		}

		next := make([][3]int, 0, len(faces)*4)
		for _, tri := range faces {
			a := midpoint(tri[0], tri[1])
			b := midpoint(tri[1], tri[2])
			c := midpoint(tri[2], tri[0])
			next = append(next,
				[3]int{tri[0], a, c},
				[3]int{tri[1], b, a},
				[3]int{tri[2], c, b},
				[3]int{a, b, c},
			)
		}
		faces = next
	}

	for i := range vertices {
		vertices[i] = normalize(vertices[i])
	}

	return &Mesh{Vertices: vertices, Faces: faces}
}

func normalize(v [3]float64) [3]float64 {
	length := math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	if length == 0 {
		return v
	}
	return [3]float64{v[0] / length, v[1] / length, v[2] / length}
}

// EdgeFaces maps every mesh edge to the faces that share it.
func (m *Mesh) EdgeFaces() map[EdgeKey][]int {
	out := make(map[EdgeKey][]int, len(m.Faces)*3/2)
	for i, face := range m.Faces {
		for _, e := range FaceEdges(face) {
			out[e] = append(out[e], i)
		}
	}
	return out
}

// FaceNeighbors returns, for each face, the faces it shares an edge with.
func (m *Mesh) FaceNeighbors() [][]int {
	neighbors := make([][]int, len(m.Faces))
	for _, faces := range m.EdgeFaces() {
		if len(faces) != 2 {
			continue
		}
		f1, f2 := faces[0], faces[1]
		neighbors[f1] = append(neighbors[f1], f2)
		neighbors[f2] = append(neighbors[f2], f1)
	}
	for i := range neighbors {
		sort.Ints(neighbors[i])
	}
	return neighbors
}

// VertexAdjacency returns, for each vertex, every vertex it shares a face edge with.
func (m *Mesh) VertexAdjacency() [][]int {
	sets := make([]map[int]bool, len(m.Vertices))
	for i := range sets {
		sets[i] = make(map[int]bool)
	}
	for _, face := range m.Faces {
		for _, e := range FaceEdges(face) {
			sets[e.U][e.V] = true
			sets[e.V][e.U] = true
		}
	}
	return sortedSets(sets)
}

// VertexFaces returns the faces incident to each vertex.
func (m *Mesh) VertexFaces() [][]int {
	out := make([][]int, len(m.Vertices))
	for i, face := range m.Faces {
		for _, v := range face {
			out[v] = append(out[v], i)
		}
	}
	return out
}

func sortedSets(sets []map[int]bool) [][]int {
	out := make([][]int, len(sets))
	for i, s := range sets {
		list := make([]int, 0, len(s))
		for v := range s {
			list = append(list, v)
		}
		sort.Ints(list)
		out[i] = list
	}
	return out
}
