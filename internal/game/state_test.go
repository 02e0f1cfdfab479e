package game

import (
	"encoding/json"
	"math"
	"math/rand"
	"reflect"
	"strings"
	"testing"

	"valhalla/internal/tuning"
	"valhalla/pkg/sphere"
)

// Helper to build a tuning that paints every face plain on a bare icosahedron.
func plainTuning() tuning.Tuning {
	cfg := tuning.Default()
	cfg.World = tuning.World{Subdivisions: 0}
	cfg.AI.Factions = nil
	return cfg
}

// Helper to create a small all-plain world with two human factions and no AI.
func newTestState(t *testing.T) *WorldState {
	t.Helper()
	s := NewWorldState(plainTuning(), rand.New(rand.NewSource(1)))
	for _, f := range s.Fortresses {
		f.Type = TypeKeep
		f.Units = 10
	}
	s.AddFaction(NewFaction("A", "Alpha", RaceHuman))
	s.AddFaction(NewFaction("B", "Bravo", RaceOrc))
	return s
}

func own(s *WorldState, owner string, race Race, ids ...int) {
	for _, id := range ids {
		s.Fortresses[id].Owner = owner
		s.Fortresses[id].Race = race
	}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestNewTestStateIsAllPlain(t *testing.T) {
	s := newTestState(t)
	if len(s.Fortresses) != 12 || len(s.World.Faces) != 20 {
		t.Fatalf("expected 12 fortresses and 20 faces, got %d and %d", len(s.Fortresses), len(s.World.Faces))
	}
	if len(s.Edges) != 30 {
		t.Fatalf("expected every icosahedron edge to be a road, got %d", len(s.Edges))
	}
	for _, terr := range s.World.Terrain {
		if terr != sphere.TerrainPlain {
			t.Fatalf("expected plain terrain, got %s", terr)
		}
	}
}

func TestDominanceCache(t *testing.T) {
	s := newTestState(t)
	face := 0
	verts := s.World.Faces[face]

	t.Run("mixed owners", func(t *testing.T) {
		own(s, "A", RaceHuman, verts[0], verts[1])
		own(s, "B", RaceOrc, verts[2])
		s.RecomputeDominance()

		if s.SectorOwners[face] != "" {
			t.Errorf("sector {A,A,B} should have no owner, got %q", s.SectorOwners[face])
		}
		for _, v := range verts {
			if s.Dominated(s.Fortresses[v]) {
				t.Errorf("fortress %d should not be in the dominance cache", v)
			}
		}
		if _, ok := s.Sanctuaries[face]; ok {
			t.Error("no sanctuary expected on a contested sector")
		}
	})

	t.Run("single owner", func(t *testing.T) {
		own(s, "A", RaceHuman, verts[2])
		changed := s.RecomputeDominance()

		if !changed {
			t.Error("expected a color change")
		}
		if s.SectorOwners[face] != "A" {
			t.Errorf("sector {A,A,A} should be owned by A, got %q", s.SectorOwners[face])
		}
		for _, v := range verts {
			if !s.Dominated(s.Fortresses[v]) {
				t.Errorf("fortress %d should be in the dominance cache", v)
			}
			if !s.Fortresses[v].SpecialActive {
				t.Errorf("fortress %d should be marked special-active", v)
			}
		}
		if want := darken(RaceHuman.Stats().Color, ownedFaceFactor); s.FaceColors[face] != want {
			t.Errorf("expected face color %06x, got %06x", want, s.FaceColors[face])
		}
		if _, ok := s.Sanctuaries[face]; !ok {
			t.Error("expected a sanctuary on the owned sector")
		}
	})

	t.Run("unchanged", func(t *testing.T) {
		if s.RecomputeDominance() {
			t.Error("expected no color change on a stable board")
		}
	})

	t.Run("lost", func(t *testing.T) {
		own(s, "", RaceNeutral, verts[1])
		s.RecomputeDominance()
		if s.SectorOwners[face] != "" {
			t.Error("sector should lose its owner")
		}
		if s.FaceColors[face] != sphere.TerrainPlain.Color() {
			t.Errorf("expected terrain color back, got %06x", s.FaceColors[face])
		}
		if _, ok := s.Sanctuaries[face]; ok {
			t.Error("sanctuary should be destroyed")
		}
	})
}

func TestSnapshotRoundTrip(t *testing.T) {
	cfg := tuning.Default()
	s := NewWorldState(cfg, rand.New(rand.NewSource(11)))
	for i := 0; i < 5; i++ {
		s.Tick++
		s.RecomputeDominance()
		s.RunAI()
		s.ProduceUnits()
		s.ApplyUpgrades()
		s.ResolveCombat()
	}

	raw, err := json.Marshal(s.Snapshot())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back WorldSnapshot
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !reflect.DeepEqual(back.Vertices, s.World.Vertices) {
		t.Error("vertices differ after round trip")
	}
	if !reflect.DeepEqual(back.Faces, s.World.Faces) {
		t.Error("faces differ after round trip")
	}
	if !reflect.DeepEqual(back.Adjacency, s.World.Adjacency) {
		t.Error("adjacency differs after round trip")
	}
	if !reflect.DeepEqual(back.Terrain, s.World.Terrain) {
		t.Error("terrain differs after round trip")
	}

	restored, err := RestoreSnapshot(&back, cfg, rand.New(rand.NewSource(12)))
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.Tick != s.Tick || restored.ID != s.ID {
		t.Errorf("restored tick/id mismatch: %d/%s vs %d/%s", restored.Tick, restored.ID, s.Tick, s.ID)
	}
	for i, f := range s.Fortresses {
		r := restored.Fortresses[i]
		if r.Owner != f.Owner || r.Type != f.Type || r.Tier != f.Tier || !approx(r.Units, f.Units) {
			t.Fatalf("fortress %d differs after restore: %+v vs %+v", i, r, f)
		}
		if restored.Dominated(r) != s.Dominated(f) {
			t.Fatalf("fortress %d dominance cache differs after restore", i)
		}
	}
	if len(restored.Factions) != len(s.Factions) {
		t.Errorf("expected %d factions, got %d", len(s.Factions), len(restored.Factions))
	}
}

func TestSnapshotIsDetached(t *testing.T) {
	s := newTestState(t)
	own(s, "A", RaceHuman, 0)
	snap := s.Snapshot()

	s.Fortresses[0].Units = 99
	s.Fortresses[0].Paths = append(s.Fortresses[0].Paths, 1)

	if snap.Fortresses[0].Units == 99 || len(snap.Fortresses[0].Paths) != 0 {
		t.Error("snapshot should not observe later mutations")
	}
}

func TestSnapshotEncodesEmptyPaths(t *testing.T) {
	s := newTestState(t)
	raw, err := json.Marshal(s.Snapshot().Fortresses[0])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), `"paths":[]`) {
		t.Errorf("idle fortress should encode an empty path list, got %s", raw)
	}
	if strings.Contains(string(raw), "null") {
		t.Errorf("unexpected null in %s", raw)
	}
}

func TestRestoreRejectsCorruptSnapshot(t *testing.T) {
	s := newTestState(t)
	snap := s.Snapshot()
	snap.Fortresses = snap.Fortresses[:3]

	if _, err := RestoreSnapshot(snap, plainTuning(), nil); err == nil {
		t.Error("expected an error for a truncated fortress list")
	}
	if _, err := RestoreSnapshot(nil, plainTuning(), nil); err == nil {
		t.Error("expected an error for a nil snapshot")
	}
}

func TestInitializeFortressesUsesLegalTypes(t *testing.T) {
	cfg := tuning.Default()
	s := NewWorldState(cfg, rand.New(rand.NewSource(5)))

	for _, f := range s.Fortresses {
		if f.Owner == "" {
			if f.Units < float64(cfg.Gameplay.NeutralMin) || f.Units > float64(cfg.Gameplay.NeutralMax) {
				t.Errorf("fortress %d neutral garrison %f out of range", f.ID, f.Units)
			}
		}
		if !f.CanBuild(f.Type) {
			t.Errorf("fortress %d has type %s not legal for %v", f.ID, f.Type, f.LandTouch)
		}
		if f.Tier != 1 || len(f.Paths) != 0 {
			t.Errorf("fortress %d should start at tier 1 with no paths", f.ID)
		}
		if f.Name == "" {
			t.Errorf("fortress %d has no name", f.ID)
		}
	}
}
