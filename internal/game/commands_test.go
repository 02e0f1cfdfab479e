package game

import (
	"errors"
	"testing"

	"valhalla/pkg/sphere"
)

func nonNeighbor(s *WorldState, v int) int {
	for id := range s.Fortresses {
		if id != v && !s.IsAdjacent(v, id) {
			return id
		}
	}
	return -1
}

func TestTogglePath(t *testing.T) {
	s := newTestState(t)
	own(s, "A", RaceHuman, 0)
	n := s.Neighbors(0)

	t.Run("add", func(t *testing.T) {
		if err := s.TogglePath(0, n[0], "A"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !s.Fortresses[0].HasPath(n[0]) {
			t.Error("expected path to be added")
		}
	})

	t.Run("capacity", func(t *testing.T) {
		err := s.TogglePath(0, n[1], "A")
		if !errors.Is(err, ErrPathCapacity) {
			t.Errorf("expected ErrPathCapacity, got %v", err)
		}
	})

	t.Run("remove", func(t *testing.T) {
		if err := s.TogglePath(0, n[0], "A"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(s.Fortresses[0].Paths) != 0 {
			t.Error("expected path to be removed")
		}
	})

	t.Run("not owner", func(t *testing.T) {
		if err := s.TogglePath(0, n[0], "B"); !errors.Is(err, ErrNotOwner) {
			t.Errorf("expected ErrNotOwner, got %v", err)
		}
	})

	t.Run("not adjacent", func(t *testing.T) {
		far := nonNeighbor(s, 0)
		if err := s.TogglePath(0, far, "A"); !errors.Is(err, ErrNotAdjacent) {
			t.Errorf("expected ErrNotAdjacent, got %v", err)
		}
	})

	t.Run("unknown fortress", func(t *testing.T) {
		if err := s.TogglePath(0, 999, "A"); !errors.Is(err, ErrUnknownFortress) {
			t.Errorf("expected ErrUnknownFortress, got %v", err)
		}
	})

	t.Run("tier 2 allows two", func(t *testing.T) {
		s.Fortresses[0].Tier = 2
		if err := s.TogglePath(0, n[0], "A"); err != nil {
			t.Fatal(err)
		}
		if err := s.TogglePath(0, n[1], "A"); err != nil {
			t.Fatal(err)
		}
		if got := s.Fortresses[0].Paths; len(got) != 2 || got[0] != n[0] || got[1] != n[1] {
			t.Errorf("expected paths in insertion order, got %v", got)
		}
	})
}

func TestSpecialize(t *testing.T) {
	s := newTestState(t)
	own(s, "A", RaceHuman, 0)

	if err := s.Specialize(0, TypeTower, "A"); err != nil {
		t.Fatalf("tower is legal on plain: %v", err)
	}
	if s.Fortresses[0].Type != TypeTower {
		t.Errorf("expected Tower, got %s", s.Fortresses[0].Type)
	}
	if err := s.Specialize(0, TypeBlacksmith, "A"); !errors.Is(err, ErrIllegalType) {
		t.Errorf("expected ErrIllegalType, got %v", err)
	}
	if err := s.Specialize(0, TypeGrainFarm, "B"); !errors.Is(err, ErrNotOwner) {
		t.Errorf("expected ErrNotOwner, got %v", err)
	}
}

func TestAssignHomeSectorIsIdempotent(t *testing.T) {
	s := newTestState(t)

	face, err := s.AssignHomeSector("A")
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	verts := s.World.Faces[face]
	share := s.cfg.Gameplay.StartingUnits / 3
	for i, v := range verts {
		f := s.Fortresses[v]
		if f.Owner != "A" || f.Race != RaceHuman {
			t.Errorf("vertex %d not seated for A", v)
		}
		if !approx(f.Units, share) {
			t.Errorf("expected %f units, got %f", share, f.Units)
		}
		if f.IsCapital != (i == 0) {
			t.Errorf("only the first vertex should be the capital")
		}
	}

	s.Fortresses[verts[0]].Units = 33
	again, err := s.AssignHomeSector("A")
	if err != nil {
		t.Fatalf("second assign: %v", err)
	}
	if again != face {
		t.Errorf("expected the same sector %d, got %d", face, again)
	}
	if s.Fortresses[verts[0]].Units != 33 {
		t.Error("second call should not touch the garrison")
	}
	if got := s.FactionFortresses()["A"]; got != 3 {
		t.Errorf("expected A to hold 3 fortresses, got %d", got)
	}
}

func TestAssignHomeSectorSkipsClaimedAndUnknown(t *testing.T) {
	s := newTestState(t)
	if _, err := s.AssignHomeSector("nobody"); !errors.Is(err, ErrUnknownFaction) {
		t.Errorf("expected ErrUnknownFaction, got %v", err)
	}

	for _, f := range s.Fortresses {
		f.Owner = "B"
	}
	if _, err := s.AssignHomeSector("A"); !errors.Is(err, ErrHomeUnavailable) {
		t.Errorf("expected ErrHomeUnavailable, got %v", err)
	}
}

func TestLegalTypesUnion(t *testing.T) {
	touch := []sphere.Terrain{sphere.TerrainMountain, sphere.TerrainFarm}
	legal := LegalTypes(touch)

	want := []FortressType{TypeKeep, TypeGrainFarm, TypeLivestockFarm, TypeTower, TypeLaboratory, TypeBlacksmith}
	if len(legal) != len(want) {
		t.Fatalf("expected %v, got %v", want, legal)
	}
	for i := range want {
		if legal[i] != want[i] {
			t.Errorf("expected %v, got %v", want, legal)
		}
	}

	farmOnly := &Fortress{LandTouch: []sphere.Terrain{sphere.TerrainFarm, sphere.TerrainFarm}}
	if got := farmOnly.BaselineType(); got != TypeGrainFarm {
		t.Errorf("farm-only vertex should fall back to Grain Farm, got %s", got)
	}
}

func TestProductionExclusivity(t *testing.T) {
	s := newTestState(t)
	own(s, "A", RaceHuman, 0, 1)
	sending := s.Fortresses[0]
	sending.Paths = []int{s.Neighbors(0)[0]}
	idle := s.Fortresses[1]

	s.ProduceUnits()

	if sending.Units != 10 {
		t.Errorf("fortress with paths should not produce, got %f", sending.Units)
	}
	if !approx(idle.Units, 10+TypeKeep.Stats().Gen) {
		t.Errorf("idle fortress should produce %f, got %f", TypeKeep.Stats().Gen, idle.Units)
	}
}

func TestProductionDominanceAndCap(t *testing.T) {
	s := newTestState(t)
	verts := s.World.Faces[0]
	own(s, "A", RaceHuman, verts[0], verts[1], verts[2])
	s.RecomputeDominance()

	f := s.Fortresses[verts[0]]
	s.ProduceUnits()
	if want := 10 + TypeKeep.Stats().Gen*s.cfg.Gameplay.DominanceBonus; !approx(f.Units, want) {
		t.Errorf("expected dominance boosted %f, got %f", want, f.Units)
	}

	f.Units = f.Capacity() - 0.2
	s.ProduceUnits()
	if f.Units != f.Capacity() {
		t.Errorf("expected production capped at %f, got %f", f.Capacity(), f.Units)
	}

	f.Units = f.Capacity() + 25
	s.ProduceUnits()
	if f.Units != f.Capacity()+25 {
		t.Error("overflow from reinforcement should be kept")
	}
}

func TestUpgradesTruncatePaths(t *testing.T) {
	s := newTestState(t)
	own(s, "A", RaceHuman, 0, 1)
	n := s.Neighbors(0)

	rich := s.Fortresses[0]
	cost := s.cfg.Gameplay.UpgradeCosts[0]
	rich.Units = cost + s.cfg.Gameplay.UpgradeBuffer
	s.ApplyUpgrades()
	if rich.Tier != 2 || !approx(rich.Units, s.cfg.Gameplay.UpgradeBuffer) {
		t.Errorf("expected tier 2 with %f left, got tier %d with %f", s.cfg.Gameplay.UpgradeBuffer, rich.Tier, rich.Units)
	}

	over := s.Fortresses[1]
	over.Paths = []int{n[0], n[1], n[2]}
	over.Tier = 1
	s.ApplyUpgrades()
	if len(over.Paths) != 1 || over.Paths[0] != n[0] {
		t.Errorf("expected paths trimmed to the oldest, got %v", over.Paths)
	}

	rich.Tier = MaxTier
	rich.Units = 1000
	s.ApplyUpgrades()
	if rich.Tier != MaxTier {
		t.Errorf("tier must not exceed %d", MaxTier)
	}
}
