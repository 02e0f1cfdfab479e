package game

import (
	"fmt"

	"valhalla/pkg/sphere"
)

// TogglePath adds or removes target from the source's outgoing paths.
func (s *WorldState) TogglePath(source, target int, factionID string) error {
	src, ok := s.Fortress(source)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownFortress, source)
	}
	if _, ok := s.Fortress(target); !ok {
		return fmt.Errorf("%w: %d", ErrUnknownFortress, target)
	}
	if src.Owner == "" || src.Owner != factionID {
		return ErrNotOwner
	}
	if source == target {
		return ErrSelfPath
	}
	if !s.IsAdjacent(source, target) {
		return ErrNotAdjacent
	}

	if src.RemovePath(target) {
		return nil
	}
	if len(src.Paths) >= src.Tier {
		return ErrPathCapacity
	}
	src.Paths = append(src.Paths, target)
	return nil
}

// Specialize converts a fortress to another type legal for its terrain.
func (s *WorldState) Specialize(id int, newType FortressType, factionID string) error {
	f, ok := s.Fortress(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownFortress, id)
	}
	if f.Owner == "" || f.Owner != factionID {
		return ErrNotOwner
	}
	if !f.CanBuild(newType) {
		return fmt.Errorf("%w: %s", ErrIllegalType, newType)
	}
	f.Type = newType
	return nil
}

// AssignHomeSector gives a faction an unclaimed land sector and splits the starting
// pool across its three fortresses. A faction that still holds ground keeps its
// home; one that was wiped out may be seated again.
func (s *WorldState) AssignHomeSector(factionID string) (int, error) {
	faction, ok := s.Factions[factionID]
	if !ok {
		return -1, fmt.Errorf("%w: %s", ErrUnknownFaction, factionID)
	}
	if faction.HomeFace >= 0 && s.holdsAny(faction.ID) {
		return faction.HomeFace, nil
	}

	candidates := make([]int, 0)
	for face, terrain := range s.World.Terrain {
		if terrain.IsWater() || terrain == sphere.TerrainMountain {
			continue
		}
		free := true
		for _, v := range s.World.Faces[face] {
			if s.Fortresses[v].Owner != "" {
				free = false
				break
			}
		}
		if free {
			candidates = append(candidates, face)
		}
	}
	if len(candidates) == 0 {
		return -1, ErrHomeUnavailable
	}

	face := candidates[s.rng.Intn(len(candidates))]
	share := s.cfg.Gameplay.StartingUnits / 3
	for i, v := range s.World.Faces[face] {
		f := s.Fortresses[v]
		f.Owner = faction.ID
		f.Race = faction.Race
		f.Units = share
		f.Tier = 1
		f.Paths = []int{}
		f.IsCapital = i == 0
	}
	faction.HomeFace = face
	return face, nil
}

func (s *WorldState) holdsAny(factionID string) bool {
	for _, f := range s.Fortresses {
		if f.Owner == factionID {
			return true
		}
	}
	return false
}
