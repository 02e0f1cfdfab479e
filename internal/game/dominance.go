package game

// ownedFaceFactor darkens the owner's race color on a fully held sector.
const ownedFaceFactor = 0.3

// sectorOwner returns the owner shared by all three vertices, or "".
func (s *WorldState) sectorOwner(face int) string {
	verts := s.World.Faces[face]
	owner := s.Fortresses[verts[0]].Owner
	if owner == "" {
		return ""
	}
	if s.Fortresses[verts[1]].Owner != owner || s.Fortresses[verts[2]].Owner != owner {
		return ""
	}
	return owner
}

func (s *WorldState) faceColor(face int, owner string) uint32 {
	if owner == "" {
		return s.World.Terrain[face].Color()
	}
	race := s.Fortresses[s.World.Faces[face][0]].Race
	return darken(race.Stats().Color, ownedFaceFactor)
}

// RecomputeDominance refreshes sector owners, the per-vertex dominance cache and
// the sanctuaries. It returns true only when a face color changed.
func (s *WorldState) RecomputeDominance() bool {
	changed := false
	for face := range s.World.Faces {
		owner := s.sectorOwner(face)
		if owner == s.SectorOwners[face] {
			continue
		}
		s.SectorOwners[face] = owner
		s.FaceColors[face] = s.faceColor(face, owner)
		changed = true
	}
	s.rebuildDominantCache()
	s.syncSanctuaries()
	return changed
}

// rebuildDominantCache is the only per-tick scan over all faces. Production and
// combat read the cache instead.
func (s *WorldState) rebuildDominantCache() {
	for i := range s.dominant {
		s.dominant[i] = ""
	}
	for face, owner := range s.SectorOwners {
		if owner == "" {
			continue
		}
		for _, v := range s.World.Faces[face] {
			s.dominant[v] = owner
		}
	}
	for v, f := range s.Fortresses {
		f.SpecialActive = s.dominant[v] != ""
	}
}

func (s *WorldState) syncSanctuaries() {
	for face, sanc := range s.Sanctuaries {
		if s.SectorOwners[face] != sanc.Owner {
			delete(s.Sanctuaries, face)
		}
	}
	for face, owner := range s.SectorOwners {
		if owner == "" {
			continue
		}
		avg := s.averageTier(face)
		sanc, ok := s.Sanctuaries[face]
		if !ok {
			sanc = &Sanctuary{Face: face, Owner: owner, Cooldown: s.specialFor(avg).Cooldown}
			s.Sanctuaries[face] = sanc
		}
		sanc.AvgTier = avg
	}
}

func (s *WorldState) averageTier(face int) float64 {
	total := 0
	for _, v := range s.World.Faces[face] {
		total += s.Fortresses[v].Tier
	}
	return float64(total) / 3
}

// specialFor picks the unit a sanctuary of the given average tier spawns.
func (s *WorldState) specialFor(avgTier float64) SpecialUnit {
	if avgTier >= s.cfg.Gameplay.TitanTierMinimum {
		return Titan
	}
	return Hero
}
