package game

// ProduceUnits grows every owned fortress that is not sending along a path. A
// fortress either produces or flows in a given tick, never both.
func (s *WorldState) ProduceUnits() bool {
	changed := false
	for _, f := range s.Fortresses {
		if f.Owner == "" || len(f.Paths) > 0 {
			continue
		}
		capacity := f.Capacity()
		if f.Units >= capacity {
			// Reinforcement overflow is kept, production just stops.
			continue
		}
		growth := f.Growth()
		if s.Dominated(f) {
			growth *= s.cfg.Gameplay.DominanceBonus
		}
		if growth <= 0 {
			continue
		}
		f.Units += growth
		if f.Units > capacity {
			f.Units = capacity
		}
		changed = true
	}
	return changed
}

// upgradeCost returns the cost of the next tier, or false at max tier.
func (s *WorldState) upgradeCost(tier int) (float64, bool) {
	costs := s.cfg.Gameplay.UpgradeCosts
	if tier < 1 || tier >= MaxTier || tier-1 >= len(costs) {
		return 0, false
	}
	return costs[tier-1], true
}

// ApplyUpgrades raises the tier of every owned fortress that can afford it with a
// safety buffer left over, then trims paths to the tier limit.
func (s *WorldState) ApplyUpgrades() bool {
	changed := false
	for _, f := range s.Fortresses {
		if f.Owner == "" {
			continue
		}
		if cost, ok := s.upgradeCost(f.Tier); ok && f.Units >= cost+s.cfg.Gameplay.UpgradeBuffer {
			f.Units -= cost
			f.Tier++
			changed = true
		}
		if f.TruncatePaths() {
			changed = true
		}
	}
	return changed
}
