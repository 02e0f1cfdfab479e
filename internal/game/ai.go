package game

// RunAI evaluates every AI-owned fortress once. Each fortress may skip the tick
// according to its faction's reaction delay.
func (s *WorldState) RunAI() bool {
	ai := s.cfg.AI
	changed := false
	for _, f := range s.Fortresses {
		faction, ok := s.Factions[f.Owner]
		if !ok || !faction.IsAI {
			continue
		}
		profile := faction.Difficulty.Profile()
		if delay := profile.ReactionDelay; delay > 0 && s.rng.Intn(delay+1) != 0 {
			continue
		}

		if f.Type == TypeKeep && f.Units > ai.SpecializeThreshold {
			if s.specialize(f) {
				changed = true
				continue
			}
		}

		if f.Units < ai.RegrowThreshold && f.Tier < 2 {
			if len(f.Paths) > 0 {
				f.Paths = []int{}
				changed = true
			}
		} else if f.Units > ai.ExpandThreshold && len(f.Paths) < f.Tier {
			if target := s.bestTarget(f, profile.ExpandBias); target >= 0 {
				f.Paths = append(f.Paths, target)
				changed = true
			}
		}

		if cost, ok := s.upgradeCost(f.Tier); ok && f.Units > cost+ai.UpgradeMargin {
			f.Units -= cost
			f.Tier++
			changed = true
		}
	}
	return changed
}

// specialize turns a Keep into a random non-Keep type legal for its terrain.
func (s *WorldState) specialize(f *Fortress) bool {
	options := make([]FortressType, 0, 4)
	for _, t := range f.LegalTypes() {
		if t != TypeKeep {
			options = append(options, t)
		}
	}
	if len(options) == 0 {
		return false
	}
	f.Type = options[s.rng.Intn(len(options))]
	return true
}

// ScoreTarget rates a neighbor as the next path for an AI fortress. Weak targets
// score higher; hostile ones gain an aggression bonus, weak allies a smaller one.
func (s *WorldState) ScoreTarget(f, n *Fortress, expandBias float64) float64 {
	ai := s.cfg.AI
	score := -n.Units
	if n.Owner != f.Owner {
		score += f.Units * (0.5 + expandBias)
	} else if n.Units < ai.RegrowThreshold {
		score += ai.AllyBonus
	}
	if n.Type.IsFarm() {
		score += ai.FarmBonus
	}
	return score
}

// bestTarget returns the highest scoring neighbor not already targeted, or -1 if
// none scores above zero. Ties go to the first neighbor in adjacency order.
func (s *WorldState) bestTarget(f *Fortress, expandBias float64) int {
	best := -1
	bestScore := 0.0
	for _, id := range s.Neighbors(f.ID) {
		if f.HasPath(id) {
			continue
		}
		score := s.ScoreTarget(f, s.Fortresses[id], expandBias)
		if best < 0 || score > bestScore {
			best, bestScore = id, score
		}
	}
	if best < 0 || bestScore <= 0 {
		return -1
	}
	return best
}
