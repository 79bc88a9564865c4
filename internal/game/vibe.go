package game

// Daily market-wide bias. One roll per day from a fixed categorical
// distribution; some vibes also designate 1-3 target assets.

type vibeWeight struct {
	vibe MarketVibe
	pct  float64
}

var vibeDistribution = []vibeWeight{
	{VibeMoonshot, 0.10},
	{VibeBloodbath, 0.08},
	{VibeMemeFrenzy, 0.15},
	{VibeRugSeason, 0.03},
	{VibeWhaleWar, 0.03},
	{VibeNormie, 0.61},
}

// RollVibe draws the day's vibe and, for vibes that act on specific assets,
// up to three distinct targets from assetIDs.
func RollVibe(r *Rand, assetIDs []string) VibeState {
	roll := r.Float64()
	vibe := VibeNormie
	acc := 0.0
	for _, w := range vibeDistribution {
		acc += w.pct
		if roll < acc {
			vibe = w.vibe
			break
		}
	}

	out := VibeState{Vibe: vibe}
	if len(assetIDs) == 0 {
		return out
	}
	switch vibe {
	case VibeMoonshot, VibeBloodbath, VibeWhaleWar:
		want := r.Int(1, 3)
		if want > len(assetIDs) {
			want = len(assetIDs)
		}
		seen := map[string]bool{}
		// Bounded retry keeps the draw count small even on collisions.
		for attempts := 0; len(out.Targets) < want && attempts < want*4; attempts++ {
			id := Pick(r, assetIDs)
			if seen[id] {
				continue
			}
			seen[id] = true
			out.Targets = append(out.Targets, id)
		}
	}
	return out
}

func (v VibeState) targeted(assetID string) bool {
	for _, id := range v.Targets {
		if id == assetID {
			return true
		}
	}
	return false
}

// overnightGapBias shifts the day-boundary gap distribution per vibe.
func overnightGapBias(v VibeState, a *Asset) float64 {
	switch v.Vibe {
	case VibeMoonshot:
		if v.targeted(a.ID) {
			return 0.05
		}
		return 0.01
	case VibeBloodbath:
		if v.targeted(a.ID) {
			return -0.06
		}
		return -0.02
	case VibeMemeFrenzy:
		if a.Tier == TierShitcoin {
			return 0.02
		}
		return 0
	case VibeRugSeason:
		if a.Tier == TierShitcoin {
			return -0.015
		}
		return 0
	case VibeWhaleWar:
		if v.targeted(a.ID) {
			return 0.03
		}
		return 0
	default:
		return 0
	}
}
