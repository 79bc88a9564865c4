package game

import (
	"math"
	"testing"
)

func TestVibeDistribution(t *testing.T) {
	r := NewRand(31337)
	const n = 10_000
	counts := map[MarketVibe]int{}
	for i := 0; i < n; i++ {
		v := RollVibe(r, nil)
		counts[v.Vibe]++
	}

	targets := map[MarketVibe]float64{
		VibeMoonshot:   0.10,
		VibeBloodbath:  0.08,
		VibeMemeFrenzy: 0.15,
		VibeRugSeason:  0.03,
		VibeWhaleWar:   0.03,
		VibeNormie:     0.61,
	}
	for vibe, want := range targets {
		got := float64(counts[vibe]) / n
		if math.Abs(got-want) > 0.02 {
			t.Fatalf("%s frequency %v, want %v +/- 0.02", vibe, got, want)
		}
	}
}

func TestVibeTargets(t *testing.T) {
	r := NewRand(1)
	ids := []string{"a", "b", "c", "d"}
	sawTargets := false
	for i := 0; i < 200; i++ {
		v := RollVibe(r, ids)
		switch v.Vibe {
		case VibeMoonshot, VibeBloodbath, VibeWhaleWar:
			if len(v.Targets) < 1 || len(v.Targets) > 3 {
				t.Fatalf("%s target count %d", v.Vibe, len(v.Targets))
			}
			seen := map[string]bool{}
			for _, id := range v.Targets {
				if seen[id] {
					t.Fatalf("duplicate target %s", id)
				}
				seen[id] = true
				if !v.targeted(id) {
					t.Fatalf("targeted(%s) = false for listed target", id)
				}
			}
			sawTargets = true
		default:
			if len(v.Targets) != 0 {
				t.Fatalf("%s should not carry targets", v.Vibe)
			}
		}
	}
	if !sawTargets {
		t.Fatal("no targeting vibe rolled in 200 tries")
	}
}
