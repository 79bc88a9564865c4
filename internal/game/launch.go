package game

import (
	"fmt"
	"strings"
)

// Coin launcher: a small daily chance that a fresh shitcoin lists mid-game.
// Listed assets persist; they are never deleted, only rugged to zero.

const coinLaunchDaily = 0.12

var launchPrefixes = []string{
	"Baby", "Turbo", "Quantum", "Giga", "Moon", "Safe", "Hyper", "Degen",
}

var launchRoots = []string{
	"Doge", "Pepe", "Floki", "Chad", "Wojak", "Bonk", "Lambo", "Hopium",
	"Cope", "Fomo",
}

// evaluateCoinLaunch may append one new asset; attributes are drawn from the
// same seeded source as everything else so launches replay identically.
func evaluateCoinLaunch(r *Rand, st *GameState) (*Asset, bool) {
	if !r.Chance(coinLaunchDaily) {
		return nil, false
	}
	name := Pick(r, launchPrefixes) + Pick(r, launchRoots)
	symbol := strings.ToUpper(name)
	if len(symbol) > 6 {
		symbol = symbol[:6]
	}
	id := fmt.Sprintf("launch-%d-%s", st.Day, strings.ToLower(name))
	if _, exists := st.Assets[id]; exists {
		return nil, false
	}

	price := r.Range(0.0001, 2.0)
	a := &Asset{
		ID:             id,
		Symbol:         symbol,
		Name:           name,
		Price:          price,
		BasePrice:      price,
		LiquidityUSD:   r.Range(50_000, 5e6),
		DevTokensPct:   r.Range(10, 80),
		AuditScore:     r.Range(0, 0.5),
		SocialHype:     r.Range(0.3, 0.9),
		BaseVolatility: r.Range(0.08, 0.25),
		BaseVolume:     r.Range(0.2, 0.8),
	}
	a.Tier = DeriveTier(a.LiquidityUSD, a.AuditScore)

	st.Assets[id] = a
	st.AssetIDs = append(st.AssetIDs, id)
	return a, true
}
