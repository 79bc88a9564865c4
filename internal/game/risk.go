package game

import "fmt"

// Risk/event subsystem: rare per-tick state changes. Evaluations are
// mutually independent; several may fire in the same tick for different
// assets. Every evaluation returns a patch so effects apply in one step.

const (
	exitScamProb      = 0.00001
	oracleHackProb    = 0.00002
	whaleBuybackProb  = 0.00005
	whaleLiquidityMin = 50e6
)

// evalRugPull fires only for warned non-bluechip assets; a rug pull is
// always telegraphed by a prior warning.
func evalRugPull(r *Rand, a *Asset, tick int, rateMult float64) (assetPatch, *GameEvent, bool) {
	if a.Rugged || !a.RugWarned || a.Tier == TierBluechip {
		return assetPatch{}, nil, false
	}
	liqFactor := clamp(a.LiquidityUSD/100e6, 0, 1)
	p := clamp(
		0.015+
			a.DevTokensPct/100*0.012-
			a.AuditScore*0.01+
			(0.3-liqFactor)*0.04+
			a.SocialHype*0.01,
		0.002, 0.45,
	) * rateMult
	if !r.Chance(p) {
		return assetPatch{}, nil, false
	}

	drop := r.Range(0.20, 0.30)
	liqKeep := r.Range(0.60, 0.80)
	patch := assetPatch{
		Price:        ptr(a.Price * (1 - drop)),
		LiquidityUSD: ptr(a.LiquidityUSD * liqKeep),
		Rugged:       ptr(true),
		RugStartTick: ptr(tick),
	}
	ev := &GameEvent{
		Kind:     "rug_pull",
		AssetID:  a.ID,
		Severity: "critical",
		Message:  fmt.Sprintf("%s devs pulled the plug: price down %.0f%%, liquidity draining", a.Symbol, drop*100),
	}
	return patch, ev, true
}

// evalExitScam is shitcoin-only and near-impossible: an instant collapse to
// 0.1% of value with liquidity zeroed.
func evalExitScam(r *Rand, a *Asset, tick int, rateMult float64) (assetPatch, *GameEvent, bool) {
	if a.Rugged || a.Tier != TierShitcoin {
		return assetPatch{}, nil, false
	}
	if !r.Chance(exitScamProb * rateMult) {
		return assetPatch{}, nil, false
	}
	patch := assetPatch{
		Price:        ptr(a.Price * 0.001),
		LiquidityUSD: ptr(0.0),
		Rugged:       ptr(true),
		RugStartTick: ptr(tick),
	}
	ev := &GameEvent{
		Kind:     "exit_scam",
		AssetID:  a.ID,
		Severity: "critical",
		Message:  fmt.Sprintf("%s team vanished overnight, treasury and socials deleted", a.Symbol),
	}
	return patch, ev, true
}

// evalWhaleBuyback needs meaningful liquidity and multiplies price 2x-4x.
func evalWhaleBuyback(r *Rand, a *Asset, rateMult float64) (assetPatch, *GameEvent, bool) {
	if a.Rugged || a.LiquidityUSD < whaleLiquidityMin {
		return assetPatch{}, nil, false
	}
	if !r.Chance(whaleBuybackProb * rateMult) {
		return assetPatch{}, nil, false
	}
	mult := r.Range(2, 4)
	patch := assetPatch{Price: ptr(a.Price * mult)}
	ev := &GameEvent{
		Kind:     "whale_buyback",
		AssetID:  a.ID,
		Severity: "major",
		Message:  fmt.Sprintf("a whale market-bought %s into a %.1fx candle", a.Symbol, mult),
	}
	return patch, ev, true
}

// evalOracleHack is a single global roll per tick; when it fires, one random
// non-rugged asset takes an instantaneous 100-400%% shock. Downward shocks
// divide instead of subtracting so the price floor invariant survives.
func evalOracleHack(r *Rand, st *GameState, rateMult float64) (string, assetPatch, *GameEvent, bool) {
	if !r.Chance(oracleHackProb * rateMult) {
		return "", assetPatch{}, nil, false
	}
	var candidates []string
	for _, id := range st.AssetIDs {
		if !st.Assets[id].Rugged {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return "", assetPatch{}, nil, false
	}
	id := Pick(r, candidates)
	a := st.Assets[id]
	mag := r.Range(1, 4)
	up := r.Chance(0.5)
	price := a.Price * (1 + mag)
	if !up {
		price = a.Price / (1 + mag)
	}
	patch := assetPatch{Price: ptr(price)}
	dir := "spiked"
	if !up {
		dir = "cratered"
	}
	ev := &GameEvent{
		Kind:     "oracle_hack",
		AssetID:  id,
		Severity: "critical",
		Message:  fmt.Sprintf("price oracle for %s got hacked, feed %s %.0f%%", a.Symbol, dir, mag*100),
	}
	return id, patch, ev, true
}

// freezeResult describes an account-freeze trigger: a fraction of holdings
// locked for a few days, with a small scrutiny refund as the cost of being
// caught.
type freezeResult struct {
	Fraction float64
	UntilDay int
}

func evalFreeze(r *Rand, p *PlayerState, day int, rateMult float64) (freezeResult, *GameEvent, bool) {
	prob := clamp(0.001+p.Exposure*0.005+p.Scrutiny*0.01-p.Security*0.02, 0, 0.9) * rateMult
	if !r.Chance(prob) {
		return freezeResult{}, nil, false
	}
	res := freezeResult{
		Fraction: r.Range(0.2, 0.6),
		UntilDay: day + r.Int(1, 3),
	}
	ev := &GameEvent{
		Kind:     "account_freeze",
		Severity: "major",
		Message:  fmt.Sprintf("exchange compliance froze %.0f%% of custodial holdings until day %d", res.Fraction*100, res.UntilDay),
	}
	return res, ev, true
}

func applyFreeze(p *PlayerState, res freezeResult) {
	if p.Frozen == nil {
		p.Frozen = map[string]float64{}
	}
	for id, units := range p.Holdings {
		locked := units * res.Fraction
		if locked <= 0 {
			continue
		}
		p.Holdings[id] = units - locked
		p.Frozen[id] += locked
	}
	if res.UntilDay > p.FrozenUntilDay {
		p.FrozenUntilDay = res.UntilDay
	}
	p.Scrutiny = clamp(p.Scrutiny*0.92, 0, 1)
}

// thawFrozen releases locked units once the freeze window has passed.
func thawFrozen(p *PlayerState, day int) {
	if len(p.Frozen) == 0 || day < p.FrozenUntilDay {
		return
	}
	for id, units := range p.Frozen {
		p.Holdings[id] += units
	}
	p.Frozen = map[string]float64{}
	p.FrozenUntilDay = 0
}
