package game

import "math"

// Price/volume model: dynamic volume decides how likely an asset is to trade
// on a given tick, and a trade moves price by a gaussian random walk scaled
// to per-tick volatility.

func hypeMultiplier(hype float64) float64 {
	return 0.5 + clampHype(hype) // 0.5x .. 1.5x
}

// momentumMultiplier scales 0.8x-2.0x with the magnitude of the intraday
// move so active charts attract more trades.
func momentumMultiplier(a *Asset) float64 {
	open := a.Price
	if len(a.History.Today) > 0 {
		open = a.History.Today[0].Open
	}
	if open <= 0 {
		return 1.0
	}
	mag := math.Abs(a.Price-open) / open
	return 0.8 + 1.2*math.Min(1, mag*10)
}

func vibeVolumeMultiplier(a *Asset, v VibeState) float64 {
	switch v.Vibe {
	case VibeMoonshot:
		if v.targeted(a.ID) {
			return 2.5
		}
	case VibeBloodbath:
		if v.targeted(a.ID) {
			return 2.2
		}
	case VibeMemeFrenzy:
		if a.Tier == TierShitcoin {
			return 1.5
		}
	case VibeRugSeason:
		if a.Tier == TierShitcoin {
			return 1.3
		}
	case VibeWhaleWar:
		if v.targeted(a.ID) {
			return 1.8
		}
	}
	return 1.0
}

// timeOfDayMultiplier ramps 0.5->0.8 across the first 10% of the day and
// 1.0->2.0 across the last 20%.
func timeOfDayMultiplier(tick int) float64 {
	p := float64(tick) / float64(TicksPerDay)
	switch {
	case p < 0.1:
		return 0.5 + 0.3*(p/0.1)
	case p > 0.8:
		return 1.0 + 1.0*((p-0.8)/0.2)
	default:
		return 1.0
	}
}

// CalculateDynamicVolume is clamped to [0.05, 1.0]; rugged assets are pinned
// to the floor.
func CalculateDynamicVolume(a *Asset, v VibeState, tick int) float64 {
	if a.Rugged {
		return 0.05
	}
	dv := a.BaseVolume *
		hypeMultiplier(a.SocialHype) *
		momentumMultiplier(a) *
		vibeVolumeMultiplier(a, v) *
		timeOfDayMultiplier(tick)
	return clamp(dv, 0.05, 1.0)
}

func tradeProbability(dynamicVolume float64) float64 {
	return 0.1 + 0.8*dynamicVolume
}

// evalPriceTick decides whether the asset trades this tick and, if so,
// returns the resulting candle plus the new price. The RNG draw order is
// fixed: trade roll, then noise, then the gaussian delta.
func evalPriceTick(r *Rand, a *Asset, v VibeState, tick, day int) (PriceCandle, float64, bool) {
	dv := CalculateDynamicVolume(a, v, tick)
	if !r.Chance(tradeProbability(dv)) {
		return PriceCandle{}, 0, false
	}

	noise := r.Range(-0.1, 0.1)
	sigma := (a.BaseVolatility / math.Sqrt(float64(TicksPerDay))) *
		(0.8 + 0.6*a.SocialHype) *
		(1 + noise)
	delta := r.Normal(0, sigma)

	oldPrice := a.Price
	newPrice := floorPrice(oldPrice * (1 + delta))

	c := PriceCandle{
		Tick:   tick,
		Day:    day,
		Open:   oldPrice,
		Close:  newPrice,
		High:   math.Max(oldPrice, newPrice),
		Low:    math.Min(oldPrice, newPrice),
		Volume: dv,
	}
	return c, newPrice, true
}
