package game

import "errors"

const (
	// TicksPerDay is one simulated second per real second of the trading
	// window.
	TicksPerDay = 1800

	// MinPrice is the hard floor; no event or trade may push below it.
	MinPrice = 0.000001

	RugBleedEvery = 30

	DayBuckets = 6 // 5-minute buckets summarizing a day for short-range charts

	CapYesterday = DayBuckets
	CapD5        = 5 * DayBuckets
	CapM1        = 30
	CapY1        = 365
	CapY5        = 260

	MaxEvents      = 200
	MaxArticleAge  = 14 // days before a resolved article is pruned
	OfferTTLDays   = 2
	StartingCash   = 10_000.0
	MaxTradeLedger = 500
)

// Tier thresholds: liquidity and audit jointly gate the classification.
const (
	bluechipLiquidityMin = 250e6
	bluechipAuditMin     = 0.8
	midcapLiquidityMin   = 20e6
	midcapAuditMin       = 0.45
)

var (
	ErrAssetNotFound     = errors.New("asset not found")
	ErrOfferNotFound     = errors.New("offer not found")
	ErrOfferExpired      = errors.New("offer expired")
	ErrOpNotFound        = errors.New("op not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInsufficientUnits = errors.New("insufficient units")
	ErrInvalidAction     = errors.New("invalid action")
	ErrInvalidUnits      = errors.New("units must be > 0")
	ErrNotTrading        = errors.New("simulation is not in the trading state")
	ErrDayInProgress     = errors.New("day advance already in progress")
	ErrNoProfile         = errors.New("no active profile")
)

// DeriveTier classifies an asset from liquidity and audit score. Recomputed
// whenever either changes materially.
func DeriveTier(liquidityUSD, auditScore float64) Tier {
	switch {
	case liquidityUSD >= bluechipLiquidityMin && auditScore >= bluechipAuditMin:
		return TierBluechip
	case liquidityUSD >= midcapLiquidityMin && auditScore >= midcapAuditMin:
		return TierMidcap
	default:
		return TierShitcoin
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampHype(h float64) float64 { return clamp(h, 0, 1) }

func floorPrice(p float64) float64 {
	if p < MinPrice {
		return MinPrice
	}
	return p
}

// assetPatch is a partial update produced by a subsystem evaluation and
// applied in one step, so a tick never observes a torn asset.
type assetPatch struct {
	Price        *float64
	LiquidityUSD *float64
	SocialHype   *float64
	Rugged       *bool
	RugWarned    *bool
	RugStartTick *int
}

func (a *Asset) apply(p assetPatch) {
	liquidityChanged := false
	if p.Price != nil {
		a.Price = floorPrice(*p.Price)
	}
	if p.LiquidityUSD != nil {
		a.LiquidityUSD = *p.LiquidityUSD
		liquidityChanged = true
	}
	if p.SocialHype != nil {
		a.SocialHype = clampHype(*p.SocialHype)
	}
	if p.Rugged != nil {
		a.Rugged = *p.Rugged
	}
	if p.RugWarned != nil {
		a.RugWarned = *p.RugWarned
	}
	if p.RugStartTick != nil {
		a.RugStartTick = *p.RugStartTick
	}
	if liquidityChanged {
		a.Tier = DeriveTier(a.LiquidityUSD, a.AuditScore)
	}
}

func ptr[T any](v T) *T { return &v }
