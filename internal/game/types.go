package game

import "time"

type Tier string

const (
	TierBluechip Tier = "bluechip"
	TierMidcap   Tier = "midcap"
	TierShitcoin Tier = "shitcoin"
)

type MarketVibe string

const (
	VibeMoonshot   MarketVibe = "moonshot"
	VibeBloodbath  MarketVibe = "bloodbath"
	VibeMemeFrenzy MarketVibe = "memefrenzy"
	VibeRugSeason  MarketVibe = "rugseason"
	VibeWhaleWar   MarketVibe = "whalewar"
	VibeNormie     MarketVibe = "normie"
)

type SimStatus string

const (
	StatusBackfill       SimStatus = "backfill"
	StatusBeginningOfDay SimStatus = "beginning_of_day"
	StatusTrading        SimStatus = "trading"
	StatusEndOfDay       SimStatus = "end_of_day"
)

// PriceCandle is one OHLC aggregate. Once appended to a resolution it is
// never mutated, only re-aggregated into coarser buckets or evicted.
type PriceCandle struct {
	Tick   int     `json:"tick"`
	Day    int     `json:"day"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// PriceHistory holds the five display resolutions. Today accumulates raw
// trade candles during the live day; the rest are capped windows maintained
// by a single push+evict discipline at day boundaries.
type PriceHistory struct {
	Today     []PriceCandle `json:"today"`
	Yesterday []PriceCandle `json:"yesterday"`
	D5        []PriceCandle `json:"d5"`
	M1        []PriceCandle `json:"m1"`
	Y1        []PriceCandle `json:"y1"`
	Y5        []PriceCandle `json:"y5"`
}

type Asset struct {
	ID             string       `json:"id"`
	Symbol         string       `json:"symbol"`
	Name           string       `json:"name"`
	Price          float64      `json:"price"`
	BasePrice      float64      `json:"base_price"`
	LiquidityUSD   float64      `json:"liquidity_usd"`
	DevTokensPct   float64      `json:"dev_tokens_pct"`
	AuditScore     float64      `json:"audit_score"`
	SocialHype     float64      `json:"social_hype"`
	BaseVolatility float64      `json:"base_volatility"`
	BaseVolume     float64      `json:"base_volume"`
	Tier           Tier         `json:"tier"`
	Rugged         bool         `json:"rugged"`
	RugWarned      bool         `json:"rug_warned"`
	RugStartTick   int          `json:"rug_start_tick"`
	History        PriceHistory `json:"history"`
}

type LPPosition struct {
	AssetID  string  `json:"asset_id"`
	ValueUSD float64 `json:"value_usd"`
}

type TradeRecord struct {
	Tick    int     `json:"tick"`
	Day     int     `json:"day"`
	AssetID string  `json:"asset_id"`
	Side    string  `json:"side"`
	Units   float64 `json:"units"`
	Price   float64 `json:"price"`
}

// PlayerState is mutated continuously; NetWorth is derived and recomputed
// every tick, never an independent source of truth.
type PlayerState struct {
	Cash           float64            `json:"cash"`
	NetWorth       float64            `json:"net_worth"`
	Holdings       map[string]float64 `json:"holdings"`
	AvgCost        map[string]float64 `json:"avg_cost"`
	Reputation     float64            `json:"reputation"`
	Influence      float64            `json:"influence"`
	Security       float64            `json:"security"`
	Scrutiny       float64            `json:"scrutiny"`
	Exposure       float64            `json:"exposure"`
	LPPositions    []LPPosition       `json:"lp_positions"`
	Frozen         map[string]float64 `json:"frozen"`
	FrozenUntilDay int                `json:"frozen_until_day"`
	Trades         []TradeRecord      `json:"trades"`
	RealizedPnL    float64            `json:"realized_pnl"`
}

type GameEvent struct {
	ID       string `json:"id"`
	Tick     int    `json:"tick"`
	Day      int    `json:"day"`
	Kind     string `json:"kind"`
	AssetID  string `json:"asset_id,omitempty"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

type NewsArticle struct {
	ID          string  `json:"id"`
	Day         int     `json:"day"`
	AssetID     string  `json:"asset_id"`
	Headline    string  `json:"headline"`
	Sentiment   int     `json:"sentiment"` // +1 bullish, -1 bearish
	Weight      int     `json:"weight"`    // 0..100
	Fake        bool    `json:"fake"`
	Debunked    bool    `json:"debunked"`
	HypeApplied float64 `json:"hype_applied"`
}

type OfferKind string

const (
	OfferGovBump  OfferKind = "gov_bump"
	OfferWhaleOTC OfferKind = "whale_otc"
)

const (
	SideBuyFromPlayer = "buy_from_player" // counterparty buys the player's units
	SideSellToPlayer  = "sell_to_player"  // counterparty sells units to the player
)

type Offer struct {
	ID            string    `json:"id"`
	Kind          OfferKind `json:"kind"`
	AssetID       string    `json:"asset_id"`
	Side          string    `json:"side"`
	Units         float64   `json:"units"`
	Price         float64   `json:"price"` // per unit, already premium/discounted
	CreatedDay    int       `json:"created_day"`
	ExpiresDay    int       `json:"expires_day"`
	ScrutinyDelta float64   `json:"scrutiny_delta"`
}

type OpKind string

const (
	OpWashTrade OpKind = "wash_trade"
	OpPumpGroup OpKind = "pump_group"
)

type ActiveOp struct {
	ID             string `json:"id"`
	Kind           OpKind `json:"kind"`
	AssetID        string `json:"asset_id"`
	StartTick      int    `json:"start_tick"`
	StartDay       int    `json:"start_day"`
	RemainingTicks int    `json:"remaining_ticks"`
}

type LimitOrder struct {
	ID         string  `json:"id"`
	AssetID    string  `json:"asset_id"`
	Side       string  `json:"side"` // buy|sell
	LimitPrice float64 `json:"limit_price"`
	Units      float64 `json:"units"`
}

type VibeState struct {
	Vibe    MarketVibe `json:"vibe"`
	Targets []string   `json:"targets,omitempty"`
}

// GameState is the full serializable simulation state; its layout is the
// persisted document handed to the storage collaborator.
type GameState struct {
	ProfileID string            `json:"profile_id"`
	Seed      string            `json:"seed"`
	RNGState  uint32            `json:"rng_state"`
	Tick      int               `json:"tick"`
	Day       int               `json:"day"`
	Status    SimStatus         `json:"simulation_status"`
	Vibe      VibeState         `json:"market_vibe"`
	Player    PlayerState       `json:"player"`
	AssetIDs  []string          `json:"asset_ids"` // iteration order; maps are unordered
	Assets    map[string]*Asset `json:"assets"`
	Articles  []*NewsArticle    `json:"articles"`
	Offers    []*Offer          `json:"active_offers"`
	Ops       []*ActiveOp       `json:"active_ops"`
	Orders    []*LimitOrder     `json:"pending_orders"`
	Events    []GameEvent       `json:"events"`
}

// Read-model views returned by the selectors.

type PortfolioRow struct {
	AssetID       string  `json:"asset_id"`
	Symbol        string  `json:"symbol"`
	Units         float64 `json:"units"`
	FrozenUnits   float64 `json:"frozen_units"`
	AvgCost       float64 `json:"avg_cost"`
	Price         float64 `json:"price"`
	MarketValue   float64 `json:"market_value"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
}

type KPIs struct {
	Day         int        `json:"day"`
	Tick        int        `json:"tick"`
	Status      SimStatus  `json:"status"`
	Vibe        MarketVibe `json:"vibe"`
	Cash        float64    `json:"cash"`
	NetWorth    float64    `json:"net_worth"`
	RealizedPnL float64    `json:"realized_pnl"`
	Scrutiny    float64    `json:"scrutiny"`
	Exposure    float64    `json:"exposure"`
	OpenOffers  int        `json:"open_offers"`
}

type AssetView struct {
	ID         string  `json:"id"`
	Symbol     string  `json:"symbol"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	Change24h  float64 `json:"change_24h"`
	Tier       Tier    `json:"tier"`
	SocialHype float64 `json:"social_hype"`
	Rugged     bool    `json:"rugged"`
	RugWarned  bool    `json:"rug_warned"`
}

// SavedGame is the envelope exchanged with the storage collaborator.
type SavedGame struct {
	ProfileID string    `json:"profile_id"`
	State     []byte    `json:"state"`
	UpdatedAt time.Time `json:"updated_at"`
}
