package game

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

// Saver is the persistence collaborator: pure put of the serialized state.
type Saver interface {
	Save(ctx context.Context, profileID string, state []byte) error
}

type Config struct {
	// TradingWindow is the real-time span of one trading day. Zero disables
	// the wall-clock cutover (ticks alone end the day), which offline
	// drivers rely on.
	TradingWindow time.Duration
	// DevMode multiplies all risk-event rates for demos and testing.
	DevMode bool
	// BackfillDays of simulated history are generated on new game.
	BackfillDays int
}

func (c Config) rateMult() float64 {
	if c.DevMode {
		return 5
	}
	return 1
}

// Engine owns the tick/day lifecycle. Execution is single-threaded and
// cooperative: the mutex serializes external callers, and every subsystem
// reads the current state and returns patches applied before the next step.
type Engine struct {
	mu    sync.Mutex
	log   *slog.Logger
	cfg   Config
	store Saver

	st  *GameState
	rng *Rand

	dirty      bool
	dayRunning bool

	tradingStart time.Time
	now          func() time.Time
}

func NewEngine(cfg Config, logger *slog.Logger, store Saver) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cfg:   cfg,
		log:   logger,
		store: store,
		now:   time.Now,
	}
}

// NewGame initializes state from the catalog and runs the configured
// backfill so charts are populated before the first live day.
func (e *Engine) NewGame(ctx context.Context, profileID, seed string, catalog []CatalogEntry) error {
	if strings.TrimSpace(profileID) == "" {
		return ErrNoProfile
	}
	if len(catalog) == 0 {
		catalog = DefaultCatalog()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	rng := NewRandString(seed)
	st := &GameState{
		ProfileID: profileID,
		Seed:      seed,
		Status:    StatusBackfill,
		Player: PlayerState{
			Cash:       StartingCash,
			Holdings:   map[string]float64{},
			AvgCost:    map[string]float64{},
			Frozen:     map[string]float64{},
			Reputation: 0.5,
			Security:   0.2,
		},
		Assets: map[string]*Asset{},
	}
	for _, entry := range catalog {
		a := assetFromCatalog(entry)
		st.Assets[a.ID] = a
		st.AssetIDs = append(st.AssetIDs, a.ID)
	}
	sort.Strings(st.AssetIDs)

	e.st = st
	e.rng = rng
	st.Vibe = RollVibe(rng, st.AssetIDs)

	for i := 0; i < e.cfg.BackfillDays; i++ {
		if err := e.runDayLocked(ctx); err != nil {
			return fmt.Errorf("backfill day %d: %w", i, err)
		}
	}
	st.Status = StatusBeginningOfDay
	e.dirty = true
	if err := e.saveLocked(ctx); err != nil {
		e.log.Warn("initial save failed", "profile", profileID, "err", err)
	}
	return nil
}

// Load adopts a previously saved state; the RNG resumes its exact sequence.
func (e *Engine) Load(st *GameState) error {
	if st == nil || st.ProfileID == "" {
		return ErrNoProfile
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if st.Player.Holdings == nil {
		st.Player.Holdings = map[string]float64{}
	}
	if st.Player.AvgCost == nil {
		st.Player.AvgCost = map[string]float64{}
	}
	if st.Player.Frozen == nil {
		st.Player.Frozen = map[string]float64{}
	}
	e.st = st
	e.rng = NewRand(st.RNGState)
	return nil
}

// Snapshot serializes the full state, RNG included.
func (e *Engine) Snapshot() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() ([]byte, error) {
	e.st.RNGState = e.rng.State()
	return json.Marshal(e.st)
}

// StartTrading is the explicit player action that opens the trading window.
func (e *Engine) StartTrading() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.st == nil {
		return ErrNoProfile
	}
	if e.st.Status != StatusBeginningOfDay {
		return fmt.Errorf("%w: cannot start trading from %s", ErrInvalidAction, e.st.Status)
	}
	e.st.Status = StatusTrading
	e.tradingStart = e.now()
	return nil
}

// ProcessTick advances one simulated second while trading. Outside the
// trading state it is a logged no-op so the external clock never crashes
// the loop.
func (e *Engine) ProcessTick() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.st == nil {
		return ErrNoProfile
	}
	if e.st.Status != StatusTrading {
		e.log.Debug("tick ignored outside trading", "status", string(e.st.Status))
		return nil
	}
	if e.cfg.TradingWindow > 0 && e.now().Sub(e.tradingStart) >= e.cfg.TradingWindow {
		e.st.Status = StatusEndOfDay
		return nil
	}
	if e.st.Tick >= TicksPerDay {
		e.st.Status = StatusEndOfDay
		return nil
	}
	e.tickLocked()
	return nil
}

// tickLocked runs the per-tick pipeline at the current tick index, then
// advances the counter. Caller holds the mutex.
func (e *Engine) tickLocked() {
	st := e.st
	t := st.Tick
	mult := e.cfg.rateMult()

	for _, id := range st.AssetIDs {
		e.evalAssetTick(st.Assets[id], t, mult)
	}

	// One global oracle roll per tick.
	if id, patch, ev, ok := evalOracleHack(e.rng, st, mult); ok {
		st.Assets[id].apply(patch)
		e.appendEvent(*ev)
	}

	if res, ev, ok := evalFreeze(e.rng, &st.Player, st.Day, mult); ok {
		applyFreeze(&st.Player, res)
		e.appendEvent(*ev)
	}

	for _, ev := range tickOps(st) {
		e.appendEvent(ev)
	}

	e.checkLimitOrders()
	e.recomputeNetWorth()

	st.Tick = t + 1
	e.dirty = true
}

// evalAssetTick isolates one asset's evaluation; a panic here is logged and
// never aborts the rest of the tick.
func (e *Engine) evalAssetTick(a *Asset, tick int, rateMult float64) {
	defer func() {
		if rec := recover(); rec != nil {
			e.log.Warn("asset evaluation panicked", "asset", a.ID, "panic", rec)
		}
	}()

	if a.Rugged {
		// Gradual bleed on a fixed cadence until fully dead.
		since := tick - a.RugStartTick
		if since > 0 && since%RugBleedEvery == 0 && a.Price > MinPrice {
			bleed := e.rng.Range(0.03, 0.08)
			a.apply(assetPatch{Price: ptr(a.Price * (1 - bleed))})
		}
		return
	}

	if candle, newPrice, traded := evalPriceTick(e.rng, a, e.st.Vibe, tick, e.st.Day); traded {
		a.Price = newPrice
		a.History.Today = append(a.History.Today, candle)
	}

	if patch, ev, ok := evalRugPull(e.rng, a, tick, rateMult); ok {
		a.apply(patch)
		e.appendEvent(*ev)
	}
	if patch, ev, ok := evalExitScam(e.rng, a, tick, rateMult); ok {
		a.apply(patch)
		e.appendEvent(*ev)
	}
	if patch, ev, ok := evalWhaleBuyback(e.rng, a, rateMult); ok {
		a.apply(patch)
		e.appendEvent(*ev)
	}
}

// ProcessDay advances the day boundary. It is atomic from the orchestrator's
// perspective: re-entry is rejected and the routine runs to completion.
func (e *Engine) ProcessDay(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.st == nil {
		return ErrNoProfile
	}
	switch e.st.Status {
	case StatusTrading, StatusEndOfDay, StatusBackfill:
	default:
		return fmt.Errorf("%w: cannot advance day from %s", ErrInvalidAction, e.st.Status)
	}
	return e.runDayLocked(ctx)
}

func (e *Engine) runDayLocked(ctx context.Context) error {
	if e.dayRunning {
		return ErrDayInProgress
	}
	e.dayRunning = true
	defer func() { e.dayRunning = false }()

	st := e.st

	// Fast-forward any unconsumed ticks; bounded by TicksPerDay.
	for st.Tick < TicksPerDay {
		e.tickLocked()
	}

	// Closing prices before any overnight effect; the aggregator needs them
	// for flat-filling quiet buckets.
	closes := make(map[string]float64, len(st.AssetIDs))
	for _, id := range st.AssetIDs {
		closes[id] = st.Assets[id].Price
	}

	for _, ev := range debunkFakeNews(e.rng, st) {
		e.appendEvent(ev)
	}
	for _, art := range generateDailyNews(e.rng, st) {
		e.appendEvent(GameEvent{
			Kind:     "news",
			AssetID:  art.AssetID,
			Severity: "info",
			Message:  art.Headline,
		})
	}
	for _, ev := range generateRugWarnings(e.rng, st) {
		e.appendEvent(ev)
	}
	pruneArticles(st)

	for _, ev := range expireOffers(st) {
		e.appendEvent(ev)
	}
	for _, o := range generateOffers(e.rng, st) {
		e.appendEvent(GameEvent{
			Kind:     "offer",
			AssetID:  o.AssetID,
			Severity: "info",
			Message:  fmt.Sprintf("new %s offer on the table", o.Kind),
		})
	}

	if a, ok := evaluateCoinLaunch(e.rng, st); ok {
		e.appendEvent(GameEvent{
			Kind:     "coin_launch",
			AssetID:  a.ID,
			Severity: "info",
			Message:  fmt.Sprintf("%s (%s) just listed, ape responsibly", a.Name, a.Symbol),
		})
	}

	// Next day's vibe drives the overnight gap into that day.
	st.Vibe = RollVibe(e.rng, st.AssetIDs)
	for _, id := range st.AssetIDs {
		a := st.Assets[id]
		if a.Rugged {
			continue
		}
		gap := e.rng.Normal(0, 0.02) + overnightGapBias(st.Vibe, a)
		a.apply(assetPatch{Price: ptr(a.Price * (1 + gap))})
	}

	for _, id := range st.AssetIDs {
		a := st.Assets[id]
		last, ok := closes[id]
		if !ok {
			last = a.Price
		}
		a.History.rollDay(st.Day, last)
	}

	st.Day++
	st.Tick = 0
	thawFrozen(&st.Player, st.Day)
	e.recomputeNetWorth()
	if st.Status != StatusBackfill {
		st.Status = StatusBeginningOfDay
	}
	e.dirty = true

	if err := e.saveLocked(ctx); err != nil {
		// Persistence failures never stop the simulation; the next
		// successful save carries everything since.
		e.log.Warn("save failed after day advance", "profile", st.ProfileID, "err", err)
	}
	return nil
}

// RunDays drives whole simulated days back-to-back with no wall clock, for
// backfilling and the batch endpoint.
func (e *Engine) RunDays(ctx context.Context, days int) error {
	for i := 0; i < days; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.mu.Lock()
		if e.st == nil {
			e.mu.Unlock()
			return ErrNoProfile
		}
		if e.st.Status == StatusBeginningOfDay {
			e.st.Status = StatusTrading
			e.tradingStart = e.now()
		}
		err := e.runDayLocked(ctx)
		e.mu.Unlock()
		if err != nil {
			return err
		}
	}
	return nil
}

// ExecuteTrade performs an immediate market buy or sell. Invariant
// violations are rejected with no partial effect.
func (e *Engine) ExecuteTrade(action, assetID string, units float64) (TradeRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.st == nil {
		return TradeRecord{}, ErrNoProfile
	}
	if units <= 0 {
		return TradeRecord{}, ErrInvalidUnits
	}
	a, ok := e.st.Assets[assetID]
	if !ok {
		return TradeRecord{}, ErrAssetNotFound
	}
	p := &e.st.Player

	switch action {
	case "buy":
		cost := units * a.Price
		if p.Cash < cost {
			return TradeRecord{}, ErrInsufficientFunds
		}
		held := p.Holdings[assetID]
		p.AvgCost[assetID] = (p.AvgCost[assetID]*held + cost) / (held + units)
		p.Holdings[assetID] = held + units
		p.Cash -= cost
	case "sell":
		if p.Holdings[assetID] < units {
			return TradeRecord{}, ErrInsufficientUnits
		}
		proceeds := units * a.Price
		p.Holdings[assetID] -= units
		p.Cash += proceeds
		p.RealizedPnL += proceeds - units*p.AvgCost[assetID]
	default:
		return TradeRecord{}, fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}

	rec := TradeRecord{
		Tick:    e.st.Tick,
		Day:     e.st.Day,
		AssetID: assetID,
		Side:    action,
		Units:   units,
		Price:   a.Price,
	}
	p.Trades = appendTrade(p.Trades, rec)
	e.recomputeNetWorth()
	e.dirty = true
	return rec, nil
}

// ExecuteOp starts or cancels a market operation.
func (e *Engine) ExecuteOp(action string, kind OpKind, assetOrOpID string) (*ActiveOp, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.st == nil {
		return nil, ErrNoProfile
	}
	switch action {
	case "start":
		// Ops burn ticks; they only make sense while the market runs.
		if e.st.Status != StatusTrading {
			return nil, ErrNotTrading
		}
		op, err := startOp(e.st, kind, assetOrOpID)
		if err == nil {
			e.dirty = true
		}
		return op, err
	case "cancel":
		if err := cancelOp(e.st, assetOrOpID); err != nil {
			return nil, err
		}
		e.dirty = true
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}
}

// PlaceLimitOrder queues an order checked against price every tick.
func (e *Engine) PlaceLimitOrder(assetID, side string, limitPrice, units float64) (*LimitOrder, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.st == nil {
		return nil, ErrNoProfile
	}
	if units <= 0 {
		return nil, ErrInvalidUnits
	}
	if side != "buy" && side != "sell" {
		return nil, fmt.Errorf("%w: side %q", ErrInvalidAction, side)
	}
	if _, ok := e.st.Assets[assetID]; !ok {
		return nil, ErrAssetNotFound
	}
	o := &LimitOrder{
		ID:         fmt.Sprintf("order-%d-%d-%d", e.st.Day, e.st.Tick, len(e.st.Orders)),
		AssetID:    assetID,
		Side:       side,
		LimitPrice: limitPrice,
		Units:      units,
	}
	e.st.Orders = append(e.st.Orders, o)
	e.dirty = true
	return o, nil
}

func (e *Engine) CancelLimitOrder(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.st == nil {
		return ErrNoProfile
	}
	for i, o := range e.st.Orders {
		if o.ID == id {
			e.st.Orders = append(e.st.Orders[:i], e.st.Orders[i+1:]...)
			e.dirty = true
			return nil
		}
	}
	return ErrOrderNotFound
}

// checkLimitOrders fills triggered orders; an order the player can no longer
// afford or cover is cancelled with an event rather than partially filled.
func (e *Engine) checkLimitOrders() {
	st := e.st
	p := &st.Player
	kept := st.Orders[:0]
	for _, o := range st.Orders {
		a, ok := st.Assets[o.AssetID]
		if !ok {
			continue
		}
		triggered := (o.Side == "buy" && a.Price <= o.LimitPrice) ||
			(o.Side == "sell" && a.Price >= o.LimitPrice)
		if !triggered {
			kept = append(kept, o)
			continue
		}

		var err error
		switch o.Side {
		case "buy":
			cost := o.Units * a.Price
			if p.Cash < cost {
				err = ErrInsufficientFunds
				break
			}
			held := p.Holdings[o.AssetID]
			p.AvgCost[o.AssetID] = (p.AvgCost[o.AssetID]*held + cost) / (held + o.Units)
			p.Holdings[o.AssetID] = held + o.Units
			p.Cash -= cost
		case "sell":
			if p.Holdings[o.AssetID] < o.Units {
				err = ErrInsufficientUnits
				break
			}
			proceeds := o.Units * a.Price
			p.Holdings[o.AssetID] -= o.Units
			p.Cash += proceeds
			p.RealizedPnL += proceeds - o.Units*p.AvgCost[o.AssetID]
		}

		if err != nil {
			e.appendEvent(GameEvent{
				Kind:     "order_cancelled",
				AssetID:  o.AssetID,
				Severity: "minor",
				Message:  fmt.Sprintf("limit %s on %s cancelled: %v", o.Side, a.Symbol, err),
			})
			continue
		}
		p.Trades = appendTrade(p.Trades, TradeRecord{
			Tick:    st.Tick,
			Day:     st.Day,
			AssetID: o.AssetID,
			Side:    "limit_" + o.Side,
			Units:   o.Units,
			Price:   a.Price,
		})
		e.appendEvent(GameEvent{
			Kind:     "order_filled",
			AssetID:  o.AssetID,
			Severity: "info",
			Message:  fmt.Sprintf("limit %s on %s filled at %.6f", o.Side, a.Symbol, a.Price),
		})
	}
	st.Orders = kept
}

// AcceptOffer executes the implied trade and removes the offer; there is no
// partial acceptance.
func (e *Engine) AcceptOffer(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.st == nil {
		return ErrNoProfile
	}
	o, idx := findOffer(e.st, id)
	if o == nil {
		return ErrOfferNotFound
	}
	if e.st.Day >= o.ExpiresDay {
		removeOffer(e.st, idx)
		return ErrOfferExpired
	}
	if err := settleOffer(e.st, o); err != nil {
		return err
	}
	removeOffer(e.st, idx)
	e.recomputeNetWorth()
	e.dirty = true
	return nil
}

func (e *Engine) DeclineOffer(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.st == nil {
		return ErrNoProfile
	}
	_, idx := findOffer(e.st, id)
	if idx < 0 {
		return ErrOfferNotFound
	}
	removeOffer(e.st, idx)
	e.dirty = true
	return nil
}

func (e *Engine) recomputeNetWorth() {
	p := &e.st.Player
	nw := p.Cash
	for id, units := range p.Holdings {
		if a, ok := e.st.Assets[id]; ok {
			nw += units * a.Price
		}
	}
	for id, units := range p.Frozen {
		if a, ok := e.st.Assets[id]; ok {
			nw += units * a.Price
		}
	}
	for _, lp := range p.LPPositions {
		nw += lp.ValueUSD
	}
	p.NetWorth = nw
}

func (e *Engine) appendEvent(ev GameEvent) {
	ev.Tick = e.st.Tick
	ev.Day = e.st.Day
	if ev.ID == "" {
		ev.ID = fmt.Sprintf("ev-%d-%d-%d", ev.Day, ev.Tick, len(e.st.Events))
	}
	e.st.Events = append(e.st.Events, ev)
	if over := len(e.st.Events) - MaxEvents; over > 0 {
		e.st.Events = append(e.st.Events[:0], e.st.Events[over:]...)
	}
}

func (e *Engine) saveLocked(ctx context.Context) error {
	if e.store == nil || !e.dirty {
		return nil
	}
	raw, err := e.snapshotLocked()
	if err != nil {
		return err
	}
	if err := e.store.Save(ctx, e.st.ProfileID, raw); err != nil {
		return err
	}
	e.dirty = false
	return nil
}

// Save persists the current state if it is dirty.
func (e *Engine) Save(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.st == nil {
		return ErrNoProfile
	}
	return e.saveLocked(ctx)
}

// --- read-only selectors ---

func (e *Engine) Status() SimStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.st == nil {
		return ""
	}
	return e.st.Status
}

func (e *Engine) GetKPIs() KPIs {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.st == nil {
		return KPIs{}
	}
	return KPIs{
		Day:         e.st.Day,
		Tick:        e.st.Tick,
		Status:      e.st.Status,
		Vibe:        e.st.Vibe.Vibe,
		Cash:        e.st.Player.Cash,
		NetWorth:    e.st.Player.NetWorth,
		RealizedPnL: e.st.Player.RealizedPnL,
		Scrutiny:    e.st.Player.Scrutiny,
		Exposure:    e.st.Player.Exposure,
		OpenOffers:  len(e.st.Offers),
	}
}

func (e *Engine) GetPortfolioTable() []PortfolioRow {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.st == nil {
		return nil
	}
	var rows []PortfolioRow
	for _, id := range e.st.AssetIDs {
		a := e.st.Assets[id]
		units := e.st.Player.Holdings[id]
		frozen := e.st.Player.Frozen[id]
		if units <= 0 && frozen <= 0 {
			continue
		}
		avg := e.st.Player.AvgCost[id]
		total := units + frozen
		rows = append(rows, PortfolioRow{
			AssetID:       id,
			Symbol:        a.Symbol,
			Units:         units,
			FrozenUnits:   frozen,
			AvgCost:       avg,
			Price:         a.Price,
			MarketValue:   total * a.Price,
			UnrealizedPnL: total * (a.Price - avg),
		})
	}
	return rows
}

// GetFilteredAssets returns views filtered by tier and a symbol/name
// substring query; empty filters match everything.
func (e *Engine) GetFilteredAssets(tier, query string) []AssetView {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.st == nil {
		return nil
	}
	q := strings.ToLower(strings.TrimSpace(query))
	var out []AssetView
	for _, id := range e.st.AssetIDs {
		a := e.st.Assets[id]
		if tier != "" && string(a.Tier) != tier {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(a.Symbol), q) &&
			!strings.Contains(strings.ToLower(a.Name), q) {
			continue
		}
		out = append(out, AssetView{
			ID:         a.ID,
			Symbol:     a.Symbol,
			Name:       a.Name,
			Price:      a.Price,
			Change24h:  change24h(a),
			Tier:       a.Tier,
			SocialHype: a.SocialHype,
			Rugged:     a.Rugged,
			RugWarned:  a.RugWarned,
		})
	}
	return out
}

func change24h(a *Asset) float64 {
	if len(a.History.Yesterday) == 0 {
		return 0
	}
	prev := a.History.Yesterday[len(a.History.Yesterday)-1].Close
	if prev <= 0 {
		return 0
	}
	return (a.Price - prev) / prev
}

// GetAsset returns a deep-enough copy for rendering; candle slices are
// shared but never mutated once appended.
func (e *Engine) GetAsset(id string) (Asset, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.st == nil {
		return Asset{}, ErrNoProfile
	}
	a, ok := e.st.Assets[id]
	if !ok {
		return Asset{}, ErrAssetNotFound
	}
	return *a, nil
}

func (e *Engine) GetEvents() []GameEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.st == nil {
		return nil
	}
	out := make([]GameEvent, len(e.st.Events))
	copy(out, e.st.Events)
	return out
}

func (e *Engine) GetOffers() []Offer {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.st == nil {
		return nil
	}
	out := make([]Offer, 0, len(e.st.Offers))
	for _, o := range e.st.Offers {
		out = append(out, *o)
	}
	return out
}
