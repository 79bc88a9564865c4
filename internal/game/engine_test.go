package game

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"
)

type memorySaver struct {
	saves int
	last  []byte
	fail  bool
}

func (m *memorySaver) Save(_ context.Context, _ string, state []byte) error {
	if m.fail {
		return errors.New("store down")
	}
	m.saves++
	m.last = append([]byte(nil), state...)
	return nil
}

func TestEngineDeterminism(t *testing.T) {
	ctx := context.Background()
	run := func() []byte {
		e := NewEngine(Config{BackfillDays: 3}, nil, nil)
		if err := e.NewGame(ctx, "p1", "det-seed", nil); err != nil {
			t.Fatalf("new game: %v", err)
		}
		if err := e.RunDays(ctx, 4); err != nil {
			t.Fatalf("run days: %v", err)
		}
		raw, err := e.Snapshot()
		if err != nil {
			t.Fatalf("snapshot: %v", err)
		}
		return raw
	}
	first := run()
	second := run()
	if !bytes.Equal(first, second) {
		t.Fatal("same seed produced divergent state snapshots")
	}
}

func TestPriceFloorHolds(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(Config{DevMode: true, BackfillDays: 0}, nil, nil)
	if err := e.NewGame(ctx, "p1", "floor-seed", nil); err != nil {
		t.Fatalf("new game: %v", err)
	}
	if err := e.RunDays(ctx, 15); err != nil {
		t.Fatalf("run days: %v", err)
	}
	for id, a := range e.st.Assets {
		if a.Price < MinPrice {
			t.Fatalf("%s priced below floor: %v", id, a.Price)
		}
	}
}

func TestBluechipNeverRugged(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(Config{DevMode: true}, nil, nil)
	if err := e.NewGame(ctx, "p1", "rug-season", nil); err != nil {
		t.Fatalf("new game: %v", err)
	}
	if err := e.RunDays(ctx, 30); err != nil {
		t.Fatalf("run days: %v", err)
	}
	for _, id := range []string{"btc", "eth"} {
		a := e.st.Assets[id]
		if a.Tier == TierBluechip && a.Rugged {
			t.Fatalf("bluechip %s was rugged", id)
		}
	}
}

func TestEndToEndReplay(t *testing.T) {
	entry := CatalogEntry{
		ID: "one", Symbol: "ONE", Name: "Onecoin",
		Price: 100, LiquidityUSD: 300e6, AuditScore: 0.9,
		SocialHype: 0.5, BaseVolatility: 0.1, BaseVolume: 0.5,
	}
	ctx := context.Background()
	e := NewEngine(Config{}, nil, nil)
	if err := e.NewGame(ctx, "p1", "test-1", []CatalogEntry{entry}); err != nil {
		t.Fatalf("new game: %v", err)
	}
	if err := e.StartTrading(); err != nil {
		t.Fatalf("start trading: %v", err)
	}
	for i := 0; i < TicksPerDay; i++ {
		if err := e.ProcessTick(); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
	}
	got := e.st.Assets["one"]

	// Independent replay of the documented pipeline over a second RNG
	// primed with the same seed.
	r := NewRandString("test-1")
	vibe := RollVibe(r, []string{"one"})
	mirror := assetFromCatalog(entry)
	st := &GameState{AssetIDs: []string{"one"}, Assets: map[string]*Asset{"one": mirror}}
	player := PlayerState{Security: 0.2, Holdings: map[string]float64{}}
	trades := 0
	for tick := 0; tick < TicksPerDay; tick++ {
		if c, newPrice, ok := evalPriceTick(r, mirror, vibe, tick, 0); ok {
			mirror.Price = newPrice
			mirror.History.Today = append(mirror.History.Today, c)
			trades++
		}
		if patch, _, ok := evalRugPull(r, mirror, tick, 1); ok {
			mirror.apply(patch)
		}
		if patch, _, ok := evalExitScam(r, mirror, tick, 1); ok {
			mirror.apply(patch)
		}
		if patch, _, ok := evalWhaleBuyback(r, mirror, 1); ok {
			mirror.apply(patch)
		}
		if id, patch, _, ok := evalOracleHack(r, st, 1); ok {
			st.Assets[id].apply(patch)
		}
		if res, _, ok := evalFreeze(r, &player, 0, 1); ok {
			applyFreeze(&player, res)
		}
	}

	if got.Price != mirror.Price {
		t.Fatalf("replayed final price %v, engine produced %v", mirror.Price, got.Price)
	}
	if len(got.History.Today) != trades {
		t.Fatalf("today candle count %d, replay saw %d trades", len(got.History.Today), trades)
	}
}

func TestTradeInvariants(t *testing.T) {
	e := testEngine(t, "trade")
	cashBefore := e.st.Player.Cash

	if _, err := e.ExecuteTrade("buy", "nope", 1); err != ErrAssetNotFound {
		t.Fatalf("unknown asset err = %v", err)
	}
	if _, err := e.ExecuteTrade("buy", "btc", 1e9); err != ErrInsufficientFunds {
		t.Fatalf("overspend err = %v", err)
	}
	if _, err := e.ExecuteTrade("sell", "btc", 1); err != ErrInsufficientUnits {
		t.Fatalf("oversell err = %v", err)
	}
	if _, err := e.ExecuteTrade("hodl", "btc", 1); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("bad action err = %v", err)
	}
	if e.st.Player.Cash != cashBefore {
		t.Fatal("rejected trades mutated cash")
	}

	rec, err := e.ExecuteTrade("buy", "sol", 10)
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if e.st.Player.Holdings["sol"] != 10 {
		t.Fatalf("holdings %v", e.st.Player.Holdings["sol"])
	}
	wantCash := cashBefore - 10*rec.Price
	if diff := e.st.Player.Cash - wantCash; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("cash %v, want %v", e.st.Player.Cash, wantCash)
	}
	if _, err := e.ExecuteTrade("sell", "sol", 4); err != nil {
		t.Fatalf("sell: %v", err)
	}
	if e.st.Player.Holdings["sol"] != 6 {
		t.Fatalf("holdings after sell %v", e.st.Player.Holdings["sol"])
	}
}

func TestStateMachineTransitions(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(Config{TradingWindow: 30 * time.Minute}, nil, nil)
	if err := e.NewGame(ctx, "p1", "sm", nil); err != nil {
		t.Fatalf("new game: %v", err)
	}
	if e.st.Status != StatusBeginningOfDay {
		t.Fatalf("status after new game: %s", e.st.Status)
	}

	// Tick outside trading is a harmless no-op.
	if err := e.ProcessTick(); err != nil {
		t.Fatalf("idle tick: %v", err)
	}
	if e.st.Tick != 0 {
		t.Fatal("idle tick advanced the clock")
	}

	base := time.Now()
	e.now = func() time.Time { return base }
	if err := e.StartTrading(); err != nil {
		t.Fatalf("start trading: %v", err)
	}
	if err := e.StartTrading(); err == nil {
		t.Fatal("double start trading allowed")
	}
	if err := e.ProcessTick(); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if e.st.Tick != 1 {
		t.Fatalf("tick counter %d", e.st.Tick)
	}

	// Window elapses: next tick flips to end-of-day without simulating.
	e.now = func() time.Time { return base.Add(31 * time.Minute) }
	if err := e.ProcessTick(); err != nil {
		t.Fatalf("cutover tick: %v", err)
	}
	if e.st.Status != StatusEndOfDay {
		t.Fatalf("status after window: %s", e.st.Status)
	}
	if e.st.Tick != 1 {
		t.Fatal("cutover tick simulated a market step")
	}

	if err := e.ProcessDay(ctx); err != nil {
		t.Fatalf("process day: %v", err)
	}
	if e.st.Status != StatusBeginningOfDay || e.st.Day != 1 || e.st.Tick != 0 {
		t.Fatalf("post-day state: status=%s day=%d tick=%d", e.st.Status, e.st.Day, e.st.Tick)
	}
}

func TestProcessDayFastForwardsAndAggregates(t *testing.T) {
	ctx := context.Background()
	e := testEngine(t, "ffwd")
	if err := e.StartTrading(); err != nil {
		t.Fatalf("start: %v", err)
	}
	for i := 0; i < 100; i++ {
		if err := e.ProcessTick(); err != nil {
			t.Fatalf("tick: %v", err)
		}
	}
	if err := e.ProcessDay(ctx); err != nil {
		t.Fatalf("day: %v", err)
	}
	for id, a := range e.st.Assets {
		if len(a.History.Today) != 0 {
			t.Fatalf("%s today buffer not cleared", id)
		}
		if len(a.History.Yesterday) != DayBuckets {
			t.Fatalf("%s yesterday len %d", id, len(a.History.Yesterday))
		}
		if len(a.History.M1) != 1 || len(a.History.Y1) != 1 {
			t.Fatalf("%s daily windows m1=%d y1=%d", id, len(a.History.M1), len(a.History.Y1))
		}
	}
}

func TestRugBleedOnlyDown(t *testing.T) {
	e := testEngine(t, "bleed")
	a := e.st.Assets["btc"]
	a.Rugged = true
	a.RugStartTick = 0
	start := a.Price

	if err := e.StartTrading(); err != nil {
		t.Fatalf("start: %v", err)
	}
	prev := a.Price
	for i := 0; i < 200; i++ {
		if err := e.ProcessTick(); err != nil {
			t.Fatalf("tick: %v", err)
		}
		if a.Price > prev {
			t.Fatalf("rugged price rose at tick %d: %v -> %v", i, prev, a.Price)
		}
		prev = a.Price
	}
	if a.Price >= start {
		t.Fatalf("no bleed applied over 200 ticks: %v", a.Price)
	}
	if len(a.History.Today) != 0 {
		t.Fatal("rugged asset recorded trade candles")
	}
}

func TestRuggedPriceNeverRisesAcrossDays(t *testing.T) {
	ctx := context.Background()
	e := testEngine(t, "dead-coin")
	a := e.st.Assets["btc"]
	a.Rugged = true
	a.RugStartTick = 0
	start := a.Price

	// Day boundaries run news impact and the overnight gap; neither may
	// lift a rugged price.
	prev := start
	for day := 0; day < 10; day++ {
		if err := e.RunDays(ctx, 1); err != nil {
			t.Fatalf("day %d: %v", day, err)
		}
		if a.Price > prev {
			t.Fatalf("rugged price rose across day %d: %v -> %v", day, prev, a.Price)
		}
		prev = a.Price
	}
	if a.Price >= start {
		t.Fatalf("no bleed over 10 days: %v", a.Price)
	}
	if a.Price < MinPrice {
		t.Fatalf("bleed went below floor: %v", a.Price)
	}
}

func TestLimitOrderFillAndCancel(t *testing.T) {
	e := testEngine(t, "limit")
	if err := e.StartTrading(); err != nil {
		t.Fatalf("start: %v", err)
	}

	price := e.st.Assets["sol"].Price
	if _, err := e.PlaceLimitOrder("sol", "hold", price, 1); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("bad side err = %v", err)
	}
	if _, err := e.PlaceLimitOrder("sol", "buy", price*2, 5); err != nil {
		t.Fatalf("place: %v", err)
	}
	if err := e.ProcessTick(); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if e.st.Player.Holdings["sol"] != 5 {
		t.Fatalf("buy limit above market did not fill: holdings %v", e.st.Player.Holdings["sol"])
	}
	if len(e.st.Orders) != 0 {
		t.Fatal("filled order not removed")
	}

	o, err := e.PlaceLimitOrder("sol", "sell", e.st.Assets["sol"].Price*10, 5)
	if err != nil {
		t.Fatalf("place sell: %v", err)
	}
	if err := e.CancelLimitOrder(o.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := e.CancelLimitOrder(o.ID); err != ErrOrderNotFound {
		t.Fatalf("double cancel err = %v", err)
	}
}

func TestOpsLifecycle(t *testing.T) {
	e := testEngine(t, "ops")
	if _, err := e.ExecuteOp("start", OpWashTrade, "sol"); err != ErrNotTrading {
		t.Fatalf("op before market open err = %v", err)
	}
	if err := e.StartTrading(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := e.ExecuteOp("start", OpKind("yolo"), "sol"); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("bad kind err = %v", err)
	}
	op, err := e.ExecuteOp("start", OpWashTrade, "sol")
	if err != nil {
		t.Fatalf("start op: %v", err)
	}
	hypeBefore := e.st.Assets["sol"].SocialHype
	for i := 0; i <= washTradeTicks; i++ {
		if err := e.ProcessTick(); err != nil {
			t.Fatalf("tick: %v", err)
		}
	}
	if len(e.st.Ops) != 0 {
		t.Fatal("op still active after its duration")
	}
	if e.st.Player.Exposure <= 0 {
		t.Fatal("completed op left no exposure")
	}
	if e.st.Assets["sol"].SocialHype <= hypeBefore {
		t.Fatal("running op never bumped hype")
	}
	if err := cancelOp(e.st, op.ID); err != ErrOpNotFound {
		t.Fatalf("cancel finished op err = %v", err)
	}
}

func TestDirtyFlagSkipsRedundantSaves(t *testing.T) {
	ctx := context.Background()
	saver := &memorySaver{}
	e := NewEngine(Config{}, nil, saver)
	if err := e.NewGame(ctx, "p1", "save", nil); err != nil {
		t.Fatalf("new game: %v", err)
	}
	n := saver.saves
	if err := e.Save(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}
	if saver.saves != n {
		t.Fatal("clean state still hit the store")
	}
	if _, err := e.ExecuteTrade("buy", "sol", 1); err != nil {
		t.Fatalf("trade: %v", err)
	}
	if err := e.Save(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}
	if saver.saves != n+1 {
		t.Fatalf("dirty save count %d, want %d", saver.saves, n+1)
	}
}

func TestPersistenceFailureNeverStopsSimulation(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(Config{}, nil, &memorySaver{fail: true})
	if err := e.NewGame(ctx, "p1", "crashy", nil); err != nil {
		t.Fatalf("new game: %v", err)
	}
	if err := e.RunDays(ctx, 3); err != nil {
		t.Fatalf("run days with failing store: %v", err)
	}
	if e.st.Day != 3 {
		t.Fatalf("day %d, want 3", e.st.Day)
	}
}

func TestSnapshotLoadResumesSequence(t *testing.T) {
	ctx := context.Background()
	e1 := NewEngine(Config{}, nil, nil)
	if err := e1.NewGame(ctx, "p1", "resume", nil); err != nil {
		t.Fatalf("new game: %v", err)
	}
	if err := e1.RunDays(ctx, 2); err != nil {
		t.Fatalf("warmup: %v", err)
	}
	raw, err := e1.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	var st GameState
	if err := json.Unmarshal(raw, &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	e2 := NewEngine(Config{}, nil, nil)
	if err := e2.Load(&st); err != nil {
		t.Fatalf("load: %v", err)
	}

	if err := e1.RunDays(ctx, 3); err != nil {
		t.Fatalf("e1 continue: %v", err)
	}
	if err := e2.RunDays(ctx, 3); err != nil {
		t.Fatalf("e2 continue: %v", err)
	}
	s1, _ := e1.Snapshot()
	s2, _ := e2.Snapshot()
	if !bytes.Equal(s1, s2) {
		t.Fatal("restored game diverged from the original")
	}
}

func TestNetWorthDerivedEachTick(t *testing.T) {
	e := testEngine(t, "networth")
	if _, err := e.ExecuteTrade("buy", "sol", 10); err != nil {
		t.Fatalf("buy: %v", err)
	}
	want := e.st.Player.Cash + 10*e.st.Assets["sol"].Price
	if diff := e.st.Player.NetWorth - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("net worth %v, want %v", e.st.Player.NetWorth, want)
	}
	// Corrupt the derived value; the next tick recomputes it.
	e.st.Player.NetWorth = -1
	if err := e.StartTrading(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := e.ProcessTick(); err != nil {
		t.Fatalf("tick: %v", err)
	}
	want = e.st.Player.Cash + 10*e.st.Assets["sol"].Price
	if diff := e.st.Player.NetWorth - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("net worth not recomputed: %v want %v", e.st.Player.NetWorth, want)
	}
}

func TestSelectors(t *testing.T) {
	e := testEngine(t, "selectors")
	if _, err := e.ExecuteTrade("buy", "sol", 3); err != nil {
		t.Fatalf("buy: %v", err)
	}
	rows := e.GetPortfolioTable()
	if len(rows) != 1 || rows[0].AssetID != "sol" || rows[0].Units != 3 {
		t.Fatalf("portfolio rows %+v", rows)
	}
	k := e.GetKPIs()
	if k.NetWorth <= 0 || k.Status != StatusBeginningOfDay {
		t.Fatalf("kpis %+v", k)
	}
	shitcoins := e.GetFilteredAssets(string(TierShitcoin), "")
	for _, v := range shitcoins {
		if v.Tier != TierShitcoin {
			t.Fatalf("tier filter leaked %+v", v)
		}
	}
	byName := e.GetFilteredAssets("", "bitcorn")
	if len(byName) != 1 || byName[0].ID != "btc" {
		t.Fatalf("query filter %+v", byName)
	}
}

func ExampleEngine_RunDays() {
	e := NewEngine(Config{}, nil, nil)
	_ = e.NewGame(context.Background(), "demo", "demo-seed", nil)
	_ = e.RunDays(context.Background(), 1)
	fmt.Println(e.GetKPIs().Day)
	// Output: 1
}
