package game

import (
	"context"
	"testing"
)

func testEngine(t *testing.T, seed string) *Engine {
	t.Helper()
	e := NewEngine(Config{}, nil, nil)
	if err := e.NewGame(context.Background(), "p1", seed, nil); err != nil {
		t.Fatalf("new game: %v", err)
	}
	return e
}

func TestGovBumpTargetsLargestHolding(t *testing.T) {
	e := testEngine(t, "gov")
	st := e.st
	st.Player.Holdings["btc"] = 0.01
	st.Player.Holdings["ppx"] = 1000 // tiny notional next to btc

	r := NewRand(41)
	var offer *Offer
	for i := 0; i < 100 && offer == nil; i++ {
		offer = rollGovBump(r, st)
	}
	if offer == nil {
		t.Fatal("gov bump never rolled at 10%/day over 100 days")
	}
	btcValue := 0.01 * st.Assets["btc"].Price
	ppxValue := 1000 * st.Assets["ppx"].Price
	want := "btc"
	if ppxValue > btcValue {
		want = "ppx"
	}
	if offer.AssetID != want {
		t.Fatalf("offer targets %s, want largest holding %s", offer.AssetID, want)
	}
	mult := offer.Price / st.Assets[want].Price
	if mult < 2-1e-9 || mult > 3+1e-9 {
		t.Fatalf("gov premium %vx outside 2-3x", mult)
	}
	frac := offer.Units / st.Player.Holdings[want]
	if frac < 0.20-1e-9 || frac > 0.60+1e-9 {
		t.Fatalf("gov size %v outside 20-60%%", frac)
	}
	if offer.ScrutinyDelta <= 0 {
		t.Fatal("gov bump must carry a scrutiny cost")
	}
}

func TestWhaleOTCPriceBands(t *testing.T) {
	e := testEngine(t, "otc")
	st := e.st
	for _, id := range st.AssetIDs {
		st.Player.Holdings[id] = 100
	}
	r := NewRand(42)
	sawSell, sawBuy := false, false
	for i := 0; i < 400 && !(sawSell && sawBuy); i++ {
		o := rollWhaleOTC(r, st)
		if o == nil {
			continue
		}
		a := st.Assets[o.AssetID]
		if a.LiquidityUSD < otcLiquidityMin {
			t.Fatalf("OTC offer on illiquid asset %s", o.AssetID)
		}
		ratio := o.Price / a.Price
		switch o.Side {
		case SideSellToPlayer:
			sawSell = true
			if ratio < 0.85-1e-9 || ratio > 0.95+1e-9 {
				t.Fatalf("discount ratio %v outside 85-95%%", ratio)
			}
		case SideBuyFromPlayer:
			sawBuy = true
			if ratio < 1.05-1e-9 || ratio > 1.20+1e-9 {
				t.Fatalf("premium ratio %v outside 105-120%%", ratio)
			}
		}
	}
	if !sawSell || !sawBuy {
		t.Fatalf("did not see both OTC directions (sell=%v buy=%v)", sawSell, sawBuy)
	}
}

func TestAcceptOfferExecutesWholeTrade(t *testing.T) {
	e := testEngine(t, "accept")
	st := e.st
	st.Player.Holdings["sol"] = 10
	st.Player.AvgCost["sol"] = 100
	cashBefore := st.Player.Cash
	scrutinyBefore := st.Player.Scrutiny

	o := &Offer{
		ID:            "offer-x",
		Kind:          OfferGovBump,
		AssetID:       "sol",
		Side:          SideBuyFromPlayer,
		Units:         4,
		Price:         400,
		CreatedDay:    st.Day,
		ExpiresDay:    st.Day + 2,
		ScrutinyDelta: 0.1,
	}
	st.Offers = append(st.Offers, o)

	if err := e.AcceptOffer("offer-x"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if got := st.Player.Holdings["sol"]; got != 6 {
		t.Fatalf("holdings after accept: %v", got)
	}
	if got := st.Player.Cash; got != cashBefore+1600 {
		t.Fatalf("cash after accept: %v", got)
	}
	if st.Player.Scrutiny <= scrutinyBefore {
		t.Fatal("scrutiny did not rise")
	}
	if len(st.Offers) != 0 {
		t.Fatal("offer not removed after acceptance")
	}
}

func TestAcceptOfferRejectsShortfall(t *testing.T) {
	e := testEngine(t, "short")
	st := e.st
	st.Player.Holdings["sol"] = 1
	o := &Offer{
		ID:         "offer-y",
		Kind:       OfferGovBump,
		AssetID:    "sol",
		Side:       SideBuyFromPlayer,
		Units:      5,
		Price:      400,
		ExpiresDay: st.Day + 2,
	}
	st.Offers = append(st.Offers, o)
	cashBefore := st.Player.Cash

	if err := e.AcceptOffer("offer-y"); err != ErrInsufficientUnits {
		t.Fatalf("err = %v, want ErrInsufficientUnits", err)
	}
	if st.Player.Cash != cashBefore || st.Player.Holdings["sol"] != 1 {
		t.Fatal("failed acceptance mutated state")
	}
	if len(st.Offers) != 1 {
		t.Fatal("failed acceptance removed the offer")
	}
}

func TestExpiredOfferRejectedAndRemoved(t *testing.T) {
	e := testEngine(t, "expired")
	st := e.st
	st.Offers = append(st.Offers, &Offer{ID: "offer-z", AssetID: "sol", Side: SideSellToPlayer, Units: 1, Price: 1, ExpiresDay: st.Day})
	if err := e.AcceptOffer("offer-z"); err != ErrOfferExpired {
		t.Fatalf("err = %v, want ErrOfferExpired", err)
	}
	if len(st.Offers) != 0 {
		t.Fatal("expired offer not removed")
	}
}

func TestDeclineOffer(t *testing.T) {
	e := testEngine(t, "decline")
	st := e.st
	st.Offers = append(st.Offers, &Offer{ID: "offer-d", AssetID: "sol", ExpiresDay: st.Day + 2})
	if err := e.DeclineOffer("offer-d"); err != nil {
		t.Fatalf("decline: %v", err)
	}
	if len(st.Offers) != 0 {
		t.Fatal("declined offer not removed")
	}
	if err := e.DeclineOffer("offer-d"); err != ErrOfferNotFound {
		t.Fatalf("second decline err = %v", err)
	}
}
