package game

import "fmt"

// Offer subsystem: opportunistic counterparty offers generated at the day
// boundary and resolved by explicit player action. An offer executes whole
// or not at all.

const (
	govBumpProb     = 0.10
	whaleOTCProb    = 0.10
	otcLiquidityMin = 20e6
)

// generateOffers evaluates both offer types independently.
func generateOffers(r *Rand, st *GameState) []*Offer {
	var out []*Offer
	if o := rollGovBump(r, st); o != nil {
		out = append(out, o)
	}
	if o := rollWhaleOTC(r, st); o != nil {
		out = append(out, o)
	}
	st.Offers = append(st.Offers, out...)
	return out
}

// rollGovBump targets the player's largest holding: the government proposes
// buying 20-60% of it at 2-3x market, at the cost of extra scrutiny.
func rollGovBump(r *Rand, st *GameState) *Offer {
	if !r.Chance(govBumpProb) {
		return nil
	}
	var bestID string
	var bestValue float64
	for _, id := range st.AssetIDs {
		units := st.Player.Holdings[id]
		if units <= 0 {
			continue
		}
		if v := units * st.Assets[id].Price; v > bestValue {
			bestValue = v
			bestID = id
		}
	}
	if bestID == "" {
		return nil
	}
	a := st.Assets[bestID]
	return &Offer{
		ID:            fmt.Sprintf("offer-%d-gov", st.Day),
		Kind:          OfferGovBump,
		AssetID:       bestID,
		Side:          SideBuyFromPlayer,
		Units:         st.Player.Holdings[bestID] * r.Range(0.20, 0.60),
		Price:         a.Price * r.Range(2, 3),
		CreatedDay:    st.Day,
		ExpiresDay:    st.Day + OfferTTLDays,
		ScrutinyDelta: r.Range(0.05, 0.15),
	}
}

// rollWhaleOTC picks a sufficiently liquid asset and offers either a
// discounted block sale to the player or a premium buyout of their units.
func rollWhaleOTC(r *Rand, st *GameState) *Offer {
	if !r.Chance(whaleOTCProb) {
		return nil
	}
	var liquid []string
	for _, id := range st.AssetIDs {
		a := st.Assets[id]
		if !a.Rugged && a.LiquidityUSD >= otcLiquidityMin {
			liquid = append(liquid, id)
		}
	}
	if len(liquid) == 0 {
		return nil
	}
	id := Pick(r, liquid)
	a := st.Assets[id]

	if r.Chance(0.5) {
		// Discounted sell-to-player, sized against available cash so the
		// offer is acceptable at creation time.
		price := a.Price * r.Range(0.85, 0.95)
		budget := st.Player.Cash * r.Range(0.10, 0.30)
		if budget < price {
			return nil
		}
		return &Offer{
			ID:         fmt.Sprintf("offer-%d-otc", st.Day),
			Kind:       OfferWhaleOTC,
			AssetID:    id,
			Side:       SideSellToPlayer,
			Units:      budget / price,
			Price:      price,
			CreatedDay: st.Day,
			ExpiresDay: st.Day + OfferTTLDays,
		}
	}

	held := st.Player.Holdings[id]
	if held <= 0 {
		return nil
	}
	return &Offer{
		ID:         fmt.Sprintf("offer-%d-otc", st.Day),
		Kind:       OfferWhaleOTC,
		AssetID:    id,
		Side:       SideBuyFromPlayer,
		Units:      held * r.Range(0.20, 0.50),
		Price:      a.Price * r.Range(1.05, 1.20),
		CreatedDay: st.Day,
		ExpiresDay: st.Day + OfferTTLDays,
	}
}

func expireOffers(st *GameState) []GameEvent {
	var events []GameEvent
	kept := st.Offers[:0]
	for _, o := range st.Offers {
		if st.Day >= o.ExpiresDay {
			events = append(events, GameEvent{
				Kind:     "offer_expired",
				AssetID:  o.AssetID,
				Severity: "minor",
				Message:  fmt.Sprintf("the %s offer lapsed unanswered", o.Kind),
			})
			continue
		}
		kept = append(kept, o)
	}
	st.Offers = kept
	return events
}

func findOffer(st *GameState, id string) (*Offer, int) {
	for i, o := range st.Offers {
		if o.ID == id {
			return o, i
		}
	}
	return nil, -1
}

func removeOffer(st *GameState, idx int) {
	st.Offers = append(st.Offers[:idx], st.Offers[idx+1:]...)
}

// settleOffer executes the implied trade atomically; on any invariant
// violation the state is untouched and the offer remains open.
func settleOffer(st *GameState, o *Offer) error {
	p := &st.Player
	switch o.Side {
	case SideBuyFromPlayer:
		if p.Holdings[o.AssetID] < o.Units {
			return ErrInsufficientUnits
		}
		p.Holdings[o.AssetID] -= o.Units
		proceeds := o.Units * o.Price
		p.Cash += proceeds
		p.RealizedPnL += proceeds - o.Units*p.AvgCost[o.AssetID]
		p.Scrutiny = clamp(p.Scrutiny+o.ScrutinyDelta, 0, 1)
	case SideSellToPlayer:
		cost := o.Units * o.Price
		if p.Cash < cost {
			return ErrInsufficientFunds
		}
		held := p.Holdings[o.AssetID]
		if p.AvgCost == nil {
			p.AvgCost = map[string]float64{}
		}
		if p.Holdings == nil {
			p.Holdings = map[string]float64{}
		}
		p.AvgCost[o.AssetID] = (p.AvgCost[o.AssetID]*held + cost) / (held + o.Units)
		p.Holdings[o.AssetID] = held + o.Units
		p.Cash -= cost
	default:
		return ErrInvalidAction
	}
	p.Trades = appendTrade(p.Trades, TradeRecord{
		Tick:    st.Tick,
		Day:     st.Day,
		AssetID: o.AssetID,
		Side:    o.Side,
		Units:   o.Units,
		Price:   o.Price,
	})
	return nil
}

func appendTrade(ledger []TradeRecord, t TradeRecord) []TradeRecord {
	ledger = append(ledger, t)
	if over := len(ledger) - MaxTradeLedger; over > 0 {
		ledger = append(ledger[:0], ledger[over:]...)
	}
	return ledger
}
