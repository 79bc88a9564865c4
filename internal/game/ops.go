package game

import "fmt"

// Market ops: player-initiated manipulation campaigns that run over a span
// of ticks, inflating hype while they last and settling exposure when done.

const (
	washTradeTicks = 300
	pumpGroupTicks = 600

	opHypeEvery = 60 // ticks between hype bumps while an op runs
)

func startOp(st *GameState, kind OpKind, assetID string) (*ActiveOp, error) {
	a, ok := st.Assets[assetID]
	if !ok {
		return nil, ErrAssetNotFound
	}
	if a.Rugged {
		return nil, fmt.Errorf("%w: %s is already dead", ErrInvalidAction, a.Symbol)
	}
	var dur int
	switch kind {
	case OpWashTrade:
		dur = washTradeTicks
	case OpPumpGroup:
		dur = pumpGroupTicks
	default:
		return nil, fmt.Errorf("%w: unknown op kind %q", ErrInvalidAction, kind)
	}
	op := &ActiveOp{
		ID:             fmt.Sprintf("op-%d-%d-%s", st.Day, st.Tick, kind),
		Kind:           kind,
		AssetID:        assetID,
		StartTick:      st.Tick,
		StartDay:       st.Day,
		RemainingTicks: dur,
	}
	st.Ops = append(st.Ops, op)
	return op, nil
}

func cancelOp(st *GameState, id string) error {
	for i, op := range st.Ops {
		if op.ID == id {
			st.Ops = append(st.Ops[:i], st.Ops[i+1:]...)
			// Aborting leaves a smaller trace than finishing.
			st.Player.Exposure = clamp(st.Player.Exposure+0.01, 0, 1)
			return nil
		}
	}
	return ErrOpNotFound
}

// tickOps advances every running op by one tick: periodic hype bumps while
// active, exposure/scrutiny settlement on completion.
func tickOps(st *GameState) []GameEvent {
	var events []GameEvent
	kept := st.Ops[:0]
	for _, op := range st.Ops {
		op.RemainingTicks--
		a, ok := st.Assets[op.AssetID]
		if ok && !a.Rugged && op.RemainingTicks%opHypeEvery == 0 {
			bump := 0.004
			if op.Kind == OpPumpGroup {
				bump = 0.008
			}
			a.apply(assetPatch{SocialHype: ptr(a.SocialHype + bump)})
		}
		if op.RemainingTicks > 0 {
			kept = append(kept, op)
			continue
		}
		switch op.Kind {
		case OpWashTrade:
			st.Player.Exposure = clamp(st.Player.Exposure+0.04, 0, 1)
		case OpPumpGroup:
			st.Player.Exposure = clamp(st.Player.Exposure+0.02, 0, 1)
			st.Player.Scrutiny = clamp(st.Player.Scrutiny+0.03, 0, 1)
		}
		symbol := op.AssetID
		if ok {
			symbol = a.Symbol
		}
		events = append(events, GameEvent{
			Kind:     "op_complete",
			AssetID:  op.AssetID,
			Severity: "minor",
			Message:  fmt.Sprintf("%s campaign on %s wrapped up", op.Kind, symbol),
		})
	}
	st.Ops = kept
	return events
}
