package game

// Multi-resolution candle aggregation. Every capped resolution is maintained
// by the same pop-from-front/push-to-back discipline; aggregation is the
// standard order-preserving OHLC reduction and is idempotent on single-entry
// input.

// pushWindow appends candles and evicts from the front to stay within capN.
func pushWindow(win []PriceCandle, capN int, add ...PriceCandle) []PriceCandle {
	win = append(win, add...)
	if over := len(win) - capN; over > 0 {
		win = append(win[:0], win[over:]...)
	}
	return win
}

// aggregateCandles reduces N raw candles into one bucket:
// open=first.open, close=last.close, high=max, low=min, volume=sum.
func aggregateCandles(candles []PriceCandle) (PriceCandle, bool) {
	if len(candles) == 0 {
		return PriceCandle{}, false
	}
	out := PriceCandle{
		Tick: candles[0].Tick,
		Day:  candles[0].Day,
		Open: candles[0].Open,
		High: candles[0].High,
		Low:  candles[0].Low,
	}
	for _, c := range candles {
		if c.High > out.High {
			out.High = c.High
		}
		if c.Low < out.Low {
			out.Low = c.Low
		}
		out.Volume += c.Volume
	}
	out.Close = candles[len(candles)-1].Close
	return out, true
}

func flatCandle(tick, day int, price float64) PriceCandle {
	return PriceCandle{Tick: tick, Day: day, Open: price, High: price, Low: price, Close: price}
}

// bucketizeDay re-aggregates a day's raw trades into DayBuckets fixed
// intervals. Buckets that saw no trades carry a flat candle at the running
// close, so downstream windows always receive exactly DayBuckets entries.
func bucketizeDay(raw []PriceCandle, day int, lastClose float64) []PriceCandle {
	span := TicksPerDay / DayBuckets
	out := make([]PriceCandle, 0, DayBuckets)
	prevClose := lastClose
	if len(raw) > 0 {
		prevClose = raw[0].Open
	}
	i := 0
	for b := 0; b < DayBuckets; b++ {
		hi := (b + 1) * span
		start := i
		for i < len(raw) && raw[i].Tick < hi {
			i++
		}
		if agg, ok := aggregateCandles(raw[start:i]); ok {
			agg.Tick = b * span
			out = append(out, agg)
			prevClose = agg.Close
		} else {
			out = append(out, flatCandle(b*span, day, prevClose))
		}
	}
	return out
}

// rollDay compacts the finished day's raw trades into the retention windows
// and clears the live buffer. weekly candles are cut every 7th day.
func (h *PriceHistory) rollDay(day int, lastClose float64) {
	buckets := bucketizeDay(h.Today, day, lastClose)
	h.Yesterday = buckets
	h.D5 = pushWindow(h.D5, CapD5, buckets...)

	daily, ok := aggregateCandles(h.Today)
	if !ok {
		daily = flatCandle(0, day, lastClose)
	}
	daily.Tick = 0
	h.M1 = pushWindow(h.M1, CapM1, daily)
	h.Y1 = pushWindow(h.Y1, CapY1, daily)

	if (day+1)%7 == 0 {
		from := len(h.Y1) - 7
		if from < 0 {
			from = 0
		}
		if weekly, ok := aggregateCandles(h.Y1[from:]); ok {
			h.Y5 = pushWindow(h.Y5, CapY5, weekly)
		}
	}

	h.Today = nil
}
