package game

import "fmt"

// News subsystem: daily article generation, weight-banded impact application,
// and fake-news debunking. Article impact is split by weight: heavy articles
// move price directly, lighter ones only nudge hype.

type newsTemplate struct {
	Headline   string // one %s verb slot for the symbol
	Sentiment  int
	WeightMin  int
	WeightMax  int
	PoolWeight float64
}

var newsTemplates = []newsTemplate{
	{"%s lands surprise partnership with a logistics giant nobody can name", +1, 55, 90, 1.0},
	{"%s founder spotted at Davos, token pumps on vibes alone", +1, 30, 60, 1.2},
	{"major fund discloses %s position in quarterly filing", +1, 61, 95, 0.8},
	{"%s announces roadmap for the roadmap, community thrilled", +1, 10, 30, 1.4},
	{"celebrity chef now accepts %s at all eleven restaurants", +1, 35, 70, 1.0},
	{"%s audit firm resigns, cites 'creative accounting'", -1, 61, 95, 0.8},
	{"regulators open informal inquiry into %s staking program", -1, 45, 80, 1.0},
	{"%s bridge paused for 'scheduled unscheduled maintenance'", -1, 30, 60, 1.2},
	{"anonymous thread alleges %s insiders unloading bags", -1, 25, 55, 1.3},
	{"%s discord admin goes quiet mid-AMA, holders nervous", -1, 10, 35, 1.4},
	{"%s listed on exchange you have never heard of, volume triples", +1, 40, 75, 1.0},
	{"court filing mentions %s wallet in unrelated fraud case", -1, 50, 85, 0.7},
}

const (
	fakeNewsProb   = 0.25
	debunkPerDay   = 0.30
	debunkCap      = 0.90
	rugWarnDaily   = 0.20
	fakeHypeFactor = 0.15 // reduced-magnitude hype move for fabricated pieces
)

func pickTemplate(r *Rand) newsTemplate {
	total := 0.0
	for _, t := range newsTemplates {
		total += t.PoolWeight
	}
	roll := r.Float64() * total
	acc := 0.0
	for _, t := range newsTemplates {
		acc += t.PoolWeight
		if roll < acc {
			return t
		}
	}
	return newsTemplates[len(newsTemplates)-1]
}

// generateDailyNews draws 2-5 articles, tags each to an asset, and applies
// their impact immediately.
func generateDailyNews(r *Rand, st *GameState) []*NewsArticle {
	if len(st.AssetIDs) == 0 {
		return nil
	}
	count := r.Int(2, 5)
	out := make([]*NewsArticle, 0, count)
	for i := 0; i < count; i++ {
		tpl := pickTemplate(r)
		assetID := Pick(r, st.AssetIDs)
		a := st.Assets[assetID]
		art := &NewsArticle{
			ID:        fmt.Sprintf("news-%d-%d", st.Day, i),
			Day:       st.Day,
			AssetID:   assetID,
			Headline:  fmt.Sprintf(tpl.Headline, a.Symbol),
			Sentiment: tpl.Sentiment,
			Weight:    r.Int(tpl.WeightMin, tpl.WeightMax),
			Fake:      r.Chance(fakeNewsProb),
		}
		applyArticleImpact(r, st, art)
		out = append(out, art)
		st.Articles = append(st.Articles, art)
	}
	return out
}

// applyArticleImpact routes by weight band. Fabricated articles never move
// price, only hype at reduced magnitude, and remember the push so a debunk
// can unwind it.
func applyArticleImpact(r *Rand, st *GameState, art *NewsArticle) {
	a, ok := st.Assets[art.AssetID]
	if !ok {
		return
	}
	s := float64(art.Sentiment)
	mag := float64(art.Weight) / 100

	var hypeDelta float64
	switch {
	case art.Fake:
		hypeDelta = s * mag * fakeHypeFactor * 0.5
	case art.Weight >= 61:
		move := mag * r.Range(0.10, 0.25)
		// Dead coins still make headlines; only hype moves once rugged.
		if !a.Rugged {
			a.apply(assetPatch{Price: ptr(a.Price * (1 + s*move))})
		}
		hypeDelta = s * mag * 0.10
	case art.Weight >= 31:
		hypeDelta = s * mag * 0.30
	default:
		hypeDelta = s * mag * fakeHypeFactor
	}

	art.HypeApplied = hypeDelta
	a.apply(assetPatch{SocialHype: ptr(a.SocialHype + hypeDelta)})
}

// debunkFakeNews checks every unresolved fabricated article; the debunk
// chance grows with age. A debunk reverses one and a half times the original
// hype push, so the article's net lifetime contribution is exactly half its
// original magnitude with the sign flipped.
func debunkFakeNews(r *Rand, st *GameState) []GameEvent {
	var events []GameEvent
	for _, art := range st.Articles {
		if !art.Fake || art.Debunked {
			continue
		}
		age := st.Day - art.Day
		if age <= 0 {
			continue
		}
		p := float64(age) * debunkPerDay
		if p > debunkCap {
			p = debunkCap
		}
		if !r.Chance(p) {
			continue
		}
		art.Debunked = true
		if a, ok := st.Assets[art.AssetID]; ok {
			a.apply(assetPatch{SocialHype: ptr(a.SocialHype - 1.5*art.HypeApplied)})
		}
		events = append(events, GameEvent{
			Kind:     "news_debunked",
			AssetID:  art.AssetID,
			Severity: "minor",
			Message:  fmt.Sprintf("community sleuths debunk: %q was fabricated", art.Headline),
		})
	}
	return events
}

// generateRugWarnings flags 1-2 at-risk shitcoins per day with ~20% chance,
// making them eligible for the rug-pull trigger. Rug pulls are always
// telegraphed.
func generateRugWarnings(r *Rand, st *GameState) []GameEvent {
	if !r.Chance(rugWarnDaily) {
		return nil
	}
	var candidates []string
	for _, id := range st.AssetIDs {
		a := st.Assets[id]
		if a.Rugged || a.RugWarned || a.Tier != TierShitcoin {
			continue
		}
		if a.DevTokensPct > 40 || a.AuditScore < 0.3 {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	n := r.Int(1, 2)
	if n > len(candidates) {
		n = len(candidates)
	}
	var events []GameEvent
	for i := 0; i < n; i++ {
		idx := r.Int(0, len(candidates)-1)
		id := candidates[idx]
		candidates = append(candidates[:idx], candidates[idx+1:]...)
		a := st.Assets[id]
		a.apply(assetPatch{RugWarned: ptr(true)})
		events = append(events, GameEvent{
			Kind:     "rug_warning",
			AssetID:  id,
			Severity: "warning",
			Message:  fmt.Sprintf("on-chain watchers flag %s: dev wallets moving, audit thin", a.Symbol),
		})
	}
	return events
}

// pruneArticles drops resolved or aged-out articles so the feed stays
// bounded.
func pruneArticles(st *GameState) {
	kept := st.Articles[:0]
	for _, art := range st.Articles {
		stale := st.Day-art.Day > MaxArticleAge
		resolved := art.Debunked && st.Day-art.Day > 1
		if stale || resolved {
			continue
		}
		kept = append(kept, art)
	}
	st.Articles = kept
}
