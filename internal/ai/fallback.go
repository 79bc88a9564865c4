package ai

import (
	"strings"

	"moonbag/internal/game"
)

// Deterministic template generators. Same inputs, same output, every time:
// they draw from a fresh RNG keyed on the seed plus the input text, so the
// game stays replayable when the external service is down.

var fallbackCategories = []string{"shill", "fud", "meme", "analysis"}

var fallbackComments = map[string][]string{
	"shill": {
		"this is the one. generational wealth incoming",
		"loaded another bag, thank me in six months",
		"my uncle works at the exchange, it's happening",
		"imagine not holding this right now",
	},
	"fud": {
		"dev wallet just moved, I'm out",
		"chart looks like a ski jump. not the fun kind",
		"heard the auditors quit mid-audit",
		"sold everything, sleeping fine for once",
	},
	"meme": {
		"few understand",
		"sir this is a casino",
		"wen lambo",
		"probably nothing",
	},
	"analysis": {
		"volume divergence on the 4h, watch the retest",
		"liquidity thinning above resistance, be careful",
		"orderbook looks spoofed but the trend is intact",
		"risk/reward only works here with a tight stop",
	},
}

var fallbackHints = []string{
	"add a price target",
	"tag the asset",
	"shorter, punchier",
	"more conviction",
}

var fallbackOpeners = []string{
	"hot take:",
	"nobody is talking about",
	"just noticed",
	"unpopular opinion:",
}

var fallbackClosers = []string{
	"not financial advice",
	"do your own research",
	"you heard it here first",
	"screenshot this",
}

func FallbackClassify(text string, mentions []string, seed string) PostAnalysis {
	r := game.NewRandString(seed + "|" + text)
	cat := classifyByKeywords(text)
	if cat == "" {
		cat = game.Pick(r, fallbackCategories)
	}
	sentiment := r.Range(0.2, 0.9)
	if cat == "fud" {
		sentiment = -sentiment
	}
	pack := fallbackComments[cat]
	n := r.Int(2, len(pack))
	comments := make([]string, 0, n)
	for i := 0; i < n; i++ {
		comments = append(comments, game.Pick(r, pack))
	}
	hints := []string{game.Pick(r, fallbackHints)}
	return PostAnalysis{
		Category:     cat,
		Sentiment:    sentiment,
		Targets:      mentions,
		HorizonDays:  r.Int(1, 5),
		CommentPack:  comments,
		QualityHints: hints,
	}
}

func FallbackCompose(topic, seed string) string {
	r := game.NewRandString(seed + "|" + topic)
	return game.Pick(r, fallbackOpeners) + " " + topic + ". " + game.Pick(r, fallbackClosers)
}

func FallbackImprove(draft, seed string) string {
	r := game.NewRandString(seed + "|" + draft)
	draft = strings.TrimSpace(draft)
	if draft == "" {
		return FallbackCompose("the market", seed)
	}
	return draft + " " + game.Pick(r, fallbackClosers)
}

func classifyByKeywords(text string) string {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "moon") || strings.Contains(t, "buy") || strings.Contains(t, "pump"):
		return "shill"
	case strings.Contains(t, "rug") || strings.Contains(t, "scam") || strings.Contains(t, "dump") || strings.Contains(t, "sell"):
		return "fud"
	case strings.Contains(t, "chart") || strings.Contains(t, "volume") || strings.Contains(t, "support"):
		return "analysis"
	}
	return ""
}
