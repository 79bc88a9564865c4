package game

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CatalogEntry is one row of the launch-day asset list. The built-in catalog
// can be overridden by a YAML file of the same shape.
type CatalogEntry struct {
	ID             string  `yaml:"id"`
	Symbol         string  `yaml:"symbol"`
	Name           string  `yaml:"name"`
	Price          float64 `yaml:"price"`
	LiquidityUSD   float64 `yaml:"liquidity_usd"`
	DevTokensPct   float64 `yaml:"dev_tokens_pct"`
	AuditScore     float64 `yaml:"audit_score"`
	SocialHype     float64 `yaml:"social_hype"`
	BaseVolatility float64 `yaml:"base_volatility"`
	BaseVolume     float64 `yaml:"base_volume"`
}

var defaultCatalog = []CatalogEntry{
	{"btc", "BTC", "Bitcorn", 64_000, 900e6, 0, 0.95, 0.55, 0.035, 0.85},
	{"eth", "ETH", "Ethereal", 3_100, 600e6, 2, 0.92, 0.60, 0.045, 0.80},
	{"sol", "SOL", "Solami", 145, 280e6, 8, 0.82, 0.70, 0.060, 0.75},
	{"bnk", "BNK", "BankCoin", 58, 120e6, 12, 0.70, 0.40, 0.055, 0.55},
	{"lnk", "LNK", "ChainLoop", 14, 90e6, 10, 0.65, 0.45, 0.060, 0.50},
	{"avx", "AVX", "Avalunch", 28, 60e6, 15, 0.55, 0.50, 0.070, 0.50},
	{"dge", "DGE", "Dogelon", 0.12, 45e6, 5, 0.50, 0.85, 0.090, 0.70},
	{"ppx", "PPX", "PepeX", 0.0021, 8e6, 35, 0.25, 0.90, 0.140, 0.65},
	{"mnr", "MNR", "MoonRocket", 0.0009, 2.5e6, 55, 0.15, 0.80, 0.180, 0.60},
	{"sfm", "SFM", "SafeMars", 0.00004, 900_000, 62, 0.10, 0.75, 0.200, 0.55},
	{"rgp", "RGP", "RugProof", 0.0013, 400_000, 78, 0.05, 0.70, 0.220, 0.50},
	{"gmw", "GMW", "GmWagmi", 0.00007, 150_000, 70, 0.08, 0.88, 0.250, 0.60},
}

// LoadCatalogFile parses a YAML asset catalog.
func LoadCatalogFile(path string) ([]CatalogEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var entries []CatalogEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("catalog %s is empty", path)
	}
	return entries, nil
}

// DefaultCatalog returns a copy of the built-in seed list.
func DefaultCatalog() []CatalogEntry {
	out := make([]CatalogEntry, len(defaultCatalog))
	copy(out, defaultCatalog)
	return out
}

func assetFromCatalog(e CatalogEntry) *Asset {
	a := &Asset{
		ID:             e.ID,
		Symbol:         e.Symbol,
		Name:           e.Name,
		Price:          e.Price,
		BasePrice:      e.Price,
		LiquidityUSD:   e.LiquidityUSD,
		DevTokensPct:   e.DevTokensPct,
		AuditScore:     e.AuditScore,
		SocialHype:     e.SocialHype,
		BaseVolatility: e.BaseVolatility,
		BaseVolume:     e.BaseVolume,
	}
	a.Tier = DeriveTier(a.LiquidityUSD, a.AuditScore)
	return a
}
