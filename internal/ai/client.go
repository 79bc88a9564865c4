package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// PostAnalysis is what the text service returns for a social post: a coarse
// classification plus a pack of generated replies the game can drip-feed.
type PostAnalysis struct {
	Category     string   `json:"category"`
	Sentiment    float64  `json:"sentiment"` // -1..1
	Targets      []string `json:"targets"`
	HorizonDays  int      `json:"horizon_days"`
	CommentPack  []string `json:"comment_pack"`
	QualityHints []string `json:"quality_hints"`
}

// Client talks to the external text-generation service. Every method degrades
// to the deterministic fallback generator on transport or decode failure, so
// an outage changes flavor, never behavior.
type Client struct {
	baseURL    string
	apiKey     string
	log        *slog.Logger
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		log:     logger,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

func (c *Client) ClassifyAndPack(ctx context.Context, text string, mentions []string, seed string) PostAnalysis {
	payload := map[string]any{
		"text":     text,
		"mentions": mentions,
		"seed":     seed,
	}
	var out PostAnalysis
	if err := c.postJSON(ctx, "/v1/classify", payload, &out); err != nil {
		c.log.Warn("classify fell back to templates", "err", err)
		return FallbackClassify(text, mentions, seed)
	}
	return out
}

func (c *Client) ComposePost(ctx context.Context, topic, seed string) string {
	payload := map[string]any{
		"topic": topic,
		"seed":  seed,
	}
	var out struct {
		Text string `json:"text"`
	}
	if err := c.postJSON(ctx, "/v1/compose", payload, &out); err != nil {
		c.log.Warn("compose fell back to templates", "err", err)
		return FallbackCompose(topic, seed)
	}
	return out.Text
}

func (c *Client) ImprovePost(ctx context.Context, draft, seed string) string {
	payload := map[string]any{
		"draft": draft,
		"seed":  seed,
	}
	var out struct {
		Text string `json:"text"`
	}
	if err := c.postJSON(ctx, "/v1/improve", payload, &out); err != nil {
		c.log.Warn("improve fell back to templates", "err", err)
		return FallbackImprove(draft, seed)
	}
	return out.Text
}

func (c *Client) postJSON(ctx context.Context, path string, in any, out any) error {
	if c.baseURL == "" {
		return fmt.Errorf("no ai service configured")
	}
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ai request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ai status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode ai response: %w", err)
	}
	return nil
}
