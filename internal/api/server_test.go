package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"moonbag/internal/ai"
	"moonbag/internal/config"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := config.APIConfig{BackfillDays: 1}
	s := New(cfg, nil, nil, ai.NewClient("", "", nil), nil)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp, out
}

func TestHealthz(t *testing.T) {
	ts := testServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
}

func TestCreateGameAndTrade(t *testing.T) {
	ts := testServer(t)

	resp, created := postJSON(t, ts.URL+"/v1/games", map[string]any{
		"profile_id": "p1",
		"seed":       "api-test",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status %d: %v", resp.StatusCode, created)
	}

	resp, body := postJSON(t, ts.URL+"/v1/games/p1/trades", map[string]any{
		"action":   "buy",
		"asset_id": "sol",
		"units":    2,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("trade status %d: %v", resp.StatusCode, body)
	}
	if body["trade"] == nil || body["idempotency_id"] == "" {
		t.Fatalf("trade response %v", body)
	}

	resp, body = postJSON(t, ts.URL+"/v1/games/p1/trades", map[string]any{
		"action":   "buy",
		"asset_id": "sol",
		"units":    1e9,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("overspend status %d: %v", resp.StatusCode, body)
	}

	resp, body = postJSON(t, ts.URL+"/v1/games/nobody/trades", map[string]any{
		"action":   "buy",
		"asset_id": "sol",
		"units":    1,
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown profile status %d: %v", resp.StatusCode, body)
	}
}

func TestGameLifecycleEndpoints(t *testing.T) {
	ts := testServer(t)
	if resp, body := postJSON(t, ts.URL+"/v1/games", map[string]any{"profile_id": "p2", "seed": "s"}); resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: %d %v", resp.StatusCode, body)
	}
	if resp, body := postJSON(t, ts.URL+"/v1/games/p2/start", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("start: %d %v", resp.StatusCode, body)
	}
	// Starting twice is a client error, not a crash.
	if resp, _ := postJSON(t, ts.URL+"/v1/games/p2/start", nil); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("double start status %d", resp.StatusCode)
	}
	if resp, body := postJSON(t, ts.URL+"/v1/games/p2/tick", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("tick: %d %v", resp.StatusCode, body)
	}
	if resp, body := postJSON(t, ts.URL+"/v1/games/p2/day", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("day: %d %v", resp.StatusCode, body)
	}

	for _, path := range []string{"/kpis", "/portfolio", "/assets", "/events", "/offers"} {
		resp, err := http.Get(ts.URL + "/v1/games/p2" + path)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s status %d", path, resp.StatusCode)
		}
	}
}

func TestSimulationRunDeterministic(t *testing.T) {
	ts := testServer(t)
	req := map[string]any{"seed": "sim-seed", "days": 3}

	resp, first := postJSON(t, ts.URL+"/v1/simulation/run", req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("run status %d: %v", resp.StatusCode, first)
	}
	_, second := postJSON(t, ts.URL+"/v1/simulation/run", req)

	a, _ := json.Marshal(first["state"])
	b, _ := json.Marshal(second["state"])
	if !bytes.Equal(a, b) {
		t.Fatal("same seed and days produced different states")
	}

	if resp, _ := postJSON(t, ts.URL+"/v1/simulation/run", map[string]any{"days": 3}); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing seed status %d", resp.StatusCode)
	}

	// Resuming the 3-day state for 2 more days lands exactly where a
	// straight 5-day run from the same seed does.
	resp, resumed := postJSON(t, ts.URL+"/v1/simulation/run", map[string]any{
		"game_state": first["state"],
		"days":       2,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("resume status %d: %v", resp.StatusCode, resumed)
	}
	_, straight := postJSON(t, ts.URL+"/v1/simulation/run", map[string]any{"seed": "sim-seed", "days": 5})
	c, _ := json.Marshal(resumed["state"])
	d, _ := json.Marshal(straight["state"])
	if !bytes.Equal(c, d) {
		t.Fatal("resumed run diverged from the straight run")
	}
}

func TestAIClassifyFallsBackOffline(t *testing.T) {
	ts := testServer(t)
	resp, body := postJSON(t, ts.URL+"/v1/ai/classify", map[string]any{
		"text": "this coin is going to the moon",
		"seed": "s",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("classify status %d: %v", resp.StatusCode, body)
	}
	if body["category"] != "shill" {
		t.Fatalf("category %v", body["category"])
	}
}
