package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"moonbag/internal/ai"
	"moonbag/internal/config"
	"moonbag/internal/game"
	"moonbag/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Server exposes the simulation over HTTP. Engines are kept in-process per
// profile; the store, when configured, is only a save/load backing.
type Server struct {
	cfg config.APIConfig
	log *slog.Logger
	db  *store.Store
	ai  *ai.Client
	mux *chi.Mux

	mu      sync.Mutex
	engines map[string]*game.Engine
	catalog []game.CatalogEntry
}

func New(cfg config.APIConfig, logger *slog.Logger, db *store.Store, aiClient *ai.Client, catalog []game.CatalogEntry) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:     cfg,
		log:     logger,
		db:      db,
		ai:      aiClient,
		mux:     chi.NewRouter(),
		engines: map[string]*game.Engine{},
		catalog: catalog,
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/games", s.handleCreateGame)
		r.Route("/games/{profile_id}", func(r chi.Router) {
			r.Post("/start", s.handleStartTrading)
			r.Post("/tick", s.handleTick)
			r.Post("/day", s.handleDay)
			r.Post("/save", s.handleSave)

			r.Post("/trades", s.handleTrade)
			r.Post("/orders", s.handlePlaceOrder)
			r.Delete("/orders/{order_id}", s.handleCancelOrder)
			r.Post("/ops", s.handleOp)
			r.Post("/offers/{offer_id}/accept", s.handleAcceptOffer)
			r.Post("/offers/{offer_id}/decline", s.handleDeclineOffer)

			r.Get("/kpis", s.handleKPIs)
			r.Get("/portfolio", s.handlePortfolio)
			r.Get("/assets", s.handleAssets)
			r.Get("/assets/{asset_id}", s.handleAssetDetail)
			r.Get("/events", s.handleEvents)
			r.Get("/offers", s.handleOffers)
		})

		r.Post("/simulation/run", s.handleSimulationRun)

		r.Post("/ai/classify", s.handleAIClassify)
		r.Post("/ai/compose", s.handleAICompose)
		r.Post("/ai/improve", s.handleAIImprove)
	})
}

func (s *Server) engineConfig() game.Config {
	return game.Config{
		TradingWindow: s.cfg.TradingWindow,
		DevMode:       s.cfg.DevMode,
		BackfillDays:  s.cfg.BackfillDays,
	}
}

// engine returns the live engine for a profile, reviving it from the store
// when the process does not hold it yet.
func (s *Server) engine(ctx context.Context, profileID string) (*game.Engine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.engines[profileID]; ok {
		return e, nil
	}
	if s.db == nil {
		return nil, game.ErrNoProfile
	}
	saved, err := s.db.Load(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if saved == nil {
		return nil, game.ErrNoProfile
	}
	var st game.GameState
	if err := json.Unmarshal(saved.State, &st); err != nil {
		return nil, fmt.Errorf("decode saved game: %w", err)
	}
	e := game.NewEngine(s.engineConfig(), s.log, s.saver())
	if err := e.Load(&st); err != nil {
		return nil, err
	}
	s.engines[profileID] = e
	return e, nil
}

func (s *Server) saver() game.Saver {
	if s.db == nil {
		return nil
	}
	return s.db
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProfileID string `json:"profile_id"`
		Seed      string `json:"seed"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ProfileID == "" {
		req.ProfileID = uuid.NewString()
	}
	if req.Seed == "" {
		req.Seed = uuid.NewString()
	}
	e := game.NewEngine(s.engineConfig(), s.log, s.saver())
	if err := e.NewGame(r.Context(), req.ProfileID, req.Seed, s.catalog); err != nil {
		writeDomainError(w, err)
		return
	}
	s.mu.Lock()
	s.engines[req.ProfileID] = e
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]any{
		"profile_id": req.ProfileID,
		"seed":       req.Seed,
		"kpis":       e.GetKPIs(),
	})
}

func (s *Server) handleStartTrading(w http.ResponseWriter, r *http.Request) {
	e, err := s.engine(r.Context(), chi.URLParam(r, "profile_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := e.StartTrading(); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": e.Status()})
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	e, err := s.engine(r.Context(), chi.URLParam(r, "profile_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := e.ProcessTick(); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e.GetKPIs())
}

func (s *Server) handleDay(w http.ResponseWriter, r *http.Request) {
	e, err := s.engine(r.Context(), chi.URLParam(r, "profile_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := e.ProcessDay(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e.GetKPIs())
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	e, err := s.engine(r.Context(), chi.URLParam(r, "profile_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := e.Save(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"saved": true})
}

func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request) {
	e, err := s.engine(r.Context(), chi.URLParam(r, "profile_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var req struct {
		Action  string  `json:"action"`
		AssetID string  `json:"asset_id"`
		Units   float64 `json:"units"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rec, err := e.ExecuteTrade(req.Action, req.AssetID, req.Units)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"trade":          rec,
		"idempotency_id": idempotencyKey(r),
		"kpis":           e.GetKPIs(),
	})
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	e, err := s.engine(r.Context(), chi.URLParam(r, "profile_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var req struct {
		AssetID    string  `json:"asset_id"`
		Side       string  `json:"side"`
		LimitPrice float64 `json:"limit_price"`
		Units      float64 `json:"units"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	o, err := e.PlaceLimitOrder(req.AssetID, req.Side, req.LimitPrice, req.Units)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	e, err := s.engine(r.Context(), chi.URLParam(r, "profile_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := e.CancelLimitOrder(chi.URLParam(r, "order_id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cancelled": true})
}

func (s *Server) handleOp(w http.ResponseWriter, r *http.Request) {
	e, err := s.engine(r.Context(), chi.URLParam(r, "profile_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var req struct {
		Action string `json:"action"` // start|cancel
		Kind   string `json:"kind"`
		Target string `json:"target"` // asset id for start, op id for cancel
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	op, err := e.ExecuteOp(req.Action, game.OpKind(req.Kind), req.Target)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if op == nil {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}
	writeJSON(w, http.StatusCreated, op)
}

func (s *Server) handleAcceptOffer(w http.ResponseWriter, r *http.Request) {
	e, err := s.engine(r.Context(), chi.URLParam(r, "profile_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := e.AcceptOffer(chi.URLParam(r, "offer_id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e.GetKPIs())
}

func (s *Server) handleDeclineOffer(w http.ResponseWriter, r *http.Request) {
	e, err := s.engine(r.Context(), chi.URLParam(r, "profile_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := e.DeclineOffer(chi.URLParam(r, "offer_id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"declined": true})
}

func (s *Server) handleKPIs(w http.ResponseWriter, r *http.Request) {
	e, err := s.engine(r.Context(), chi.URLParam(r, "profile_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e.GetKPIs())
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	e, err := s.engine(r.Context(), chi.URLParam(r, "profile_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": e.GetPortfolioTable()})
}

func (s *Server) handleAssets(w http.ResponseWriter, r *http.Request) {
	e, err := s.engine(r.Context(), chi.URLParam(r, "profile_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	q := r.URL.Query()
	out := e.GetFilteredAssets(q.Get("tier"), q.Get("q"))
	writeJSON(w, http.StatusOK, map[string]any{"assets": out})
}

func (s *Server) handleAssetDetail(w http.ResponseWriter, r *http.Request) {
	e, err := s.engine(r.Context(), chi.URLParam(r, "profile_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	a, err := e.GetAsset(chi.URLParam(r, "asset_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	e, err := s.engine(r.Context(), chi.URLParam(r, "profile_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": e.GetEvents()})
}

func (s *Server) handleOffers(w http.ResponseWriter, r *http.Request) {
	e, err := s.engine(r.Context(), chi.URLParam(r, "profile_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"offers": e.GetOffers()})
}

// handleSimulationRun is a pure driver: fresh engine, N days, state out.
// It either seeds a new game or resumes a posted state document. Nothing is
// persisted and nothing in the server's registry is touched.
func (s *Server) handleSimulationRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Seed      string          `json:"seed"`
		GameState json.RawMessage `json:"game_state"`
		Days      int             `json:"days"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Seed == "" && len(req.GameState) == 0 {
		writeError(w, http.StatusBadRequest, "seed or game_state is required")
		return
	}
	if req.Days <= 0 || req.Days > 3650 {
		writeError(w, http.StatusBadRequest, "days must be in 1..3650")
		return
	}
	e := game.NewEngine(game.Config{DevMode: s.cfg.DevMode}, s.log, nil)
	if len(req.GameState) > 0 {
		var st game.GameState
		if err := json.Unmarshal(req.GameState, &st); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("decode game_state: %v", err))
			return
		}
		if err := e.Load(&st); err != nil {
			writeDomainError(w, err)
			return
		}
	} else if err := e.NewGame(r.Context(), "sim-"+req.Seed, req.Seed, s.catalog); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := e.RunDays(r.Context(), req.Days); err != nil {
		writeDomainError(w, err)
		return
	}
	raw, err := e.Snapshot()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"kpis":  e.GetKPIs(),
		"state": json.RawMessage(raw),
	})
}

func (s *Server) handleAIClassify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text     string   `json:"text"`
		Mentions []string `json:"mentions"`
		Seed     string   `json:"seed"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.ai.ClassifyAndPack(r.Context(), req.Text, req.Mentions, req.Seed))
}

func (s *Server) handleAICompose(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Topic string `json:"topic"`
		Seed  string `json:"seed"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"text": s.ai.ComposePost(r.Context(), req.Topic, req.Seed)})
}

func (s *Server) handleAIImprove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Draft string `json:"draft"`
		Seed  string `json:"seed"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"text": s.ai.ImprovePost(r.Context(), req.Draft, req.Seed)})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrNoProfile):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, game.ErrAssetNotFound),
		errors.Is(err, game.ErrOfferNotFound),
		errors.Is(err, game.ErrOpNotFound),
		errors.Is(err, game.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, game.ErrInsufficientFunds),
		errors.Is(err, game.ErrInsufficientUnits),
		errors.Is(err, game.ErrInvalidUnits),
		errors.Is(err, game.ErrInvalidAction),
		errors.Is(err, game.ErrNotTrading):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, game.ErrOfferExpired):
		writeError(w, http.StatusGone, err.Error())
	case errors.Is(err, game.ErrDayInProgress):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}

func idempotencyKey(r *http.Request) string {
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key != "" {
		return key
	}
	return uuid.NewString()
}
