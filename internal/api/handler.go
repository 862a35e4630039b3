package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/opencomm/shrike/internal/domain"
	"github.com/opencomm/shrike/internal/feedback"
	"github.com/opencomm/shrike/internal/pattern"
	"github.com/opencomm/shrike/internal/reputation"
	"github.com/opencomm/shrike/internal/repository"
	"github.com/opencomm/shrike/internal/screening"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	repo     domain.Repository
	cache    domain.Cache
	bus      domain.EventBus
	screener *screening.Screener
	recorder *feedback.Recorder
	store    *reputation.Store
	rules    *pattern.CustomRules
	version  string
}

// NewHandler creates a new API handler.
func NewHandler(
	repo domain.Repository,
	cache domain.Cache,
	eventBus domain.EventBus,
	screener *screening.Screener,
	recorder *feedback.Recorder,
	store *reputation.Store,
	rules *pattern.CustomRules,
	version string,
) *Handler {
	return &Handler{
		repo:     repo,
		cache:    cache,
		bus:      eventBus,
		screener: screener,
		recorder: recorder,
		store:    store,
		rules:    rules,
		version:  version,
	}
}

// ScreenCallRequest is the request body for POST /screen/call.
type ScreenCallRequest struct {
	Number string `json:"number"`
}

// ScreenCall handles POST /screen/call requests.
func (h *Handler) ScreenCall(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req ScreenCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.Number == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "number is required",
		})
		return
	}

	dec := h.screener.ScreenCall(r.Context(), req.Number)

	slog.Debug("call screened",
		"number", dec.Identifier.Normalized,
		"action", dec.Action,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	writeJSON(w, http.StatusOK, dec)
}

// ScreenMessageRequest is the request body for POST /screen/message.
type ScreenMessageRequest struct {
	Text string `json:"text"`
}

// ScreenMessage handles POST /screen/message requests.
func (h *Handler) ScreenMessage(w http.ResponseWriter, r *http.Request) {
	var req ScreenMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.Text == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "text is required",
		})
		return
	}

	verdict := h.screener.ScreenMessage(r.Context(), req.Text)
	writeJSON(w, http.StatusOK, verdict)
}

// GetDecision handles GET /decisions/{id}.
func (h *Handler) GetDecision(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	dec, err := h.repo.GetDecision(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "decision not found",
		})
		return
	}
	if err != nil {
		slog.Error("failed to get decision", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to retrieve decision",
		})
		return
	}

	writeJSON(w, http.StatusOK, dec)
}

// FeedbackRequest is the request body for POST /feedback.
type FeedbackRequest struct {
	Number   string `json:"number"`
	IsSpam   bool   `json:"isSpam"`
	Category string `json:"category,omitempty"`
}

// RecordFeedback handles POST /feedback requests. Recording is best effort;
// the response acknowledges receipt, not durability.
func (h *Handler) RecordFeedback(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.Number == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "number is required",
		})
		return
	}

	rec := h.recorder.Record(r.Context(), feedback.Feedback{
		Number:   req.Number,
		IsSpam:   req.IsSpam,
		Category: req.Category,
	})

	writeJSON(w, http.StatusAccepted, map[string]string{
		"recordId": rec.ID,
	})
}

// GetReputation handles GET /reputation/{number}. Returns the full fused
// analysis for inspection.
func (h *Handler) GetReputation(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	if number == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "number is required",
		})
		return
	}

	analysis := h.screener.AnalyzeNumber(r.Context(), number)
	writeJSON(w, http.StatusOK, analysis)
}

// ReportRequest is the request body for POST /reputation/report.
type ReportRequest struct {
	Number   string `json:"number"`
	Category string `json:"category,omitempty"`
}

// ReportSpam handles POST /reputation/report requests.
func (h *Handler) ReportSpam(w http.ResponseWriter, r *http.Request) {
	var req ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.Number == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "number is required",
		})
		return
	}

	id := domain.NormalizeNumber(req.Number)
	if err := h.store.RecordReport(r.Context(), id.Normalized, req.Category); err != nil {
		slog.Error("failed to record report", "number", id.Normalized, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to record report",
		})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"number": id.Normalized,
		"status": "reported",
	})
}

// ListBlocked handles GET /blocklist.
func (h *Handler) ListBlocked(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.ListBlocked(r.Context())
	if err != nil {
		slog.Error("failed to list blocklist", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list blocklist",
		})
		return
	}
	if entries == nil {
		entries = []domain.BlockEntry{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

// BlockRequest is the request body for POST /blocklist.
type BlockRequest struct {
	Number string `json:"number"`
	Note   string `json:"note,omitempty"`
}

// AddBlock handles POST /blocklist requests.
func (h *Handler) AddBlock(w http.ResponseWriter, r *http.Request) {
	var req BlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.Number == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "number is required",
		})
		return
	}

	id := domain.NormalizeNumber(req.Number)
	if err := h.store.AddBlock(r.Context(), id.Normalized, req.Note); err != nil {
		slog.Error("failed to add block", "number", id.Normalized, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to add block",
		})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"number": id.Normalized,
		"status": "blocked",
	})
}

// RemoveBlock handles DELETE /blocklist/{number}.
func (h *Handler) RemoveBlock(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	id := domain.NormalizeNumber(number)

	if err := h.store.RemoveBlock(r.Context(), id.Normalized); err != nil {
		slog.Error("failed to remove block", "number", id.Normalized, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to remove block",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"number": id.Normalized,
		"status": "unblocked",
	})
}

// ContactRequest is the request body for POST /contacts.
type ContactRequest struct {
	Name   string `json:"name"`
	Number string `json:"number"`
}

// SaveContact handles POST /contacts requests.
func (h *Handler) SaveContact(w http.ResponseWriter, r *http.Request) {
	var req ContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.Name == "" || req.Number == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "name and number are required",
		})
		return
	}

	id := domain.NormalizeNumber(req.Number)
	contact := &domain.ContactLabel{Name: req.Name, Number: id.Normalized}
	if err := h.store.SaveContact(r.Context(), contact); err != nil {
		slog.Error("failed to save contact", "number", id.Normalized, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save contact",
		})
		return
	}

	writeJSON(w, http.StatusCreated, contact)
}

// StatsResponse is the response for GET /stats.
type StatsResponse struct {
	TotalAnalyzed    int64   `json:"totalAnalyzed"`
	TotalFlaggedSpam int64   `json:"totalFlaggedSpam"`
	DetectionRate    float64 `json:"detectionRate"`
	LoadedRules      int     `json:"loadedRules"`
}

// GetStats handles GET /stats.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.GetStats(r.Context())
	if err != nil {
		slog.Error("failed to get stats", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to retrieve statistics",
		})
		return
	}

	writeJSON(w, http.StatusOK, StatsResponse{
		TotalAnalyzed:    stats.TotalAnalyzed,
		TotalFlaggedSpam: stats.TotalFlaggedSpam,
		DetectionRate:    stats.DetectionRate(),
		LoadedRules:      h.rules.RuleCount(),
	})
}

// ListRules handles GET /rules. Returns all stored rules, disabled ones
// included.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.repo.ListRuleConfigs(r.Context())
	if err != nil {
		slog.Error("failed to list rules", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list rules",
		})
		return
	}
	if rules == nil {
		rules = []*domain.RuleConfig{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rules": rules,
		"count": len(rules),
	})
}

// CreateRuleRequest is the request body for POST /rules.
type CreateRuleRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Expression  string  `json:"expression"`
	Label       string  `json:"label,omitempty"`
	Delta       float64 `json:"delta"`
	Enabled     *bool   `json:"enabled,omitempty"`
}

// CreateRule handles POST /rules requests. The expression is compiled
// before anything is stored; a rule that does not compile never reaches
// the repository.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var req CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.Name == "" || req.Expression == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "name and expression are required",
		})
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	delta := req.Delta
	if delta == 0 {
		delta = 1.0
	}

	rule := &domain.RuleConfig{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		Expression:  req.Expression,
		Label:       req.Label,
		Delta:       delta,
		Enabled:     enabled,
	}

	if err := h.rules.ValidateRule(rule); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid rule expression: " + err.Error(),
		})
		return
	}

	if err := h.repo.SaveRuleConfig(r.Context(), rule); err != nil {
		slog.Error("failed to save rule", "rule_id", rule.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save rule",
		})
		return
	}

	if rule.Enabled {
		if err := h.rules.LoadRule(rule); err != nil {
			slog.Error("failed to load rule", "rule_id", rule.ID, "error", err)
		}
	}

	writeJSON(w, http.StatusCreated, rule)
}

// ReloadRules handles POST /rules/reload. Reloads all enabled rules from
// the repository.
func (h *Handler) ReloadRules(w http.ResponseWriter, r *http.Request) {
	configs, err := h.repo.ListRuleConfigs(r.Context())
	if err != nil {
		slog.Error("failed to list rules for reload", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list rules",
		})
		return
	}

	if err := h.rules.ReloadRules(configs); err != nil {
		slog.Error("rule reload failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "rule reload failed: " + err.Error(),
		})
		return
	}

	slog.Info("rules reloaded", "loaded", h.rules.RuleCount())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "reloaded",
		"loaded": h.rules.RuleCount(),
	})
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": h.version,
	})
}

// Ready handles GET /ready. Checks all backing services.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	checks := map[string]string{}
	healthy := true

	if err := h.repo.Ping(ctx); err != nil {
		checks["repository"] = err.Error()
		healthy = false
	} else {
		checks["repository"] = "ok"
	}

	if err := h.cache.Ping(ctx); err != nil {
		checks["cache"] = err.Error()
		healthy = false
	} else {
		checks["cache"] = "ok"
	}

	if err := h.bus.Ping(ctx); err != nil {
		checks["bus"] = err.Error()
		healthy = false
	} else {
		checks["bus"] = "ok"
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]interface{}{
		"ready":  healthy,
		"checks": checks,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
