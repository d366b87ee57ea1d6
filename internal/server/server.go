// Package server exposes tariff optimization over HTTP.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/iwvelando/carshare-tariff/internal/engine"
	"github.com/iwvelando/carshare-tariff/internal/objective"
	"github.com/iwvelando/carshare-tariff/internal/tariff"
	"go.uber.org/zap"
)

// allVariants selects every variant on the methods endpoint.
const allVariants = "all"

type handler struct {
	logger      *zap.Logger
	service     *engine.Service
	version     string
	allowOrigin string
}

// NewHandler constructs the HTTP handler serving the optimization API.
func NewHandler(logger *zap.Logger, service *engine.Service, cfg *Config) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}

	trimmedVersion := strings.TrimSpace(cfg.Version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	h := &handler{
		logger:      logger,
		service:     service,
		version:     trimmedVersion,
		allowOrigin: cfg.AllowOrigin,
	}

	mux := http.NewServeMux()

	// Original endpoint: BASE variant
	mux.HandleFunc("GET /month", h.handleMonth)

	// One variant by path, or all of them
	mux.HandleFunc("GET /methods/{variant}", h.handleMethods)

	mux.HandleFunc("GET /api/optimize", h.handleOptimize)
	mux.HandleFunc("GET /api/feasibility", h.handleFeasibility)
	mux.HandleFunc("GET /api/version", h.handleVersion)
	mux.HandleFunc("GET /health", h.handleHealth)

	return h.withCORS(mux)
}

// withCORS stamps every response with the allowed origin and answers
// preflight requests directly.
func (h *handler) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", h.allowOrigin)
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *handler) handleMonth(w http.ResponseWriter, r *http.Request) {
	h.optimize(w, r, tariff.Base.Name, "server.handleMonth")
}

func (h *handler) handleMethods(w http.ResponseWriter, r *http.Request) {
	h.optimize(w, r, r.PathValue("variant"), "server.handleMethods")
}

func (h *handler) handleOptimize(w http.ResponseWriter, r *http.Request) {
	h.optimize(w, r, r.URL.Query().Get("variant"), "server.handleOptimize")
}

func (h *handler) optimize(w http.ResponseWriter, r *http.Request, variant string, op string) {
	start := time.Now()

	weights, err := parseWeights(r)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}

	if strings.EqualFold(strings.TrimSpace(variant), allVariants) {
		reports, err := h.service.OptimizeAll(r.Context(), weights)
		if err != nil {
			h.respondErrorWithOp(w, http.StatusInternalServerError, err.Error(), op)
			return
		}
		h.logger.Info("optimized every variant",
			zap.String("op", op),
			zap.Int("variants", len(reports)),
			zap.Duration("elapsed", time.Since(start)),
		)
		h.writeJSON(w, http.StatusOK, reports)
		return
	}

	v, err := tariff.ParseVariant(variant)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}

	report, err := h.service.Optimize(r.Context(), engine.Request{Weights: weights, Variant: v})
	if err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, err.Error(), op)
		return
	}
	h.logger.Info("optimized variant",
		zap.String("op", op),
		zap.String("variant", v.Name),
		zap.String("runId", report.Summary.RunID),
		zap.Bool("converged", report.Summary.Converged),
		zap.Duration("elapsed", time.Since(start)),
	)
	h.writeJSON(w, http.StatusOK, report)
}

func (h *handler) handleFeasibility(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.FeasibilityAtMaxPrices())
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"source": h.service.Context().Source(),
	})
}

// parseWeights reads the heavy, proportionality and overall query values,
// keeping the request defaults for any that are absent.
func parseWeights(r *http.Request) (objective.Weights, error) {
	weights := objective.RequestWeights()
	query := r.URL.Query()
	fields := []struct {
		name  string
		value *float64
	}{
		{"heavy", &weights.Heavy},
		{"proportionality", &weights.Proportionality},
		{"overall", &weights.Overall},
	}
	for _, f := range fields {
		raw := strings.TrimSpace(query.Get(f.name))
		if raw == "" {
			continue
		}
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return objective.Weights{}, fmt.Errorf("invalid %s weight %q: must be a number", f.name, raw)
		}
		*f.value = parsed
	}
	if err := weights.Validate(); err != nil {
		return objective.Weights{}, fmt.Errorf("invalid weights: %w", err)
	}
	return weights, nil
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, status int, msg string, op string) {
	h.logger.Error("optimization request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}
