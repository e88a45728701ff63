package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"incidentdesk/internal/db"
	"incidentdesk/internal/domain"
	"incidentdesk/internal/orchestrator"
	"incidentdesk/internal/session"
)

type turnHandler interface {
	StartSession() string
	EndSession(id string) error
	HandleTurn(ctx context.Context, req domain.TurnRequest) (domain.TurnResponse, error)
}

type incidentLister interface {
	RecentIncidents(ctx context.Context, limit int) ([]domain.IncidentEvent, error)
	GetIncident(ctx context.Context, incidentID string) (domain.IncidentEvent, error)
}

func newRouter(orch turnHandler, incidents incidentLister, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/v1/sessions", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]any{"session_id": orch.StartSession()})
	})

	r.Post("/v1/sessions/{sessionID}/turns", func(w http.ResponseWriter, req *http.Request) {
		var turnReq domain.TurnRequest
		if err := json.NewDecoder(req.Body).Decode(&turnReq); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
			return
		}
		turnReq.SessionID = chi.URLParam(req, "sessionID")

		resp, err := orch.HandleTurn(req.Context(), turnReq)
		switch {
		case errors.Is(err, session.ErrNotFound):
			writeJSON(w, http.StatusNotFound, map[string]any{"error": err.Error()})
		case errors.Is(err, orchestrator.ErrInvalidTurn):
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		case err != nil:
			logger.Error("turn failed", "session_id", turnReq.SessionID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		default:
			writeJSON(w, http.StatusOK, resp)
		}
	})

	r.Delete("/v1/sessions/{sessionID}", func(w http.ResponseWriter, req *http.Request) {
		if err := orch.EndSession(chi.URLParam(req, "sessionID")); err != nil {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": err.Error()})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	r.Get("/v1/incidents", func(w http.ResponseWriter, req *http.Request) {
		if incidents == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "incident archive is not configured"})
			return
		}
		limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
		items, err := incidents.RecentIncidents(req.Context(), limit)
		if err != nil {
			logger.Error("list incidents failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
			return
		}
		if items == nil {
			items = []domain.IncidentEvent{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"incidents": items})
	})

	r.Get("/v1/incidents/{incidentID}", func(w http.ResponseWriter, req *http.Request) {
		if incidents == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "incident archive is not configured"})
			return
		}
		item, err := incidents.GetIncident(req.Context(), chi.URLParam(req, "incidentID"))
		if errors.Is(err, db.ErrIncidentNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": err.Error()})
			return
		}
		if err != nil {
			logger.Error("get incident failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, item)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
