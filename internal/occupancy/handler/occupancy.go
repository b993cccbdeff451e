package handler

import (
	"net/http"
	"strconv"

	"parkade/internal/occupancy/service"
	apperrors "parkade/pkg/errors"
	httputil "parkade/pkg/http"
	"parkade/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

const defaultHistoryDays = 7

type OccupancyHandler struct {
	service service.OccupancyService
	log     *logger.Logger
}

func NewOccupancyHandler(service service.OccupancyService, log *logger.Logger) *OccupancyHandler {
	return &OccupancyHandler{
		service: service,
		log:     log,
	}
}

func (h *OccupancyHandler) Snapshot(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	snapshot, err := h.service.Snapshot(r.Context())
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Snapshot", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, snapshot); err != nil {
		h.log.Error("failed to write success response", "handler", "Snapshot", "operation", "WriteSuccess", "error", err)
	}
}

func (h *OccupancyHandler) DailyUsage(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	days, err := extractDays(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "DailyUsage", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	buckets, err := h.service.DailyUsage(r.Context(), days)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "DailyUsage", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, buckets); err != nil {
		h.log.Error("failed to write success response", "handler", "DailyUsage", "operation", "WriteSuccess", "error", err)
	}
}

func (h *OccupancyHandler) HourlyProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	days, err := extractDays(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "HourlyProfile", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	report, err := h.service.HourlyProfile(r.Context(), days)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "HourlyProfile", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, report); err != nil {
		h.log.Error("failed to write success response", "handler", "HourlyProfile", "operation", "WriteSuccess", "error", err)
	}
}

func extractDays(r *http.Request) (int, error) {
	daysStr := r.URL.Query().Get("days")
	if daysStr == "" {
		return defaultHistoryDays, nil
	}

	days, err := strconv.Atoi(daysStr)
	if err != nil {
		return 0, apperrors.InvalidInput("invalid days parameter: " + daysStr)
	}
	return days, nil
}

func (h *OccupancyHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/occupancy/snapshot", h.Snapshot)
	router.GET("/api/v1/occupancy/history/daily", h.DailyUsage)
	router.GET("/api/v1/occupancy/history/hourly", h.HourlyProfile)
}
