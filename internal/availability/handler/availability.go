package handler

import (
	"lodgr/internal/availability/service"
	httputil "lodgr/pkg/http"
	"lodgr/pkg/logger"
	"lodgr/pkg/middleware"
	"lodgr/pkg/model"
	"net/http"

	"github.com/julienschmidt/httprouter"
)

type AvailabilityHandler struct {
	service service.AvailabilityService
	log     *logger.Logger
}

func NewAvailabilityHandler(service service.AvailabilityService, log *logger.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		service: service,
		log:     log,
	}
}

func (h *AvailabilityHandler) Check(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.CheckRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, "Check", err)
		return
	}

	resp, err := h.service.Check(r.Context(), ps.ByName("unitId"), &req)
	if err != nil {
		h.writeError(w, r, "Check", err)
		return
	}

	httputil.WriteSuccess(w, resp)
}

func (h *AvailabilityHandler) Hold(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.HoldRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, "Hold", err)
		return
	}

	resp, err := h.service.Hold(r.Context(), ps.ByName("unitId"), &req)
	if err != nil {
		h.writeError(w, r, "Hold", err)
		return
	}

	httputil.WriteCreated(w, resp)
}

func (h *AvailabilityHandler) Confirm(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.ConfirmRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, "Confirm", err)
		return
	}

	resp, err := h.service.Confirm(r.Context(), ps.ByName("unitId"), ps.ByName("token"), &req)
	if err != nil {
		h.writeError(w, r, "Confirm", err)
		return
	}

	httputil.WriteSuccess(w, resp)
}

func (h *AvailabilityHandler) Release(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	resp, err := h.service.Release(r.Context(), ps.ByName("unitId"), ps.ByName("token"))
	if err != nil {
		h.writeError(w, r, "Release", err)
		return
	}

	httputil.WriteSuccess(w, resp)
}

func (h *AvailabilityHandler) ListHolds(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	query := r.URL.Query()
	q := model.ListHoldsQuery{
		StartDate: query.Get("startDate"),
		EndDate:   query.Get("endDate"),
	}

	resp, err := h.service.ListHolds(r.Context(), ps.ByName("unitId"), &q)
	if err != nil {
		h.writeError(w, r, "ListHolds", err)
		return
	}

	httputil.WriteSuccess(w, resp)
}

func (h *AvailabilityHandler) writeError(w http.ResponseWriter, r *http.Request, handler string, err error) {
	h.log.Debug("Request failed",
		"request_id", middleware.RequestIDFromContext(r.Context()),
		"handler", handler,
		"path", r.URL.Path,
		"error", err,
	)
	httputil.WriteError(w, err)
}

func (h *AvailabilityHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/units/:unitId/availability", h.Check)
	router.POST("/api/v1/units/:unitId/holds", h.Hold)
	router.GET("/api/v1/units/:unitId/holds", h.ListHolds)
	router.POST("/api/v1/units/:unitId/holds/:token/confirm", h.Confirm)
	router.DELETE("/api/v1/units/:unitId/holds/:token", h.Release)
}
