package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"nashcrm_backend/internal/reports/repository"
	"nashcrm_backend/internal/reports/service"
	"nashcrm_backend/platform/httpkit"
)

type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/funnel", h.Funnel)
	rg.GET("/summary", h.Summary)
	rg.GET("/manager-activity", h.ManagerActivity)
}

func (h *Handler) Funnel(c *gin.Context) {
	rng, ok := parseRange(c)
	if !ok {
		return
	}

	var managerID *uuid.UUID
	if v := c.Query("manager_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid manager_id", nil)
			return
		}
		managerID = &id
	}

	report, err := h.svc.Funnel(c.Request.Context(), rng, managerID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, report)
}

func (h *Handler) Summary(c *gin.Context) {
	rng, ok := parseRange(c)
	if !ok {
		return
	}

	report, err := h.svc.Summary(c.Request.Context(), rng)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, report)
}

func (h *Handler) ManagerActivity(c *gin.Context) {
	rng, ok := parseRange(c)
	if !ok {
		return
	}

	report, err := h.svc.ManagerActivity(c.Request.Context(), rng)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, report)
}

// parseRange reads the optional from/to date filters. The upper bound is
// exclusive and shifted one day forward so "to=2026-08-31" includes the
// whole day.
func parseRange(c *gin.Context) (repository.Range, bool) {
	var rng repository.Range
	if v := c.Query("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid from date, use YYYY-MM-DD", nil)
			return repository.Range{}, false
		}
		rng.From = &t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid to date, use YYYY-MM-DD", nil)
			return repository.Range{}, false
		}
		end := t.AddDate(0, 0, 1)
		rng.To = &end
	}
	return rng, true
}
