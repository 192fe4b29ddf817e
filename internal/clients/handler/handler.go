package handler

import (
	"net/http"
	"strconv"

	"nashcrm_backend/internal/clients/repository"
	"nashcrm_backend/internal/clients/service"
	"nashcrm_backend/internal/clients/transport"
	"nashcrm_backend/platform/httpkit"
	"nashcrm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const msgInvalidRequest = "invalid request"

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/by-phone", h.GetByPhone)
	rg.GET("/:id", h.GetByID)
	rg.PUT("/:id/manager", h.AssignManager)
	rg.POST("/:id/refresh-metrics", h.RefreshMetrics)
	rg.GET("/:id/interactions", h.ListInteractions)
	rg.POST("/:id/interactions", h.RecordInteraction)

	rg.POST("/tasks", h.CreateTask)
	rg.GET("/tasks", h.ListTasks)
	rg.PATCH("/tasks/:id/status", h.UpdateTaskStatus)
}

func (h *Handler) List(c *gin.Context) {
	params := repository.ListClientsParams{
		Limit:  queryInt(c, "limit", 50),
		Offset: queryInt(c, "offset", 0),
	}
	if v := c.Query("temperature"); v != "" {
		params.Temperature = &v
	}
	if v := c.Query("akb_segment"); v != "" {
		params.AKBSegment = &v
	}
	if v := c.Query("assigned_to"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid assigned_to", nil)
			return
		}
		params.AssignedTo = &id
	}

	list, err := h.svc.List(c.Request.Context(), params)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, list)
}

func (h *Handler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	client, err := h.svc.GetClient(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, client)
}

func (h *Handler) GetByPhone(c *gin.Context) {
	client, err := h.svc.GetByPhone(c.Request.Context(), c.Query("phone"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, client)
}

func (h *Handler) AssignManager(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.AssignManagerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	if httpkit.HandleError(c, h.svc.AssignManager(c.Request.Context(), id, req.ManagerID)) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) RefreshMetrics(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	client, err := h.svc.GetClient(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	_, after, err := h.svc.RefreshMetrics(c.Request.Context(), client.Phone)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToClientResponse(after))
}

func (h *Handler) ListInteractions(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	interactions, err := h.svc.ListInteractions(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, interactions)
}

func (h *Handler) RecordInteraction(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.CreateInteractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	interaction, err := h.svc.RecordInteraction(c.Request.Context(), id, httpkit.GetIdentity(c).UserID(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, interaction)
}

func (h *Handler) CreateTask(c *gin.Context) {
	var req transport.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	task, err := h.svc.CreateTask(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, task)
}

func (h *Handler) ListTasks(c *gin.Context) {
	params := repository.ListTasksParams{
		Limit:  queryInt(c, "limit", 50),
		Offset: queryInt(c, "offset", 0),
	}
	if v := c.Query("client_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid client_id", nil)
			return
		}
		params.ClientID = &id
	}
	if v := c.Query("assigned_to"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid assigned_to", nil)
			return
		}
		params.AssignedTo = &id
	}
	if v := c.Query("status"); v != "" {
		params.Status = &v
	}

	tasks, err := h.svc.ListTasks(c.Request.Context(), params)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, tasks)
}

func (h *Handler) UpdateTaskStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.UpdateTaskStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	task, err := h.svc.UpdateTaskStatus(c.Request.Context(), id, req.Status)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, task)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid id", nil)
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, def int) int {
	v := c.Query(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
