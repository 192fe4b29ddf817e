package scheduler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apphttp "nashcrm_backend/internal/http"
	"nashcrm_backend/platform/httpkit"
	"nashcrm_backend/platform/logger"
)

// Module exposes admin endpoints for triggering maintenance jobs
// outside their cron schedule. When the queue client is nil (redis not
// configured) the routes respond with 503.
type Module struct {
	client *Client
	log    *logger.Logger
}

func NewModule(client *Client, log *logger.Logger) *Module {
	return &Module{client: client, log: log}
}

func (m *Module) Name() string { return "scheduler" }

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	jobs := ctx.Admin.Group("/jobs")
	jobs.POST("/daily-report", m.triggerDailyReport)
	jobs.POST("/follow-up-sweep", m.triggerFollowUpSweep)
	jobs.POST("/metrics-refresh", m.triggerMetricsRefresh)
}

func (m *Module) triggerDailyReport(c *gin.Context) {
	if m.client == nil {
		httpkit.Error(c, http.StatusServiceUnavailable, "job queue is not configured", nil)
		return
	}
	if err := m.client.EnqueueDailyReport(c.Request.Context()); err != nil {
		m.log.EffectError("enqueue daily report", err)
		httpkit.Error(c, http.StatusInternalServerError, "could not enqueue job", nil)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

func (m *Module) triggerFollowUpSweep(c *gin.Context) {
	if m.client == nil {
		httpkit.Error(c, http.StatusServiceUnavailable, "job queue is not configured", nil)
		return
	}

	var req struct {
		DaysInactive int `json:"days_inactive"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
			return
		}
	}

	if err := m.client.EnqueueFollowUpSweep(c.Request.Context(), req.DaysInactive); err != nil {
		m.log.EffectError("enqueue follow-up sweep", err)
		httpkit.Error(c, http.StatusInternalServerError, "could not enqueue job", nil)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

func (m *Module) triggerMetricsRefresh(c *gin.Context) {
	if m.client == nil {
		httpkit.Error(c, http.StatusServiceUnavailable, "job queue is not configured", nil)
		return
	}
	if err := m.client.EnqueueMetricsRefresh(c.Request.Context()); err != nil {
		m.log.EffectError("enqueue metrics refresh", err)
		httpkit.Error(c, http.StatusInternalServerError, "could not enqueue job", nil)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

var _ apphttp.Module = (*Module)(nil)
