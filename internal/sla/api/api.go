package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/scholarpath/slaops/internal/sla/model"
	"github.com/scholarpath/slaops/internal/sla/service/escalation"
	"github.com/scholarpath/slaops/internal/sla/service/monitor"
	"github.com/scholarpath/slaops/internal/sla/service/registry"
)

// Api exposes the SLA core boundary over HTTP: snapshot ingestion, breach
// queries and resolution, compliance reports and the ticket lifecycle.
type Api struct {
	targets  *registry.Registry
	store    *monitor.SnapshotStore
	breaches *monitor.BreachManager
	reports  *monitor.ReportBuilder
	tickets  *escalation.Manager
}

// New registers the SLA routes on router.
func New(router *gin.Engine, targets *registry.Registry, store *monitor.SnapshotStore, breaches *monitor.BreachManager, reports *monitor.ReportBuilder, tickets *escalation.Manager) *Api {
	api := &Api{targets: targets, store: store, breaches: breaches, reports: reports, tickets: tickets}
	api.setupRouters(router)
	return api
}

func (api *Api) setupRouters(router *gin.Engine) {
	router.POST("/v1/snapshots", api.IngestSnapshot)
	router.GET("/v1/partners/:partnerID/breaches", api.ListActiveBreaches)
	router.POST("/v1/breaches/:breachID/resolve", api.ResolveBreach)
	router.GET("/v1/partners/:partnerID/report", api.GenerateReport)
	router.GET("/v1/partners/:partnerID/uptime", api.ComputeUptime)
	router.POST("/v1/tickets", api.CreateTicket)
	router.GET("/v1/tickets/:ticketID", api.GetTicket)
	router.GET("/v1/tickets/:ticketID/events", api.ListTicketEvents)
	router.POST("/v1/tickets/:ticketID/acknowledge", api.AcknowledgeTicket)
	router.POST("/v1/tickets/:ticketID/wait", api.WaitOnCustomer)
	router.POST("/v1/tickets/:ticketID/resume", api.ResumeTicket)
	router.POST("/v1/tickets/:ticketID/resolve", api.ResolveTicket)
	router.POST("/v1/tickets/:ticketID/close", api.CloseTicket)
}

// sendError maps the typed error taxonomy to HTTP statuses using the shared
// error body shape.
func sendError(c *gin.Context, err error) {
	switch {
	case model.IsValidation(err):
		writeError(c, http.StatusBadRequest, "INVALID_PARAMETER", err.Error())
	case model.IsNotFound(err):
		writeError(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case model.IsConfiguration(err):
		writeError(c, http.StatusUnprocessableEntity, "CONFIGURATION_ERROR", err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}

func writeError(c *gin.Context, status int, code, message string) {
	c.JSON(status, map[string]any{"error": map[string]any{"code": code, "message": message}})
}
