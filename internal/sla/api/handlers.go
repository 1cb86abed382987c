package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/scholarpath/slaops/internal/sla/model"
	"github.com/scholarpath/slaops/internal/sla/service/monitor"
)

// IngestSnapshot accepts one performance snapshot from the telemetry
// collector (POST /v1/snapshots).
func (api *Api) IngestSnapshot(c *gin.Context) {
	var snap model.PerformanceSnapshot
	if err := c.ShouldBindJSON(&snap); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_PARAMETER", "invalid JSON body")
		return
	}
	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now().UTC()
	}
	if err := api.store.Append(snap); err != nil {
		sendError(c, err)
		return
	}
	log.Debug().Str("partner", snap.PartnerID).Time("ts", snap.Timestamp).Msg("snapshot ingested")
	c.JSON(http.StatusAccepted, map[string]any{"ok": true})
}

// ListActiveBreaches returns the current active breach set for a partner
// (GET /v1/partners/:partnerID/breaches).
func (api *Api) ListActiveBreaches(c *gin.Context) {
	partnerID := c.Param("partnerID")
	if partnerID == "" {
		writeError(c, http.StatusBadRequest, "INVALID_PARAMETER", "missing partnerID")
		return
	}
	breaches := api.breaches.ActiveBreaches(partnerID)
	if breaches == nil {
		breaches = []model.SLABreach{}
	}
	c.JSON(http.StatusOK, map[string]any{"partnerId": partnerID, "breaches": breaches})
}

type resolveBreachRequest struct {
	RootCause   string   `json:"rootCause" binding:"required"`
	Remediation []string `json:"remediation"`
}

// ResolveBreach closes an active breach with operator-supplied root cause
// (POST /v1/breaches/:breachID/resolve).
func (api *Api) ResolveBreach(c *gin.Context) {
	breachID := c.Param("breachID")
	var req resolveBreachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_PARAMETER", "rootCause is required")
		return
	}
	breach, err := api.breaches.Resolve(c.Request.Context(), breachID, req.RootCause, req.Remediation)
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, breach)
}

// GenerateReport computes a compliance report for a period
// (GET /v1/partners/:partnerID/report?tier=...&start=...&end=...).
func (api *Api) GenerateReport(c *gin.Context) {
	partnerID := c.Param("partnerID")
	tier := model.Tier(c.Query("tier"))
	start, end, err := parseTimeRange(c.Query("start"), c.Query("end"))
	if err != nil {
		sendError(c, err)
		return
	}
	report, err := api.reports.GenerateReport(partnerID, tier, start, end)
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ComputeUptime returns the uptime window for a period
// (GET /v1/partners/:partnerID/uptime?start=...&end=...&target=99.9).
func (api *Api) ComputeUptime(c *gin.Context) {
	partnerID := c.Param("partnerID")
	start, end, err := parseTimeRange(c.Query("start"), c.Query("end"))
	if err != nil {
		sendError(c, err)
		return
	}
	target, err := api.uptimeTarget(c, partnerID)
	if err != nil {
		sendError(c, err)
		return
	}
	snaps := api.store.Range(partnerID, start, end)
	c.JSON(http.StatusOK, monitor.ComputeWindow(snaps, partnerID, start, end, target))
}

// uptimeTarget picks the availability target for the window. An explicit
// target parameter wins; otherwise the partner's tier, taken from the tier
// parameter or the latest ingested snapshot, is looked up in the registry.
func (api *Api) uptimeTarget(c *gin.Context, partnerID string) (float64, error) {
	if t := c.Query("target"); t != "" {
		parsed, err := strconv.ParseFloat(t, 64)
		if err != nil || parsed < 0 || parsed > 100 {
			return 0, &model.ValidationError{Field: "target", Detail: "must be a percentage in [0, 100]"}
		}
		return parsed, nil
	}
	tier := model.Tier(c.Query("tier"))
	if tier == "" {
		latest, ok := api.store.Latest(partnerID)
		if !ok {
			return 0, &model.ValidationError{Field: "target", Detail: "target or tier is required for a partner with no snapshots"}
		}
		tier = latest.Tier
	}
	tgt, err := api.targets.Target(tier, model.MetricAvailability)
	if err != nil {
		return 0, err
	}
	return tgt.Value, nil
}

type createTicketRequest struct {
	PartnerID string `json:"partnerId" binding:"required"`
	Tier      string `json:"tier" binding:"required"`
	Type      string `json:"type"`
	Priority  string `json:"priority" binding:"required"`
	Severity  string `json:"severity"`
}

// CreateTicket opens a support ticket (POST /v1/tickets).
func (api *Api) CreateTicket(c *gin.Context) {
	var req createTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_PARAMETER", "partnerId, tier and priority are required")
		return
	}
	severity := model.Severity(req.Severity)
	if severity == "" {
		severity = model.SeverityWarning
	}
	ticket, err := api.tickets.Create(c.Request.Context(), req.PartnerID, model.Tier(req.Tier), req.Type, model.TicketPriority(req.Priority), severity)
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ticket)
}

// GetTicket returns one ticket (GET /v1/tickets/:ticketID).
func (api *Api) GetTicket(c *gin.Context) {
	ticket, err := api.tickets.Get(c.Param("ticketID"))
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

// ListTicketEvents returns the escalation audit trail
// (GET /v1/tickets/:ticketID/events).
func (api *Api) ListTicketEvents(c *gin.Context) {
	events, err := api.tickets.Events(c.Param("ticketID"))
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, map[string]any{"events": events})
}

type acknowledgeRequest struct {
	Actor string `json:"actor"`
}

// AcknowledgeTicket records the first response
// (POST /v1/tickets/:ticketID/acknowledge).
func (api *Api) AcknowledgeTicket(c *gin.Context) {
	var req acknowledgeRequest
	_ = c.ShouldBindJSON(&req)
	if req.Actor == "" {
		req.Actor = "operator"
	}
	ticket, err := api.tickets.Acknowledge(c.Request.Context(), c.Param("ticketID"), req.Actor)
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

// WaitOnCustomer parks an in-progress ticket
// (POST /v1/tickets/:ticketID/wait).
func (api *Api) WaitOnCustomer(c *gin.Context) {
	ticket, err := api.tickets.WaitOnCustomer(c.Request.Context(), c.Param("ticketID"))
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

// ResumeTicket returns a waiting ticket to in_progress
// (POST /v1/tickets/:ticketID/resume).
func (api *Api) ResumeTicket(c *gin.Context) {
	ticket, err := api.tickets.ResumeProgress(c.Request.Context(), c.Param("ticketID"))
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

// ResolveTicket marks a ticket resolved (POST /v1/tickets/:ticketID/resolve).
func (api *Api) ResolveTicket(c *gin.Context) {
	ticket, err := api.tickets.Resolve(c.Request.Context(), c.Param("ticketID"))
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

// CloseTicket finalizes a resolved ticket (POST /v1/tickets/:ticketID/close).
func (api *Api) CloseTicket(c *gin.Context) {
	ticket, err := api.tickets.Close(c.Request.Context(), c.Param("ticketID"))
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

func parseTimeRange(startStr, endStr string) (time.Time, time.Time, error) {
	if startStr == "" || endStr == "" {
		return time.Time{}, time.Time{}, &model.ValidationError{Field: "period", Detail: "start and end are required (RFC3339)"}
	}
	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return time.Time{}, time.Time{}, &model.ValidationError{Field: "start", Detail: "must be RFC3339"}
	}
	end, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		return time.Time{}, time.Time{}, &model.ValidationError{Field: "end", Detail: "must be RFC3339"}
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, &model.ValidationError{Field: "period", Detail: "start must precede end"}
	}
	return start, end, nil
}
