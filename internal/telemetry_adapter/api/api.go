package api

import (
	"net/http"
	"time"

	"github.com/fox-gonic/fox"
	"github.com/rs/zerolog/log"
	"github.com/scholarpath/slaops/internal/telemetry_adapter/config"
	"github.com/scholarpath/slaops/internal/telemetry_adapter/service"
)

// Api exposes the telemetry adapter's control surface.
type Api struct {
	collector *service.Collector
	partners  []config.PartnerConfig
	router    *fox.Engine
	startedAt time.Time
}

func NewApi(collector *service.Collector, partners []config.PartnerConfig, router *fox.Engine) (*Api, error) {
	api := &Api{
		collector: collector,
		partners:  partners,
		router:    router,
		startedAt: time.Now(),
	}
	api.setupRouters(router)
	return api, nil
}

func (api *Api) setupRouters(router *fox.Engine) {
	router.GET("/healthz", api.Health)
	router.GET("/v1/partners", api.ListPartners)
	router.POST("/v1/collect", api.TriggerCollect)
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorDetail `json:"error"`
}

func sendErrorResponse(c *fox.Context, statusCode int, errorCode, message string) {
	c.JSON(statusCode, errorResponse{Error: errorDetail{Code: errorCode, Message: message}})
}

// Health reports liveness (GET /healthz).
func (api *Api) Health(c *fox.Context) {
	c.JSON(http.StatusOK, map[string]any{
		"status":        "ok",
		"uptimeSeconds": int(time.Since(api.startedAt).Seconds()),
		"partnerCount":  len(api.partners),
	})
}

// ListPartners returns the partners this adapter scrapes (GET /v1/partners).
func (api *Api) ListPartners(c *fox.Context) {
	type partnerView struct {
		PartnerID string `json:"partnerId"`
		Tier      string `json:"tier"`
		Label     string `json:"label,omitempty"`
	}
	views := make([]partnerView, 0, len(api.partners))
	for _, p := range api.partners {
		views = append(views, partnerView{PartnerID: p.PartnerID, Tier: p.Tier, Label: p.Label})
	}
	c.JSON(http.StatusOK, map[string]any{"partners": views})
}

// TriggerCollect runs one collection round out of schedule (POST /v1/collect).
func (api *Api) TriggerCollect(c *fox.Context) {
	ctx := c.Request.Context()

	if err := api.collector.CollectOnce(ctx); err != nil {
		log.Error().Err(err).Msg("manual collection round failed")
		sendErrorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "collection round failed")
		return
	}

	c.JSON(http.StatusAccepted, map[string]string{"status": "collected"})
}
