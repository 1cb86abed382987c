package escalation

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/scholarpath/slaops/internal/sla/model"
	"github.com/scholarpath/slaops/internal/sla/service/monitor"
)

// Consumer turns breach alerts into support tickets. Critical and emergency
// breaches published by the breach manager become incidents routed through
// the escalation ladder; repeated alerts for a breach that already has an
// open ticket only annotate the log.
type Consumer struct {
	manager *Manager

	mu       sync.Mutex
	byBreach map[string]string // breach id -> ticket id
}

// NewConsumer creates a consumer creating tickets through manager.
func NewConsumer(manager *Manager) *Consumer {
	return &Consumer{manager: manager, byBreach: map[string]string{}}
}

// Start consumes breach alerts until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context, ch <-chan monitor.AlertMessage) {
	if ch == nil {
		log.Warn().Msg("escalation consumer started without channel; no-op")
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-ch:
			c.handleAlert(ctx, m)
		}
	}
}

func (c *Consumer) handleAlert(ctx context.Context, m monitor.AlertMessage) {
	c.mu.Lock()
	ticketID, seen := c.byBreach[m.BreachID]
	c.mu.Unlock()
	if seen {
		if t, err := c.manager.Get(ticketID); err == nil && !t.Status.Terminal() {
			log.Debug().Str("breach", m.BreachID).Str("ticket", ticketID).
				Msg("breach alert already has an open ticket")
			return
		}
	}

	ticket, err := c.manager.Create(ctx, m.PartnerID, m.Tier, "sla_breach", priorityForSeverity(m.Severity), m.Severity)
	if err != nil {
		log.Error().Err(err).Str("breach", m.BreachID).Msg("failed to create ticket for breach alert")
		return
	}
	c.mu.Lock()
	c.byBreach[m.BreachID] = ticket.ID
	c.mu.Unlock()
	log.Info().Str("breach", m.BreachID).Str("ticket", ticket.ID).
		Str("severity", string(m.Severity)).Msg("ticket opened for breach alert")
}

// priorityForSeverity maps breach severity to incident priority.
func priorityForSeverity(s model.Severity) model.TicketPriority {
	switch s {
	case model.SeverityEmergency:
		return model.PriorityP1
	case model.SeverityCritical:
		return model.PriorityP2
	default:
		return model.PriorityP3
	}
}
