package database

import (
	"context"
	"fmt"

	"github.com/scholarpath/slaops/internal/sla/model"
)

// TicketRepo persists support tickets and their escalation audit trail.
// Best-effort like BreachRepo; nil receivers are tolerated.
type TicketRepo struct {
	DB *Database
}

func NewTicketRepo(db *Database) *TicketRepo { return &TicketRepo{DB: db} }

// UpsertTicket writes the current ticket state.
func (r *TicketRepo) UpsertTicket(ctx context.Context, t *model.SupportTicket) error {
	if r == nil || r.DB == nil {
		return nil
	}
	const q = `
	INSERT INTO support_tickets (id, partner_id, tier, type, priority, severity, status, level, created_at, updated_at, first_response_at, resolved_at, executive_notified)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	ON CONFLICT (id) DO UPDATE SET
		status = EXCLUDED.status,
		level = EXCLUDED.level,
		updated_at = EXCLUDED.updated_at,
		first_response_at = EXCLUDED.first_response_at,
		resolved_at = EXCLUDED.resolved_at,
		executive_notified = EXCLUDED.executive_notified
	`
	_, err := r.DB.ExecContext(ctx, q, t.ID, t.PartnerID, string(t.Tier), t.Type, string(t.Priority), string(t.Severity), string(t.Status), t.Level, t.CreatedAt, t.UpdatedAt, t.FirstResponseAt, t.ResolvedAt, t.ExecutiveNotified)
	if err != nil {
		return fmt.Errorf("upsert ticket: %w", err)
	}
	return nil
}

// InsertEvent appends one escalation audit record.
func (r *TicketRepo) InsertEvent(ctx context.Context, e *model.EscalationEvent) error {
	if r == nil || r.DB == nil {
		return nil
	}
	const q = `
	INSERT INTO escalation_events (id, ticket_id, from_level, to_level, at, actor, reason, notified, acknowledged)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (id) DO NOTHING
	`
	_, err := r.DB.ExecContext(ctx, q, e.ID, e.TicketID, e.FromLevel, e.ToLevel, e.At, e.Actor, e.Reason, e.Notified, e.Acknowledged)
	if err != nil {
		return fmt.Errorf("insert escalation event: %w", err)
	}
	return nil
}
