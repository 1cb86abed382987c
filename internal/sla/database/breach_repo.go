package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/scholarpath/slaops/internal/sla/model"
)

// BreachRepo persists breach records. All writes are UPSERTs keyed by breach
// id so retried write-throughs stay idempotent. A nil receiver or database is
// tolerated; the in-memory state remains authoritative.
type BreachRepo struct {
	DB *Database
}

func NewBreachRepo(db *Database) *BreachRepo { return &BreachRepo{DB: db} }

// UpsertBreach writes the current state of an active breach.
func (r *BreachRepo) UpsertBreach(ctx context.Context, b *model.SLABreach) error {
	if r == nil || r.DB == nil {
		return nil
	}
	const q = `
	INSERT INTO sla_breaches (id, partner_id, metric, target_value, actual_value, severity, start_at, credit_percent, status)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (id) DO UPDATE SET
		actual_value = EXCLUDED.actual_value,
		severity = EXCLUDED.severity,
		status = EXCLUDED.status
	`
	_, err := r.DB.ExecContext(ctx, q, b.ID, b.PartnerID, string(b.Metric), b.TargetValue, b.ActualValue, string(b.Severity), b.StartAt, b.CreditPercent, string(b.Status))
	if err != nil {
		return fmt.Errorf("upsert breach: %w", err)
	}
	return nil
}

// MarkResolved records resolution details and the accrued duration.
func (r *BreachRepo) MarkResolved(ctx context.Context, b *model.SLABreach) error {
	if r == nil || r.DB == nil {
		return nil
	}
	remediation, _ := json.Marshal(b.Remediation)
	const q = `
	UPDATE sla_breaches
	SET status = $2, end_at = $3, root_cause = $4, remediation = $5::jsonb, duration = $6
	WHERE id = $1
	`
	duration := durationToPgInterval(time.Duration(b.DurationMinute * float64(time.Minute)))
	_, err := r.DB.ExecContext(ctx, q, b.ID, string(b.Status), b.EndAt, b.RootCause, string(remediation), duration)
	if err != nil {
		return fmt.Errorf("mark breach resolved: %w", err)
	}
	return nil
}

// durationToPgInterval converts a Go duration to a Postgres interval value.
func durationToPgInterval(d time.Duration) pgtype.Interval {
	days := int32(d / (24 * time.Hour))
	rem := d % (24 * time.Hour)
	return pgtype.Interval{
		Microseconds: rem.Microseconds(),
		Days:         days,
		Valid:        true,
	}
}
