package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/scholarpath/slaops/internal/sla/model"
)

// AlertMessage is the payload published to downstream incident processing
// when a breach reaches critical or emergency severity.
type AlertMessage struct {
	BreachID  string           `json:"breachId"`
	PartnerID string           `json:"partnerId"`
	Tier      model.Tier       `json:"tier"`
	Metric    model.MetricKind `json:"metric"`
	Severity  model.Severity   `json:"severity"`
	Title     string           `json:"title"`
	Since     time.Time        `json:"since"`
}

// BreachRepo persists breach transitions. Implementations are best-effort;
// failures must not block in-memory state.
type BreachRepo interface {
	UpsertBreach(ctx context.Context, b *model.SLABreach) error
	MarkResolved(ctx context.Context, b *model.SLABreach) error
}

// BreachCache mirrors breach state into a read cache.
type BreachCache interface {
	WriteBreach(ctx context.Context, b *model.SLABreach) error
}

// BreachManager owns breach state per partner. It enforces the dedup
// invariant: at most one active breach per (partner, metric); a repeated
// violation of the same metric extends the open record instead of creating a
// duplicate, which keeps alert volume bounded during a sustained incident.
type BreachManager struct {
	mu         sync.RWMutex
	partitions map[string]*breachPartition
	byID       map[string]string // breach id -> partner id

	repo    BreachRepo
	cache   BreachCache
	alertCh chan<- AlertMessage
	now     func() time.Time
}

type breachPartition struct {
	mu       sync.Mutex
	active   map[model.MetricKind]*model.SLABreach
	resolved []model.SLABreach
}

// NewBreachManager creates a manager. repo, cache and alertCh may be nil when
// persistence, caching or incident intake are not wired.
func NewBreachManager(repo BreachRepo, cache BreachCache, alertCh chan<- AlertMessage) *BreachManager {
	return &BreachManager{
		partitions: map[string]*breachPartition{},
		byID:       map[string]string{},
		repo:       repo,
		cache:      cache,
		alertCh:    alertCh,
		now:        time.Now,
	}
}

// WithNow overrides the clock, for tests.
func (m *BreachManager) WithNow(now func() time.Time) *BreachManager {
	m.now = now
	return m
}

// RecordViolation applies an evaluator verdict. A new breach opens with the
// target's penalty percentage as its credit; an existing active breach for the
// same metric is updated in place, keeping its original start time so duration
// accrues from first detection.
func (m *BreachManager) RecordViolation(ctx context.Context, partnerID string, tier model.Tier, target model.SLATarget, v Verdict) (*model.SLABreach, error) {
	if !v.Violated {
		return nil, &model.ValidationError{Field: "verdict", Detail: "not a violation"}
	}
	if partnerID == "" {
		return nil, &model.ValidationError{Field: "partnerId", Detail: "must not be empty"}
	}

	p := m.partition(partnerID)
	p.mu.Lock()
	b, exists := p.active[target.Metric]
	if exists {
		b.ActualValue = v.Actual
		b.Severity = v.Severity
	} else {
		b = &model.SLABreach{
			ID:            uuid.NewString(),
			PartnerID:     partnerID,
			Metric:        target.Metric,
			TargetValue:   target.Value,
			ActualValue:   v.Actual,
			Severity:      v.Severity,
			StartAt:       m.now().UTC(),
			CreditPercent: target.PenaltyPercent,
			Status:        model.BreachActive,
		}
		p.active[target.Metric] = b
		m.mu.Lock()
		m.byID[b.ID] = partnerID
		m.mu.Unlock()
	}
	snapshot := *b
	p.mu.Unlock()

	// side effects outside the partition lock
	m.writeThrough(ctx, &snapshot)
	if !exists {
		log.Info().Str("breach", snapshot.ID).Str("partner", partnerID).
			Str("metric", string(target.Metric)).Str("severity", string(snapshot.Severity)).
			Float64("actual", v.Actual).Float64("target", target.Value).
			Msg("breach opened")
	}
	if snapshot.Severity == model.SeverityCritical || snapshot.Severity == model.SeverityEmergency {
		m.publishAlert(AlertMessage{
			BreachID:  snapshot.ID,
			PartnerID: partnerID,
			Tier:      tier,
			Metric:    target.Metric,
			Severity:  snapshot.Severity,
			Title:     fmt.Sprintf("%s breach for partner %s", target.Metric, partnerID),
			Since:     snapshot.StartAt,
		})
	}
	return &snapshot, nil
}

// Resolve closes an active breach with the operator-supplied root cause and
// remediation actions. Resolution is terminal for the breach instance; a later
// violation of the same metric opens a fresh record.
func (m *BreachManager) Resolve(ctx context.Context, breachID, rootCause string, remediation []string) (*model.SLABreach, error) {
	m.mu.RLock()
	partnerID, ok := m.byID[breachID]
	m.mu.RUnlock()
	if !ok {
		return nil, &model.NotFoundError{Kind: "breach", ID: breachID}
	}

	p := m.partition(partnerID)
	p.mu.Lock()
	var b *model.SLABreach
	for _, cand := range p.active {
		if cand.ID == breachID {
			b = cand
			break
		}
	}
	if b == nil {
		p.mu.Unlock()
		return nil, &model.NotFoundError{Kind: "breach", ID: breachID}
	}
	end := m.now().UTC()
	duration := end.Sub(b.StartAt).Minutes()
	if duration < 0 {
		p.mu.Unlock()
		return nil, &model.ValidationError{Field: "duration", Detail: "breach end precedes start (clock skew)"}
	}
	b.EndAt = &end
	b.Status = model.BreachResolved
	b.RootCause = rootCause
	b.Remediation = remediation
	b.DurationMinute = duration
	delete(p.active, b.Metric)
	p.resolved = append(p.resolved, *b)
	snapshot := *b
	p.mu.Unlock()

	if m.repo != nil {
		if err := m.repo.MarkResolved(ctx, &snapshot); err != nil {
			log.Error().Err(err).Str("breach", snapshot.ID).Msg("breach resolve write-through failed")
		}
	}
	if m.cache != nil {
		if err := m.cache.WriteBreach(ctx, &snapshot); err != nil {
			log.Error().Err(err).Str("breach", snapshot.ID).Msg("breach resolve cache write failed")
		}
	}
	log.Info().Str("breach", snapshot.ID).Str("partner", partnerID).
		Str("metric", string(snapshot.Metric)).Float64("duration_minutes", duration).
		Msg("breach resolved")
	return &snapshot, nil
}

// ActiveBreaches returns copies of the current active set, one per metric at
// most.
func (m *BreachManager) ActiveBreaches(partnerID string) []model.SLABreach {
	m.mu.RLock()
	p, ok := m.partitions[partnerID]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.SLABreach, 0, len(p.active))
	for _, kind := range model.RequiredMetricKinds() {
		if b, ok := p.active[kind]; ok {
			out = append(out, *b)
		}
	}
	return out
}

// BreachesStartedIn returns copies of all breaches, active or resolved, whose
// start time falls in [start, end].
func (m *BreachManager) BreachesStartedIn(partnerID string, start, end time.Time) []model.SLABreach {
	m.mu.RLock()
	p, ok := m.partitions[partnerID]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []model.SLABreach
	for _, b := range p.resolved {
		if inRange(b.StartAt, start, end) {
			out = append(out, b)
		}
	}
	for _, kind := range model.RequiredMetricKinds() {
		if b, ok := p.active[kind]; ok && inRange(b.StartAt, start, end) {
			out = append(out, *b)
		}
	}
	return out
}

func inRange(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}

func (m *BreachManager) partition(partnerID string) *breachPartition {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.partitions[partnerID]
	if !ok {
		p = &breachPartition{active: map[model.MetricKind]*model.SLABreach{}}
		m.partitions[partnerID] = p
	}
	return p
}

func (m *BreachManager) writeThrough(ctx context.Context, b *model.SLABreach) {
	if m.repo != nil {
		if err := m.repo.UpsertBreach(ctx, b); err != nil {
			log.Error().Err(err).Str("breach", b.ID).Msg("breach write-through failed")
		}
	}
	if m.cache != nil {
		if err := m.cache.WriteBreach(ctx, b); err != nil {
			log.Error().Err(err).Str("breach", b.ID).Msg("breach cache write failed")
		}
	}
}

func (m *BreachManager) publishAlert(msg AlertMessage) {
	if m.alertCh == nil {
		return
	}
	select {
	case m.alertCh <- msg:
	default:
		log.Warn().Str("breach", msg.BreachID).Msg("alert channel full, dropping breach alert")
	}
}
