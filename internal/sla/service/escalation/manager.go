package escalation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/scholarpath/slaops/internal/sla/model"
	"github.com/scholarpath/slaops/internal/sla/service/notify"
)

// Dispatcher sends escalation notifications. Dispatch must not block; the
// concrete implementation queues with bounded retry.
type Dispatcher interface {
	Dispatch(msg notify.Message) bool
}

// TicketRepo persists ticket transitions and escalation events. Best-effort;
// failures must not block state mutation.
type TicketRepo interface {
	UpsertTicket(ctx context.Context, t *model.SupportTicket) error
	InsertEvent(ctx context.Context, e *model.EscalationEvent) error
}

// TicketCache mirrors ticket state into a read cache.
type TicketCache interface {
	WriteTicket(ctx context.Context, t *model.SupportTicket) error
}

// Timer is an armed response-budget countdown.
type Timer interface {
	Stop() bool
}

// TimerFactory arms a countdown; tests substitute a manual implementation.
type TimerFactory func(d time.Duration, fn func()) Timer

type realTimer struct{ t *time.Timer }

func (r realTimer) Stop() bool { return r.t.Stop() }

// Manager owns ticket and escalation state. Tickets advance along the ladder
// from the rule engine; the escalation level is monotonically non-decreasing
// and never moves past the ladder's terminal level. State is partitioned per
// ticket: each entry serializes its own mutations, and timers are linearized
// with acknowledgment and resolution through a per-entry generation counter,
// so a fired-but-stale timer is a no-op.
type Manager struct {
	mu      sync.RWMutex
	tickets map[string]*ticketEntry

	engine     *RuleEngine
	dispatcher Dispatcher
	repo       TicketRepo
	cache      TicketCache
	now        func() time.Time
	newTimer   TimerFactory
}

type ticketEntry struct {
	mu       sync.Mutex
	ticket   model.SupportTicket
	path     []model.EscalationStep
	stepIdx  int
	timer    Timer
	timerGen uint64
	events   []model.EscalationEvent
}

// NewManager creates a ticket escalation manager. dispatcher, repo and cache
// may be nil when the corresponding side effect is not wired.
func NewManager(engine *RuleEngine, dispatcher Dispatcher, repo TicketRepo, cache TicketCache) *Manager {
	return &Manager{
		tickets:    map[string]*ticketEntry{},
		engine:     engine,
		dispatcher: dispatcher,
		repo:       repo,
		cache:      cache,
		now:        time.Now,
		newTimer: func(d time.Duration, fn func()) Timer {
			return realTimer{t: time.AfterFunc(d, fn)}
		},
	}
}

// WithNow overrides the clock, for tests.
func (m *Manager) WithNow(now func() time.Time) *Manager {
	m.now = now
	return m
}

// WithTimerFactory overrides timer creation, for tests.
func (m *Manager) WithTimerFactory(f TimerFactory) *Manager {
	m.newTimer = f
	return m
}

// Create opens a ticket at the first level of its escalation path and arms
// that level's response timer.
func (m *Manager) Create(ctx context.Context, partnerID string, tier model.Tier, ticketType string, priority model.TicketPriority, severity model.Severity) (*model.SupportTicket, error) {
	if partnerID == "" {
		return nil, &model.ValidationError{Field: "partnerId", Detail: "must not be empty"}
	}
	if !tier.IsValid() {
		return nil, &model.ValidationError{Field: "tier", Detail: fmt.Sprintf("unknown tier %q", tier)}
	}
	if !priority.IsValid() {
		return nil, &model.ValidationError{Field: "priority", Detail: fmt.Sprintf("unknown priority %q", priority)}
	}
	path := m.engine.PathOrDefault(tier, priority)
	now := m.now().UTC()
	entry := &ticketEntry{
		ticket: model.SupportTicket{
			ID:        uuid.NewString(),
			PartnerID: partnerID,
			Tier:      tier,
			Type:      ticketType,
			Priority:  priority,
			Severity:  severity,
			Status:    model.TicketOpen,
			Level:     path[0].Level,
			CreatedAt: now,
			UpdatedAt: now,
		},
		path: path,
	}

	m.mu.Lock()
	m.tickets[entry.ticket.ID] = entry
	m.mu.Unlock()

	entry.mu.Lock()
	m.armTimerLocked(entry)
	snapshot := entry.ticket
	entry.mu.Unlock()

	m.writeThrough(ctx, &snapshot)
	log.Info().Str("ticket", snapshot.ID).Str("partner", partnerID).
		Str("tier", string(tier)).Str("priority", string(priority)).
		Dur("response_budget", path[0].ResponseBudget).
		Msg("ticket created")
	return &snapshot, nil
}

// Acknowledge records the first response: it cancels the outstanding response
// timer and moves the ticket to in_progress. No auto-escalation fires for the
// current level after a successful acknowledgment.
func (m *Manager) Acknowledge(ctx context.Context, ticketID, actor string) (*model.SupportTicket, error) {
	entry, err := m.entry(ticketID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	t := &entry.ticket
	if t.Status == model.TicketResolved || t.Status == model.TicketClosed {
		entry.mu.Unlock()
		return nil, &model.ValidationError{Field: "status", Detail: fmt.Sprintf("cannot acknowledge a %s ticket", t.Status)}
	}
	now := m.now().UTC()
	if t.FirstResponseAt == nil {
		t.FirstResponseAt = &now
	}
	m.cancelTimerLocked(entry)
	t.Status = model.TicketInProgress
	t.UpdatedAt = now
	if n := len(entry.events); n > 0 {
		entry.events[n-1].Acknowledged = true
	}
	snapshot := *t
	entry.mu.Unlock()

	m.writeThrough(ctx, &snapshot)
	log.Info().Str("ticket", ticketID).Str("actor", actor).Msg("ticket acknowledged")
	return &snapshot, nil
}

// WaitOnCustomer parks an in-progress ticket while customer input is pending.
func (m *Manager) WaitOnCustomer(ctx context.Context, ticketID string) (*model.SupportTicket, error) {
	return m.transition(ctx, ticketID, model.TicketInProgress, model.TicketWaitingCustomer)
}

// ResumeProgress returns a waiting ticket to in_progress.
func (m *Manager) ResumeProgress(ctx context.Context, ticketID string) (*model.SupportTicket, error) {
	return m.transition(ctx, ticketID, model.TicketWaitingCustomer, model.TicketInProgress)
}

// Resolve marks the ticket resolved and cancels any armed timer. Allowed from
// any state except closed.
func (m *Manager) Resolve(ctx context.Context, ticketID string) (*model.SupportTicket, error) {
	entry, err := m.entry(ticketID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	t := &entry.ticket
	if t.Status == model.TicketClosed {
		entry.mu.Unlock()
		return nil, &model.ValidationError{Field: "status", Detail: "cannot resolve a closed ticket"}
	}
	now := m.now().UTC()
	m.cancelTimerLocked(entry)
	t.Status = model.TicketResolved
	t.ResolvedAt = &now
	t.UpdatedAt = now
	snapshot := *t
	entry.mu.Unlock()

	m.writeThrough(ctx, &snapshot)
	log.Info().Str("ticket", ticketID).Msg("ticket resolved")
	return &snapshot, nil
}

// Close finalizes a resolved ticket. Terminal.
func (m *Manager) Close(ctx context.Context, ticketID string) (*model.SupportTicket, error) {
	return m.transition(ctx, ticketID, model.TicketResolved, model.TicketClosed)
}

// Get returns a copy of the ticket.
func (m *Manager) Get(ticketID string) (*model.SupportTicket, error) {
	entry, err := m.entry(ticketID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	snapshot := entry.ticket
	return &snapshot, nil
}

// Events returns a copy of the ticket's escalation audit trail.
func (m *Manager) Events(ticketID string) ([]model.EscalationEvent, error) {
	entry, err := m.entry(ticketID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	out := make([]model.EscalationEvent, len(entry.events))
	copy(out, entry.events)
	return out, nil
}

func (m *Manager) entry(ticketID string) (*ticketEntry, error) {
	m.mu.RLock()
	entry, ok := m.tickets[ticketID]
	m.mu.RUnlock()
	if !ok {
		return nil, &model.NotFoundError{Kind: "ticket", ID: ticketID}
	}
	return entry, nil
}

func (m *Manager) transition(ctx context.Context, ticketID string, from, to model.TicketStatus) (*model.SupportTicket, error) {
	entry, err := m.entry(ticketID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	t := &entry.ticket
	if t.Status != from {
		entry.mu.Unlock()
		return nil, &model.ValidationError{Field: "status", Detail: fmt.Sprintf("cannot move %s ticket from %s to %s", ticketID, t.Status, to)}
	}
	t.Status = to
	t.UpdatedAt = m.now().UTC()
	snapshot := *t
	entry.mu.Unlock()

	m.writeThrough(ctx, &snapshot)
	log.Info().Str("ticket", ticketID).Str("status", string(to)).Msg("ticket status changed")
	return &snapshot, nil
}

// armTimerLocked arms the current step's response timer. Caller holds entry.mu.
func (m *Manager) armTimerLocked(entry *ticketEntry) {
	entry.timerGen++
	gen := entry.timerGen
	ticketID := entry.ticket.ID
	budget := entry.path[entry.stepIdx].ResponseBudget
	entry.timer = m.newTimer(budget, func() { m.onTimerExpiry(ticketID, gen) })
}

// cancelTimerLocked invalidates any armed timer. Caller holds entry.mu. The
// generation bump guarantees a concurrently fired timer observes staleness.
func (m *Manager) cancelTimerLocked(entry *ticketEntry) {
	entry.timerGen++
	if entry.timer != nil {
		entry.timer.Stop()
		entry.timer = nil
	}
}

// onTimerExpiry handles a response-budget miss. A stale generation means the
// ticket was acknowledged or resolved after the timer fired; that race
// resolves here, under the entry lock, by doing nothing.
func (m *Manager) onTimerExpiry(ticketID string, gen uint64) {
	entry, err := m.entry(ticketID)
	if err != nil {
		return
	}
	entry.mu.Lock()
	if gen != entry.timerGen {
		entry.mu.Unlock()
		return
	}
	t := &entry.ticket
	if t.Status == model.TicketResolved || t.Status == model.TicketClosed || t.FirstResponseAt != nil {
		entry.mu.Unlock()
		return
	}
	if entry.stepIdx+1 >= len(entry.path) {
		// terminal level has no successor; the miss is recorded but the
		// ticket cannot escalate further
		entry.mu.Unlock()
		log.Warn().Str("ticket", ticketID).Int("level", t.Level).
			Msg("response budget missed at terminal escalation level")
		return
	}

	fromStep := entry.path[entry.stepIdx]
	entry.stepIdx++
	toStep := entry.path[entry.stepIdx]
	now := m.now().UTC()
	t.Status = model.TicketEscalated
	t.Level = toStep.Level
	t.UpdatedAt = now
	terminal := entry.stepIdx == len(entry.path)-1
	if terminal {
		t.ExecutiveNotified = true
	}
	event := model.EscalationEvent{
		ID:        uuid.NewString(),
		TicketID:  ticketID,
		FromLevel: fromStep.Level,
		ToLevel:   toStep.Level,
		At:        now,
		Actor:     "system",
		Reason:    fmt.Sprintf("response budget %s missed at level %d", fromStep.ResponseBudget, fromStep.Level),
		Notified:  m.dispatcher != nil,
	}
	entry.events = append(entry.events, event)
	m.armTimerLocked(entry)
	snapshot := *t
	entry.mu.Unlock()

	if m.repo != nil {
		if err := m.repo.InsertEvent(context.Background(), &event); err != nil {
			log.Error().Err(err).Str("ticket", ticketID).Msg("escalation event write-through failed")
		}
	}
	m.writeThrough(context.Background(), &snapshot)
	if m.dispatcher != nil {
		m.dispatcher.Dispatch(notify.Message{
			Channels:  toStep.Channels,
			Subject:   fmt.Sprintf("ticket %s escalated to level %d", ticketID, toStep.Level),
			Body:      event.Reason,
			TicketID:  ticketID,
			PartnerID: snapshot.PartnerID,
			Executive: terminal,
		})
	}
	log.Warn().Str("ticket", ticketID).Int("from_level", fromStep.Level).
		Int("to_level", toStep.Level).Bool("executive", terminal).
		Msg("ticket escalated")
}

func (m *Manager) writeThrough(ctx context.Context, t *model.SupportTicket) {
	if m.repo != nil {
		if err := m.repo.UpsertTicket(ctx, t); err != nil {
			log.Error().Err(err).Str("ticket", t.ID).Msg("ticket write-through failed")
		}
	}
	if m.cache != nil {
		if err := m.cache.WriteTicket(ctx, t); err != nil {
			log.Error().Err(err).Str("ticket", t.ID).Msg("ticket cache write failed")
		}
	}
}
