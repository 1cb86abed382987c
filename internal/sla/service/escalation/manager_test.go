package escalation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/scholarpath/slaops/internal/sla/model"
	"github.com/scholarpath/slaops/internal/sla/service/notify"
)

type fakeTimer struct {
	stopped bool
}

func (f *fakeTimer) Stop() bool {
	f.stopped = true
	return true
}

// timerControl captures armed timers so tests fire them deterministically.
type timerControl struct {
	mu    sync.Mutex
	armed []armedTimer
}

type armedTimer struct {
	budget time.Duration
	fire   func()
	timer  *fakeTimer
}

func (tc *timerControl) factory(d time.Duration, fn func()) Timer {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	ft := &fakeTimer{}
	tc.armed = append(tc.armed, armedTimer{budget: d, fire: fn, timer: ft})
	return ft
}

func (tc *timerControl) last(t *testing.T) armedTimer {
	t.Helper()
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if len(tc.armed) == 0 {
		t.Fatal("no timer armed")
	}
	return tc.armed[len(tc.armed)-1]
}

func (tc *timerControl) count() int {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return len(tc.armed)
}

type memDispatcher struct {
	mu   sync.Mutex
	sent []notify.Message
}

func (d *memDispatcher) Dispatch(msg notify.Message) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, msg)
	return true
}

func (d *memDispatcher) messages() []notify.Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]notify.Message, len(d.sent))
	copy(out, d.sent)
	return out
}

func newManagerFixture(t *testing.T) (*Manager, *timerControl, *memDispatcher) {
	t.Helper()
	tc := &timerControl{}
	disp := &memDispatcher{}
	m := NewManager(DefaultEngine(), disp, nil, nil).WithTimerFactory(tc.factory)
	return m, tc, disp
}

func TestCreate_ArmsFirstLevelTimer(t *testing.T) {
	m, tc, _ := newManagerFixture(t)
	ticket, err := m.Create(context.Background(), "partner-a", model.TierEnterprise, "sla_breach", model.PriorityP1, model.SeverityCritical)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ticket.Status != model.TicketOpen || ticket.Level != 1 {
		t.Fatalf("new ticket must be open at level 1: %+v", ticket)
	}
	if tc.count() != 1 {
		t.Fatalf("expected one armed timer, got %d", tc.count())
	}
	if got := tc.last(t).budget; got != 15*time.Minute {
		t.Fatalf("enterprise P1 level 1 budget: expected 15m, got %v", got)
	}
}

func TestCreate_Validation(t *testing.T) {
	m, _, _ := newManagerFixture(t)
	ctx := context.Background()
	if _, err := m.Create(ctx, "", model.TierEnterprise, "sla_breach", model.PriorityP1, model.SeverityCritical); !model.IsValidation(err) {
		t.Fatalf("empty partner: expected validation error, got %v", err)
	}
	if _, err := m.Create(ctx, "partner-a", "vip", "sla_breach", model.PriorityP1, model.SeverityCritical); !model.IsValidation(err) {
		t.Fatalf("bad tier: expected validation error, got %v", err)
	}
	if _, err := m.Create(ctx, "partner-a", model.TierEnterprise, "sla_breach", "P9", model.SeverityCritical); !model.IsValidation(err) {
		t.Fatalf("bad priority: expected validation error, got %v", err)
	}
}

func TestTimerExpiry_Escalates(t *testing.T) {
	m, tc, disp := newManagerFixture(t)
	ticket, err := m.Create(context.Background(), "partner-a", model.TierEnterprise, "sla_breach", model.PriorityP1, model.SeverityCritical)
	if err != nil {
		t.Fatal(err)
	}

	tc.last(t).fire()

	got, err := m.Get(ticket.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != model.TicketEscalated || got.Level != 2 {
		t.Fatalf("after budget miss: expected escalated level 2, got %+v", got)
	}
	events, err := m.Events(ticket.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatalf("expected exactly one escalation event, got %d", len(events))
	}
	ev := events[0]
	if ev.FromLevel != 1 || ev.ToLevel != 2 || ev.Actor != "system" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	// the next level's timer is armed
	if tc.count() != 2 {
		t.Fatalf("expected a second armed timer, got %d", tc.count())
	}
	if got := tc.last(t).budget; got != 30*time.Minute {
		t.Fatalf("enterprise P1 level 2 budget: expected 30m, got %v", got)
	}
	msgs := disp.messages()
	if len(msgs) != 1 || msgs[0].TicketID != ticket.ID || msgs[0].Executive {
		t.Fatalf("expected one non-executive notification, got %+v", msgs)
	}
}

func TestAcknowledge_CancelsTimer(t *testing.T) {
	m, tc, _ := newManagerFixture(t)
	ticket, err := m.Create(context.Background(), "partner-a", model.TierEnterprise, "sla_breach", model.PriorityP1, model.SeverityCritical)
	if err != nil {
		t.Fatal(err)
	}
	armed := tc.last(t)

	acked, err := m.Acknowledge(context.Background(), ticket.ID, "oncall-1")
	if err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	if acked.Status != model.TicketInProgress || acked.FirstResponseAt == nil {
		t.Fatalf("acknowledged ticket: %+v", acked)
	}
	if !armed.timer.stopped {
		t.Fatal("acknowledgment must stop the armed timer")
	}

	// a stale fire after acknowledgment must be a no-op
	armed.fire()
	got, _ := m.Get(ticket.ID)
	if got.Level != 1 || got.Status != model.TicketInProgress {
		t.Fatalf("stale timer fire must not escalate: %+v", got)
	}
	events, _ := m.Events(ticket.ID)
	if len(events) != 0 {
		t.Fatalf("stale fire must not append events, got %d", len(events))
	}
}

func TestTimerExpiry_TerminalLevel(t *testing.T) {
	m, tc, disp := newManagerFixture(t)
	ticket, err := m.Create(context.Background(), "partner-a", model.TierEnterprise, "sla_breach", model.PriorityP1, model.SeverityCritical)
	if err != nil {
		t.Fatal(err)
	}

	// walk the full ladder: 1 -> 2 -> 3 -> 4
	for i := 0; i < 3; i++ {
		tc.last(t).fire()
	}
	got, _ := m.Get(ticket.ID)
	if got.Level != 4 {
		t.Fatalf("expected terminal level 4, got %d", got.Level)
	}
	if !got.ExecutiveNotified {
		t.Fatal("reaching the terminal step must flag executive notification")
	}
	msgs := disp.messages()
	if len(msgs) != 3 || !msgs[2].Executive {
		t.Fatalf("the terminal escalation must page executives: %+v", msgs)
	}

	// a further budget miss at the terminal level cannot escalate
	events, _ := m.Events(ticket.ID)
	before := len(events)
	tc.last(t).fire()
	after, _ := m.Events(ticket.ID)
	got, _ = m.Get(ticket.ID)
	if got.Level != 4 || len(after) != before {
		t.Fatalf("terminal level must not escalate further: level=%d events=%d", got.Level, len(after))
	}
}

func TestLevelMonotonicity(t *testing.T) {
	m, tc, _ := newManagerFixture(t)
	ticket, err := m.Create(context.Background(), "partner-a", model.TierEnterprise, "sla_breach", model.PriorityP1, model.SeverityCritical)
	if err != nil {
		t.Fatal(err)
	}
	prev := ticket.Level
	for i := 0; i < 5; i++ {
		tc.last(t).fire()
		got, _ := m.Get(ticket.ID)
		if got.Level < prev {
			t.Fatalf("escalation level regressed from %d to %d", prev, got.Level)
		}
		prev = got.Level
	}
}

func TestStatusWalk(t *testing.T) {
	m, _, _ := newManagerFixture(t)
	ctx := context.Background()
	ticket, err := m.Create(ctx, "partner-a", model.TierProfessional, "support", model.PriorityP2, model.SeverityWarning)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := m.Acknowledge(ctx, ticket.ID, "oncall-1"); err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	if _, err := m.WaitOnCustomer(ctx, ticket.ID); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if _, err := m.ResumeProgress(ctx, ticket.ID); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if _, err := m.Resolve(ctx, ticket.ID); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	closed, err := m.Close(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed.Status != model.TicketClosed {
		t.Fatalf("expected closed, got %s", closed.Status)
	}

	// closed is terminal
	if _, err := m.Resolve(ctx, ticket.ID); !model.IsValidation(err) {
		t.Fatalf("resolving a closed ticket: expected validation error, got %v", err)
	}
	if _, err := m.Acknowledge(ctx, ticket.ID, "oncall-1"); !model.IsValidation(err) {
		t.Fatalf("acknowledging a closed ticket: expected validation error, got %v", err)
	}
}

func TestClose_RequiresResolved(t *testing.T) {
	m, _, _ := newManagerFixture(t)
	ctx := context.Background()
	ticket, err := m.Create(ctx, "partner-a", model.TierStandard, "support", model.PriorityP3, model.SeverityInfo)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Close(ctx, ticket.ID); !model.IsValidation(err) {
		t.Fatalf("closing an open ticket: expected validation error, got %v", err)
	}
}

func TestWaitOnCustomer_RequiresInProgress(t *testing.T) {
	m, _, _ := newManagerFixture(t)
	ctx := context.Background()
	ticket, err := m.Create(ctx, "partner-a", model.TierStandard, "support", model.PriorityP3, model.SeverityInfo)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.WaitOnCustomer(ctx, ticket.ID); !model.IsValidation(err) {
		t.Fatalf("waiting from open: expected validation error, got %v", err)
	}
}

func TestResolve_CancelsTimer(t *testing.T) {
	m, tc, _ := newManagerFixture(t)
	ctx := context.Background()
	ticket, err := m.Create(ctx, "partner-a", model.TierEnterprise, "sla_breach", model.PriorityP1, model.SeverityCritical)
	if err != nil {
		t.Fatal(err)
	}
	armed := tc.last(t)
	if _, err := m.Resolve(ctx, ticket.ID); err != nil {
		t.Fatal(err)
	}
	armed.fire()
	got, _ := m.Get(ticket.ID)
	if got.Status != model.TicketResolved || got.Level != 1 {
		t.Fatalf("timer fire after resolve must be a no-op: %+v", got)
	}
}

func TestGetAndEvents_UnknownTicket(t *testing.T) {
	m, _, _ := newManagerFixture(t)
	if _, err := m.Get("missing"); !model.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := m.Events("missing"); !model.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}
