package model

import "time"

// Tier is the partner service level. It determines SLA targets, polling
// frequency and escalation speed.
type Tier string

const (
	TierEnterprise   Tier = "enterprise"
	TierProfessional Tier = "professional"
	TierStandard     Tier = "standard"
)

// AllTiers lists tiers in descending service level order.
func AllTiers() []Tier { return []Tier{TierEnterprise, TierProfessional, TierStandard} }

// IsValid reports whether t names a known tier.
func (t Tier) IsValid() bool {
	switch t {
	case TierEnterprise, TierProfessional, TierStandard:
		return true
	}
	return false
}

// MetricKind identifies one measured SLA dimension.
type MetricKind string

const (
	MetricAvailability MetricKind = "availability"
	MetricLatencyP50   MetricKind = "latency_p50"
	MetricLatencyP95   MetricKind = "latency_p95"
	MetricLatencyP99   MetricKind = "latency_p99"
	MetricErrorRate    MetricKind = "error_rate"
	MetricThroughput   MetricKind = "throughput"
)

// RequiredMetricKinds is the full catalog every tier must define a target for.
func RequiredMetricKinds() []MetricKind {
	return []MetricKind{
		MetricAvailability,
		MetricLatencyP50,
		MetricLatencyP95,
		MetricLatencyP99,
		MetricErrorRate,
		MetricThroughput,
	}
}

// IsValid reports whether k names a known metric kind.
func (k MetricKind) IsValid() bool {
	switch k {
	case MetricAvailability, MetricLatencyP50, MetricLatencyP95, MetricLatencyP99, MetricErrorRate, MetricThroughput:
		return true
	}
	return false
}

// HigherIsBetter reports the violation direction for k. Availability and
// throughput violate when measured below target; latency and error rate
// violate when measured above target.
func (k MetricKind) HigherIsBetter() bool {
	switch k {
	case MetricAvailability, MetricThroughput:
		return true
	}
	return false
}

// Severity classifies how far a measurement deviates from its target.
type Severity string

const (
	SeverityInfo      Severity = "info"
	SeverityWarning   Severity = "warning"
	SeverityCritical  Severity = "critical"
	SeverityEmergency Severity = "emergency"
)

// BreachStatus is the lifecycle state of an SLABreach.
type BreachStatus string

const (
	BreachActive   BreachStatus = "active"
	BreachResolved BreachStatus = "resolved"
)

// SLATarget is one per-tier metric target with its penalty weight. Targets
// are immutable and loaded at startup.
type SLATarget struct {
	Tier           Tier       `json:"tier" yaml:"tier"`
	Metric         MetricKind `json:"metric" yaml:"metric"`
	Value          float64    `json:"value" yaml:"value"`
	Unit           string     `json:"unit" yaml:"unit"`
	Period         string     `json:"period" yaml:"period"` // measurement period, e.g. "monthly"
	PenaltyPercent float64    `json:"penaltyPercent" yaml:"penalty_percent"`
}

// PerformanceSnapshot is one discrete, timestamped measurement of a partner's
// live performance, produced by an external telemetry collector. Immutable
// once stored.
type PerformanceSnapshot struct {
	PartnerID       string    `json:"partnerId"`
	Tier            Tier      `json:"tier"`
	Timestamp       time.Time `json:"timestamp"`
	LatencyP50Ms    float64   `json:"latencyP50Ms"`
	LatencyP95Ms    float64   `json:"latencyP95Ms"`
	LatencyP99Ms    float64   `json:"latencyP99Ms"`
	Availability    float64   `json:"availability"` // percent, 0..100
	ErrorRate       float64   `json:"errorRate"`    // percent, 0..100
	ThroughputRPS   float64   `json:"throughputRps"`
	ConcurrentConns int       `json:"concurrentConns"`
	TransferRateMbs float64   `json:"transferRateMbs"`
}

// MetricValue returns the snapshot measurement for the given kind.
func (s *PerformanceSnapshot) MetricValue(kind MetricKind) float64 {
	switch kind {
	case MetricAvailability:
		return s.Availability
	case MetricLatencyP50:
		return s.LatencyP50Ms
	case MetricLatencyP95:
		return s.LatencyP95Ms
	case MetricLatencyP99:
		return s.LatencyP99Ms
	case MetricErrorRate:
		return s.ErrorRate
	case MetricThroughput:
		return s.ThroughputRPS
	}
	return 0
}

// SLABreach records a violation of an SLA target from detection to resolution.
// At most one active breach exists per (partner, metric); repeated violations
// update the open record instead of duplicating it.
type SLABreach struct {
	ID             string       `json:"id"`
	PartnerID      string       `json:"partnerId"`
	Metric         MetricKind   `json:"metric"`
	TargetValue    float64      `json:"targetValue"`
	ActualValue    float64      `json:"actualValue"`
	Severity       Severity     `json:"severity"`
	StartAt        time.Time    `json:"startAt"`
	EndAt          *time.Time   `json:"endAt,omitempty"`
	CreditPercent  float64      `json:"creditPercent"`
	RootCause      string       `json:"rootCause,omitempty"`
	Remediation    []string     `json:"remediation,omitempty"`
	Status         BreachStatus `json:"status"`
	DurationMinute float64      `json:"durationMinutes"`
}

// UptimeWindow is an availability aggregate over an arbitrary time range,
// derived on demand from stored snapshots.
type UptimeWindow struct {
	PartnerID       string    `json:"partnerId"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	TotalMinutes    float64   `json:"totalMinutes"`
	DowntimeMinutes float64   `json:"downtimeMinutes"`
	Availability    float64   `json:"availability"`
	IncidentCount   int       `json:"incidentCount"`
	Compliant       bool      `json:"compliant"`
}

// SLAReport is the per-partner compliance report for a period. Computed on
// demand, never mutated.
type SLAReport struct {
	PartnerID          string                 `json:"partnerId"`
	Tier               Tier                   `json:"tier"`
	PeriodStart        time.Time              `json:"periodStart"`
	PeriodEnd          time.Time              `json:"periodEnd"`
	MetricCompliance   map[MetricKind]float64 `json:"metricCompliance"` // percent of compliant snapshots
	OverallCompliance  float64                `json:"overallCompliance"`
	Uptime             UptimeWindow           `json:"uptime"`
	Breaches           []SLABreach            `json:"breaches"`
	MaintenanceWindows []MaintenanceWindow    `json:"maintenanceWindows"`
	CreditsEarned      float64                `json:"creditsEarned"`
	NextReview         time.Time              `json:"nextReview"`
}

// MaintenanceWindow is a scheduled exclusion period attached to reports.
type MaintenanceWindow struct {
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Description string    `json:"description"`
}

// TicketPriority is the SLA urgency of a support ticket.
type TicketPriority string

const (
	PriorityP1 TicketPriority = "P1"
	PriorityP2 TicketPriority = "P2"
	PriorityP3 TicketPriority = "P3"
)

// IsValid reports whether p names a known priority.
func (p TicketPriority) IsValid() bool {
	switch p {
	case PriorityP1, PriorityP2, PriorityP3:
		return true
	}
	return false
}

// TicketStatus is the lifecycle state of a SupportTicket.
type TicketStatus string

const (
	TicketOpen            TicketStatus = "open"
	TicketInProgress      TicketStatus = "in_progress"
	TicketWaitingCustomer TicketStatus = "waiting_customer"
	TicketEscalated       TicketStatus = "escalated"
	TicketResolved        TicketStatus = "resolved"
	TicketClosed          TicketStatus = "closed"
)

// Terminal reports whether no further transitions are allowed from s.
func (s TicketStatus) Terminal() bool { return s == TicketClosed }

// Channel is a notification delivery route for escalations.
type Channel string

const (
	ChannelChat      Channel = "chat"
	ChannelEmail     Channel = "email"
	ChannelPager     Channel = "pager"
	ChannelPhone     Channel = "phone"
	ChannelExecutive Channel = "executive"
)

// EscalationStep is one rung of a tier/priority response ladder.
type EscalationStep struct {
	Level          int           `json:"level" yaml:"level"`
	ResponseBudget time.Duration `json:"responseBudget" yaml:"-"`
	Channels       []Channel     `json:"channels" yaml:"channels"`
}

// EscalationRule maps (tier, priority) to its ordered escalation ladder.
type EscalationRule struct {
	Tier     Tier             `json:"tier" yaml:"tier"`
	Priority TicketPriority   `json:"priority" yaml:"priority"`
	Steps    []EscalationStep `json:"steps" yaml:"steps"`
}

// SupportTicket is the aggregate for a partner incident. The escalation level
// only increases over a ticket's lifetime.
type SupportTicket struct {
	ID                string         `json:"id"`
	PartnerID         string         `json:"partnerId"`
	Tier              Tier           `json:"tier"`
	Type              string         `json:"type"`
	Priority          TicketPriority `json:"priority"`
	Severity          Severity       `json:"severity"`
	Status            TicketStatus   `json:"status"`
	Level             int            `json:"level"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
	FirstResponseAt   *time.Time     `json:"firstResponseAt,omitempty"`
	ResolvedAt        *time.Time     `json:"resolvedAt,omitempty"`
	ExecutiveNotified bool           `json:"executiveNotified"`
}

// EscalationEvent is one append-only audit record for a level transition.
type EscalationEvent struct {
	ID           string    `json:"id"`
	TicketID     string    `json:"ticketId"`
	FromLevel    int       `json:"fromLevel"`
	ToLevel      int       `json:"toLevel"`
	At           time.Time `json:"at"`
	Actor        string    `json:"actor"`
	Reason       string    `json:"reason"`
	Notified     bool      `json:"notified"`
	Acknowledged bool      `json:"acknowledged"`
}
