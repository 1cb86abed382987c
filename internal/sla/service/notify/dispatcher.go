package notify

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/scholarpath/slaops/internal/sla/model"
)

// Message is one outbound notification across a channel set.
type Message struct {
	Channels  []model.Channel `json:"channels"`
	Subject   string          `json:"subject"`
	Body      string          `json:"body"`
	TicketID  string          `json:"ticketId,omitempty"`
	BreachID  string          `json:"breachId,omitempty"`
	PartnerID string          `json:"partnerId,omitempty"`
	Executive bool            `json:"executive,omitempty"`
}

// Sink delivers a message to the concrete channel backends. Delivery is
// fallible; the dispatcher retries around it.
type Sink interface {
	Send(ctx context.Context, msg Message) error
}

// LogSink is the default delivery backend: it only records the notification.
type LogSink struct{}

func (LogSink) Send(_ context.Context, msg Message) error {
	log.Info().Interface("channels", msg.Channels).Str("subject", msg.Subject).
		Str("ticket", msg.TicketID).Str("breach", msg.BreachID).
		Bool("executive", msg.Executive).Msg("notification delivered")
	return nil
}

// Dispatcher decouples notification delivery from state mutation. Messages
// are enqueued without blocking and delivered by a consumer goroutine with
// bounded exponential backoff; a full queue drops the message and logs it,
// never stalling the caller.
type Dispatcher struct {
	ch          chan Message
	sink        Sink
	redis       *redis.Client
	maxAttempts int
	baseBackoff time.Duration
	execDedup   time.Duration

	// sleepFn allows overriding for tests
	sleepFn func(time.Duration)
}

// Options tune dispatcher behavior; zero values select defaults.
type Options struct {
	QueueSize   int
	MaxAttempts int
	BaseBackoff time.Duration
	// ExecDedupTTL suppresses duplicate executive pages for the same ticket
	// within the window. Requires a redis client.
	ExecDedupTTL time.Duration
}

// NewDispatcher creates a dispatcher delivering through sink. rdb may be nil;
// executive-page dedup is then disabled.
func NewDispatcher(sink Sink, rdb *redis.Client, opts Options) *Dispatcher {
	if sink == nil {
		sink = LogSink{}
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1024
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = 500 * time.Millisecond
	}
	if opts.ExecDedupTTL <= 0 {
		opts.ExecDedupTTL = time.Hour
	}
	return &Dispatcher{
		ch:          make(chan Message, opts.QueueSize),
		sink:        sink,
		redis:       rdb,
		maxAttempts: opts.MaxAttempts,
		baseBackoff: opts.BaseBackoff,
		execDedup:   opts.ExecDedupTTL,
		sleepFn:     time.Sleep,
	}
}

// Dispatch enqueues a message without blocking. It reports whether the
// message was accepted.
func (d *Dispatcher) Dispatch(msg Message) bool {
	select {
	case d.ch <- msg:
		return true
	default:
		log.Warn().Str("subject", msg.Subject).Msg("notification queue full, dropping message")
		return false
	}
}

// Start consumes and delivers messages until ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-d.ch:
			d.deliver(ctx, msg)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, msg Message) {
	if msg.Executive && !d.tryMarkExecutivePage(ctx, msg) {
		log.Debug().Str("ticket", msg.TicketID).Msg("executive page already sent recently, skipping")
		return
	}
	backoff := d.baseBackoff
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		err := d.sink.Send(ctx, msg)
		if err == nil {
			return
		}
		log.Error().Err(err).Int("attempt", attempt).Str("subject", msg.Subject).
			Msg("notification delivery failed")
		if attempt == d.maxAttempts {
			break
		}
		d.sleepFn(backoff)
		backoff *= 2
	}
	log.Error().Str("subject", msg.Subject).Int("attempts", d.maxAttempts).
		Msg("notification dropped after retries")
}

// tryMarkExecutivePage claims the dedup key for an executive page.
// Best-effort: without redis, or on redis failure, the page goes out.
func (d *Dispatcher) tryMarkExecutivePage(ctx context.Context, msg Message) bool {
	if d.redis == nil || msg.TicketID == "" {
		return true
	}
	key := "sla:page:executive:" + msg.TicketID
	ok, err := d.redis.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339Nano), d.execDedup).Result()
	if err != nil {
		log.Error().Err(err).Str("ticket", msg.TicketID).Msg("executive page dedup check failed")
		return true
	}
	return ok
}
