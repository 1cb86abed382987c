package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/scholarpath/slaops/internal/sla/model"
)

// Cache mirrors breach and ticket state into Redis for the read surfaces.
// Records are JSON values indexed by status sets; moves between index sets
// run in a Lua script so readers never observe a record in two sets.
// A nil client makes every operation a no-op.
type Cache struct {
	rdb *redis.Client
}

// New creates a cache over the given client; rdb may be nil.
func New(rdb *redis.Client) *Cache { return &Cache{rdb: rdb} }

var moveIndexScript = redis.NewScript(`
redis.call('SET', KEYS[1], ARGV[1], 'KEEPTTL')
if KEYS[2] ~= '' then redis.call('SREM', KEYS[2], ARGV[2]) end
if KEYS[3] ~= '' then redis.call('SADD', KEYS[3], ARGV[2]) end
return 1
`)

// WriteBreach stores the breach record and maintains the per-partner
// active/resolved index sets.
func (c *Cache) WriteBreach(ctx context.Context, b *model.SLABreach) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshal breach: %w", err)
	}
	key := "sla:breach:" + b.ID
	activeIdx := "sla:index:breach:" + b.PartnerID + ":active"
	resolvedIdx := "sla:index:breach:" + b.PartnerID + ":resolved"
	from, to := resolvedIdx, activeIdx
	if b.Status == model.BreachResolved {
		from, to = activeIdx, resolvedIdx
	}
	if err := moveIndexScript.Run(ctx, c.rdb, []string{key, from, to}, string(data), b.ID).Err(); err != nil {
		return fmt.Errorf("write breach cache: %w", err)
	}
	return nil
}

// WriteTicket stores the ticket record and maintains the open/closed index
// sets.
func (c *Cache) WriteTicket(ctx context.Context, t *model.SupportTicket) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal ticket: %w", err)
	}
	key := "sla:ticket:" + t.ID
	openIdx := "sla:index:ticket:open"
	closedIdx := "sla:index:ticket:closed"
	from, to := closedIdx, openIdx
	if t.Status == model.TicketClosed {
		from, to = openIdx, closedIdx
	}
	if err := moveIndexScript.Run(ctx, c.rdb, []string{key, from, to}, string(data), t.ID).Err(); err != nil {
		return fmt.Errorf("write ticket cache: %w", err)
	}
	return nil
}

// GetBreach loads one breach record from cache, reporting found=false on a
// cache miss.
func (c *Cache) GetBreach(ctx context.Context, breachID string) (*model.SLABreach, bool, error) {
	if c == nil || c.rdb == nil {
		return nil, false, nil
	}
	val, err := c.rdb.Get(ctx, "sla:breach:"+breachID).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get breach cache: %w", err)
	}
	var b model.SLABreach
	if err := json.Unmarshal([]byte(val), &b); err != nil {
		return nil, false, fmt.Errorf("unmarshal breach cache: %w", err)
	}
	return &b, true, nil
}
