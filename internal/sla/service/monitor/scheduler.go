package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/scholarpath/slaops/internal/sla/model"
	"github.com/scholarpath/slaops/internal/sla/service/registry"
)

// Deps holds the collaborators of the compliance poll scheduler.
type Deps struct {
	Store    *SnapshotStore
	Registry *registry.Registry
	Breaches *BreachManager
	// Resync controls how often the partner set is reconciled with the
	// snapshot store. Poll frequency per partner is derived from its tier.
	Resync time.Duration
}

// PollInterval returns the evaluation frequency for a tier.
func PollInterval(tier model.Tier) time.Duration {
	switch tier {
	case model.TierEnterprise:
		return 30 * time.Second
	case model.TierProfessional:
		return 60 * time.Second
	default:
		return 300 * time.Second
	}
}

// StartScheduler runs compliance polling until ctx is cancelled. One goroutine
// per monitored partner evaluates the latest snapshot against every target of
// the partner's tier and records violations; partners appear dynamically as
// their first snapshot is ingested.
func StartScheduler(ctx context.Context, deps Deps) {
	if deps.Resync <= 0 {
		deps.Resync = 10 * time.Second
	}
	t := time.NewTicker(deps.Resync)
	defer t.Stop()

	var wg sync.WaitGroup
	running := map[string]struct{}{}
	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		case <-t.C:
			for partnerID, tier := range deps.Store.Partners() {
				if _, ok := running[partnerID]; ok {
					continue
				}
				running[partnerID] = struct{}{}
				wg.Add(1)
				go func(partnerID string, tier model.Tier) {
					defer wg.Done()
					pollPartner(ctx, deps, partnerID, tier)
				}(partnerID, tier)
				log.Info().Str("partner", partnerID).Str("tier", string(tier)).
					Dur("interval", PollInterval(tier)).Msg("started compliance poller")
			}
		}
	}
}

func pollPartner(ctx context.Context, deps Deps, partnerID string, tier model.Tier) {
	t := time.NewTicker(PollInterval(tier))
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := evaluateOnce(ctx, deps, partnerID); err != nil {
				log.Error().Err(err).Str("partner", partnerID).Msg("compliance poll failed")
			}
		}
	}
}

// evaluateOnce checks the partner's latest snapshot against its tier targets.
func evaluateOnce(ctx context.Context, deps Deps, partnerID string) error {
	snap, ok := deps.Store.Latest(partnerID)
	if !ok {
		return nil
	}
	targets, err := deps.Registry.Targets(snap.Tier)
	if err != nil {
		// unknown tier is a deterministic configuration problem; log and
		// skip rather than retry
		log.Warn().Str("partner", partnerID).Str("tier", string(snap.Tier)).Msg("no targets for partner tier, skipping evaluation")
		return nil
	}
	for _, target := range targets {
		v := Evaluate(&snap, target)
		if !v.Violated {
			continue
		}
		if _, err := deps.Breaches.RecordViolation(ctx, partnerID, snap.Tier, target, v); err != nil {
			return err
		}
	}
	return nil
}
