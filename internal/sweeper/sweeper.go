// Package sweeper expires stale needs and offers held locally. Expiry is a
// local fact: no retraction is broadcast, peers converge through their own
// sweepers.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/akenel/helixnet-sub001/internal/domain"
	"github.com/akenel/helixnet-sub001/internal/store"
)

type Sweeper struct {
	store      *store.Store
	interval   time.Duration
	defaultTTL time.Duration
	log        *slog.Logger
}

func New(st *store.Store, interval, defaultTTL time.Duration, log *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}

	return &Sweeper{
		store:      st,
		interval:   interval,
		defaultTTL: defaultTTL,
		log:        log.With("component", "sweeper"),
	}
}

// Start runs the sweep loop until ctx is cancelled. No broker access needed.
func (s *Sweeper) Start(ctx context.Context) {
	go func() {
		t := time.NewTicker(s.interval)
		defer t.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Sweep(time.Now().UTC())
			}
		}
	}()
}

// Sweep expires every open need and pending offer stale at now, via the
// entity state machines, and returns how many of each were expired.
func (s *Sweeper) Sweep(now time.Time) (expiredNeeds, expiredOffers int) {
	for _, n := range s.store.OpenNeeds() {
		if !n.ExpiresBefore(now, s.defaultTTL) {
			continue
		}

		// A concurrent fulfil/cancel can win the race; that is fine.
		if _, changed, err := s.store.TransitionNeed(n.ID, domain.NeedStatusExpired); err != nil {
			s.log.Debug("need expiry skipped", "need_id", n.ID, "error", err)
		} else if changed {
			expiredNeeds++
			s.log.Info("need expired", "need_id", n.ID, "query", n.Query)
		}
	}

	for _, o := range s.store.PendingOffers() {
		if !o.ExpiresBefore(now, s.defaultTTL) {
			continue
		}

		if _, changed, err := s.store.TransitionOffer(o.ID, domain.OfferStatusExpired); err != nil {
			s.log.Debug("offer expiry skipped", "offer_id", o.ID, "error", err)
		} else if changed {
			expiredOffers++
			s.log.Info("offer expired", "offer_id", o.ID, "need_id", o.NeedID)
		}
	}

	return expiredNeeds, expiredOffers
}
