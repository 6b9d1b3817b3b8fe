package auction

import (
	"context"
	"log/slog"
	"time"

	"github.com/grandline/auctionhouse/metrics"
)

const (
	// DefaultSweepInterval is how often the sweeper scans for due and
	// ending-soon auctions.
	DefaultSweepInterval = 30 * time.Second

	// lastCallWindow is the remaining-time threshold for the last-call
	// ping, in seconds.
	lastCallWindow = 600
)

// SweeperConfig configures the background sweeper.
type SweeperConfig struct {
	// Interval between sweeps; defaults to DefaultSweepInterval.
	Interval time.Duration

	// SpeedChannels are flagged as pinged without a last-call
	// notification.
	SpeedChannels map[int64]bool

	Log *slog.Logger
	Now func() time.Time
}

// Sweeper closes out due auctions and pings channels entering their last
// minutes. It shares the engine's guard set so a sweep never races a bid
// or a manual stop on the same channel.
type Sweeper struct {
	registry  *Registry
	guards    *GuardSet
	store     Store
	notifier  Notifier
	directory Directory

	interval time.Duration
	speed    map[int64]bool
	log      *slog.Logger
	now      func() time.Time
}

// NewSweeper wires a sweeper over the same store, registry and guard set
// the engine uses.
func NewSweeper(registry *Registry, guards *GuardSet, store Store, notifier Notifier, directory Directory, cfg SweeperConfig) *Sweeper {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	speed := cfg.SpeedChannels
	if speed == nil {
		speed = map[int64]bool{}
	}
	return &Sweeper{
		registry:  registry,
		guards:    guards,
		store:     store,
		notifier:  notifier,
		directory: directory,
		interval:  interval,
		speed:     speed,
		log:       log,
		now:       now,
	}
}

// Run sweeps on a fixed interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	s.log.Info("sweeper started", "interval", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper stopped")
			return
		case <-ticker.C:
			s.RunDueSweep(ctx)
			s.RunLastCallSweep(ctx)
		}
	}
}

// RunDueSweep closes every auction whose deadline has passed. Channels
// busy with another operation are left for the next tick.
func (s *Sweeper) RunDueSweep(ctx context.Context) {
	due, err := s.store.FetchDue(ctx, s.now().Unix())
	if err != nil {
		metrics.SweepErrors.Inc()
		s.log.Error("due sweep fetch failed", "err", err)
		return
	}

	for _, a := range due {
		if err := s.closeAuction(ctx, a); err != nil {
			if IsBusy(err) {
				continue
			}
			metrics.SweepErrors.Inc()
			s.log.Error("due sweep close failed", "channel", a.ChannelID, "err", err)
		}
	}
}

func (s *Sweeper) closeAuction(ctx context.Context, a *Auction) error {
	release, err := s.guards.TryAcquire(a.ChannelID, OpEnding)
	if err != nil {
		return err
	}
	defer release()

	exists, err := s.directory.ChannelExists(ctx, a.ChannelID)
	if err != nil {
		return err
	}
	if !exists {
		// The channel is gone; drop the auction without ceremony.
		s.log.Warn("auction channel vanished", "channel", a.ChannelID, "item", a.Item)
		return s.registry.Delete(ctx, a.ChannelID)
	}

	if err := s.registry.Delete(ctx, a.ChannelID); err != nil {
		return err
	}
	metrics.AuctionsExpired.Inc()

	if a.HasBids() {
		if err := s.notifier.AuctionClaim(ctx, a); err != nil {
			s.log.Error("claim notification failed", "channel", a.ChannelID, "err", err)
		}
	} else {
		if err := s.notifier.AuctionEnded(ctx, a); err != nil {
			s.log.Error("ended notification failed", "channel", a.ChannelID, "err", err)
		}
	}

	s.log.Info("auction closed",
		"channel", a.ChannelID, "item", a.Item,
		"winner", a.HighestBidder, "offer", a.HighestOffer)
	return nil
}

// RunLastCallSweep pings auctions entering their final minutes, once per
// auction. Speed channels are flagged without a notification so the due
// sweep still skips them on the next pass.
func (s *Sweeper) RunLastCallSweep(ctx context.Context) {
	ending, err := s.store.FetchEndingSoon(ctx, s.now().Unix(), lastCallWindow)
	if err != nil {
		metrics.SweepErrors.Inc()
		s.log.Error("last call fetch failed", "err", err)
		return
	}

	for _, a := range ending {
		if kind, held := s.guards.Holder(a.ChannelID); held && kind == OpEnding {
			continue
		}

		exists, err := s.directory.ChannelExists(ctx, a.ChannelID)
		if err != nil {
			metrics.SweepErrors.Inc()
			s.log.Error("last call channel check failed", "channel", a.ChannelID, "err", err)
			continue
		}
		if !exists {
			s.log.Warn("auction channel vanished", "channel", a.ChannelID, "item", a.Item)
			if err := s.registry.Delete(ctx, a.ChannelID); err != nil {
				metrics.SweepErrors.Inc()
				s.log.Error("vanished channel delete failed", "channel", a.ChannelID, "err", err)
			}
			continue
		}

		// Flag before pinging so a notification failure cannot cause a
		// repeat ping on the next tick.
		if err := s.registry.UpdateLastMinutePinged(ctx, a.ChannelID, true); err != nil {
			metrics.SweepErrors.Inc()
			s.log.Error("last call flag update failed", "channel", a.ChannelID, "err", err)
			continue
		}

		if s.speed[a.ChannelID] {
			continue
		}

		metrics.LastCallPings.Inc()
		if err := s.notifier.LastCall(ctx, a); err != nil {
			s.log.Error("last call notification failed", "channel", a.ChannelID, "err", err)
		}
	}
}
