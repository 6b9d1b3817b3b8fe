package auction

import "sync"

// OpKind names a guarded lifecycle operation.
type OpKind string

const (
	OpBidding  OpKind = "bidding"
	OpEnding   OpKind = "ending"
	OpRollback OpKind = "rollback"
	OpExtend   OpKind = "extend"
)

// BusyReason returns the caller-facing refusal text for a held guard.
func (k OpKind) BusyReason() string {
	switch k {
	case OpBidding:
		return "another bid is currently being processed, please wait a moment and try again"
	case OpEnding:
		return "this auction is currently being ended, no changes are possible right now"
	case OpRollback:
		return "a bid rollback is currently being processed for this auction, please wait a moment and try again"
	case OpExtend:
		return "an update to the auction end time is already being processed, please wait"
	default:
		return "this auction is busy, please try again"
	}
}

// GuardSet hands out per-channel operation tokens. A channel holding any
// token refuses every other operation immediately; there is no queueing.
// Guards stand in for store transactions: bid evaluation, rollback,
// extension and expiry are all read-modify-write sequences on the same row.
type GuardSet struct {
	mu   sync.Mutex
	held map[int64]OpKind
}

// NewGuardSet creates an empty guard set.
func NewGuardSet() *GuardSet {
	return &GuardSet{held: make(map[int64]OpKind)}
}

// TryAcquire takes the channel's guard for the given operation. On success
// it returns a release function that must run on every exit path of the
// guarded section; release is idempotent. On conflict it returns a
// CodeBusy error naming the blocking operation.
func (g *GuardSet) TryAcquire(channelID int64, kind OpKind) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if blocking, ok := g.held[channelID]; ok {
		return nil, busyErr(channelID, blocking)
	}
	g.held[channelID] = kind

	var once sync.Once
	release := func() {
		once.Do(func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			delete(g.held, channelID)
		})
	}
	return release, nil
}

// Holder returns the operation currently holding the channel's guard.
func (g *GuardSet) Holder(channelID int64) (OpKind, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	kind, ok := g.held[channelID]
	return kind, ok
}
