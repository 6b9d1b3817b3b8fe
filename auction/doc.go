// Package auction implements the per-channel auction lifecycle: the
// write-through registry over a durable store, the per-channel operation
// guards that serialize competing mutations, the bidding engine, and the
// background sweeper that expires auctions and fires last-call pings.
//
// One auction exists per channel at most. Every mutation writes the store
// before the in-memory registry commits, so a store failure leaves the
// registry at its last known-good state. Guarded sections substitute for
// store transactions: an operation that cannot take the channel's guard is
// refused immediately with the blocking operation's reason, never queued.
package auction
