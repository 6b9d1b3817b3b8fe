// Package policy computes the bidding and duration rules for auctions.
//
// All functions are pure: they read market data through the Valuer
// interface and return either a computed value or a Rejection explaining
// why the item cannot be auctioned. Amounts are integral currency units
// throughout, matching the store schema.
package policy
