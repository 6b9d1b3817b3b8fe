package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/grandline/auctionhouse/auction"
)

// SQLiteStore implements auction.Store with a local SQLite database. It
// suits single-node deployments that do not want to run PostgreSQL.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the SQLite database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// The sqlite driver serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent use.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return nil, fmt.Errorf("applying %q: %w", pragma, err)
		}
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS auctions (
		channel_id INTEGER PRIMARY KEY,
		channel_name TEXT NOT NULL,
		host_id INTEGER NOT NULL,
		host_name TEXT NOT NULL,
		item TEXT NOT NULL,
		image_link TEXT NOT NULL DEFAULT '',
		is_bulk INTEGER NOT NULL DEFAULT 0,
		highest_bidder_id INTEGER NOT NULL DEFAULT 0,
		highest_bidder TEXT NOT NULL DEFAULT '',
		highest_offer INTEGER NOT NULL DEFAULT 0,
		autobuy INTEGER NOT NULL DEFAULT 0,
		minimum_increment INTEGER NOT NULL,
		market_value INTEGER NOT NULL DEFAULT 0,
		ends_on INTEGER NOT NULL,
		last_minute_pinged INTEGER NOT NULL DEFAULT 0,
		accepted_list TEXT NOT NULL DEFAULT '',
		broadcast_message_id INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_auctions_ends_on ON auctions(ends_on);
	CREATE INDEX IF NOT EXISTS idx_auctions_host ON auctions(host_id);
	`

	ctx, cancel := context.WithTimeout(context.Background(), scanTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Upsert persists the full auction row, replacing any existing row for
// the channel.
func (s *SQLiteStore) Upsert(ctx context.Context, a *auction.Auction) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
	INSERT INTO auctions
		(channel_id, channel_name, host_id, host_name, item, image_link, is_bulk,
		 highest_bidder_id, highest_bidder, highest_offer, autobuy, minimum_increment,
		 market_value, ends_on, last_minute_pinged, accepted_list, broadcast_message_id)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (channel_id) DO UPDATE SET
		channel_name = excluded.channel_name,
		host_id = excluded.host_id,
		host_name = excluded.host_name,
		item = excluded.item,
		image_link = excluded.image_link,
		is_bulk = excluded.is_bulk,
		highest_bidder_id = excluded.highest_bidder_id,
		highest_bidder = excluded.highest_bidder,
		highest_offer = excluded.highest_offer,
		autobuy = excluded.autobuy,
		minimum_increment = excluded.minimum_increment,
		market_value = excluded.market_value,
		ends_on = excluded.ends_on,
		last_minute_pinged = excluded.last_minute_pinged,
		accepted_list = excluded.accepted_list,
		broadcast_message_id = excluded.broadcast_message_id
	`

	_, err := s.db.ExecContext(ctx, query,
		a.ChannelID, a.ChannelName, a.HostID, a.HostName, a.Item, a.ImageLink, a.IsBulk,
		a.HighestBidderID, a.HighestBidder, a.HighestOffer, a.Autobuy, a.MinimumIncrement,
		a.MarketValue, a.EndsOn, a.LastMinutePinged, a.AcceptedList, a.BroadcastMessageID,
	)
	return err
}

// UpdateBid overwrites the highest bidder and offer.
func (s *SQLiteStore) UpdateBid(ctx context.Context, channelID int64, bidderID int64, bidderName string, offer int64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		UPDATE auctions SET highest_bidder_id = ?, highest_bidder = ?, highest_offer = ? WHERE channel_id = ?
	`, bidderID, bidderName, offer, channelID)
	return err
}

// UpdateAcceptedList replaces the accepted-item list.
func (s *SQLiteStore) UpdateAcceptedList(ctx context.Context, channelID int64, accepted string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		UPDATE auctions SET accepted_list = ? WHERE channel_id = ?
	`, accepted, channelID)
	return err
}

// UpdateEndsOn replaces the auction deadline.
func (s *SQLiteStore) UpdateEndsOn(ctx context.Context, channelID int64, endsOn int64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		UPDATE auctions SET ends_on = ? WHERE channel_id = ?
	`, endsOn, channelID)
	return err
}

// UpdateBroadcastMessageID records the announcement message id.
func (s *SQLiteStore) UpdateBroadcastMessageID(ctx context.Context, channelID int64, messageID int64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		UPDATE auctions SET broadcast_message_id = ? WHERE channel_id = ?
	`, messageID, channelID)
	return err
}

// UpdateLastMinutePinged sets or clears the last-call flag.
func (s *SQLiteStore) UpdateLastMinutePinged(ctx context.Context, channelID int64, pinged bool) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		UPDATE auctions SET last_minute_pinged = ? WHERE channel_id = ?
	`, pinged, channelID)
	return err
}

// Delete removes the channel's auction row.
func (s *SQLiteStore) Delete(ctx context.Context, channelID int64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, "DELETE FROM auctions WHERE channel_id = ?", channelID)
	return err
}

// Fetch retrieves the channel's auction, or (nil, nil) when absent.
func (s *SQLiteStore) Fetch(ctx context.Context, channelID int64) (*auction.Auction, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx,
		"SELECT"+auctionColumns+" FROM auctions WHERE channel_id = ?", channelID)

	a, err := scanAuction(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning row: %w", err)
	}
	return a, nil
}

// FetchAll retrieves every persisted auction.
func (s *SQLiteStore) FetchAll(ctx context.Context) ([]*auction.Auction, error) {
	ctx, cancel := context.WithTimeout(ctx, scanTimeout)
	defer cancel()

	return s.queryAuctions(ctx, "SELECT"+auctionColumns+" FROM auctions")
}

// FetchDue retrieves auctions whose deadline has passed.
func (s *SQLiteStore) FetchDue(ctx context.Context, now int64) ([]*auction.Auction, error) {
	ctx, cancel := context.WithTimeout(ctx, scanTimeout)
	defer cancel()

	return s.queryAuctions(ctx,
		"SELECT"+auctionColumns+" FROM auctions WHERE ends_on <= ?", now)
}

// FetchEndingSoon retrieves un-pinged auctions ending within the window.
func (s *SQLiteStore) FetchEndingSoon(ctx context.Context, now int64, windowSeconds int64) ([]*auction.Auction, error) {
	ctx, cancel := context.WithTimeout(ctx, scanTimeout)
	defer cancel()

	return s.queryAuctions(ctx,
		"SELECT"+auctionColumns+" FROM auctions WHERE last_minute_pinged = 0 AND ends_on <= ?",
		now+windowSeconds)
}

func (s *SQLiteStore) queryAuctions(ctx context.Context, query string, args ...any) ([]*auction.Auction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*auction.Auction
	for rows.Next() {
		a, err := scanAuction(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
