// Package store provides durable auction.Store implementations backed by
// PostgreSQL and SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/grandline/auctionhouse/auction"
)

const (
	queryTimeout = 5 * time.Second
	scanTimeout  = 30 * time.Second
)

// PostgresStore implements auction.Store with PostgreSQL persistence.
type PostgresStore struct {
	db *sql.DB
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// ConnectionString returns the PostgreSQL connection string.
func (c *PostgresConfig) ConnectionString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, sslMode)
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(config *PostgresConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", config.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return store, nil
}

// NewPostgresStoreFromDSN creates a store from a raw connection string.
func NewPostgresStoreFromDSN(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS auctions (
		channel_id BIGINT PRIMARY KEY,
		channel_name VARCHAR(128) NOT NULL,
		host_id BIGINT NOT NULL,
		host_name VARCHAR(128) NOT NULL,
		item TEXT NOT NULL,
		image_link TEXT NOT NULL DEFAULT '',
		is_bulk BOOLEAN NOT NULL DEFAULT FALSE,
		highest_bidder_id BIGINT NOT NULL DEFAULT 0,
		highest_bidder VARCHAR(128) NOT NULL DEFAULT '',
		highest_offer BIGINT NOT NULL DEFAULT 0,
		autobuy BIGINT NOT NULL DEFAULT 0,
		minimum_increment BIGINT NOT NULL,
		market_value BIGINT NOT NULL DEFAULT 0,
		ends_on BIGINT NOT NULL,
		last_minute_pinged BOOLEAN NOT NULL DEFAULT FALSE,
		accepted_list TEXT NOT NULL DEFAULT '',
		broadcast_message_id BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
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
func (s *PostgresStore) Upsert(ctx context.Context, a *auction.Auction) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
	INSERT INTO auctions
		(channel_id, channel_name, host_id, host_name, item, image_link, is_bulk,
		 highest_bidder_id, highest_bidder, highest_offer, autobuy, minimum_increment,
		 market_value, ends_on, last_minute_pinged, accepted_list, broadcast_message_id, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, NOW())
	ON CONFLICT (channel_id) DO UPDATE SET
		channel_name = EXCLUDED.channel_name,
		host_id = EXCLUDED.host_id,
		host_name = EXCLUDED.host_name,
		item = EXCLUDED.item,
		image_link = EXCLUDED.image_link,
		is_bulk = EXCLUDED.is_bulk,
		highest_bidder_id = EXCLUDED.highest_bidder_id,
		highest_bidder = EXCLUDED.highest_bidder,
		highest_offer = EXCLUDED.highest_offer,
		autobuy = EXCLUDED.autobuy,
		minimum_increment = EXCLUDED.minimum_increment,
		market_value = EXCLUDED.market_value,
		ends_on = EXCLUDED.ends_on,
		last_minute_pinged = EXCLUDED.last_minute_pinged,
		accepted_list = EXCLUDED.accepted_list,
		broadcast_message_id = EXCLUDED.broadcast_message_id,
		updated_at = NOW()
	`

	_, err := s.db.ExecContext(ctx, query,
		a.ChannelID, a.ChannelName, a.HostID, a.HostName, a.Item, a.ImageLink, a.IsBulk,
		a.HighestBidderID, a.HighestBidder, a.HighestOffer, a.Autobuy, a.MinimumIncrement,
		a.MarketValue, a.EndsOn, a.LastMinutePinged, a.AcceptedList, a.BroadcastMessageID,
	)
	return err
}

// UpdateBid overwrites the highest bidder and offer.
func (s *PostgresStore) UpdateBid(ctx context.Context, channelID int64, bidderID int64, bidderName string, offer int64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		UPDATE auctions
		SET highest_bidder_id = $2, highest_bidder = $3, highest_offer = $4, updated_at = NOW()
		WHERE channel_id = $1
	`, channelID, bidderID, bidderName, offer)
	return err
}

// UpdateAcceptedList replaces the accepted-item list.
func (s *PostgresStore) UpdateAcceptedList(ctx context.Context, channelID int64, accepted string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		UPDATE auctions SET accepted_list = $2, updated_at = NOW() WHERE channel_id = $1
	`, channelID, accepted)
	return err
}

// UpdateEndsOn replaces the auction deadline.
func (s *PostgresStore) UpdateEndsOn(ctx context.Context, channelID int64, endsOn int64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		UPDATE auctions SET ends_on = $2, updated_at = NOW() WHERE channel_id = $1
	`, channelID, endsOn)
	return err
}

// UpdateBroadcastMessageID records the announcement message id.
func (s *PostgresStore) UpdateBroadcastMessageID(ctx context.Context, channelID int64, messageID int64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		UPDATE auctions SET broadcast_message_id = $2, updated_at = NOW() WHERE channel_id = $1
	`, channelID, messageID)
	return err
}

// UpdateLastMinutePinged sets or clears the last-call flag.
func (s *PostgresStore) UpdateLastMinutePinged(ctx context.Context, channelID int64, pinged bool) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		UPDATE auctions SET last_minute_pinged = $2, updated_at = NOW() WHERE channel_id = $1
	`, channelID, pinged)
	return err
}

// Delete removes the channel's auction row.
func (s *PostgresStore) Delete(ctx context.Context, channelID int64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, "DELETE FROM auctions WHERE channel_id = $1", channelID)
	return err
}

const auctionColumns = `
	channel_id, channel_name, host_id, host_name, item, image_link, is_bulk,
	highest_bidder_id, highest_bidder, highest_offer, autobuy, minimum_increment,
	market_value, ends_on, last_minute_pinged, accepted_list, broadcast_message_id`

func scanAuction(scan func(dest ...any) error) (*auction.Auction, error) {
	var a auction.Auction
	err := scan(
		&a.ChannelID, &a.ChannelName, &a.HostID, &a.HostName, &a.Item, &a.ImageLink, &a.IsBulk,
		&a.HighestBidderID, &a.HighestBidder, &a.HighestOffer, &a.Autobuy, &a.MinimumIncrement,
		&a.MarketValue, &a.EndsOn, &a.LastMinutePinged, &a.AcceptedList, &a.BroadcastMessageID,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Fetch retrieves the channel's auction, or (nil, nil) when absent.
func (s *PostgresStore) Fetch(ctx context.Context, channelID int64) (*auction.Auction, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx,
		"SELECT"+auctionColumns+" FROM auctions WHERE channel_id = $1", channelID)

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
func (s *PostgresStore) FetchAll(ctx context.Context) ([]*auction.Auction, error) {
	ctx, cancel := context.WithTimeout(ctx, scanTimeout)
	defer cancel()

	return s.queryAuctions(ctx, "SELECT"+auctionColumns+" FROM auctions")
}

// FetchDue retrieves auctions whose deadline has passed.
func (s *PostgresStore) FetchDue(ctx context.Context, now int64) ([]*auction.Auction, error) {
	ctx, cancel := context.WithTimeout(ctx, scanTimeout)
	defer cancel()

	return s.queryAuctions(ctx,
		"SELECT"+auctionColumns+" FROM auctions WHERE ends_on <= $1", now)
}

// FetchEndingSoon retrieves un-pinged auctions ending within the window.
func (s *PostgresStore) FetchEndingSoon(ctx context.Context, now int64, windowSeconds int64) ([]*auction.Auction, error) {
	ctx, cancel := context.WithTimeout(ctx, scanTimeout)
	defer cancel()

	return s.queryAuctions(ctx,
		"SELECT"+auctionColumns+" FROM auctions WHERE last_minute_pinged = FALSE AND ends_on <= $1",
		now+windowSeconds)
}

func (s *PostgresStore) queryAuctions(ctx context.Context, query string, args ...any) ([]*auction.Auction, error) {
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
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
