package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"blive_bot/internal/model"
	"blive_bot/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Store backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=OFF"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("disable foreign keys: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Writable reports that SQLite-backed subscriptions can be mutated.
func (s *SQLite) Writable() bool {
	return true
}

// AllChannels returns every channel with at least one subscription.
func (s *SQLite) AllChannels(ctx context.Context) ([]model.ChannelSubscriptions, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.platform, c.channel_id, c.guild_id, c.assignee, s.room_id, s.uid, s.username
		 FROM subscriptions s
		 JOIN channels c ON c.platform = s.platform AND c.channel_id = s.channel_id
		 ORDER BY c.platform, c.channel_id, s.room_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var (
		channels []model.ChannelSubscriptions
		byKey    = map[string]int{}
	)
	for rows.Next() {
		var (
			dest    model.Destination
			guildID sql.NullString
			roomID  int64
			st      model.Streamer
		)
		if err := rows.Scan(&dest.Platform, &dest.ChannelID, &guildID, &dest.Assignee, &roomID, &st.UID, &st.Username); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		dest.GuildID = guildID.String

		i, ok := byKey[dest.Key()]
		if !ok {
			i = len(channels)
			byKey[dest.Key()] = i
			channels = append(channels, model.ChannelSubscriptions{
				Destination: dest,
				Rooms:       map[int64]model.Streamer{},
			})
		}
		channels[i].Rooms[roomID] = st
	}
	return channels, rows.Err()
}

// ChannelSubscriptions returns one channel's subscription map.
func (s *SQLite) ChannelSubscriptions(ctx context.Context, platform, channelID string) (map[int64]model.Streamer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT room_id, uid, username FROM subscriptions
		 WHERE platform = ? AND channel_id = ? ORDER BY room_id`,
		platform, channelID,
	)
	if err != nil {
		return nil, fmt.Errorf("query channel subscriptions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	subs := map[int64]model.Streamer{}
	for rows.Next() {
		var (
			roomID int64
			st     model.Streamer
		)
		if err := rows.Scan(&roomID, &st.UID, &st.Username); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs[roomID] = st
	}
	return subs, rows.Err()
}

// UpsertSubscription records a subscription, refreshing the channel
// record's guild and assignee along the way.
func (s *SQLite) UpsertSubscription(ctx context.Context, dest model.Destination, roomID int64, st model.Streamer) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(timeLayout)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO channels (platform, channel_id, guild_id, assignee, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (platform, channel_id)
		 DO UPDATE SET guild_id = excluded.guild_id, assignee = excluded.assignee`,
		dest.Platform, dest.ChannelID, nullable(dest.GuildID), dest.Assignee, now,
	); err != nil {
		return fmt.Errorf("upsert channel: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO subscriptions (platform, channel_id, room_id, uid, username, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		dest.Platform, dest.ChannelID, roomID, st.UID, st.Username, now,
	); err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	return tx.Commit()
}

// RemoveSubscription drops one subscription.
func (s *SQLite) RemoveSubscription(ctx context.Context, dest model.Destination, roomID int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM subscriptions WHERE platform = ? AND channel_id = ? AND room_id = ?`,
		dest.Platform, dest.ChannelID, roomID,
	)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	return nil
}

// UpdateUsername refreshes the cached display name for every channel
// subscribed to the room.
func (s *SQLite) UpdateUsername(ctx context.Context, roomID int64, username string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE subscriptions SET username = ? WHERE room_id = ?`,
		username, roomID,
	)
	if err != nil {
		return fmt.Errorf("update username: %w", err)
	}
	return nil
}

// ResolveAssignees fills in the delivering bot identity from the channel
// records. Destinations without a channel record are dropped.
func (s *SQLite) ResolveAssignees(ctx context.Context, dests []model.Destination) ([]model.Destination, error) {
	resolved := make([]model.Destination, 0, len(dests))
	for _, d := range dests {
		var (
			assignee string
			guildID  sql.NullString
		)
		err := s.db.QueryRowContext(ctx,
			`SELECT assignee, guild_id FROM channels WHERE platform = ? AND channel_id = ?`,
			d.Platform, d.ChannelID,
		).Scan(&assignee, &guildID)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("resolve assignee: %w", err)
		}
		d.Assignee = assignee
		d.GuildID = guildID.String
		resolved = append(resolved, d)
	}
	return resolved, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
