package storage

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strconv"

	_ "github.com/mattn/go-sqlite3"
)

const auditSchema = `
CREATE TABLE IF NOT EXISTS discord_events (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    created_at TEXT NOT NULL,
    event_type TEXT NOT NULL,
    user_id    TEXT,
    user_name  TEXT,
    actor      TEXT,
    details    TEXT
);
CREATE TABLE IF NOT EXISTS gw2_events (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    log_id     INTEGER,
    created_at TEXT NOT NULL,
    event_type TEXT NOT NULL,
    user       TEXT,
    details    TEXT
);
CREATE TABLE IF NOT EXISTS watermarks (
    name  TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_discord_events_user ON discord_events (user_id);
CREATE INDEX IF NOT EXISTS idx_gw2_events_user ON gw2_events (user);
`

// DiscordEvent is one captured platform event (join/leave/ban/message edit...).
type DiscordEvent struct {
	CreatedAt string
	EventType string
	UserID    string
	UserName  string
	Actor     string
	Details   string
}

// GW2Event is one entry from the GW2 guild log.
type GW2Event struct {
	LogID     int64
	CreatedAt string
	EventType string
	User      string
	Details   string
}

// AuditStore is the per-guild audit database (guild_<id>/audit.sqlite).
type AuditStore struct {
	db *sql.DB
}

func OpenAuditStore(dir string) (*AuditStore, error) {
	db, err := sql.Open("sqlite3", filepath.Join(dir, "audit.sqlite"))
	if err != nil {
		return nil, fmt.Errorf("open audit store: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(auditSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init audit schema: %w", err)
	}
	return &AuditStore{db: db}, nil
}

func (s *AuditStore) Close() error { return s.db.Close() }

func (s *AuditStore) AddDiscordEvent(event DiscordEvent) error {
	_, err := s.db.Exec(`
INSERT INTO discord_events (created_at, event_type, user_id, user_name, actor, details)
VALUES (?, ?, ?, ?, ?, ?)
`, event.CreatedAt, event.EventType, event.UserID, event.UserName, event.Actor, event.Details)
	return err
}

func (s *AuditStore) AddGW2Event(event GW2Event) error {
	_, err := s.db.Exec(`
INSERT INTO gw2_events (log_id, created_at, event_type, user, details)
VALUES (?, ?, ?, ?, ?)
`, nullableLogID(event.LogID), event.CreatedAt, event.EventType, event.User, event.Details)
	return err
}

// QueryDiscordEvents finds events by exact user id or name substring,
// newest first.
func (s *AuditStore) QueryDiscordEvents(user string, limit int) ([]DiscordEvent, error) {
	rows, err := s.db.Query(`
SELECT created_at, event_type, COALESCE(user_id, ''), COALESCE(user_name, ''), COALESCE(actor, ''), COALESCE(details, '')
  FROM discord_events
 WHERE user_id = ?1 OR user_name LIKE '%' || ?1 || '%'
 ORDER BY id DESC
 LIMIT ?2
`, user, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DiscordEvent
	for rows.Next() {
		var e DiscordEvent
		if err := rows.Scan(&e.CreatedAt, &e.EventType, &e.UserID, &e.UserName, &e.Actor, &e.Details); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// QueryGW2Events finds guild-log events by account name substring, newest
// first.
func (s *AuditStore) QueryGW2Events(user string, limit int) ([]GW2Event, error) {
	rows, err := s.db.Query(`
SELECT COALESCE(log_id, 0), created_at, event_type, COALESCE(user, ''), COALESCE(details, '')
  FROM gw2_events
 WHERE user LIKE '%' || ?1 || '%'
 ORDER BY id DESC
 LIMIT ?2
`, user, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []GW2Event
	for rows.Next() {
		var e GW2Event
		if err := rows.Scan(&e.LogID, &e.CreatedAt, &e.EventType, &e.User, &e.Details); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GW2LastLogID returns the guild-log sync watermark, if one is stored.
func (s *AuditStore) GW2LastLogID() (int64, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM watermarks WHERE name = 'gw2_last_log_id'`).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	return id, true, nil
}

func (s *AuditStore) SetGW2LastLogID(id int64) error {
	_, err := s.db.Exec(`
INSERT INTO watermarks (name, value) VALUES ('gw2_last_log_id', ?)
ON CONFLICT (name) DO UPDATE SET value = excluded.value
`, strconv.FormatInt(id, 10))
	return err
}

func nullableLogID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
