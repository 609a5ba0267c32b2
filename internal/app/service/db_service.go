package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/gw2tools/gw2-tools-bot/internal/infra/storage"
)

const dbQueryRowCap = 500

// snapshotSchema mirrors the API key store layout minus migration
// bookkeeping.
const snapshotSchema = `
CREATE TABLE api_keys (
    id           INTEGER PRIMARY KEY,
    guild_id     TEXT NOT NULL,
    user_id      TEXT NOT NULL,
    name         TEXT NOT NULL,
    key          TEXT NOT NULL,
    account_name TEXT NOT NULL DEFAULT '',
    permissions  TEXT NOT NULL DEFAULT '[]',
    characters   TEXT NOT NULL DEFAULT '[]',
    created_at   TEXT NOT NULL,
    updated_at   TEXT NOT NULL
);
CREATE TABLE api_key_guilds (
    api_key_id INTEGER NOT NULL,
    guild_id   TEXT NOT NULL,
    PRIMARY KEY (api_key_id, guild_id)
);
CREATE TABLE guild_details (
    guild_id   TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    tag        TEXT,
    updated_at TEXT NOT NULL
);
`

// DBService answers ad-hoc read-only SQL against a snapshot holding only
// the calling guild's rows, so one server can never see another's keys.
type DBService struct {
	store    *storage.Manager
	notifier Notifier
	log      *slog.Logger
}

func NewDBService(store *storage.Manager, notifier Notifier, log *slog.Logger) *DBService {
	return &DBService{store: store, notifier: notifier, log: log}
}

// Query runs a read-only statement against the guild snapshot. Small
// results come back inline; larger ones are attached as a text file to
// the given channel.
func (s *DBService) Query(ctx context.Context, guildID, channelID, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", fmt.Errorf("the query cannot be empty")
	}

	db, err := s.snapshot(ctx, guildID)
	if err != nil {
		return "", err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Sprintf("Query failed: %v", err), nil
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return "", err
	}

	var data [][]string
	truncated := false
	for rows.Next() {
		if len(data) >= dbQueryRowCap {
			truncated = true
			break
		}
		values := make([]any, len(columns))
		for i := range values {
			values[i] = new(sql.NullString)
		}
		if err := rows.Scan(values...); err != nil {
			return "", err
		}
		row := make([]string, len(columns))
		for i, value := range values {
			cell := value.(*sql.NullString)
			if cell.Valid {
				row[i] = cell.String
			} else {
				row[i] = "NULL"
			}
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	table := FormatTable(columns, data, "No rows.", false)
	note := fmt.Sprintf("%d row(s)", len(data))
	if truncated {
		note += fmt.Sprintf(", capped at %d", dbQueryRowCap)
	}

	if len(table) > 1800 {
		if err := s.notifier.SendFile(channelID, note, "query.txt", []byte(table)); err != nil {
			return "", fmt.Errorf("attach query result: %w", err)
		}
		return "The result was too large to show inline; see the attached file.", nil
	}
	return note + "\n```\n" + table + "\n```", nil
}

// Schema lists the tables available to /db query.
func (s *DBService) Schema(ctx context.Context, guildID string) (string, error) {
	db, err := s.snapshot(ctx, guildID)
	if err != nil {
		return "", err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `
SELECT sql FROM sqlite_master
 WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
 ORDER BY name
`)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var statements []string
	for rows.Next() {
		var statement sql.NullString
		if err := rows.Scan(&statement); err != nil {
			return "", err
		}
		if statement.Valid {
			statements = append(statements, strings.TrimSpace(statement.String)+";")
		}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	return "```sql\n" + strings.Join(statements, "\n\n") + "\n```", nil
}

// snapshot copies the guild's rows from the shared key store into a
// fresh in-memory database and locks it read-only.
func (s *DBService) snapshot(ctx context.Context, guildID string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	// In-memory databases are per connection.
	db.SetMaxOpenConns(1)

	fail := func(err error) (*sql.DB, error) {
		_ = db.Close()
		return nil, err
	}

	if _, err := db.ExecContext(ctx, snapshotSchema); err != nil {
		return fail(fmt.Errorf("prepare snapshot schema: %w", err))
	}
	if _, err := db.ExecContext(ctx, `ATTACH DATABASE 'file:`+s.store.APIKeys().Path()+`?mode=ro' AS src`); err != nil {
		return fail(fmt.Errorf("attach key store: %w", err))
	}
	if _, err := db.ExecContext(ctx, `
INSERT INTO api_keys
SELECT id, guild_id, user_id, name, key, account_name, permissions, characters, created_at, updated_at
  FROM src.api_keys WHERE guild_id = ?
`, guildID); err != nil {
		return fail(fmt.Errorf("copy keys: %w", err))
	}
	if _, err := db.ExecContext(ctx, `
INSERT INTO api_key_guilds
SELECT api_key_id, guild_id FROM src.api_key_guilds
 WHERE api_key_id IN (SELECT id FROM api_keys)
`); err != nil {
		return fail(fmt.Errorf("copy memberships: %w", err))
	}
	if _, err := db.ExecContext(ctx, `
INSERT INTO guild_details
SELECT guild_id, name, tag, updated_at FROM src.guild_details
 WHERE guild_id IN (SELECT guild_id FROM api_key_guilds)
`); err != nil {
		return fail(fmt.Errorf("copy guild details: %w", err))
	}
	if _, err := db.ExecContext(ctx, `DETACH DATABASE src`); err != nil {
		return fail(fmt.Errorf("detach key store: %w", err))
	}
	if _, err := db.ExecContext(ctx, `PRAGMA query_only = ON`); err != nil {
		return fail(fmt.Errorf("lock snapshot: %w", err))
	}
	return db, nil
}
