package storage

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// APIKeyRecord is one saved GW2 API key. (guild, user, name) is unique,
// case-insensitively on the name.
type APIKeyRecord struct {
	Name        string
	Key         string
	AccountName string
	Permissions []string
	GuildIDs    []string
	GuildLabels map[string]string
	Characters  []string
	CreatedAt   string
	UpdatedAt   string
}

// StoredAPIKey ties a record to its owner for bulk refresh passes.
type StoredAPIKey struct {
	GuildID string
	UserID  string
	Record  APIKeyRecord
}

// APIKeyStore is the shared SQLite store at <root>/api_keys.sqlite.
type APIKeyStore struct {
	db   *sql.DB
	path string
}

func OpenAPIKeyStore(root string) (*APIKeyStore, error) {
	path := filepath.Join(root, "api_keys.sqlite")
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open api key store: %w", err)
	}
	// Single writer; SQLite handles its own locking.
	db.SetMaxOpenConns(1)

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		_ = db.Close()
		return nil, err
	}
	goose.SetLogger(goose.NopLogger())
	if err := goose.Up(db, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate api key store: %w", err)
	}
	return &APIKeyStore{db: db, path: path}, nil
}

func (s *APIKeyStore) Close() error { return s.db.Close() }

// Path is the location of the SQLite file, used by guild-scoped inspection.
func (s *APIKeyStore) Path() string { return s.path }

func (s *APIKeyStore) Upsert(guildID, userID string, record APIKeyRecord) error {
	permissions, err := json.Marshal(emptyIfNil(record.Permissions))
	if err != nil {
		return err
	}
	characters, err := json.Marshal(emptyIfNil(record.Characters))
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	createdAt := record.CreatedAt
	if createdAt == "" {
		createdAt = UTCNow()
	}
	updatedAt := record.UpdatedAt
	if updatedAt == "" {
		updatedAt = UTCNow()
	}

	var id int64
	err = tx.QueryRow(`
SELECT id, created_at FROM api_keys
 WHERE guild_id = ? AND user_id = ? AND name = ? COLLATE NOCASE
`, guildID, userID, record.Name).Scan(&id, &createdAt)
	switch {
	case err == sql.ErrNoRows:
		res, err := tx.Exec(`
INSERT INTO api_keys (guild_id, user_id, name, key, account_name, permissions, characters, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`, guildID, userID, record.Name, record.Key, record.AccountName, string(permissions), string(characters), createdAt, updatedAt)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		if err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		if _, err := tx.Exec(`
UPDATE api_keys
   SET name = ?, key = ?, account_name = ?, permissions = ?, characters = ?, updated_at = ?
 WHERE id = ?
`, record.Name, record.Key, record.AccountName, string(permissions), string(characters), updatedAt, id); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM api_key_guilds WHERE api_key_id = ?`, id); err != nil {
			return err
		}
	}

	for _, gw2GuildID := range record.GuildIDs {
		normalized := NormalizeGuildID(gw2GuildID)
		if normalized == "" {
			continue
		}
		if _, err := tx.Exec(`
INSERT OR IGNORE INTO api_key_guilds (api_key_id, guild_id) VALUES (?, ?)
`, id, normalized); err != nil {
			return err
		}
	}

	if len(record.GuildLabels) > 0 {
		if err := upsertGuildDetailsTx(tx, record.GuildLabels); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *APIKeyStore) Delete(guildID, userID, name string) (bool, error) {
	res, err := s.db.Exec(`
DELETE FROM api_keys
 WHERE guild_id = ? AND user_id = ? AND name = ? COLLATE NOCASE
`, guildID, userID, name)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// UserKeys returns all of a user's keys in this guild, sorted by name.
func (s *APIKeyStore) UserKeys(guildID, userID string) ([]APIKeyRecord, error) {
	rows, err := s.db.Query(`
SELECT id, name, key, account_name, permissions, characters, created_at, updated_at
  FROM api_keys
 WHERE guild_id = ? AND user_id = ?
 ORDER BY name COLLATE NOCASE
`, guildID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return s.scanRecords(rows)
}

// Find matches a key by name, case-insensitively.
func (s *APIKeyStore) Find(guildID, userID, name string) (APIKeyRecord, error) {
	records, err := s.UserKeys(guildID, userID)
	if err != nil {
		return APIKeyRecord{}, err
	}
	for _, record := range records {
		if strings.EqualFold(record.Name, name) {
			return record, nil
		}
	}
	return APIKeyRecord{}, ErrNotFound
}

// All returns every stored key across all guilds, for refresh sweeps.
func (s *APIKeyStore) All() ([]StoredAPIKey, error) {
	rows, err := s.db.Query(`
SELECT id, guild_id, user_id, name, key, account_name, permissions, characters, created_at, updated_at
  FROM api_keys
 ORDER BY guild_id, user_id, name COLLATE NOCASE
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StoredAPIKey
	type pending struct {
		id  int64
		idx int
	}
	var lookups []pending
	for rows.Next() {
		var (
			id     int64
			stored StoredAPIKey
			perms  string
			chars  string
		)
		if err := rows.Scan(&id, &stored.GuildID, &stored.UserID, &stored.Record.Name, &stored.Record.Key,
			&stored.Record.AccountName, &perms, &chars, &stored.Record.CreatedAt, &stored.Record.UpdatedAt); err != nil {
			return nil, err
		}
		stored.Record.Permissions = decodeStringList(perms)
		stored.Record.Characters = decodeStringList(chars)
		out = append(out, stored)
		lookups = append(lookups, pending{id: id, idx: len(out) - 1})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Close before the per-key lookups: the pool is capped at one
	// connection and a second query would otherwise block.
	rows.Close()
	for _, l := range lookups {
		guilds, err := s.keyGuildIDs(l.id)
		if err != nil {
			return nil, err
		}
		out[l.idx].Record.GuildIDs = guilds
	}
	return out, nil
}

// AllGW2GuildIDs aggregates the distinct GW2 guild memberships across all
// stored keys.
func (s *APIKeyStore) AllGW2GuildIDs() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT guild_id FROM api_key_guilds ORDER BY guild_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// UpsertGuildDetails caches GW2 guild name/tag pairs for label rendering.
func (s *APIKeyStore) UpsertGuildDetails(details map[string]GuildDetail) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for guildID, detail := range details {
		normalized := NormalizeGuildID(guildID)
		if normalized == "" || detail.Name == "" {
			continue
		}
		if _, err := tx.Exec(`
INSERT INTO guild_details (guild_id, name, tag, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT (guild_id) DO UPDATE SET name = excluded.name, tag = excluded.tag, updated_at = excluded.updated_at
`, normalized, detail.Name, detail.Tag, UTCNow()); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GuildDetail is a cached GW2 guild name/tag pair.
type GuildDetail struct {
	Name string
	Tag  string
}

// GuildLabels resolves cached "Name [TAG]" labels for the given guild ids.
// Unknown ids are simply absent from the result.
func (s *APIKeyStore) GuildLabels(guildIDs []string) (map[string]string, error) {
	out := make(map[string]string, len(guildIDs))
	for _, guildID := range guildIDs {
		normalized := NormalizeGuildID(guildID)
		if normalized == "" {
			continue
		}
		var name string
		var tag sql.NullString
		err := s.db.QueryRow(`SELECT name, tag FROM guild_details WHERE guild_id = ?`, normalized).Scan(&name, &tag)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, err
		}
		if tag.Valid && tag.String != "" {
			out[guildID] = fmt.Sprintf("%s [%s]", name, tag.String)
		} else {
			out[guildID] = name
		}
	}
	return out, nil
}

// upsertGuildDetailsTx caches labels supplied alongside a key. Labels in
// "Name [TAG]" form are split back into their columns.
func upsertGuildDetailsTx(tx *sql.Tx, labels map[string]string) error {
	for guildID, label := range labels {
		normalized := NormalizeGuildID(guildID)
		name, tag := splitGuildLabel(label)
		if normalized == "" || name == "" {
			continue
		}
		if _, err := tx.Exec(`
INSERT INTO guild_details (guild_id, name, tag, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT (guild_id) DO UPDATE SET name = excluded.name, tag = excluded.tag, updated_at = excluded.updated_at
`, normalized, name, tag, UTCNow()); err != nil {
			return err
		}
	}
	return nil
}

func splitGuildLabel(label string) (name, tag string) {
	label = strings.TrimSpace(label)
	if strings.HasSuffix(label, "]") {
		if i := strings.LastIndex(label, "["); i > 0 {
			return strings.TrimSpace(label[:i]), strings.TrimSpace(label[i+1 : len(label)-1])
		}
	}
	return label, ""
}

func (s *APIKeyStore) keyGuildIDs(apiKeyID int64) ([]string, error) {
	rows, err := s.db.Query(`SELECT guild_id FROM api_key_guilds WHERE api_key_id = ? ORDER BY guild_id`, apiKeyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *APIKeyStore) scanRecords(rows *sql.Rows) ([]APIKeyRecord, error) {
	var out []APIKeyRecord
	var ids []int64
	for rows.Next() {
		var (
			id     int64
			record APIKeyRecord
			perms  string
			chars  string
		)
		if err := rows.Scan(&id, &record.Name, &record.Key, &record.AccountName, &perms, &chars,
			&record.CreatedAt, &record.UpdatedAt); err != nil {
			return nil, err
		}
		record.Permissions = decodeStringList(perms)
		record.Characters = decodeStringList(chars)
		out = append(out, record)
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()
	for i, id := range ids {
		guilds, err := s.keyGuildIDs(id)
		if err != nil {
			return nil, err
		}
		out[i].GuildIDs = guilds
	}
	return out, nil
}

func decodeStringList(raw string) []string {
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

// SortedPermissions normalises a permission list: trimmed, lowercased,
// deduplicated, sorted.
func SortedPermissions(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		cleaned := strings.ToLower(strings.TrimSpace(value))
		if cleaned == "" || seen[cleaned] {
			continue
		}
		seen[cleaned] = true
		out = append(out, cleaned)
	}
	sort.Strings(out)
	return out
}
