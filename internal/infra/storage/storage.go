package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

var ErrNotFound = errors.New("not found")

// Manager owns the on-disk state for every Discord guild the bot is in.
// Each guild gets an isolated guild_<id> directory of JSON documents plus
// a per-guild audit database; API keys live in a single SQLite file at
// the storage root.
type Manager struct {
	root string

	keys *APIKeyStore

	mu    sync.Mutex
	audit map[string]*AuditStore
}

func NewManager(root string) (*Manager, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	keys, err := OpenAPIKeyStore(root)
	if err != nil {
		return nil, err
	}
	return &Manager{
		root:  root,
		keys:  keys,
		audit: make(map[string]*AuditStore),
	}, nil
}

func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var errs []error
	for _, store := range m.audit {
		errs = append(errs, store.Close())
	}
	errs = append(errs, m.keys.Close())
	return errors.Join(errs...)
}

// APIKeys exposes the shared API key store.
func (m *Manager) APIKeys() *APIKeyStore { return m.keys }

// AuditStore returns the per-guild audit database, opening it on first use.
func (m *Manager) AuditStore(guildID string) (*AuditStore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if store, ok := m.audit[guildID]; ok {
		return store, nil
	}
	dir, err := m.guildDir(guildID)
	if err != nil {
		return nil, err
	}
	store, err := OpenAuditStore(dir)
	if err != nil {
		return nil, err
	}
	m.audit[guildID] = store
	return store, nil
}

// GuildIDs lists every Discord guild with a storage directory, sorted.
func (m *Manager) GuildIDs() []string {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		return nil
	}
	var out []string
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), "guild_") {
			out = append(out, strings.TrimPrefix(entry.Name(), "guild_"))
		}
	}
	sort.Strings(out)
	return out
}

func (m *Manager) guildDir(guildID string) (string, error) {
	dir := filepath.Join(m.root, "guild_"+guildID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create guild dir: %w", err)
	}
	return dir, nil
}

// readJSON loads a document into out. A missing file leaves out untouched
// and reports found=false; a corrupt file is treated the same way so a bad
// document degrades to defaults instead of wedging a feature.
func (m *Manager) readJSON(guildID, name string, out any) (bool, error) {
	dir, err := m.guildDir(guildID)
	if err != nil {
		return false, err
	}
	raw, err := os.ReadFile(filepath.Join(dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, nil
	}
	return true, nil
}

func (m *Manager) writeJSON(guildID, name string, data any) error {
	dir, err := m.guildDir(guildID)
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// UTCNow returns the storage timestamp format shared by every document.
func UTCNow() string {
	return time.Now().UTC().Format(time.RFC3339)
}
