package storage

import "strings"

// ArcDpsStatus is the release-watch watermark (arcdps.json).
type ArcDpsStatus struct {
	LastCheckedAt string `json:"last_checked_at"`
	LastUpdatedAt string `json:"last_updated_at,omitempty"`
}

// UpdateNotesStatus is the forum-feed watermark (update_notes.json).
type UpdateNotesStatus struct {
	LastEntryID          string `json:"last_entry_id,omitempty"`
	LastEntryPublishedAt string `json:"last_entry_published_at,omitempty"`
}

func (m *Manager) GetArcDpsStatus(guildID string) (ArcDpsStatus, bool, error) {
	var status ArcDpsStatus
	found, err := m.readJSON(guildID, "arcdps.json", &status)
	return status, found, err
}

func (m *Manager) SaveArcDpsStatus(guildID string, status ArcDpsStatus) error {
	return m.writeJSON(guildID, "arcdps.json", status)
}

func (m *Manager) GetUpdateNotesStatus(guildID string) (UpdateNotesStatus, bool, error) {
	var status UpdateNotesStatus
	found, err := m.readJSON(guildID, "update_notes.json", &status)
	return status, found, err
}

func (m *Manager) SaveUpdateNotesStatus(guildID string, status UpdateNotesStatus) error {
	return m.writeJSON(guildID, "update_notes.json", status)
}

// GetAuditGW2APIKeys returns the named admin keys used for roster audits.
func (m *Manager) GetAuditGW2APIKeys(guildID string) (map[string]string, error) {
	keys := map[string]string{}
	if _, err := m.readJSON(guildID, "audit_keys.json", &keys); err != nil {
		return nil, err
	}
	return keys, nil
}

// SaveAuditGW2APIKeys normalises key names (trimmed, lowercased) and drops
// entries with empty names or values before persisting.
func (m *Manager) SaveAuditGW2APIKeys(guildID string, keys map[string]string) error {
	cleaned := make(map[string]string, len(keys))
	for name, value := range keys {
		name = strings.ToLower(strings.TrimSpace(name))
		value = strings.TrimSpace(value)
		if name == "" || value == "" {
			continue
		}
		cleaned[name] = value
	}
	return m.writeJSON(guildID, "audit_keys.json", cleaned)
}
