package storage

import "strings"

// CompPreset is a named class line-up (comp_presets.json) that can be
// applied to the weekly composition without retyping the definition.
type CompPreset struct {
	Name    string            `json:"name"`
	Classes []CompClassConfig `json:"classes"`
}

func (m *Manager) GetCompPresets(guildID string) ([]CompPreset, error) {
	var presets []CompPreset
	if _, err := m.readJSON(guildID, "comp_presets.json", &presets); err != nil {
		return nil, err
	}
	return presets, nil
}

func (m *Manager) SaveCompPresets(guildID string, presets []CompPreset) error {
	if presets == nil {
		presets = []CompPreset{}
	}
	return m.writeJSON(guildID, "comp_presets.json", presets)
}

// FindCompPreset matches the preset name case-insensitively.
func (m *Manager) FindCompPreset(guildID, name string) (CompPreset, error) {
	presets, err := m.GetCompPresets(guildID)
	if err != nil {
		return CompPreset{}, err
	}
	for _, preset := range presets {
		if strings.EqualFold(preset.Name, name) {
			return preset, nil
		}
	}
	return CompPreset{}, ErrNotFound
}

func (m *Manager) UpsertCompPreset(guildID string, preset CompPreset) error {
	presets, err := m.GetCompPresets(guildID)
	if err != nil {
		return err
	}
	replaced := false
	for i, existing := range presets {
		if strings.EqualFold(existing.Name, preset.Name) {
			presets[i] = preset
			replaced = true
			break
		}
	}
	if !replaced {
		presets = append(presets, preset)
	}
	return m.SaveCompPresets(guildID, presets)
}

func (m *Manager) DeleteCompPreset(guildID, name string) (bool, error) {
	presets, err := m.GetCompPresets(guildID)
	if err != nil {
		return false, err
	}
	remaining := presets[:0]
	for _, preset := range presets {
		if !strings.EqualFold(preset.Name, name) {
			remaining = append(remaining, preset)
		}
	}
	if len(remaining) == len(presets) {
		return false, nil
	}
	return true, m.SaveCompPresets(guildID, remaining)
}
