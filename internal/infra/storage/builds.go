package storage

import "strings"

// BuildRecord is one posted build (builds.json). The record tracks the
// Discord message it is rendered into so edits update the post in place.
type BuildRecord struct {
	BuildID        string `json:"build_id"`
	Name           string `json:"name"`
	Profession     string `json:"profession"`
	Specialization string `json:"specialization,omitempty"`
	URL            string `json:"url,omitempty"`
	ChatCode       string `json:"chat_code"`
	Description    string `json:"description,omitempty"`

	CreatedBy Snowflake `json:"created_by"`
	CreatedAt string    `json:"created_at"`
	UpdatedBy Snowflake `json:"updated_by"`
	UpdatedAt string    `json:"updated_at"`

	MessageID Snowflake `json:"message_id,omitempty"`
	ChannelID Snowflake `json:"channel_id,omitempty"`
	ThreadID  Snowflake `json:"thread_id,omitempty"`
}

func (m *Manager) GetBuilds(guildID string) ([]BuildRecord, error) {
	var builds []BuildRecord
	if _, err := m.readJSON(guildID, "builds.json", &builds); err != nil {
		return nil, err
	}
	return builds, nil
}

func (m *Manager) SaveBuilds(guildID string, builds []BuildRecord) error {
	if builds == nil {
		builds = []BuildRecord{}
	}
	return m.writeJSON(guildID, "builds.json", builds)
}

// FindBuild matches the slug case-insensitively.
func (m *Manager) FindBuild(guildID, buildID string) (BuildRecord, error) {
	builds, err := m.GetBuilds(guildID)
	if err != nil {
		return BuildRecord{}, err
	}
	for _, build := range builds {
		if strings.EqualFold(build.BuildID, buildID) {
			return build, nil
		}
	}
	return BuildRecord{}, ErrNotFound
}

func (m *Manager) UpsertBuild(guildID string, record BuildRecord) error {
	builds, err := m.GetBuilds(guildID)
	if err != nil {
		return err
	}
	replaced := false
	for i, build := range builds {
		if strings.EqualFold(build.BuildID, record.BuildID) {
			builds[i] = record
			replaced = true
			break
		}
	}
	if !replaced {
		builds = append(builds, record)
	}
	return m.SaveBuilds(guildID, builds)
}

func (m *Manager) DeleteBuild(guildID, buildID string) (bool, error) {
	builds, err := m.GetBuilds(guildID)
	if err != nil {
		return false, err
	}
	remaining := builds[:0]
	for _, build := range builds {
		if !strings.EqualFold(build.BuildID, buildID) {
			remaining = append(remaining, build)
		}
	}
	if len(remaining) == len(builds) {
		return false, nil
	}
	return true, m.SaveBuilds(guildID, remaining)
}
