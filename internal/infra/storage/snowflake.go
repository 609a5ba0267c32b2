package storage

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Snowflake is a Discord ID persisted as a string. Older documents stored
// IDs as JSON numbers; both shapes decode, anything else becomes empty.
type Snowflake string

func (s *Snowflake) UnmarshalJSON(data []byte) error {
	*s = coerceSnowflake(data)
	return nil
}

func (s Snowflake) String() string { return string(s) }

// SnowflakeList drops entries that are not valid IDs instead of failing
// the whole document.
type SnowflakeList []string

func (l *SnowflakeList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		*l = nil
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if id := coerceSnowflake(item); id != "" {
			out = append(out, string(id))
		}
	}
	*l = out
	return nil
}

func coerceSnowflake(data []byte) Snowflake {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return ""
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return ""
		}
		trimmed = strings.TrimSpace(s)
		if trimmed == "" {
			return ""
		}
	}
	if _, err := strconv.ParseUint(trimmed, 10, 64); err != nil {
		return ""
	}
	return Snowflake(trimmed)
}
