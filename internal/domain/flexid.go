package domain

import (
	"encoding/json"
	"strconv"
	"strings"
)

// FlexID is an identifier that tolerates the backend's inconsistent typing:
// different endpoints return the same id as a JSON number or a string. It
// always normalizes to a trimmed string so ids compare reliably across
// sources.
type FlexID string

// UnmarshalJSON accepts a JSON string, number, or null.
func (f *FlexID) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*f = ""
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexID(n.String())
	return nil
}

// MarshalJSON always emits the string form.
func (f FlexID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(f))
}

// String returns the normalized string form of the id.
func (f FlexID) String() string {
	return string(f)
}

// IsZero returns true for a missing or empty id.
func (f FlexID) IsZero() bool {
	return string(f) == ""
}

// NormalizeID canonicalizes an id for map keys and equality checks: trims
// whitespace and strips a redundant numeric representation ("7.0" and "7"
// refer to the same user when a source went through a float).
func NormalizeID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	if v, err := strconv.ParseFloat(id, 64); err == nil && v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return id
}
