package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// TagList stores an ordered tag sequence in a single nullable text column.
// An empty list is persisted as NULL rather than an empty-array literal.
type TagList []string

func (t TagList) Value() (driver.Value, error) {
	if len(t) == 0 {
		return nil, nil
	}
	b, err := json.Marshal([]string(t))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (t *TagList) Scan(value interface{}) error {
	if t == nil {
		return fmt.Errorf("models.TagList: Scan on nil pointer")
	}
	if value == nil {
		*t = TagList{}
		return nil
	}

	var raw string
	switch v := value.(type) {
	case []byte:
		raw = string(v)
	case string:
		raw = v
	default:
		return fmt.Errorf("models.TagList: unsupported Scan type %T", value)
	}

	*t = DecodeTags(raw)
	return nil
}

// MarshalJSON keeps tags an array on the wire, never null.
func (t TagList) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(t))
}

// DecodeTags restores a tag list from its stored text form. It tries a strict
// JSON parse first and falls back to splitting the raw text on commas, so a
// malformed legacy row degrades to a best-effort list instead of failing the
// read.
func DecodeTags(raw string) TagList {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "null" {
		return TagList{}
	}

	var arr []string
	if err := json.Unmarshal([]byte(trimmed), &arr); err == nil {
		if arr == nil {
			return TagList{}
		}
		return TagList(arr)
	}

	parts := strings.Split(trimmed, ",")
	tags := make(TagList, 0, len(parts))
	for _, part := range parts {
		if s := strings.TrimSpace(part); s != "" {
			tags = append(tags, s)
		}
	}
	return tags
}
