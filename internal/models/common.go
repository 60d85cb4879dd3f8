package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// NormalizeName canonicalizes a name for cross-referencing: surrounding
// whitespace is stripped and case is folded. Assignment fields store
// tutor names, so every comparison between a student's assignment and a
// tutor record goes through this.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// SameName reports whether two names match under normalization.
func SameName(a, b string) bool {
	return NormalizeName(a) == NormalizeName(b) && NormalizeName(a) != ""
}

// StringList stores a slice of strings as a JSON text column.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("marshal string list: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src interface{}) error {
	if src == nil {
		*l = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("unsupported string list source %T", src)
	}
}

// YearCounts stores per-class-year student counts as a JSON text column,
// keyed by the class year string (e.g. "2027").
type YearCounts map[string]int

// Value implements driver.Valuer.
func (c YearCounts) Value() (driver.Value, error) {
	if c == nil {
		return "{}", nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal year counts: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (c *YearCounts) Scan(src interface{}) error {
	if src == nil {
		*c = YearCounts{}
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	default:
		return fmt.Errorf("unsupported year counts source %T", src)
	}
}
