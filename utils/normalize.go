package utils

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the canonical calendar-date form used for storage and comparison
const DateLayout = "2006-01-02"

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
}

// NormalizeID coerces a number, numeric string or nil into a positive id.
// The second return value is false when the input does not describe an id.
func NormalizeID(v interface{}) (uint, bool) {
	switch id := v.(type) {
	case nil:
		return 0, false
	case uint:
		return id, id > 0
	case uint64:
		return uint(id), id > 0
	case int:
		return NormalizeID(int64(id))
	case int64:
		if id <= 0 {
			return 0, false
		}
		return uint(id), true
	case float64:
		if id <= 0 || id != math.Trunc(id) {
			return 0, false
		}
		return uint(id), true
	case json.Number:
		return NormalizeID(string(id))
	case string:
		n, err := strconv.ParseUint(strings.TrimSpace(id), 10, 64)
		if err != nil || n == 0 {
			return 0, false
		}
		return uint(n), true
	}
	return 0, false
}

// LooseID is an id read from JSON that may arrive as a number, a numeric string or null
type LooseID struct {
	Value uint
	Valid bool
}

// UnmarshalJSON never fails on a well-formed JSON value; unusable input leaves the id invalid
func (id *LooseID) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	id.Value, id.Valid = NormalizeID(raw)
	return nil
}

// MarshalJSON renders a valid id as a number and an invalid one as null
func (id LooseID) MarshalJSON() ([]byte, error) {
	if !id.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatUint(uint64(id.Value), 10)), nil
}

// NormalizeIDs keeps the valid ids in their first-seen order, dropping duplicates
func NormalizeIDs(ids []LooseID) []uint {
	seen := make(map[uint]bool, len(ids))
	result := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !id.Valid || seen[id.Value] {
			continue
		}
		seen[id.Value] = true
		result = append(result, id.Value)
	}
	return result
}

// NormalizeDate converts a date-like value to YYYY-MM-DD using UTC calendar fields.
// Plain dates are taken as-is so that no timezone shift can move them to another day.
func NormalizeDate(v interface{}) (string, bool) {
	switch d := v.(type) {
	case nil:
		return "", false
	case time.Time:
		if d.IsZero() {
			return "", false
		}
		return d.UTC().Format(DateLayout), true
	case *time.Time:
		if d == nil {
			return "", false
		}
		return NormalizeDate(*d)
	case *string:
		if d == nil {
			return "", false
		}
		return NormalizeDate(*d)
	case string:
		s := strings.TrimSpace(d)
		if s == "" {
			return "", false
		}
		if t, err := time.Parse(DateLayout, s); err == nil {
			return t.Format(DateLayout), true
		}
		for _, layout := range dateTimeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC().Format(DateLayout), true
			}
		}
	}
	return "", false
}

// ParseBool interprets the truthy representations found in stored rows and request bodies
func ParseBool(v interface{}) bool {
	switch b := v.(type) {
	case nil:
		return false
	case bool:
		return b
	case int:
		return b == 1
	case int64:
		return b == 1
	case float64:
		return b == 1
	case []byte:
		return ParseBool(string(b))
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "1", "true", "yes", "y", "on", "active":
			return true
		}
	}
	return false
}

// Flag is a boolean column that tolerates every representation ParseBool accepts
type Flag bool

// Scan implements sql.Scanner
func (f *Flag) Scan(value interface{}) error {
	*f = Flag(ParseBool(value))
	return nil
}

// Value implements driver.Valuer
func (f Flag) Value() (driver.Value, error) {
	return bool(f), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (f *Flag) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid boolean value: %w", err)
	}
	*f = Flag(ParseBool(raw))
	return nil
}

// MarshalJSON implements json.Marshaler
func (f Flag) MarshalJSON() ([]byte, error) {
	return json.Marshal(bool(f))
}
