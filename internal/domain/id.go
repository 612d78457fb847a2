package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID identifies users, rooms, workouts and persisted rows.
type ID uint64

// ParseID parses a decimal identifier such as a route parameter.
func ParseID(s string) (ID, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return ID(n), nil
}

func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// UnmarshalJSON accepts both 42 and "42"; browsers send either.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := ParseID(s)
		if err != nil {
			return err
		}
		*id = parsed
		return nil
	}

	var n uint64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", data, err)
	}
	*id = ID(n)
	return nil
}
