package types

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// ID is a UUID-backed identifier used for jobs and other core entities.
// Dataset identifiers are content hashes and use dataset.ID instead.
type ID string

// NewID generates a new random ID.
func NewID() ID {
	return ID(uuid.New().String())
}

// ParseID parses and validates a string as a UUID-backed ID.
func ParseID(s string) (ID, error) {
	if s == "" {
		return "", fmt.Errorf("ID cannot be empty")
	}

	parsed, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid UUID format: %w", err)
	}

	return ID(parsed.String()), nil
}

// Validate checks that the ID holds a well-formed UUID.
func (id ID) Validate() error {
	if id == "" {
		return fmt.Errorf("ID cannot be empty")
	}

	if _, err := uuid.Parse(string(id)); err != nil {
		return fmt.Errorf("invalid UUID format: %w", err)
	}

	return nil
}

// String returns the string representation of the ID.
func (id ID) String() string {
	return string(id)
}

// IsZero reports whether the ID is unset.
func (id ID) IsZero() bool {
	return id == ""
}

// MarshalJSON serializes the ID as a JSON string, or null when unset.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(string(id))
}

// UnmarshalJSON deserializes and validates a JSON string into an ID.
// Empty strings set the zero value.
func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("failed to unmarshal ID: %w", err)
	}

	if s == "" {
		*id = ""
		return nil
	}

	parsed, err := ParseID(s)
	if err != nil {
		return err
	}

	*id = parsed
	return nil
}
