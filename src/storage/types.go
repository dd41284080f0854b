package storage

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONStringArray stores a string slice as a JSON text column. It backs the
// per-message changed-file lists, which have no structure worth a child
// table.
type JSONStringArray []string

// Scan implements sql.Scanner. NULL and empty values decode to an empty
// slice.
func (j *JSONStringArray) Scan(value interface{}) error {
	if value == nil {
		*j = []string{}
		return nil
	}

	switch v := value.(type) {
	case string:
		if v == "" || v == "[]" {
			*j = []string{}
			return nil
		}
		return json.Unmarshal([]byte(v), j)
	case []byte:
		if len(v) == 0 || string(v) == "[]" {
			*j = []string{}
			return nil
		}
		return json.Unmarshal(v, j)
	default:
		return fmt.Errorf("cannot scan type %T into JSONStringArray", value)
	}
}

// Value implements driver.Valuer. Nil and empty slices encode as "[]".
func (j JSONStringArray) Value() (driver.Value, error) {
	if j == nil || len(j) == 0 {
		return "[]", nil
	}
	return json.Marshal(j)
}