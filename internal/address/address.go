// Package address resolves the province, district and ward hierarchy used by delivery addresses.
package address

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrUnavailable means the directory service could not be reached after retries.
	ErrUnavailable = errors.New("address: directory unavailable")
	// ErrIncomplete means a level of the selection is unset.
	ErrIncomplete = errors.New("address: selection incomplete")
	// ErrUnknownCode means a code does not belong to its parent.
	ErrUnknownCode = errors.New("address: unknown code")
	// ErrSuperseded is returned for a load whose selection changed before it finished.
	ErrSuperseded = errors.New("address: load superseded")
)

// Code is an administrative unit code. The directory serves codes as numbers or strings.
type Code string

func (c *Code) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Code(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("address code: %w", err)
	}
	if i, err := n.Int64(); err == nil {
		*c = Code(strconv.FormatInt(i, 10))
		return nil
	}
	*c = Code(n.String())
	return nil
}

func (c Code) String() string { return string(c) }

// Unit is a province, district or ward.
type Unit struct {
	Code         Code   `json:"code"`
	Name         string `json:"name"`
	DivisionType string `json:"division_type"`
	ParentCode   Code   `json:"parent_code,omitempty"`
}

// SelectionError names the level that failed validation.
type SelectionError struct {
	Field string
	Err   error
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *SelectionError) Unwrap() error { return e.Err }

func findUnit(units []Unit, code string) (Unit, bool) {
	for _, u := range units {
		if string(u.Code) == code {
			return u, true
		}
	}
	return Unit{}, false
}
