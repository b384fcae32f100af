package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// StatementState represents the execution state of a single statement.
type StatementState string

const (
	StatementStateWaiting   StatementState = "waiting"
	StatementStateAvailable StatementState = "available"
	StatementStateError     StatementState = "error"
	StatementStateCanceled  StatementState = "canceled"
)

// IsWaiting reports whether the statement has not produced output yet.
func (s StatementState) IsWaiting() bool {
	return s == StatementStateWaiting
}

// Statement is a unit of code submitted into a session.
type Statement struct {
	ID        string           `json:"id"`
	Code      string           `json:"code"`
	State     StatementState   `json:"state,omitempty"`
	Output    *StatementOutput `json:"output,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
}

// HasOutput reports whether the statement has a result.
func (s *Statement) HasOutput() bool {
	return s != nil && s.Output != nil
}

// StatementOutput is the result of a finished statement.
type StatementOutput struct {
	Status    string                 `json:"status"`
	TraceBack string                 `json:"traceback,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Value implements the `driver.Valuer` interface, converting StatementOutput to a JSON string.
func (o StatementOutput) Value() (driver.Value, error) {
	data, err := json.Marshal(o)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements the `sql.Scanner` interface, converting a JSON string to StatementOutput.
func (o *StatementOutput) Scan(value interface{}) error {
	*o = StatementOutput{}
	b, err := scanBytes(value, "StatementOutput")
	if err != nil || len(b) == 0 {
		return err
	}
	if err := json.Unmarshal(b, o); err != nil {
		return fmt.Errorf("failed to unmarshal StatementOutput JSON: %w", err)
	}
	return nil
}
