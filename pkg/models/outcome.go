package models

import "time"

// RunResult is the append-only record of an execution attempt's output.
type RunResult struct {
	ID          int64     `json:"id"`
	RunID       int64     `json:"run_id"`
	Type        RunType   `json:"type"`
	ResultData  string    `json:"result_data,omitempty"`
	IsProcessed bool      `json:"is_processed"`
	CreatedAt   time.Time `json:"created_at"`
}

// RunError is the append-only record of something that went wrong during an attempt.
type RunError struct {
	ID           int64     `json:"id"`
	RunID        int64     `json:"run_id"`
	ErrorType    string    `json:"error_type"`
	ErrorCode    string    `json:"error_code,omitempty"`
	ErrorMessage string    `json:"error_message"`
	ErrorDetails string    `json:"error_details,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// InvalidatesSession reports whether the recorded error means the user's session is no
// longer usable.
func (e *RunError) InvalidatesSession() bool {
	return e != nil && e.ErrorType == SessionInvalidReference
}
