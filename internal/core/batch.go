package core

import (
	"errors"
	"fmt"
)

// RowError reports why one bulk input row was rejected. Row is the 1-based
// array position for JSON input and the line number for CSV input.
type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// BatchError is a bulk insert that stored fewer rows than requested. Count is
// the number actually persisted.
type BatchError struct {
	Err      error
	Count    int
	Rejected []RowError
}

func (e *BatchError) Error() string {
	if len(e.Rejected) > 0 {
		return fmt.Sprintf("%v (%d rejected)", e.Err, len(e.Rejected))
	}
	return e.Err.Error()
}

func (e *BatchError) Unwrap() error { return e.Err }

// AsBatchError extracts a BatchError from err's chain.
func AsBatchError(err error) (*BatchError, bool) {
	var be *BatchError
	ok := errors.As(err, &be)
	return be, ok
}

// ErrRequired marks a bulk row that omits a mandatory column.
var ErrRequired = errors.New("field is required")
