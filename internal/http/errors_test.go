package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"expensetracker/internal/auth"
	"expensetracker/internal/core"

	"github.com/stretchr/testify/assert"
)

func TestDescribeError(t *testing.T) {
	rejected := []core.RowError{{Row: 2, Reason: "amount: amount must be a non-negative number"}}

	tests := []struct {
		name   string
		err    error
		status int
		want   errorResponse
	}{
		{
			name:   "validation",
			err:    &core.ValidationError{Field: "amount", Err: core.ErrInvalidAmount},
			status: http.StatusBadRequest,
			want:   errorResponse{Error: core.ErrInvalidAmount.Error(), Field: "amount"},
		},
		{
			name:   "no valid rows",
			err:    &core.ValidationError{Field: "rows", Err: &core.BatchError{Err: core.ErrNoValidRows, Rejected: rejected}},
			status: http.StatusBadRequest,
			want:   errorResponse{Error: "no valid rows to insert (1 rejected)", Field: "rows", Rejected: rejected},
		},
		{
			name:   "not found",
			err:    &core.NotFoundError{Resource: "expense", ID: "x"},
			status: http.StatusNotFound,
			want:   errorResponse{Error: "expense x not found"},
		},
		{
			name:   "bad credentials",
			err:    auth.ErrInvalidCredentials,
			status: http.StatusUnauthorized,
			want:   errorResponse{Error: "invalid credentials"},
		},
		{
			name:   "bare unauthorized",
			err:    core.ErrUnauthorized,
			status: http.StatusUnauthorized,
			want:   errorResponse{Error: core.ErrUnauthorized.Error()},
		},
		{
			name:   "forbidden",
			err:    core.ErrForbidden,
			status: http.StatusForbidden,
			want:   errorResponse{Error: core.ErrForbidden.Error()},
		},
		{
			name:   "conflict",
			err:    auth.ErrUserExists,
			status: http.StatusConflict,
			want:   errorResponse{Error: "user already exists"},
		},
		{
			name:   "too large",
			err:    fmt.Errorf("read: %w", &http.MaxBytesError{Limit: 10}),
			status: http.StatusRequestEntityTooLarge,
			want:   errorResponse{Error: "request body exceeds 10 bytes"},
		},
		{
			name:   "timeout",
			err:    core.NewStoreError("find", context.DeadlineExceeded),
			status: http.StatusServiceUnavailable,
			want:   errorResponse{Error: "request timed out"},
		},
		{
			name:   "store failure",
			err:    core.NewStoreError("find", errors.New("connection reset")),
			status: http.StatusInternalServerError,
			want:   errorResponse{Error: "internal server error"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := describeError(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.want, body)
		})
	}
}

func TestDescribeError_PartialBatch(t *testing.T) {
	err := &core.BatchError{Err: core.NewStoreError("insert many", errors.New("boom")), Count: 3}

	status, body := describeError(err)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, []core.RowError{}, body.Rejected)
	if assert.NotNil(t, body.Count) {
		assert.Equal(t, 3, *body.Count)
	}
}

func TestErrorType(t *testing.T) {
	assert.Equal(t, "database_error", errorType(core.NewStoreError("x", errors.New("y"))))
	assert.Equal(t, "timeout_error", errorType(context.DeadlineExceeded))
	assert.Equal(t, "internal_error", errorType(errors.New("y")))
}
