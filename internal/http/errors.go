package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var (
	errMalformedBody = errors.New("request body is not valid JSON")
	errEmptyBody     = errors.New("request body is empty")
	errMissingFile   = errors.New(`multipart upload must carry a "file" part`)
)

type errorResponse struct {
	Error    string          `json:"error"`
	Field    string          `json:"field,omitempty"`
	Rejected []core.RowError `json:"rejected,omitempty"`
	Count    *int            `json:"count,omitempty"`
}

// writeError maps err onto a status code and the JSON error body, then aborts
// the chain. Server-side failures are logged and their detail withheld.
func writeError(c *gin.Context, err error) {
	status, body := describeError(err)
	if status >= http.StatusInternalServerError {
		applog.NewStructuredLogger(applog.FromContext(c.Request.Context())).LogError(
			c.Request.Context(), "Request failed", err, errorType(err), c.FullPath(),
			applog.NewFields().WithHTTPRequest(c.Request.Method, c.Request.URL.Path, "", ""))
	}
	c.AbortWithStatusJSON(status, body)
}

func describeError(err error) (int, errorResponse) {
	var (
		ve       *core.ValidationError
		nf       *core.NotFoundError
		tooLarge *http.MaxBytesError
	)

	status := http.StatusInternalServerError
	body := errorResponse{Error: "internal server error"}

	switch {
	case errors.As(err, &ve):
		status = http.StatusBadRequest
		body = errorResponse{Error: ve.Err.Error(), Field: ve.Field}
	case errors.As(err, &tooLarge):
		status = http.StatusRequestEntityTooLarge
		body.Error = fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)
	case errors.As(err, &nf):
		status = http.StatusNotFound
		body.Error = nf.Error()
	case errors.Is(err, core.ErrUnauthorized):
		status = http.StatusUnauthorized
		body.Error = trimSentinel(err, core.ErrUnauthorized)
	case errors.Is(err, core.ErrForbidden):
		status = http.StatusForbidden
		body.Error = trimSentinel(err, core.ErrForbidden)
	case errors.Is(err, core.ErrConflict):
		status = http.StatusConflict
		body.Error = trimSentinel(err, core.ErrConflict)
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
		body.Error = "request timed out"
	}

	if be, ok := core.AsBatchError(err); ok {
		body.Rejected = be.Rejected
		if body.Rejected == nil {
			body.Rejected = []core.RowError{}
		}
		if status >= http.StatusInternalServerError {
			count := be.Count
			body.Count = &count
		}
	}
	return status, body
}

// trimSentinel drops the ": <sentinel>" suffix a wrapped sentinel leaves on
// the message, so callers see the specific reason only.
func trimSentinel(err, sentinel error) string {
	return strings.TrimSuffix(err.Error(), ": "+sentinel.Error())
}

func errorType(err error) string {
	var se *core.StoreError
	switch {
	case errors.As(err, &se):
		return applog.ErrorTypeDatabase
	case errors.Is(err, context.DeadlineExceeded):
		return applog.ErrorTypeTimeout
	default:
		return applog.ErrorTypeInternal
	}
}

// bindError converts a gin binding failure into a validation error naming the
// offending field where one is known.
func bindError(err error) error {
	var (
		verrs   validator.ValidationErrors
		typeErr *json.UnmarshalTypeError
		tooBig  *http.MaxBytesError
	)
	switch {
	case errors.As(err, &tooBig):
		return err
	case errors.As(err, &verrs) && len(verrs) > 0:
		fe := verrs[0]
		return &core.ValidationError{Field: fe.Field(), Err: fmt.Errorf("failed %q validation", fe.Tag())}
	case errors.As(err, &typeErr) && typeErr.Field != "":
		return &core.ValidationError{Field: typeErr.Field, Err: fmt.Errorf("must be a %s", typeErr.Type)}
	case errors.Is(err, io.EOF):
		return &core.ValidationError{Field: "body", Err: errEmptyBody}
	default:
		return &core.ValidationError{Field: "body", Err: errMalformedBody}
	}
}

func asMaxBytes(err error) (*http.MaxBytesError, bool) {
	var mbe *http.MaxBytesError
	ok := errors.As(err, &mbe)
	return mbe, ok
}
