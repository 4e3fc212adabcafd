package httpapi

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/joelkehle/strategy-workbench/internal/advisor"
	"github.com/joelkehle/strategy-workbench/internal/project"
	"github.com/joelkehle/strategy-workbench/internal/report"
	"github.com/joelkehle/strategy-workbench/internal/session"
	"github.com/joelkehle/strategy-workbench/internal/strategy"
)

const (
	CodeValidation  = "validation"
	CodeNotFound    = "not_found"
	CodeConflict    = "conflict"
	CodeUnavailable = "unavailable"
	CodeInternal    = "internal"
)

// Error is the wire form of a failed request.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// requestError marks a failure caused by the request itself.
type requestError struct {
	err error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func invalid(err error) error {
	return &requestError{err: err}
}

func invalidf(format string, args ...any) error {
	return invalid(fmt.Errorf(format, args...))
}

func classify(err error) *Error {
	var (
		se  *strategy.Error
		ve  *project.ValidationError
		re  *requestError
		api *Error
	)
	switch {
	case errors.As(err, &api):
		return api
	case errors.As(err, &se):
		return &Error{Code: se.Code, Message: err.Error(), Status: http.StatusBadRequest}
	case errors.As(err, &ve), errors.As(err, &re):
		return &Error{Code: CodeValidation, Message: err.Error(), Status: http.StatusBadRequest}
	case errors.Is(err, project.ErrNotFound):
		return &Error{Code: CodeNotFound, Message: err.Error(), Status: http.StatusNotFound}
	case errors.Is(err, session.ErrAlreadyDerived),
		errors.Is(err, session.ErrNotDerived),
		errors.Is(err, advisor.ErrPositionUndetermined):
		return &Error{Code: CodeConflict, Message: err.Error(), Status: http.StatusConflict}
	case errors.Is(err, advisor.ErrUnavailable), errors.Is(err, report.ErrRendererUnavailable):
		return &Error{Code: CodeUnavailable, Message: err.Error(), Status: http.StatusServiceUnavailable}
	default:
		return &Error{Code: CodeInternal, Message: err.Error(), Status: http.StatusInternalServerError}
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	writeErrorWith(w, r, err, nil)
}

// writeErrorWith adds extra top-level fields to the error envelope, e.g. the
// unchanged factor after a rejected edit.
func writeErrorWith(w http.ResponseWriter, r *http.Request, err error, extra map[string]any) {
	e := classify(err)
	if e.Status >= 500 {
		log.Printf("request failed method=%s path=%s code=%s err=%v", r.Method, r.URL.Path, e.Code, err)
	}
	payload := map[string]any{
		"ok":    false,
		"error": map[string]any{"code": e.Code, "message": e.Message},
	}
	for k, v := range extra {
		payload[k] = v
	}
	writeJSON(w, e.Status, payload)
}
