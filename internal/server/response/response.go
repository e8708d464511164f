// Package response provides the JSON envelope of the syncals HTTP API.
// Successful responses carry a data field and failures an error field.
package response

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/syncals/syncals/pkg/errors"
)

// Response is the envelope of every API reply. Exactly one of Data and
// Error is set.
type Response struct {
	Data  any    `json:"data"`
	Error *Error `json:"error"`
}

// Error describes a failed request.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error codes.
const (
	CodeBadRequest = "BAD_REQUEST"
	CodeNotFound   = "NOT_FOUND"
	CodeConflict   = "CONFLICT"
	CodeUpstream   = "UPSTREAM_ERROR"
	CodeTimeout    = "TIMEOUT"
	CodeInternal   = "INTERNAL_ERROR"
)

func write(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// the status line is out; nothing left to report to
	_ = json.NewEncoder(w).Encode(resp)
}

// OK writes data with status 200.
func OK(w http.ResponseWriter, data any) {
	write(w, http.StatusOK, Response{Data: data})
}

// Fail writes an error envelope.
func Fail(w http.ResponseWriter, status int, code, message, details string) {
	write(w, status, Response{Error: &Error{Code: code, Message: message, Details: details}})
}

// NotFound writes a 404.
func NotFound(w http.ResponseWriter, message, details string) {
	Fail(w, http.StatusNotFound, CodeNotFound, message, details)
}

// Status classifies err. Configuration mistakes are the caller's fault,
// failing calendars or booking systems are upstream failures, and
// anything unrecognised is internal.
func Status(err error) (int, string) {
	var (
		notFound   *errors.NotFoundError
		validation *errors.ValidationError
		config     *errors.ConfigError
		resource   *errors.ResourceError
		provider   *errors.ProviderError
	)
	switch {
	case stderrors.As(err, &notFound):
		return http.StatusNotFound, CodeNotFound
	case errors.IsConflict(err):
		return http.StatusConflict, CodeConflict
	case stderrors.As(err, &validation), stderrors.As(err, &config):
		return http.StatusBadRequest, CodeBadRequest
	case errors.IsTimeout(err):
		return http.StatusGatewayTimeout, CodeTimeout
	case stderrors.As(err, &provider), stderrors.As(err, &resource):
		return http.StatusBadGateway, CodeUpstream
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// Err writes err with the status Status picks. Internal errors are not
// echoed to the client.
func Err(w http.ResponseWriter, err error) {
	status, code := Status(err)
	switch code {
	case CodeInternal:
		Fail(w, status, code, "Internal server error", "")
	case CodeUpstream, CodeTimeout:
		Fail(w, status, code, "Calendar or booking system failed", err.Error())
	default:
		Fail(w, status, code, err.Error(), "")
	}
}
