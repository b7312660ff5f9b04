// Package render writes JSON responses and the common error body.
package render

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"emergencyDashboard/pkg/e"
)

// ErrorBody is returned for every failed request.
type ErrorBody struct {
	Timestamp string `json:"timestamp"`
	Status    int    `json:"status"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

var now = time.Now

func JSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// StatusOf maps an error kind onto the HTTP status reported to the caller.
func StatusOf(err error) int {
	switch e.KindOf(err) {
	case e.KindValidation:
		return http.StatusBadRequest
	case e.KindNotFound:
		return http.StatusNotFound
	case e.KindDependency:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error writes the error body for err. Internal failures never expose their
// message.
func Error(w http.ResponseWriter, err error) {
	status := StatusOf(err)

	body := ErrorBody{
		Timestamp: now().UTC().Format(time.RFC3339Nano),
		Status:    status,
		Error:     title(status),
		Message:   err.Error(),
		Retryable: e.IsRetryable(err),
	}
	if status == http.StatusInternalServerError {
		body.Message = "internal error"
	}
	if status == http.StatusServiceUnavailable {
		body.Message = dependencyMessage(err)
	}

	JSON(w, status, body)
}

// Status writes the error body for a transport level failure that has no
// domain error behind it, e.g. a rejected API key.
func Status(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorBody{
		Timestamp: now().UTC().Format(time.RFC3339Nano),
		Status:    status,
		Error:     title(status),
		Message:   message,
	})
}

func title(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "Validation Error"
	case http.StatusNotFound:
		return "Entity Not Found"
	case http.StatusServiceUnavailable:
		return "Service Unavailable"
	default:
		return http.StatusText(status)
	}
}

func dependencyMessage(err error) string {
	switch {
	case errors.Is(err, e.ErrDeadline):
		return "upstream store timed out, retry later"
	case errors.Is(err, e.ErrCanceled):
		return "request canceled"
	default:
		return "upstream store unavailable, retry later"
	}
}
