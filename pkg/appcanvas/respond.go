package appcanvas

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/appcanvas/appcanvas/pkg/logger"
	"github.com/appcanvas/appcanvas/pkg/store"
)

// Envelope is the body of every API response.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

var errAppNotFound = errors.New("app not found")

// requestError is a client error with the message returned to the caller.
type requestError struct {
	status  int
	message string
}

func (e *requestError) Error() string {
	return e.message
}

func badRequest(message string) error {
	return &requestError{status: http.StatusBadRequest, message: message}
}

func notFound(message string) error {
	return &requestError{status: http.StatusNotFound, message: message}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, `{"success":false,"message":"Internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(response)
}

func respondData(w http.ResponseWriter, status int, data any) {
	respondJSON(w, status, Envelope{Success: true, Data: data})
}

func respondDataMessage(w http.ResponseWriter, status int, data any, message string) {
	respondJSON(w, status, Envelope{Success: true, Data: data, Message: message})
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, Envelope{Success: false, Message: message})
}

// statusOf maps an error to its response status and client message.
// Ownership failures and missing apps are both reported as 404.
func statusOf(err error) (int, string) {
	var re *requestError
	switch {
	case errors.As(err, &re):
		return re.status, re.message
	case errors.Is(err, errAppNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "App not found"
	case errors.Is(err, store.ErrElementNotFound):
		return http.StatusNotFound, "Element not found"
	case errors.Is(err, store.ErrElementExists):
		return http.StatusConflict, "Element already exists"
	case errors.Is(err, store.ErrReadOnly):
		return http.StatusServiceUnavailable, "Service is in read-only mode"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// fail writes err as an envelope. Unexpected errors are logged with the
// request logger and replaced by a generic message.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	status, message := statusOf(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		logger.FromRequest(r).Error().Err(err).Msg("Request failed")
	}
	respondError(w, status, message)
}
