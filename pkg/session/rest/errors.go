package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hjyangBig2/lighter/pkg/session/core/application/usecase"
	"github.com/hjyangBig2/lighter/pkg/session/support/util/exception"
	"github.com/hjyangBig2/lighter/pkg/session/support/util/logger"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

var errBadRequest = errors.New("bad request")

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Warnf("Failed to write response body: %v", err)
	}
}

func writeNotFound(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusNotFound, ErrorResponse{Message: message})
}

// writeError maps err to a status code. A permanent session conflict carries the id of the existing session.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if sessionID, ok := exception.IsConflict(err); ok {
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Message: err.Error(),
			Details: map[string]string{"sessionId": sessionID},
		})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, exception.ErrPermanentSessionNotFound), errors.Is(err, usecase.ErrArchiveNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		logger.Errorf("%s %s failed: %v", r.Method, r.URL.Path, err)
	} else {
		logger.Debugf("%s %s rejected with %d: %v", r.Method, r.URL.Path, status, err)
	}
	writeJSON(w, status, ErrorResponse{Message: exception.ExtractErrorMessage(err)})
}
