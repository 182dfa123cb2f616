package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/juju/errors"
	"github.com/juju/loggo"
)

var logger = loggo.GetLogger("connectme.controllers")

// respondJSON пишет ответ в JSON с указанным кодом.
func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Errorf("failed to encode response: %v", err)
	}
}

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// respondError пишет {error, details}.
func respondError(w http.ResponseWriter, status int, message string, err error) {
	body := errorBody{Error: message}
	if err != nil {
		body.Details = err.Error()
	}
	respondJSON(w, status, body)
}

// respondStoreError переводит ошибку хранилища в код ответа.
func respondStoreError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, errors.NotFound):
		respondError(w, http.StatusNotFound, "Post-it not found", nil)
	case errors.Is(err, errors.NotValid):
		respondError(w, http.StatusBadRequest, "Invalid post-it", err)
	default:
		logger.Errorf("%s: %v", op, err)
		respondError(w, http.StatusServiceUnavailable, "Database unavailable - use local cache", err)
	}
}
