package controllers

import (
	"net/http"
)

// HealthCheck возвращает {"status": "ok"}, если сервер работает.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
