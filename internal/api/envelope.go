package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

const apiVersion = "1.0"

// envelope is the uniform response body every endpoint returns.
type envelope struct {
	Success bool    `json:"success"`
	Data    any     `json:"data"`
	Error   *string `json:"error"`
	TS      string  `json:"ts"`
	Version string  `json:"version"`
}

func writeJSON(w http.ResponseWriter, status int, v envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Data:    data,
		TS:      time.Now().UTC().Format(time.RFC3339),
		Version: apiVersion,
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{
		Success: false,
		Error:   &msg,
		TS:      time.Now().UTC().Format(time.RFC3339),
		Version: apiVersion,
	})
}
