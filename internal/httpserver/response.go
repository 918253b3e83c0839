package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"accounts/backend/internal/logctx"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeAPIError(w http.ResponseWriter, e apiError) {
	writeJSON(w, e.status, errorResponse{Error: e.message, Code: e.code})
}

// writeError renders err. Unexpected errors are logged and reported as 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	e, known := classify(err)
	if !known {
		logctx.From(r.Context()).Error("request_failed", slog.String("err", err.Error()))
	}
	writeAPIError(w, e)
}
