package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"taqwim/internal/auth"
)

type GoogleHandler struct {
	manager *auth.Manager
	logger  *slog.Logger
}

func NewGoogleHandler(manager *auth.Manager, logger *slog.Logger) *GoogleHandler {
	return &GoogleHandler{manager: manager, logger: logger}
}

type connectRequest struct {
	RefreshToken string `json:"refresh_token"`
	IDToken      string `json:"id_token"`
}

// Connect stores a Google refresh token obtained out-of-band (the OAuth
// consent flow happens in a browser, not in this daemon).
func (h *GoogleHandler) Connect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	if err := h.manager.Connect(r.Context(), req.RefreshToken, req.IDToken); err != nil {
		h.logger.Error("google connect", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store credential")
		return
	}

	email, err := h.manager.AccountEmail()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read credential")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "connected", "email": email})
}

// Disconnect removes the stored Google credential.
func (h *GoogleHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Disconnect(); err != nil {
		h.logger.Error("google disconnect", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to clear credential")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "disconnected"})
}
