// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/livepoll/middleware"
	"github.com/danielhkuo/livepoll/realtime"
)

type RealtimeHandler struct {
	notifier *realtime.Notifier
}

func NewRealtimeHandler(n *realtime.Notifier) *RealtimeHandler {
	return &RealtimeHandler{notifier: n}
}

// Stats handles GET /api/realtime/stats
func (h *RealtimeHandler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.notifier.Stats(r.Context())
	if errors.Is(err, realtime.ErrNotifierClosed) {
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "Realtime notifier is not running")
		return
	}
	if err != nil {
		slog.Error("failed to read realtime stats", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to read realtime stats")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, st)
}
