package handlers

import (
	"net/http"

	"github.com/dom/sleeplog/internal/api/middleware"
	"github.com/dom/sleeplog/internal/service"
)

type SleepHandler struct {
	sleepService *service.SleepService
}

func NewSleepHandler(sleepService *service.SleepService) *SleepHandler {
	return &SleepHandler{sleepService: sleepService}
}

func (h *SleepHandler) ClockIn(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	session, err := h.sleepService.ClockIn(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSleepSessionResponse(session))
}

func (h *SleepHandler) ClockOut(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	session, err := h.sleepService.ClockOut(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toSleepSessionResponse(session))
}

// List returns the caller's sessions, newest first.
func (h *SleepHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	limit, offset := pagination(r)
	sessions, err := h.sleepService.List(r.Context(), userID, limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]SleepSessionResponse, 0, len(sessions))
	for _, s := range sessions {
		resp = append(resp, toSleepSessionResponse(s))
	}
	writeJSON(w, http.StatusOK, resp)
}
