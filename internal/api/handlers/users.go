package handlers

import (
	"context"
	"net/http"

	"github.com/dom/sleeplog/internal/api/middleware"
	"github.com/dom/sleeplog/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type UserHandler struct {
	userService      *service.UserService
	followingService *service.FollowingService
}

func NewUserHandler(userService *service.UserService, followingService *service.FollowingService) *UserHandler {
	return &UserHandler{
		userService:      userService,
		followingService: followingService,
	}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	profiles, err := h.userService.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]UserProfileResponse, 0, len(profiles))
	for _, p := range profiles {
		resp = append(resp, toUserProfileResponse(p))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	profile, err := h.userService.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserProfileResponse(profile))
}

func (h *UserHandler) Follow(w http.ResponseWriter, r *http.Request) {
	h.mutateEdge(w, r, h.followingService.Follow, "Unable to follow user")
}

func (h *UserHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	h.mutateEdge(w, r, h.followingService.Unfollow, "Not following user")
}

// mutateEdge runs a follow or unfollow and responds with the caller's
// refreshed profile. A rejected mutation is a 422.
func (h *UserHandler) mutateEdge(
	w http.ResponseWriter,
	r *http.Request,
	mutate func(ctx context.Context, followerID, followedID uuid.UUID) (bool, error),
	rejected string,
) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	targetID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	applied, err := mutate(r.Context(), userID, targetID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !applied {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: rejected})
		return
	}

	profile, err := h.userService.Get(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserProfileResponse(profile))
}
