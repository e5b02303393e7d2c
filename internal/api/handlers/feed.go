package handlers

import (
	"net/http"

	"github.com/dom/sleeplog/internal/api/middleware"
	"github.com/dom/sleeplog/internal/domain"
	"github.com/dom/sleeplog/internal/service"
)

type FeedHandler struct {
	feedService *service.FeedService
}

func NewFeedHandler(feedService *service.FeedService) *FeedHandler {
	return &FeedHandler{feedService: feedService}
}

// Get returns the previous week's feed, or the week named by ?week=.
func (h *FeedHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var (
		feed *service.Feed
		err  error
	)
	if week := r.URL.Query().Get("week"); week != "" {
		weekKey, perr := domain.ParseWeekKey(week)
		if perr != nil {
			writeError(w, r, perr)
			return
		}
		feed, err = h.feedService.ForWeek(r.Context(), userID, weekKey)
	} else {
		feed, err = h.feedService.PreviousWeek(r.Context(), userID)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toFeedResponse(feed))
}
