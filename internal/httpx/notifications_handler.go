package httpx

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ariefcatur/go-poster-orders/internal/notifications"
	"github.com/ariefcatur/go-poster-orders/internal/redisx"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type NotificationStore interface {
	List(ctx context.Context) ([]notifications.Notification, error)
	MarkRead(ctx context.Context, id int64) error
}

type FeedReader interface {
	Latest(ctx context.Context, n int64) ([]redisx.FeedEntry, error)
}

type NotificationsHandler struct {
	Store NotificationStore
	Feed  FeedReader
	Log   *zap.Logger
}

// Register mounts the admin notification routes; every route needs authn and
// admin.
func (h *NotificationsHandler) Register(r chi.Router, authn, admin Middleware) {
	r.Route("/api/notifications", func(r chi.Router) {
		r.Use(authn, admin)
		r.Get("/", h.list)
		r.Get("/feed", h.feed)
		r.Put("/{id}/read", h.markRead)
	})
}

func (h *NotificationsHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Store.List(ctx)
	if err != nil {
		h.Log.Error("list notifications", zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *NotificationsHandler) markRead(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "Notification not found")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Store.MarkRead(ctx, id); err != nil {
		if errors.Is(err, notifications.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Notification not found")
			return
		}
		h.Log.Error("mark notification read", zap.Int64("notification_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Marked read", "success": true})
}

func (h *NotificationsHandler) feed(w http.ResponseWriter, r *http.Request) {
	var n int64
	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil || v <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		n = v
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	entries, err := h.Feed.Latest(ctx, n)
	if err != nil {
		h.Log.Error("read notification feed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgServerError)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
