// Package api exposes stories over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"webstories/models"
	"webstories/reconcile"
)

const serviceName = "web-stories-backend"

// StoryService is the story use-case layer behind the handlers.
type StoryService interface {
	List(ctx context.Context) ([]models.Story, error)
	Get(ctx context.Context, id string) (*models.Story, error)
	Create(ctx context.Context, sub reconcile.Submission) (*models.Story, error)
	Update(ctx context.Context, id string, sub reconcile.Submission) (*models.Story, error)
	Delete(ctx context.Context, id string) error
}

type Handler struct {
	stories        StoryService
	maxUploadBytes int64
	logger         *slog.Logger
}

func NewHandler(stories StoryService, maxUploadBytes int64, logger *slog.Logger) *Handler {
	return &Handler{
		stories:        stories,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With(slog.String("component", "api")),
	}
}

// NewRouter wires the routes. Writes require a bearer token; when
// writeRole is set the token must also carry that role.
func NewRouter(h *Handler, auth *Authenticator, writeRole string, logger *slog.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(RequestID, RequestLogger(logger), Metrics)

	protect := func(fn http.HandlerFunc) http.Handler {
		return auth.Middleware(RequireRole(writeRole)(fn))
	}

	r.HandleFunc("/api/health", h.health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/api/stories", h.listStories).Methods(http.MethodGet)
	r.HandleFunc("/api/stories/{id}", h.getStory).Methods(http.MethodGet)
	r.Handle("/api/stories", protect(h.createStory)).Methods(http.MethodPost)
	r.Handle("/api/stories/{id}", protect(h.updateStory)).Methods(http.MethodPut)
	r.Handle("/api/stories/{id}", protect(h.deleteStory)).Methods(http.MethodDelete)

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "service": serviceName})
}

func (h *Handler) listStories(w http.ResponseWriter, r *http.Request) {
	stories, err := h.stories.List(r.Context())
	if err != nil {
		writeServiceError(w, h.requestLogger(r), err)
		return
	}
	if stories == nil {
		stories = []models.Story{}
	}
	writeJSON(w, http.StatusOK, stories)
}

func (h *Handler) getStory(w http.ResponseWriter, r *http.Request) {
	story, err := h.stories.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, h.requestLogger(r), err)
		return
	}
	writeJSON(w, http.StatusOK, story)
}

func (h *Handler) createStory(w http.ResponseWriter, r *http.Request) {
	sub, cleanup, err := decodeSubmission(w, r, h.maxUploadBytes)
	defer cleanup()
	if err != nil {
		writeServiceError(w, h.requestLogger(r), err)
		return
	}

	story, err := h.stories.Create(r.Context(), sub)
	if err != nil {
		writeServiceError(w, h.requestLogger(r), err)
		return
	}
	writeJSON(w, http.StatusCreated, story)
}

func (h *Handler) updateStory(w http.ResponseWriter, r *http.Request) {
	sub, cleanup, err := decodeSubmission(w, r, h.maxUploadBytes)
	defer cleanup()
	if err != nil {
		writeServiceError(w, h.requestLogger(r), err)
		return
	}

	story, err := h.stories.Update(r.Context(), mux.Vars(r)["id"], sub)
	if err != nil {
		writeServiceError(w, h.requestLogger(r), err)
		return
	}
	writeJSON(w, http.StatusOK, story)
}

func (h *Handler) deleteStory(w http.ResponseWriter, r *http.Request) {
	if err := h.stories.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, h.requestLogger(r), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Story deleted"})
}

func (h *Handler) requestLogger(r *http.Request) *slog.Logger {
	return h.logger.With(slog.String("request_id", RequestIDFromContext(r.Context())))
}
