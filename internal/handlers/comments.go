package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/recipe-blog/internal/comments"
	"github.com/example/recipe-blog/internal/platform/api"
	"github.com/example/recipe-blog/internal/platform/httpserver"
)

type createCommentRequest struct {
	Author   string  `json:"author"`
	Email    string  `json:"email"`
	Content  string  `json:"content"`
	ParentID *string `json:"parentId,omitempty"`
}

type threadResponse struct {
	Comments []*comments.PublicNode `json:"comments"`
	HasMore  bool                   `json:"hasMore"`
	Page     int                    `json:"page"`
	Total    int                    `json:"total"`
}

type createCommentResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// GetComments handles GET /comments/{slug}?page=N
func GetComments(b *comments.Builder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := strings.TrimSpace(chi.URLParam(r, "slug"))
		if slug == "" {
			api.BadRequest(w, "MISSING_SLUG", "slug is required", requestID(r), nil)
			return
		}

		page := 1
		if p := r.URL.Query().Get("page"); p != "" {
			if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
				page = parsed
			}
		}

		thread, err := b.PublicThread(r.Context(), slug, page)
		if err != nil {
			api.Internal(w, requestID(r))
			return
		}

		nodes := thread.Comments
		if nodes == nil {
			nodes = []*comments.PublicNode{}
		}
		api.WriteJSON(w, http.StatusOK, threadResponse{
			Comments: nodes,
			HasMore:  thread.HasMore,
			Page:     thread.Page,
			Total:    thread.Total,
		})
	}
}

// PostComment handles POST /comments/{slug}
func PostComment(svc *comments.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := strings.TrimSpace(chi.URLParam(r, "slug"))
		if slug == "" {
			api.BadRequest(w, "MISSING_SLUG", "slug is required", requestID(r), nil)
			return
		}

		var req createCommentRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			api.BadRequest(w, "INVALID_JSON", "invalid JSON", requestID(r), nil)
			return
		}

		created, err := svc.Submit(r.Context(), comments.SubmitInput{
			PostSlug: slug,
			Author:   req.Author,
			Email:    req.Email,
			Content:  req.Content,
			ParentID: req.ParentID,
		})
		if err != nil {
			writeSubmitError(w, r, err)
			return
		}

		api.WriteJSON(w, http.StatusCreated, createCommentResponse{
			Message: "Commentaire soumis avec succès. Il sera visible après modération.",
			ID:      created.ID,
		})
	}
}

func writeSubmitError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *comments.ValidationError
	switch {
	case errors.As(err, &verr):
		var details map[string]any
		if len(verr.Fields) > 0 {
			details = map[string]any{"fields": verr.Fields}
		}
		api.BadRequest(w, "VALIDATION", verr.Message, requestID(r), details)
	case errors.Is(err, comments.ErrParentNotFound):
		api.NotFound(w, "PARENT_NOT_FOUND", "Commentaire parent non trouvé ou non approuvé", requestID(r))
	default:
		api.Internal(w, requestID(r))
	}
}

func requestID(r *http.Request) string {
	return httpserver.RequestIDFromContext(r.Context())
}
