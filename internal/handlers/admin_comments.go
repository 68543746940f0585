package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/recipe-blog/internal/comments"
	"github.com/example/recipe-blog/internal/platform/api"
	"github.com/example/recipe-blog/internal/store"
)

type adminListMeta struct {
	Status         string `json:"status"`
	IncludeDeleted bool   `json:"includeDeleted"`
	Total          int    `json:"total"`
}

type adminListResponse struct {
	Comments []*comments.AdminNode `json:"comments"`
	Meta     adminListMeta         `json:"meta"`
}

type actionResponse struct {
	Message string         `json:"message"`
	Comment *store.Comment `json:"comment,omitempty"`
}

type adminReplyRequest struct {
	Content string `json:"content"`
	Author  string `json:"author,omitempty"`
}

type adminReplyResponse struct {
	Message string     `json:"message"`
	Reply   replyShape `json:"reply"`
}

type replyShape struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// AdminListComments handles GET /admin/comments?status=pending|approved&includeDeleted=
func AdminListComments(b *comments.Builder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status")))
		if status == "" {
			status = "pending"
		}
		includeDeleted := r.URL.Query().Get("includeDeleted") == "true"

		var nodes []*comments.AdminNode
		var err error
		switch status {
		case "pending":
			nodes, err = b.AdminPending(r.Context(), includeDeleted)
		case "approved":
			nodes, err = b.AdminApproved(r.Context(), includeDeleted)
		default:
			api.BadRequest(w, "INVALID_STATUS", "status must be pending or approved", requestID(r), nil)
			return
		}
		if err != nil {
			api.Internal(w, requestID(r))
			return
		}

		if nodes == nil {
			nodes = []*comments.AdminNode{}
		}
		api.WriteJSON(w, http.StatusOK, adminListResponse{
			Comments: nodes,
			Meta: adminListMeta{
				Status:         status,
				IncludeDeleted: includeDeleted,
				Total:          len(nodes),
			},
		})
	}
}

// ApproveComment handles POST /admin/comments/{id}/approve
func ApproveComment(svc *comments.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		c, err := svc.Approve(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				api.NotFound(w, "NOT_FOUND", "Commentaire non trouvé", requestID(r))
				return
			}
			api.Internal(w, requestID(r))
			return
		}
		api.WriteJSON(w, http.StatusOK, actionResponse{
			Message: "Commentaire approuvé avec succès",
			Comment: &c,
		})
	}
}

// RejectComment handles POST /admin/comments/{id}/reject
func RejectComment(svc *comments.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := svc.Reject(r.Context(), id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				api.NotFound(w, "NOT_FOUND", "Commentaire non trouvé", requestID(r))
				return
			}
			api.Internal(w, requestID(r))
			return
		}
		api.WriteJSON(w, http.StatusOK, actionResponse{
			Message: "Commentaire rejeté et supprimé avec succès",
		})
	}
}

// DeleteComment handles POST /admin/comments/{id}/delete (soft delete).
func DeleteComment(svc *comments.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		c, err := svc.SoftDelete(r.Context(), id, "admin")
		if err != nil {
			switch {
			case errors.Is(err, store.ErrNotFound):
				api.NotFound(w, "NOT_FOUND", "Commentaire non trouvé", requestID(r))
			case errors.Is(err, comments.ErrNotDeletable):
				api.BadRequest(w, "NOT_DELETABLE", "Le commentaire doit être approuvé et non supprimé", requestID(r), nil)
			default:
				api.Internal(w, requestID(r))
			}
			return
		}
		api.WriteJSON(w, http.StatusOK, actionResponse{
			Message: "Commentaire supprimé avec succès",
			Comment: &c,
		})
	}
}

// ReplyComment handles POST /admin/comments/{id}/reply (quick reply).
func ReplyComment(svc *comments.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var req adminReplyRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			api.BadRequest(w, "INVALID_JSON", "invalid JSON", requestID(r), nil)
			return
		}

		reply, err := svc.AdminReply(r.Context(), id, req.Content, req.Author)
		if err != nil {
			var verr *comments.ValidationError
			switch {
			case errors.As(err, &verr):
				api.BadRequest(w, "VALIDATION", verr.Message, requestID(r), nil)
			case errors.Is(err, store.ErrNotFound):
				api.NotFound(w, "NOT_FOUND", "Commentaire parent non trouvé", requestID(r))
			default:
				api.Internal(w, requestID(r))
			}
			return
		}

		api.WriteJSON(w, http.StatusOK, adminReplyResponse{
			Message: "Réponse admin créée avec succès",
			Reply: replyShape{
				ID:        reply.ID,
				Author:    reply.Author,
				Content:   reply.Content,
				CreatedAt: reply.CreatedAt,
			},
		})
	}
}
