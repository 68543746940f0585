package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/recipe-blog/internal/content"
	"github.com/example/recipe-blog/internal/platform/api"
	"github.com/example/recipe-blog/internal/store"
)

type articleSummary struct {
	content.Article
	CommentCount    int `json:"commentCount,omitempty"`
	PendingComments int `json:"pendingComments,omitempty"`
}

type articleResponse struct {
	content.Article
	HTML string `json:"html"`
}

type saveArticleRequest struct {
	content.Meta
	Content string `json:"content"`
}

type saveArticleResponse struct {
	Message string          `json:"message"`
	Article content.Article `json:"article"`
}

// ListArticles handles GET /articles
func ListArticles(lib *content.Library) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		api.WriteJSON(w, http.StatusOK, map[string]any{"articles": lib.All()})
	}
}

// GetArticle handles GET /articles/{slug}, returning rendered HTML.
func GetArticle(lib *content.Library) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := strings.TrimSpace(chi.URLParam(r, "slug"))
		a, ok := lib.Get(slug)
		if !ok {
			api.NotFound(w, "NOT_FOUND", "Article non trouvé", requestID(r))
			return
		}
		html, err := lib.Render(a)
		if err != nil {
			api.Internal(w, requestID(r))
			return
		}
		api.WriteJSON(w, http.StatusOK, articleResponse{Article: a, HTML: html})
	}
}

// AdminListArticles handles GET /admin/articles with per-article comment stats.
func AdminListArticles(lib *content.Library, st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all := lib.All()
		out := make([]articleSummary, 0, len(all))
		for _, a := range all {
			total, err := st.Count(r.Context(), store.Filter{PostSlug: a.Slug})
			if err != nil {
				api.Internal(w, requestID(r))
				return
			}
			pending, err := st.Count(r.Context(), store.Filter{PostSlug: a.Slug, Approved: store.Bool(false)})
			if err != nil {
				api.Internal(w, requestID(r))
				return
			}
			out = append(out, articleSummary{Article: a, CommentCount: total, PendingComments: pending})
		}
		api.WriteJSON(w, http.StatusOK, map[string]any{"articles": out})
	}
}

// AdminGetArticle handles GET /admin/articles/{slug}: raw markdown for editing.
func AdminGetArticle(lib *content.Library) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := strings.TrimSpace(chi.URLParam(r, "slug"))
		a, ok := lib.Get(slug)
		if !ok {
			api.NotFound(w, "NOT_FOUND", "Article non trouvé", requestID(r))
			return
		}
		api.WriteJSON(w, http.StatusOK, map[string]any{
			"article": a,
			"content": a.Markdown,
		})
	}
}

// AdminSaveArticle handles PUT /admin/articles/{slug}.
func AdminSaveArticle(lib *content.Library) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := strings.TrimSpace(chi.URLParam(r, "slug"))
		if slug == "" {
			api.BadRequest(w, "MISSING_SLUG", "slug is required", requestID(r), nil)
			return
		}

		var req saveArticleRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<20)).Decode(&req); err != nil {
			api.BadRequest(w, "INVALID_JSON", "invalid JSON", requestID(r), nil)
			return
		}
		if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Content) == "" {
			api.BadRequest(w, "VALIDATION", "Titre et contenu sont requis", requestID(r), nil)
			return
		}

		a, err := lib.Save(slug, req.Meta, req.Content)
		if err != nil {
			api.Internal(w, requestID(r))
			return
		}
		api.WriteJSON(w, http.StatusOK, saveArticleResponse{
			Message: "Article enregistré avec succès",
			Article: a,
		})
	}
}
