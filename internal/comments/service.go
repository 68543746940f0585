package comments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/recipe-blog/internal/events"
	"github.com/example/recipe-blog/internal/store"
)

const (
	adminDefaultAuthor = "Administrateur"
	adminEmail         = "admin@blog.com"
	minReplyLength     = 5
	defaultModerator   = "admin"
)

var (
	// ErrParentNotFound covers both a missing parent and, for public
	// submissions, a parent that exists but is not yet approved.
	ErrParentNotFound = errors.New("parent comment not found or not approved")
	// ErrNotDeletable is returned when soft-deleting a comment that is
	// not approved or is already deleted.
	ErrNotDeletable = errors.New("comment must be approved and not already deleted")
)

// ValidationError reports missing or malformed submission fields.
type ValidationError struct {
	Message string
	Fields  []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Fields, ", "))
}

// Service applies the moderation state machine. Every mutation is a
// single-row operation; no invariant spans rows, so no transactions.
type Service struct {
	store  store.Store
	events *events.Publisher
}

func NewService(s store.Store, pub *events.Publisher) *Service {
	return &Service{store: s, events: pub}
}

// SubmitInput is a public comment submission.
type SubmitInput struct {
	PostSlug string
	Author   string
	Email    string
	Content  string
	ParentID *string
}

// Submit creates a pending comment. When ParentID is set the referenced
// comment must exist and be approved: readers may not reply to a comment
// that has not cleared moderation.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (store.Comment, error) {
	var missing []string
	if strings.TrimSpace(in.Author) == "" {
		missing = append(missing, "author")
	}
	if strings.TrimSpace(in.Email) == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(in.Content) == "" {
		missing = append(missing, "content")
	}
	if len(missing) > 0 {
		return store.Comment{}, &ValidationError{
			Message: "Les champs auteur, email et contenu sont requis",
			Fields:  missing,
		}
	}

	if in.ParentID != nil {
		parent, err := s.store.FindByID(ctx, *in.ParentID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return store.Comment{}, ErrParentNotFound
			}
			return store.Comment{}, err
		}
		if !parent.Approved {
			return store.Comment{}, ErrParentNotFound
		}
	}

	created, err := s.store.Create(ctx, store.Comment{
		PostSlug: in.PostSlug,
		Author:   strings.TrimSpace(in.Author),
		Email:    strings.ToLower(strings.TrimSpace(in.Email)),
		Content:  strings.TrimSpace(in.Content),
		Approved: false,
		ParentID: in.ParentID,
	})
	if err != nil {
		return store.Comment{}, err
	}
	s.events.Publish(events.SubjectCommentSubmitted, created.ID, created.PostSlug, nil)
	return created, nil
}

// Approve marks a comment visible. Approving an already-approved comment
// is a no-op success.
func (s *Service) Approve(ctx context.Context, id string) (store.Comment, error) {
	c, err := s.store.Update(ctx, id, store.Update{Approved: store.Bool(true)})
	if err != nil {
		return store.Comment{}, err
	}
	s.events.Publish(events.SubjectCommentApproved, c.ID, c.PostSlug, nil)
	return c, nil
}

// Reject removes a pending comment row entirely. Replies are not cascaded:
// they keep their dangling parentId and never attach to a tree again.
func (s *Service) Reject(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.events.Publish(events.SubjectCommentRejected, id, "", nil)
	return nil
}

// SoftDelete masks an approved comment while keeping its row, so replies
// stay reachable. The content itself is never erased from storage; only
// the public read policy masks it.
func (s *Service) SoftDelete(ctx context.Context, id, deletedBy string) (store.Comment, error) {
	c, err := s.store.FindByID(ctx, id)
	if err != nil {
		return store.Comment{}, err
	}
	if !c.Approved || c.IsDeleted {
		return store.Comment{}, ErrNotDeletable
	}

	if strings.TrimSpace(deletedBy) == "" {
		deletedBy = defaultModerator
	}
	now := time.Now().UTC()
	updated, err := s.store.Update(ctx, id, store.Update{
		IsDeleted: store.Bool(true),
		DeletedAt: &now,
		DeletedBy: &deletedBy,
	})
	if err != nil {
		return store.Comment{}, err
	}
	s.events.Publish(events.SubjectCommentDeleted, updated.ID, updated.PostSlug, map[string]any{"deleted_by": deletedBy})
	return updated, nil
}

// AdminReply creates a pre-approved reply under any existing comment,
// approved or not: an admin may ask for clarification on a pending
// comment before deciding on it.
func (s *Service) AdminReply(ctx context.Context, parentID, content, author string) (store.Comment, error) {
	if len([]rune(strings.TrimSpace(content))) < minReplyLength {
		return store.Comment{}, &ValidationError{
			Message: "Le contenu de la réponse est requis (min 5 caractères)",
		}
	}

	parent, err := s.store.FindByID(ctx, parentID)
	if err != nil {
		return store.Comment{}, err
	}

	author = strings.TrimSpace(author)
	if author == "" {
		author = adminDefaultAuthor
	}

	reply, err := s.store.Create(ctx, store.Comment{
		PostSlug: parent.PostSlug,
		Author:   author,
		Email:    adminEmail,
		Content:  strings.TrimSpace(content),
		Approved: true,
		ParentID: &parent.ID,
	})
	if err != nil {
		return store.Comment{}, err
	}
	s.events.Publish(events.SubjectCommentAdminReplied, reply.ID, reply.PostSlug, map[string]any{"parent_id": parentID})
	return reply, nil
}
