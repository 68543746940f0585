package comments

import (
	"context"
	"errors"
	"testing"

	"github.com/example/recipe-blog/internal/store"
)

func newService() (*Service, *store.MemoryStore) {
	s := store.NewMemoryStore()
	return NewService(s, nil), s
}

func TestSubmit_CreatesPending(t *testing.T) {
	svc, _ := newService()

	c, err := svc.Submit(context.Background(), SubmitInput{
		PostSlug: "tarte-fraises",
		Author:   "  Alice ",
		Email:    " A@X.com ",
		Content:  " Great recipe! ",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if c.Approved {
		t.Fatal("public submissions must start pending")
	}
	if c.Author != "Alice" || c.Content != "Great recipe!" {
		t.Fatalf("expected trimmed fields, got %q / %q", c.Author, c.Content)
	}
	if c.Email != "a@x.com" {
		t.Fatalf("expected normalized email, got %q", c.Email)
	}
}

func TestSubmit_MissingFields(t *testing.T) {
	svc, _ := newService()

	_, err := svc.Submit(context.Background(), SubmitInput{PostSlug: "p", Author: "Alice"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Fields) != 2 {
		t.Fatalf("expected 2 missing fields, got %v", verr.Fields)
	}
}

func TestSubmit_ParentMustExist(t *testing.T) {
	svc, _ := newService()

	missing := "nope"
	_, err := svc.Submit(context.Background(), SubmitInput{
		PostSlug: "p", Author: "a", Email: "e@x.com", Content: "c", ParentID: &missing,
	})
	if !errors.Is(err, ErrParentNotFound) {
		t.Fatalf("expected ErrParentNotFound, got %v", err)
	}
}

func TestSubmit_ParentMustBeApproved(t *testing.T) {
	svc, s := newService()
	ctx := context.Background()

	pending := mustCreate(t, s, store.Comment{PostSlug: "p", Author: "a", Email: "e", Content: "pending"})
	_, err := svc.Submit(ctx, SubmitInput{
		PostSlug: "p", Author: "b", Email: "e@x.com", Content: "reply", ParentID: &pending.ID,
	})
	if !errors.Is(err, ErrParentNotFound) {
		t.Fatalf("expected ErrParentNotFound for unapproved parent, got %v", err)
	}
}

func TestSubmit_SoftDeletedParentStillAccepts(t *testing.T) {
	svc, s := newService()
	ctx := context.Background()

	// Soft-delete does not revoke approval, so replying stays possible.
	parent := mustCreate(t, s, store.Comment{PostSlug: "p", Author: "a", Email: "e", Content: "c", Approved: true, IsDeleted: true})
	c, err := svc.Submit(ctx, SubmitInput{
		PostSlug: "p", Author: "b", Email: "e@x.com", Content: "reply", ParentID: &parent.ID,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if c.Approved {
		t.Fatal("the reply still goes through moderation")
	}
}

func TestApprove_Idempotent(t *testing.T) {
	svc, s := newService()
	ctx := context.Background()

	c := mustCreate(t, s, store.Comment{PostSlug: "p", Author: "a", Email: "e", Content: "c"})

	first, err := svc.Approve(ctx, c.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if !first.Approved {
		t.Fatal("expected approved=true")
	}

	second, err := svc.Approve(ctx, c.ID)
	if err != nil {
		t.Fatalf("second approve must be a no-op success: %v", err)
	}
	if second != first {
		t.Fatalf("expected no observable change, got %+v vs %+v", second, first)
	}
}

func TestApprove_NotFound(t *testing.T) {
	svc, _ := newService()
	if _, err := svc.Approve(context.Background(), "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReject_RemovesRowKeepsReplies(t *testing.T) {
	svc, s := newService()
	ctx := context.Background()

	root := mustCreate(t, s, store.Comment{PostSlug: "p", Author: "a", Email: "e", Content: "pending root"})
	reply := mustCreate(t, s, store.Comment{PostSlug: "p", Author: "b", Email: "e", Content: "pending reply", ParentID: &root.ID})

	if err := svc.Reject(ctx, root.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := s.FindByID(ctx, root.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected root removed, got %v", err)
	}
	// No cascade: the reply stays in storage with a dangling parentId.
	kept, err := s.FindByID(ctx, reply.ID)
	if err != nil {
		t.Fatalf("expected reply retained: %v", err)
	}
	if kept.ParentID == nil || *kept.ParentID != root.ID {
		t.Fatalf("expected dangling parentId, got %v", kept.ParentID)
	}
}

func TestSoftDelete(t *testing.T) {
	svc, s := newService()
	ctx := context.Background()

	c := mustCreate(t, s, store.Comment{PostSlug: "p", Author: "Alice", Email: "e", Content: "c", Approved: true})

	deleted, err := svc.SoftDelete(ctx, c.ID, "claire")
	if err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if !deleted.IsDeleted || deleted.DeletedAt == nil || deleted.DeletedBy != "claire" {
		t.Fatalf("soft-delete markers not set: %+v", deleted)
	}
	// Storage keeps the original content; masking happens at read time.
	if deleted.Content != "c" || deleted.Author != "Alice" {
		t.Fatalf("content must never be erased from storage: %+v", deleted)
	}
}

func TestSoftDelete_Preconditions(t *testing.T) {
	svc, s := newService()
	ctx := context.Background()

	if _, err := svc.SoftDelete(ctx, "missing", "admin"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	pending := mustCreate(t, s, store.Comment{PostSlug: "p", Author: "a", Email: "e", Content: "c"})
	if _, err := svc.SoftDelete(ctx, pending.ID, "admin"); !errors.Is(err, ErrNotDeletable) {
		t.Fatalf("expected ErrNotDeletable for pending comment, got %v", err)
	}

	approved := mustCreate(t, s, store.Comment{PostSlug: "p", Author: "a", Email: "e", Content: "c", Approved: true})
	if _, err := svc.SoftDelete(ctx, approved.ID, "admin"); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if _, err := svc.SoftDelete(ctx, approved.ID, "admin"); !errors.Is(err, ErrNotDeletable) {
		t.Fatalf("expected ErrNotDeletable on double delete, got %v", err)
	}
}

func TestSoftDelete_DefaultModerator(t *testing.T) {
	svc, s := newService()
	ctx := context.Background()

	c := mustCreate(t, s, store.Comment{PostSlug: "p", Author: "a", Email: "e", Content: "c", Approved: true})
	deleted, err := svc.SoftDelete(ctx, c.ID, "")
	if err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if deleted.DeletedBy != "admin" {
		t.Fatalf("expected default moderator 'admin', got %q", deleted.DeletedBy)
	}
}

func TestAdminReply(t *testing.T) {
	svc, s := newService()
	ctx := context.Background()

	parent := mustCreate(t, s, store.Comment{PostSlug: "tarte-fraises", Author: "Alice", Email: "e", Content: "c", Approved: true})

	reply, err := svc.AdminReply(ctx, parent.ID, "Merci !", "")
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if !reply.Approved {
		t.Fatal("admin replies skip the moderation queue")
	}
	if reply.Author != "Administrateur" {
		t.Fatalf("expected default author, got %q", reply.Author)
	}
	if reply.Email != "admin@blog.com" {
		t.Fatalf("expected placeholder email, got %q", reply.Email)
	}
	if reply.PostSlug != "tarte-fraises" {
		t.Fatalf("reply inherits the parent's article, got %q", reply.PostSlug)
	}
	if reply.ParentID == nil || *reply.ParentID != parent.ID {
		t.Fatalf("expected parent linkage, got %v", reply.ParentID)
	}
}

func TestAdminReply_TooShort(t *testing.T) {
	svc, s := newService()
	parent := mustCreate(t, s, store.Comment{PostSlug: "p", Author: "a", Email: "e", Content: "c", Approved: true})

	_, err := svc.AdminReply(context.Background(), parent.ID, "  ok  ", "")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError below 5 chars, got %v", err)
	}
}

func TestAdminReply_ParentNotFound(t *testing.T) {
	svc, _ := newService()
	if _, err := svc.AdminReply(context.Background(), "missing", "Merci beaucoup", ""); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAdminReply_PendingParentAllowed(t *testing.T) {
	svc, s := newService()
	// Admins may reply to a pending comment to request clarification.
	pending := mustCreate(t, s, store.Comment{PostSlug: "p", Author: "a", Email: "e", Content: "c"})

	reply, err := svc.AdminReply(context.Background(), pending.ID, "Pouvez-vous préciser ?", "")
	if err != nil {
		t.Fatalf("reply to pending parent: %v", err)
	}
	if !reply.Approved {
		t.Fatal("the admin reply itself is pre-approved")
	}
}
