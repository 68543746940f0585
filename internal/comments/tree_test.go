package comments

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/example/recipe-blog/internal/store"
)

func at(min int) time.Time {
	return time.Date(2025, 6, 1, 12, min, 0, 0, time.UTC)
}

func mustCreate(t *testing.T, s store.Store, c store.Comment) store.Comment {
	t.Helper()
	out, err := s.Create(context.Background(), c)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return out
}

func TestPublicThread_OrderingLaw(t *testing.T) {
	s := store.NewMemoryStore()
	b := NewBuilder(s)
	ctx := context.Background()

	root := mustCreate(t, s, store.Comment{PostSlug: "p", Author: "a", Email: "e", Content: "old root", Approved: true, CreatedAt: at(0)})
	mustCreate(t, s, store.Comment{PostSlug: "p", Author: "b", Email: "e", Content: "new root", Approved: true, CreatedAt: at(10)})
	mustCreate(t, s, store.Comment{PostSlug: "p", Author: "c", Email: "e", Content: "late reply", Approved: true, ParentID: &root.ID, CreatedAt: at(5)})
	mustCreate(t, s, store.Comment{PostSlug: "p", Author: "d", Email: "e", Content: "early reply", Approved: true, ParentID: &root.ID, CreatedAt: at(2)})

	th, err := b.PublicThread(ctx, "p", 1)
	if err != nil {
		t.Fatalf("thread: %v", err)
	}
	if len(th.Comments) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(th.Comments))
	}
	// Roots newest first
	for i := 1; i < len(th.Comments); i++ {
		if th.Comments[i].CreatedAt.After(th.Comments[i-1].CreatedAt) {
			t.Fatal("root createdAt must be non-increasing")
		}
	}
	// Replies oldest first
	replies := th.Comments[1].Replies
	if len(replies) != 2 {
		t.Fatalf("expected 2 replies, got %d", len(replies))
	}
	if replies[0].Content != "early reply" || replies[1].Content != "late reply" {
		t.Fatalf("replies must read chronologically: %q then %q", replies[0].Content, replies[1].Content)
	}
}

func TestPublicThread_RepliesOmittedWhenNone(t *testing.T) {
	s := store.NewMemoryStore()
	b := NewBuilder(s)

	mustCreate(t, s, store.Comment{PostSlug: "p", Author: "a", Email: "e", Content: "leaf", Approved: true})

	th, err := b.PublicThread(context.Background(), "p", 1)
	if err != nil {
		t.Fatalf("thread: %v", err)
	}
	if th.Comments[0].Replies != nil {
		t.Fatal("expected nil replies so the JSON key is omitted")
	}
}

func TestPublicThread_PendingInvisible(t *testing.T) {
	s := store.NewMemoryStore()
	b := NewBuilder(s)

	root := mustCreate(t, s, store.Comment{PostSlug: "p", Author: "a", Email: "e", Content: "root", Approved: true})
	pending := mustCreate(t, s, store.Comment{PostSlug: "p", Author: "b", Email: "e", Content: "pending reply", ParentID: &root.ID})
	// Approved grandchild under a pending parent: unreachable publicly.
	mustCreate(t, s, store.Comment{PostSlug: "p", Author: "c", Email: "e", Content: "orphaned by gating", Approved: true, ParentID: &pending.ID})
	mustCreate(t, s, store.Comment{PostSlug: "p", Author: "d", Email: "e", Content: "pending root"})

	th, err := b.PublicThread(context.Background(), "p", 1)
	if err != nil {
		t.Fatalf("thread: %v", err)
	}
	if len(th.Comments) != 1 {
		t.Fatalf("expected only the approved root, got %d", len(th.Comments))
	}
	if th.Comments[0].Replies != nil {
		t.Fatal("pending reply and its subtree must not appear")
	}
	if th.Total != 1 {
		t.Fatalf("total counts approved roots only, got %d", th.Total)
	}
}

func TestPublicThread_MaskingInvariant(t *testing.T) {
	s := store.NewMemoryStore()
	b := NewBuilder(s)
	ctx := context.Background()

	now := time.Now().UTC()
	root := mustCreate(t, s, store.Comment{
		PostSlug: "tarte-fraises", Author: "Alice", Email: "a@x.com",
		Content: "Great recipe!", Approved: true,
		IsDeleted: true, DeletedAt: &now, DeletedBy: "admin",
	})
	mustCreate(t, s, store.Comment{PostSlug: "tarte-fraises", Author: "Admin", Email: "e", Content: "Merci !", Approved: true, ParentID: &root.ID})

	th, err := b.PublicThread(ctx, "tarte-fraises", 1)
	if err != nil {
		t.Fatalf("thread: %v", err)
	}
	n := th.Comments[0]
	if n.Author != "@Alice" {
		t.Fatalf("expected masked author '@Alice', got %q", n.Author)
	}
	if n.Content != "Le commentaire de @Alice est indisponible" {
		t.Fatalf("expected templated notice, got %q", n.Content)
	}
	if !n.IsDeleted {
		t.Fatal("expected isDeleted flag in output")
	}
	if strings.Contains(n.Content, "Great recipe!") {
		t.Fatal("original content must never leak")
	}
	// Reply survivability: the reply stays reachable under the masked node.
	if len(n.Replies) != 1 || n.Replies[0].Content != "Merci !" {
		t.Fatalf("expected surviving reply, got %+v", n.Replies)
	}
}

func TestPublicThread_Pagination(t *testing.T) {
	s := store.NewMemoryStore()
	b := NewBuilder(s)
	ctx := context.Background()

	for i := 0; i < PageSize+5; i++ {
		mustCreate(t, s, store.Comment{PostSlug: "p", Author: "a", Email: "e", Content: "c", Approved: true, CreatedAt: at(i)})
	}

	page1, err := b.PublicThread(ctx, "p", 1)
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	if len(page1.Comments) != PageSize {
		t.Fatalf("expected %d roots on page 1, got %d", PageSize, len(page1.Comments))
	}
	if !page1.HasMore {
		t.Fatal("expected hasMore on page 1")
	}
	if page1.Total != PageSize+5 {
		t.Fatalf("expected total %d, got %d", PageSize+5, page1.Total)
	}

	page2, err := b.PublicThread(ctx, "p", 2)
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}
	if len(page2.Comments) != 5 {
		t.Fatalf("expected 5 roots on page 2, got %d", len(page2.Comments))
	}
	if page2.HasMore {
		t.Fatal("did not expect hasMore on the last page")
	}
}

func TestPublicThread_DeepNesting(t *testing.T) {
	s := store.NewMemoryStore()
	b := NewBuilder(s)

	parent := mustCreate(t, s, store.Comment{PostSlug: "p", Author: "a", Email: "e", Content: "depth 0", Approved: true, CreatedAt: at(0)})
	for i := 1; i <= 6; i++ {
		parent = mustCreate(t, s, store.Comment{PostSlug: "p", Author: "a", Email: "e", Content: "deeper", Approved: true, ParentID: &parent.ID, CreatedAt: at(i)})
	}

	th, err := b.PublicThread(context.Background(), "p", 1)
	if err != nil {
		t.Fatalf("thread: %v", err)
	}
	depth := 0
	for n := th.Comments[0]; len(n.Replies) > 0; n = n.Replies[0] {
		depth++
	}
	if depth != 6 {
		t.Fatalf("expected depth 6, got %d", depth)
	}
}

func TestAdminPending_SurfacesApprovedParent(t *testing.T) {
	s := store.NewMemoryStore()
	b := NewBuilder(s)
	ctx := context.Background()

	approvedRoot := mustCreate(t, s, store.Comment{PostSlug: "p", Author: "a", Email: "e", Content: "approved root", Approved: true, CreatedAt: at(0)})
	pendingReply := mustCreate(t, s, store.Comment{PostSlug: "p", Author: "b", Email: "e", Content: "pending reply", ParentID: &approvedRoot.ID, CreatedAt: at(1)})
	pendingRoot := mustCreate(t, s, store.Comment{PostSlug: "p", Author: "c", Email: "e", Content: "pending root", CreatedAt: at(2)})

	nodes, err := b.AdminPending(ctx, false)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("expected 2 roots (pending root + surfaced parent), got %d", len(nodes))
	}
	// Newest root first
	if nodes[0].ID != pendingRoot.ID {
		t.Fatalf("expected pending root first, got %s", nodes[0].ID)
	}
	surfaced := nodes[1]
	if surfaced.ID != approvedRoot.ID || !surfaced.Approved {
		t.Fatalf("expected the approved parent surfaced for context, got %+v", surfaced)
	}
	if len(surfaced.Replies) != 1 || surfaced.Replies[0].ID != pendingReply.ID {
		t.Fatalf("expected pending reply under its parent, got %+v", surfaced.Replies)
	}
}

func TestAdminPending_GrandparentTruncation(t *testing.T) {
	s := store.NewMemoryStore()
	b := NewBuilder(s)
	ctx := context.Background()

	grandparent := mustCreate(t, s, store.Comment{PostSlug: "p", Author: "a", Email: "e", Content: "approved grandparent", Approved: true, CreatedAt: at(0)})
	parent := mustCreate(t, s, store.Comment{PostSlug: "p", Author: "b", Email: "e", Content: "approved parent", Approved: true, ParentID: &grandparent.ID, CreatedAt: at(1)})
	mustCreate(t, s, store.Comment{PostSlug: "p", Author: "c", Email: "e", Content: "pending grandchild", ParentID: &parent.ID, CreatedAt: at(2)})

	nodes, err := b.AdminPending(ctx, false)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	// The surfaced parent's own parent is approved-but-not-fetched, so the
	// chain is truncated: nothing reaches root level.
	if len(nodes) != 0 {
		t.Fatalf("expected truncated forest, got %d roots", len(nodes))
	}
}

func TestAdminPending_OrphanDropped(t *testing.T) {
	s := store.NewMemoryStore()
	b := NewBuilder(s)
	ctx := context.Background()

	gone := "no-longer-exists"
	mustCreate(t, s, store.Comment{PostSlug: "p", Author: "a", Email: "e", Content: "orphan reply", ParentID: &gone})

	nodes, err := b.AdminPending(ctx, false)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(nodes) != 0 {
		t.Fatalf("expected orphan to stay hidden, got %d roots", len(nodes))
	}
}

func TestAdminPending_IncludeDeletedToggle(t *testing.T) {
	s := store.NewMemoryStore()
	b := NewBuilder(s)
	ctx := context.Background()

	now := time.Now().UTC()
	mustCreate(t, s, store.Comment{PostSlug: "p", Author: "a", Email: "e", Content: "deleted pending", IsDeleted: true, DeletedAt: &now, CreatedAt: at(0)})
	mustCreate(t, s, store.Comment{PostSlug: "p", Author: "b", Email: "e", Content: "live pending", CreatedAt: at(1)})

	visible, err := b.AdminPending(ctx, false)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(visible) != 1 {
		t.Fatalf("expected deleted row omitted entirely, got %d", len(visible))
	}

	all, err := b.AdminPending(ctx, true)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 with includeDeleted, got %d", len(all))
	}
}

func TestAdminApproved(t *testing.T) {
	s := store.NewMemoryStore()
	b := NewBuilder(s)
	ctx := context.Background()

	now := time.Now().UTC()
	root := mustCreate(t, s, store.Comment{PostSlug: "p", Author: "a", Email: "a@x.com", Content: "root", Approved: true, CreatedAt: at(0)})
	mustCreate(t, s, store.Comment{PostSlug: "p", Author: "b", Email: "e", Content: "reply", Approved: true, ParentID: &root.ID, CreatedAt: at(1)})
	mustCreate(t, s, store.Comment{PostSlug: "p", Author: "c", Email: "e", Content: "deleted root", Approved: true, IsDeleted: true, DeletedAt: &now, CreatedAt: at(2)})
	mustCreate(t, s, store.Comment{PostSlug: "p", Author: "d", Email: "e", Content: "still pending", CreatedAt: at(3)})

	nodes, err := b.AdminApproved(ctx, false)
	if err != nil {
		t.Fatalf("approved: %v", err)
	}
	if len(nodes) != 1 {
		t.Fatalf("expected 1 root (deleted omitted, pending excluded), got %d", len(nodes))
	}
	// Admin read is full-field and unmasked.
	if nodes[0].Email != "a@x.com" || nodes[0].Content != "root" {
		t.Fatalf("admin view must carry full fields: %+v", nodes[0])
	}
	if len(nodes[0].Replies) != 1 {
		t.Fatalf("expected 1 reply, got %d", len(nodes[0].Replies))
	}

	withDeleted, err := b.AdminApproved(ctx, true)
	if err != nil {
		t.Fatalf("approved: %v", err)
	}
	if len(withDeleted) != 2 {
		t.Fatalf("expected 2 roots with includeDeleted, got %d", len(withDeleted))
	}
}
