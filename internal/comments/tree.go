package comments

import (
	"context"
	"sort"

	"github.com/example/recipe-blog/internal/store"
)

// PageSize is the fixed number of top-level comments per public page.
const PageSize = 20

// Builder assembles comment forests from the flat store.
// Reads are request-scoped; the builder itself holds no mutable state.
type Builder struct {
	store store.Store
}

func NewBuilder(s store.Store) *Builder {
	return &Builder{store: s}
}

// Thread is one page of a public comment forest.
type Thread struct {
	Comments []*PublicNode
	Page     int
	Total    int
	HasMore  bool
}

// PublicThread returns approved top-level comments for an article, newest
// first, each with its full reply subtree (replies oldest first at every
// depth). Soft-deleted comments are included masked so their replies stay
// reachable; pending comments and their subtrees are invisible.
func (b *Builder) PublicThread(ctx context.Context, slug string, page int) (Thread, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * PageSize

	rootFilter := store.Filter{
		PostSlug: slug,
		Parent:   store.Roots(),
		Approved: store.Bool(true),
		Order:    store.OrderCreatedDesc,
	}

	paged := rootFilter
	paged.Offset = offset
	paged.Limit = PageSize
	roots, err := b.store.FindMany(ctx, paged)
	if err != nil {
		return Thread{}, err
	}

	nodes := make([]*PublicNode, 0, len(roots))
	for _, c := range roots {
		n := publicView(c)
		n.Replies, err = b.publicReplies(ctx, slug, c.ID)
		if err != nil {
			return Thread{}, err
		}
		nodes = append(nodes, n)
	}

	total, err := b.store.Count(ctx, rootFilter)
	if err != nil {
		return Thread{}, err
	}

	return Thread{
		Comments: nodes,
		Page:     page,
		Total:    total,
		HasMore:  offset+PageSize < total,
	}, nil
}

// publicReplies returns nil (not an empty slice) when a comment has no
// matching children, so the replies key is omitted from the JSON output.
func (b *Builder) publicReplies(ctx context.Context, slug, parentID string) ([]*PublicNode, error) {
	kids, err := b.store.FindMany(ctx, store.Filter{
		PostSlug: slug,
		Parent:   store.ChildrenOf(parentID),
		Approved: store.Bool(true),
		Order:    store.OrderCreatedAsc,
	})
	if err != nil {
		return nil, err
	}
	if len(kids) == 0 {
		return nil, nil
	}

	nodes := make([]*PublicNode, 0, len(kids))
	for _, c := range kids {
		n := publicView(c)
		n.Replies, err = b.publicReplies(ctx, slug, c.ID)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// AdminApproved returns the approved forest across all articles, roots
// newest first, replies oldest first. With includeDeleted=false,
// soft-deleted comments are omitted entirely, not masked.
func (b *Builder) AdminApproved(ctx context.Context, includeDeleted bool) ([]*AdminNode, error) {
	f := store.Filter{
		Parent:   store.Roots(),
		Approved: store.Bool(true),
		Order:    store.OrderCreatedDesc,
	}
	if !includeDeleted {
		f.Deleted = store.Bool(false)
	}
	roots, err := b.store.FindMany(ctx, f)
	if err != nil {
		return nil, err
	}

	nodes := make([]*AdminNode, 0, len(roots))
	for _, c := range roots {
		n := adminView(c)
		n.Replies, err = b.adminReplies(ctx, c.ID, includeDeleted)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func (b *Builder) adminReplies(ctx context.Context, parentID string, includeDeleted bool) ([]*AdminNode, error) {
	f := store.Filter{
		Parent:   store.ChildrenOf(parentID),
		Approved: store.Bool(true),
		Order:    store.OrderCreatedAsc,
	}
	if !includeDeleted {
		f.Deleted = store.Bool(false)
	}
	kids, err := b.store.FindMany(ctx, f)
	if err != nil {
		return nil, err
	}
	if len(kids) == 0 {
		return nil, nil
	}

	nodes := make([]*AdminNode, 0, len(kids))
	for _, c := range kids {
		n := adminView(c)
		n.Replies, err = b.adminReplies(ctx, c.ID, includeDeleted)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// AdminPending returns the moderation queue. A pending reply cannot be
// judged without context, so the parents it references are fetched and
// surfaced too, whatever their own approval state. A surfaced parent whose
// own parent was not fetched is promoted no further: entries whose parent
// id is outside the merged map are dropped, an accepted one-level
// truncation of this mode.
func (b *Builder) AdminPending(ctx context.Context, includeDeleted bool) ([]*AdminNode, error) {
	f := store.Filter{
		Approved: store.Bool(false),
		Order:    store.OrderCreatedDesc,
	}
	if !includeDeleted {
		f.Deleted = store.Bool(false)
	}
	pending, err := b.store.FindMany(ctx, f)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*AdminNode, len(pending))
	for _, c := range pending {
		byID[c.ID] = adminView(c)
	}

	// Distinct parents referenced by pending replies, not already fetched.
	missing := make(map[string]struct{})
	for _, c := range pending {
		if c.ParentID == nil {
			continue
		}
		if _, ok := byID[*c.ParentID]; !ok {
			missing[*c.ParentID] = struct{}{}
		}
	}
	for id := range missing {
		parent, err := b.store.FindByID(ctx, id)
		if err != nil {
			if err == store.ErrNotFound {
				// Dangling parentId after a reject; the orphan stays hidden.
				continue
			}
			return nil, err
		}
		byID[parent.ID] = adminView(parent)
	}

	var roots []*AdminNode
	for _, n := range byID {
		if n.ParentID == nil {
			roots = append(roots, n)
			continue
		}
		if p, ok := byID[*n.ParentID]; ok {
			p.Replies = append(p.Replies, n)
		}
	}

	sort.Slice(roots, func(i, j int) bool {
		if !roots[i].CreatedAt.Equal(roots[j].CreatedAt) {
			return roots[i].CreatedAt.After(roots[j].CreatedAt)
		}
		return roots[i].ID > roots[j].ID
	})
	for _, n := range byID {
		sortRepliesAsc(n.Replies)
	}
	if roots == nil {
		roots = []*AdminNode{}
	}
	return roots, nil
}

func sortRepliesAsc(replies []*AdminNode) {
	sort.Slice(replies, func(i, j int) bool {
		if !replies[i].CreatedAt.Equal(replies[j].CreatedAt) {
			return replies[i].CreatedAt.Before(replies[j].CreatedAt)
		}
		return replies[i].ID < replies[j].ID
	})
}
