package store

import (
	"context"
	"errors"
	"time"
)

// Comment is the sole persistent entity of the commenting system.
// ParentID is nil for a top-level comment attached directly to an article.
type Comment struct {
	ID        string     `json:"id"`
	PostSlug  string     `json:"postSlug"`
	Author    string     `json:"author"`
	Email     string     `json:"email"`
	Content   string     `json:"content"`
	Approved  bool       `json:"approved"`
	ParentID  *string    `json:"parentId"`
	IsDeleted bool       `json:"isDeleted"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
	DeletedBy string     `json:"deletedBy,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Order selects the createdAt sort direction of FindMany results.
type Order int

const (
	OrderCreatedDesc Order = iota
	OrderCreatedAsc
)

// ParentRule is the discriminant of a ParentFilter.
type ParentRule int

const (
	// ParentAny matches regardless of parent linkage.
	ParentAny ParentRule = iota
	// ParentRoots matches only top-level comments (parentId IS NULL).
	ParentRoots
	// ParentOf matches direct children of a given comment id.
	ParentOf
)

// ParentFilter selects comments by their parent linkage.
type ParentFilter struct {
	Rule ParentRule
	ID   string
}

func Roots() ParentFilter               { return ParentFilter{Rule: ParentRoots} }
func ChildrenOf(id string) ParentFilter { return ParentFilter{Rule: ParentOf, ID: id} }

// Filter narrows FindMany/Count. Zero-value fields mean "any".
// Conjunction of all set fields.
type Filter struct {
	PostSlug string
	Parent   ParentFilter
	Approved *bool
	Deleted  *bool
	Order    Order
	Offset   int
	Limit    int // 0 means no limit
}

// Update carries the mutable moderation fields. Nil fields are untouched.
type Update struct {
	Approved  *bool
	IsDeleted *bool
	DeletedAt *time.Time
	DeletedBy *string
}

// Bool is a shorthand for filter/update literals.
func Bool(b bool) *bool { return &b }

var (
	ErrNotFound    = errors.New("comment not found")
	ErrDuplicateID = errors.New("duplicate comment id")
)

// Store defines the contract for comment persistence.
type Store interface {
	FindMany(ctx context.Context, f Filter) ([]Comment, error)
	FindByID(ctx context.Context, id string) (Comment, error)
	Create(ctx context.Context, c Comment) (Comment, error)
	Update(ctx context.Context, id string, u Update) (Comment, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context, f Filter) (int, error)
}
