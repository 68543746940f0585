// Package comments implements the threading and moderation rules of the
// comment system: tree assembly from the flat store, read projection for
// public and admin consumers, and the moderation state transitions.
package comments

import (
	"fmt"
	"time"

	"github.com/example/recipe-blog/internal/store"
)

// PublicNode is the comment shape exposed to anonymous readers.
// Email and moderation metadata never appear here.
type PublicNode struct {
	ID        string        `json:"id"`
	Author    string        `json:"author"`
	Content   string        `json:"content"`
	CreatedAt time.Time     `json:"createdAt"`
	IsDeleted bool          `json:"isDeleted,omitempty"`
	Replies   []*PublicNode `json:"replies,omitempty"`
}

// AdminNode carries every stored field, unmasked.
type AdminNode struct {
	ID        string       `json:"id"`
	PostSlug  string       `json:"postSlug"`
	Author    string       `json:"author"`
	Email     string       `json:"email"`
	Content   string       `json:"content"`
	Approved  bool         `json:"approved"`
	CreatedAt time.Time    `json:"createdAt"`
	ParentID  *string      `json:"parentId"`
	IsDeleted bool         `json:"isDeleted"`
	DeletedAt *time.Time   `json:"deletedAt,omitempty"`
	DeletedBy string       `json:"deletedBy,omitempty"`
	Replies   []*AdminNode `json:"replies,omitempty"`
}

// publicView projects a stored comment for public reading. A soft-deleted
// comment keeps its place in the tree (replies stay reachable) but its
// author and content are masked.
func publicView(c store.Comment) *PublicNode {
	n := &PublicNode{
		ID:        c.ID,
		Author:    c.Author,
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
	}
	if c.IsDeleted {
		n.Author = "@" + c.Author
		n.Content = fmt.Sprintf("Le commentaire de @%s est indisponible", c.Author)
		n.IsDeleted = true
	}
	return n
}

func adminView(c store.Comment) *AdminNode {
	return &AdminNode{
		ID:        c.ID,
		PostSlug:  c.PostSlug,
		Author:    c.Author,
		Email:     c.Email,
		Content:   c.Content,
		Approved:  c.Approved,
		CreatedAt: c.CreatedAt,
		ParentID:  c.ParentID,
		IsDeleted: c.IsDeleted,
		DeletedAt: c.DeletedAt,
		DeletedBy: c.DeletedBy,
	}
}
