package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for development and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	comments map[string]Comment // id -> comment
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{comments: make(map[string]Comment)}
}

func (s *MemoryStore) FindMany(_ context.Context, f Filter) ([]Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Comment
	for _, c := range s.comments {
		if matches(c, f) {
			out = append(out, c)
		}
	}

	sortComments(out, f.Order)

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.comments[id]
	if !ok {
		return Comment{}, ErrNotFound
	}
	return c, nil
}

func (s *MemoryStore) Create(_ context.Context, c Comment) (Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.New().String()
	} else if _, exists := s.comments[c.ID]; exists {
		return Comment{}, ErrDuplicateID
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	s.comments[c.ID] = c
	return c, nil
}

func (s *MemoryStore) Update(_ context.Context, id string, u Update) (Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[id]
	if !ok {
		return Comment{}, ErrNotFound
	}
	if u.Approved != nil {
		c.Approved = *u.Approved
	}
	if u.IsDeleted != nil {
		c.IsDeleted = *u.IsDeleted
	}
	if u.DeletedAt != nil {
		c.DeletedAt = u.DeletedAt
	}
	if u.DeletedBy != nil {
		c.DeletedBy = *u.DeletedBy
	}
	s.comments[id] = c
	return c, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.comments[id]; !ok {
		return ErrNotFound
	}
	delete(s.comments, id)
	return nil
}

func (s *MemoryStore) Count(_ context.Context, f Filter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, c := range s.comments {
		if matches(c, f) {
			n++
		}
	}
	return n, nil
}

func matches(c Comment, f Filter) bool {
	if f.PostSlug != "" && c.PostSlug != f.PostSlug {
		return false
	}
	switch f.Parent.Rule {
	case ParentRoots:
		if c.ParentID != nil {
			return false
		}
	case ParentOf:
		if c.ParentID == nil || *c.ParentID != f.Parent.ID {
			return false
		}
	}
	if f.Approved != nil && c.Approved != *f.Approved {
		return false
	}
	if f.Deleted != nil && c.IsDeleted != *f.Deleted {
		return false
	}
	return true
}

func sortComments(cs []Comment, o Order) {
	sort.Slice(cs, func(i, j int) bool {
		if !cs[i].CreatedAt.Equal(cs[j].CreatedAt) {
			if o == OrderCreatedAsc {
				return cs[i].CreatedAt.Before(cs[j].CreatedAt)
			}
			return cs[i].CreatedAt.After(cs[j].CreatedAt)
		}
		if o == OrderCreatedAsc {
			return cs[i].ID < cs[j].ID
		}
		return cs[i].ID > cs[j].ID
	})
}
