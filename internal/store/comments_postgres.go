package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const commentColumns = "id, post_slug, author, email, content, approved, parent_id, is_deleted, deleted_at, deleted_by, created_at"

// PostgresStore persists comments in Postgres. Schema in migrations/.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) FindMany(ctx context.Context, f Filter) ([]Comment, error) {
	where, args := buildWhere(f)

	dir := "DESC"
	if f.Order == OrderCreatedAsc {
		dir = "ASC"
	}
	q := fmt.Sprintf("SELECT %s FROM comments%s ORDER BY created_at %s, id %s",
		commentColumns, where, dir, dir)

	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (Comment, error) {
	q := fmt.Sprintf("SELECT %s FROM comments WHERE id = $1", commentColumns)
	c, err := scanComment(s.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Comment{}, ErrNotFound
	}
	return c, err
}

func (s *PostgresStore) Create(ctx context.Context, c Comment) (Comment, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	q := fmt.Sprintf(`INSERT INTO comments (%s)
	           VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	           RETURNING %s`, commentColumns, commentColumns)
	row := s.pool.QueryRow(ctx, q,
		c.ID, c.PostSlug, c.Author, c.Email, c.Content, c.Approved,
		c.ParentID, c.IsDeleted, c.DeletedAt, nullIfEmpty(c.DeletedBy), c.CreatedAt)

	out, err := scanComment(row)
	if isUniqueViolation(err) {
		return Comment{}, ErrDuplicateID
	}
	return out, err
}

func (s *PostgresStore) Update(ctx context.Context, id string, u Update) (Comment, error) {
	sets := make([]string, 0, 4)
	args := make([]any, 0, 5)

	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if u.Approved != nil {
		add("approved", *u.Approved)
	}
	if u.IsDeleted != nil {
		add("is_deleted", *u.IsDeleted)
	}
	if u.DeletedAt != nil {
		add("deleted_at", *u.DeletedAt)
	}
	if u.DeletedBy != nil {
		add("deleted_by", *u.DeletedBy)
	}
	if len(sets) == 0 {
		return s.FindByID(ctx, id)
	}

	args = append(args, id)
	q := fmt.Sprintf("UPDATE comments SET %s WHERE id = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args), commentColumns)

	c, err := scanComment(s.pool.QueryRow(ctx, q, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Comment{}, ErrNotFound
	}
	return c, err
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM comments WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Count(ctx context.Context, f Filter) (int, error) {
	where, args := buildWhere(f)
	var n int
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM comments"+where, args...).Scan(&n)
	return n, err
}

func buildWhere(f Filter) (string, []any) {
	var conds []string
	var args []any

	if f.PostSlug != "" {
		args = append(args, f.PostSlug)
		conds = append(conds, fmt.Sprintf("post_slug = $%d", len(args)))
	}
	switch f.Parent.Rule {
	case ParentRoots:
		conds = append(conds, "parent_id IS NULL")
	case ParentOf:
		args = append(args, f.Parent.ID)
		conds = append(conds, fmt.Sprintf("parent_id = $%d", len(args)))
	}
	if f.Approved != nil {
		args = append(args, *f.Approved)
		conds = append(conds, fmt.Sprintf("approved = $%d", len(args)))
	}
	if f.Deleted != nil {
		args = append(args, *f.Deleted)
		conds = append(conds, fmt.Sprintf("is_deleted = $%d", len(args)))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanComment(row pgx.Row) (Comment, error) {
	var c Comment
	var deletedBy *string
	err := row.Scan(&c.ID, &c.PostSlug, &c.Author, &c.Email, &c.Content, &c.Approved,
		&c.ParentID, &c.IsDeleted, &c.DeletedAt, &deletedBy, &c.CreatedAt)
	if deletedBy != nil {
		c.DeletedBy = *deletedBy
	}
	return c, err
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
