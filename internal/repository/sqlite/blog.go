package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/xid"

	"github.com/jenilmangukiya/blog-backend/internal/apperror"
	"github.com/jenilmangukiya/blog-backend/internal/model"
	"github.com/jenilmangukiya/blog-backend/internal/repository"
)

var _ repository.BlogRepository = (*BlogDB)(nil)

const blogColumns = `id, title, description, thumbnail, owner_id, created_at, updated_at`

// sortColumns maps the public sort keys to SQL columns. Only keys in this
// map ever reach the ORDER BY clause.
var sortColumns = map[string]string{
	repository.SortByTitle:       "title",
	repository.SortByDescription: "description",
	repository.SortByCreatedAt:   "created_at",
}

// BlogDB is the blog view of the database.
type BlogDB struct {
	db *DB
}

// Blogs returns the blog repository backed by this database.
func (db *DB) Blogs() *BlogDB {
	return &BlogDB{db: db}
}

func scanBlog(row rowScanner) (*model.Blog, error) {
	var b model.Blog
	var owner sql.NullString
	err := row.Scan(
		&b.ID,
		&b.Title,
		&b.Description,
		&b.Thumbnail,
		&owner,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.Owner = owner.String
	return &b, nil
}

// Create inserts a new blog, assigning its ID and timestamps.
func (b *BlogDB) Create(ctx context.Context, blog *model.Blog) error {
	now := b.db.now()
	blog.ID = xid.New().String()
	blog.CreatedAt = now
	blog.UpdatedAt = now

	_, err := b.db.conn.ExecContext(ctx,
		`INSERT INTO blogs (`+blogColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		blog.ID,
		blog.Title,
		blog.Description,
		blog.Thumbnail,
		nullIfEmpty(blog.Owner),
		blog.CreatedAt,
		blog.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating blog: %w", err)
	}
	return nil
}

// GetByID retrieves a single blog by its ID.
func (b *BlogDB) GetByID(ctx context.Context, id string) (*model.Blog, error) {
	blog, err := scanBlog(b.db.conn.QueryRowContext(ctx,
		`SELECT `+blogColumns+` FROM blogs WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("blog", id)
		}
		return nil, fmt.Errorf("sqlite: getting blog %s: %w", id, err)
	}
	return blog, nil
}

// List returns one page of blogs matching opts and the total number of
// matching blogs.
//
// Query is a case-insensitive substring match on title or description
// (SQLite's LIKE folds ASCII case). LIKE wildcards in the query are escaped
// so "%" and "_" match literally.
func (b *BlogDB) List(ctx context.Context, opts repository.BlogListOptions) ([]model.Blog, int, error) {
	limit, offset := clampPage(opts.ListOptions)

	where := make([]string, 0, 2)
	args := make([]any, 0, 5)
	if opts.OwnerID != "" {
		where = append(where, "owner_id = ?")
		args = append(args, opts.OwnerID)
	}
	if q := strings.TrimSpace(opts.Query); q != "" {
		pattern := "%" + escapeLike(q) + "%"
		where = append(where, `(title LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}

	filter := ""
	if len(where) > 0 {
		filter = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := b.db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM blogs`+filter, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting blogs: %w", err)
	}

	order := "created_at DESC, id DESC"
	if col, ok := sortColumns[opts.SortBy]; ok {
		dir := "ASC"
		if opts.SortDesc {
			dir = "DESC"
		}
		order = col + " " + dir + ", id " + dir
	}

	rows, err := b.db.conn.QueryContext(ctx,
		`SELECT `+blogColumns+` FROM blogs`+filter+`
		 ORDER BY `+order+`
		 LIMIT ? OFFSET ?`,
		append(args, limit, offset)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing blogs: %w", err)
	}
	defer rows.Close()

	blogs := make([]model.Blog, 0, limit)
	for rows.Next() {
		blog, err := scanBlog(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("sqlite: scanning blog row: %w", err)
		}
		blogs = append(blogs, *blog)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlite: iterating blogs: %w", err)
	}

	return blogs, total, nil
}

// Update applies the non-nil fields of patch and returns the updated blog.
func (b *BlogDB) Update(ctx context.Context, id string, patch model.BlogPatch) (*model.Blog, error) {
	sets := make([]string, 0, 4)
	args := make([]any, 0, 5)
	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.Thumbnail != nil {
		sets = append(sets, "thumbnail = ?")
		args = append(args, *patch.Thumbnail)
	}
	if len(sets) == 0 {
		return b.GetByID(ctx, id)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, b.db.now(), id)

	blog, err := scanBlog(b.db.conn.QueryRowContext(ctx,
		`UPDATE blogs SET `+strings.Join(sets, ", ")+`
		 WHERE id = ?
		 RETURNING `+blogColumns,
		args...,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("blog", id)
		}
		return nil, fmt.Errorf("sqlite: updating blog %s: %w", id, err)
	}
	return blog, nil
}

// Delete removes a blog by its ID.
func (b *BlogDB) Delete(ctx context.Context, id string) error {
	result, err := b.db.conn.ExecContext(ctx, `DELETE FROM blogs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting blog %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("blog", id)
	}
	return nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
