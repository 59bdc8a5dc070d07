package store

import (
	"context"

	"github.com/AdamBeresnev/post-battles/internal/post"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type PostStore struct {
	db sqlx.ExtContext
}

func NewPostStore(db sqlx.ExtContext) *PostStore {
	return &PostStore{db: db}
}

func (s *PostStore) CreatePost(ctx context.Context, p *post.Post) error {
	_, err := sqlx.NamedExecContext(ctx, s.db, `INSERT INTO posts (id, title, category, author_id, created_at)
		VALUES (:id, :title, :category, :author_id, :created_at)`, p)
	return err
}

func (s *PostStore) GetPost(ctx context.Context, id uuid.UUID) (*post.Post, error) {
	var p post.Post
	err := sqlx.GetContext(ctx, s.db, &p, "SELECT * FROM posts WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListIDsByCategory returns the category's posts oldest first.
func (s *PostStore) ListIDsByCategory(ctx context.Context, category string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := sqlx.SelectContext(ctx, s.db, &ids, "SELECT id FROM posts WHERE category = ? ORDER BY created_at ASC, rowid ASC", category)
	return ids, err
}

// GetPosts loads the given posts keyed by id. Unknown ids are absent from the result.
func (s *PostStore) GetPosts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]post.Post, error) {
	out := make(map[uuid.UUID]post.Post, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query, args, err := sqlx.In("SELECT * FROM posts WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	var posts []post.Post
	if err := sqlx.SelectContext(ctx, s.db, &posts, s.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	for _, p := range posts {
		out[p.ID] = p
	}
	return out, nil
}

// AuthorsOf maps each known post to its author.
func (s *PostStore) AuthorsOf(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]uuid.UUID, error) {
	posts, err := s.GetPosts(ctx, ids)
	if err != nil {
		return nil, err
	}
	authors := make(map[uuid.UUID]uuid.UUID, len(posts))
	for id, p := range posts {
		authors[id] = p.AuthorID
	}
	return authors, nil
}

// CountExisting reports how many of the ids are stored posts.
func (s *PostStore) CountExisting(ctx context.Context, ids []uuid.UUID) (int, error) {
	posts, err := s.GetPosts(ctx, ids)
	if err != nil {
		return 0, err
	}
	return len(posts), nil
}
