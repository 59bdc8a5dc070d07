package service

import (
	"context"
	"strings"

	"github.com/AdamBeresnev/post-battles/internal/post"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type CreatePostInput struct {
	Title    string `json:"title"`
	Category string `json:"category"`
}

// PostService creates content items. Every new post is folded into its category's tournament.
type PostService struct {
	base
	engine *TournamentService
}

func NewPostService(db *sqlx.DB, engine *TournamentService, opts ...Option) *PostService {
	return &PostService{base: newBase(db, opts), engine: engine}
}

func (s *PostService) Create(ctx context.Context, authorID uuid.UUID, in CreatePostInput) (*post.Post, error) {
	title := strings.TrimSpace(in.Title)
	category := strings.TrimSpace(in.Category)
	if title == "" {
		return nil, validationError("title is required")
	}
	if category == "" {
		return nil, validationError("category is required")
	}

	p := &post.Post{
		ID:        uuid.New(),
		Title:     title,
		Category:  category,
		AuthorID:  authorID,
		CreatedAt: s.now(),
	}
	if err := s.engine.CreateContentItem(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PostService) Get(ctx context.Context, id uuid.UUID) (*post.Post, error) {
	p, err := s.stores.Posts.GetPost(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrPostNotFound)
	}
	return p, nil
}
