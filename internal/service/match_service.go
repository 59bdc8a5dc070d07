package service

import (
	"context"

	"github.com/AdamBeresnev/post-battles/internal/bracket"
	"github.com/AdamBeresnev/post-battles/internal/post"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"
)

// MatchService serves read views of matches. Finishing a match belongs to the engine.
type MatchService struct {
	base
}

func NewMatchService(db *sqlx.DB, opts ...Option) *MatchService {
	return &MatchService{base: newBase(db, opts)}
}

type SideInfo struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
}

type MatchDetail struct {
	Match *bracket.Match `json:"match"`
	Stats bracket.Tally  `json:"stats"`
	A     SideInfo       `json:"a"`
	B     SideInfo       `json:"b"`
}

// MatchWithTitles is a match with the titles of both sides.
type MatchWithTitles struct {
	bracket.Match
	PostATitle string `json:"postATitle"`
	PostBTitle string `json:"postBTitle"`
}

func titleOf(posts map[uuid.UUID]post.Post, id uuid.UUID) string {
	if p, ok := posts[id]; ok {
		return p.Title
	}
	return post.DeletedTitle
}

func (s *MatchService) GetMatch(ctx context.Context, id uuid.UUID) (*MatchDetail, error) {
	m, err := s.stores.Matches.GetMatch(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrMatchNotFound)
	}

	var (
		tally bracket.Tally
		posts map[uuid.UUID]post.Post
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		count, err := s.stores.Votes.CountVotes(gctx, id)
		if err != nil {
			return err
		}
		tally = bracket.NewTally(count.A, count.B)
		return nil
	})
	g.Go(func() error {
		var err error
		posts, err = s.stores.Posts.GetPosts(gctx, []uuid.UUID{m.SideA, m.SideB})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &MatchDetail{
		Match: m,
		Stats: tally,
		A:     SideInfo{ID: m.SideA, Title: titleOf(posts, m.SideA)},
		B:     SideInfo{ID: m.SideB, Title: titleOf(posts, m.SideB)},
	}, nil
}

// Tally reflects every vote committed at call time.
func (s *MatchService) Tally(ctx context.Context, id uuid.UUID) (bracket.Tally, error) {
	if _, err := s.stores.Matches.GetMatch(ctx, id); err != nil {
		return bracket.Tally{}, notFound(err, ErrMatchNotFound)
	}
	count, err := s.stores.Votes.CountVotes(ctx, id)
	if err != nil {
		return bracket.Tally{}, err
	}
	return bracket.NewTally(count.A, count.B), nil
}

func (s *MatchService) ListActive(ctx context.Context) ([]bracket.Match, error) {
	matches, err := s.stores.Matches.ListActive(ctx)
	if matches == nil && err == nil {
		matches = []bracket.Match{}
	}
	return matches, err
}

func (s *MatchService) ListByPost(ctx context.Context, postID uuid.UUID) ([]MatchWithTitles, error) {
	matches, err := s.stores.Matches.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, 2*len(matches))
	for _, m := range matches {
		ids = append(ids, m.SideA, m.SideB)
	}
	posts, err := s.stores.Posts.GetPosts(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]MatchWithTitles, len(matches))
	for i, m := range matches {
		out[i] = MatchWithTitles{
			Match:      m,
			PostATitle: titleOf(posts, m.SideA),
			PostBTitle: titleOf(posts, m.SideB),
		}
	}
	return out, nil
}
