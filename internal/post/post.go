// Package post holds the content items that compete in tournaments.
package post

import (
	"time"

	"github.com/google/uuid"
)

// Title shown for a side whose post no longer exists.
const DeletedTitle = "Deleted post"

type Post struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	Category  string    `db:"category" json:"category"`
	AuthorID  uuid.UUID `db:"author_id" json:"authorId"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
