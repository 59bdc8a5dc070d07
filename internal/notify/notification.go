package notify

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindMatch      Kind = "match"
	KindPost       Kind = "post"
	KindVote       Kind = "vote"
	KindTournament Kind = "tournament"
	KindRound      Kind = "round"
	KindSystem     Kind = "system"
)

// Meta is stored as a JSON object next to the message.
type Meta map[string]string

func (m Meta) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *Meta) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*m = Meta{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("notify: cannot scan %T into Meta", src)
	}
	out := Meta{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*m = out
	return nil
}

type Notification struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"userId"`
	Kind      Kind      `db:"kind" json:"type"`
	Message   string    `db:"message" json:"message"`
	Meta      Meta      `db:"meta" json:"meta"`
	Read      bool      `db:"is_read" json:"read"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Message is what callers hand to the Notifier. It becomes one Notification per recipient.
type Message struct {
	Kind Kind
	Text string
	Meta Meta
}

func (m Message) For(userID uuid.UUID, now time.Time) *Notification {
	return &Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Kind:      m.Kind,
		Message:   m.Text,
		Meta:      m.Meta,
		CreatedAt: now,
	}
}

// Event is the payload pushed to live user streams.
type Event struct {
	Type    Kind   `json:"type"`
	Message string `json:"message"`
	Meta    Meta   `json:"meta,omitempty"`
}

func (m Message) Event() Event {
	return Event{Type: m.Kind, Message: m.Text, Meta: m.Meta}
}
