package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/AdamBeresnev/post-battles/internal/bracket"
	"github.com/AdamBeresnev/post-battles/internal/metrics"
	"github.com/AdamBeresnev/post-battles/internal/notify"
	"github.com/AdamBeresnev/post-battles/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Notifier is the notification collaborator. Failures are logged, never returned to callers.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, msg notify.Message) error
	NotifyMany(ctx context.Context, userIDs []uuid.UUID, msg notify.Message) error
	Broadcast(ctx context.Context, msg notify.Message) error
}

// TallyPublisher pushes a fresh tally to everyone watching a match.
type TallyPublisher interface {
	PublishTally(matchID uuid.UUID, tally bracket.Tally)
}

type Option func(*base)

func WithLogger(logger *slog.Logger) Option {
	return func(b *base) { b.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *base) { b.metrics = m }
}

func WithNotifier(n Notifier) Option {
	return func(b *base) { b.notifier = n }
}

func WithTallyPublisher(p TallyPublisher) Option {
	return func(b *base) { b.tallies = p }
}

// WithClock replaces time.Now, mostly for tests driving time based rounds.
func WithClock(now func() time.Time) Option {
	return func(b *base) { b.now = now }
}

// WithShuffle replaces the random pairing order.
func WithShuffle(shuffle bracket.ShuffleFunc) Option {
	return func(b *base) { b.shuffle = shuffle }
}

type base struct {
	db       *sqlx.DB
	stores   *store.Stores
	notifier Notifier
	tallies  TallyPublisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
	shuffle  bracket.ShuffleFunc
}

func newBase(db *sqlx.DB, opts []Option) base {
	b := base{
		db:      db,
		stores:  store.New(db),
		logger:  slog.Default(),
		now:     func() time.Time { return time.Now().UTC() },
		shuffle: bracket.RandomShuffle,
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// inTx runs fn inside one transaction and commits when it returns nil.
func (b *base) inTx(ctx context.Context, fn func(q *store.Stores) error) error {
	tx, err := b.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(store.New(tx)); err != nil {
		return err
	}
	return tx.Commit()
}

type pendingNote struct {
	userIDs []uuid.UUID
	msg     notify.Message
}

// outbox collects side effects during a transaction so they only happen after commit.
type outbox struct {
	notes      []pendingNote
	broadcasts []notify.Message
	closed     []string
	finished   int
}

func (o *outbox) notify(msg notify.Message, userIDs ...uuid.UUID) {
	if len(userIDs) == 0 {
		return
	}
	o.notes = append(o.notes, pendingNote{userIDs: userIDs, msg: msg})
}

func (o *outbox) broadcast(msg notify.Message) {
	o.broadcasts = append(o.broadcasts, msg)
}

// dispatch delivers the outbox. It runs detached from the request so a client hanging up after
// the commit does not drop notifications.
func (b *base) dispatch(ctx context.Context, out *outbox) {
	ctx = context.WithoutCancel(ctx)

	for _, trigger := range out.closed {
		b.metrics.RoundClosed(trigger)
	}
	for i := 0; i < out.finished; i++ {
		b.metrics.TournamentFinished()
	}

	if b.notifier == nil {
		return
	}
	for _, note := range out.notes {
		if err := b.notifier.NotifyMany(ctx, note.userIDs, note.msg); err != nil {
			b.notificationFailed(note.msg, err)
		}
	}
	for _, msg := range out.broadcasts {
		if err := b.notifier.Broadcast(ctx, msg); err != nil {
			b.notificationFailed(msg, err)
		}
	}
}

func (b *base) notificationFailed(msg notify.Message, err error) {
	b.logger.Warn("notification failed", "kind", msg.Kind, "meta", msg.Meta, "error", err)
	b.metrics.NotificationFailed()
}
