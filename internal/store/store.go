package store

import "github.com/jmoiron/sqlx"

// Stores bundles every store over one handle. Built over a *sqlx.Tx, all of them take part in
// that transaction.
type Stores struct {
	Tournaments   *TournamentStore
	Matches       *MatchStore
	Votes         *VoteStore
	Users         *UserStore
	Posts         *PostStore
	Notifications *NotificationStore
}

func New(db sqlx.ExtContext) *Stores {
	return &Stores{
		Tournaments:   NewTournamentStore(db),
		Matches:       NewMatchStore(db),
		Votes:         NewVoteStore(db),
		Users:         NewUserStore(db),
		Posts:         NewPostStore(db),
		Notifications: NewNotificationStore(db),
	}
}
