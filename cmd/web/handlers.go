package main

import (
	"net/http"

	"github.com/AdamBeresnev/post-battles/internal/bracket"
	"github.com/AdamBeresnev/post-battles/internal/httputil"
	"github.com/AdamBeresnev/post-battles/internal/middleware"
	"github.com/AdamBeresnev/post-battles/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/markbates/goth/gothic"
)

// parseID reads the named URL parameter as a uuid, answering 400 when it is not one.
func parseID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		httputil.BadRequest(w, "Invalid "+name, err)
		return uuid.Nil, false
	}
	return id, true
}

func (app *application) authCallback(w http.ResponseWriter, r *http.Request) {
	gothUser, err := gothic.CompleteUserAuth(w, withProvider(r))
	if err != nil {
		httputil.BadRequest(w, "Authentication failure", err)
		return
	}

	user, err := app.users.FindOrCreateUserByProvider(r.Context(), gothUser)
	if err != nil {
		httputil.InternalServerError(w, "Failed to find or create user", err)
		return
	}

	if err := app.sessionManager.RenewToken(r.Context()); err != nil {
		httputil.InternalServerError(w, "Failed to renew session", err)
		return
	}
	app.sessionManager.Put(r.Context(), middleware.SessionUserKey, user.ID.String())
	http.Redirect(w, r, "/", http.StatusFound)
}

func (app *application) guestLogin(w http.ResponseWriter, r *http.Request) {
	user, err := app.users.EnsureGuestUser(r.Context())
	if err != nil {
		httputil.InternalServerError(w, "Failed to login as guest", err)
		return
	}

	if err := app.sessionManager.RenewToken(r.Context()); err != nil {
		httputil.InternalServerError(w, "Failed to renew session", err)
		return
	}
	app.sessionManager.Put(r.Context(), middleware.SessionUserKey, user.ID.String())
	httputil.WriteJSON(w, http.StatusOK, user)
}

func (app *application) logout(w http.ResponseWriter, r *http.Request) {
	if err := app.sessionManager.Destroy(r.Context()); err != nil {
		httputil.InternalServerError(w, "Failed to logout", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (app *application) me(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetAuthenticatedUser(r.Context())
	if user == nil {
		httputil.Unauthorized(w)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

// Tournaments

func (app *application) listTournaments(w http.ResponseWriter, r *http.Request) {
	tournaments, err := app.tournaments.List(r.Context())
	if err != nil {
		httputil.Error(w, "Failed to list tournaments", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tournaments)
}

func (app *application) getTournament(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	tournament, err := app.tournaments.Get(r.Context(), id)
	if err != nil {
		httputil.Error(w, "Failed to get tournament", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tournament)
}

func (app *application) createTournament(w http.ResponseWriter, r *http.Request) {
	var in service.CreateTournamentInput
	if err := httputil.DecodeJSON(r, &in); err != nil {
		httputil.BadRequest(w, "Invalid request body", err)
		return
	}
	tournament, err := app.tournaments.Create(r.Context(), in)
	if err != nil {
		httputil.Error(w, "Failed to create tournament", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, tournament)
}

func (app *application) progressAdmin(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	result, err := app.tournaments.ProgressRound(r.Context(), id)
	if err != nil {
		httputil.Error(w, "Failed to progress round", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (app *application) progressPublic(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	result, err := app.tournaments.ProgressRoundPublic(r.Context(), id)
	if err != nil {
		httputil.Error(w, "Failed to progress round", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (app *application) resetTournament(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	tournament, err := app.tournaments.Reset(r.Context(), id)
	if err != nil {
		httputil.Error(w, "Failed to reset tournament", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tournament)
}

func (app *application) cancelTournament(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	if err := app.tournaments.Cancel(r.Context(), id); err != nil {
		httputil.Error(w, "Failed to cancel tournament", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (app *application) rebuildTournaments(w http.ResponseWriter, r *http.Request) {
	var category *string
	if c := r.URL.Query().Get("category"); c != "" {
		category = &c
	}
	rebuilt, err := app.tournaments.Rebuild(r.Context(), category)
	if err != nil {
		httputil.Error(w, "Failed to rebuild tournaments", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"rebuilt": rebuilt})
}

// Matches

func (app *application) listActiveMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := app.matches.ListActive(r.Context())
	if err != nil {
		httputil.Error(w, "Failed to list matches", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, matches)
}

func (app *application) getMatch(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	match, err := app.matches.GetMatch(r.Context(), id)
	if err != nil {
		httputil.Error(w, "Failed to get match", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, match)
}

func (app *application) finishMatch(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	winner, err := app.tournaments.FinishMatch(r.Context(), id)
	if err != nil {
		httputil.Error(w, "Failed to finish match", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]uuid.UUID{"winnerId": winner})
}

// Posts

func (app *application) createPost(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	var in service.CreatePostInput
	if err := httputil.DecodeJSON(r, &in); err != nil {
		httputil.BadRequest(w, "Invalid request body", err)
		return
	}
	p, err := app.posts.Create(r.Context(), userID, in)
	if err != nil {
		httputil.Error(w, "Failed to create post", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, p)
}

func (app *application) getPost(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	p, err := app.posts.Get(r.Context(), id)
	if err != nil {
		httputil.Error(w, "Failed to get post", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (app *application) listPostMatches(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	matches, err := app.matches.ListByPost(r.Context(), id)
	if err != nil {
		httputil.Error(w, "Failed to list matches", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, matches)
}

// Votes

type castVoteRequest struct {
	MatchID uuid.UUID `json:"matchId"`
	Choice  string    `json:"choice"`
}

func (app *application) castVote(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	var req castVoteRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, "Invalid request body", err)
		return
	}
	choice, err := bracket.ParseChoice(req.Choice)
	if err != nil {
		httputil.BadRequest(w, err.Error(), err)
		return
	}

	vote, err := app.votes.CastVote(r.Context(), userID, req.MatchID, choice)
	if err != nil {
		httputil.Error(w, "Failed to cast vote", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, vote)
}

func (app *application) myVotes(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	history, err := app.votes.ListVotesByVoter(r.Context(), userID)
	if err != nil {
		httputil.Error(w, "Failed to list votes", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, history)
}

func writeDeleted(w http.ResponseWriter, n int64) {
	httputil.WriteJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

func (app *application) resetMyVotes(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	n, err := app.votes.ResetMine(r.Context(), userID)
	if err != nil {
		httputil.Error(w, "Failed to reset votes", err)
		return
	}
	writeDeleted(w, n)
}

func (app *application) resetMatchVotes(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	n, err := app.votes.ResetMatch(r.Context(), id)
	if err != nil {
		httputil.Error(w, "Failed to reset votes", err)
		return
	}
	writeDeleted(w, n)
}

func (app *application) resetTournamentVotes(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	n, err := app.votes.ResetTournament(r.Context(), id)
	if err != nil {
		httputil.Error(w, "Failed to reset votes", err)
		return
	}
	writeDeleted(w, n)
}

func (app *application) resetAllVotes(w http.ResponseWriter, r *http.Request) {
	n, err := app.votes.ResetAll(r.Context())
	if err != nil {
		httputil.Error(w, "Failed to reset votes", err)
		return
	}
	writeDeleted(w, n)
}

// Notifications

func (app *application) listNotifications(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	notes, err := app.notifications.List(r.Context(), userID)
	if err != nil {
		httputil.Error(w, "Failed to list notifications", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, notes)
}

func (app *application) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	if err := app.notifications.MarkRead(r.Context(), userID, id); err != nil {
		httputil.Error(w, "Failed to mark notification read", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
