package main

import (
	"net/http"

	"github.com/AdamBeresnev/post-battles/internal/httputil"
	"github.com/AdamBeresnev/post-battles/internal/live"
	"github.com/AdamBeresnev/post-battles/internal/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/markbates/goth/gothic"
)

func (app *application) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   app.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(app.metrics.Middleware)
	r.Use(app.sessionManager.LoadAndSave)
	r.Use(middleware.LoadAuthenticatedUser(app.sessionManager, app.users))

	r.Method(http.MethodGet, "/metrics", app.metrics.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/auth", func(r chi.Router) {
		r.Get("/{provider}", func(w http.ResponseWriter, r *http.Request) {
			gothic.BeginAuthHandler(w, withProvider(r))
		})
		r.Get("/{provider}/callback", app.authCallback)
		r.Post("/guest", app.guestLogin)
		r.Post("/logout", app.logout)
	})

	streams := live.NewHandler(app.hub, app.matches, app.cfg.CORSOrigins)

	r.Route("/api", func(r chi.Router) {
		r.Get("/me", app.me)

		r.Get("/tournaments", app.listTournaments)
		r.Get("/tournaments/{id}", app.getTournament)

		r.Get("/matches/active", app.listActiveMatches)
		r.Get("/matches/{id}", app.getMatch)
		r.Get("/matches/{id}/stream", streams.ServeMatch)

		r.Get("/posts/{id}", app.getPost)
		r.Get("/posts/{id}/matches", app.listPostMatches)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)

			r.Post("/tournaments/{id}/progress-public", app.progressPublic)

			r.Post("/posts", app.createPost)

			r.Post("/votes", app.castVote)
			r.Get("/votes/me", app.myVotes)
			r.Delete("/votes/me", app.resetMyVotes)

			r.Get("/notifications", app.listNotifications)
			r.Post("/notifications/{id}/read", app.markNotificationRead)
			r.Get("/notifications/stream", streams.ServeUser)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)

			r.Post("/tournaments", app.createTournament)
			r.Post("/tournaments/rebuild", app.rebuildTournaments)
			r.Post("/tournaments/{id}/progress", app.progressAdmin)
			r.Post("/tournaments/{id}/reset", app.resetTournament)
			r.Delete("/tournaments/{id}", app.cancelTournament)

			r.Post("/matches/{id}/finish", app.finishMatch)

			r.Delete("/votes", app.resetAllVotes)
			r.Delete("/votes/match/{id}", app.resetMatchVotes)
			r.Delete("/votes/tournament/{id}", app.resetTournamentVotes)
		})
	})

	return r
}

// withProvider hands the {provider} URL parameter to gothic, which otherwise reads it from
// the query string.
func withProvider(r *http.Request) *http.Request {
	return gothic.GetContextWithProvider(r, chi.URLParam(r, "provider"))
}
