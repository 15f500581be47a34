package main

import (
	"net/http"

	"github.com/justinas/alice"
	"github.com/myrjola/manuscript/internal/auth"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	session := alice.New(app.sessionManager.LoadAndSave, app.noSurf, app.auth.AuthenticateMiddleware)
	protected := session.Append(auth.RequireAuthentication)

	mux.HandleFunc("GET /api/healthy", app.healthy)

	mux.Handle("GET /api/session", session.ThenFunc(app.currentSession))
	mux.Handle("POST /api/auth/sign-up", session.ThenFunc(app.signUp))
	mux.Handle("POST /api/auth/sign-in", session.ThenFunc(app.signIn))
	mux.Handle("POST /api/auth/sign-out", session.ThenFunc(app.signOut))

	mux.Handle("GET /api/projects", protected.ThenFunc(app.listProjects))
	mux.Handle("POST /api/projects", protected.ThenFunc(app.createProject))
	mux.Handle("GET /api/projects/{projectID}", protected.ThenFunc(app.getProject))
	mux.Handle("POST /api/projects/{projectID}/recount", protected.ThenFunc(app.recountProject))

	mux.Handle("POST /api/episodes", protected.ThenFunc(app.createEpisodes))
	mux.Handle("GET /api/episodes/{episodeID}/scenes", protected.ThenFunc(app.listScenes))
	mux.Handle("POST /api/episodes/{episodeID}/scenes", protected.ThenFunc(app.createScene))
	mux.Handle("PATCH /api/episodes/{episodeID}/scenes", protected.ThenFunc(app.patchScenes))

	mux.HandleFunc("/", app.notFound)

	return app.recoverPanic(requestID(app.logRequest(secureHeaders(timeoutHandler(mux, app.requestTimeout)))))
}
