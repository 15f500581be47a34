package main

import (
	"net/http"

	"github.com/justinas/nosurf"
	"github.com/myrjola/manuscript/internal/contexthelpers"
	"github.com/myrjola/manuscript/internal/models"
)

type sessionResponse struct {
	Authenticated bool         `json:"authenticated"`
	User          *models.User `json:"user,omitempty"`
	CSRFToken     string       `json:"csrfToken"`
}

type userResponse struct {
	User *models.User `json:"user"`
}

type credentialsRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

// currentSession tells the client who is signed in and hands out the CSRF token for unsafe requests.
func (app *application) currentSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, err := app.auth.CurrentUser(ctx, contexthelpers.AuthenticatedUserID(ctx))
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	app.writeJSON(w, r, http.StatusOK, sessionResponse{
		Authenticated: user != nil,
		User:          user,
		CSRFToken:     nosurf.Token(r),
	})
}

func (app *application) signUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := app.decodeJSON(w, r, &req); err != nil {
		app.handleError(w, r, err)
		return
	}
	user, err := app.auth.SignUp(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusCreated, userResponse{User: user})
}

func (app *application) signIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := app.decodeJSON(w, r, &req); err != nil {
		app.handleError(w, r, err)
		return
	}
	user, err := app.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, userResponse{User: user})
}

func (app *application) signOut(w http.ResponseWriter, r *http.Request) {
	if err := app.auth.SignOut(r.Context()); err != nil {
		app.serverError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
