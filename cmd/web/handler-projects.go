package main

import (
	"net/http"
	"strings"

	"github.com/myrjola/manuscript/internal/contexthelpers"
	"github.com/myrjola/manuscript/internal/errors"
	"github.com/myrjola/manuscript/internal/models"
)

type createProjectRequest struct {
	Title           string  `json:"title"           validate:"required,max=200"`
	Genre           string  `json:"genre"           validate:"required,max=100"`
	TargetWordCount int     `json:"targetWordCount" validate:"gt=0"`
	Pace            string  `json:"pace"            validate:"required,oneof=Slow Medium Fast"`
	CoverColor      *string `json:"coverColor"      validate:"omitempty,hexcolor"`
}

type projectResponse struct {
	Project  *models.Project  `json:"project"`
	Episodes []models.Episode `json:"episodes"`
}

type projectsResponse struct {
	Projects []models.Project `json:"projects"`
}

func (app *application) listProjects(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projects, err := app.projects.List(ctx, contexthelpers.AuthenticatedUserID(ctx))
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, projectsResponse{Projects: projects})
}

// createProject creates the project together with the episodes its pace calls for.
func (app *application) createProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createProjectRequest
	if err := app.decodeJSON(w, r, &req); err != nil {
		app.handleError(w, r, err)
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Genre = strings.TrimSpace(req.Genre)
	if err := app.validator.Struct(req); err != nil {
		app.handleError(w, r, err)
		return
	}
	project, episodes, err := app.projects.Create(ctx, models.NewProject{
		UserID:          contexthelpers.AuthenticatedUserID(ctx),
		Title:           req.Title,
		Genre:           req.Genre,
		TargetWordCount: req.TargetWordCount,
		Pace:            models.Pace(req.Pace),
		CoverColor:      req.CoverColor,
	})
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusCreated, projectResponse{Project: project, Episodes: episodes})
}

func (app *application) getProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	project, err := app.projects.Get(ctx, contexthelpers.AuthenticatedUserID(ctx), r.PathValue("projectID"))
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	episodes, err := app.episodes.ListByProject(ctx, project.ID)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, projectResponse{Project: project, Episodes: episodes})
}

// recountProject rebuilds the project's cached word counts from its scenes.
func (app *application) recountProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owned, err := app.projects.Get(ctx, contexthelpers.AuthenticatedUserID(ctx), r.PathValue("projectID"))
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	project, episodes, err := app.projects.Recount(ctx, owned.ID)
	if err != nil {
		app.handleError(w, r, errors.Wrap(err, "recount project"))
		return
	}
	app.writeJSON(w, r, http.StatusOK, projectResponse{Project: project, Episodes: episodes})
}
