package main

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/myrjola/manuscript/internal/contexthelpers"
	"github.com/myrjola/manuscript/internal/errors"
	"github.com/myrjola/manuscript/internal/models"
)

type createEpisodeRequest struct {
	ProjectID       string `json:"projectId"       validate:"required"`
	Title           string `json:"title"           validate:"required,max=200"`
	TargetWordCount int    `json:"targetWordCount" validate:"gt=0"`
}

type episodesResponse struct {
	Episodes []models.Episode `json:"episodes"`
}

// createEpisodes appends a batch of episodes to one of the caller's projects in request order.
func (app *application) createEpisodes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req []createEpisodeRequest
	if err := app.decodeJSON(w, r, &req); err != nil {
		app.handleError(w, r, err)
		return
	}
	if len(req) == 0 {
		app.handleError(w, r, errors.Wrap(models.ErrInvalidInput, "at least one episode is required"))
		return
	}

	projectID := req[0].ProjectID
	newEpisodes := make([]models.NewEpisode, 0, len(req))
	for i := range req {
		req[i].Title = strings.TrimSpace(req[i].Title)
		if err := app.validator.Struct(req[i]); err != nil {
			app.handleError(w, r, err)
			return
		}
		if req[i].ProjectID != projectID {
			app.handleError(w, r, errors.Wrap(models.ErrInvalidInput, "all episodes must belong to the same project",
				slog.String("project_id", projectID), slog.String("other_project_id", req[i].ProjectID)))
			return
		}
		newEpisodes = append(newEpisodes, models.NewEpisode{
			Title:           req[i].Title,
			TargetWordCount: req[i].TargetWordCount,
		})
	}

	if _, err := app.projects.Get(ctx, contexthelpers.AuthenticatedUserID(ctx), projectID); err != nil {
		app.handleError(w, r, err)
		return
	}
	episodes, err := app.episodes.CreateBatch(ctx, projectID, newEpisodes)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusCreated, episodesResponse{Episodes: episodes})
}

// ownedEpisode resolves the episode in the path and responds with 404 unless the caller owns it.
func (app *application) ownedEpisode(w http.ResponseWriter, r *http.Request) (*models.Episode, bool) {
	ctx := r.Context()
	episode, err := app.episodes.GetOwned(ctx, contexthelpers.AuthenticatedUserID(ctx), r.PathValue("episodeID"))
	if err != nil {
		app.handleError(w, r, err)
		return nil, false
	}
	return episode, true
}
