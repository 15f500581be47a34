package main

import (
	"net/http"
	"strings"

	"github.com/myrjola/manuscript/internal/errors"
	"github.com/myrjola/manuscript/internal/models"
)

type createSceneRequest struct {
	Title string `json:"title" validate:"required,max=200"`
}

// patchScenesRequest is either a content edit or a move, told apart by which optional field is present.
type patchScenesRequest struct {
	SceneID  string  `json:"sceneId"`
	Content  *string `json:"content"`
	NewIndex *int    `json:"newIndex"`
}

type sceneResponse struct {
	Scene *models.Scene `json:"scene"`
}

type scenesResponse struct {
	Scenes []models.Scene `json:"scenes"`
}

type contentUpdateResponse struct {
	Scene            models.Scene `json:"scene"`
	EpisodeWordCount int          `json:"episodeWordCount"`
	ProjectWordCount int          `json:"projectWordCount"`
}

func (app *application) listScenes(w http.ResponseWriter, r *http.Request) {
	episode, ok := app.ownedEpisode(w, r)
	if !ok {
		return
	}
	scenes, err := app.scenes.ListByEpisode(r.Context(), episode.ID)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, scenesResponse{Scenes: scenes})
}

func (app *application) createScene(w http.ResponseWriter, r *http.Request) {
	episode, ok := app.ownedEpisode(w, r)
	if !ok {
		return
	}
	var req createSceneRequest
	if err := app.decodeJSON(w, r, &req); err != nil {
		app.handleError(w, r, err)
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := app.validator.Struct(req); err != nil {
		app.handleError(w, r, err)
		return
	}
	scene, err := app.scenes.Create(r.Context(), episode.ID, req.Title)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusCreated, sceneResponse{Scene: scene})
}

// patchScenes edits a scene's content when content is present and otherwise moves the scene to newIndex.
func (app *application) patchScenes(w http.ResponseWriter, r *http.Request) {
	episode, ok := app.ownedEpisode(w, r)
	if !ok {
		return
	}
	var req patchScenesRequest
	if err := app.decodeJSON(w, r, &req); err != nil {
		app.handleError(w, r, err)
		return
	}
	if req.Content == nil && req.NewIndex == nil {
		app.handleError(w, r, errors.Wrap(errMalformedBody, "invalid request body"))
		return
	}
	if req.SceneID == "" {
		app.handleError(w, r, errors.Wrap(models.ErrInvalidInput, "sceneId is required"))
		return
	}

	if req.Content != nil {
		update, err := app.scenes.UpdateContent(r.Context(), episode.ID, req.SceneID, *req.Content)
		if err != nil {
			app.handleError(w, r, err)
			return
		}
		app.writeJSON(w, r, http.StatusOK, contentUpdateResponse{
			Scene:            update.Scene,
			EpisodeWordCount: update.EpisodeWordCount,
			ProjectWordCount: update.ProjectWordCount,
		})
		return
	}
	scenes, err := app.scenes.Reorder(r.Context(), episode.ID, req.SceneID, *req.NewIndex)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, scenesResponse{Scenes: scenes})
}
