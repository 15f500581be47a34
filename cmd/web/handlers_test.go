package main

import (
	"context"
	"net/http"
	"testing"

	"github.com/myrjola/manuscript/internal/e2etest"
	"github.com/myrjola/manuscript/internal/models"
	"github.com/stretchr/testify/require"
)

func Test_healthy(t *testing.T) {
	server := startTestServer(t)
	resp, err := server.Client().Do(context.Background(), http.MethodGet, "/api/healthy", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"status":"ok"}`, string(resp.Body))
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	require.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}

func Test_notFound(t *testing.T) {
	server := startTestServer(t)
	resp, err := server.Client().Do(context.Background(), http.MethodGet, "/does-not-exist", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "not found", resp.ErrorMessage())
}

func Test_authFlow(t *testing.T) {
	ctx := context.Background()
	server := startTestServer(t)
	client := server.Client()

	session, err := client.Session(ctx)
	require.NoError(t, err)
	require.False(t, session.Authenticated)
	require.Nil(t, session.User)
	require.NotEmpty(t, session.CSRFToken)

	user, err := client.SignUp(ctx, "Writer@Example.com", "correct horse", "")
	require.NoError(t, err)
	require.Equal(t, "writer@example.com", user.Email)
	require.Equal(t, "writer", user.DisplayName)

	session, err = client.Session(ctx)
	require.NoError(t, err)
	require.True(t, session.Authenticated)
	require.Equal(t, user.ID, session.User.ID)

	resp, err := client.Do(ctx, http.MethodPost, "/api/auth/sign-up",
		map[string]string{"email": "writer@example.com", "password": "correct horse"})
	require.NoError(t, err)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	require.NoError(t, client.SignOut(ctx))
	session, err = client.Session(ctx)
	require.NoError(t, err)
	require.False(t, session.Authenticated)

	resp, err = client.Do(ctx, http.MethodPost, "/api/auth/sign-in",
		map[string]string{"email": "writer@example.com", "password": "wrong password"})
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "invalid email or password", resp.ErrorMessage())

	signedIn, err := client.SignIn(ctx, "writer@example.com", "correct horse")
	require.NoError(t, err)
	require.Equal(t, user.ID, signedIn.ID)
}

func Test_signUpValidation(t *testing.T) {
	ctx := context.Background()
	server := startTestServer(t)

	tests := []struct {
		name    string
		body    any
		wantMsg string
	}{
		{
			name:    "short password",
			body:    map[string]string{"email": "a@example.com", "password": "short"},
			wantMsg: "password must be at least 8 characters",
		},
		{
			name:    "malformed email",
			body:    map[string]string{"email": "nope", "password": "correct horse"},
			wantMsg: "invalid email address",
		},
		{
			name:    "unknown field",
			body:    map[string]string{"email": "a@example.com", "password": "correct horse", "role": "admin"},
			wantMsg: `unknown field "role"`,
		},
		{
			name:    "not an object",
			body:    []string{"a@example.com"},
			wantMsg: "invalid request body",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := server.Client().Do(ctx, http.MethodPost, "/api/auth/sign-up", tt.body)
			require.NoError(t, err)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			require.Equal(t, tt.wantMsg, resp.ErrorMessage())
		})
	}
}

func Test_csrfProtection(t *testing.T) {
	server := startTestServer(t)
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, server.URL()+"/api/auth/sign-out",
		nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, resp.Body.Close())
	}()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func Test_requiresAuthentication(t *testing.T) {
	ctx := context.Background()
	server := startTestServer(t)

	tests := []struct {
		method string
		path   string
	}{
		{method: http.MethodGet, path: "/api/projects"},
		{method: http.MethodPost, path: "/api/projects"},
		{method: http.MethodGet, path: "/api/projects/any"},
		{method: http.MethodPost, path: "/api/episodes"},
		{method: http.MethodGet, path: "/api/episodes/any/scenes"},
		{method: http.MethodPatch, path: "/api/episodes/any/scenes"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			resp, err := server.Client().Do(ctx, tt.method, tt.path, nil)
			require.NoError(t, err)
			require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			require.Equal(t, "authentication required", resp.ErrorMessage())
		})
	}
}

func Test_projects(t *testing.T) {
	ctx := context.Background()
	server := startTestServer(t)
	client := signedInClient(t, server, "writer@example.com")

	created, err := client.CreateProject(ctx, e2etest.NewProject{
		Title:           "The Long Night",
		Genre:           "Thriller",
		TargetWordCount: 25000,
		Pace:            "Medium",
	})
	require.NoError(t, err)
	require.Equal(t, 20000, created.Project.TargetWordCount, "target is rounded down to whole episodes")
	require.Equal(t, 2, created.Project.NumberOfEpisodes)
	require.Len(t, created.Episodes, 2)
	for i, episode := range created.Episodes {
		require.Equal(t, i+1, episode.SequenceNumber)
		require.Equal(t, 10000, episode.TargetWordCount)
	}
	require.Equal(t, "Episode 1", created.Episodes[0].Title)

	got, err := client.GetProject(ctx, created.Project.ID)
	require.NoError(t, err)
	require.Equal(t, created.Project.ID, got.Project.ID)
	require.Len(t, got.Episodes, 2)

	projects, err := client.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 1)

	invalid := []struct {
		name    string
		body    e2etest.NewProject
		wantMsg string
	}{
		{
			name:    "missing title",
			body:    e2etest.NewProject{TargetWordCount: 10000, Pace: "Fast"},
			wantMsg: "title is required",
		},
		{
			name:    "missing genre",
			body:    e2etest.NewProject{Title: "x", TargetWordCount: 10000, Pace: "Fast"},
			wantMsg: "genre is required",
		},
		{
			name:    "unknown pace",
			body:    e2etest.NewProject{Title: "x", Genre: "Drama", TargetWordCount: 10000, Pace: "Glacial"},
			wantMsg: "pace must be one of Slow Medium Fast",
		},
		{
			name:    "zero target",
			body:    e2etest.NewProject{Title: "x", Genre: "Drama", Pace: "Fast"},
			wantMsg: "targetWordCount must be greater than 0",
		},
		{
			name:    "smaller than one episode",
			body:    e2etest.NewProject{Title: "x", Genre: "Drama", TargetWordCount: 100, Pace: "Slow"},
			wantMsg: "target word count is smaller than one episode",
		},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := client.Do(ctx, http.MethodPost, "/api/projects", tt.body)
			require.NoError(t, err)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			require.Equal(t, tt.wantMsg, resp.ErrorMessage())
		})
	}

	other := signedInClient(t, server, "other@example.com")
	resp, err := other.Do(ctx, http.MethodGet, "/api/projects/"+created.Project.ID, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	otherProjects, err := other.ListProjects(ctx)
	require.NoError(t, err)
	require.Empty(t, otherProjects)
}

func Test_createEpisodes(t *testing.T) {
	ctx := context.Background()
	server := startTestServer(t)
	client := signedInClient(t, server, "writer@example.com")
	created, err := client.CreateProject(ctx, e2etest.NewProject{
		Title:           "Serial",
		Genre:           "Mystery",
		TargetWordCount: 7500,
		Pace:            "Fast",
	})
	require.NoError(t, err)
	projectID := created.Project.ID

	episodes, err := client.CreateEpisodes(ctx, []e2etest.NewEpisode{
		{ProjectID: projectID, Title: "Bonus A", TargetWordCount: 5000},
		{ProjectID: projectID, Title: "Bonus B", TargetWordCount: 6000},
	})
	require.NoError(t, err)
	require.Len(t, episodes, 2)
	require.Equal(t, 2, episodes[0].SequenceNumber)
	require.Equal(t, 3, episodes[1].SequenceNumber)
	require.Equal(t, "Bonus B", episodes[1].Title)

	got, err := client.GetProject(ctx, projectID)
	require.NoError(t, err)
	require.Equal(t, 3, got.Project.NumberOfEpisodes)

	tests := []struct {
		name       string
		body       []e2etest.NewEpisode
		wantStatus int
		wantMsg    string
	}{
		{name: "empty batch", body: []e2etest.NewEpisode{}, wantStatus: http.StatusBadRequest,
			wantMsg: "at least one episode is required"},
		{name: "mixed projects", body: []e2etest.NewEpisode{
			{ProjectID: projectID, Title: "a", TargetWordCount: 1},
			{ProjectID: "other", Title: "b", TargetWordCount: 1},
		}, wantStatus: http.StatusBadRequest, wantMsg: "all episodes must belong to the same project"},
		{name: "missing title", body: []e2etest.NewEpisode{
			{ProjectID: projectID, TargetWordCount: 1},
		}, wantStatus: http.StatusBadRequest, wantMsg: "title is required"},
		{name: "unknown project", body: []e2etest.NewEpisode{
			{ProjectID: "missing", Title: "a", TargetWordCount: 1},
		}, wantStatus: http.StatusNotFound, wantMsg: "project not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := client.Do(ctx, http.MethodPost, "/api/episodes", tt.body)
			require.NoError(t, err)
			require.Equal(t, tt.wantStatus, resp.StatusCode)
			require.Equal(t, tt.wantMsg, resp.ErrorMessage())
		})
	}
}

// Test_sceneLifecycle edits and reorders scenes and checks that every edit rolls up to the episode and project.
func Test_sceneLifecycle(t *testing.T) {
	ctx := context.Background()
	server := startTestServer(t)
	client := signedInClient(t, server, "writer@example.com")
	created, err := client.CreateProject(ctx, e2etest.NewProject{
		Title:           "Serial",
		Genre:           "Mystery",
		TargetWordCount: 15000,
		Pace:            "Fast",
	})
	require.NoError(t, err)
	require.Len(t, created.Episodes, 2)
	first, second := created.Episodes[0].ID, created.Episodes[1].ID

	a, err := client.CreateScene(ctx, first, "A")
	require.NoError(t, err)
	require.Equal(t, 1, a.SequenceNumber)
	b, err := client.CreateScene(ctx, first, "B")
	require.NoError(t, err)
	c, err := client.CreateScene(ctx, first, "C")
	require.NoError(t, err)
	require.Equal(t, 3, c.SequenceNumber)
	d, err := client.CreateScene(ctx, second, "D")
	require.NoError(t, err)

	update, err := client.UpdateSceneContent(ctx, first, a.ID, "It was a dark and stormy night")
	require.NoError(t, err)
	require.Equal(t, 7, update.Scene.WordCount)
	require.Equal(t, 7, update.EpisodeWordCount)
	require.Equal(t, 7, update.ProjectWordCount)

	update, err = client.UpdateSceneContent(ctx, second, d.ID, "  three  short\nwords ")
	require.NoError(t, err)
	require.Equal(t, 3, update.EpisodeWordCount)
	require.Equal(t, 10, update.ProjectWordCount)

	update, err = client.UpdateSceneContent(ctx, first, a.ID, "")
	require.NoError(t, err)
	require.Equal(t, 0, update.Scene.WordCount)
	require.Equal(t, 0, update.EpisodeWordCount)
	require.Equal(t, 3, update.ProjectWordCount)

	scenes, err := client.ReorderScene(ctx, first, c.ID, 0)
	require.NoError(t, err)
	require.Equal(t, []string{c.ID, a.ID, b.ID}, sceneIDs(scenes))
	for i, scene := range scenes {
		require.Equal(t, i+1, scene.SequenceNumber)
	}

	scenes, err = client.ReorderScene(ctx, first, c.ID, 99)
	require.NoError(t, err)
	require.Equal(t, []string{a.ID, b.ID, c.ID}, sceneIDs(scenes))

	listed, err := client.ListScenes(ctx, first)
	require.NoError(t, err)
	require.Equal(t, sceneIDs(scenes), sceneIDs(listed))

	tests := []struct {
		name       string
		body       map[string]any
		wantStatus int
		wantMsg    string
	}{
		{name: "neither content nor newIndex", body: map[string]any{"sceneId": a.ID},
			wantStatus: http.StatusBadRequest, wantMsg: "invalid request body"},
		{name: "missing sceneId", body: map[string]any{"content": "x"},
			wantStatus: http.StatusBadRequest, wantMsg: "sceneId is required"},
		{name: "negative index", body: map[string]any{"sceneId": a.ID, "newIndex": -1},
			wantStatus: http.StatusBadRequest, wantMsg: "new index must not be negative"},
		{name: "scene of another episode", body: map[string]any{"sceneId": d.ID, "content": "x"},
			wantStatus: http.StatusNotFound, wantMsg: "scene not in episode"},
		{name: "reorder scene of another episode", body: map[string]any{"sceneId": d.ID, "newIndex": 0},
			wantStatus: http.StatusNotFound, wantMsg: "scene not in episode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := client.Do(ctx, http.MethodPatch, "/api/episodes/"+first+"/scenes", tt.body)
			require.NoError(t, err)
			require.Equal(t, tt.wantStatus, resp.StatusCode)
			require.Equal(t, tt.wantMsg, resp.ErrorMessage())
		})
	}

	recounted, err := client.Recount(ctx, created.Project.ID)
	require.NoError(t, err)
	require.Equal(t, 3, recounted.Project.WordsWritten)
	require.Equal(t, 0, recounted.Episodes[0].CurrentWordCount)
	require.Equal(t, 3, recounted.Episodes[1].CurrentWordCount)

	other := signedInClient(t, server, "other@example.com")
	foreign := []struct {
		method string
		body   any
	}{
		{method: http.MethodGet},
		{method: http.MethodPost, body: map[string]any{"title": "x"}},
		{method: http.MethodPatch, body: map[string]any{"sceneId": a.ID, "content": "stolen"}},
	}
	for _, tt := range foreign {
		resp, err := other.Do(ctx, tt.method, "/api/episodes/"+first+"/scenes", tt.body)
		require.NoError(t, err)
		require.Equal(t, http.StatusNotFound, resp.StatusCode, tt.method)
	}
}

func sceneIDs(scenes []models.Scene) []string {
	ids := make([]string, 0, len(scenes))
	for _, scene := range scenes {
		ids = append(ids, scene.ID)
	}
	return ids
}
