package e2etest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/justinas/nosurf"
	"github.com/myrjola/manuscript/internal/errors"
	"github.com/myrjola/manuscript/internal/models"
)

// Client talks to the JSON API with a cookie jar and the CSRF token of its session.
type Client struct {
	client    *http.Client
	url       string
	csrfToken string
}

// Response is a raw API response for asserting on error statuses.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// ErrorMessage returns the message of an {"error": "..."} body or an empty string.
func (r *Response) ErrorMessage() string {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(r.Body, &body)
	return body.Error
}

type Session struct {
	Authenticated bool         `json:"authenticated"`
	User          *models.User `json:"user"`
	CSRFToken     string       `json:"csrfToken"`
}

type ProjectWithEpisodes struct {
	Project  models.Project   `json:"project"`
	Episodes []models.Episode `json:"episodes"`
}

type ContentUpdate struct {
	Scene            models.Scene `json:"scene"`
	EpisodeWordCount int          `json:"episodeWordCount"`
	ProjectWordCount int          `json:"projectWordCount"`
}

type NewProject struct {
	Title           string  `json:"title"`
	Genre           string  `json:"genre"`
	TargetWordCount int     `json:"targetWordCount"`
	Pace            string  `json:"pace"`
	CoverColor      *string `json:"coverColor,omitempty"`
}

type NewEpisode struct {
	ProjectID       string `json:"projectId"`
	Title           string `json:"title"`
	TargetWordCount int    `json:"targetWordCount"`
}

// NewClient creates an HTTP client for the API served at url.
func NewClient(url string) (*Client, error) {
	jar, err := newUnsafeCookieJar()
	if err != nil {
		return nil, errors.Wrap(err, "create unsafe cookie jar")
	}
	return &Client{
		client: &http.Client{Jar: jar},
		url:    url,
	}, nil
}

// WaitForReady calls the specified endpoint until it gets a HTTP 200 Success
// response or until the context is cancelled or the 1-second timeout is reached.
func (c *Client) WaitForReady(ctx context.Context, urlPath string) error {
	timeout := 1 * time.Second
	startTime := time.Now()
	var (
		err  error
		req  *http.Request
		resp *http.Response
	)
	for {
		if req, err = http.NewRequestWithContext(
			ctx,
			http.MethodGet,
			c.url+urlPath,
			nil,
		); err != nil {
			return errors.Wrap(err, "create request")
		}

		if resp, err = c.client.Do(req); err == nil {
			if resp.StatusCode == http.StatusOK {
				if err = resp.Body.Close(); err != nil {
					return errors.Wrap(err, "close response body")
				}
				return nil
			}
			if err = resp.Body.Close(); err != nil {
				return errors.Wrap(err, "close response body")
			}
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "context cancelled")
		default:
			if time.Since(startTime) >= timeout {
				return errors.New("timeout waiting for endpoint to be ready")
			}
			time.Sleep(100 * time.Millisecond) //nolint:mnd // 100ms
		}
	}
}

// Do sends body as JSON and returns the response whatever its status.
//
// Unsafe methods carry the CSRF token, which is fetched from the session endpoint on first use.
func (c *Client) Do(ctx context.Context, method, urlPath string, body any) (*Response, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "marshal request body")
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url+urlPath, reader)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet && method != http.MethodHead {
		if c.csrfToken == "" {
			if _, err = c.Session(ctx); err != nil {
				return nil, errors.Wrap(err, "fetch CSRF token")
			}
		}
		req.Header.Set(nosurf.HeaderName, c.csrfToken)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response body")
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: respBody}, nil
}

// doJSON is Do that expects wantStatus and decodes the response into out when out is not nil.
func (c *Client) doJSON(ctx context.Context, method, urlPath string, body any, wantStatus int, out any) error {
	resp, err := c.Do(ctx, method, urlPath, body)
	if err != nil {
		return err
	}
	if resp.StatusCode != wantStatus {
		return errors.New("unexpected status code",
			slog.String("method", method), slog.String("path", urlPath),
			slog.Int("status", resp.StatusCode), slog.String("body", string(resp.Body)))
	}
	if out == nil {
		return nil
	}
	if err = json.Unmarshal(resp.Body, out); err != nil {
		return errors.Wrap(err, "decode response body", slog.String("body", string(resp.Body)))
	}
	return nil
}

// Session fetches the current session and remembers its CSRF token.
func (c *Client) Session(ctx context.Context) (*Session, error) {
	var session Session
	if err := c.doJSON(ctx, http.MethodGet, "/api/session", nil, http.StatusOK, &session); err != nil {
		return nil, err
	}
	c.csrfToken = session.CSRFToken
	return &session, nil
}

func (c *Client) SignUp(ctx context.Context, email, password, displayName string) (*models.User, error) {
	var resp struct {
		User models.User `json:"user"`
	}
	body := map[string]string{"email": email, "password": password, "displayName": displayName}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/sign-up", body, http.StatusCreated, &resp); err != nil {
		return nil, errors.Wrap(err, "sign up")
	}
	return &resp.User, nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*models.User, error) {
	var resp struct {
		User models.User `json:"user"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/sign-in", body, http.StatusOK, &resp); err != nil {
		return nil, errors.Wrap(err, "sign in")
	}
	return &resp.User, nil
}

func (c *Client) SignOut(ctx context.Context) error {
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/sign-out", nil, http.StatusNoContent, nil); err != nil {
		return errors.Wrap(err, "sign out")
	}
	return nil
}

func (c *Client) CreateProject(ctx context.Context, project NewProject) (*ProjectWithEpisodes, error) {
	var resp ProjectWithEpisodes
	if err := c.doJSON(ctx, http.MethodPost, "/api/projects", project, http.StatusCreated, &resp); err != nil {
		return nil, errors.Wrap(err, "create project")
	}
	return &resp, nil
}

func (c *Client) GetProject(ctx context.Context, projectID string) (*ProjectWithEpisodes, error) {
	var resp ProjectWithEpisodes
	if err := c.doJSON(ctx, http.MethodGet, "/api/projects/"+projectID, nil, http.StatusOK, &resp); err != nil {
		return nil, errors.Wrap(err, "get project")
	}
	return &resp, nil
}

func (c *Client) ListProjects(ctx context.Context) ([]models.Project, error) {
	var resp struct {
		Projects []models.Project `json:"projects"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/projects", nil, http.StatusOK, &resp); err != nil {
		return nil, errors.Wrap(err, "list projects")
	}
	return resp.Projects, nil
}

func (c *Client) Recount(ctx context.Context, projectID string) (*ProjectWithEpisodes, error) {
	var resp ProjectWithEpisodes
	urlPath := "/api/projects/" + projectID + "/recount"
	if err := c.doJSON(ctx, http.MethodPost, urlPath, nil, http.StatusOK, &resp); err != nil {
		return nil, errors.Wrap(err, "recount project")
	}
	return &resp, nil
}

func (c *Client) CreateEpisodes(ctx context.Context, episodes []NewEpisode) ([]models.Episode, error) {
	var resp struct {
		Episodes []models.Episode `json:"episodes"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/episodes", episodes, http.StatusCreated, &resp); err != nil {
		return nil, errors.Wrap(err, "create episodes")
	}
	return resp.Episodes, nil
}

func (c *Client) ListScenes(ctx context.Context, episodeID string) ([]models.Scene, error) {
	var resp struct {
		Scenes []models.Scene `json:"scenes"`
	}
	if err := c.doJSON(ctx, http.MethodGet, scenesPath(episodeID), nil, http.StatusOK, &resp); err != nil {
		return nil, errors.Wrap(err, "list scenes")
	}
	return resp.Scenes, nil
}

func (c *Client) CreateScene(ctx context.Context, episodeID, title string) (*models.Scene, error) {
	var resp struct {
		Scene models.Scene `json:"scene"`
	}
	body := map[string]string{"title": title}
	if err := c.doJSON(ctx, http.MethodPost, scenesPath(episodeID), body, http.StatusCreated, &resp); err != nil {
		return nil, errors.Wrap(err, "create scene")
	}
	return &resp.Scene, nil
}

func (c *Client) UpdateSceneContent(ctx context.Context, episodeID, sceneID, content string) (*ContentUpdate, error) {
	var resp ContentUpdate
	body := map[string]any{"sceneId": sceneID, "content": content}
	if err := c.doJSON(ctx, http.MethodPatch, scenesPath(episodeID), body, http.StatusOK, &resp); err != nil {
		return nil, errors.Wrap(err, "update scene content")
	}
	return &resp, nil
}

func (c *Client) ReorderScene(ctx context.Context, episodeID, sceneID string, newIndex int) ([]models.Scene, error) {
	var resp struct {
		Scenes []models.Scene `json:"scenes"`
	}
	body := map[string]any{"sceneId": sceneID, "newIndex": newIndex}
	if err := c.doJSON(ctx, http.MethodPatch, scenesPath(episodeID), body, http.StatusOK, &resp); err != nil {
		return nil, errors.Wrap(err, "reorder scene")
	}
	return resp.Scenes, nil
}

func scenesPath(episodeID string) string {
	return "/api/episodes/" + episodeID + "/scenes"
}
