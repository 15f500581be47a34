package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/myrjola/manuscript/internal/e2etest"
	"github.com/myrjola/manuscript/internal/errors"
	"github.com/myrjola/manuscript/internal/logging"
)

// TestWritingFlow signs up a throwaway user and exercises the write paths of a deployed server.
func TestWritingFlow(ctx context.Context, client *e2etest.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second) //nolint:mnd // 10 seconds
	defer cancel()

	var (
		email    = "smoketest-" + uuid.NewString() + "@example.com"
		password = uuid.NewString()
	)
	if _, err := client.SignUp(ctx, email, password, "Smoke Test"); err != nil {
		return errors.Wrap(err, "sign up")
	}
	if err := client.SignOut(ctx); err != nil {
		return errors.Wrap(err, "sign out")
	}
	if _, err := client.SignIn(ctx, email, "definitely wrong"); err == nil {
		return errors.New("sign in with a wrong password succeeded")
	}
	if _, err := client.SignIn(ctx, email, password); err != nil {
		return errors.Wrap(err, "sign in")
	}
	return testProject(ctx, client)
}

func testProject(ctx context.Context, client *e2etest.Client) error {
	project, err := client.CreateProject(ctx, e2etest.NewProject{
		Title:           "Smoke test",
		Genre:           "Test",
		TargetWordCount: 15000, //nolint:mnd // two fast episodes.
		Pace:            "Fast",
	})
	if err != nil {
		return errors.Wrap(err, "create project")
	}
	episodeID := project.Episodes[0].ID
	first, err := client.CreateScene(ctx, episodeID, "First")
	if err != nil {
		return errors.Wrap(err, "create first scene")
	}
	second, err := client.CreateScene(ctx, episodeID, "Second")
	if err != nil {
		return errors.Wrap(err, "create second scene")
	}
	update, err := client.UpdateSceneContent(ctx, episodeID, second.ID, "smoke without fire")
	if err != nil {
		return errors.Wrap(err, "update scene content")
	}
	if update.ProjectWordCount != 3 { //nolint:mnd // words in the content above.
		return errors.New("unexpected project word count", slog.Int("project_word_count", update.ProjectWordCount))
	}
	scenes, err := client.ReorderScene(ctx, episodeID, second.ID, 0)
	if err != nil {
		return errors.Wrap(err, "reorder scenes")
	}
	if len(scenes) != 2 || scenes[0].ID != second.ID || scenes[1].ID != first.ID { //nolint:mnd // two scenes.
		return errors.New("unexpected scene order")
	}
	return nil
}

func main() {
	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	}))
	logger := slog.New(loggerHandler)
	ctx := context.Background()

	if len(os.Args) != 2 { //nolint:mnd // we expect only hostname to be passed as argument.
		logger.LogAttrs(ctx, slog.LevelError, "usage: smoketest <hostname>")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		url      = "https://" + hostname
		client   *e2etest.Client
		err      error
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", url))

	if client, err = e2etest.NewClient(url); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating client", errors.SlogError(err))
		os.Exit(1)
	}
	if err = TestWritingFlow(ctx, client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing writing flow", errors.SlogError(err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test successful 🙌")
	os.Exit(0)
}
