package repositories

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/myrjola/manuscript/internal/errors"
	"github.com/myrjola/manuscript/internal/models"
	"github.com/myrjola/manuscript/internal/sqlite"
)

type ProjectRepository struct {
	dbs    *sqlite.Database
	logger *slog.Logger
}

func NewProjectRepository(dbs *sqlite.Database, logger *slog.Logger) *ProjectRepository {
	return &ProjectRepository{
		dbs:    dbs,
		logger: logger.With("source", "ProjectRepository"),
	}
}

const selectProject = `SELECT id, user_id, title, genre, target_word_count, words_written, pace, number_of_episodes,
cover_color, status, created_at, updated_at
FROM projects`

// Create inserts the project together with the episodes its pace and target word count call for.
//
// The stored target word count is rounded down to whole episodes.
func (r *ProjectRepository) Create(
	ctx context.Context,
	newProject models.NewProject,
) (*models.Project, []models.Episode, error) {
	if newProject.Title == "" {
		return nil, nil, errors.Wrap(models.ErrInvalidInput, "title is required")
	}
	plan, err := models.PlanEpisodes(newProject.TargetWordCount, newProject.Pace)
	if err != nil {
		return nil, nil, errors.Wrap(err, "plan episodes")
	}

	var (
		project  models.Project
		episodes []models.Episode
		id       = uuid.NewString()
	)
	err = r.dbs.WithinTx(ctx, func(tx *sqlx.Tx) error {
		stmt := `INSERT INTO projects (id, user_id, title, genre, target_word_count, pace, number_of_episodes, cover_color)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
		if _, err = tx.ExecContext(ctx, stmt, id, newProject.UserID, newProject.Title, newProject.Genre,
			plan.TargetWordCount, newProject.Pace, plan.NumberOfEpisodes, newProject.CoverColor); err != nil {
			return errors.Wrap(err, "insert project")
		}

		newEpisodes := make([]models.NewEpisode, plan.NumberOfEpisodes)
		for i := range newEpisodes {
			newEpisodes[i] = models.NewEpisode{
				Title:           models.DefaultEpisodeTitle(i + 1),
				TargetWordCount: plan.WordsPerEpisode,
			}
		}
		if _, err = insertEpisodes(ctx, tx, id, newEpisodes); err != nil {
			return errors.Wrap(err, "insert episodes")
		}

		if err = tx.GetContext(ctx, &project, selectProject+` WHERE id = ?`, id); err != nil {
			return errors.Wrap(err, "read created project")
		}
		if episodes, err = listEpisodes(ctx, tx, id); err != nil {
			return errors.Wrap(err, "read created episodes")
		}
		return nil
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, "create project", slog.String("user_id", newProject.UserID))
	}
	r.logger.LogAttrs(ctx, slog.LevelInfo, "project created",
		slog.String("project_id", project.ID),
		slog.Int("number_of_episodes", project.NumberOfEpisodes))
	return &project, episodes, nil
}

// Get returns the project if the user owns it and models.ErrNotFound otherwise.
func (r *ProjectRepository) Get(ctx context.Context, userID string, projectID string) (*models.Project, error) {
	var project models.Project
	if err := r.dbs.ReadOnly.GetContext(ctx, &project, selectProject+` WHERE id = ? AND user_id = ?`,
		projectID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrap(models.ErrNotFound, "project not found", slog.String("project_id", projectID))
		}
		return nil, errors.Wrap(err, "query project", slog.String("project_id", projectID))
	}
	return &project, nil
}

// List returns the user's projects, most recently created first.
func (r *ProjectRepository) List(ctx context.Context, userID string) ([]models.Project, error) {
	projects := []models.Project{}
	if err := r.dbs.ReadOnly.SelectContext(ctx, &projects,
		selectProject+` WHERE user_id = ? ORDER BY created_at DESC, id`, userID); err != nil {
		return nil, errors.Wrap(err, "query projects", slog.String("user_id", userID))
	}
	return projects, nil
}

// Recount recomputes the word count aggregates of the project and all its episodes from the scenes.
func (r *ProjectRepository) Recount(ctx context.Context, projectID string) (*models.Project, []models.Episode, error) {
	var (
		project  models.Project
		episodes []models.Episode
	)
	err := r.dbs.WithinTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, recomputeEpisodesSQL+` WHERE project_id = ?`, projectID); err != nil {
			return errors.Wrap(err, "recompute episodes")
		}
		if _, err := recomputeProject(ctx, tx, projectID); err != nil {
			return err
		}
		if err := tx.GetContext(ctx, &project, selectProject+` WHERE id = ?`, projectID); err != nil {
			return errors.Wrap(err, "read project")
		}
		var err error
		if episodes, err = listEpisodes(ctx, tx, projectID); err != nil {
			return errors.Wrap(err, "read episodes")
		}
		return nil
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, "recount project", slog.String("project_id", projectID))
	}
	r.logger.LogAttrs(ctx, slog.LevelInfo, "project recounted",
		slog.String("project_id", projectID), slog.Int("words_written", project.WordsWritten))
	return &project, episodes, nil
}

// RecountAll recomputes the aggregates of every project and returns how many projects were recounted.
func (r *ProjectRepository) RecountAll(ctx context.Context) (int, error) {
	var recounted int64
	err := r.dbs.WithinTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, recomputeEpisodesSQL); err != nil {
			return errors.Wrap(err, "recompute episodes")
		}
		result, err := tx.ExecContext(ctx, recomputeProjectsSQL)
		if err != nil {
			return errors.Wrap(err, "recompute projects")
		}
		if recounted, err = result.RowsAffected(); err != nil {
			return errors.Wrap(err, "rows affected")
		}
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "recount all projects")
	}
	r.logger.LogAttrs(ctx, slog.LevelInfo, "all projects recounted", slog.Int64("projects", recounted))
	return int(recounted), nil
}
