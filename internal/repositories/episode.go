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

type EpisodeRepository struct {
	dbs    *sqlite.Database
	logger *slog.Logger
}

func NewEpisodeRepository(dbs *sqlite.Database, logger *slog.Logger) *EpisodeRepository {
	return &EpisodeRepository{
		dbs:    dbs,
		logger: logger.With("source", "EpisodeRepository"),
	}
}

const episodeColumns = `e.id, e.project_id, e.title, e.sequence_number, e.current_word_count, e.target_word_count,
e.status, e.created_at, e.updated_at`

// GetOwned returns the episode if it belongs to a project of the user. Returns models.ErrNotFound otherwise so
// that other users' episodes are indistinguishable from missing ones.
func (r *EpisodeRepository) GetOwned(ctx context.Context, userID string, episodeID string) (*models.Episode, error) {
	var episode models.Episode
	stmt := `SELECT ` + episodeColumns + `
FROM episodes e
JOIN projects p ON p.id = e.project_id
WHERE e.id = ? AND p.user_id = ?`
	if err := r.dbs.ReadOnly.GetContext(ctx, &episode, stmt, episodeID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrap(models.ErrNotFound, "episode not found", slog.String("episode_id", episodeID))
		}
		return nil, errors.Wrap(err, "query episode", slog.String("episode_id", episodeID))
	}
	return &episode, nil
}

// ListByProject returns the episodes of the project in sequence order.
func (r *EpisodeRepository) ListByProject(ctx context.Context, projectID string) ([]models.Episode, error) {
	episodes, err := listEpisodes(ctx, r.dbs.ReadOnly, projectID)
	if err != nil {
		return nil, errors.Wrap(err, "list episodes", slog.String("project_id", projectID))
	}
	return episodes, nil
}

// CreateBatch appends the episodes to the project in input order with contiguous sequence numbers.
func (r *EpisodeRepository) CreateBatch(
	ctx context.Context,
	projectID string,
	newEpisodes []models.NewEpisode,
) ([]models.Episode, error) {
	if len(newEpisodes) == 0 {
		return nil, errors.Wrap(models.ErrInvalidInput, "no episodes to create")
	}
	var created []models.Episode
	err := r.dbs.WithinTx(ctx, func(tx *sqlx.Tx) error {
		ids, err := insertEpisodes(ctx, tx, projectID, newEpisodes)
		if err != nil {
			return err
		}
		// The episode count follows the episodes that actually exist once more are added.
		stmt := `UPDATE projects
SET number_of_episodes = (SELECT COUNT(*) FROM episodes WHERE project_id = projects.id),
    updated_at = ` + nowSQL + `
WHERE id = ?`
		if _, err = tx.ExecContext(ctx, stmt, projectID); err != nil {
			return errors.Wrap(err, "update number of episodes")
		}
		if created, err = getEpisodes(ctx, tx, ids); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "create episodes", slog.String("project_id", projectID))
	}
	r.logger.LogAttrs(ctx, slog.LevelInfo, "episodes created",
		slog.String("project_id", projectID), slog.Int("count", len(created)))
	return created, nil
}

// insertEpisodes appends the episodes after the current maximum sequence number of the project.
//
// Computing the sequence number inside the INSERT on the single writer connection makes allocation atomic.
func insertEpisodes(
	ctx context.Context,
	tx *sqlx.Tx,
	projectID string,
	newEpisodes []models.NewEpisode,
) ([]string, error) {
	var exists bool
	if err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM projects WHERE id = ?)`, projectID); err != nil {
		return nil, errors.Wrap(err, "query project exists")
	}
	if !exists {
		return nil, errors.Wrap(models.ErrNotFound, "project not found", slog.String("project_id", projectID))
	}
	stmt := `INSERT INTO episodes (id, project_id, title, target_word_count, sequence_number)
SELECT ?, ?, ?, ?, COALESCE(MAX(sequence_number), 0) + 1 FROM episodes WHERE project_id = ?`
	ids := make([]string, 0, len(newEpisodes))
	for _, episode := range newEpisodes {
		if episode.Title == "" || episode.TargetWordCount <= 0 {
			return nil, errors.Wrap(models.ErrInvalidInput, "episode requires a title and a positive target",
				slog.String("title", episode.Title), slog.Int("target_word_count", episode.TargetWordCount))
		}
		id := uuid.NewString()
		if _, err := tx.ExecContext(ctx, stmt, id, projectID, episode.Title, episode.TargetWordCount,
			projectID); err != nil {
			return nil, errors.Wrap(err, "insert episode", slog.String("title", episode.Title))
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// getEpisodes reads the episodes by id preserving the order of ids.
func getEpisodes(ctx context.Context, tx *sqlx.Tx, ids []string) ([]models.Episode, error) {
	episodes := make([]models.Episode, 0, len(ids))
	stmt := `SELECT ` + episodeColumns + ` FROM episodes e WHERE e.id = ?`
	for _, id := range ids {
		var episode models.Episode
		if err := tx.GetContext(ctx, &episode, stmt, id); err != nil {
			return nil, errors.Wrap(err, "read episode", slog.String("episode_id", id))
		}
		episodes = append(episodes, episode)
	}
	return episodes, nil
}

func listEpisodes(ctx context.Context, q sqlx.QueryerContext, projectID string) ([]models.Episode, error) {
	episodes := []models.Episode{}
	stmt := `SELECT ` + episodeColumns + ` FROM episodes e WHERE e.project_id = ? ORDER BY e.sequence_number`
	if err := sqlx.SelectContext(ctx, q, &episodes, stmt, projectID); err != nil {
		return nil, errors.Wrap(err, "select episodes")
	}
	return episodes, nil
}
