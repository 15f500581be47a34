package repositories

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/myrjola/manuscript/internal/errors"
	"github.com/myrjola/manuscript/internal/models"
)

// nowSQL formats the current time the way the DATETIME columns store it.
const nowSQL = `strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`

// Aggregates are recomputed from their children instead of applying deltas, so running them again is harmless and
// repairs any earlier drift.
const (
	recomputeEpisodesSQL = `UPDATE episodes
SET current_word_count = (SELECT COALESCE(SUM(s.word_count), 0) FROM scenes s WHERE s.episode_id = episodes.id)`
	recomputeProjectsSQL = `UPDATE projects
SET words_written = (SELECT COALESCE(SUM(e.current_word_count), 0) FROM episodes e WHERE e.project_id = projects.id)`
)

// recomputeEpisode re-sums the word counts of the episode's scenes and returns the new total with the project id.
func recomputeEpisode(ctx context.Context, tx *sqlx.Tx, episodeID string) (string, int, error) {
	var row struct {
		ProjectID        string `db:"project_id"`
		CurrentWordCount int    `db:"current_word_count"`
	}
	stmt := recomputeEpisodesSQL + ` WHERE id = ? RETURNING project_id, current_word_count`
	if err := tx.GetContext(ctx, &row, stmt, episodeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", 0, errors.Wrap(models.ErrNotFound, "episode not found", slog.String("episode_id", episodeID))
		}
		return "", 0, errors.Wrap(err, "recompute episode word count", slog.String("episode_id", episodeID))
	}
	return row.ProjectID, row.CurrentWordCount, nil
}

// recomputeProject re-sums the word counts of the project's episodes and returns the new total.
func recomputeProject(ctx context.Context, tx *sqlx.Tx, projectID string) (int, error) {
	var wordsWritten int
	stmt := recomputeProjectsSQL + ` WHERE id = ? RETURNING words_written`
	if err := tx.GetContext(ctx, &wordsWritten, stmt, projectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, errors.Wrap(models.ErrNotFound, "project not found", slog.String("project_id", projectID))
		}
		return 0, errors.Wrap(err, "recompute project word count", slog.String("project_id", projectID))
	}
	return wordsWritten, nil
}

// isUniqueViolation reports whether err was caused by a UNIQUE or PRIMARY KEY constraint.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
