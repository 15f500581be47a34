package repositories

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/myrjola/manuscript/internal/errors"
	"github.com/myrjola/manuscript/internal/models"
	"github.com/myrjola/manuscript/internal/sqlite"
)

type SceneRepository struct {
	dbs    *sqlite.Database
	logger *slog.Logger
}

func NewSceneRepository(dbs *sqlite.Database, logger *slog.Logger) *SceneRepository {
	return &SceneRepository{
		dbs:    dbs,
		logger: logger.With("source", "SceneRepository"),
	}
}

const selectScene = `SELECT id, episode_id, title, content, notes, word_count, status, sequence_number, created_at,
updated_at
FROM scenes`

// ListByEpisode returns the scenes of the episode in sequence order.
func (r *SceneRepository) ListByEpisode(ctx context.Context, episodeID string) ([]models.Scene, error) {
	scenes, err := listScenes(ctx, r.dbs.ReadOnly, episodeID)
	if err != nil {
		return nil, errors.Wrap(err, "list scenes", slog.String("episode_id", episodeID))
	}
	return scenes, nil
}

// Create appends an empty draft scene to the episode.
func (r *SceneRepository) Create(ctx context.Context, episodeID string, title string) (*models.Scene, error) {
	if title == "" {
		return nil, errors.Wrap(models.ErrInvalidInput, "title is required")
	}
	var (
		scene models.Scene
		id    = uuid.NewString()
	)
	err := r.dbs.WithinTx(ctx, func(tx *sqlx.Tx) error {
		var exists bool
		if err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM episodes WHERE id = ?)`,
			episodeID); err != nil {
			return errors.Wrap(err, "query episode exists")
		}
		if !exists {
			return errors.Wrap(models.ErrNotFound, "episode not found")
		}
		// The sequence number is allocated in the INSERT itself. The single writer connection serialises
		// concurrent creations and UNIQUE (episode_id, sequence_number) backs it up.
		stmt := `INSERT INTO scenes (id, episode_id, title, sequence_number)
SELECT ?, ?, ?, COALESCE(MAX(sequence_number), 0) + 1 FROM scenes WHERE episode_id = ?`
		if _, err := tx.ExecContext(ctx, stmt, id, episodeID, title, episodeID); err != nil {
			return errors.Wrap(err, "insert scene")
		}
		if err := tx.GetContext(ctx, &scene, selectScene+` WHERE id = ?`, id); err != nil {
			return errors.Wrap(err, "read created scene")
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "create scene", slog.String("episode_id", episodeID))
	}
	r.logger.LogAttrs(ctx, slog.LevelInfo, "scene created",
		slog.String("scene_id", scene.ID), slog.Int("sequence_number", scene.SequenceNumber))
	return &scene, nil
}

// UpdateContent replaces the content of the scene and rolls the new word count up into the episode and project.
//
// The scene write and both aggregate recomputations share one transaction. Any failure leaves all three rows as
// they were.
func (r *SceneRepository) UpdateContent(
	ctx context.Context,
	episodeID string,
	sceneID string,
	content string,
) (*models.ContentUpdate, error) {
	var (
		update    models.ContentUpdate
		wordCount = models.CountWords(content)
	)
	err := r.dbs.WithinTx(ctx, func(tx *sqlx.Tx) error {
		// Filtering by episode as well keeps a scene id from another episode from being touched.
		stmt := `UPDATE scenes SET content = ?, word_count = ?, updated_at = ` + nowSQL + `
WHERE id = ? AND episode_id = ?`
		result, err := tx.ExecContext(ctx, stmt, content, wordCount, sceneID, episodeID)
		if err != nil {
			return errors.Wrap(err, "update scene content")
		}
		var affected int64
		if affected, err = result.RowsAffected(); err != nil {
			return errors.Wrap(err, "rows affected")
		}
		if affected == 0 {
			return errors.Wrap(models.ErrNotFound, "scene not in episode")
		}

		var projectID string
		if projectID, update.EpisodeWordCount, err = recomputeEpisode(ctx, tx, episodeID); err != nil {
			return err
		}
		if update.ProjectWordCount, err = recomputeProject(ctx, tx, projectID); err != nil {
			return err
		}

		if err = tx.GetContext(ctx, &update.Scene, selectScene+` WHERE id = ?`, sceneID); err != nil {
			return errors.Wrap(err, "read updated scene")
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "update content",
			slog.String("scene_id", sceneID), slog.String("episode_id", episodeID))
	}
	r.logger.LogAttrs(ctx, slog.LevelDebug, "scene content updated",
		slog.String("scene_id", sceneID),
		slog.Int("word_count", wordCount),
		slog.Int("episode_word_count", update.EpisodeWordCount),
		slog.Int("project_word_count", update.ProjectWordCount))
	return &update, nil
}

// Reorder moves the scene to newIndex within its episode and renumbers all scenes 1..N.
//
// A newIndex past the last scene moves it last. A negative newIndex is rejected.
func (r *SceneRepository) Reorder(
	ctx context.Context,
	episodeID string,
	sceneID string,
	newIndex int,
) ([]models.Scene, error) {
	var scenes []models.Scene
	err := r.dbs.WithinTx(ctx, func(tx *sqlx.Tx) error {
		var ids []string
		if err := tx.SelectContext(ctx, &ids,
			`SELECT id FROM scenes WHERE episode_id = ? ORDER BY sequence_number`, episodeID); err != nil {
			return errors.Wrap(err, "select scene order")
		}
		reordered, err := models.MoveScene(ids, sceneID, newIndex)
		if err != nil {
			return err
		}
		if err = renumberScenes(ctx, tx, episodeID, reordered); err != nil {
			return err
		}
		if scenes, err = listScenes(ctx, tx, episodeID); err != nil {
			return errors.Wrap(err, "read reordered scenes")
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "reorder scenes",
			slog.String("scene_id", sceneID), slog.String("episode_id", episodeID), slog.Int("new_index", newIndex))
	}
	r.logger.LogAttrs(ctx, slog.LevelDebug, "scenes reordered",
		slog.String("scene_id", sceneID), slog.Int("new_index", newIndex))
	return scenes, nil
}

// renumberScenes assigns sequence numbers 1..N to the scenes in the order of ids.
func renumberScenes(ctx context.Context, tx *sqlx.Tx, episodeID string, ids []string) error {
	// Move every rank above the current maximum first so that the final assignment never collides with a rank
	// that is yet to be rewritten.
	shift := `UPDATE scenes
SET sequence_number = sequence_number + (SELECT MAX(sequence_number) FROM scenes WHERE episode_id = ?)
WHERE episode_id = ?`
	if _, err := tx.ExecContext(ctx, shift, episodeID, episodeID); err != nil {
		return errors.Wrap(err, "shift sequence numbers")
	}

	sequenceNumbers := make([]int, len(ids))
	for i := range ids {
		sequenceNumbers[i] = i + 1
	}
	idsJSON, err := json.Marshal(ids)
	if err != nil {
		return errors.Wrap(err, "marshal scene ids")
	}
	sequenceNumbersJSON, err := json.Marshal(sequenceNumbers)
	if err != nil {
		return errors.Wrap(err, "marshal sequence numbers")
	}

	// One statement keyed by the parallel id and sequence number arrays.
	stmt := `UPDATE scenes
SET sequence_number = reordered.sequence_number,
    updated_at      = ` + nowSQL + `
FROM (SELECT ids.value AS id, seqs.value AS sequence_number
      FROM json_each(?) AS ids
      JOIN json_each(?) AS seqs ON seqs.key = ids.key) AS reordered
WHERE scenes.id = reordered.id AND scenes.episode_id = ?`
	result, err := tx.ExecContext(ctx, stmt, string(idsJSON), string(sequenceNumbersJSON), episodeID)
	if err != nil {
		return errors.Wrap(err, "assign sequence numbers")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if affected != int64(len(ids)) {
		return errors.New("renumbered scene count mismatch",
			slog.Int64("affected", affected), slog.Int("expected", len(ids)))
	}
	return nil
}

func listScenes(ctx context.Context, q sqlx.QueryerContext, episodeID string) ([]models.Scene, error) {
	scenes := []models.Scene{}
	if err := sqlx.SelectContext(ctx, q, &scenes,
		selectScene+` WHERE episode_id = ? ORDER BY sequence_number`, episodeID); err != nil {
		return nil, errors.Wrap(err, "select scenes")
	}
	return scenes, nil
}
