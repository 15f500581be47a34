package models

import (
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/myrjola/manuscript/internal/errors"
)

type SceneStatus string

const (
	SceneStatusDraft      SceneStatus = "draft"
	SceneStatusInProgress SceneStatus = "in_progress"
	SceneStatusCompleted  SceneStatus = "completed"
	SceneStatusRevised    SceneStatus = "revised"
)

// Scene is the leaf of the hierarchy and the source of truth for word counts.
type Scene struct {
	ID             string      `db:"id"              json:"id"`
	EpisodeID      string      `db:"episode_id"      json:"episode_id"`
	Title          string      `db:"title"           json:"title"`
	Content        string      `db:"content"         json:"content"`
	Notes          *string     `db:"notes"           json:"notes"`
	WordCount      int         `db:"word_count"      json:"word_count"`
	Status         SceneStatus `db:"status"          json:"status"`
	SequenceNumber int         `db:"sequence_number" json:"sequence_number"`
	CreatedAt      time.Time   `db:"created_at"      json:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at"      json:"updated_at"`
}

// ContentUpdate is the result of editing a scene: the canonical scene row and the aggregates it rolled up into.
type ContentUpdate struct {
	Scene            Scene
	EpisodeWordCount int
	ProjectWordCount int
}

// CountWords returns the number of whitespace-delimited words in content.
func CountWords(content string) int {
	return len(strings.Fields(content))
}

// MoveScene returns a copy of the ordered sceneIDs where sceneID is moved to newIndex.
//
// The relative order of the other scenes is preserved. A newIndex past the end moves the scene last.
func MoveScene(sceneIDs []string, sceneID string, newIndex int) ([]string, error) {
	if newIndex < 0 {
		return nil, errors.Wrap(ErrInvalidInput, "new index must not be negative", slog.Int("new_index", newIndex))
	}
	current := slices.Index(sceneIDs, sceneID)
	if current == -1 {
		return nil, errors.Wrap(ErrNotFound, "scene not in episode", slog.String("scene_id", sceneID))
	}
	reordered := slices.Delete(slices.Clone(sceneIDs), current, current+1)
	newIndex = min(newIndex, len(reordered))
	return slices.Insert(reordered, newIndex, sceneID), nil
}
