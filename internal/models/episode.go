package models

import (
	"fmt"
	"time"
)

type EpisodeStatus string

const (
	EpisodeStatusNotStarted EpisodeStatus = "not_started"
	EpisodeStatusInProgress EpisodeStatus = "in_progress"
	EpisodeStatusCompleted  EpisodeStatus = "completed"
	EpisodeStatusRevised    EpisodeStatus = "revised"
)

// Episode is ranked within its project by SequenceNumber.
//
// CurrentWordCount is a cached sum of the scenes' WordCount.
type Episode struct {
	ID               string        `db:"id"                 json:"id"`
	ProjectID        string        `db:"project_id"         json:"project_id"`
	Title            string        `db:"title"              json:"title"`
	SequenceNumber   int           `db:"sequence_number"    json:"sequence_number"`
	CurrentWordCount int           `db:"current_word_count" json:"current_word_count"`
	TargetWordCount  int           `db:"target_word_count"  json:"target_word_count"`
	Status           EpisodeStatus `db:"status"             json:"status"`
	CreatedAt        time.Time     `db:"created_at"         json:"created_at"`
	UpdatedAt        time.Time     `db:"updated_at"         json:"updated_at"`
}

// NewEpisode holds the fields the caller chooses when creating an episode.
type NewEpisode struct {
	Title           string
	TargetWordCount int
}

// DefaultEpisodeTitle names the nth (1-based) episode generated at project creation.
func DefaultEpisodeTitle(n int) string {
	return fmt.Sprintf("Episode %d", n)
}
