package models

import (
	"log/slog"
	"time"

	"github.com/myrjola/manuscript/internal/errors"
)

// Pace determines how many words an episode of a project is budgeted for.
type Pace string

const (
	PaceSlow   Pace = "Slow"
	PaceMedium Pace = "Medium"
	PaceFast   Pace = "Fast"
)

// WordsPerEpisode returns the per-episode word budget of the pace or 0 for an unknown pace.
func (p Pace) WordsPerEpisode() int {
	switch p {
	case PaceSlow:
		return 15000 //nolint:mnd // budget of a slow paced episode.
	case PaceMedium:
		return 10000 //nolint:mnd // budget of a medium paced episode.
	case PaceFast:
		return 7500 //nolint:mnd // budget of a fast paced episode.
	default:
		return 0
	}
}

// EpisodePlan is the outcome of splitting a target word count into episodes.
type EpisodePlan struct {
	NumberOfEpisodes int
	WordsPerEpisode  int
	// TargetWordCount is the requested target rounded down to whole episodes.
	TargetWordCount int
}

// PlanEpisodes splits targetWordCount into whole episodes sized by pace.
func PlanEpisodes(targetWordCount int, pace Pace) (EpisodePlan, error) {
	perEpisode := pace.WordsPerEpisode()
	if perEpisode == 0 {
		return EpisodePlan{}, errors.Wrap(ErrInvalidInput, "invalid pace", slog.String("pace", string(pace)))
	}
	if targetWordCount <= 0 {
		return EpisodePlan{}, errors.Wrap(ErrInvalidInput, "target word count must be greater than zero")
	}
	episodes := targetWordCount / perEpisode
	if episodes == 0 {
		return EpisodePlan{}, errors.Wrap(ErrInvalidInput, "target word count is smaller than one episode",
			slog.Int("target_word_count", targetWordCount), slog.Int("words_per_episode", perEpisode))
	}
	return EpisodePlan{
		NumberOfEpisodes: episodes,
		WordsPerEpisode:  perEpisode,
		TargetWordCount:  episodes * perEpisode,
	}, nil
}

type ProjectStatus string

const (
	ProjectStatusDraft      ProjectStatus = "draft"
	ProjectStatusInProgress ProjectStatus = "in_progress"
	ProjectStatusCompleted  ProjectStatus = "completed"
	ProjectStatusArchived   ProjectStatus = "archived"
)

// Project is the root of the project → episode → scene hierarchy.
//
// WordsWritten is a cached sum of the episodes' CurrentWordCount.
type Project struct {
	ID               string        `db:"id"                 json:"id"`
	UserID           string        `db:"user_id"            json:"user_id"`
	Title            string        `db:"title"              json:"title"`
	Genre            string        `db:"genre"              json:"genre"`
	TargetWordCount  int           `db:"target_word_count"  json:"target_word_count"`
	WordsWritten     int           `db:"words_written"      json:"words_written"`
	Pace             Pace          `db:"pace"               json:"pace"`
	NumberOfEpisodes int           `db:"number_of_episodes" json:"number_of_episodes"`
	CoverColor       *string       `db:"cover_color"        json:"cover_color"`
	Status           ProjectStatus `db:"status"             json:"status"`
	CreatedAt        time.Time     `db:"created_at"         json:"created_at"`
	UpdatedAt        time.Time     `db:"updated_at"         json:"updated_at"`
}

// NewProject holds the fields the caller chooses when creating a project.
type NewProject struct {
	UserID          string
	Title           string
	Genre           string
	TargetWordCount int
	Pace            Pace
	CoverColor      *string
}
