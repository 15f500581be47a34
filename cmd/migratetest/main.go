package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/myrjola/manuscript/internal/errors"
	"github.com/myrjola/manuscript/internal/sqlite"
	"github.com/myrjola/manuscript/internal/testhelpers"
)

type report struct {
	Users    int `db:"users"`
	Projects int `db:"projects"`
	Episodes int `db:"episodes"`
	Scenes   int `db:"scenes"`
	// DriftedEpisodes and DriftedProjects count cached word counts that disagree with their children.
	DriftedEpisodes int `db:"drifted_episodes"`
	DriftedProjects int `db:"drifted_projects"`
}

const reportSQL = `SELECT
  (SELECT COUNT(*) FROM users) AS users,
  (SELECT COUNT(*) FROM projects) AS projects,
  (SELECT COUNT(*) FROM episodes) AS episodes,
  (SELECT COUNT(*) FROM scenes) AS scenes,
  (SELECT COUNT(*) FROM episodes e
   WHERE e.current_word_count != (SELECT COALESCE(SUM(s.word_count), 0) FROM scenes s WHERE s.episode_id = e.id)
  ) AS drifted_episodes,
  (SELECT COUNT(*) FROM projects p
   WHERE p.words_written != (SELECT COALESCE(SUM(e.current_word_count), 0) FROM episodes e WHERE e.project_id = p.id)
  ) AS drifted_projects`

// verify checks a freshly migrated database. Drift is only reported since recount repairs it.
func verify(ctx context.Context, db *sqlite.Database) (report, error) {
	var integrity string
	if err := db.ReadOnly.GetContext(ctx, &integrity, `PRAGMA integrity_check`); err != nil {
		return report{}, errors.Wrap(err, "integrity check")
	}
	if integrity != "ok" {
		return report{}, errors.New("integrity check failed", slog.String("result", integrity))
	}
	var r report
	if err := db.ReadOnly.GetContext(ctx, &r, reportSQL); err != nil {
		return report{}, errors.Wrap(err, "query report")
	}
	if r.Users == 0 {
		return r, errors.New("no users found, something is likely wrong")
	}
	return r, nil
}

func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	var (
		err       error
		start     = time.Now()
		ctx       context.Context
		sqliteURL string
		ok        bool
		cancel    context.CancelFunc
	)
	ctx = context.Background()
	ctx, cancel = context.WithTimeout(ctx, 5*time.Second) //nolint:mnd // 5 seconds

	if sqliteURL, ok = os.LookupEnv("MANUSCRIPT_SQLITE_URL"); !ok {
		logger.LogAttrs(ctx, slog.LevelError, "MANUSCRIPT_SQLITE_URL not set")
		os.Exit(1)
	}

	var db *sqlite.Database
	if db, err = sqlite.NewDatabase(ctx, sqliteURL, logger); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating database",
			slog.String("url", sqliteURL), errors.SlogError(err))
		os.Exit(1)
	}

	r, err := verify(ctx, db)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error verifying migrated database", errors.SlogError(err))
		os.Exit(1)
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "row counts",
		slog.Int("users", r.Users), slog.Int("projects", r.Projects),
		slog.Int("episodes", r.Episodes), slog.Int("scenes", r.Scenes))
	if r.DriftedEpisodes > 0 || r.DriftedProjects > 0 {
		logger.LogAttrs(ctx, slog.LevelWarn, "cached word counts drifted, run manuscript-cli recount",
			slog.Int("episodes", r.DriftedEpisodes), slog.Int("projects", r.DriftedProjects))
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Migration test successful 🙌", slog.Duration("duration", time.Since(start)))
	_ = db.Close()
	cancel()
	os.Exit(0)
}
