// Package db holds the maintenance commands that operate directly on the SQLite database.
package db

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/myrjola/manuscript/internal/envstruct"
	"github.com/myrjola/manuscript/internal/errors"
	"github.com/myrjola/manuscript/internal/logging"
	"github.com/myrjola/manuscript/internal/repositories"
	"github.com/myrjola/manuscript/internal/sqlite"
	"github.com/spf13/cobra"
)

var Group = &cobra.Group{
	ID:    "db",
	Title: "Database",
}

type config struct {
	SqliteURL string `env:"MANUSCRIPT_SQLITE_URL" envDefault:"./manuscript.sqlite3"`
}

var Migrate = &cobra.Command{
	Use:     "migrate",
	GroupID: "db",
	Short:   "Migrate the database schema",
	Long:    "Brings the database at MANUSCRIPT_SQLITE_URL to the schema of this build. Existing rows are kept.",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		dbs, err := open(cmd.Context(), cmd.ErrOrStderr(), os.LookupEnv)
		if err != nil {
			return err
		}
		if err = dbs.Close(); err != nil {
			return errors.Wrap(err, "close db")
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
		return nil
	},
}

var Recount = &cobra.Command{
	Use:     "recount",
	GroupID: "db",
	Short:   "Recompute cached word counts",
	Long:    "Recomputes the word counts of every episode and project from their scenes in one transaction.",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return recount(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), os.LookupEnv)
	},
}

func recount(ctx context.Context, stdout, stderr io.Writer, lookupEnv func(string) (string, bool)) error {
	dbs, err := open(ctx, stderr, lookupEnv)
	if err != nil {
		return err
	}
	defer func() {
		_ = dbs.Close()
	}()
	projects := repositories.NewProjectRepository(dbs, newLogger(stderr))
	var n int
	if n, err = projects.RecountAll(ctx); err != nil {
		return errors.Wrap(err, "recount all projects")
	}
	_, _ = fmt.Fprintf(stdout, "recounted %d projects\n", n)
	return nil
}

func open(ctx context.Context, stderr io.Writer, lookupEnv func(string) (string, bool)) (*sqlite.Database, error) {
	var cfg config
	if err := envstruct.Populate(&cfg, lookupEnv); err != nil {
		return nil, errors.Wrap(err, "populate config")
	}
	dbs, err := sqlite.NewDatabase(ctx, cfg.SqliteURL, newLogger(stderr))
	if err != nil {
		return nil, errors.Wrap(err, "open db", slog.String("url", cfg.SqliteURL))
	}
	return dbs, nil
}

func newLogger(w io.Writer) *slog.Logger {
	return slog.New(logging.NewContextHandler(slog.NewTextHandler(w, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelInfo,
		ReplaceAttr: nil,
	})))
}
