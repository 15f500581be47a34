package main

import (
	"context"
	"io"
	"testing"

	"github.com/myrjola/manuscript/internal/sqlite"
	"github.com/myrjola/manuscript/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

func Test_verify(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.NewDatabase(ctx, ":memory:", testhelpers.NewLogger(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = verify(ctx, db)
	require.Error(t, err, "an empty database is suspicious")

	_, err = db.ReadWrite.ExecContext(ctx, `
INSERT INTO users (id, email, display_name, password_hash) VALUES ('u', 'u@example.com', 'u', 'hash');
INSERT INTO projects (id, user_id, title, genre, target_word_count, pace, number_of_episodes, words_written)
VALUES ('p', 'u', 'Title', '', 10000, 'Medium', 1, 5);
INSERT INTO episodes (id, project_id, title, sequence_number, target_word_count, current_word_count)
VALUES ('e', 'p', 'Episode 1', 1, 10000, 5);`)
	require.NoError(t, err)

	r, err := verify(ctx, db)
	require.NoError(t, err)
	require.Equal(t, report{Users: 1, Projects: 1, Episodes: 1, DriftedEpisodes: 1}, r)
}
