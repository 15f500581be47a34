package repositories_test

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/myrjola/manuscript/internal/models"
	"github.com/myrjola/manuscript/internal/repositories"
	"github.com/myrjola/manuscript/internal/sqlite"
	"github.com/myrjola/manuscript/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

func newSceneRepository(t *testing.T) (*repositories.SceneRepository, *sqlite.Database) {
	t.Helper()
	dbs := newTestDB(t)
	return repositories.NewSceneRepository(dbs, testhelpers.NewLogger(io.Discard)), dbs
}

func sceneIDs(scenes []models.Scene) []string {
	ids := make([]string, len(scenes))
	for i, scene := range scenes {
		ids[i] = scene.ID
	}
	return ids
}

func sequenceNumbers(scenes []models.Scene) []int {
	numbers := make([]int, len(scenes))
	for i, scene := range scenes {
		numbers[i] = scene.SequenceNumber
	}
	return numbers
}

type aggregates struct {
	Episode1 int `db:"episode_1"`
	Episode2 int `db:"episode_2"`
	Project  int `db:"project"`
}

func readAggregates(t *testing.T, dbs *sqlite.Database) aggregates {
	t.Helper()
	var got aggregates
	err := dbs.ReadOnly.GetContext(context.Background(), &got, `SELECT
(SELECT current_word_count FROM episodes WHERE id = 'episode-1') AS episode_1,
(SELECT current_word_count FROM episodes WHERE id = 'episode-2') AS episode_2,
(SELECT words_written FROM projects WHERE id = 'project-novel') AS project`)
	require.NoError(t, err)
	return got
}

func TestSceneRepository_UpdateContent(t *testing.T) {
	ctx := context.Background()

	t.Run("rolls word count up to episode and project", func(t *testing.T) {
		repo, dbs := newSceneRepository(t)

		update, err := repo.UpdateContent(ctx, "episode-1", "scene-b", "one two three")
		require.NoError(t, err)
		require.Equal(t, 3, update.Scene.WordCount)
		require.Equal(t, "one two three", update.Scene.Content)
		require.Equal(t, "scene-b", update.Scene.ID)
		require.Equal(t, 2, update.Scene.SequenceNumber)
		// "hello world" plus "one two three".
		require.Equal(t, 5, update.EpisodeWordCount)
		require.Equal(t, 8, update.ProjectWordCount)
		require.Equal(t, aggregates{Episode1: 5, Episode2: 3, Project: 8}, readAggregates(t, dbs))
	})

	t.Run("whitespace only content counts zero", func(t *testing.T) {
		repo, dbs := newSceneRepository(t)

		update, err := repo.UpdateContent(ctx, "episode-1", "scene-a", "  \n\t ")
		require.NoError(t, err)
		require.Zero(t, update.Scene.WordCount)
		require.Equal(t, 1, update.EpisodeWordCount)
		require.Equal(t, aggregates{Episode1: 1, Episode2: 3, Project: 4}, readAggregates(t, dbs))
	})

	t.Run("heals corrupted aggregates", func(t *testing.T) {
		repo, dbs := newSceneRepository(t)
		_, err := dbs.ReadWrite.ExecContext(ctx, `UPDATE episodes SET current_word_count = 999;
UPDATE projects SET words_written = 12345 WHERE id = 'project-novel'`)
		require.NoError(t, err)

		update, err := repo.UpdateContent(ctx, "episode-2", "scene-y", "new words")
		require.NoError(t, err)
		require.Equal(t, 5, update.EpisodeWordCount)
		// Episode 1 still carries its corrupted value since only its sibling was edited.
		require.Equal(t, 999+5, update.ProjectWordCount)

		_, err = repo.UpdateContent(ctx, "episode-1", "scene-a", "hello world")
		require.NoError(t, err)
		require.Equal(t, aggregates{Episode1: 3, Episode2: 5, Project: 8}, readAggregates(t, dbs))
	})

	t.Run("scene from another episode is not found", func(t *testing.T) {
		repo, dbs := newSceneRepository(t)

		_, err := repo.UpdateContent(ctx, "episode-1", "scene-x", "spoofed")
		require.ErrorIs(t, err, models.ErrNotFound)

		scenes, err := repo.ListByEpisode(ctx, "episode-2")
		require.NoError(t, err)
		require.Equal(t, "alpha beta gamma", scenes[0].Content)
		require.Equal(t, aggregates{Episode1: 3, Episode2: 3, Project: 6}, readAggregates(t, dbs))
	})

	t.Run("failed aggregate rolls back scene write", func(t *testing.T) {
		repo, dbs := newSceneRepository(t)
		// Make the project recomputation fail inside the transaction.
		_, err := dbs.ReadWrite.ExecContext(ctx, `CREATE TRIGGER fail_project_update BEFORE UPDATE ON projects
BEGIN SELECT RAISE(ABORT, 'project unavailable'); END`)
		require.NoError(t, err)

		_, err = repo.UpdateContent(ctx, "episode-1", "scene-b", "one two three four")
		require.ErrorContains(t, err, "project unavailable")

		scenes, err := repo.ListByEpisode(ctx, "episode-1")
		require.NoError(t, err)
		require.Equal(t, "one", scenes[1].Content)
		require.Equal(t, 1, scenes[1].WordCount)
		require.Equal(t, aggregates{Episode1: 3, Episode2: 3, Project: 6}, readAggregates(t, dbs))
	})
}

func TestSceneRepository_Reorder(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name     string
		sceneID  string
		newIndex int
		want     []string
		wantErr  error
	}{
		{name: "last to first", sceneID: "scene-z", newIndex: 0, want: []string{"scene-z", "scene-x", "scene-y"}},
		{name: "first to last", sceneID: "scene-x", newIndex: 2, want: []string{"scene-y", "scene-z", "scene-x"}},
		{name: "same position", sceneID: "scene-y", newIndex: 1, want: []string{"scene-x", "scene-y", "scene-z"}},
		{name: "past the end", sceneID: "scene-x", newIndex: 10, want: []string{"scene-y", "scene-z", "scene-x"}},
		{name: "negative index", sceneID: "scene-x", newIndex: -1, wantErr: models.ErrInvalidInput},
		{name: "scene of another episode", sceneID: "scene-a", newIndex: 0, wantErr: models.ErrNotFound},
		{name: "unknown scene", sceneID: "missing", newIndex: 0, wantErr: models.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, _ := newSceneRepository(t)

			got, err := repo.Reorder(ctx, "episode-2", tt.sceneID, tt.newIndex)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				scenes, listErr := repo.ListByEpisode(ctx, "episode-2")
				require.NoError(t, listErr)
				require.Equal(t, []string{"scene-x", "scene-y", "scene-z"}, sceneIDs(scenes))
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, sceneIDs(got))
			require.Equal(t, []int{1, 2, 3}, sequenceNumbers(got))

			persisted, err := repo.ListByEpisode(ctx, "episode-2")
			require.NoError(t, err)
			require.Equal(t, got, persisted)
		})
	}
}

func TestSceneRepository_ReorderCompactsGaps(t *testing.T) {
	ctx := context.Background()
	repo, dbs := newSceneRepository(t)
	_, err := dbs.ReadWrite.ExecContext(ctx, `UPDATE scenes SET sequence_number = 5 WHERE id = 'scene-z';
UPDATE scenes SET sequence_number = 4 WHERE id = 'scene-y'`)
	require.NoError(t, err)

	got, err := repo.Reorder(ctx, "episode-2", "scene-z", 1)
	require.NoError(t, err)
	require.Equal(t, []string{"scene-x", "scene-z", "scene-y"}, sceneIDs(got))
	require.Equal(t, []int{1, 2, 3}, sequenceNumbers(got))
}

func TestSceneRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("first scene gets sequence number one", func(t *testing.T) {
		repo, _ := newSceneRepository(t)
		scene, err := repo.Create(ctx, "episode-empty", "Opening")
		require.NoError(t, err)
		require.Equal(t, 1, scene.SequenceNumber)
		require.Equal(t, "Opening", scene.Title)
		require.Equal(t, models.SceneStatusDraft, scene.Status)
		require.Zero(t, scene.WordCount)
		require.Empty(t, scene.Content)
		require.Nil(t, scene.Notes)
		require.False(t, scene.CreatedAt.IsZero())
	})

	t.Run("appends after the maximum regardless of gaps", func(t *testing.T) {
		repo, dbs := newSceneRepository(t)
		_, err := dbs.ReadWrite.ExecContext(ctx, `UPDATE scenes SET sequence_number = 7 WHERE id = 'scene-z'`)
		require.NoError(t, err)

		scene, err := repo.Create(ctx, "episode-2", "Finale")
		require.NoError(t, err)
		require.Equal(t, 8, scene.SequenceNumber)
	})

	t.Run("unknown episode", func(t *testing.T) {
		repo, _ := newSceneRepository(t)
		_, err := repo.Create(ctx, "missing", "Nowhere")
		require.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("title is required", func(t *testing.T) {
		repo, _ := newSceneRepository(t)
		_, err := repo.Create(ctx, "episode-2", "")
		require.ErrorIs(t, err, models.ErrInvalidInput)
	})

	t.Run("concurrent creations get distinct sequence numbers", func(t *testing.T) {
		repo, _ := newSceneRepository(t)
		const creations = 20
		var wg sync.WaitGroup
		errs := make(chan error, creations)
		for i := range creations {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.Create(ctx, "episode-empty", fmt.Sprintf("Scene %d", i))
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		scenes, err := repo.ListByEpisode(ctx, "episode-empty")
		require.NoError(t, err)
		want := make([]int, creations)
		for i := range want {
			want[i] = i + 1
		}
		require.Equal(t, want, sequenceNumbers(scenes))
	})
}

func BenchmarkSceneRepository_UpdateContent(b *testing.B) {
	ctx := context.Background()
	dbs := newBenchmarkDB(b)
	repo := repositories.NewSceneRepository(dbs, testhelpers.NewLogger(io.Discard))
	b.ResetTimer()
	for i := range b.N {
		if _, err := repo.UpdateContent(ctx, "episode-1", "scene-a", fmt.Sprintf("word %d", i)); err != nil {
			b.Fatal(err)
		}
	}
}
