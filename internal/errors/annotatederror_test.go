package errors

import (
	"fmt"
	"log/slog"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAnnotatedError(t *testing.T) {
	err := New("test error", slog.String("id", "123"))
	require.Equal(t, "test error", err.Error())

	// Assert that wrapping sentinel errors work as expected.
	sentinel := NewSentinel("test error")
	require.NotErrorIs(t, err, NewSentinel("test error"))
	wrapped := Wrap(sentinel, "read scene", slog.String("scene_id", "abc"))
	require.ErrorIs(t, wrapped, sentinel)
	require.Equal(t, "read scene: test error", wrapped.Error())

	// Ensure log values are coming through.
	var annotated AnnotatedError
	require.True(t, As(err, &annotated))
	group := annotated.LogValue().Group()
	require.Contains(t, group, slog.String("id", "123"))

	// Assert there's a valid source
	sourceIdx := slices.IndexFunc(group, func(attr slog.Attr) bool {
		return attr.Key == "source"
	})
	require.NotEqual(t, -1, sourceIdx)
	require.Contains(t, group[sourceIdx].Value.String(), "annotatederror_test.go")
}

func TestWrapNil(t *testing.T) {
	require.NoError(t, Wrap(nil, "nothing to wrap"))
}

func TestSlogError(t *testing.T) {
	sentinel := NewSentinel("not found")
	inner := Wrap(sentinel, "query scene", slog.String("scene_id", "s1"))
	outer := Wrap(fmt.Errorf("repository: %w", inner), "update content", slog.String("episode_id", "e1"))

	attr := SlogError(outer)
	require.Equal(t, "error", attr.Key)
	group := attr.Value.Group()
	require.Contains(t, group, slog.String("message", outer.Error()))
	require.Contains(t, group, slog.String("scene_id", "s1"))
	require.Contains(t, group, slog.String("episode_id", "e1"))

	sourceIdx := slices.IndexFunc(group, func(attr slog.Attr) bool {
		return attr.Key == "source"
	})
	require.NotEqual(t, -1, sourceIdx)
	require.Contains(t, group[sourceIdx].Value.String(), "annotatederror_test.go")

	plain := SlogError(sentinel)
	require.Equal(t, []slog.Attr{slog.String("message", "not found")}, plain.Value.Group())
}

func TestMessageFor(t *testing.T) {
	sentinel := NewSentinel("not found")
	tests := []struct {
		name   string
		err    error
		want   string
		wantOK bool
	}{
		{name: "direct", err: Wrap(sentinel, "scene not in episode"), want: "scene not in episode", wantOK: true},
		{
			name:   "wrapped further",
			err:    Wrap(Wrap(sentinel, "episode not found"), "list scenes"),
			want:   "episode not found",
			wantOK: true,
		},
		{
			name:   "behind fmt wrapping",
			err:    fmt.Errorf("handler: %w", Wrap(sentinel, "project not found")),
			want:   "project not found",
			wantOK: true,
		},
		{name: "bare sentinel", err: sentinel, wantOK: false},
		{name: "other cause", err: Wrap(New("boom"), "read"), wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := MessageFor(tt.err, sentinel)
			require.Equal(t, tt.wantOK, ok)
			require.Equal(t, tt.want, got)
		})
	}
}
