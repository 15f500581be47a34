package plan

import (
	"bytes"
	"testing"

	"github.com/myrjola/manuscript/internal/models"
	"github.com/stretchr/testify/require"
)

func Test_printPlan(t *testing.T) {
	tests := []struct {
		name    string
		target  int
		pace    models.Pace
		want    string
		wantErr error
	}{
		{name: "rounds down", target: 25000, pace: models.PaceMedium, want: "2 episodes of 10000 words, target 20000 words\n"},
		{name: "fast", target: 15000, pace: models.PaceFast, want: "2 episodes of 7500 words, target 15000 words\n"},
		{name: "unknown pace", target: 15000, pace: "Glacial", wantErr: models.ErrInvalidInput},
		{name: "below one episode", target: 100, pace: models.PaceSlow, wantErr: models.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := printPlan(&out, tt.target, tt.pace)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, out.String())
		})
	}
}
