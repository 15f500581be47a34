// Package plan previews how a project's target word count is split into episodes.
package plan

import (
	"fmt"
	"io"
	"strconv"

	"github.com/myrjola/manuscript/internal/errors"
	"github.com/myrjola/manuscript/internal/models"
	"github.com/spf13/cobra"
)

var Group = &cobra.Group{
	ID:    "planning",
	Title: "Planning",
}

var pace string

func init() {
	Episodes.Flags().StringVar(&pace, "pace", string(models.PaceMedium), "pace of the project: Slow, Medium or Fast")
}

var Episodes = &cobra.Command{
	Use:     "plan <target-word-count>",
	GroupID: "planning",
	Short:   "Preview the episodes of a project",
	Long:    "Prints how many episodes a project with the given target word count and pace is created with.",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := strconv.Atoi(args[0])
		if err != nil {
			return errors.Wrap(err, "parse target word count")
		}
		return printPlan(cmd.OutOrStdout(), target, models.Pace(pace))
	},
}

func printPlan(w io.Writer, target int, pace models.Pace) error {
	plan, err := models.PlanEpisodes(target, pace)
	if err != nil {
		return errors.Wrap(err, "plan episodes")
	}
	_, err = fmt.Fprintf(w, "%d episodes of %d words, target %d words\n",
		plan.NumberOfEpisodes, plan.WordsPerEpisode, plan.TargetWordCount)
	if err != nil {
		return errors.Wrap(err, "write plan")
	}
	return nil
}
