package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/myrjola/manuscript/cmd/cli/db"
	"github.com/myrjola/manuscript/cmd/cli/plan"
	"github.com/myrjola/manuscript/internal/errors"
	"github.com/spf13/cobra"
)

func init() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	rootCmd.AddGroup(db.Group)
	rootCmd.AddCommand(db.Migrate)
	rootCmd.AddCommand(db.Recount)
	rootCmd.AddGroup(plan.Group)
	rootCmd.AddCommand(plan.Episodes)
}

var rootCmd = &cobra.Command{
	Use:  "manuscript-cli",
	Long: `Command line utilities for Manuscript, the serialized fiction writing service`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
