package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/okian/stylist/internal/domain/quiz"
)

var quizCommand = &cobra.Command{
	Use:   "quiz",
	Short: "Print the quiz questions and their option numbers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var b strings.Builder
		for i, q := range quiz.Questions() {
			fmt.Fprintf(&b, "%d. %s\n", i+1, q.Prompt)
			for j, opt := range q.Options {
				fmt.Fprintf(&b, "   %d) %s\n", j+1, opt)
			}
		}
		_, err := fmt.Fprint(cmd.OutOrStdout(), b.String())
		return err
	},
}

func init() {
	rootCmd.AddCommand(quizCommand)
}
