// Package main is the stylist command-line client.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/okian/stylist/internal/stylectl"
)

var rootCmd = &cobra.Command{
	Use:   "stylectl",
	Short: "Style quiz and outfit builder",
	Long: `stylectl answers the style quiz, uploads garment photos and saves the outfit preview.

Use "run" against a stylist server or "local" to do everything in-process.`,
	SilenceUsage: true,
}

var (
	flagAnswers  []string
	flagGarments []string
	flagOutput   string
	flagVerbose  bool
	flagLogFile  string
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log every step")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log", "", "Also write logs to this file")
}

// addOutfitFlags registers the flags shared by run and local.
func addOutfitFlags(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&flagAnswers, "answer", "a", nil,
		"Quiz answer, once per question in order (option text or 1-based number)")
	cmd.Flags().StringArrayVarP(&flagGarments, "item", "i", nil,
		"Garment as category=path (top, bottom, dress, outer, shoes, accessory)")
	cmd.Flags().StringVarP(&flagOutput, "out", "o", stylectl.DefaultOutput, "Preview path; the extension follows the image type")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
