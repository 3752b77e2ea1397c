package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/stylist/internal/stylectl"
	"github.com/okian/stylist/pkg/logger"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Build an outfit on a running stylist server",
	Example: `  stylectl run -a 1 -a "Груша" -a 3 -i top=shirt.jpg -i bottom=jeans.png -i shoes=boots.jpg
  stylectl run --url http://localhost:9080 -a 2 -a 1 -a 1 -i dress=dress.webp -o out/look`,
	RunE: runRemoteCmd,
}

var (
	runURL     string
	runTimeout time.Duration
)

func init() {
	runCommand.Flags().StringVar(&runURL, "url", stylectl.DefaultBaseURL, "Base URL of the service")
	runCommand.Flags().DurationVar(&runTimeout, "timeout", stylectl.DefaultTimeout, "HTTP request timeout")
	addOutfitFlags(runCommand)
	rootCmd.AddCommand(runCommand)
}

func runRemoteCmd(cmd *cobra.Command, _ []string) error {
	cfg, closeLog, err := buildConfig()
	if err != nil {
		return err
	}
	defer closeLog()
	cfg.BaseURL = runURL
	cfg.Timeout = runTimeout

	ctx := cmd.Context()
	client := stylectl.NewClient(cfg.BaseURL, cfg.Timeout)
	if err := client.Healthy(ctx); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	res, err := stylectl.Run(ctx, client, cfg)
	if err != nil {
		return err
	}
	return stylectl.WriteReport(cmd.OutOrStdout(), res)
}

// buildConfig parses the shared flags and sets up logging.
func buildConfig() (*stylectl.Config, func(), error) {
	garments, err := stylectl.ParseGarments(flagGarments)
	if err != nil {
		return nil, nil, err
	}
	closeLog, err := stylectl.SetupLogging(flagVerbose, flagLogFile)
	if err != nil {
		return nil, nil, err
	}
	cfg := &stylectl.Config{
		Answers:  flagAnswers,
		Garments: garments,
		Output:   flagOutput,
		Logger:   logger.Named("stylectl"),
	}
	if err := cfg.Validate(); err != nil {
		closeLog()
		return nil, nil, err
	}
	return cfg, closeLog, nil
}
