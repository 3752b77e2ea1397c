package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	app "github.com/okian/stylist/internal/app"
	"github.com/okian/stylist/internal/config"
	"github.com/okian/stylist/internal/stylectl"
	"github.com/okian/stylist/pkg/logger"
)

var localCommand = &cobra.Command{
	Use:   "local",
	Short: "Build an outfit in-process without a server",
	Long: `Runs the same quiz, upload and outfit flow as "run" against an embedded service.

Service settings come from STYLIST_* environment variables and the file named by STYLIST_CONFIG.`,
	RunE: runLocalCmd,
}

func init() {
	addOutfitFlags(localCommand)
	rootCmd.AddCommand(localCommand)
}

func runLocalCmd(cmd *cobra.Command, _ []string) error {
	cfg, closeLog, err := buildConfig()
	if err != nil {
		return err
	}
	defer closeLog()

	ctx := cmd.Context()
	svcCfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	svc := app.New(
		app.WithLogger(logger.Named("service")),
		app.WithWorkerCount(svcCfg.WorkerCount),
		app.WithQueueSize(svcCfg.QueueSize),
		app.WithMaxItems(svcCfg.MaxWardrobeItems),
		app.WithColorWaitTimeout(svcCfg.ColorWaitTimeout()),
		app.WithExtractTimeout(svcCfg.ExtractTimeout()),
		app.WithDefaultColor(svcCfg.DefaultColor),
		app.WithJPEGQuality(svcCfg.JPEGQuality),
	)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop(context.WithoutCancel(ctx))

	res, err := stylectl.Run(ctx, svc, cfg)
	if err != nil {
		return err
	}
	return stylectl.WriteReport(cmd.OutOrStdout(), res)
}
