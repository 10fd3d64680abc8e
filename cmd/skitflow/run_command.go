package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"skitflow/internal/compose"
	"skitflow/internal/dialogue"
	"skitflow/internal/imagesearch"
	"skitflow/internal/intake"
	"skitflow/internal/logging"
	"skitflow/internal/notifications"
	"skitflow/internal/synthesis"
	"skitflow/internal/synthesis/sherpa"
	"skitflow/internal/telegram"
	"skitflow/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Execute one pipeline invocation",
		Long: `Classify the dialogue store and run the stage it selects: intake when
the store is empty, synthesis while eligible lines remain, render once
every line is settled. Re-invocation advances the cycle.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("initialize logging: %w", err)
			}

			store, err := dialogue.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			client := telegram.New(cfg.Telegram.BotToken, cfg.Telegram.ChatID,
				time.Duration(cfg.Telegram.RequestTimeout)*time.Second)
			notifier := notifications.NewService(cfg, logger)

			session := sherpa.NewEngine(cfg)
			defer session.Close()

			intakeStage := intake.NewHandler(cfg, store, client, notifier, logger)
			synthesisStage := synthesis.NewHandler(cfg, store, session, logger)
			renderStage := compose.NewHandler(cfg, store,
				compose.FFprobeProber{Binary: cfg.Render.FFprobeBinary},
				imagesearch.New(time.Duration(cfg.Telegram.RequestTimeout)*time.Second),
				logger)

			manager := workflow.NewManager(cfg, store, intakeStage, synthesisStage, renderStage, notifier, logger)
			return manager.Run(cmd.Context())
		},
	}
}
