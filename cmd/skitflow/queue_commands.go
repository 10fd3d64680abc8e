package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"skitflow/internal/dialogue"
	"skitflow/internal/synthesis"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the dialogue store",
	}

	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))

	return queueCmd
}

func (c *commandContext) withStore(cmd *cobra.Command, fn func(store *dialogue.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := dialogue.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show line counts and the current pipeline stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(store *dialogue.Store) error {
				summary, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				snapshot, err := store.Classify(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				stageLabel := snapshot.Stage.String()
				if isTerminal(out) {
					stageLabel = ansiBlue + stageLabel + ansiReset
				}
				fmt.Fprintf(out, "Stage: %s\n", stageLabel)
				rows := [][]string{
					{"Total", strconv.Itoa(summary.Total)},
					{"Processed", strconv.Itoa(summary.Processed)},
					{"Eligible", strconv.Itoa(summary.Eligible)},
					{"Exhausted", strconv.Itoa(summary.Exhausted)},
				}
				fmt.Fprintln(out, renderTable([]string{"Lines", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all dialogue lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(store *dialogue.Store) error {
				lines, err := store.List(cmd.Context())
				if err != nil {
					return err
				}
				if len(lines) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Store is empty")
					return nil
				}

				rows := make([][]string, 0, len(lines))
				for _, line := range lines {
					rows = append(rows, []string{
						strconv.FormatInt(line.ID, 10),
						truncate(line.Sentence, 60),
						lineState(line),
						strconv.Itoa(line.RetryCount),
					})
				}
				table := renderTable(
					[]string{"ID", "Sentence", "State", "Retries"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one dialogue line in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid line id %q", args[0])
			}
			return ctx.withStore(cmd, func(store *dialogue.Store) error {
				line, err := store.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ID:           %d\n", line.ID)
				fmt.Fprintf(out, "Sentence:     %s\n", line.Sentence)
				fmt.Fprintf(out, "Character:    %s\n", synthesis.DisplayName(line.Character))
				fmt.Fprintf(out, "Image:        %s\n", line.Image)
				fmt.Fprintf(out, "Image search: %s\n", line.ImageSearch)
				fmt.Fprintf(out, "State:        %s\n", lineState(line))
				fmt.Fprintf(out, "Retries:      %d\n", line.RetryCount)
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var confirmed bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every line and reset identities",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmed {
				return fmt.Errorf("refusing to clear the store without --yes")
			}
			return ctx.withStore(cmd, func(store *dialogue.Store) error {
				if err := store.Reset(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Store cleared")
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&confirmed, "yes", "y", false, "Confirm the destructive clear")
	return cmd
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check dialogue database health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(store *dialogue.Store) error {
				health, err := store.CheckHealth(cmd.Context())
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Database:  %s\n", health.DBPath)
				fmt.Fprintf(out, "Exists:    %s\n", checkMark(health.DatabaseExists))
				fmt.Fprintf(out, "Readable:  %s\n", checkMark(health.DatabaseReadable))
				fmt.Fprintf(out, "Table:     %s\n", checkMark(health.TableExists))
				fmt.Fprintf(out, "Integrity: %s\n", checkMark(health.IntegrityCheck))
				fmt.Fprintf(out, "Lines:     %d\n", health.TotalLines)
				if health.Error != "" {
					fmt.Fprintf(out, "Error:     %s\n", health.Error)
				}
				return err
			})
		},
	}
}

func lineState(line dialogue.Line) string {
	switch {
	case line.AudioProcessed:
		return "processed"
	case line.Exhausted():
		return "exhausted"
	default:
		return "eligible"
	}
}

func checkMark(ok bool) string {
	if ok {
		return "ok"
	}
	return "MISSING"
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
