package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"textmask/internal/deps"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check external tool and model availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := isTerminal(out)

			statuses := deps.Check(deps.ForConfig(cfg))
			rows := make([][]string, 0, len(statuses))
			for _, status := range statuses {
				rows = append(rows, []string{
					status.Name,
					stateLabel(status, colorize),
					status.Command,
					statusDetail(status),
				})
			}

			fmt.Fprintln(out, renderTable(
				[]string{"Dependency", "Status", "Location", "Detail"},
				rows,
				nil,
			))

			if missing := deps.MissingRequired(statuses); len(missing) > 0 {
				return fmt.Errorf("missing required dependencies: %s", strings.Join(missing, ", "))
			}
			return nil
		},
	}
}

func stateLabel(status deps.Status, colorize bool) string {
	switch {
	case status.Available:
		return maybeColor("OK", ansiGreen, colorize)
	case status.Optional:
		return maybeColor("MISSING (optional)", ansiYellow, colorize)
	default:
		return maybeColor("MISSING", ansiRed, colorize)
	}
}

func statusDetail(status deps.Status) string {
	if status.Detail != "" {
		return status.Detail
	}
	return status.Description
}

func maybeColor(label, color string, colorize bool) string {
	if !colorize {
		return label
	}
	return color + label + ansiReset
}
