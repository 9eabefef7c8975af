package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"trackbot/internal/deps"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check that yt-dlp and ffmpeg are installed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			statuses := deps.Check(cfg)
			rows := make([][]string, 0, len(statuses))
			for _, s := range statuses {
				rows = append(rows, []string{s.Name, yesNo(s.Available), s.Command, s.Detail})
			}
			out := cmd.OutOrStdout()
			if isTerminal(out) {
				fmt.Fprintln(out, renderTable([]string{"Dependency", "Available", "Command", "Detail"}, rows, nil))
			} else {
				fmt.Fprintln(out, renderTabbed(rows))
			}

			missing := deps.Missing(statuses)
			if len(missing) == 0 {
				return nil
			}
			names := make([]string, 0, len(missing))
			for _, m := range missing {
				names = append(names, m.Name)
			}
			return fmt.Errorf("missing required dependencies: %s", strings.Join(names, ", "))
		},
	}
}
