package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"trackbot/internal/deps"
	"trackbot/internal/preflight"
	"trackbot/internal/staging"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Run readiness checks and report leftover artifacts in the work directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg, preflight.Options{SkipTelegram: offline})

			rows := make([][]string, 0, len(results)+3)
			for _, r := range results {
				rows = append(rows, []string{r.Name, passLabel(r.Passed), r.Detail})
			}
			leftoverOK := true
			count, size, err := staging.Usage(cfg.Paths.WorkDir)
			if err != nil {
				leftoverOK = false
				rows = append(rows, []string{"Leftover artifacts", passLabel(false), err.Error()})
			} else {
				rows = append(rows, []string{"Leftover artifacts", passLabel(true), fmt.Sprintf("%d file(s), %d bytes", count, size)})
			}
			statuses := deps.Check(cfg)
			for _, s := range statuses {
				detail := s.Command
				if s.Detail != "" {
					detail = s.Detail
				}
				rows = append(rows, []string{s.Name, passLabel(s.Available), detail})
			}

			out := cmd.OutOrStdout()
			if isTerminal(out) {
				fmt.Fprintln(out, renderTable([]string{"Check", "Status", "Detail"}, rows, nil))
			} else {
				fmt.Fprintln(out, renderTabbed(rows))
			}

			failures := len(preflight.Failed(results)) + len(deps.Missing(statuses))
			if !leftoverOK {
				failures++
			}
			if failures > 0 {
				return fmt.Errorf("%d readiness check(s) failed", failures)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the Bot API reachability check")
	return cmd
}

func passLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "FAIL"
}
