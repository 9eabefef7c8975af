package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"trackbot/internal/services"
	"trackbot/internal/textutil"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search the index and list candidates",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			core, err := ctx.core(cmd)
			if err != nil {
				return err
			}
			query := strings.Join(args, " ")
			candidates, err := core.Catalog.Search(cmd.Context(), query)
			if errors.Is(err, services.ErrEmptyResult) {
				fmt.Fprintf(cmd.ErrOrStderr(), "No results for %q\n", query)
				return nil
			}
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(candidates))
			for i, c := range candidates {
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					c.MediaID,
					c.Title,
					textutil.FormatDuration(c.DurationSeconds),
				})
			}
			out := cmd.OutOrStdout()
			if isTerminal(out) {
				fmt.Fprintln(out, renderTable(
					[]string{"#", "ID", "Title", "Length"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight},
				))
				return nil
			}
			fmt.Fprintln(out, renderTabbed(rows))
			return nil
		},
	}
}
