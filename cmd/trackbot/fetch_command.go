package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"trackbot/internal/delivery"
	"trackbot/internal/fetch"
	"trackbot/internal/textutil"
)

func newFetchCommand(ctx *commandContext) *cobra.Command {
	var keep bool

	cmd := &cobra.Command{
		Use:   "fetch <media-id>",
		Short: "Fetch and transcode one track without delivering it",
		Long: "Runs the same resolve, size gate and transcode steps as the bot. " +
			"The artifact is removed afterwards unless --keep is given.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			core, err := ctx.core(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			result := core.Engine.Fetch(cmd.Context(), strings.TrimSpace(args[0]))
			switch r := result.(type) {
			case fetch.Ready:
				fmt.Fprintf(out, "Title:    %s\n", r.Title)
				fmt.Fprintf(out, "Size:     %d bytes\n", r.SizeBytes)
				fmt.Fprintf(out, "Duration: %s\n", textutil.FormatDuration(int(r.Duration.Seconds())))
				if keep {
					fmt.Fprintf(out, "Path:     %s\n", r.Path)
					return r.Keep()
				}
				if err := r.Cleanup(); err != nil {
					return fmt.Errorf("remove artifact: %w", err)
				}
				fmt.Fprintln(out, "Artifact removed (use --keep to retain it)")
				return nil
			case fetch.TooLarge:
				return fmt.Errorf("%s (estimated %d bytes, basis %s)",
					delivery.TooLargeMessage(r.CeilingBytes), r.EstimatedBytes, r.Basis)
			case fetch.Failed:
				return r.Err
			default:
				return errors.New("unexpected fetch result")
			}
		},
	}
	cmd.Flags().BoolVar(&keep, "keep", false, "Leave the transcoded file in the work directory")
	return cmd
}
