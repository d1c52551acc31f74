package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/glabrego/readaloud-cli/internal/speech"
)

func newVoicesCommand(ctx *commandContext) *cobra.Command {
	voicesCmd := &cobra.Command{
		Use:   "voices",
		Short: "List voices from the speech proxy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, nil, func(runCtx context.Context, rt *appRuntime) error {
				voices, err := rt.service.Voices(runCtx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(voices) == 0 {
					fmt.Fprintln(out, "The speech proxy returned no voices.")
					return nil
				}
				fmt.Fprintln(out, renderVoices(voices, rt.service.SelectedVoice()))
				return nil
			})
		},
	}
	voicesCmd.AddCommand(newVoiceSelectCommand(ctx))
	return voicesCmd
}

func newVoiceSelectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "select <voice-id>",
		Short: "Remember the voice used for reading",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, nil, func(runCtx context.Context, rt *appRuntime) error {
				if err := rt.service.SelectVoice(runCtx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Voice set to %s\n", args[0])
				return nil
			})
		},
	}
}

func renderVoices(voices []speech.Voice, selected string) string {
	rows := make([][]string, 0, len(voices))
	for _, v := range voices {
		mark := ""
		if v.ID == selected {
			mark = "*"
		}
		rows = append(rows, []string{mark, v.ID, v.DisplayName, v.Locale, v.Gender})
	}
	return renderTable([]string{"", "ID", "Name", "Locale", "Gender"}, rows, nil)
}
