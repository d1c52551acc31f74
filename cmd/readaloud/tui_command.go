package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/glabrego/readaloud-cli/internal/tui"
)

func newTUICommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "tui",
		Short:       "Browse and listen in the terminal UI (default)",
		Annotations: map[string]string{annotationLogToFile: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, ctx)
		},
	}
}

func runTUI(cmd *cobra.Command, ctx *commandContext) error {
	notices := &tui.Notices{}
	return ctx.withApp(cmd, notices, func(runCtx context.Context, rt *appRuntime) error {
		model := tui.NewModel(rt.service, rt.service.Pages(), rt.service.SelectedVoice())
		program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(runCtx))
		notices.Attach(program)
		defer notices.Attach(nil)

		rt.logger.Info("tui started", "backend", rt.cfg.Backend.BaseURL, "proxy", rt.cfg.Speech.ProxyURL)
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("tui error: %w", err)
		}
		return nil
	})
}
