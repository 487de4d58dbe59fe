package main

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cuongbtq/pi-work/internal/dispatcher"
)

// effectsCmd runs dispatcher effects off the update loop.
// Each result comes back to Update as a dispatcher.Event.
func effectsCmd(ctx context.Context, effects []dispatcher.Effect) tea.Cmd {
	if len(effects) == 0 {
		return nil
	}

	cmds := make([]tea.Cmd, 0, len(effects))
	for _, e := range effects {
		cmds = append(cmds, func() tea.Msg {
			return e.Run(ctx)
		})
	}
	return tea.Batch(cmds...)
}
