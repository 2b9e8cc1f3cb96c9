package tui

import (
	"context"
	"fmt"

	"github.com/Veraticus/statement-ledger/internal/model"
	tea "github.com/charmbracelet/bubbletea"
)

// Review opens the journal lines of a run in a full-screen table and blocks
// until the user quits or ctx is canceled.
func Review(ctx context.Context, lines []model.RunLine, failures []string, opts ...Option) error {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	p := tea.NewProgram(
		newModel(cfg, lines, failures),
		tea.WithContext(ctx),
		tea.WithAltScreen(),
	)
	if _, err := p.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("review screen failed: %w", err)
	}
	return nil
}
