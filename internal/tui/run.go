package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/the-labels-must-flow/internal/model"
)

// Run opens the editor full screen and returns the session stats once the
// user quits.
func Run(ctx context.Context, items []model.ReviewItem, decide DecideFunc) (Stats, error) {
	p := tea.NewProgram(New(ctx, items, decide), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return Stats{}, fmt.Errorf("review editor failed: %w", err)
	}
	m, ok := final.(Model)
	if !ok {
		return Stats{}, nil
	}
	return m.Stats(), nil
}
