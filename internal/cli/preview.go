package cli

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/Veraticus/the-labels-must-flow/internal/model"
)

// DefaultPreviewLimit caps how many rows a preview prints.
const DefaultPreviewLimit = 20

func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(SubtleStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers(headers...).
		Rows(rows...).
		String()
}

func truncate(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+1 > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}

func more(w io.Writer, shown, total int) error {
	if total > shown {
		_, err := fmt.Fprintln(w, SubtleStyle.Render(fmt.Sprintf("… and %d more", total-shown)))
		return err
	}
	return nil
}

// RenderPlan prints up to limit pending changes.
func RenderPlan(w io.Writer, plan model.WritePlan, limit int) error {
	if plan.Empty() {
		_, err := fmt.Fprintln(w, FormatInfo("Nothing to write."))
		return err
	}
	if limit <= 0 {
		limit = DefaultPreviewLimit
	}

	shown := min(limit, len(plan.Changes))
	rows := make([][]string, 0, shown)
	for _, c := range plan.Changes[:shown] {
		old := c.Old
		if old == "" {
			old = "(empty)"
		}
		rows = append(rows, []string{
			c.RecordID,
			truncate(c.Note, 24),
			c.Category,
			c.Field,
			OldValueStyle.Render(old) + " " + ArrowIcon + " " + NewValueStyle.Render(c.New),
		})
	}

	if _, err := fmt.Fprintln(w, renderTable([]string{"Record", "Note", "Category", "Field", "Change"}, rows)); err != nil {
		return err
	}
	if err := more(w, shown, len(plan.Changes)); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d rows, %d field changes\n", len(plan.Updates), len(plan.Changes))
	return err
}

// RenderRules prints up to limit rules.
func RenderRules(w io.Writer, rules []model.Rule, limit int) error {
	if limit <= 0 {
		limit = DefaultPreviewLimit
	}
	shown := min(limit, len(rules))
	rows := make([][]string, 0, shown)
	for _, r := range rules[:shown] {
		enabled := SuccessIcon
		if !r.Enabled {
			enabled = ErrorIcon
		}
		rows = append(rows, []string{
			r.Keyword, r.Category, r.Purpose, r.Subcat,
			r.ConfidencePercent(),
			fmt.Sprintf("%d/%d", r.Count, r.Total),
			enabled,
		})
	}
	if _, err := fmt.Fprintln(w, renderTable(
		[]string{"Keyword", "Category", "Purpose", "Subcat", "Confidence", "Support", "On"}, rows)); err != nil {
		return err
	}
	return more(w, shown, len(rules))
}

// RenderReviewItems prints up to limit review items.
func RenderReviewItems(w io.Writer, items []model.ReviewItem, limit int) error {
	if limit <= 0 {
		limit = DefaultPreviewLimit
	}
	shown := min(limit, len(items))
	rows := make([][]string, 0, shown)
	for _, it := range items[:shown] {
		rows = append(rows, []string{
			it.RecordID,
			truncate(it.Note, 24),
			it.Category,
			it.CurrentPurpose + "/" + it.CurrentSubcat,
			it.FinalPurpose + "/" + it.FinalSubcat,
			string(it.Status),
		})
	}
	if _, err := fmt.Fprintln(w, renderTable(
		[]string{"Record", "Note", "Category", "Current", "Final", "Status"}, rows)); err != nil {
		return err
	}
	return more(w, shown, len(items))
}

// RenderCounts prints a label/count table sorted by label.
func RenderCounts(w io.Writer, title string, counts map[string]int) error {
	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	rows := make([][]string, 0, len(labels))
	for _, label := range labels {
		rows = append(rows, []string{label, strconv.Itoa(counts[label])})
	}
	_, err := fmt.Fprintln(w, FormatTitle(title)+"\n"+renderTable([]string{"", "Count"}, rows))
	return err
}

// RenderSummary formats a job summary as a box.
func RenderSummary(title string, s model.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s Total:     %d\n", ChartIcon, s.Total)
	fmt.Fprintf(&b, "%s Succeeded: %d\n", SuccessStyle.Render(SuccessIcon), s.Succeeded)
	if s.Failed > 0 {
		fmt.Fprintf(&b, "%s Failed:    %d\n", ErrorStyle.Render(ErrorIcon), s.Failed)
	}
	fmt.Fprintf(&b, "  Skipped:   %d", s.Skipped)
	return RenderBox(title, b.String())
}

// RenderCorrections prints correction entries sorted by counterparty.
func RenderCorrections(w io.Writer, entries []model.CorrectionEntry, limit int) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, FormatInfo("No corrections."))
		return err
	}
	if limit <= 0 {
		limit = DefaultPreviewLimit
	}
	sorted := append([]model.CorrectionEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Counterparty < sorted[j].Counterparty })

	shown := min(limit, len(sorted))
	rows := make([][]string, 0, shown)
	for _, e := range sorted[:shown] {
		rows = append(rows, []string{truncate(e.Counterparty, 30), e.Category})
	}
	if _, err := fmt.Fprintln(w, renderTable([]string{"Counterparty", "Category"}, rows)); err != nil {
		return err
	}
	return more(w, shown, len(sorted))
}
