package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/phrazzld/scry-tutor/internal/domain"
	"github.com/phrazzld/scry-tutor/internal/router"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	conceptStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	promptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)

	urgencyStyles = map[domain.Urgency]lipgloss.Style{
		domain.UrgencyHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		domain.UrgencyMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		domain.UrgencyLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	}
)

func cell(s string, width int) string {
	return lipgloss.NewStyle().Width(width).Render(s)
}

// renderCandidates writes revision candidates as an aligned table.
func renderCandidates(w io.Writer, candidates []domain.RevisionCandidate) {
	if len(candidates) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("Nothing due."))
		return
	}

	width := len("CONCEPT")
	for _, c := range candidates {
		width = max(width, len(c.ConceptID))
	}
	width += 2

	fmt.Fprintln(w, headerStyle.Render(cell("CONCEPT", width)+cell("RETENTION", 11)+cell("URGENCY", 9)+"DUE"))
	for _, c := range candidates {
		urgency := urgencyStyles[c.Urgency].Render(cell(string(c.Urgency), 9))
		fmt.Fprintln(w, cell(c.ConceptID.String(), width)+
			cell(fmt.Sprintf("%.0f%%", c.Retention*100), 11)+
			urgency+
			mutedStyle.Render(c.DueAt.Format("2006-01-02")))
	}
}

// renderTurn writes a turn result for a human reader.
func renderTurn(w io.Writer, res *router.TurnResult) {
	if res.Completed {
		fmt.Fprintln(w, okStyle.Render("✓ completed "+res.CompletedConcept.String()))
	}
	if len(res.Revisions) > 0 {
		names := make([]string, 0, len(res.Revisions))
		for _, r := range res.Revisions {
			names = append(names, r.ConceptID.String())
		}
		fmt.Fprintln(w, warnStyle.Render("↺ worth revisiting first: "+strings.Join(names, ", ")))
	}
	if res.Content != nil {
		fmt.Fprintln(w, res.Content.Text)
	}
	for _, n := range res.Notes {
		fmt.Fprintln(w, mutedStyle.Render("• "+n.Body))
	}
	for _, d := range res.Degraded {
		fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("(%s unavailable: %s)", d.Collaborator, d.Error)))
	}
	fmt.Fprintln(w, mutedStyle.Render("["+conceptStyle.Render(res.State.String())+"]"))
}
