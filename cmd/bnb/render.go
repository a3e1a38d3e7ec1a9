package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/angelmondragon/brandinbox/pkg/types"
	"github.com/angelmondragon/brandinbox/pkg/workflow"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	labelStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("8"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	panelStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)

	badgeStyles = map[workflow.Variant]lipgloss.Style{
		workflow.VariantDefault:     lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4")),
		workflow.VariantSecondary:   lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("7")),
		workflow.VariantDestructive: lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("1")),
	}
)

func renderBadge(b workflow.Badge) string {
	label := b.Label
	if b.Spinner {
		label = "⟳ " + label
	}
	style, ok := badgeStyles[b.Variant]
	if !ok {
		style = badgeStyles[workflow.VariantSecondary]
	}
	return style.Render(label)
}

// renderDashboard lists listings newest first, as returned by the API.
func renderDashboard(listings []types.Listing) string {
	if len(listings) == 0 {
		return mutedStyle.Render("No listings yet. Create one with `bnb create`.")
	}
	const idWidth, titleWidth = 36, 32
	var b strings.Builder
	header := fmt.Sprintf("%-*s  %-*s  %10s  %s", idWidth, "ID", titleWidth, "TITLE", "PRICE", "STATUS")
	b.WriteString(labelStyle.Render(header))
	b.WriteByte('\n')
	for i := range listings {
		l := &listings[i]
		fmt.Fprintf(&b, "%-*s  %-*s  %10s  %s\n",
			idWidth, l.ID,
			titleWidth, truncate(l.Title, titleWidth),
			workflow.FormatPrice(l.Price),
			renderBadge(workflow.BadgeFor(l.Status)))
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderState prints the header, error banners and media of a controller snapshot.
func renderState(st workflow.State) string {
	if st.Deleted {
		return mutedStyle.Render("Listing deleted")
	}
	l := st.Listing
	if l == nil {
		return mutedStyle.Render("No listing loaded")
	}
	lines := []string{
		titleStyle.Render(l.Title) + "  " + renderBadge(st.Badge()),
		mutedStyle.Render(l.ID),
	}
	if msg := st.ListingError(); msg != "" {
		lines = append(lines, errorStyle.Render("Listing error: "+msg))
	}
	if st.Err != nil {
		lines = append(lines, errorStyle.Render("Request failed: "+st.Err.Error()))
	}
	if st.Polling {
		lines = append(lines, mutedStyle.Render("Waiting for the background job..."))
	}
	if images := l.ImageURLs(); len(images) > 0 {
		lines = append(lines, labelStyle.Render("Generated images:"))
		selected := make(map[int]bool, len(st.Selection))
		for _, i := range st.Selection {
			selected[i] = true
		}
		for i, url := range images {
			mark := "[ ]"
			if selected[i] {
				mark = "[x]"
			}
			lines = append(lines, fmt.Sprintf("  %s %d  %s", mark, i, url))
		}
	}
	if l.Media != nil && l.Media.VideoURL != nil {
		lines = append(lines, labelStyle.Render("Video:")+" "+*l.Media.VideoURL)
	}
	if l.PublishedListing != nil {
		lines = append(lines, successStyle.Render("Live on eBay: "+l.PublishedListing.EbayURL))
	}
	return strings.Join(lines, "\n")
}

func renderPreview(p workflow.Preview) string {
	lines := []string{
		titleStyle.Render(p.Title) + "  " + renderBadge(p.Badge),
		fmt.Sprintf("%s %s    %s %d", labelStyle.Render("Price:"), p.Price, labelStyle.Render("Quantity:"), p.Quantity),
		fmt.Sprintf("%s %s    %s %s", labelStyle.Render("Category:"), p.Category, labelStyle.Render("Condition:"), p.Condition),
		"",
		p.Description,
	}
	if len(p.Images) > 0 {
		lines = append(lines, "", labelStyle.Render("Images:"))
		for _, url := range p.Images {
			lines = append(lines, "  "+url)
		}
	}
	if p.VideoURL != "" {
		lines = append(lines, "", labelStyle.Render("Video:")+" "+p.VideoURL)
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}
