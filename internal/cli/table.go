package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/talkincode/plantcatalog/internal/domain"
)

// maxCellWidth truncates long names and tag lists in tables
const maxCellWidth = 40

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// renderTable aligns rows under header using the rendered cell widths
func renderTable(w io.Writer, header []string, rows [][]string) {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if cw := lipgloss.Width(cell); cw > widths[i] {
				widths[i] = cw
			}
		}
	}

	line := func(cells []string, style lipgloss.Style) string {
		parts := make([]string, len(cells))
		for i, c := range cells {
			parts[i] = cellStyle.Width(widths[i] + 2).Render(style.Render(c))
		}
		return strings.TrimRight(lipgloss.JoinHorizontal(lipgloss.Top, parts...), " ")
	}

	fmt.Fprintln(w, line(header, headerStyle))
	for _, row := range rows {
		fmt.Fprintln(w, line(row, lipgloss.NewStyle()))
	}
}

func stockLabel(p domain.Plant) string {
	if p.StockAvailable {
		return "yes"
	}
	return "no"
}

func renderPlants(w io.Writer, plants []domain.Plant) {
	if len(plants) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No plants match the current filters."))
		return
	}
	rows := make([][]string, len(plants))
	for i, p := range plants {
		rows[i] = []string{
			p.ID,
			truncate(p.Name, maxCellWidth),
			formatPrice(p.Price),
			truncate(joinTags(p.Categories), maxCellWidth),
			stockLabel(p),
			string(p.CareLevel),
		}
	}
	renderTable(w, []string{"ID", "NAME", "PRICE", "CATEGORIES", "IN STOCK", "CARE"}, rows)
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("%d plant(s)", len(plants))))
}

func formatPrice(f float64) string {
	return fmt.Sprintf("₹%.2f", f)
}

func renderPlant(w io.Writer, p domain.Plant) {
	field := func(label, value string) {
		fmt.Fprintln(w, labelStyle.Render(label)+value)
	}
	field("ID", p.ID)
	field("Name", p.Name)
	field("Price", formatPrice(p.Price))
	field("Categories", joinTags(p.Categories))
	field("In stock", stockLabel(p))
	if p.Description != "" {
		field("Description", p.Description)
	}
	field("Care level", string(p.CareLevel))
	field("Light", string(p.LightRequirement))
	field("Watering", string(p.WateringFrequency))
	field("Height", p.Height)
	field("Image", p.ImageURL)
	field("Created", p.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	field("Updated", p.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
}
