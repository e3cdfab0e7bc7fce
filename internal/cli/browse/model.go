// Package browse is the interactive catalog view of plantctl
package browse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"github.com/spf13/cast"

	"github.com/talkincode/plantcatalog/internal/catalogstate"
	"github.com/talkincode/plantcatalog/internal/domain"
)

type mode int

const (
	modeList mode = iota
	modeSearch
	modePrice
	modeConfirmDelete
)

// requestTimeout bounds deletes started from the view
const requestTimeout = 15 * time.Second

// Messages
type stateMsg catalogstate.State
type deletedMsg struct {
	id  string
	err error
}

// Model is the bubbletea model of the browse view
type Model struct {
	store  *catalogstate.Store
	states <-chan catalogstate.State
	state  catalogstate.State

	mode   mode
	search textinput.Model
	price  textinput.Model

	cursor int
	detail bool
	notice string

	width  int
	height int
}

// NewModel creates the view. states is the channel returned by Watch.
func NewModel(store *catalogstate.Store, states <-chan catalogstate.State) Model {
	search := textinput.New()
	search.Placeholder = "search name or category"
	search.Prompt = "/ "
	search.CharLimit = 80

	price := textinput.New()
	price.Placeholder = "min-max, e.g. 100-500"
	price.Prompt = "₹ "
	price.CharLimit = 24

	st := store.State()
	search.SetValue(st.SearchInput)
	return Model{
		store:  store,
		states: states,
		state:  st,
		search: search,
		price:  price,
		height: 24,
	}
}

func (m Model) waitForState() tea.Cmd {
	return func() tea.Msg {
		st, ok := <-m.states
		if !ok {
			return nil
		}
		return stateMsg(st)
	}
}

// Init starts the first fetch
func (m Model) Init() tea.Cmd {
	store := m.store
	return tea.Batch(
		m.waitForState(),
		func() tea.Msg {
			store.Refresh()
			return nil
		},
	)
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case stateMsg:
		st := catalogstate.State(msg)
		if st.Version > m.state.Version {
			m.state = st
			m.clampCursor()
		}
		return m, m.waitForState()

	case deletedMsg:
		if msg.err == nil {
			m.notice = "Plant deleted successfully"
		} else {
			m.notice = ""
		}
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeSearch:
			return m.updateSearch(msg)
		case modePrice:
			return m.updatePrice(msg)
		case modeConfirmDelete:
			return m.updateConfirm(msg)
		}
		return m.handleKeyPress(msg)
	}
	return m, nil
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.state.Plants) {
		m.cursor = len(m.state.Plants) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) selected() (domain.Plant, bool) {
	if m.cursor < 0 || m.cursor >= len(m.state.Plants) {
		return domain.Plant{}, false
	}
	return m.state.Plants[m.cursor], true
}

// handleKeyPress handles keys in list mode
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.notice = ""
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.state.Plants)-1 {
			m.cursor++
		}
	case "enter", " ":
		m.detail = !m.detail
	case "/":
		m.mode = modeSearch
		return m, m.search.Focus()
	case "p":
		m.mode = modePrice
		return m, m.price.Focus()
	case "c":
		m.store.SetCategory(nextCategory(m.state.Filters.Category, m.state.Categories))
	case "a":
		m.store.SetAvailableOnly(!m.state.Filters.AvailableOnly)
	case "x":
		m.search.SetValue("")
		m.price.SetValue("")
		m.store.ResetFilters()
	case "r":
		m.store.Refresh()
	case "d":
		if _, ok := m.selected(); ok {
			m.mode = modeConfirmDelete
		}
	}
	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.mode = modeList
		m.search.Blur()
		m.store.FlushSearch()
		return m, nil
	case "esc":
		m.mode = modeList
		m.search.Blur()
		return m, nil
	}
	before := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if v := m.search.Value(); v != before {
		m.store.SetSearch(v)
	}
	return m, cmd
}

func (m Model) updatePrice(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		lo, hi, err := ParsePriceRange(m.price.Value())
		if err != nil {
			m.notice = err.Error()
			return m, nil
		}
		m.mode = modeList
		m.price.Blur()
		m.notice = ""
		m.store.SetPriceRange(lo, hi)
		return m, nil
	case "esc":
		m.mode = modeList
		m.price.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.price, cmd = m.price.Update(msg)
	return m, cmd
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.mode = modeList
	p, ok := m.selected()
	if !ok || msg.String() != "y" {
		return m, nil
	}
	store := m.store
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return deletedMsg{id: p.ID, err: store.Delete(ctx, p.ID)}
	}
}

// nextCategory cycles through "all" followed by the known categories
func nextCategory(current string, categories []string) string {
	options := append([]string{domain.AllCategories}, categories...)
	for i, c := range options {
		if c == current {
			return options[(i+1)%len(options)]
		}
	}
	return domain.AllCategories
}

// ParsePriceRange reads "min-max", "min-" or "-max". Empty input clears
// both bounds.
func ParsePriceRange(s string) (lo, hi *float64, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil, nil
	}
	minRaw, maxRaw, found := strings.Cut(s, "-")
	if !found {
		return nil, nil, errors.Errorf("price range %q must look like min-max", s)
	}
	parse := func(raw, label string) (*float64, error) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil, nil
		}
		v, err := cast.ToFloat64E(raw)
		if err != nil || v < 0 {
			return nil, errors.Errorf("%s price %q is not a valid amount", label, raw)
		}
		return &v, nil
	}
	if lo, err = parse(minRaw, "minimum"); err != nil {
		return nil, nil, err
	}
	if hi, err = parse(maxRaw, "maximum"); err != nil {
		return nil, nil, err
	}
	return lo, hi, nil
}

func describeRange(lo, hi *float64) string {
	switch {
	case lo == nil && hi == nil:
		return "any"
	case hi == nil:
		return fmt.Sprintf("≥ ₹%.0f", *lo)
	case lo == nil:
		return fmt.Sprintf("≤ ₹%.0f", *hi)
	}
	return fmt.Sprintf("₹%.0f-₹%.0f", *lo, *hi)
}

// View renders the model
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("🌿 Plant Catalog"))
	b.WriteString("\n\n")

	if m.mode == modeSearch || m.search.Value() != "" {
		b.WriteString(m.search.View())
		b.WriteString("\n")
	}
	if m.mode == modePrice {
		b.WriteString(m.price.View())
		b.WriteString("\n")
	}
	b.WriteString(m.filterBar())
	b.WriteString("\n\n")

	if m.state.Err != nil {
		b.WriteString(errorStyle.Render("✖ " + m.state.ErrMessage() + "  (r to retry)"))
		b.WriteString("\n")
	}
	if m.notice != "" {
		b.WriteString(loadingStyle.Render(m.notice))
		b.WriteString("\n")
	}
	if m.state.Loading {
		b.WriteString(loadingStyle.Render("Loading plants…"))
		b.WriteString("\n")
	}

	b.WriteString(m.plantList())

	if m.detail {
		if p, ok := m.selected(); ok {
			b.WriteString("\n")
			b.WriteString(detailStyle.Render(renderDetail(p)))
		}
	}
	b.WriteString("\n")
	b.WriteString(m.help())
	return b.String()
}

func (m Model) filterBar() string {
	f := m.state.Filters
	avail := "all"
	if f.AvailableOnly {
		avail = "in stock"
	}
	item := func(label, value string) string {
		return filterLabelStyle.Render(label+": ") + filterStyle.Render(value)
	}
	parts := []string{
		item("category", f.Category),
		item("price", describeRange(f.MinPrice, f.MaxPrice)),
		item("stock", avail),
	}
	if f.Search != "" {
		parts = append([]string{item("search", f.Search)}, parts...)
	}
	return strings.Join(parts, "   ")
}

func (m Model) plantList() string {
	plants := m.state.Plants
	if len(plants) == 0 {
		if m.state.Loading {
			return ""
		}
		return helpStyle.Render("No plants match the current filters.") + "\n"
	}

	// rows that fit next to the header, filters and help lines
	visible := m.height - 12
	if visible < 5 {
		visible = 5
	}
	start := 0
	if m.cursor >= visible {
		start = m.cursor - visible + 1
	}
	end := start + visible
	if end > len(plants) {
		end = len(plants)
	}

	var b strings.Builder
	b.WriteString(rowStyle.Render(headerStyle.Render(formatRow("NAME", "PRICE", "CATEGORIES"))))
	b.WriteString("\n")
	for i := start; i < end; i++ {
		p := plants[i]
		line := formatRow(p.Name, fmt.Sprintf("₹%.0f", p.Price), strings.Join(p.Categories, ", "))
		style := rowStyle
		if i == m.cursor {
			style = selectedRowStyle
		}
		if !p.StockAvailable {
			line = outOfStockStyle.Render(line + "  (out of stock)")
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render(fmt.Sprintf("%d of %d", m.cursor+1, len(plants))))
	b.WriteString("\n")
	return b.String()
}

func formatRow(name, price, tags string) string {
	return lipgloss.NewStyle().Width(34).Render(clip(name, 32)) +
		lipgloss.NewStyle().Width(10).Render(price) +
		clip(tags, 40)
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func renderDetail(p domain.Plant) string {
	lines := []string{
		headerStyle.Render(p.Name),
		fmt.Sprintf("₹%.2f · %s", p.Price, strings.Join(p.Categories, ", ")),
	}
	if p.Description != "" {
		lines = append(lines, p.Description)
	}
	lines = append(lines,
		fmt.Sprintf("Care: %s   Light: %s   Water: %s   Height: %s",
			p.CareLevel, p.LightRequirement, p.WateringFrequency, p.Height),
		helpStyle.Render("id "+p.ID),
	)
	return strings.Join(lines, "\n")
}

func (m Model) help() string {
	switch m.mode {
	case modeSearch:
		return helpStyle.Render("type to search · enter apply · esc done")
	case modePrice:
		return helpStyle.Render("enter apply · esc cancel")
	case modeConfirmDelete:
		p, _ := m.selected()
		return errorStyle.Render(fmt.Sprintf("Delete %q? y to confirm, any other key to cancel", p.Name))
	}
	return helpStyle.Render("↑/↓ move · enter details · / search · c category · p price · a stock · x reset · d delete · r refresh · q quit")
}

// Run starts the view full screen and returns when the user quits
func Run(store *catalogstate.Store) error {
	states, stop, err := Watch(store)
	if err != nil {
		return err
	}
	defer stop()
	_, err = tea.NewProgram(NewModel(store, states), tea.WithAltScreen()).Run()
	return err
}
