package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Aaron-1990/line-routing/pkg/routing"
)

// refreshInterval is how often the inspector refetches from the server.
const refreshInterval = 5 * time.Second

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("36")).
			MarginLeft(2).
			MarginTop(1)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("36")).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245")).
				Padding(0, 2)

	contentStyle = lipgloss.NewStyle().
			MarginLeft(2).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("36")).
			Padding(1, 2)

	validStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("35")).
			Bold(true)

	invalidStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("167")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("167"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			MarginTop(1).
			MarginLeft(2)
)

type view int

const (
	modelsView view = iota
	stepsView
	validationView
	orderView
)

const viewCount = 4

type keyMap struct {
	Tab      key.Binding
	ShiftTab key.Binding
	Enter    key.Binding
	Filter   key.Binding
	Refresh  key.Binding
	Quit     key.Binding
	Up       key.Binding
	Down     key.Binding
}

var keys = keyMap{
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next view"),
	),
	ShiftTab: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("shift+tab", "prev view"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "inspect model"),
	),
	Filter: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "filter"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("up/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("down/j", "down"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Enter, k.Filter, k.Refresh, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.ShiftTab, k.Enter},
		{k.Filter, k.Refresh},
		{k.Up, k.Down, k.Quit},
	}
}

// apiClient is the read-only HTTP client behind the inspector.
type apiClient struct {
	baseURL string
	token   string
	apiKey  string
	http    *http.Client
}

func newAPIClient(baseURL, token, apiKey string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *apiClient) get(path string, out any) error {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	} else if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		var eb struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &eb) == nil && eb.Message != "" {
			return fmt.Errorf("%s (HTTP %d)", eb.Message, resp.StatusCode)
		}
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return json.Unmarshal(data, out)
}

func (c *apiClient) fetchModels() ([]string, error) {
	var resp struct {
		Models []string `json:"models"`
	}
	if err := c.get("/routings", &resp); err != nil {
		return nil, err
	}
	return resp.Models, nil
}

// detail bundles everything the inspector shows for one model.
type detail struct {
	modelID    string
	routing    *routing.ModelRouting
	validation *routing.ValidationResult
	order      []string
	batches    [][]string
	orderErr   string
}

func (c *apiClient) fetchDetail(modelID string) (*detail, error) {
	d := &detail{modelID: modelID}

	var mr routing.ModelRouting
	if err := c.get("/routings/"+modelID, &mr); err != nil {
		return nil, err
	}
	d.routing = &mr

	var vr routing.ValidationResult
	if err := c.get("/routings/"+modelID+"/validation", &vr); err != nil {
		return nil, err
	}
	d.validation = &vr

	var or struct {
		Order []string `json:"order"`
	}
	if err := c.get("/routings/"+modelID+"/order", &or); err != nil {
		d.orderErr = err.Error()
		return d, nil
	}
	d.order = or.Order

	var br struct {
		Batches [][]string `json:"batches"`
	}
	if err := c.get("/routings/"+modelID+"/batches", &br); err != nil {
		d.orderErr = err.Error()
		return d, nil
	}
	d.batches = br.Batches

	return d, nil
}

// Messages

type modelsMsg []string

type detailMsg struct{ detail *detail }

type errMsg struct{ err error }

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchModelsCmd(client *apiClient) tea.Cmd {
	return func() tea.Msg {
		models, err := client.fetchModels()
		if err != nil {
			return errMsg{err}
		}
		return modelsMsg(models)
	}
}

func fetchDetailCmd(client *apiClient, modelID string) tea.Cmd {
	return func() tea.Msg {
		d, err := client.fetchDetail(modelID)
		if err != nil {
			return errMsg{err}
		}
		return detailMsg{detail: d}
	}
}

type model struct {
	client      *apiClient
	currentView view
	modelTable  table.Model
	stepTable   table.Model
	filter      textinput.Model
	help        help.Model
	keys        keyMap
	width       int
	height      int
	models      []string
	detail      *detail
	errMsg      string
	lastRefresh time.Time
}

func initialModel(client *apiClient) model {
	ti := textinput.New()
	ti.Placeholder = "filter models"
	ti.CharLimit = 64
	ti.Width = 30

	modelTable := table.New(
		table.WithColumns([]table.Column{
			{Title: "Model", Width: 32},
		}),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	stepTable := table.New(
		table.WithColumns([]table.Column{
			{Title: "#", Width: 4},
			{Title: "Area", Width: 16},
			{Title: "Predecessors", Width: 44},
		}),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("36")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("255")).
		Background(lipgloss.Color("36")).
		Bold(false)
	modelTable.SetStyles(s)
	stepTable.SetStyles(s)

	return model{
		client:     client,
		modelTable: modelTable,
		stepTable:  stepTable,
		filter:     ti,
		help:       help.New(),
		keys:       keys,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		fetchModelsCmd(m.client),
		tickCmd(),
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case tickMsg:
		cmds = append(cmds, fetchModelsCmd(m.client), tickCmd())
		if m.detail != nil {
			cmds = append(cmds, fetchDetailCmd(m.client, m.detail.modelID))
		}
		return m, tea.Batch(cmds...)

	case modelsMsg:
		m.models = msg
		m.errMsg = ""
		m.lastRefresh = time.Now()
		m.applyFilter()

	case detailMsg:
		m.detail = msg.detail
		m.errMsg = ""
		m.fillStepTable()

	case errMsg:
		m.errMsg = msg.err.Error()

	case tea.KeyMsg:
		if m.filter.Focused() {
			switch msg.String() {
			case "enter", "esc":
				m.filter.Blur()
			case "ctrl+c":
				return m, tea.Quit
			default:
				m.filter, cmd = m.filter.Update(msg)
				m.applyFilter()
				return m, cmd
			}
			return m, nil
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Tab):
			m.currentView = (m.currentView + 1) % viewCount

		case key.Matches(msg, m.keys.ShiftTab):
			if m.currentView == 0 {
				m.currentView = viewCount - 1
			} else {
				m.currentView--
			}

		case key.Matches(msg, m.keys.Filter):
			if m.currentView == modelsView {
				m.filter.Focus()
				return m, textinput.Blink
			}

		case key.Matches(msg, m.keys.Refresh):
			cmds = append(cmds, fetchModelsCmd(m.client))
			if m.detail != nil {
				cmds = append(cmds, fetchDetailCmd(m.client, m.detail.modelID))
			}
			return m, tea.Batch(cmds...)

		case key.Matches(msg, m.keys.Enter):
			if m.currentView == modelsView && len(m.modelTable.Rows()) > 0 {
				selected := m.modelTable.SelectedRow()[0]
				m.currentView = stepsView
				return m, fetchDetailCmd(m.client, selected)
			}
		}
	}

	// Route navigation to the visible table.
	switch m.currentView {
	case modelsView:
		m.modelTable, cmd = m.modelTable.Update(msg)
		cmds = append(cmds, cmd)
	case stepsView:
		m.stepTable, cmd = m.stepTable.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// applyFilter rebuilds the model table from the filter text.
func (m *model) applyFilter() {
	needle := strings.ToLower(m.filter.Value())
	rows := make([]table.Row, 0, len(m.models))
	for _, id := range m.models {
		if needle != "" && !strings.Contains(strings.ToLower(id), needle) {
			continue
		}
		rows = append(rows, table.Row{id})
	}
	m.modelTable.SetRows(rows)
}

// fillStepTable loads the selected routing into the step table.
func (m *model) fillStepTable() {
	if m.detail == nil || m.detail.routing == nil {
		m.stepTable.SetRows(nil)
		return
	}
	rows := make([]table.Row, 0, len(m.detail.routing.Steps))
	for i, step := range m.detail.routing.Steps {
		preds := strings.Join(step.Predecessors, ", ")
		if preds == "" {
			preds = "(start)"
		}
		rows = append(rows, table.Row{
			fmt.Sprintf("%d", i+1),
			step.AreaCode,
			preds,
		})
	}
	m.stepTable.SetRows(rows)
}

func (m model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var s strings.Builder

	s.WriteString(titleStyle.Render("Line Routing Inspector"))
	s.WriteString("\n\n")
	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")

	switch m.currentView {
	case modelsView:
		s.WriteString(m.renderModels())
	case stepsView:
		s.WriteString(m.renderSteps())
	case validationView:
		s.WriteString(m.renderValidation())
	case orderView:
		s.WriteString(m.renderOrder())
	}

	if m.errMsg != "" {
		s.WriteString("\n\n")
		s.WriteString(contentStyle.Render(errorStyle.Render("✗ " + m.errMsg)))
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp())))

	return s.String()
}

func (m model) renderTabs() string {
	tabs := []string{"Models", "Steps", "Validation", "Order"}
	var rendered []string
	for i, tab := range tabs {
		if view(i) == m.currentView {
			rendered = append(rendered, activeTabStyle.Render(tab))
		} else {
			rendered = append(rendered, inactiveTabStyle.Render(tab))
		}
	}
	return contentStyle.Render(lipgloss.JoinHorizontal(lipgloss.Top, rendered...))
}

func (m model) renderModels() string {
	var s strings.Builder

	s.WriteString(m.filter.View())
	s.WriteString("\n\n")
	s.WriteString(m.modelTable.View())
	s.WriteString("\n")

	status := fmt.Sprintf("%d models", len(m.models))
	if !m.lastRefresh.IsZero() {
		status += " · refreshed " + m.lastRefresh.Format("15:04:05")
	}
	s.WriteString(dimStyle.Render(status))

	return contentStyle.Render(s.String())
}

func (m model) renderSteps() string {
	if m.detail == nil {
		return contentStyle.Render(dimStyle.Render("No model selected. Pick one in the Models view."))
	}

	var s strings.Builder
	s.WriteString(m.renderModelHeader())
	s.WriteString("\n\n")
	s.WriteString(m.stepTable.View())

	return contentStyle.Render(s.String())
}

func (m model) renderValidation() string {
	if m.detail == nil || m.detail.validation == nil {
		return contentStyle.Render(dimStyle.Render("No model selected. Pick one in the Models view."))
	}

	vr := m.detail.validation
	var s strings.Builder
	s.WriteString(m.renderModelHeader())
	s.WriteString("\n\n")

	if vr.IsValid {
		s.WriteString(boxStyle.Render(validStyle.Render("✓ VALID") + "\n\nNo cycles, no orphan areas."))
		return contentStyle.Render(s.String())
	}

	var body strings.Builder
	body.WriteString(invalidStyle.Render("✗ INVALID"))
	body.WriteString("\n")
	if vr.HasCycle {
		body.WriteString("\nCycle:\n  ")
		body.WriteString(strings.Join(vr.CycleNodes, " -> "))
	}
	if vr.HasOrphans {
		body.WriteString("\nOrphan areas:\n  ")
		body.WriteString(strings.Join(vr.OrphanNodes, ", "))
	}
	s.WriteString(boxStyle.Render(body.String()))

	return contentStyle.Render(s.String())
}

func (m model) renderOrder() string {
	if m.detail == nil {
		return contentStyle.Render(dimStyle.Render("No model selected. Pick one in the Models view."))
	}

	var s strings.Builder
	s.WriteString(m.renderModelHeader())
	s.WriteString("\n\n")

	if m.detail.orderErr != "" {
		s.WriteString(errorStyle.Render("Order unavailable: " + m.detail.orderErr))
		return contentStyle.Render(s.String())
	}

	var body strings.Builder
	body.WriteString("Execution order:\n  ")
	body.WriteString(strings.Join(m.detail.order, " -> "))
	if len(m.detail.batches) > 0 {
		body.WriteString("\n\nParallel stages:")
		for i, batch := range m.detail.batches {
			body.WriteString(fmt.Sprintf("\n  %d: %s", i+1, strings.Join(batch, ", ")))
		}
	}
	s.WriteString(boxStyle.Render(body.String()))

	return contentStyle.Render(s.String())
}

func (m model) renderModelHeader() string {
	header := m.detail.modelID
	if m.detail.routing != nil {
		header += fmt.Sprintf(" · %d areas", len(m.detail.routing.Steps))
	}
	if m.detail.validation != nil {
		if m.detail.validation.IsValid {
			header += " · " + validStyle.Render("valid")
		} else {
			header += " · " + invalidStyle.Render("invalid")
		}
	}
	return header
}

func main() {
	serverURL := envOrDefault("ROUTING_SERVER_URL", "http://localhost:8080")
	if len(os.Args) > 1 {
		serverURL = os.Args[1]
	}

	client := newAPIClient(serverURL, os.Getenv("ROUTING_TOKEN"), os.Getenv("ROUTING_API_KEY"))

	p := tea.NewProgram(initialModel(client), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("Error running program: %v", err)
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
