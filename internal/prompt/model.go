package prompt

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertwitch/rpcfs/internal/access"
)

//nolint:gochecknoglobals
var (
	// titleStyle defines the style for the question's title.
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	// pathStyle defines the style for the requested path.
	pathStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4"))

	// allowStyle defines the style for the outcome of an allowed request.
	allowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	// denyStyle defines the style for the outcome of a denied request.
	denyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF4672"))

	// helpStyle defines the style for the help line.
	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))
)

type keyMap struct {
	Allow key.Binding
	Deny  key.Binding
	Quit  key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Allow: key.NewBinding(
			key.WithKeys("y", "Y", "enter"),
			key.WithHelp("y/enter", "allow"),
		),
		Deny: key.NewBinding(
			key.WithKeys("n", "N", "esc"),
			key.WithHelp("n/esc", "deny"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "deny"),
		),
	}
}

func (k keyMap) help() string {
	parts := make([]string, 0, 3) //nolint:mnd
	for _, b := range []key.Binding{k.Allow, k.Deny, k.Quit} {
		h := b.Help()
		parts = append(parts, h.Key+": "+h.Desc)
	}

	return strings.Join(parts, " • ")
}

// TeaModel is the [tea.Model] asking the operator about a single request.
type TeaModel struct {
	req  access.Request
	keys keyMap

	answered bool
	allowed  bool
}

// NewTeaModel returns an initial new [TeaModel] for req.
func NewTeaModel(req access.Request) TeaModel {
	return TeaModel{
		req:  req,
		keys: defaultKeyMap(),
	}
}

// Init initializes the model within a [tea.Program].
func (m TeaModel) Init() tea.Cmd {
	return nil
}

// Update handles the operator's key presses. Any answer ends the program.
//
//nolint:ireturn
func (m TeaModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || m.answered {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Allow):
		m.answered, m.allowed = true, true

		return m, tea.Quit

	case key.Matches(keyMsg, m.keys.Deny), key.Matches(keyMsg, m.keys.Quit):
		m.answered, m.allowed = true, false

		return m, tea.Quit
	}

	return m, nil
}

// View renders the question, or the outcome once answered.
func (m TeaModel) View() string {
	if m.answered {
		outcome := denyStyle.Render("denied")
		if m.allowed {
			outcome = allowStyle.Render("allowed")
		}

		return fmt.Sprintf("%s %s on %s: %s\n",
			titleStyle.Render("rpcfs"),
			m.req.Operation.String(),
			pathStyle.Render(m.req.Path),
			outcome,
		)
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		fmt.Sprintf("%s Allow %s (%s) on %s?",
			titleStyle.Render("rpcfs"),
			m.req.Operation.String(),
			m.req.Right.String(),
			pathStyle.Render(m.req.Path),
		),
		helpStyle.Render(m.keys.help()),
	) + "\n"
}

// Allowed reports whether the operator allowed the request.
func (m TeaModel) Allowed() bool {
	return m.answered && m.allowed
}
