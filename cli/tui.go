package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fahmaliyi/passvault/vault"
)

type viewState int

const (
	stateTable viewState = iota
	stateShow
	stateAdd
	stateSearch
)

const revealFor = 5 * time.Second

type model struct {
	session *vault.Session
	clip    *Clipboard
	entries []vault.DecryptedPasswordEntry
	cursor  int
	state   viewState
	query   string

	inputs []textinput.Model
	search textinput.Model

	selected *vault.DecryptedPasswordEntry
	revealed bool

	genLength  int
	genSymbols bool

	msg string
	err error
	// msgSeq lets a stale clear tick leave a newer message alone.
	msgSeq int
}

type clearMsg struct{ seq int }

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Underline(true)
	msgStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	selectedStyle = lipgloss.NewStyle().Background(lipgloss.Color("57")).Foreground(lipgloss.Color("0"))
	helpStyle     = lipgloss.NewStyle().Faint(true)
)

// RunTUI starts the interactive TUI over an unlocked session.
func RunTUI(s *vault.Session, clip *Clipboard, genLength int, genSymbols bool) error {
	m := newModel(s, clip)
	m.genLength, m.genSymbols = genLength, genSymbols
	m.refresh()

	final, err := tea.NewProgram(m).Run()
	if err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	if fm, ok := final.(model); ok && fm.err != nil && fatal(fm.err) {
		return fm.err
	}
	return nil
}

func newModel(s *vault.Session, clip *Clipboard) model {
	labels := []string{"URL", "Username", "Password"}
	inputs := make([]textinput.Model, len(labels))
	for i, label := range labels {
		ti := textinput.New()
		ti.Placeholder = label
		ti.CharLimit = 512
		inputs[i] = ti
	}
	inputs[2].EchoMode = textinput.EchoPassword
	inputs[2].EchoCharacter = '•'

	search := textinput.New()
	search.Placeholder = "search url or username"

	return model{
		session:    s,
		clip:       clip,
		state:      stateTable,
		inputs:     inputs,
		search:     search,
		genLength:  20,
		genSymbols: true,
	}
}

func fatal(err error) bool {
	return errors.Is(err, vault.ErrLockedOut) || errors.Is(err, vault.ErrLocked)
}

// refresh reloads entries, applying the current search.
func (m *model) refresh() {
	var err error
	if m.query != "" {
		m.entries, err = m.session.Search(m.query)
	} else {
		m.entries, err = m.session.List()
	}
	m.err = err
	if m.cursor >= len(m.entries) {
		m.cursor = max(len(m.entries)-1, 0)
	}
}

func (m *model) flash(text string, d time.Duration) tea.Cmd {
	m.msg = text
	m.msgSeq++
	seq := m.msgSeq
	return tea.Tick(d, func(time.Time) tea.Msg { return clearMsg{seq: seq} })
}

// --- Tea Model interface ---
func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if c, ok := msg.(clearMsg); ok {
		if c.seq == m.msgSeq {
			m.msg = ""
			m.revealed = false
		}
		return m, nil
	}

	var cmd tea.Cmd
	switch m.state {
	case stateTable:
		m, cmd = updateTable(m, msg)
	case stateShow:
		m, cmd = updateShowEntry(m, msg)
	case stateAdd:
		m, cmd = updateAddEntry(m, msg)
	case stateSearch:
		m, cmd = updateSearch(m, msg)
	}
	if m.err != nil && fatal(m.err) {
		return m, tea.Quit
	}
	return m, cmd
}

func (m model) View() string {
	switch m.state {
	case stateTable:
		return viewTable(m)
	case stateShow:
		return viewShowEntry(m)
	case stateAdd:
		return viewAddEntry(m)
	case stateSearch:
		return viewSearch(m)
	default:
		return "Unknown state"
	}
}

// --- Table ---
func updateTable(m model, msg tea.Msg) (model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "j", "down":
		if m.cursor < len(m.entries)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "enter":
		if len(m.entries) > 0 {
			e := m.entries[m.cursor]
			m.selected = &e
			m.revealed = false
			m.state = stateShow
		}
	case "a":
		m.state = stateAdd
		m.err = nil
		cmd := m.inputs[0].Focus()
		return m, cmd
	case "/":
		m.state = stateSearch
		m.search.SetValue(m.query)
		cmd := m.search.Focus()
		return m, cmd
	case "esc":
		m.query = ""
		m.refresh()
	case "d":
		if len(m.entries) == 0 {
			break
		}
		if _, err := m.session.DeleteEntry(m.entries[m.cursor].ID); err != nil {
			m.err = err
			break
		}
		m.refresh()
		cmd := m.flash("Entry deleted", 3*time.Second)
		return m, cmd
	case "c":
		if len(m.entries) == 0 {
			break
		}
		return copyEntry(m, m.entries[m.cursor])
	}
	return m, nil
}

func copyEntry(m model, e vault.DecryptedPasswordEntry) (model, tea.Cmd) {
	if err := m.clip.Copy(e.Password); err != nil {
		m.err = fmt.Errorf("clipboard: %w", err)
		return m, nil
	}
	text := "Password copied!"
	if d := m.clip.After(); d > 0 {
		text = fmt.Sprintf("Password copied! (clears in %s)", d)
	}
	cmd := m.flash(text, 5*time.Second)
	return m, cmd
}

func viewTable(m model) string {
	s := titleStyle.Render("Vault Entries") + "\n\n"
	if m.query != "" {
		s += helpStyle.Render(fmt.Sprintf("filter: %q (esc to clear)", m.query)) + "\n\n"
	}
	if len(m.entries) == 0 {
		s += "No entries.\n"
	}
	for i, e := range m.entries {
		line := fmt.Sprintf("%-40s  %-24s", truncate(e.URL, 40), truncate(e.Username, 24))
		if i == m.cursor {
			line = selectedStyle.Render(line)
		}
		s += line + "\n"
	}
	s += footer(m)
	s += "\n" + helpStyle.Render("j/k=move, enter=show, a=add, d=delete, c=copy, /=search, q=quit")
	return s
}

func footer(m model) string {
	s := ""
	if m.err != nil {
		s += "\n" + errStyle.Render("Error: "+m.err.Error())
	}
	if m.msg != "" {
		s += "\n" + msgStyle.Render(m.msg)
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// --- Show Entry ---
func updateShowEntry(m model, msg tea.Msg) (model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "esc", "q":
		m.state = stateTable
		m.selected = nil
		m.revealed = false
	case "v":
		m.revealed = true
		cmd := m.flash("", revealFor)
		return m, cmd
	case "c":
		return copyEntry(m, *m.selected)
	}
	return m, nil
}

func viewShowEntry(m model) string {
	e := m.selected
	secret := "********"
	if m.revealed {
		secret = e.Password
	}
	s := titleStyle.Render("Entry") + "\n\n"
	s += fmt.Sprintf("URL: %s\nUsername: %s\nPassword: %s\nCreated: %s\nUpdated: %s\n",
		e.URL, e.Username, secret, formatMillis(e.CreatedAt), formatMillis(e.UpdatedAt))
	s += footer(m)
	s += "\n" + helpStyle.Render("v=reveal, c=copy, esc=back")
	return s
}

// --- Add Entry ---
func updateAddEntry(m model, msg tea.Msg) (model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "tab", "shift+tab", "down", "up":
			cmd := m.focusNext(key.String() == "shift+tab" || key.String() == "up")
			return m, cmd
		case "esc":
			m.resetInputs()
			m.state = stateTable
			return m, nil
		case "ctrl+g":
			pw, err := vault.GeneratePassword(m.genLength, m.genSymbols)
			if err != nil {
				m.err = err
				return m, nil
			}
			m.inputs[2].SetValue(pw)
			return m, nil
		case "enter":
			if m.inputs[len(m.inputs)-1].Focused() {
				return saveAddEntry(m)
			}
			cmd := m.focusNext(false)
			return m, cmd
		}
	}

	cmds := make([]tea.Cmd, len(m.inputs))
	for i := range m.inputs {
		if m.inputs[i].Focused() {
			m.inputs[i], cmds[i] = m.inputs[i].Update(msg)
		}
	}
	return m, tea.Batch(cmds...)
}

// focusNext moves focus to the next or previous input
func (m *model) focusNext(backward bool) tea.Cmd {
	n := len(m.inputs)
	for i := 0; i < n; i++ {
		if m.inputs[i].Focused() {
			m.inputs[i].Blur()
			if backward {
				return m.inputs[(i-1+n)%n].Focus()
			}
			return m.inputs[(i+1)%n].Focus()
		}
	}
	return m.inputs[0].Focus()
}

func (m *model) resetInputs() {
	for i := range m.inputs {
		m.inputs[i].SetValue("")
		m.inputs[i].Blur()
	}
}

func saveAddEntry(m model) (model, tea.Cmd) {
	url, username, password := m.inputs[0].Value(), m.inputs[1].Value(), m.inputs[2].Value()
	if url == "" || password == "" {
		m.err = errors.New("url and password are required")
		return m, nil
	}

	if _, err := m.session.Add(url, username, password); err != nil {
		m.err = err
		return m, nil
	}
	m.resetInputs()
	m.state = stateTable
	m.refresh()
	cmd := m.flash("Entry added!", 3*time.Second)
	return m, cmd
}

func viewAddEntry(m model) string {
	s := titleStyle.Render("Add New Entry") + "\n\n"
	for _, ti := range m.inputs {
		s += fmt.Sprintf("%s: %s\n\n", ti.Placeholder, ti.View())
	}
	s += footer(m)
	s += "\n" + helpStyle.Render("tab=next field, ctrl+g=generate password, enter=save, esc=cancel")
	return s
}

// --- Search ---
func updateSearch(m model, msg tea.Msg) (model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "enter":
			m.query = m.search.Value()
			m.search.Blur()
			m.state = stateTable
			m.cursor = 0
			m.refresh()
			return m, nil
		case "esc":
			m.search.Blur()
			m.state = stateTable
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func viewSearch(m model) string {
	return titleStyle.Render("Search") + "\n\n" + m.search.View() + "\n\n" +
		helpStyle.Render("enter=apply, esc=cancel")
}
