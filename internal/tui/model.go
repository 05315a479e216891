package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"media-saver/internal/convert"
	"media-saver/pkg/models"
)

// Model represents the main application state
type Model struct {
	state        State
	urlInput     textinput.Model
	batchInput   textarea.Model
	table        table.Model
	orchestrator *convert.Orchestrator
	store        models.HistoryStore
	parserCfg    models.ParserConfig
	webdavCfg    models.WebDAVConfig
	converting   bool
	statusLine   string
	width        int
	height       int
	styles       Styles
}

// State represents different screens/states of the TUI
type State int

const (
	MainMenu State = iota
	ConvertScreen
	BatchScreen
	History
	Help
)

// Styles holds all the styling for the TUI
type Styles struct {
	title        lipgloss.Style
	subtitle     lipgloss.Style
	menuItem     lipgloss.Style
	input        lipgloss.Style
	statusOK     lipgloss.Style
	statusError  lipgloss.Style
	table        lipgloss.Style
}

// conversionDoneMsg carries a finished single conversion
type conversionDoneMsg struct {
	task *models.ConversionTask
}

// batchDoneMsg carries a finished batch run
type batchDoneMsg struct {
	batch *models.BatchTask
}

// historyLoadedMsg carries tasks loaded from the history store
type historyLoadedMsg struct {
	tasks []*models.ConversionTask
	err   error
}

// InitialModel creates the initial model for the TUI
func InitialModel(orchestrator *convert.Orchestrator, store models.HistoryStore, parserCfg models.ParserConfig, webdavCfg models.WebDAVConfig) Model {
	// Initialize text input
	ti := textinput.New()
	ti.Placeholder = "Paste a share link..."
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 60

	// Initialize batch textarea, one link per line
	ta := textarea.New()
	ta.Placeholder = "One share link per line..."
	ta.SetWidth(60)
	ta.SetHeight(8)

	// Initialize table
	columns := []table.Column{
		{Title: "Title", Width: 32},
		{Title: "Type", Width: 12},
		{Title: "Status", Width: 10},
		{Title: "Uploaded To", Width: 40},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows([]table.Row{}),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	// Initialize styles
	styles := Styles{
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4")).
			PaddingTop(1).
			PaddingBottom(1),
		subtitle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			PaddingBottom(1),
		menuItem: lipgloss.NewStyle().
			PaddingLeft(2).
			PaddingRight(2).
			Margin(0, 1),
		input: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")).
			Padding(1),
		statusOK: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")),
		statusError: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87")),
		table: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")),
	}

	return Model{
		state:        MainMenu,
		urlInput:     ti,
		batchInput:   ta,
		table:        t,
		orchestrator: orchestrator,
		store:        store,
		parserCfg:    parserCfg,
		webdavCfg:    webdavCfg,
		styles:       styles,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// convertCmd runs one conversion and reports the terminal task
func (m Model) convertCmd(url string) tea.Cmd {
	return func() tea.Msg {
		task := m.orchestrator.NewTask(url)
		task = m.orchestrator.ConvertSingle(context.Background(), task, m.parserCfg, m.webdavCfg, nil)
		return conversionDoneMsg{task: task}
	}
}

// batchCmd runs a batch conversion and reports the terminal batch
func (m Model) batchCmd(urls []string) tea.Cmd {
	return func() tea.Msg {
		batch := m.orchestrator.NewBatch("tui batch", urls)
		batch = m.orchestrator.ConvertBatch(context.Background(), batch, m.parserCfg, m.webdavCfg, nil)
		return batchDoneMsg{batch: batch}
	}
}

// loadHistoryCmd loads recent tasks from the store
func (m Model) loadHistoryCmd() tea.Cmd {
	return func() tea.Msg {
		if m.store == nil {
			return historyLoadedMsg{}
		}
		tasks, err := m.store.ListTasks(models.TaskFilter{Limit: 50})
		return historyLoadedMsg{tasks: tasks, err: err}
	}
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case conversionDoneMsg:
		m.converting = false
		if msg.task.Status == models.StatusSuccess {
			m.statusLine = m.styles.statusOK.Render("Saved: " + msg.task.Upload.FilePath)
		} else {
			m.statusLine = m.styles.statusError.Render("Failed: " + msg.task.Error)
		}
		return m, nil

	case batchDoneMsg:
		m.converting = false
		line := fmt.Sprintf("Batch %s: %d/%d tasks succeeded",
			msg.batch.Status, msg.batch.CompletedTasks, msg.batch.TotalTasks)
		if msg.batch.Status == models.BatchStatusFailed {
			m.statusLine = m.styles.statusError.Render(line)
		} else {
			m.statusLine = m.styles.statusOK.Render(line)
		}
		return m, nil

	case historyLoadedMsg:
		if msg.err != nil {
			m.statusLine = m.styles.statusError.Render("Failed to load history: " + msg.err.Error())
			return m, nil
		}
		m.setHistoryRows(msg.tasks)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "q":
			if m.state == MainMenu {
				return m, tea.Quit
			}

		case "esc":
			if m.state != MainMenu {
				m.state = MainMenu
				m.statusLine = ""
				return m, nil
			}

		case "1":
			if m.state == MainMenu {
				m.state = ConvertScreen
				m.urlInput.Focus()
				return m, textinput.Blink
			}

		case "2":
			if m.state == MainMenu {
				m.state = BatchScreen
				return m, m.batchInput.Focus()
			}

		case "3":
			if m.state == MainMenu {
				m.state = History
				return m, m.loadHistoryCmd()
			}

		case "4":
			if m.state == MainMenu {
				m.state = Help
				return m, nil
			}

		case "enter":
			if m.state == ConvertScreen && m.urlInput.Value() != "" && !m.converting {
				url := m.urlInput.Value()
				m.urlInput.SetValue("")
				m.converting = true
				m.statusLine = "Converting..."
				return m, m.convertCmd(url)
			}

		case "ctrl+s":
			if m.state == BatchScreen && !m.converting {
				urls := convert.ParseShareURLs(m.batchInput.Value())
				if len(urls) == 0 {
					m.statusLine = m.styles.statusError.Render("No valid links found")
					return m, nil
				}
				m.batchInput.SetValue("")
				m.converting = true
				m.statusLine = fmt.Sprintf("Converting %d links...", len(urls))
				return m, m.batchCmd(urls)
			}
		}
	}

	// Update components based on current state
	switch m.state {
	case ConvertScreen:
		m.urlInput, cmd = m.urlInput.Update(msg)
	case BatchScreen:
		m.batchInput, cmd = m.batchInput.Update(msg)
	case History:
		m.table, cmd = m.table.Update(msg)
	}

	return m, cmd
}

// View renders the UI
func (m Model) View() string {
	switch m.state {
	case MainMenu:
		return m.renderMainMenu()
	case ConvertScreen:
		return m.renderConvertScreen()
	case BatchScreen:
		return m.renderBatchScreen()
	case History:
		return m.renderHistory()
	case Help:
		return m.renderHelp()
	default:
		return m.renderMainMenu()
	}
}

func (m Model) renderMainMenu() string {
	title := m.styles.title.Render("Media Saver")
	subtitle := m.styles.subtitle.Render("Convert share links and store them on your WebDAV server")

	menu := []string{
		"1. Convert Single Link",
		"2. Batch Convert",
		"3. History",
		"4. Help",
		"",
		"q. Quit",
	}

	var menuItems []string
	for _, item := range menu {
		if item == "" {
			menuItems = append(menuItems, "")
		} else {
			menuItems = append(menuItems, m.styles.menuItem.Render(item))
		}
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		title,
		subtitle,
		"",
		strings.Join(menuItems, "\n"),
	)

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func (m Model) renderConvertScreen() string {
	title := m.styles.title.Render("Convert Single Link")

	inputLabel := "Paste a share link or share text:"
	input := m.styles.input.Render(m.urlInput.View())

	instructions := []string{
		fmt.Sprintf("Parser: %s  •  WebDAV: %s", m.parserCfg.Name, m.webdavCfg.Name),
		"",
		"Press Enter to convert • ESC to go back",
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		inputLabel,
		input,
		"",
		m.statusLine,
		"",
		strings.Join(instructions, "\n"),
	)

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func (m Model) renderBatchScreen() string {
	title := m.styles.title.Render("Batch Convert")

	input := m.styles.input.Render(m.batchInput.View())

	content := lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		"One share link per line:",
		input,
		"",
		m.statusLine,
		"",
		"Ctrl+S to start • ESC to go back",
	)

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func (m Model) renderHistory() string {
	title := m.styles.title.Render("History")

	tableView := m.styles.table.Render(m.table.View())

	instructions := "↑/↓ to navigate • ESC to go back"

	content := lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		tableView,
		"",
		m.statusLine,
		"",
		instructions,
	)

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func (m Model) renderHelp() string {
	title := m.styles.title.Render("Help")

	helpText := []string{
		"Media Saver TUI Help",
		"",
		"Navigation:",
		"• Use number keys to select menu items",
		"• ESC to go back to main menu",
		"• q or Ctrl+C to quit",
		"",
		"Convert:",
		"• Paste a share link (share text with promo words works too)",
		"• The link is parsed through the configured parser API and the",
		"  media is uploaded to the configured WebDAV server",
		"",
		"Batch:",
		"• Enter one link per line, Ctrl+S to start",
		"• Tasks run sequentially; one failure never stops the batch",
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		strings.Join(helpText, "\n"),
		"",
		"ESC to go back",
	)

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func (m *Model) setHistoryRows(tasks []*models.ConversionTask) {
	var rows []table.Row
	for _, task := range tasks {
		mediaType := ""
		if task.ParsedInfo != nil {
			mediaType = string(task.ParsedInfo.MediaType)
		}
		uploadedTo := ""
		if task.Upload != nil {
			uploadedTo = task.Upload.FilePath
		}
		title := task.Title
		if title == "" {
			title = task.SourceURL
		}
		rows = append(rows, table.Row{
			title,
			mediaType,
			string(task.Status),
			uploadedTo,
		})
	}
	m.table.SetRows(rows)
}
