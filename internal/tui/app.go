package tui

import (
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/f3rmion/kakitori/internal/canvas"
	"github.com/f3rmion/kakitori/internal/config"
	"github.com/f3rmion/kakitori/internal/game"
	"github.com/f3rmion/kakitori/internal/kakitori"
	"github.com/f3rmion/kakitori/internal/logging"
	"github.com/f3rmion/kakitori/internal/problem"
	"github.com/f3rmion/kakitori/internal/tui/views"
	"github.com/f3rmion/kakitori/internal/verdict"
)

// ViewType represents the current active view
type ViewType int

const (
	ViewTitle ViewType = iota
	ViewFilePicker
	ViewHistory
	ViewSettings
	ViewPlay
	ViewResult
)

// MenuItem represents a sidebar menu entry
type MenuItem struct {
	Label    string
	View     ViewType
	Shortcut string
}

// Classifier is the recognizer session as the app uses it.
// *recognizer.Session satisfies it.
type Classifier interface {
	views.Classifier
	game.Classifier
}

// Store is the round history. *history.Store satisfies it.
type Store interface {
	views.Recorder
	views.HistoryReader
}

// Options wires the app to its collaborators.
type Options struct {
	Settings     *config.Settings
	SettingsPath string
	Classifier   Classifier
	History      Store     // nil disables recording
	Bell         io.Writer // terminal for verdict sounds; nil is silent
}

type problemsLoadedMsg struct {
	grade    string
	problems []kakitori.Problem
	err      error
}

// AppModel is the top-level TUI model.
type AppModel struct {
	settings     *config.Settings
	settingsPath string
	classifier   Classifier
	store        Store
	canvas       *canvas.Canvas
	bell         io.Writer

	classifierDone bool
	classifierErr  error

	width        int
	height       int
	sidebarWidth int
	ready        bool

	currentView ViewType
	menuItems   []MenuItem
	selected    int

	titleView      views.TitleModel
	filePickerView views.FilePickerModel
	historyView    views.HistoryModel
	settingsView   views.SettingsModel
	playView       views.PlayModel
	resultView     views.ResultModel

	// Last game, for retry
	game  *game.Game
	grade string

	showHelp bool
}

// NewApp creates the application model.
func NewApp(opts Options) AppModel {
	s := opts.Settings
	if s == nil {
		s = config.Default()
	}

	var reader views.HistoryReader
	if opts.History != nil {
		reader = opts.History
	}

	return AppModel{
		settings:     s,
		settingsPath: opts.SettingsPath,
		classifier:   opts.Classifier,
		store:        opts.History,
		bell:         opts.Bell,
		canvas:       canvas.New(canvas.DefaultSize, canvas.DefaultStrokeWidth),
		sidebarWidth: 18,
		currentView:  ViewTitle,
		menuItems: []MenuItem{
			{Label: "れんしゅう", View: ViewTitle, Shortcut: "1"},
			{Label: "ファイル", View: ViewFilePicker, Shortcut: "2"},
			{Label: "きろく", View: ViewHistory, Shortcut: "3"},
			{Label: "せってい", View: ViewSettings, Shortcut: "4"},
		},

		titleView:      views.NewTitleModel(s.DataDir),
		filePickerView: views.NewFilePickerModel(s.DataDir),
		historyView:    views.NewHistoryModel(reader),
		settingsView:   views.NewSettingsModel(s, opts.SettingsPath),
	}
}

// Init starts loading the classifier so it is ready by the first judgment.
func (m AppModel) Init() tea.Cmd {
	return views.LoadClassifier(m.classifier)
}

// Update handles messages
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.showHelp {
			m.showHelp = false
			return m, nil
		}
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.inMenu() {
			if next, cmd, ok := m.menuKey(msg); ok {
				return next, cmd
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

		w, h := m.width-m.sidebarWidth-4, m.height-2
		m.titleView.SetSize(w, h)
		m.filePickerView.SetSize(w, h)
		m.historyView.SetSize(w, h)
		m.settingsView.SetSize(w, h)
		m.playView.SetSize(m.width, m.height)
	if m.settings.Game.Sound {
		m.playView.SetBell(m.bell)
	}
		m.resultView.SetSize(m.width, m.height)
		return m, nil

	case views.ClassifierLoadedMsg:
		m.classifierDone = true
		m.classifierErr = msg.Err
		if m.currentView == ViewPlay {
			var cmd tea.Cmd
			m.playView, cmd = m.playView.Update(msg)
			return m, cmd
		}
		return m, nil

	case views.StartGameMsg:
		return m, m.loadGrade(msg.Grade)

	case views.ProblemFileSelectedMsg:
		return m, m.loadFile(msg.Path)

	case problemsLoadedMsg:
		return m.startGame(msg)

	case views.OpenSettingsMsg:
		m.switchTo(ViewSettings)
		return m, nil

	case views.HomeMsg:
		m.switchTo(ViewTitle)
		return m, nil

	case views.GameOverMsg:
		m.resultView = views.NewResultModel(msg)
		m.resultView.SetSize(m.width, m.height)
		m.currentView = ViewResult
		return m, m.historyView.Refresh()

	case views.RetryMsg:
		if m.game == nil {
			return m, nil
		}
		m.game.Retry()
		return m, m.play()

	case views.SettingsSavedMsg:
		if msg.Err != nil {
			logging.L().Error("saving settings failed", "path", m.settingsPath, "err", msg.Err)
			m.settingsView.SetError(msg.Err)
			return m, nil
		}
		dataDirChanged := msg.Settings.DataDir != m.settings.DataDir
		m.settings = msg.Settings
		m.settingsView = views.NewSettingsModel(m.settings, m.settingsPath)
		m.settingsView.SetSize(m.width-m.sidebarWidth-4, m.height-2)
		if dataDirChanged {
			m.titleView = views.NewTitleModel(m.settings.DataDir)
		}
		m.switchTo(ViewTitle)
		return m, nil

	case views.HistoryLoadedMsg:
		var cmd tea.Cmd
		m.historyView, cmd = m.historyView.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	switch m.currentView {
	case ViewTitle:
		m.titleView, cmd = m.titleView.Update(msg)
	case ViewFilePicker:
		m.filePickerView, cmd = m.filePickerView.Update(msg)
	case ViewHistory:
		m.historyView, cmd = m.historyView.Update(msg)
	case ViewSettings:
		m.settingsView, cmd = m.settingsView.Update(msg)
	case ViewPlay:
		m.playView, cmd = m.playView.Update(msg)
	case ViewResult:
		m.resultView, cmd = m.resultView.Update(msg)
	}
	return m, cmd
}

func (m AppModel) inMenu() bool {
	return m.currentView != ViewPlay && m.currentView != ViewResult
}

// menuKey handles the keys shared by the sidebar screens.
func (m AppModel) menuKey(msg tea.KeyMsg) (AppModel, tea.Cmd, bool) {
	switch msg.String() {
	case "q":
		return m, tea.Quit, true
	case "?":
		m.showHelp = true
		return m, nil, true
	case "esc":
		if m.currentView == ViewTitle {
			return m, tea.Quit, true
		}
	}
	for _, item := range m.menuItems {
		if msg.String() == item.Shortcut {
			var cmd tea.Cmd
			if item.View == ViewHistory {
				cmd = m.historyView.Refresh()
			}
			m.switchTo(item.View)
			return m, cmd, true
		}
	}
	return m, nil, false
}

func (m *AppModel) switchTo(v ViewType) {
	m.currentView = v
	for i, item := range m.menuItems {
		if item.View == v {
			m.selected = i
		}
	}
}

func (m AppModel) loadGrade(grade string) tea.Cmd {
	dir := m.settings.DataDir
	return func() tea.Msg {
		problems, err := problem.LoadGrade(dir, grade)
		return problemsLoadedMsg{grade: grade, problems: problems, err: err}
	}
}

func (m AppModel) loadFile(path string) tea.Cmd {
	return func() tea.Msg {
		problems, err := problem.LoadFile(path)
		return problemsLoadedMsg{grade: problem.SetName(path), problems: problems, err: err}
	}
}

func (m AppModel) startGame(msg problemsLoadedMsg) (AppModel, tea.Cmd) {
	if msg.err != nil {
		logging.L().Error("loading problems failed", "grade", msg.grade, "err", msg.err)
		m.titleView.SetNotice("もんだいをよみこめませんでした: " + msg.err.Error())
		m.switchTo(ViewTitle)
		return m, nil
	}

	g, err := game.New(msg.problems, game.Options{
		Count:       m.settings.Game.ProblemCount,
		SkipEnabled: m.settings.Game.SkipEnabled,
		Shuffle:     m.settings.Game.Shuffle,
		Seed:        time.Now().UnixNano(),
	})
	if err != nil {
		m.titleView.SetNotice(err.Error())
		m.switchTo(ViewTitle)
		return m, nil
	}

	m.game = g
	m.grade = msg.grade
	return m, m.play()
}

// play shows a fresh practice screen for the current game.
func (m *AppModel) play() tea.Cmd {
	var rec views.Recorder
	if m.store != nil && m.settings.History {
		rec = m.store
	}

	judge := game.NewJudge(m.canvas, m.classifier, verdict.Policy{TopN: m.settings.Recognizer.TopN})
	m.playView = views.NewPlayModel(judge, m.classifier, rec, m.game, m.grade)
	m.playView.SetSize(m.width, m.height)
	if m.classifierDone && m.classifierErr != nil {
		m.playView, _ = m.playView.Update(views.ClassifierLoadedMsg{Err: m.classifierErr})
	}
	m.currentView = ViewPlay
	return m.playView.Init()
}

// View renders the UI
func (m AppModel) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}

	switch m.currentView {
	case ViewPlay:
		// Drawn from the top-left cell; the pad's mouse mapping depends on it.
		return m.playView.View()
	case ViewResult:
		return m.resultView.View()
	}

	var content string
	switch m.currentView {
	case ViewTitle:
		content = m.titleView.View()
	case ViewFilePicker:
		content = m.filePickerView.View()
	case ViewHistory:
		content = m.historyView.View()
	case ViewSettings:
		content = m.settingsView.View()
	}

	main := mainStyle.
		Width(m.width - m.sidebarWidth - 4).
		Height(m.height - 2).
		Render(content)
	return lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), main)
}

func (m AppModel) renderSidebar() string {
	items := []string{menuTitleStyle.Render("書き取り"), ""}

	for i, item := range m.menuItems {
		style := menuItemStyle
		if i == m.selected {
			style = menuItemActiveStyle
		}
		items = append(items, style.Render(item.Shortcut+". "+item.Label))
	}

	used := len(items) + 4
	for i := 0; i < m.height-used-2; i++ {
		items = append(items, "")
	}
	items = append(items, menuFooterStyle.Render("? Help  q Quit"))

	return menuStyle.
		Width(m.sidebarWidth).
		Height(m.height - 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, items...))
}

func (m AppModel) renderHelp() string {
	row := func(k, d string) string {
		return helpKeyStyle.Render(k) + helpTextStyle.Render(d) + "\n"
	}

	text := helpHeadingStyle.Render("かきとり") + "\n\n"

	text += helpGroupStyle.Render("Menu") + "\n"
	text += row("1-4", "Switch screens")
	text += row("j/k ↑/↓", "Move")
	text += row("enter", "Start / select")
	text += row("?", "Show this help")
	text += row("q", "Quit")

	text += helpGroupStyle.Render("Practice") + "\n"
	text += row("mouse", "Draw the kanji")
	text += row("enter", "Judge the drawing")
	text += row("c", "Clear the pad")
	text += row("s", "Skip the problem")
	text += row("esc", "Back to the menu")

	text += helpGroupStyle.Render("Results") + "\n"
	text += row("r", "Play the same set again")
	text += row("y", "Copy the score")
	text += row("esc", "Back to the menu")

	text += "\n" + helpHintStyle.Render("Press any key to close")

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, helpFrameStyle.Render(text))
}
