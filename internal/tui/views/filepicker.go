package views

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ProblemFileSelectedMsg is sent when a problem CSV is chosen.
type ProblemFileSelectedMsg struct {
	Path string
}

var (
	fpTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#EA580C")).
			MarginBottom(1)

	fpPathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280")).
			Italic(true)

	fpDirStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#0EA5E9")).
			Bold(true)

	fpFileStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F9FAFB"))

	fpSelectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#1F2937")).
			Background(lipgloss.Color("#FDBA74"))

	fpMutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	fpErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	fpRuleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FDBA74"))
)

type fileEntry struct {
	name  string
	isDir bool
	path  string
}

// FilePickerModel browses the file system for problem sets.
type FilePickerModel struct {
	dir      string
	entries  []fileEntry
	selected int
	offset   int
	err      error

	width  int
	height int
}

// NewFilePickerModel starts browsing at dir, or the home directory when
// dir is empty or unreadable.
func NewFilePickerModel(dir string) FilePickerModel {
	if dir == "" {
		dir, _ = os.UserHomeDir()
	}
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		dir, _ = os.UserHomeDir()
	}
	if dir == "" {
		dir = "/"
	}

	m := FilePickerModel{dir: dir}
	m.load()
	return m
}

// SetSize updates the view dimensions.
func (m *FilePickerModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Dir returns the directory being shown.
func (m FilePickerModel) Dir() string { return m.dir }

func (m *FilePickerModel) load() {
	m.entries = nil
	m.selected = 0
	m.offset = 0
	m.err = nil

	list, err := os.ReadDir(m.dir)
	if err != nil {
		m.err = err
		return
	}

	if parent := filepath.Dir(m.dir); parent != m.dir {
		m.entries = append(m.entries, fileEntry{name: "..", isDir: true, path: parent})
	}

	var dirs, files []fileEntry
	for _, e := range list {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		fe := fileEntry{name: e.Name(), isDir: e.IsDir(), path: filepath.Join(m.dir, e.Name())}
		switch {
		case e.IsDir():
			dirs = append(dirs, fe)
		case strings.EqualFold(filepath.Ext(e.Name()), ".csv"):
			files = append(files, fe)
		}
	}

	byName := func(a, b fileEntry) int {
		return strings.Compare(strings.ToLower(a.name), strings.ToLower(b.name))
	}
	slices.SortFunc(dirs, byName)
	slices.SortFunc(files, byName)

	m.entries = append(m.entries, dirs...)
	m.entries = append(m.entries, files...)
}

// Update handles messages.
func (m FilePickerModel) Update(msg tea.Msg) (FilePickerModel, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch km.String() {
	case "j", "down":
		if m.selected < len(m.entries)-1 {
			m.selected++
			m.scroll()
		}
	case "k", "up":
		if m.selected > 0 {
			m.selected--
			m.scroll()
		}
	case "enter", "l", "right":
		if m.selected >= len(m.entries) {
			return m, nil
		}
		e := m.entries[m.selected]
		if e.isDir {
			m.dir = e.path
			m.load()
			return m, nil
		}
		return m, func() tea.Msg { return ProblemFileSelectedMsg{Path: e.path} }
	case "backspace", "h":
		if parent := filepath.Dir(m.dir); parent != m.dir {
			m.dir = parent
			m.load()
		}
	case "~":
		if home, _ := os.UserHomeDir(); home != "" {
			m.dir = home
			m.load()
		}
	case "esc":
		return m, func() tea.Msg { return HomeMsg{} }
	case "g":
		m.selected, m.offset = 0, 0
	case "G":
		m.selected = max(len(m.entries)-1, 0)
		m.scroll()
	}
	return m, nil
}

func (m *FilePickerModel) visible() int {
	return max(m.height-8, 5)
}

func (m *FilePickerModel) scroll() {
	h := m.visible()
	if m.selected < m.offset {
		m.offset = m.selected
	}
	if m.selected >= m.offset+h {
		m.offset = m.selected - h + 1
	}
}

// View renders the file list.
func (m FilePickerModel) View() string {
	var b strings.Builder
	rule := fpRuleStyle.Render(strings.Repeat("─", max(min(m.width-4, 60), 10)))

	b.WriteString(fpTitleStyle.Render("もんだいファイルをえらぶ (.csv)"))
	b.WriteString("\n")
	b.WriteString(fpPathStyle.Render(m.dir))
	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(fpErrorStyle.Render("Error: " + m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString(rule)
	b.WriteString("\n")

	if len(m.entries) == 0 {
		b.WriteString(fpMutedStyle.Render("  (no .csv files)"))
		b.WriteString("\n")
	}

	end := min(m.offset+m.visible(), len(m.entries))
	for i := m.offset; i < end; i++ {
		e := m.entries[i]
		line := "  " + e.name
		style := fpFileStyle
		if e.isDir {
			line = "  " + e.name + "/"
			style = fpDirStyle
		}
		if i == m.selected {
			line = "> " + strings.TrimPrefix(line, "  ")
			style = fpSelectedStyle
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}

	b.WriteString(rule)
	b.WriteString("\n")
	b.WriteString(fpMutedStyle.Render("enter: select • backspace: parent • ~: home • esc: cancel"))
	return b.String()
}
