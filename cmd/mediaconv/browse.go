package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"mediaconv/internal/catalog"
)

var (
	browseTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	browseMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	browseErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	browseOKStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	browsePanelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	browseSelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")).Bold(true)
)

var browseTypeCycle = []catalog.FileType{catalog.TypeAll, catalog.TypeTextToAudio, catalog.TypeVideoToAudio}

type browseModel struct {
	ctx     context.Context
	catalog *catalog.Catalog

	search    textinput.Model
	searching bool
	cursor    int
	width     int
	height    int

	state         catalog.State
	busy          string
	statusMessage string
}

type browseLoadedMsg struct {
	err error
}

type browseDownloadedMsg struct {
	filename string
	path     string
	err      error
}

func newFilesBrowseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Interactively search, filter and download your files",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !stdinIsTerminal() {
				return errors.New("browse requires an interactive terminal (TTY); use `mediaconv files list` instead")
			}
			cat, err := ctx.newCatalog()
			if err != nil {
				return err
			}
			p := tea.NewProgram(newBrowseModel(cmd.Context(), cat), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			_, err = p.Run()
			if errors.Is(err, tea.ErrProgramKilled) && cmd.Context().Err() != nil {
				return cmd.Context().Err()
			}
			return err
		},
	}
}

func newBrowseModel(ctx context.Context, cat *catalog.Catalog) browseModel {
	input := textinput.New()
	input.Prompt = "search: "
	input.Placeholder = "name or filename"
	input.CharLimit = 200
	return browseModel{
		ctx:     ctx,
		catalog: cat,
		search:  input,
		state:   cat.State(),
		busy:    "loading files...",
	}
}

func (m browseModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m browseModel) loadCmd() tea.Cmd {
	ctx, cat := m.ctx, m.catalog
	return func() tea.Msg {
		return browseLoadedMsg{err: cat.Load(ctx)}
	}
}

func (m browseModel) downloadCmd(file catalog.MediaFile) tea.Cmd {
	ctx, cat := m.ctx, m.catalog
	return func() tea.Msg {
		path, err := cat.Download(ctx, file)
		return browseDownloadedMsg{filename: file.Filename, path: path, err: err}
	}
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case browseLoadedMsg:
		m.busy = ""
		m.refresh()
		if msg.err == nil {
			m.statusMessage = fmt.Sprintf("loaded %d files", m.state.Total)
		} else {
			m.statusMessage = ""
		}
		return m, nil
	case browseDownloadedMsg:
		m.busy = ""
		m.refresh()
		if msg.err == nil {
			m.statusMessage = "saved " + msg.path
		} else {
			m.statusMessage = ""
		}
		return m, nil
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	if m.searching {
		return m.updateSearch(keyMsg)
	}
	return m.updateBrowse(keyMsg)
}

func (m browseModel) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc", "enter", "down":
		m.searching = false
		m.search.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.catalog.SetSearch(m.search.Value())
	m.cursor = 0
	m.refresh()
	return m, cmd
}

func (m browseModel) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "j":
		if m.cursor < len(m.state.Visible)-1 {
			m.cursor++
		}
		return m, nil
	case "/":
		m.searching = true
		m.statusMessage = ""
		return m, m.search.Focus()
	case "esc":
		m.search.SetValue("")
		m.catalog.SetFilter(catalog.Filter{})
		m.cursor = 0
		m.refresh()
		return m, nil
	case "t", "tab":
		m.catalog.SetType(nextFileType(m.state.Filter.Type))
		m.cursor = 0
		m.refresh()
		return m, nil
	case "r":
		if m.busy != "" {
			return m, nil
		}
		m.busy = "loading files..."
		return m, m.loadCmd()
	case "enter", "d":
		if m.busy != "" {
			return m, nil
		}
		if len(m.state.Visible) == 0 {
			m.statusMessage = "nothing selected"
			return m, nil
		}
		file := m.state.Visible[m.cursor]
		m.busy = "downloading " + file.DisplayName() + "..."
		m.statusMessage = ""
		return m, m.downloadCmd(file)
	}
	return m, nil
}

func (m *browseModel) refresh() {
	m.state = m.catalog.State()
	if m.cursor >= len(m.state.Visible) {
		m.cursor = len(m.state.Visible) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func nextFileType(current catalog.FileType) catalog.FileType {
	for i, t := range browseTypeCycle {
		if t == current {
			return browseTypeCycle[(i+1)%len(browseTypeCycle)]
		}
	}
	return catalog.TypeAll
}

func (m browseModel) View() string {
	width := m.width
	if width <= 0 {
		width = 100
	}
	var b strings.Builder
	b.WriteString(browseTitleStyle.Render("My Files"))
	b.WriteString("\n\n")
	b.WriteString(m.search.View())
	b.WriteString("\n")
	b.WriteString(browseMutedStyle.Render("type: " + fileTypeLabel(m.state.Filter.Type)))
	b.WriteString("\n\n")

	if m.state.LoadError != "" {
		b.WriteString(browseErrorStyle.Render(m.state.LoadError))
		b.WriteString("\n")
	}

	var list strings.Builder
	if len(m.state.Visible) == 0 {
		if m.busy == "" {
			list.WriteString(browseMutedStyle.Render("No files found\n" + m.state.EmptyHint()))
		}
	} else {
		for i, f := range m.visibleWindow() {
			line := fmt.Sprintf("%-40s %-16s %10s", truncate(f.file.DisplayName(), 40), fileTypeLabel(f.file.FileType), formatSize(f.file.FileSizeBytes))
			if f.index == m.cursor {
				line = browseSelStyle.Render("> " + line)
			} else {
				line = "  " + line
			}
			if i > 0 {
				list.WriteString("\n")
			}
			list.WriteString(line)
		}
	}
	b.WriteString(browsePanelStyle.Width(width - 4).Render(list.String()))
	b.WriteString("\n")
	b.WriteString(browseMutedStyle.Render(fmt.Sprintf("showing %d of %d", len(m.state.Visible), m.state.Total)))
	b.WriteString("\n")

	switch {
	case m.busy != "":
		b.WriteString(browseMutedStyle.Render(m.busy))
	case m.state.DownloadError != "":
		b.WriteString(browseErrorStyle.Render(m.state.DownloadError))
	case m.statusMessage != "":
		b.WriteString(browseOKStyle.Render(m.statusMessage))
	}
	b.WriteString("\n")
	b.WriteString(browseMutedStyle.Render("/ search  t type  enter download  r reload  esc reset  q quit"))
	return b.String()
}

type indexedFile struct {
	index int
	file  catalog.MediaFile
}

// visibleWindow returns the rows that fit the terminal, keeping the cursor on screen.
func (m browseModel) visibleWindow() []indexedFile {
	rows := m.height - 12
	if rows < 5 {
		rows = 5
	}
	start := 0
	if m.cursor >= rows {
		start = m.cursor - rows + 1
	}
	end := start + rows
	if end > len(m.state.Visible) {
		end = len(m.state.Visible)
	}
	out := make([]indexedFile, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, indexedFile{index: i, file: m.state.Visible[i]})
	}
	return out
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 1 {
		return string(r[:max])
	}
	return string(r[:max-1]) + "…"
}
