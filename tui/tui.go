// Package tui is an interactive terminal front end: the user types the path
// of an image and is shown its color code preview and sequence.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tmpim/pixcode"
	"github.com/tmpim/pixcode/imageio"
	"github.com/tmpim/pixcode/preview"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).MarginBottom(1)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff0000"))
	infoStyle  = lipgloss.NewStyle().Faint(true)
)

type encodedMsg struct {
	path   string
	result *pixcode.Result
	err    error
}

// Model is the bubbletea model of the interactive front end.
type Model struct {
	codec     *pixcode.Codec
	maxPixels int
	input     textinput.Model
	path      string
	result    *pixcode.Result
	err       error
	busy      bool
	width     int
}

// New returns a model encoding images with codec. Images larger than maxPixels
// are refused before decoding; zero means imageio.DefaultMaxPixels.
func New(codec *pixcode.Codec, maxPixels int) Model {
	ti := textinput.New()
	ti.Placeholder = "path/to/image.png"
	ti.Prompt = "Image: "
	ti.CharLimit = 4096
	ti.Focus()

	return Model{
		codec:     codec,
		maxPixels: maxPixels,
		input:     ti,
		width:     80,
	}
}

// Result returns the most recently encoded result, if any.
func (m Model) Result() *pixcode.Result {
	return m.result
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func encode(codec *pixcode.Codec, path string, maxPixels int) tea.Cmd {
	return func() tea.Msg {
		img, _, err := imageio.ReadFile(path, maxPixels)
		if err != nil {
			return encodedMsg{path: path, err: err}
		}
		return encodedMsg{path: path, result: codec.Encode(img)}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			path := strings.TrimSpace(m.input.Value())
			if path == "" || m.busy {
				return m, nil
			}
			m.busy = true
			m.err = nil
			return m, encode(m.codec, path, m.maxPixels)
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case encodedMsg:
		m.busy = false
		m.path = msg.path
		m.result = msg.result
		m.err = msg.err
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Image Color Analyzer"))
	sb.WriteString("\n")
	sb.WriteString(m.input.View())
	sb.WriteString("\n\n")

	switch {
	case m.busy:
		sb.WriteString(infoStyle.Render("Encoding..."))
		sb.WriteString("\n")
	case m.err != nil:
		sb.WriteString(errorStyle.Render(m.err.Error()))
		sb.WriteString("\n")
	case m.result != nil:
		// Two columns per pixel, so only draw previews that fit.
		if m.result.Width*2 <= m.width {
			sb.WriteString(preview.Render(m.result, m.codec.Palette()))
			sb.WriteString("\n\n")
		}
		sb.WriteString(fmt.Sprintf("%s\nWidth: %d  Total pixels: %d\n\n", m.path, m.result.Width, m.result.Pixels))
		sb.WriteString(lipgloss.NewStyle().Width(m.width).Render(m.result.String()))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(infoStyle.Render("enter: encode • esc: quit"))
	sb.WriteString("\n")

	return sb.String()
}
