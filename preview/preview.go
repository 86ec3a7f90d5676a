// Package preview draws encoded results in the terminal.
package preview

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/tmpim/pixcode"
)

const cell = "  "

func styles(p *pixcode.Palette) map[int]lipgloss.Style {
	m := make(map[int]lipgloss.Style, p.Len())
	for _, e := range p.Entries() {
		hex, _ := p.Hex(e.Code)
		m[e.Code] = lipgloss.NewStyle().Background(lipgloss.Color(hex))
	}
	return m
}

// Render draws every code of res as a block colored with its palette entry,
// one line per image row. Codes missing from the palette are left blank.
func Render(res *pixcode.Result, p *pixcode.Palette) string {
	if res == nil || res.Width == 0 || len(res.Codes) == 0 {
		return ""
	}

	s := styles(p)

	var sb strings.Builder
	for i, code := range res.Codes {
		if i > 0 && i%res.Width == 0 {
			sb.WriteByte('\n')
		}
		if style, ok := s[code]; ok {
			sb.WriteString(style.Render(cell))
		} else {
			sb.WriteString(cell)
		}
	}

	return sb.String()
}

// Legend lists every palette entry with a swatch, its code and hex value.
func Legend(p *pixcode.Palette) string {
	s := styles(p)

	lines := make([]string, 0, p.Len())
	for _, e := range p.Entries() {
		hex, _ := p.Hex(e.Code)
		lines = append(lines, s[e.Code].Render(cell)+" "+strconv.Itoa(e.Code)+" "+hex)
	}

	return strings.Join(lines, "\n")
}
