package pixcode

import (
	"errors"
	"fmt"
	"image/color"
	"sort"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Entry is a single reference color and the code pixels matching it are
// reported as.
type Entry struct {
	Code  int
	Color color.RGBA
}

// Palette is an immutable set of reference colors ordered by ascending code.
// It is safe for concurrent use. The zero value, like a nil *Palette, behaves
// as DefaultPalette.
type Palette struct {
	entries []Entry
}

func (p *Palette) list() []Entry {
	if p == nil || len(p.entries) == 0 {
		return defaultPalette.entries
	}
	return p.entries
}

// The code numbering is consumed downstream, so it must not change.
var defaultPalette = &Palette{entries: []Entry{
	{1, color.RGBA{0, 0, 0, 0xff}},       // black
	{2, color.RGBA{255, 0, 0, 0xff}},     // red
	{3, color.RGBA{0, 255, 0, 0xff}},     // green
	{4, color.RGBA{0, 0, 255, 0xff}},     // blue
	{5, color.RGBA{255, 255, 0, 0xff}},   // yellow
	{6, color.RGBA{255, 105, 180, 0xff}}, // pink
	{7, color.RGBA{0, 255, 255, 0xff}},   // teal
	{8, color.RGBA{255, 255, 255, 0xff}}, // white
}}

// DefaultPalette returns the canonical 8 color palette.
func DefaultPalette() *Palette {
	return defaultPalette
}

// NewPalette returns a palette made of the given entries. Entries are sorted
// by code, which must be unique. Any alpha value is ignored.
func NewPalette(entries ...Entry) (*Palette, error) {
	if len(entries) == 0 {
		return nil, errors.New("pixcode: NewPalette: palette must have at least one entry")
	}

	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Code < sorted[j].Code
	})

	for i := range sorted {
		if i > 0 && sorted[i].Code == sorted[i-1].Code {
			return nil, fmt.Errorf("pixcode: NewPalette: duplicate code %d", sorted[i].Code)
		}
		sorted[i].Color.A = 0xff
	}

	return &Palette{entries: sorted}, nil
}

// ParsePalette parses a palette written as comma separated code=color pairs,
// for example "1=#000000,2=#ff0000". Colors are hex triplets.
func ParsePalette(s string) (*Palette, error) {
	var entries []Entry
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}

		parts := strings.SplitN(field, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("pixcode: ParsePalette: invalid entry %q", field)
		}

		code, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, fmt.Errorf("pixcode: ParsePalette: invalid code in %q: %w", field, err)
		}

		hex := strings.TrimSpace(parts[1])
		if !strings.HasPrefix(hex, "#") {
			hex = "#" + hex
		}
		c, err := colorful.Hex(hex)
		if err != nil {
			return nil, fmt.Errorf("pixcode: ParsePalette: invalid color in %q: %w", field, err)
		}

		r, g, b := c.RGB255()
		entries = append(entries, Entry{Code: code, Color: color.RGBA{r, g, b, 0xff}})
	}

	return NewPalette(entries...)
}

// Len returns the number of entries in the palette.
func (p *Palette) Len() int {
	return len(p.list())
}

// Entries returns a copy of the palette entries in ascending code order.
func (p *Palette) Entries() []Entry {
	entries := p.list()
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// Lookup returns the color for the given code.
func (p *Palette) Lookup(code int) (color.RGBA, bool) {
	for _, e := range p.list() {
		if e.Code == code {
			return e.Color, true
		}
	}
	return color.RGBA{}, false
}

// Hex returns the color for the given code as a #rrggbb string.
func (p *Palette) Hex(code int) (string, bool) {
	c, ok := p.Lookup(code)
	if !ok {
		return "", false
	}
	cf, _ := colorful.MakeColor(c)
	return cf.Hex(), true
}

// String returns the palette in the form accepted by ParsePalette.
func (p *Palette) String() string {
	entries := p.list()
	fields := make([]string, 0, len(entries))
	for _, e := range entries {
		hex, _ := p.Hex(e.Code)
		fields = append(fields, strconv.Itoa(e.Code)+"="+hex)
	}
	return strings.Join(fields, ",")
}

// Classify returns the code of the entry closest to the given color by
// squared euclidean distance. On a tie the lowest code wins.
func (p *Palette) Classify(r, g, b uint8) int {
	entries := p.list()
	best := entries[0].Code
	bestDist := -1

	for _, e := range entries {
		dr := int(r) - int(e.Color.R)
		dg := int(g) - int(e.Color.G)
		db := int(b) - int(e.Color.B)

		dist := dr*dr + dg*dg + db*db
		if bestDist < 0 || dist < bestDist {
			best = e.Code
			bestDist = dist
		}
	}

	return best
}
