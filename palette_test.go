package pixcode

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPalette(t *testing.T) {
	p := DefaultPalette()
	require.Equal(t, 8, p.Len())

	for i, e := range p.Entries() {
		assert.Equal(t, i+1, e.Code)
	}

	pink, ok := p.Lookup(6)
	require.True(t, ok)
	assert.Equal(t, color.RGBA{255, 105, 180, 0xff}, pink)

	_, ok = p.Lookup(9)
	assert.False(t, ok)

	assert.Equal(t, "1=#000000,2=#ff0000,3=#00ff00,4=#0000ff,5=#ffff00,6=#ff69b4,7=#00ffff,8=#ffffff", p.String())
}

func TestEntriesIsACopy(t *testing.T) {
	p := DefaultPalette()
	entries := p.Entries()
	entries[0].Color = color.RGBA{1, 2, 3, 0xff}

	black, _ := p.Lookup(1)
	assert.Equal(t, color.RGBA{0, 0, 0, 0xff}, black)
}

func TestClassifyDefault(t *testing.T) {
	p := DefaultPalette()

	tests := []struct {
		name    string
		r, g, b uint8
		code    int
	}{
		{"black", 0, 0, 0, 1},
		{"red", 255, 0, 0, 2},
		{"green", 0, 255, 0, 3},
		{"blue", 0, 0, 255, 4},
		{"yellow", 255, 255, 0, 5},
		{"pink", 255, 105, 180, 6},
		{"teal", 0, 255, 255, 7},
		{"white", 255, 255, 255, 8},
		{"dark grey", 127, 127, 127, 1},
		{"light grey", 128, 128, 128, 8},
		{"dark red", 200, 10, 10, 2},
		{"magenta", 255, 0, 255, 6},
		// Equidistant from pink and teal: 180²+23²+37² == 75²+127²+112².
		{"pink teal tie", 75, 128, 143, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, p.Classify(tt.r, tt.g, tt.b))
			assert.Equal(t, tt.code, p.Classify(tt.r, tt.g, tt.b))
		})
	}
}

func TestClassifyTieLowestCodeWins(t *testing.T) {
	// Entries given out of order must still be scanned by ascending code.
	p, err := NewPalette(
		Entry{Code: 9, Color: color.RGBA{2, 0, 0, 0xff}},
		Entry{Code: 3, Color: color.RGBA{0, 0, 0, 0xff}},
	)
	require.NoError(t, err)

	assert.Equal(t, 3, p.Classify(1, 0, 0))
	assert.Equal(t, 9, p.Classify(2, 0, 0))
	assert.Equal(t, 3, p.Classify(0, 0, 0))
}

func TestNewPaletteErrors(t *testing.T) {
	_, err := NewPalette()
	assert.Error(t, err)

	_, err = NewPalette(
		Entry{Code: 1, Color: color.RGBA{0, 0, 0, 0xff}},
		Entry{Code: 1, Color: color.RGBA{255, 255, 255, 0xff}},
	)
	assert.Error(t, err)
}

func TestNewPaletteForcesOpaque(t *testing.T) {
	p, err := NewPalette(Entry{Code: 1, Color: color.RGBA{10, 20, 30, 0}})
	require.NoError(t, err)

	c, ok := p.Lookup(1)
	require.True(t, ok)
	assert.Equal(t, uint8(0xff), c.A)
}

func TestParsePalette(t *testing.T) {
	p, err := ParsePalette(" 2=#FF0000, 1=000000 ,6=#ff00ff,")
	require.NoError(t, err)
	require.Equal(t, 3, p.Len())

	entries := p.Entries()
	assert.Equal(t, []int{1, 2, 6}, []int{entries[0].Code, entries[1].Code, entries[2].Code})

	magenta, ok := p.Lookup(6)
	require.True(t, ok)
	assert.Equal(t, color.RGBA{255, 0, 255, 0xff}, magenta)

	hex, ok := p.Hex(2)
	require.True(t, ok)
	assert.Equal(t, "#ff0000", hex)

	// String round trips through ParsePalette.
	again, err := ParsePalette(p.String())
	require.NoError(t, err)
	assert.Equal(t, p.Entries(), again.Entries())
}

func TestParsePaletteErrors(t *testing.T) {
	for _, s := range []string{
		"",
		"1",
		"x=#000000",
		"1=#zzzzzz",
		"1=#000000,1=#ffffff",
	} {
		_, err := ParsePalette(s)
		assert.Error(t, err, s)
	}
}

func TestZeroPalette(t *testing.T) {
	var zero Palette
	var nilPalette *Palette

	for _, p := range []*Palette{&zero, nilPalette} {
		assert.Equal(t, 8, p.Len())
		assert.Equal(t, DefaultPalette().String(), p.String())
		assert.Equal(t, DefaultPalette().Entries(), p.Entries())
		assert.Equal(t, 2, p.Classify(250, 5, 5))
		assert.Equal(t, 1, p.Classify(0, 0, 0))

		hex, ok := p.Hex(7)
		assert.True(t, ok)
		assert.Equal(t, "#00ffff", hex)
	}
}
