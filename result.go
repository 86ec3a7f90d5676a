package pixcode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Result is the outcome of encoding a single image.
type Result struct {
	// Codes holds one palette code per pixel in row-major order.
	Codes   []int `json:"codes"`
	Width   int   `json:"width"`
	Height  int   `json:"height"`
	Pixels  int   `json:"pixels"`
	Resized bool  `json:"resized"`

	SourceWidth  int `json:"source_width"`
	SourceHeight int `json:"source_height"`
}

// FormatSequence renders codes as \left[c1,c2,...\right].
func FormatSequence(codes []int) string {
	var sb strings.Builder
	sb.Grow(len(`\left[\right]`) + len(codes)*2)

	sb.WriteString(`\left[`)
	for i, code := range codes {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(code))
	}
	sb.WriteString(`\right]`)

	return sb.String()
}

// String returns the formatted code sequence.
func (r *Result) String() string {
	return FormatSequence(r.Codes)
}

// WriteTo writes the result as a binary frame: the width and height as big
// endian uint16 values followed by one byte per code. Nothing is written if
// the result cannot be framed.
func (r *Result) WriteTo(w io.Writer) (int64, error) {
	if r.Width > math.MaxUint16 || r.Height > math.MaxUint16 {
		return 0, errors.New("pixcode: WriteTo: dimensions too large for frame")
	}
	if len(r.Codes) != r.Width*r.Height {
		return 0, errors.New("pixcode: WriteTo: code count does not match dimensions")
	}

	frame := make([]byte, 4, 4+len(r.Codes))
	binary.BigEndian.PutUint16(frame[0:], uint16(r.Width))
	binary.BigEndian.PutUint16(frame[2:], uint16(r.Height))

	for _, code := range r.Codes {
		if code < 0 || code > math.MaxUint8 {
			return 0, fmt.Errorf("pixcode: WriteTo: code %d does not fit in a byte", code)
		}
		frame = append(frame, byte(code))
	}

	// The frame is written in one call so n only counts bytes w accepted.
	n, err := w.Write(frame)
	return int64(n), err
}

// ReadResult reads a binary frame written by WriteTo. The source dimensions
// and resize flag are not part of the frame and are left zero.
func ReadResult(r io.Reader) (*Result, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("pixcode: ReadResult: reading header: %w", err)
	}

	res := &Result{
		Width:  int(binary.BigEndian.Uint16(header[0:])),
		Height: int(binary.BigEndian.Uint16(header[2:])),
	}
	res.Pixels = res.Width * res.Height

	data := make([]byte, res.Pixels)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("pixcode: ReadResult: reading codes: %w", err)
	}

	res.Codes = make([]int, len(data))
	for i, b := range data {
		res.Codes[i] = int(b)
	}

	return res, nil
}
