package matfile

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"time"
)

// WriteOptions controls how variables are encoded.
type WriteOptions struct {
	// Compress wraps each variable in a zlib miCOMPRESSED element.
	Compress bool
}

// WriteFile writes matrices as double-precision variables to path.
func WriteFile(path string, vars []*Matrix, opts WriteOptions) error {
	data, err := Encode(vars, opts)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // G306: dataset files are not secret.
		return fmt.Errorf("failed to write MAT-file: %w", err)
	}
	return nil
}

// Encode serializes matrices into a little-endian level-5 MAT-file.
func Encode(vars []*Matrix, opts WriteOptions) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(header(time.Now()))

	for _, m := range vars {
		if m.Name == "" {
			return nil, ErrInvalidName
		}
		if len(m.Data) != m.Rows*m.Cols {
			return nil, fmt.Errorf("variable %q: %d values for %dx%d matrix", m.Name, len(m.Data), m.Rows, m.Cols)
		}
		elem := encodeMatrix(m)
		if !opts.Compress {
			buf.Write(elem)
			continue
		}

		var z bytes.Buffer
		zw := zlib.NewWriter(&z)
		if _, err := zw.Write(elem); err != nil {
			return nil, fmt.Errorf("variable %q: %w", m.Name, err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("variable %q: %w", m.Name, err)
		}
		writeTag(&buf, miCOMPRESSED, z.Len())
		buf.Write(z.Bytes())
	}
	return buf.Bytes(), nil
}

// header builds the 128-byte file header.
func header(now time.Time) []byte {
	h := make([]byte, HeaderSize)
	text := fmt.Sprintf("MATLAB 5.0 MAT-file, Platform: GLNXA64, Created on: %s",
		now.UTC().Format("Mon Jan _2 15:04:05 2006"))
	n := copy(h[:TextSize], text)
	for i := n; i < TextSize; i++ {
		h[i] = ' '
	}
	binary.LittleEndian.PutUint16(h[124:], Version)
	copy(h[126:], "IM")
	return h
}

// encodeMatrix returns a full miMATRIX element for m.
func encodeMatrix(m *Matrix) []byte {
	var body bytes.Buffer

	// Array flags: class in the low byte, no flags set.
	writeTag(&body, miUINT32, 8)
	_ = binary.Write(&body, binary.LittleEndian, [2]uint32{mxDOUBLE, 0})

	writeTag(&body, miINT32, 8)
	_ = binary.Write(&body, binary.LittleEndian, [2]int32{int32(m.Rows), int32(m.Cols)}) //nolint:gosec // G115: dimensions fit int32.

	writeTag(&body, miINT8, len(m.Name))
	body.WriteString(m.Name)
	writePad(&body, len(m.Name))

	writeTag(&body, miDOUBLE, 8*len(m.Data))
	word := make([]byte, 8)
	for j := 0; j < m.Cols; j++ {
		for i := 0; i < m.Rows; i++ {
			binary.LittleEndian.PutUint64(word, math.Float64bits(m.Data[i*m.Cols+j]))
			body.Write(word)
		}
	}

	var out bytes.Buffer
	writeTag(&out, miMATRIX, body.Len())
	out.Write(body.Bytes())
	return out.Bytes()
}

func writeTag(buf *bytes.Buffer, typ uint32, n int) {
	_ = binary.Write(buf, binary.LittleEndian, [2]uint32{typ, uint32(n)}) //nolint:gosec // G115: element sizes fit uint32.
}

func writePad(buf *bytes.Buffer, n int) {
	buf.Write(make([]byte, pad8(n)-n))
}

// FromRows builds a named matrix from row slices.
func FromRows(name string, rows [][]float64) *Matrix {
	m := &Matrix{Name: name, Rows: len(rows)}
	if len(rows) > 0 {
		m.Cols = len(rows[0])
	}
	m.Data = make([]float64, 0, m.Rows*m.Cols)
	for _, r := range rows {
		m.Data = append(m.Data, r...)
	}
	return m
}
