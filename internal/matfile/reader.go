package matfile

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
)

// Matrix is a named two-dimensional real matrix stored row-major.
type Matrix struct {
	Name string
	Rows int
	Cols int
	Data []float64
}

// At returns element (i, j).
func (m *Matrix) At(i, j int) float64 { return m.Data[i*m.Cols+j] }

// Row returns a copy of row i.
func (m *Matrix) Row(i int) []float64 {
	out := make([]float64, m.Cols)
	copy(out, m.Data[i*m.Cols:(i+1)*m.Cols])
	return out
}

// ToRows returns the matrix as one slice per row.
func (m *Matrix) ToRows() [][]float64 {
	out := make([][]float64, m.Rows)
	for i := range out {
		out[i] = m.Row(i)
	}
	return out
}

// File is a parsed MAT-file.
type File struct {
	Text      string
	ByteOrder binary.ByteOrder
	vars      map[string]*Matrix
	skipped   map[string]error
}

// Var returns the variable with the given name.
func (f *File) Var(name string) (*Matrix, error) {
	if m, ok := f.vars[name]; ok {
		return m, nil
	}
	if err, ok := f.skipped[name]; ok {
		return nil, fmt.Errorf("variable %q: %w", name, err)
	}
	return nil, fmt.Errorf("%w: %q", ErrVariableNotFound, name)
}

// Names returns the names of all readable variables, sorted.
func (f *File) Names() []string {
	names := make([]string, 0, len(f.vars))
	for name := range f.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ReadFile opens and parses the MAT-file at path.
func ReadFile(path string) (*File, error) {
	//nolint:gosec // G304: dataset path is supplied by the user.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read MAT-file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Read parses a MAT-file from r.
func Read(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read MAT-file: %w", err)
	}
	return Parse(data)
}

// Parse parses an in-memory MAT-file. Unsupported variables are recorded and
// reported only when requested through Var.
func Parse(data []byte) (*File, error) {
	if len(data) < HeaderSize {
		return nil, ErrNotMAT
	}

	var order binary.ByteOrder
	switch string(data[126:128]) {
	case "IM":
		order = binary.LittleEndian
	case "MI":
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("%w: bad endian indicator", ErrNotMAT)
	}
	if v := order.Uint16(data[124:126]); v != Version {
		return nil, fmt.Errorf("%w: version 0x%04x", ErrNotMAT, v)
	}

	f := &File{
		Text:      string(bytes.TrimRight(data[:TextSize], " \x00")),
		ByteOrder: order,
		vars:      make(map[string]*Matrix),
		skipped:   make(map[string]error),
	}
	if err := f.parseElements(data[HeaderSize:]); err != nil {
		return nil, err
	}
	return f, nil
}

// parseElements walks top-level data elements.
func (f *File) parseElements(buf []byte) error {
	for len(buf) > 0 {
		typ, payload, rest, err := f.nextElement(buf)
		if err != nil {
			return err
		}
		buf = rest

		switch typ {
		case miCOMPRESSED:
			zr, err := zlib.NewReader(bytes.NewReader(payload))
			if err != nil {
				return fmt.Errorf("compressed element: %w", err)
			}
			inflated, err := io.ReadAll(zr)
			_ = zr.Close()
			if err != nil {
				return fmt.Errorf("compressed element: %w", err)
			}
			if err := f.parseElements(inflated); err != nil {
				return err
			}
		case miMATRIX:
			m, name, err := f.parseMatrix(payload)
			if err != nil {
				if name == "" {
					return err
				}
				f.skipped[name] = err
				continue
			}
			f.vars[m.Name] = m
		}
	}
	return nil
}

// nextElement splits one data element off buf.
func (f *File) nextElement(buf []byte) (typ uint32, payload, rest []byte, err error) {
	if len(buf) < tagSize {
		// Trailing padding shorter than a tag is tolerated.
		if allZero(buf) {
			return 0, nil, nil, nil
		}
		return 0, nil, nil, ErrTruncated
	}

	word := f.ByteOrder.Uint32(buf[0:4])
	if small := word >> 16; small != 0 {
		n := int(small)
		if n > smallDataBytes {
			return 0, nil, nil, fmt.Errorf("%w: small element of %d bytes", ErrTruncated, n)
		}
		return word & 0xffff, buf[4 : 4+n], buf[tagSize:], nil
	}

	typ = word
	n := int(f.ByteOrder.Uint32(buf[4:8]))
	end := tagSize + n
	if end > len(buf) {
		return 0, nil, nil, fmt.Errorf("%w: element needs %d bytes, have %d", ErrTruncated, n, len(buf)-tagSize)
	}
	payload = buf[tagSize:end]
	if typ != miCOMPRESSED {
		end = min(tagSize+pad8(n), len(buf))
	}
	return typ, payload, buf[end:], nil
}

// parseMatrix decodes an miMATRIX payload. The returned name is set as soon
// as it is known so callers can attribute later failures.
func (f *File) parseMatrix(buf []byte) (*Matrix, string, error) {
	typ, flags, buf, err := f.nextElement(buf)
	if err != nil {
		return nil, "", err
	}
	if typ != miUINT32 || len(flags) < 8 {
		return nil, "", fmt.Errorf("%w: missing array flags", ErrTruncated)
	}
	flagWord := f.ByteOrder.Uint32(flags[0:4])
	class := flagWord & 0xff

	typ, dimsRaw, buf, err := f.nextElement(buf)
	if err != nil {
		return nil, "", err
	}
	if typ != miINT32 {
		return nil, "", fmt.Errorf("%w: missing dimensions", ErrTruncated)
	}
	dims := make([]int, len(dimsRaw)/4)
	for i := range dims {
		dims[i] = int(int32(f.ByteOrder.Uint32(dimsRaw[i*4:])))
	}

	_, nameRaw, buf, err := f.nextElement(buf)
	if err != nil {
		return nil, "", err
	}
	name := string(nameRaw)

	if !numericClass(class) {
		return nil, name, fmt.Errorf("%w: class %d", ErrUnsupportedClass, class)
	}
	if flagWord&flagComplex != 0 {
		return nil, name, fmt.Errorf("%w: complex array", ErrUnsupportedClass)
	}
	if len(dims) != 2 {
		return nil, name, fmt.Errorf("%w: %d dimensions", ErrUnsupportedClass, len(dims))
	}

	typ, realPart, _, err := f.nextElement(buf)
	if err != nil {
		return nil, name, err
	}
	values, err := f.decodeNumeric(typ, realPart)
	if err != nil {
		return nil, name, err
	}

	rows, cols := dims[0], dims[1]
	if len(values) != rows*cols {
		return nil, name, fmt.Errorf("%w: %d values for %dx%d array", ErrTruncated, len(values), rows, cols)
	}

	// Column-major on disk, row-major in memory.
	m := &Matrix{Name: name, Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			m.Data[i*cols+j] = values[j*rows+i]
		}
	}
	return m, name, nil
}

// decodeNumeric converts a numeric element payload to float64. MATLAB may
// store an array in a narrower element type than its class.
func (f *File) decodeNumeric(typ uint32, buf []byte) ([]float64, error) {
	size, err := elementSize(typ)
	if err != nil {
		return nil, err
	}
	n := len(buf) / size
	out := make([]float64, n)
	o := f.ByteOrder
	for i := range out {
		b := buf[i*size:]
		switch typ {
		case miINT8:
			out[i] = float64(int8(b[0]))
		case miUINT8:
			out[i] = float64(b[0])
		case miINT16:
			out[i] = float64(int16(o.Uint16(b)))
		case miUINT16:
			out[i] = float64(o.Uint16(b))
		case miINT32:
			out[i] = float64(int32(o.Uint32(b)))
		case miUINT32:
			out[i] = float64(o.Uint32(b))
		case miSINGLE:
			out[i] = float64(math.Float32frombits(o.Uint32(b)))
		case miDOUBLE:
			out[i] = math.Float64frombits(o.Uint64(b))
		case miINT64:
			out[i] = float64(int64(o.Uint64(b)))
		case miUINT64:
			out[i] = float64(o.Uint64(b))
		}
	}
	return out, nil
}

func allZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
