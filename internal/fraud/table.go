package fraud

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
)

// Table errors.
var (
	ErrEmptyTable    = errors.New("table has no header")
	ErrMissingColumn = errors.New("required column missing")
	ErrDuplicateKey  = errors.New("duplicate join key")
)

// table is a CSV file held as strings.
type table struct {
	header []string
	index  map[string]int
	rows   [][]string
}

func readTable(path string) (*table, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path is the configured data directory.
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	t, err := parseTable(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func parseTable(r io.Reader) (*table, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyTable
	}
	if err != nil {
		return nil, err
	}

	t := &table{header: header, index: make(map[string]int, len(header))}
	for i, name := range header {
		t.index[name] = i
	}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		t.rows = append(t.rows, rec)
	}
	return t, nil
}

func (t *table) column(name string) (int, error) {
	i, ok := t.index[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingColumn, name)
	}
	return i, nil
}

// leftJoin appends right's columns (except the key) to every row of left.
// Rows of left without a match get empty strings.
func leftJoin(left, right *table, key string) (*table, error) {
	lk, err := left.column(key)
	if err != nil {
		return nil, err
	}
	rk, err := right.column(key)
	if err != nil {
		return nil, err
	}

	byKey := make(map[string][]string, len(right.rows))
	for _, row := range right.rows {
		if _, dup := byKey[row[rk]]; dup {
			return nil, fmt.Errorf("%w: %s=%s", ErrDuplicateKey, key, row[rk])
		}
		byKey[row[rk]] = row
	}

	out := &table{
		header: append([]string(nil), left.header...),
		index:  make(map[string]int),
	}
	var extra []int
	for i, name := range right.header {
		if i == rk {
			continue
		}
		if _, clash := left.index[name]; clash {
			continue
		}
		extra = append(extra, i)
		out.header = append(out.header, name)
	}
	for i, name := range out.header {
		out.index[name] = i
	}

	out.rows = make([][]string, len(left.rows))
	for i, row := range left.rows {
		joined := make([]string, 0, len(out.header))
		joined = append(joined, row...)
		match := byKey[row[lk]]
		for _, j := range extra {
			if match == nil {
				joined = append(joined, "")
			} else {
				joined = append(joined, match[j])
			}
		}
		out.rows[i] = joined
	}
	return out, nil
}
