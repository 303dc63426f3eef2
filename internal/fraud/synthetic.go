package fraud

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/colearn-ml/colearn-examples/internal/dataset"
)

// WriteSynthetic writes small transaction and identity tables with the
// real column layout into dir. Every other transaction has an identity
// row. Fraudulent rows have larger amounts.
func WriteSynthetic(dir string, n int, seed int64) error {
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // G301: shared dataset directory.
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	rng := dataset.NewRand(seed)
	cards := []string{"visa", "mastercard", "discover", ""}

	trans := [][]string{{KeyColumn, LabelColumn, TimeColumn, "TransactionAmt", "card4", "dist1"}}
	ident := [][]string{{KeyColumn, "id_01", "DeviceType"}}
	for i := range n {
		id := strconv.Itoa(3000000 + i)
		fraud := rng.IntN(4) == 0
		amt := 20 + rng.Float64()*80
		label := "0"
		if fraud {
			amt += 200
			label = "1"
		}
		dist := strconv.Itoa(rng.IntN(300))
		if rng.IntN(5) == 0 {
			dist = ""
		}
		trans = append(trans, []string{
			id, label,
			strconv.Itoa(86400 + rng.IntN(1_000_000)),
			strconv.FormatFloat(amt, 'f', 2, 64),
			cards[rng.IntN(len(cards))],
			dist,
		})
		if i%2 == 0 {
			device := "desktop"
			if rng.IntN(2) == 0 {
				device = "mobile"
			}
			ident = append(ident, []string{id, strconv.Itoa(-rng.IntN(100)), device})
		}
	}

	if err := writeCSV(filepath.Join(dir, TransactionFile), trans); err != nil {
		return err
	}
	return writeCSV(filepath.Join(dir, IdentityFile), ident)
}

func writeCSV(path string, records [][]string) error {
	f, err := os.Create(path) //nolint:gosec // G304: path is under the configured data directory.
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
