package fraud

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/colearn-ml/colearn-examples/internal/logging"
	"github.com/colearn-ml/colearn-examples/internal/preprocess"
	"github.com/colearn-ml/colearn-examples/internal/serialization"
)

// Input files and the columns the preprocessing depends on.
const (
	TransactionFile = "train_transaction.csv"
	IdentityFile    = "train_identity.csv"

	KeyColumn   = "TransactionID"
	TimeColumn  = "TransactionDT"
	LabelColumn = "isFraud"
)

// ErrLabel reports an isFraud value other than 0 or 1.
var ErrLabel = errors.New("label must be 0 or 1")

// Options configures Preprocess.
type Options struct {
	DataDir            string
	CategoricalColumns []string // encoded even when every value parses as a number
	FillValue          float64
	UseCache           bool
	CacheDir           string
	Logger             *zap.Logger
}

// Preprocess loads, joins and scales the fraud tables. Rows come back in
// TransactionDT order with isFraud as the label. When UseCache is set a
// previous result in CacheDir is reused if it was built from the same
// DataDir and the tables' sizes and modification times still match;
// otherwise a fresh result is stored there. Cached features round-trip
// through float32.
func Preprocess(ctx context.Context, opts Options) ([][]float64, []uint8, error) {
	log := logging.OrNop(opts.Logger)

	var fp map[string]string
	if opts.UseCache && opts.CacheDir != "" {
		var err error
		if fp, err = sourceFingerprint(opts.DataDir); err != nil {
			return nil, nil, err
		}
		shard, err := serialization.ReadShard(opts.CacheDir)
		switch {
		case err == nil:
			if key, ok := cacheMatches(shard.Metadata, fp); !ok {
				log.Info("fraud cache is stale", zap.String("cache_dir", opts.CacheDir), zap.String("mismatch", key))
				break
			}
			log.Info("loaded fraud cache", zap.String("cache_dir", opts.CacheDir), zap.Int("samples", shard.Len()))
			return toFloat64(shard.Images), shard.Labels, nil
		case errors.Is(err, os.ErrNotExist):
			log.Debug("fraud cache miss", zap.String("cache_dir", opts.CacheDir))
		default:
			log.Warn("ignoring unreadable fraud cache", zap.String("cache_dir", opts.CacheDir), zap.Error(err))
		}
	}

	var trans, ident *table
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		trans, err = readTable(filepath.Join(opts.DataDir, TransactionFile))
		return err
	})
	g.Go(func() (err error) {
		ident, err = readTable(filepath.Join(opts.DataDir, IdentityFile))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	joined, err := leftJoin(trans, ident, KeyColumn)
	if err != nil {
		return nil, nil, err
	}
	log.Info("joined fraud tables",
		zap.Int("transactions", len(trans.rows)),
		zap.Int("identities", len(ident.rows)),
		zap.Int("columns", len(joined.header)))

	x, y, err := encode(joined, opts)
	if err != nil {
		return nil, nil, err
	}

	scaler := preprocess.NewStandardScaler()
	x, err = scaler.FitTransform(x)
	if err != nil {
		return nil, nil, fmt.Errorf("standard scaling: %w", err)
	}

	if opts.UseCache && opts.CacheDir != "" {
		if err := writeCache(opts.CacheDir, x, y, fp); err != nil {
			return nil, nil, err
		}
		log.Info("stored fraud cache", zap.String("cache_dir", opts.CacheDir))
	}
	return x, y, nil
}

// encode turns the joined table into a numeric matrix sorted by time.
func encode(t *table, opts Options) ([][]float64, []uint8, error) {
	timeCol, err := t.column(TimeColumn)
	if err != nil {
		return nil, nil, err
	}
	labelCol, err := t.column(LabelColumn)
	if err != nil {
		return nil, nil, err
	}
	keyCol, err := t.column(KeyColumn)
	if err != nil {
		return nil, nil, err
	}

	times := make([]float64, len(t.rows))
	for i, row := range t.rows {
		v, err := strconv.ParseFloat(row[timeCol], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: %s: %w", i, TimeColumn, err)
		}
		times[i] = v
	}
	order := make([]int, len(t.rows))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case times[a] < times[b]:
			return -1
		case times[a] > times[b]:
			return 1
		}
		return 0
	})

	y := make([]uint8, len(order))
	for i, r := range order {
		switch t.rows[r][labelCol] {
		case "0", "0.0":
			y[i] = 0
		case "1", "1.0":
			y[i] = 1
		default:
			return nil, nil, fmt.Errorf("%w: row %d has %q", ErrLabel, r, t.rows[r][labelCol])
		}
	}

	var features []int
	for j := range t.header {
		if j != timeCol && j != labelCol && j != keyCol {
			features = append(features, j)
		}
	}

	x := make([][]float64, len(order))
	for i := range x {
		x[i] = make([]float64, len(features))
	}
	values := make([]string, len(order))
	for c, j := range features {
		for i, r := range order {
			values[i] = t.rows[r][j]
		}
		col := encodeColumn(values, slices.Contains(opts.CategoricalColumns, t.header[j]), opts.FillValue)
		for i, v := range col {
			x[i][c] = v
		}
	}
	return x, y, nil
}

// encodeColumn parses a numeric column, or label-encodes it when forced or
// when any value is not a number. Missing and infinite numbers take fill.
func encodeColumn(values []string, categorical bool, fill float64) []float64 {
	out := make([]float64, len(values))
	if !categorical {
		for i, v := range values {
			if v == "" {
				out[i] = fill
				continue
			}
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				categorical = true
				break
			}
			if math.IsNaN(f) || math.IsInf(f, 0) {
				f = fill
			}
			out[i] = f
		}
	}
	if !categorical {
		return out
	}

	var enc preprocess.LabelEncoder
	return enc.FitTransform(values)
}

// Cache metadata key for the absolute source directory. Each input table
// adds "<file>.size" and "<file>.mtime" entries next to it.
const metaSourceDir = "source_dir"

// sourceFingerprint identifies the input tables a cache was built from.
func sourceFingerprint(dataDir string) (map[string]string, error) {
	abs, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("resolve data dir %s: %w", dataDir, err)
	}
	fp := map[string]string{metaSourceDir: abs}
	for _, name := range []string{TransactionFile, IdentityFile} {
		fi, err := os.Stat(filepath.Join(abs, name))
		if err != nil {
			return nil, err
		}
		fp[name+".size"] = strconv.FormatInt(fi.Size(), 10)
		fp[name+".mtime"] = strconv.FormatInt(fi.ModTime().UnixNano(), 10)
	}
	return fp, nil
}

// cacheMatches reports whether meta records fp, returning the first key
// that differs otherwise.
func cacheMatches(meta, fp map[string]string) (string, bool) {
	keys := slices.Sorted(maps.Keys(fp))
	for _, k := range keys {
		if meta[k] != fp[k] {
			return k, false
		}
	}
	return "", true
}

func writeCache(dir string, x [][]float64, y []uint8, fp map[string]string) error {
	if err := serialization.ResetDir(dir); err != nil {
		return err
	}
	extra := map[string]string{"dataset": "fraud", "role": "cache"}
	maps.Copy(extra, fp)
	shard := &serialization.Shard{Images: preprocess.ToFloat32(x), Labels: y}
	return serialization.WriteShard(dir, shard, extra)
}

func toFloat64(x [][]float32) [][]float64 {
	out := make([][]float64, len(x))
	for i, row := range x {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			out[i][j] = float64(v)
		}
	}
	return out
}
