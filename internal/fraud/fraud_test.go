package fraud

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/colearn-ml/colearn-examples/internal/config"
	"github.com/colearn-ml/colearn-examples/internal/serialization"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	transactionCSV = `TransactionID,isFraud,TransactionDT,TransactionAmt,card4
1,0,300,10,visa
2,1,100,,mastercard
3,0,200,30,visa
`
	identityCSV = `TransactionID,DeviceType
2,mobile
3,desktop
`
)

func mustParse(t *testing.T, s string) *table {
	t.Helper()
	tbl, err := parseTable(strings.NewReader(s))
	require.NoError(t, err)
	return tbl
}

func writeTables(t *testing.T, trans, ident string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, TransactionFile), []byte(trans), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, IdentityFile), []byte(ident), 0o600))
	return dir
}

func TestLeftJoin(t *testing.T) {
	joined, err := leftJoin(mustParse(t, transactionCSV), mustParse(t, identityCSV), KeyColumn)
	require.NoError(t, err)

	assert.Equal(t, []string{"TransactionID", "isFraud", "TransactionDT", "TransactionAmt", "card4", "DeviceType"}, joined.header)
	want := [][]string{
		{"1", "0", "300", "10", "visa", ""},
		{"2", "1", "100", "", "mastercard", "mobile"},
		{"3", "0", "200", "30", "visa", "desktop"},
	}
	if diff := cmp.Diff(want, joined.rows); diff != "" {
		t.Errorf("joined rows mismatch (-want +got):\n%s", diff)
	}
}

func TestLeftJoin_Errors(t *testing.T) {
	_, err := leftJoin(mustParse(t, transactionCSV), mustParse(t, "id,DeviceType\n1,x\n"), KeyColumn)
	assert.ErrorIs(t, err, ErrMissingColumn)

	_, err = leftJoin(mustParse(t, transactionCSV), mustParse(t, "TransactionID,DeviceType\n1,x\n1,y\n"), KeyColumn)
	assert.ErrorIs(t, err, ErrDuplicateKey)

	_, err = parseTable(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyTable)
}

func TestEncode(t *testing.T) {
	joined, err := leftJoin(mustParse(t, transactionCSV), mustParse(t, identityCSV), KeyColumn)
	require.NoError(t, err)

	x, y, err := encode(joined, Options{FillValue: -999})
	require.NoError(t, err)

	assert.Equal(t, []uint8{1, 0, 0}, y, "rows follow TransactionDT")
	want := [][]float64{
		// amount, card4 (mastercard < visa), DeviceType ("" < desktop < mobile)
		{-999, 0, 2},
		{30, 1, 1},
		{10, 1, 0},
	}
	assert.Equal(t, want, x)
}

func TestEncode_ForcedCategorical(t *testing.T) {
	joined, err := leftJoin(mustParse(t, transactionCSV), mustParse(t, identityCSV), KeyColumn)
	require.NoError(t, err)

	x, _, err := encode(joined, Options{FillValue: -1, CategoricalColumns: []string{"TransactionAmt"}})
	require.NoError(t, err)

	// Classes "", "10", "30" sort as strings.
	assert.Equal(t, []float64{0, 2, 1}, []float64{x[0][0], x[1][0], x[2][0]})
}

func TestEncodeColumn(t *testing.T) {
	assert.Equal(t, []float64{1.5, 7, 7, -2}, encodeColumn([]string{"1.5", "", "inf", "-2"}, false, 7))
	assert.Equal(t, []float64{7}, encodeColumn([]string{"NaN"}, false, 7))
	assert.Equal(t, []float64{1, 0, 1}, encodeColumn([]string{"b", "a", "b"}, false, 0))
}

func TestEncode_Errors(t *testing.T) {
	tbl := mustParse(t, "TransactionID,isFraud,TransactionDT\n1,2,5\n")
	_, _, err := encode(tbl, Options{})
	assert.ErrorIs(t, err, ErrLabel)

	tbl = mustParse(t, "TransactionID,isFraud\n1,0\n")
	_, _, err = encode(tbl, Options{})
	assert.ErrorIs(t, err, ErrMissingColumn)

	tbl = mustParse(t, "TransactionID,isFraud,TransactionDT\n1,0,soon\n")
	_, _, err = encode(tbl, Options{})
	assert.Error(t, err)
}

func TestPreprocess_Scaled(t *testing.T) {
	dir := writeTables(t, transactionCSV, identityCSV)

	x, y, err := Preprocess(context.Background(), Options{DataDir: dir, FillValue: -999, Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	require.Len(t, x, 3)
	assert.Equal(t, []uint8{1, 0, 0}, y)

	for j := range x[0] {
		var sum, sq float64
		for i := range x {
			sum += x[i][j]
			sq += x[i][j] * x[i][j]
		}
		assert.InDelta(t, 0, sum/3, 1e-9, "column %d mean", j)
		assert.InDelta(t, 1, sq/3, 1e-9, "column %d variance", j)
	}
}

func observed() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func TestPreprocess_Cache(t *testing.T) {
	dir := writeTables(t, transactionCSV, identityCSV)
	logger, logs := observed()
	opts := Options{
		DataDir:   dir,
		FillValue: -999,
		UseCache:  true,
		CacheDir:  filepath.Join(t.TempDir(), "cache"),
		Logger:    logger,
	}

	x, y, err := Preprocess(context.Background(), opts)
	require.NoError(t, err)
	shard, err := serialization.ReadShard(opts.CacheDir)
	require.NoError(t, err)
	abs, err := filepath.Abs(dir)
	require.NoError(t, err)
	assert.Equal(t, abs, shard.Metadata[metaSourceDir])
	assert.Equal(t, strconv.Itoa(len(transactionCSV)), shard.Metadata[TransactionFile+".size"])
	assert.NotEmpty(t, shard.Metadata[IdentityFile+".mtime"])
	assert.Zero(t, logs.FilterMessage("loaded fraud cache").Len())

	cx, cy, err := Preprocess(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("loaded fraud cache").Len())
	assert.Equal(t, y, cy)
	require.Len(t, cx, len(x))
	for i := range x {
		assert.InDeltaSlice(t, x[i], cx[i], 1e-6)
	}

	// A cache cannot be validated without its source tables.
	require.NoError(t, os.Remove(filepath.Join(dir, TransactionFile)))
	_, _, err = Preprocess(context.Background(), opts)
	assert.ErrorIs(t, err, os.ErrNotExist)

	opts.UseCache = false
	_, _, err = Preprocess(context.Background(), opts)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPreprocess_CacheSharedAcrossDatasets(t *testing.T) {
	dirA, dirB := t.TempDir(), t.TempDir()
	require.NoError(t, WriteSynthetic(dirA, 20, 1))
	require.NoError(t, WriteSynthetic(dirB, 50, 2))
	logger, logs := observed()
	cacheDir := filepath.Join(t.TempDir(), "cache")

	opts := Options{DataDir: dirA, FillValue: -999, UseCache: true, CacheDir: cacheDir, Logger: logger}
	_, y, err := Preprocess(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, y, 20)

	opts.DataDir = dirB
	_, y, err = Preprocess(context.Background(), opts)
	require.NoError(t, err)
	assert.Len(t, y, 50)
	stale := logs.FilterMessage("fraud cache is stale").All()
	require.Len(t, stale, 1)
	assert.Equal(t, metaSourceDir, stale[0].ContextMap()["mismatch"])

	shard, err := serialization.ReadShard(cacheDir)
	require.NoError(t, err)
	assert.Equal(t, 50, shard.Len())
}

func TestPreprocess_CacheInvalidatedByRewrite(t *testing.T) {
	dir := writeTables(t, transactionCSV, identityCSV)
	opts := Options{DataDir: dir, FillValue: -999, UseCache: true, CacheDir: filepath.Join(t.TempDir(), "cache")}

	_, y, err := Preprocess(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, y, 3)

	grown := transactionCSV + "4,1,400,40,visa\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, TransactionFile), []byte(grown), 0o600))
	_, y, err = Preprocess(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, []uint8{1, 0, 0, 1}, y)
}

func TestCacheMatches(t *testing.T) {
	fp := map[string]string{metaSourceDir: "/data", "a.size": "10"}

	key, ok := cacheMatches(map[string]string{metaSourceDir: "/data", "a.size": "10", "role": "cache"}, fp)
	assert.True(t, ok)
	assert.Empty(t, key)

	key, ok = cacheMatches(map[string]string{metaSourceDir: "/data"}, fp)
	assert.False(t, ok)
	assert.Equal(t, "a.size", key)
}

func splitOptions(t *testing.T, dataDir string) SplitOptions {
	t.Helper()
	out := t.TempDir()
	return SplitOptions{
		Options:          Options{DataDir: dataDir, FillValue: -999, Logger: zaptest.NewLogger(t)},
		ShuffleSeed:      42,
		NLearners:        3,
		OutputFolder:     filepath.Join(out, "fraud"),
		TestOutputFolder: filepath.Join(out, "fraud_test"),
	}
}

func TestSplitToFolders(t *testing.T) {
	dataDir := t.TempDir()
	require.NoError(t, WriteSynthetic(dataDir, 60, 7))

	opts := splitOptions(t, dataDir)
	opts.TestRatio = 0.25
	dirs, err := SplitToFolders(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, dirs, 4)
	assert.Equal(t, opts.TestOutputFolder, dirs[3])

	total := 0
	for _, dir := range dirs {
		s, err := serialization.ReadShard(dir)
		require.NoError(t, err)
		assert.Equal(t, 5, s.Features(), "TransactionAmt, card4, dist1, id_01, DeviceType")
		assert.Equal(t, "fraud", s.Metadata["dataset"])
		total += s.Len()
	}
	assert.Equal(t, 60, total)

	test, err := serialization.ReadShard(dirs[3])
	require.NoError(t, err)
	assert.Equal(t, 15, test.Len())
}

func TestSplitToFolders_Deterministic(t *testing.T) {
	dataDir := t.TempDir()
	require.NoError(t, WriteSynthetic(dataDir, 40, 3))

	labels := func(seed int64) [][]uint8 {
		opts := splitOptions(t, dataDir)
		opts.ShuffleSeed = seed
		dirs, err := SplitToFolders(context.Background(), opts)
		require.NoError(t, err)
		out := make([][]uint8, len(dirs))
		for i, dir := range dirs {
			s, err := serialization.ReadShard(dir)
			require.NoError(t, err)
			out[i] = s.Labels
		}
		return out
	}

	assert.Equal(t, labels(42), labels(42))
}

func TestSplitToFolders_Errors(t *testing.T) {
	dataDir := writeTables(t, transactionCSV, identityCSV)

	opts := splitOptions(t, dataDir)
	opts.DataSplit = []float64{0.5, 0.5}
	_, err := SplitToFolders(context.Background(), opts)
	assert.ErrorIs(t, err, ErrDataSplit)

	opts = splitOptions(t, dataDir)
	opts.NLearners = 0
	_, err = SplitToFolders(context.Background(), opts)
	assert.Error(t, err)
}

func TestSplitToFolders_OverlappingOutputs(t *testing.T) {
	dataDir := writeTables(t, transactionCSV, identityCSV)

	opts := splitOptions(t, dataDir)
	opts.TestRatio = 0.25
	opts.TestOutputFolder = filepath.Dir(opts.OutputFolder)
	_, err := SplitToFolders(context.Background(), opts)
	assert.ErrorIs(t, err, serialization.ErrOverlappingDirs)

	opts.TestOutputFolder = opts.OutputFolder
	_, err = SplitToFolders(context.Background(), opts)
	assert.ErrorIs(t, err, serialization.ErrOverlappingDirs)

	_, err = os.Stat(opts.OutputFolder)
	assert.True(t, os.IsNotExist(err), "nothing is written")
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig().Fraud
	opts := OptionsFromConfig(cfg, "/data/fraud", nil)

	assert.Equal(t, "/data/fraud", opts.DataDir)
	assert.Equal(t, cfg.NLearners, opts.NLearners)
	assert.Equal(t, cfg.CacheDir, opts.CacheDir)
	assert.True(t, opts.UseCache)
	assert.Equal(t, -999.0, opts.FillValue)
}

func TestPrepareSingleClient(t *testing.T) {
	dataDir := t.TempDir()
	require.NoError(t, WriteSynthetic(dataDir, 30, 1))
	opts := splitOptions(t, dataDir)
	opts.TestRatio = 0.2
	dirs, err := SplitToFolders(context.Background(), opts)
	require.NoError(t, err)

	cfg := config.DefaultConfig().Fraud
	cfg.BatchSize = 4

	ld, err := PrepareSingleClient(cfg, dirs[0], dirs[len(dirs)-1], nil)
	require.NoError(t, err)
	assert.Equal(t, 8, ld.TrainDataSize)
	assert.Equal(t, 6, ld.TestDataSize)

	b := ld.TestGen.Next()
	assert.Equal(t, 4, b.Size())
	for _, row := range b.Data {
		for _, v := range row {
			assert.False(t, math.IsNaN(float64(v)))
		}
	}

	ld, err = PrepareSingleClient(cfg, dirs[0], "", nil)
	require.NoError(t, err)
	assert.Equal(t, ld.TrainDataSize, ld.TestDataSize)
}
