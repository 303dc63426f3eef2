package covid

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/colearn-ml/colearn-examples/internal/config"
	"github.com/colearn-ml/colearn-examples/internal/feed"
	"github.com/colearn-ml/colearn-examples/internal/matfile"
	"github.com/colearn-ml/colearn-examples/internal/serialization"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func splitOptions(t *testing.T, dataDir string) SplitOptions {
	t.Helper()
	out := t.TempDir()
	return SplitOptions{
		DataDir:          dataDir,
		ShuffleSeed:      42,
		NLearners:        3,
		OutputFolder:     filepath.Join(out, "covid_xray"),
		TestOutputFolder: filepath.Join(out, "covid_xray_test"),
		TestRatio:        0.2,
		NComponents:      4,
		Logger:           zaptest.NewLogger(t),
	}
}

func syntheticDir(t *testing.T, rows, features int) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, WriteSynthetic(dir, rows, features, 1))
	return dir
}

func TestSplitToFolders_Layout(t *testing.T) {
	dataDir := syntheticDir(t, 20, 6)
	opts := splitOptions(t, dataDir)

	dirs, err := SplitToFolders(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, dirs, 4)
	for i := 0; i < 3; i++ {
		assert.Equal(t, filepath.Join(opts.OutputFolder, strconv.Itoa(i)), dirs[i])
	}
	assert.Equal(t, opts.TestOutputFolder, dirs[3], "test directory comes last")

	// 20 rows per class, int(20*0.2)=4 test rows per class.
	total := 0
	for _, dir := range dirs[:3] {
		shard, err := serialization.ReadShard(dir)
		require.NoError(t, err)
		assert.Equal(t, 4, shard.Features())
		assert.Equal(t, "covid_xray", shard.Metadata["dataset"])
		total += shard.Len()
	}
	assert.Equal(t, 3*16, total, "learner shards cover every training row")

	test, err := serialization.ReadShard(dirs[3])
	require.NoError(t, err)
	assert.Equal(t, 12, test.Len())
	assert.Equal(t, 4, test.Features())
	assert.Equal(t, 3*20, total+test.Len(), "train and test add up to the dataset")

	counts := map[uint8]int{}
	for _, l := range test.Labels {
		counts[l]++
	}
	assert.Equal(t, map[uint8]int{0: 4, 1: 4, 2: 4}, counts, "each class contributes equally to the test set")
}

func TestSplitToFolders_Deterministic(t *testing.T) {
	dataDir := syntheticDir(t, 15, 5)

	read := func(dirs []string) []*serialization.Shard {
		out := make([]*serialization.Shard, len(dirs))
		for i, dir := range dirs {
			s, err := serialization.ReadShard(dir)
			require.NoError(t, err)
			s.Metadata = nil
			out[i] = s
		}
		return out
	}

	first, err := SplitToFolders(context.Background(), splitOptions(t, dataDir))
	require.NoError(t, err)
	second, err := SplitToFolders(context.Background(), splitOptions(t, dataDir))
	require.NoError(t, err)

	if diff := cmp.Diff(read(first), read(second)); diff != "" {
		t.Fatalf("same seed produced different shards (-first +second):\n%s", diff)
	}

	other := splitOptions(t, dataDir)
	other.ShuffleSeed = 43
	third, err := SplitToFolders(context.Background(), other)
	require.NoError(t, err)
	assert.NotEqual(t, read(first)[0].Labels, read(third)[0].Labels)
}

func TestSplitToFolders_NoTestSet(t *testing.T) {
	dataDir := syntheticDir(t, 10, 3)
	opts := splitOptions(t, dataDir)
	opts.TestRatio = 0
	opts.DataSplit = []float64{0.5, 0.3, 0.2}

	dirs, err := SplitToFolders(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, dirs, 3)

	sizes := make([]int, 3)
	for i, dir := range dirs {
		s, err := serialization.ReadShard(dir)
		require.NoError(t, err)
		sizes[i] = s.Len()
		assert.Equal(t, 3, s.Features(), "components capped at feature count")
	}
	assert.Equal(t, []int{15, 9, 6}, sizes)

	_, err = os.Stat(opts.TestOutputFolder)
	assert.True(t, os.IsNotExist(err))
}

func TestSplitToFolders_ReplacesExistingDirs(t *testing.T) {
	dataDir := syntheticDir(t, 10, 3)
	opts := splitOptions(t, dataDir)

	stale := filepath.Join(opts.OutputFolder, "0", "stale.pickle")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o600))

	_, err := SplitToFolders(context.Background(), opts)
	require.NoError(t, err)
	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
}

func TestSplitToFolders_Errors(t *testing.T) {
	dataDir := syntheticDir(t, 10, 3)

	opts := splitOptions(t, dataDir)
	opts.DataSplit = []float64{1}
	_, err := SplitToFolders(context.Background(), opts)
	assert.ErrorIs(t, err, ErrDataSplit)

	opts = splitOptions(t, dataDir)
	opts.TestRatio = 1
	_, err = SplitToFolders(context.Background(), opts)
	assert.ErrorIs(t, err, ErrInvalidRatio)

	opts = splitOptions(t, t.TempDir())
	_, err = SplitToFolders(context.Background(), opts)
	assert.Error(t, err, "missing class files")

	badLabels := t.TempDir()
	require.NoError(t, WriteSynthetic(badLabels, 4, 2, 1))
	m := matfile.FromRows("normal", [][]float64{{0.1, 0.2, 1.5}})
	require.NoError(t, matfile.WriteFile(filepath.Join(badLabels, "normal.mat"), []*matfile.Matrix{m}, matfile.WriteOptions{}))
	_, err = SplitToFolders(context.Background(), splitOptions(t, badLabels))
	assert.ErrorIs(t, err, ErrLabel)

	wrongVar := t.TempDir()
	require.NoError(t, WriteSynthetic(wrongVar, 4, 2, 1))
	m = matfile.FromRows("covid19", [][]float64{{0.1, 0.2, 0}})
	require.NoError(t, matfile.WriteFile(filepath.Join(wrongVar, "covid.mat"), []*matfile.Matrix{m}, matfile.WriteOptions{}))
	_, err = SplitToFolders(context.Background(), splitOptions(t, wrongVar))
	assert.ErrorIs(t, err, matfile.ErrVariableNotFound)
}

func TestPrepareSingleClient(t *testing.T) {
	dataDir := syntheticDir(t, 20, 6)
	dirs, err := SplitToFolders(context.Background(), splitOptions(t, dataDir))
	require.NoError(t, err)

	cfg := config.DefaultConfig().Covid
	cfg.FeatureSize = 4
	cfg.BatchSize = 3

	t.Run("separate test dir", func(t *testing.T) {
		ld, err := PrepareSingleClient(cfg, dirs[0], dirs[len(dirs)-1], zaptest.NewLogger(t))
		require.NoError(t, err)

		learner, err := serialization.ReadShard(dirs[0])
		require.NoError(t, err)
		assert.Equal(t, learner.Len(), ld.TrainDataSize)
		assert.Equal(t, 12, ld.TestDataSize)
		assert.Equal(t, 3, ld.TrainBatchSize)

		b := ld.TrainGen.Next()
		assert.Equal(t, 3, b.Size())
		assert.Len(t, b.Data[0], 4)
	})

	t.Run("ratio split", func(t *testing.T) {
		ld, err := PrepareSingleClient(cfg, dirs[0], "", nil)
		require.NoError(t, err)

		learner, err := serialization.ReadShard(dirs[0])
		require.NoError(t, err)
		assert.Equal(t, learner.Len(), ld.TrainDataSize+ld.TestDataSize)
		assert.Equal(t, ld.TrainGen.Take(4), ld.ValGen.Take(4))
	})

	t.Run("feature size mismatch", func(t *testing.T) {
		bad := cfg
		bad.FeatureSize = 64
		_, err := PrepareSingleClient(bad, dirs[0], "", nil)
		assert.ErrorIs(t, err, feed.ErrFeatureMismatch)
		assert.ErrorContains(t, err, "has 4 features but feature_size is 64")
	})
}

func TestPrepareSingleClient_ComponentsCappedBySamples(t *testing.T) {
	// 5 rows per class with a 0.2 test ratio leaves 12 training rows, fewer
	// than the 64 components the default configuration asks for.
	dataDir := syntheticDir(t, 5, 80)
	opts := splitOptions(t, dataDir)
	opts.NComponents = 64
	dirs, err := SplitToFolders(context.Background(), opts)
	require.NoError(t, err)

	learner, err := serialization.ReadShard(dirs[0])
	require.NoError(t, err)
	require.Equal(t, 12, learner.Features())

	cfg := config.DefaultConfig().Covid
	require.Equal(t, 64, cfg.FeatureSize)
	_, err = PrepareSingleClient(cfg, dirs[0], dirs[len(dirs)-1], nil)
	assert.ErrorIs(t, err, feed.ErrFeatureMismatch)
	assert.ErrorContains(t, err, "has 12 features but feature_size is 64")

	cfg.FeatureSize = learner.Features()
	_, err = PrepareSingleClient(cfg, dirs[0], dirs[len(dirs)-1], nil)
	assert.NoError(t, err)
}

func TestSplitToFolders_OverlappingOutputs(t *testing.T) {
	dataDir := syntheticDir(t, 10, 3)

	for name, testDir := range map[string]func(SplitOptions) string{
		"same dir":  func(o SplitOptions) string { return o.OutputFolder },
		"parent":    func(o SplitOptions) string { return filepath.Dir(o.OutputFolder) },
		"learner 0": func(o SplitOptions) string { return filepath.Join(o.OutputFolder, "0") },
	} {
		t.Run(name, func(t *testing.T) {
			opts := splitOptions(t, dataDir)
			opts.TestOutputFolder = testDir(opts)
			_, err := SplitToFolders(context.Background(), opts)
			assert.ErrorIs(t, err, serialization.ErrOverlappingDirs)

			_, err = os.Stat(filepath.Join(opts.OutputFolder, "0"))
			assert.True(t, os.IsNotExist(err), "nothing is written")
		})
	}

	// Without a test shard the test directory is never touched.
	opts := splitOptions(t, dataDir)
	opts.TestRatio = 0
	opts.TestOutputFolder = opts.OutputFolder
	_, err := SplitToFolders(context.Background(), opts)
	assert.NoError(t, err)
}
