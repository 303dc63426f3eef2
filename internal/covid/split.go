package covid

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/colearn-ml/colearn-examples/internal/dataset"
	"github.com/colearn-ml/colearn-examples/internal/logging"
	"github.com/colearn-ml/colearn-examples/internal/matfile"
	"github.com/colearn-ml/colearn-examples/internal/preprocess"
	"github.com/colearn-ml/colearn-examples/internal/serialization"
)

// Classes are the dataset's class files, in concatenation order.
var Classes = []string{"covid", "normal", "pneumonia"}

// Errors.
var (
	ErrNoFeatures   = errors.New("class matrix needs at least one feature column and a label column")
	ErrWidth        = errors.New("class matrices have different widths")
	ErrLabel        = errors.New("label is not an integer in [0, 255]")
	ErrDataSplit    = errors.New("data split does not match number of learners")
	ErrInvalidRatio = errors.New("test ratio must be in [0, 1)")
)

// SplitOptions configures SplitToFolders.
type SplitOptions struct {
	DataDir          string
	ShuffleSeed      int64
	DataSplit        []float64 // per-learner fractions; nil means equal shares
	NLearners        int
	OutputFolder     string
	TestOutputFolder string
	TestRatio        float64 // share of rows(covid) held out per class
	NComponents      int
	Logger           *zap.Logger
}

// classData is one class file split into features and labels.
type classData struct {
	x [][]float64
	y []uint8
}

// SplitToFolders partitions the dataset into NLearners shard directories
// under OutputFolder and, when TestRatio > 0, a global test shard in
// TestOutputFolder. It returns the learner directories followed by the test
// directory.
func SplitToFolders(ctx context.Context, opts SplitOptions) ([]string, error) {
	log := logging.OrNop(opts.Logger)
	if opts.TestRatio < 0 || opts.TestRatio >= 1 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRatio, opts.TestRatio)
	}
	if opts.NLearners <= 0 {
		return nil, fmt.Errorf("%w: %d learners", dataset.ErrInvalidLearners, opts.NLearners)
	}
	split := opts.DataSplit
	if len(split) == 0 {
		split = dataset.EqualSplit(opts.NLearners)
	}
	if len(split) != opts.NLearners {
		return nil, fmt.Errorf("%w: %d fractions for %d learners", ErrDataSplit, len(split), opts.NLearners)
	}

	// The test shard is written after the learners and resets its directory.
	if opts.TestRatio > 0 {
		if err := serialization.CheckDisjoint(opts.OutputFolder, opts.TestOutputFolder); err != nil {
			return nil, err
		}
	}

	classes, err := loadClasses(ctx, opts.DataDir)
	if err != nil {
		return nil, err
	}

	rng := dataset.NewRand(opts.ShuffleSeed)
	var xTest [][]float64
	var yTest []uint8
	if opts.TestRatio > 0 {
		testSize := int(float64(len(classes[0].x)) * opts.TestRatio)
		log.Info("global test splitting",
			zap.Float64("test_ratio", opts.TestRatio),
			zap.Int("rows_per_class", testSize))

		for i := range classes {
			c := &classes[i]
			shuffleClass(rng, c)
			n := min(testSize, len(c.x))
			xTest = append(xTest, c.x[:n]...)
			yTest = append(yTest, c.y[:n]...)
			c.x, c.y = c.x[n:], c.y[n:]
		}
	}

	var x [][]float64
	var y []uint8
	for _, c := range classes {
		x = append(x, c.x...)
		y = append(y, c.y...)
	}
	if len(x) == 0 {
		return nil, fmt.Errorf("%w: no training rows left", preprocess.ErrEmptyInput)
	}

	x, xTest, err = reduce(x, xTest, opts.NComponents)
	if err != nil {
		return nil, err
	}
	if w := width(x); w < opts.NComponents {
		log.Warn("fewer components than requested",
			zap.Int("n_components", opts.NComponents),
			zap.Int("kept", w))
	}
	log.Info("reduced features",
		zap.Ints("shape_x", []int{len(x), width(x)}),
		zap.Int("shape_y", len(y)),
		zap.Ints("shape_x_test", []int{len(xTest), width(xTest)}))

	x, y, err = dataset.ShuffleData(x, y, opts.ShuffleSeed)
	if err != nil {
		return nil, err
	}
	ranges, err := dataset.SplitByChunkSizes(len(x), split)
	if err != nil {
		return nil, err
	}
	images := dataset.SplitSlice(preprocess.ToFloat32(x), ranges)
	labels := dataset.SplitSlice(y, ranges)

	runID := uuid.NewString()
	log.Info("writing learner shards",
		zap.String("output_dir", opts.OutputFolder),
		zap.String("test_output_dir", opts.TestOutputFolder),
		zap.String("run_id", runID))

	dirs := make([]string, opts.NLearners)
	g, gctx := errgroup.WithContext(ctx)
	for i := range opts.NLearners {
		dir := filepath.Join(opts.OutputFolder, strconv.Itoa(i))
		dirs[i] = dir
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			shard := &serialization.Shard{Images: images[i], Labels: labels[i]}
			if err := writeShard(dir, shard, runID, strconv.Itoa(i)); err != nil {
				return err
			}
			fields := []zap.Field{zap.Int("learner", i), zap.Int("samples", shard.Len()), zap.Int("features", shard.Features())}
			if shard.Len() > 0 {
				fields = append(fields, zap.Uint8("label_idx0", shard.Labels[0]))
			}
			log.Info("learner shard written", fields...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if opts.TestRatio > 0 {
		shard := &serialization.Shard{Images: preprocess.ToFloat32(xTest), Labels: yTest}
		if err := writeShard(opts.TestOutputFolder, shard, runID, "test"); err != nil {
			return nil, err
		}
		dirs = append(dirs, opts.TestOutputFolder)
		log.Info("global test set created", zap.Int("samples", shard.Len()))
	}

	log.Debug("split complete", zap.Strings("dirs", dirs))
	return dirs, nil
}

// loadClasses reads the three class files concurrently.
func loadClasses(ctx context.Context, dataDir string) ([]classData, error) {
	out := make([]classData, len(Classes))
	g, _ := errgroup.WithContext(ctx)
	for i, name := range Classes {
		g.Go(func() error {
			c, err := loadClass(filepath.Join(dataDir, name+".mat"), name)
			if err != nil {
				return err
			}
			out[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cols := width(out[0].x)
	for i, c := range out {
		if len(c.x) > 0 && width(c.x) != cols {
			return nil, fmt.Errorf("%w: %s has %d features, %s has %d",
				ErrWidth, Classes[i], width(c.x), Classes[0], cols)
		}
	}
	return out, nil
}

// loadClass reads variable name from path and splits off the label column.
func loadClass(path, name string) (classData, error) {
	f, err := matfile.ReadFile(path)
	if err != nil {
		return classData{}, err
	}
	m, err := f.Var(name)
	if err != nil {
		return classData{}, fmt.Errorf("%s: %w", path, err)
	}
	if m.Cols < 2 {
		return classData{}, fmt.Errorf("%w: %s is %dx%d", ErrNoFeatures, name, m.Rows, m.Cols)
	}

	c := classData{x: make([][]float64, m.Rows), y: make([]uint8, m.Rows)}
	for i := range m.Rows {
		row := m.Row(i)
		label, err := toLabel(row[m.Cols-1])
		if err != nil {
			return classData{}, fmt.Errorf("%s row %d: %w", name, i, err)
		}
		c.x[i] = row[:m.Cols-1]
		c.y[i] = label
	}
	return c, nil
}

func toLabel(v float64) (uint8, error) {
	if v != math.Trunc(v) || v < 0 || v > math.MaxUint8 {
		return 0, fmt.Errorf("%w: %v", ErrLabel, v)
	}
	return uint8(v), nil
}

// shuffleClass shuffles a class's rows and labels together.
func shuffleClass(rng *rand.Rand, c *classData) {
	rng.Shuffle(len(c.x), func(i, j int) {
		c.x[i], c.x[j] = c.x[j], c.x[i]
		c.y[i], c.y[j] = c.y[j], c.y[i]
	})
}

// reduce min-max scales and projects the training rows, applying the same
// fitted transforms to the test rows.
func reduce(x, xTest [][]float64, components int) ([][]float64, [][]float64, error) {
	scaler := preprocess.NewMinMaxScaler()
	x, err := scaler.FitTransform(x)
	if err != nil {
		return nil, nil, fmt.Errorf("min-max scaling: %w", err)
	}
	pca := preprocess.NewKernelPCA(components)
	x, err = pca.FitTransform(x)
	if err != nil {
		return nil, nil, fmt.Errorf("kernel PCA: %w", err)
	}

	if len(xTest) == 0 {
		return x, nil, nil
	}
	xTest, err = scaler.Transform(xTest)
	if err != nil {
		return nil, nil, fmt.Errorf("min-max scaling test set: %w", err)
	}
	xTest, err = pca.Transform(xTest)
	if err != nil {
		return nil, nil, fmt.Errorf("kernel PCA test set: %w", err)
	}
	return x, xTest, nil
}

func writeShard(dir string, shard *serialization.Shard, runID, role string) error {
	if err := serialization.ResetDir(dir); err != nil {
		return err
	}
	return serialization.WriteShard(dir, shard, map[string]string{
		"dataset": "covid_xray",
		"run_id":  runID,
		"role":    role,
	})
}

func width[T any](x [][]T) int {
	if len(x) == 0 {
		return 0
	}
	return len(x[0])
}
