package fraud

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/colearn-ml/colearn-examples/internal/config"
	"github.com/colearn-ml/colearn-examples/internal/dataset"
	"github.com/colearn-ml/colearn-examples/internal/feed"
	"github.com/colearn-ml/colearn-examples/internal/logging"
	"github.com/colearn-ml/colearn-examples/internal/preprocess"
	"github.com/colearn-ml/colearn-examples/internal/serialization"
)

// ErrDataSplit reports a DataSplit whose length differs from NLearners.
var ErrDataSplit = errors.New("data split does not match number of learners")

// SplitOptions configures SplitToFolders.
type SplitOptions struct {
	Options

	ShuffleSeed      int64
	DataSplit        []float64 // nil means equal shares
	NLearners        int
	OutputFolder     string
	TestOutputFolder string
	TestRatio        float64 // 0 disables the global test shard
}

// OptionsFromConfig maps the fraud section of the configuration onto
// SplitOptions.
func OptionsFromConfig(cfg config.FraudConfig, dataDir string, logger *zap.Logger) SplitOptions {
	return SplitOptions{
		Options: Options{
			DataDir:            dataDir,
			CategoricalColumns: cfg.CategoricalColumns,
			FillValue:          cfg.FillValue,
			UseCache:           cfg.UseCache,
			CacheDir:           cfg.CacheDir,
			Logger:             logger,
		},
		ShuffleSeed:      cfg.ShuffleSeed,
		DataSplit:        cfg.DataSplit,
		NLearners:        cfg.NLearners,
		OutputFolder:     cfg.OutputFolder,
		TestOutputFolder: cfg.TestOutputFolder,
		TestRatio:        cfg.TestRatio,
	}
}

// SplitToFolders preprocesses the tables, shuffles the rows with
// ShuffleSeed and writes one shard per learner under OutputFolder. With
// TestRatio > 0 the tail of the shuffled rows goes to TestOutputFolder,
// which is returned last.
func SplitToFolders(ctx context.Context, opts SplitOptions) ([]string, error) {
	log := logging.OrNop(opts.Logger)
	if opts.NLearners <= 0 {
		return nil, fmt.Errorf("%w: %d learners", dataset.ErrInvalidLearners, opts.NLearners)
	}
	if opts.TestRatio < 0 || opts.TestRatio >= 1 {
		return nil, fmt.Errorf("%w: %v", dataset.ErrInvalidRatio, opts.TestRatio)
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

	x, y, err := Preprocess(ctx, opts.Options)
	if err != nil {
		return nil, err
	}
	x, y, err = dataset.ShuffleData(x, y, opts.ShuffleSeed)
	if err != nil {
		return nil, err
	}

	var xTest [][]float64
	var yTest []uint8
	if opts.TestRatio > 0 {
		x, xTest, y, yTest, err = dataset.TrainTestSplit(x, y, opts.TestRatio)
		if err != nil {
			return nil, err
		}
	}

	ranges, err := dataset.SplitByChunkSizes(len(x), split)
	if err != nil {
		return nil, err
	}
	images := dataset.SplitSlice(preprocess.ToFloat32(x), ranges)
	labels := dataset.SplitSlice(y, ranges)

	runID := uuid.NewString()
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
			log.Info("learner shard written",
				zap.Int("learner", i),
				zap.Int("samples", shard.Len()),
				zap.String("dir", dir))
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
	return dirs, nil
}

func writeShard(dir string, shard *serialization.Shard, runID, role string) error {
	if err := serialization.ResetDir(dir); err != nil {
		return err
	}
	return serialization.WriteShard(dir, shard, map[string]string{
		"dataset": "fraud",
		"run_id":  runID,
		"role":    role,
	})
}

// PrepareSingleClient loads one learner's shard and wraps it in generators.
// The feature size is taken from the shard. Without testDataDir the
// learner's own rows double as its test set.
func PrepareSingleClient(cfg config.FraudConfig, dataDir, testDataDir string, logger *zap.Logger) (*feed.LearnerData, error) {
	log := logging.OrNop(logger)

	shard, err := serialization.ReadShard(dataDir)
	if err != nil {
		return nil, err
	}
	train := feed.Split{Data: shard.Images, Labels: shard.Labels}
	test := train
	if testDataDir != "" {
		testShard, err := serialization.ReadShard(testDataDir)
		if err != nil {
			return nil, err
		}
		test = feed.Split{Data: testShard.Images, Labels: testShard.Labels}
	}

	log.Info("fraud learner data",
		zap.String("data_dir", dataDir),
		zap.Int("train_samples", train.Len()),
		zap.Int("test_samples", test.Len()))

	data, err := feed.NewLearnerData(train, test, feed.GeneratorConfig{
		BatchSize:   cfg.BatchSize,
		FeatureSize: shard.Features(),
		Seed:        feed.Seed(cfg.GeneratorSeed),
		Shuffle:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("prepare learner %s: %w", dataDir, err)
	}
	return data, nil
}
