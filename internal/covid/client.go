package covid

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/colearn-ml/colearn-examples/internal/config"
	"github.com/colearn-ml/colearn-examples/internal/dataset"
	"github.com/colearn-ml/colearn-examples/internal/feed"
	"github.com/colearn-ml/colearn-examples/internal/logging"
	"github.com/colearn-ml/colearn-examples/internal/serialization"
)

// PrepareSingleClient loads the shard in dataDir and wraps it in generators.
// If testDataDir is set, test data comes from that shard and all of dataDir
// is used for training; otherwise dataDir is split by TrainRatio/TestRatio.
func PrepareSingleClient(cfg config.CovidXrayConfig, dataDir, testDataDir string, logger *zap.Logger) (*feed.LearnerData, error) {
	log := logging.OrNop(logger)

	shard, err := serialization.ReadShard(dataDir)
	if err != nil {
		return nil, err
	}

	var train, test feed.Split
	if testDataDir != "" {
		testShard, err := serialization.ReadShard(testDataDir)
		if err != nil {
			return nil, err
		}
		train = feed.Split{Data: shard.Images, Labels: shard.Labels}
		test = feed.Split{Data: testShard.Images, Labels: testShard.Labels}
	} else {
		ranges, err := dataset.SplitByChunkSizes(shard.Len(), []float64{cfg.TrainRatio, cfg.TestRatio})
		if err != nil {
			return nil, fmt.Errorf("train/test split: %w", err)
		}
		images := dataset.SplitSlice(shard.Images, ranges)
		labels := dataset.SplitSlice(shard.Labels, ranges)
		train = feed.Split{Data: images[0], Labels: labels[0]}
		test = feed.Split{Data: images[1], Labels: labels[1]}
	}

	// The projection keeps at most min(samples, features) components, so a
	// small dataset can produce shards narrower than n_components.
	for _, sp := range []feed.Split{train, test} {
		if w := width(sp.Data); sp.Len() > 0 && w != cfg.FeatureSize {
			return nil, fmt.Errorf("%w: shard %s has %d features but feature_size is %d; "+
				"set feature_size to the shard width",
				feed.ErrFeatureMismatch, dataDir, w, cfg.FeatureSize)
		}
	}

	log.Info("covid learner data",
		zap.String("data_dir", dataDir),
		zap.Int("train_samples", train.Len()),
		zap.Int("test_samples", test.Len()),
		zap.Int("feature_size", cfg.FeatureSize))

	data, err := feed.NewLearnerData(train, test, feed.GeneratorConfig{
		BatchSize:   cfg.BatchSize,
		FeatureSize: cfg.FeatureSize,
		Seed:        feed.Seed(cfg.GeneratorSeed),
		Shuffle:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("prepare learner %s: %w", dataDir, err)
	}
	return data, nil
}
