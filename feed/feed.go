// Package feed provides the learner-side data API of colearn-examples.
//
// This package wraps the internal generator and shard implementations and
// exports a clean public API for reading the shards written by
// "colearn split" and drawing training batches from them.
//
// Example usage:
//
//	import "github.com/colearn-ml/colearn-examples/feed"
//
//	data, err := feed.LoadLearner("/tmp/covid_xray/0", "/tmp/covid_xray_test", feed.GeneratorConfig{
//	    BatchSize: 8,
//	    Seed:      feed.Seed(42),
//	    Shuffle:   true,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	batch := data.TrainGen.Next()
//	fmt.Println(len(batch.Data), len(batch.Data[0]))
package feed

import (
	"fmt"

	"github.com/colearn-ml/colearn-examples/internal/dataset"
	"github.com/colearn-ml/colearn-examples/internal/feed"
	"github.com/colearn-ml/colearn-examples/internal/serialization"
)

// Generator yields fixed-size batches indefinitely, reshuffling on every
// pass over the data.
type Generator = feed.Generator

// GeneratorConfig configures a Generator.
type GeneratorConfig = feed.GeneratorConfig

// Batch is one mini-batch of samples and single-element label rows.
type Batch = feed.Batch

// LearnerData bundles a learner's train, validation and test generators.
type LearnerData = feed.LearnerData

// Split is a set of labelled samples.
type Split = feed.Split

// Shard is the on-disk representation of a learner's data.
type Shard = serialization.Shard

// Range is a half-open row interval.
type Range = dataset.Range

// Generator errors.
var (
	ErrEmptyData       = feed.ErrEmptyData
	ErrLabelMismatch   = feed.ErrLabelMismatch
	ErrInvalidBatch    = feed.ErrInvalidBatch
	ErrFeatureMismatch = feed.ErrFeatureMismatch
)

// NewGenerator creates a generator over data and labels.
func NewGenerator(data [][]float32, labels []uint8, cfg GeneratorConfig) (*Generator, error) {
	return feed.NewGenerator(data, labels, cfg)
}

// NewLearnerData builds the generators for one learner.
func NewLearnerData(train, test Split, cfg GeneratorConfig) (*LearnerData, error) {
	return feed.NewLearnerData(train, test, cfg)
}

// Seed returns a pointer to s for GeneratorConfig.Seed.
func Seed(s int64) *int64 { return feed.Seed(s) }

// ReadShard loads and verifies the shard stored in dir.
func ReadShard(dir string) (*Shard, error) {
	return serialization.ReadShard(dir)
}

// SplitByChunkSizes partitions n rows into consecutive ranges whose sizes
// follow fractions.
func SplitByChunkSizes(n int, fractions []float64) ([]Range, error) {
	return dataset.SplitByChunkSizes(n, fractions)
}

// LoadLearner reads the shard in dir and, if testDir is set, the shared
// test shard, and builds generators over them. A zero FeatureSize is taken
// from the shard. Without testDir the learner's rows are also its test set.
func LoadLearner(dir, testDir string, cfg GeneratorConfig) (*LearnerData, error) {
	shard, err := ReadShard(dir)
	if err != nil {
		return nil, err
	}
	train := Split{Data: shard.Images, Labels: shard.Labels}
	test := train
	if testDir != "" {
		ts, err := ReadShard(testDir)
		if err != nil {
			return nil, err
		}
		if ts.Features() != shard.Features() {
			return nil, fmt.Errorf("%w: test shard has %d features, learner shard %d",
				ErrFeatureMismatch, ts.Features(), shard.Features())
		}
		test = Split{Data: ts.Images, Labels: ts.Labels}
	}
	if cfg.FeatureSize == 0 {
		cfg.FeatureSize = shard.Features()
	}
	return NewLearnerData(train, test, cfg)
}
