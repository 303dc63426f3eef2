package feed

import "fmt"

// LearnerData bundles the feeds handed to a single learner: training,
// validation and test generators plus their sizes.
type LearnerData struct {
	TrainGen *Generator
	ValGen   *Generator
	TestGen  *Generator

	TrainDataSize  int
	TestDataSize   int
	TrainBatchSize int
	TestBatchSize  int
}

// Split is one learner's labelled samples.
type Split struct {
	Data   [][]float32
	Labels []uint8
}

// Len returns the number of samples.
func (s Split) Len() int { return len(s.Data) }

// NewLearnerData builds train, validation and test generators. The
// validation generator draws from the training split with the same seed,
// so it replays the training order.
func NewLearnerData(train, test Split, cfg GeneratorConfig) (*LearnerData, error) {
	trainGen, err := NewGenerator(train.Data, train.Labels, cfg)
	if err != nil {
		return nil, fmt.Errorf("train generator: %w", err)
	}
	valGen, err := NewGenerator(train.Data, train.Labels, cfg)
	if err != nil {
		return nil, fmt.Errorf("validation generator: %w", err)
	}
	testGen, err := NewGenerator(test.Data, test.Labels, cfg)
	if err != nil {
		return nil, fmt.Errorf("test generator: %w", err)
	}

	return &LearnerData{
		TrainGen:       trainGen,
		ValGen:         valGen,
		TestGen:        testGen,
		TrainDataSize:  train.Len(),
		TestDataSize:   test.Len(),
		TrainBatchSize: cfg.BatchSize,
		TestBatchSize:  cfg.BatchSize,
	}, nil
}
