// Package feed turns in-memory learner shards into endless mini-batch
// generators for the collaborative-learning framework.
//
// A Generator cycles through a (optionally shuffled) index array and yields
// fixed-size batches forever. When the cursor reaches the end of the data it
// wraps to the start, and if shuffling is enabled the index array is shuffled
// again with the generator's seed. A batch is always exactly BatchSize rows;
// batches may therefore span two epochs.
//
// Example:
//
//	gen, err := feed.NewGenerator(images, labels, feed.GeneratorConfig{
//	    BatchSize:   8,
//	    FeatureSize: 64,
//	    Seed:        feed.Seed(42),
//	    Shuffle:     true,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	batch := gen.Next()
package feed
