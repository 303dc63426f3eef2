package main

import (
	"fmt"
	"maps"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/colearn-ml/colearn-examples/internal/feed"
	"github.com/colearn-ml/colearn-examples/internal/serialization"
)

func newInspectCmd() *cobra.Command {
	var (
		batches   int
		batchSize int
		seed      int64
	)
	cmd := &cobra.Command{
		Use:   "inspect [shard-dir]",
		Short: "Show a shard's metadata and label balance",
		Long: `Reads and verifies the shard in a learner directory and prints its
metadata, shape and label counts. With --batches it also draws batches the
way a learner would and prints their labels.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			shard, err := serialization.ReadShard(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "samples\t%d\n", shard.Len())
			fmt.Fprintf(tw, "features\t%d\n", shard.Features())
			for _, k := range slices.Sorted(maps.Keys(shard.Metadata)) {
				fmt.Fprintf(tw, "%s\t%s\n", k, shard.Metadata[k])
			}

			counts := map[uint8]int{}
			for _, l := range shard.Labels {
				counts[l]++
			}
			for _, l := range slices.Sorted(maps.Keys(counts)) {
				fmt.Fprintf(tw, "label %d\t%d\n", l, counts[l])
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if batches <= 0 || shard.Len() == 0 {
				return nil
			}
			gen, err := feed.NewGenerator(shard.Images, shard.Labels, feed.GeneratorConfig{
				BatchSize:   batchSize,
				FeatureSize: shard.Features(),
				Seed:        feed.Seed(seed),
				Shuffle:     true,
			})
			if err != nil {
				return err
			}
			for i := range batches {
				b := gen.Next()
				labels := make([]uint8, b.Size())
				for k, l := range b.Labels {
					labels[k] = l[0]
				}
				fmt.Fprintf(out, "batch %d (epoch %d): %v\n", i, gen.Epoch(), labels)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&batches, "batches", 0, "Number of batches to draw")
	f.IntVar(&batchSize, "batch-size", 8, "Batch size")
	f.Int64Var(&seed, "seed", 42, "Generator seed")
	return cmd
}
