// Package fraud prepares the IEEE-CIS fraud detection tables for
// collective learning: it joins the transaction and identity CSVs,
// encodes and scales the features, and writes one shard per learner.
package fraud
