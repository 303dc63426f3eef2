// Package serialization persists learner data shards.
//
// Each learner directory holds a single SafeTensors file with two tensors:
//
//	images  F32 [n_samples, n_features]
//	labels  U8  [n_samples]
//
// File layout:
//
//	[8 bytes: header size (uint64 LE)]
//	[header:  JSON tensor table plus "__metadata__"]
//	[tensor data: raw little-endian bytes, tensors in name order]
//
// The metadata records the SHA-256 of the data section under "checksum",
// together with "created_at", "n_samples", "n_features" and any caller
// supplied entries. Readers validate tensor offsets, shapes and the checksum
// before returning data.
//
// Example usage:
//
//	shard := &serialization.Shard{Images: images, Labels: labels}
//	if err := serialization.WriteShard(dir, shard, nil); err != nil {
//	    log.Fatal(err)
//	}
//
//	loaded, err := serialization.ReadShard(dir)
//	if err != nil {
//	    log.Fatal(err)
//	}
package serialization
