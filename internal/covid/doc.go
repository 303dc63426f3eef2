// Package covid prepares the covid X-ray feature dataset for simulated
// collaborative learning.
//
// The dataset ships as three MAT-files, covid.mat, normal.mat and
// pneumonia.mat, each holding one matrix named after its class. Every row is a
// feature vector whose last column is the class label.
//
// SplitToFolders carves out a global test set, scales and reduces the
// features, shuffles, and writes one shard directory per learner.
// PrepareSingleClient loads one of those directories back as endless batch
// generators.
package covid
