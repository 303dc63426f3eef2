// Package runner executes the example programs as subprocesses in test
// mode. Examples are listed in a YAML catalog; each runs with the dataset
// roots exported and a per-example timeout.
package runner
