// Package cli implements the sequencer command line on top of cobra.
//
// Every command shares the global flags --config, --log-level, --server and
// --model; they override the values loaded by the config package.
package cli
