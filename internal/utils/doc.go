// Package utils holds small helpers shared by the sequencer internals: JSON
// POST helpers for synchronous and SSE calls ([DoPostSync], [DoPostStream],
// [SSEScanner]), lenient string parsing ([ParseStringAs]), truncation for log
// previews and a wall-clock [Timer].
package utils
