// Package fileutil provides filesystem helpers shared across the pipeline:
// verified copies, collision-free destination paths, and a retrying mover
// that survives transient locks and crosses filesystem boundaries.
package fileutil
