// Package queue persists rip job descriptors in SQLite. One item is one
// disc's worth of work; the workflow pulls pending items, drives them
// through the rip pipeline, and writes status transitions back.
package queue
