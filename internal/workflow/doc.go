// Package workflow drains the queue: it claims pending items one at a time,
// drives a rip job for each, and records the outcome back on the item. Job
// failures are terminal for the item, never for the runner.
package workflow
