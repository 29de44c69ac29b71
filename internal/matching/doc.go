// Package matching assigns extracted disc titles to manifest episodes by
// duration. Disc titles carry no reliable episode identity, so the only
// usable signal is runtime: each manifest episode declares a typical runtime
// and a tolerance window, and the matcher solves the resulting bipartite
// assignment for minimum total cost.
package matching
