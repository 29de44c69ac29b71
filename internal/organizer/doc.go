// Package organizer plans and names library destinations for ripped titles.
//
// Planning is a pure computation over probed rip outputs: it produces an
// ordered list of moves (source file, final library path, optional sidecar
// receipt) that the commit phase executes verbatim. Plans are never
// recomputed once commit begins.
package organizer
