// Package ripjob drives a single disc rip from detection to completion.
//
// One Machine instance advances one queue item through a fixed phase
// sequence: wait for disc, settle, rip, verify outputs, plan renames,
// commit moves, eject. Every collaborator (drive monitor, ripper, prober,
// mover, ejector, clock) enters through an interface so the whole machine
// runs against fakes in tests. A failure in any phase is terminal for the
// job and never for the calling process; the machine always reaches a
// terminal state and always produces a summary.
package ripjob
