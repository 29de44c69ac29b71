// Package manifest ingests the operator-supplied episode manifest CSV and
// groups rows into per-disc episode lists. It also derives the runtime
// windows and minlength floor the matcher and ripper need for a disc.
package manifest
