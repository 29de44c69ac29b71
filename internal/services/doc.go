// Package services carries the shared error taxonomy and context annotations
// used by external-tool clients and workflow stages.
package services
