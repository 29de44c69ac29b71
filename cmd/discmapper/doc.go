// Package main hosts the discmapper CLI entrypoint and command graph.
//
// The Cobra-based command tree covers queue maintenance, manifest management,
// configuration scaffolding, health checks, and the rip runner itself. It
// centralizes configuration resolution and structured logging setup so
// subcommands can focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
