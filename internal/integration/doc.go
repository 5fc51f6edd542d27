// Package integration exercises gantry across package boundaries: a
// real store on disk, the task facade, and the scoring, learning, and
// decomposition services wired together the way the CLI wires them.
//
// Build tag: integration
// Run with: go test -tags integration ./internal/integration/...
package integration
