// Package app wires a loaded configuration into a forcing run: it owns the
// logger, applies command-line overrides to the model, drives the builder,
// exports the time summary snapshot and reports the gate decision.
package app
