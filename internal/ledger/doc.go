// Package ledger holds the per-run time summary table: one row per
// simulation step, with the step's temporal classification and one
// availability flag per data category.
//
// # Shape
//
// The table is a set of parallel slices aligned to the step list. Steps are
// fixed when the table is created; Put only ever overwrites one slot, so
// every slice keeps the length of the step list for the table's lifetime.
//
// # Re-indexing
//
// After the staging stages have run, Reindex derives the simulation span:
// the contiguous range from the first to the last step with gridded forcing.
// Steps after the span become the trailing "Corr" segment and availability
// percentages are computed against the span.
package ledger
