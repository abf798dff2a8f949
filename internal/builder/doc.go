/*
Package builder runs the forcing pipeline for one simulation window and
hands the resulting availability to the run gate.

A run is a three-stage process over the steps of the time summary table:

 1. Restart: restart datasets are attempted at the first step only. They
    seed the model state and never repeat.

 2. Forcing: for every step in ascending order, each forcing dataset whose
    class applies to the step is resolved. Observed datasets apply to Obs
    steps and search arrivals relative to the step itself; forecast datasets
    apply to For and Corr steps and search arrivals relative to the run
    reference, since a single forecast issue covers the whole horizon.
    Archive datasets apply to every step.

 3. Updating: same scheduling as forcing, for assimilation inputs.

Each (step, dataset) pair walks a ledger.Slot through its states:

	Unresolved -> Searching -> Staged -> Loaded -> Committed
	                  |           |
	                  |           +-> VarMissing | IndexUnavailable -> Skipped
	                  +-> NotFound | OpenTimeout -> Skipped

Searching covers the optional remote mirror and the locator. Staging copies
the file into a private directory and opens it with the loader driver for
the dataset format. Loading reads every declared variable in order and
applies its transform. The merge decision then either copies the source to
the rendered destination or writes a combined container.

Errors are classified by the failure package. Warnings leave the slot false
and the run continues; a hard error aborts the run at the current stage
without committing the slot. After the last stage the table is re-indexed,
the gridded and point percentages are computed over the gridded span, and
gate.Evaluate produces the decision.
*/
package builder
