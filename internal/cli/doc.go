// Package cli turns command-line arguments into an app.Config and owns the
// process exit codes: 0 for an allowed run, ExitBlocked when the forcing
// gate refuses the run, ExitUsage for bad flags and ExitFailure otherwise.
package cli
