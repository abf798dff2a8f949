package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/vk/forcinggate/internal/app"
	"github.com/vk/forcinggate/internal/config"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Exit codes reported by the binary.
const (
	ExitFailure = 1
	ExitUsage   = 2
	ExitBlocked = 3
)

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("forcinggate", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
forcinggate - Resolve, stage and gate the forcing data of a hydrological run.

Usage:
  forcinggate [options] [CONFIG_PATH]

Arguments:
  CONFIG_PATH
    Path to a .hcl or .yaml file, or a directory containing them.

Exit codes:
  0 run allowed, 2 usage error, 3 run blocked, 1 any other failure.

Options:
`)
		flagSet.PrintDefaults()
	}

	configFlag := flagSet.String("config", "", "Path to the configuration file or directory.")
	cFlag := flagSet.String("c", "", "Path to the configuration file or directory (shorthand).")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	referenceFlag := flagSet.String("reference", "", "Run reference time as yyyyMMddHHmm. Overrides the configuration.")
	envFileFlag := flagSet.String("env-file", "", "Path to a .env file loaded before the configuration.")
	snapshotFlag := flagSet.String("snapshot", "", "Write the time summary as CSV to this path.")
	progressFlag := flagSet.Bool("progress", false, "Show per-stage progress bars.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: ExitUsage, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *configFlag != "" {
		path = *configFlag
	} else if *cFlag != "" {
		path = *cFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Config path determined.", "path", path)

	if path == "" {
		slog.Debug("No config path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: ExitUsage, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: ExitUsage, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	var reference time.Time
	if *referenceFlag != "" {
		t, err := time.Parse(config.TimeLayout, *referenceFlag)
		if err != nil {
			return nil, false, &ExitError{Code: ExitUsage, Message: fmt.Sprintf("invalid reference %q: must be yyyyMMddHHmm", *referenceFlag)}
		}
		reference = t
	}
	slog.Debug("CLI parameter validation complete.")

	cfg, err := app.NewConfig(app.Config{
		ConfigPath:   path,
		LogFormat:    logFormat,
		LogLevel:     logLevel,
		Reference:    reference,
		EnvFile:      *envFileFlag,
		SnapshotPath: *snapshotFlag,
		Progress:     *progressFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: ExitUsage, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", cfg)
	return cfg, false, nil
}
