package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/forcinggate/internal/app"
	"github.com/vk/forcinggate/internal/cli"
	"github.com/vk/forcinggate/internal/config"
	"github.com/vk/forcinggate/internal/fsutil"
	"github.com/vk/forcinggate/internal/gate"
	"github.com/vk/forcinggate/internal/hcl"
	"github.com/vk/forcinggate/internal/yamlcfg"
)

// main is the entrypoint for the forcinggate application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	// The real main function handles errors and exit codes.
	if err := run(os.Stdout, os.Args[1:]); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitFailure)
	}
}

// run encapsulates the main application logic for easier testing and error handling.
func run(outW io.Writer, args []string) (err error) {
	appConfig, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	// The app panics on critical config errors; turn that into an error.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("application startup panicked: %v", r)
		}
	}()

	forcingApp := app.NewApp(outW, appConfig, loaderFor(appConfig.ConfigPath))

	if err := forcingApp.Run(context.Background()); err != nil {
		if errors.Is(err, gate.ErrBlocked) {
			return &cli.ExitError{Code: cli.ExitBlocked, Message: err.Error()}
		}
		return err
	}
	return nil
}

// loaderFor picks the configuration format from the path: YAML files, or a
// directory holding YAML but no HCL, use the YAML loader. Everything else
// is read as HCL.
func loaderFor(path string) config.Loader {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yamlcfg.NewLoader()
	case ".hcl":
		return hcl.NewLoader()
	}

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		hclFiles, _ := fsutil.FindFilesByExtension(path, ".hcl")
		yamlFiles, _ := fsutil.FindFilesByExtension(path, ".yaml", ".yml")
		if len(hclFiles) == 0 && len(yamlFiles) > 0 {
			return yamlcfg.NewLoader()
		}
	}
	return hcl.NewLoader()
}
