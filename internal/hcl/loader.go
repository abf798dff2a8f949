package hcl

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/forcinggate/internal/config"
	"github.com/vk/forcinggate/internal/ctxlog"
	"github.com/vk/forcinggate/internal/fsutil"
	"github.com/vk/forcinggate/internal/schema"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	environ func() []string
}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{environ: os.Environ}
}

// Load parses every .hcl file under paths, merges their blocks and returns
// the validated model.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl files found in %s", strings.Join(paths, ", "))
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	parser := hclparse.NewParser()
	evalCtx := l.evalContext()
	var merged schema.File

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root schema.File
		diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}
		if err := mergeFile(&merged, &root, file); err != nil {
			return nil, err
		}
	}
	if merged.Run == nil {
		return nil, fmt.Errorf("no run block found in %s", strings.Join(files, ", "))
	}

	model, err := translate(&merged).Model()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger.Debug("HCL loading complete.", "files", len(files), "datasets", len(model.Datasets))
	return model, nil
}

// findAllHCLFiles returns a flat, de-duplicated list of the .hcl files found
// under paths. A path that does not exist is skipped.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var all []string
	seen := make(map[string]struct{})
	for _, path := range paths {
		found, err := fsutil.FindFilesByExtension(path, ".hcl")
		if err != nil {
			if fsutil.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}
		for _, f := range found {
			if _, ok := seen[f]; !ok {
				seen[f] = struct{}{}
				all = append(all, f)
			}
		}
	}
	return all, nil
}

// evalContext exposes env.<NAME> and the upper, lower, format and join
// functions to expressions.
func (l *Loader) evalContext() *hcl.EvalContext {
	env := make(map[string]cty.Value)
	for _, kv := range l.environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok && hclsyntax.ValidIdentifier(k) {
			env[k] = cty.StringVal(v)
		}
	}
	envVal := cty.EmptyObjectVal
	if len(env) > 0 {
		envVal = cty.ObjectVal(env)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": envVal},
		Functions: map[string]function.Function{
			"upper":  stdlib.UpperFunc,
			"lower":  stdlib.LowerFunc,
			"format": stdlib.FormatFunc,
			"join":   stdlib.JoinFunc,
		},
	}
}

// mergeFile folds src into dst. Singleton blocks may appear in one file only.
func mergeFile(dst, src *schema.File, file string) error {
	single := func(name string, have, got bool) error {
		if have && got {
			return fmt.Errorf("duplicate %s block in %s", name, file)
		}
		return nil
	}
	if err := single("run", dst.Run != nil, src.Run != nil); err != nil {
		return err
	}
	if err := single("thresholds", dst.Thresholds != nil, src.Thresholds != nil); err != nil {
		return err
	}
	if err := single("staging", dst.Staging != nil, src.Staging != nil); err != nil {
		return err
	}
	if err := single("static", dst.Static != nil, src.Static != nil); err != nil {
		return err
	}
	if err := single("snapshot", dst.Snapshot != nil, src.Snapshot != nil); err != nil {
		return err
	}

	if src.Run != nil {
		dst.Run = src.Run
	}
	if src.Thresholds != nil {
		dst.Thresholds = src.Thresholds
	}
	if src.Staging != nil {
		dst.Staging = src.Staging
	}
	if src.Static != nil {
		dst.Static = src.Static
	}
	if src.Snapshot != nil {
		dst.Snapshot = src.Snapshot
	}
	dst.Datasets = append(dst.Datasets, src.Datasets...)
	return nil
}
