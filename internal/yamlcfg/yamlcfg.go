// Package yamlcfg implements config.Loader for YAML configuration files.
// ${VAR} references are expanded from the process environment before
// decoding. Bare $name tokens are left alone for the filename templates.
package yamlcfg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/vk/forcinggate/internal/config"
	"github.com/vk/forcinggate/internal/ctxlog"
	"github.com/vk/forcinggate/internal/fsutil"
	"gopkg.in/yaml.v3"
)

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Loader reads .yaml and .yml files.
type Loader struct {
	getenv func(string) string
}

// NewLoader creates a new YAML configuration loader.
func NewLoader() *Loader {
	return &Loader{getenv: os.Getenv}
}

// Load decodes every YAML file under paths, merges them and returns the
// validated model. Datasets accumulate across files; every other section
// may be set by a single file only.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("YAML loader started.", "path_count", len(paths))

	var files []string
	for _, p := range paths {
		found, err := fsutil.FindFilesByExtension(p, ".yaml", ".yml")
		if err != nil {
			if fsutil.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("error accessing path %s: %w", p, err)
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no YAML files found in %s", strings.Join(paths, ", "))
	}

	var merged config.Document
	var setBy = map[string]string{}
	for _, f := range files {
		doc, err := l.decodeFile(f)
		if err != nil {
			return nil, err
		}
		if err := mergeDocument(&merged, doc, f, setBy); err != nil {
			return nil, err
		}
	}

	model, err := merged.Model()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger.Debug("YAML loading complete.", "files", len(files), "datasets", len(model.Datasets))
	return model, nil
}

func (l *Loader) decodeFile(path string) (*config.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read YAML file %s: %w", path, err)
	}
	expanded := envRef.ReplaceAllFunc(raw, func(ref []byte) []byte {
		return []byte(l.getenv(string(ref[2 : len(ref)-1])))
	})

	dec := yaml.NewDecoder(bytes.NewReader(expanded))
	dec.KnownFields(true)

	var doc config.Document
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode YAML file %s: %w", path, err)
	}
	return &doc, nil
}

func mergeDocument(dst, src *config.Document, file string, setBy map[string]string) error {
	claim := func(section string, present bool) error {
		if !present {
			return nil
		}
		if prev, ok := setBy[section]; ok {
			return fmt.Errorf("duplicate %s section in %s (already set in %s)", section, file, prev)
		}
		setBy[section] = file
		return nil
	}

	if err := claim("run", src.Run != (config.RunDoc{})); err != nil {
		return err
	}
	if err := claim("thresholds", src.Thresholds != (config.ThresholdsDoc{})); err != nil {
		return err
	}
	if err := claim("staging", src.Staging != (config.StagingDoc{})); err != nil {
		return err
	}
	if err := claim("static", src.Static != nil); err != nil {
		return err
	}
	if err := claim("snapshot", src.Snapshot != nil); err != nil {
		return err
	}

	if src.Run != (config.RunDoc{}) {
		dst.Run = src.Run
	}
	if src.Thresholds != (config.ThresholdsDoc{}) {
		dst.Thresholds = src.Thresholds
	}
	if src.Staging != (config.StagingDoc{}) {
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
