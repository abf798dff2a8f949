// Package config defines the format-agnostic configuration model for a
// forcing run, along with the Loader interface implemented by each
// configuration format.
//
// Loaders decode their format into a Document, a plain mirror of the
// configuration file, and call Document.Model to obtain the validated,
// typed Model. The Model is the single source of truth for the builder:
// enums replace the category/format/class strings of the file, templates
// stay as strings, and every duration and timestamp is parsed.
package config
