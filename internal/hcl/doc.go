// Package hcl provides the HCL implementation of config.Loader. It parses
// every .hcl file found under the given paths, decodes them into the schema
// package structs with an evaluation context exposing the process
// environment and a few string functions, and translates the merged result
// into the format-agnostic config model.
package hcl
