// Package testutil holds fixture writers shared by the package tests.
//
// Everything here takes a *testing.T and fails the test on error, so it must
// only be imported from _test.go files.
package testutil
