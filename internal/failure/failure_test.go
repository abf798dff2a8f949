package failure

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	testCases := []struct {
		name      string
		err       error
		mandatory bool
		expected  Severity
	}{
		{name: "nil is a skip", err: nil, expected: Skip},
		{name: "optional file missing warns", err: fmt.Errorf("rain: %w", ErrFileNotFound), expected: Warn},
		{name: "mandatory file missing is hard", err: fmt.Errorf("rain: %w", ErrFileNotFound), mandatory: true, expected: Hard},
		{name: "timeout behaves like not found", err: fmt.Errorf("stage: %w", ErrStagingTimeout), expected: Warn},
		{name: "mandatory timeout is hard", err: ErrStagingTimeout, mandatory: true, expected: Hard},
		{name: "variable missing warns", err: fmt.Errorf("open: %w", ErrVariableMissing), mandatory: true, expected: Warn},
		{name: "not yet produced is silent", err: &IndexError{Kind: NotYetProduced, Variable: "rain"}, expected: Skip},
		{name: "resolution mismatch warns", err: fmt.Errorf("x: %w", &IndexError{Kind: ResolutionMismatch}), expected: Warn},
		{name: "load error is hard", err: Loadf("bad rank %d", 4), expected: Hard},
		{name: "unknown error is hard", err: errors.New("boom"), expected: Hard},
		{name: "cancellation is hard", err: context.Canceled, expected: Hard},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Classify(tc.err, tc.mandatory))
		})
	}
}

func TestIndexError_UnwrapsToSentinel(t *testing.T) {
	err := fmt.Errorf("load: %w", &IndexError{Kind: ResolutionMismatch, Variable: "t2m", Detail: "no slice at 202001010600"})

	assert.ErrorIs(t, err, ErrIndexUnavailable)
	assert.Contains(t, err.Error(), "resolution mismatch")
	assert.Contains(t, err.Error(), "202001010600")
}
