package arrival

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(s string) time.Time {
	t, err := time.Parse("200601021504", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestCandidates(t *testing.T) {
	testCases := []struct {
		name     string
		ref      string
		window   Window
		expected []string
	}{
		{
			name:     "one day back, two run hours, future run dropped",
			ref:      "202001010600",
			window:   Window{Days: 1, Hours: []int{0, 12}},
			expected: []string{"201912310000", "201912311200", "202001010000"},
		},
		{
			name:     "one day back, two run hours, all in the past",
			ref:      "202001011300",
			window:   Window{Days: 1, Hours: []int{0, 12}},
			expected: []string{"201912310000", "201912311200", "202001010000", "202001011200"},
		},
		{
			name:     "no hours and no offset is the exact reference",
			ref:      "202001010630",
			window:   Exact,
			expected: []string{"202001010630"},
		},
		{
			name:     "no hours keeps clock time on every searched day",
			ref:      "202001010630",
			window:   Window{Days: 2},
			expected: []string{"201912300630", "201912310630", "202001010630"},
		},
		{
			name:     "latency hides a run that is not published yet",
			ref:      "202001010300",
			window:   Window{Days: 1, Hours: []int{0}, Latency: 4 * time.Hour},
			expected: []string{"201912310000"},
		},
		{
			name:     "duplicate hours collapse",
			ref:      "202001010600",
			window:   Window{Hours: []int{0, 0}},
			expected: []string{"202001010000"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.window.Candidates(ts(tc.ref))

			var expected []time.Time
			for _, e := range tc.expected {
				expected = append(expected, ts(e))
			}
			assert.Equal(t, expected, got)
		})
	}
}

func TestMostRecentFirst(t *testing.T) {
	// --- Arrange ---
	w := Window{Days: 1, Hours: []int{0}}

	// --- Act ---
	got := w.MostRecentFirst(ts("202001010600"))

	// --- Assert ---
	assert.Equal(t, []time.Time{ts("202001010000"), ts("201912310000")}, got)
}

func TestParseHours(t *testing.T) {
	hours, err := ParseHours([]string{"00", "12", "6"})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 12, 6}, hours)

	hours, err = ParseHours(nil)
	require.NoError(t, err)
	assert.Nil(t, hours)

	_, err = ParseHours([]string{"24"})
	assert.Error(t, err)

	_, err = ParseHours([]string{"noon"})
	assert.Error(t, err)
}
