package transform

import (
	"math"
	"testing"
	"time"

	"github.com/ctessum/sparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/forcinggate/internal/failure"
	"github.com/vk/forcinggate/internal/loader"
)

func record(values ...float64) *loader.Record {
	data := sparse.ZerosDense(len(values))
	copy(data.Elements, values)
	return &loader.Record{Data: data, Time: time.Date(2020, 1, 1, 6, 0, 0, 0, time.UTC)}
}

func TestApply(t *testing.T) {
	testCases := []struct {
		name     string
		expr     string
		in       []float64
		expected []float64
	}{
		{name: "clamp negatives", expr: "value < 0 ? 0 : value", in: []float64{-1, 2.5}, expected: []float64{0, 2.5}},
		{name: "unit conversion", expr: "value - 273.15", in: []float64{273.15, 283.15}, expected: []float64{0, 10}},
		{name: "uses Math", expr: "Math.max(value, 1)", in: []float64{0, 3}, expected: []float64{1, 3}},
		{name: "time is visible", expr: "time === '202001010600' ? value * 2 : value", in: []float64{2}, expected: []float64{4}},
		{name: "variable is visible", expr: "variable === 'rain' ? 1 : 0", in: []float64{7}, expected: []float64{1}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e, err := Compile(tc.expr)
			require.NoError(t, err)
			rec := record(tc.in...)

			require.NoError(t, e.Apply(rec, "rain"))

			assert.InDeltaSlice(t, tc.expected, rec.Data.Elements, 1e-9)
			assert.Equal(t, tc.expr, rec.Attrs["transform"])
		})
	}
}

func TestApply_NaNIsKept(t *testing.T) {
	e, err := Compile("value * 10")
	require.NoError(t, err)
	rec := record(math.NaN(), 1)

	require.NoError(t, e.Apply(rec, "rain"))

	assert.True(t, math.IsNaN(rec.Data.Elements[0]))
	assert.Equal(t, 10.0, rec.Data.Elements[1])
}

func TestApply_FailureLeavesRecordUnchanged(t *testing.T) {
	// --- Arrange ---
	e, err := Compile("value > 1 ? undefined : value")
	require.NoError(t, err)
	rec := record(1, 2)

	// --- Act ---
	err = e.Apply(rec, "rain")

	// --- Assert ---
	assert.ErrorIs(t, err, failure.ErrLoad)
	assert.Equal(t, []float64{1, 2}, rec.Data.Elements)
}

func TestCompile(t *testing.T) {
	e, err := Compile("")
	require.NoError(t, err)
	assert.Nil(t, e)
	assert.NoError(t, e.Apply(record(1), "rain"), "nil expression is the identity")

	_, err = Compile("value +* 2")
	assert.Error(t, err)
}
