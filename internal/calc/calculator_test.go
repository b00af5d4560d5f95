package calc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseField(t *testing.T) {
	field, err := ParseField(" Price ")
	require.NoError(t, err)
	assert.Equal(t, FieldPrice, field)

	_, err = ParseField("fee")
	require.Error(t, err)
}

func TestQuantityAndPriceDeriveTotal(t *testing.T) {
	state := Apply(State{}, FieldQuantity, "10")
	assert.Equal(t, "10", state.Quantity)
	assert.Equal(t, "", state.Total)

	state = Apply(state, FieldPrice, "5")
	assert.Equal(t, "50.00", state.Total)
	assert.False(t, state.TotalWasManual)
}

func TestManualTotalDrivesQuantity(t *testing.T) {
	state := Apply(State{}, FieldQuantity, "10")
	state = Apply(state, FieldPrice, "5")

	state = Apply(state, FieldTotal, "100")
	assert.Equal(t, "100", state.Total)
	assert.Equal(t, "20.00000000", state.Quantity)
	assert.True(t, state.TotalWasManual)

	// While the total is manual, a price change re-derives quantity
	// instead of overwriting the operator's total.
	state = Apply(state, FieldPrice, "4")
	assert.Equal(t, "100", state.Total)
	assert.Equal(t, "25.00000000", state.Quantity)
	assert.True(t, state.TotalWasManual)
}

func TestQuantityEditForgetsManualTotal(t *testing.T) {
	state := Apply(State{}, FieldPrice, "5")
	state = Apply(state, FieldTotal, "100")
	require.True(t, state.TotalWasManual)

	state = Apply(state, FieldQuantity, "3")
	assert.False(t, state.TotalWasManual)
	assert.Equal(t, "15.00", state.Total)
}

func TestClearingQuantityClearsTotal(t *testing.T) {
	state := Apply(State{}, FieldQuantity, "10")
	state = Apply(state, FieldPrice, "5")
	require.Equal(t, "50.00", state.Total)

	state = Apply(state, FieldQuantity, "")
	assert.Equal(t, "", state.Total)

	state = Apply(state, FieldQuantity, "0")
	assert.Equal(t, "", state.Total)
}

func TestClearingTotalDropsManualFlag(t *testing.T) {
	state := Apply(State{}, FieldPrice, "5")
	state = Apply(state, FieldTotal, "100")
	require.True(t, state.TotalWasManual)

	state = Apply(state, FieldTotal, "")
	assert.False(t, state.TotalWasManual)
	assert.Equal(t, "", state.Total)
}

func TestNonPositivePriceNeverCascades(t *testing.T) {
	state := Apply(State{}, FieldQuantity, "10")
	state = Apply(state, FieldPrice, "0")
	assert.Equal(t, "", state.Total)

	state = Apply(state, FieldPrice, "-2")
	assert.Equal(t, "", state.Total)
}

func TestUnparseableInputIsPreservedVerbatim(t *testing.T) {
	state := Apply(State{}, FieldQuantity, "12.")
	assert.Equal(t, "12.", state.Quantity)
	assert.Equal(t, "", state.Total)

	state = Apply(state, FieldPrice, "5")
	// "12." parses as zero, so nothing cascades and the raw text survives.
	assert.Equal(t, "12.", state.Quantity)
	assert.Equal(t, "", state.Total)
}

func TestQuantityRoundsToEightPlaces(t *testing.T) {
	state := Apply(State{}, FieldPrice, "3")
	state = Apply(state, FieldTotal, "100")
	assert.Equal(t, "33.33333333", state.Quantity)
}

func TestTotalRoundsToTwoPlaces(t *testing.T) {
	state := Apply(State{}, FieldPrice, "0.333")
	state = Apply(state, FieldQuantity, "10")
	assert.Equal(t, "3.33", state.Total)
}

func TestResetClearsEverything(t *testing.T) {
	assert.Equal(t, State{}, Reset())
}
