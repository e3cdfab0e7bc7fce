package seed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatchesAreValid(t *testing.T) {
	patches, err := Patches()
	require.NoError(t, err)
	require.Len(t, patches, 50)
	for i, p := range patches {
		assert.NoError(t, p.ValidateCreate(), "row %d", i+1)
	}

	first := patches[0].NewPlant()
	assert.Equal(t, "Money Plant (Golden Pothos)", first.Name)
	assert.Equal(t, 299.0, first.Price)
	assert.Equal(t, []string{"Indoor", "Air Purifying", "Low Maintenance"}, first.Categories)
	assert.True(t, first.StockAvailable)
}
