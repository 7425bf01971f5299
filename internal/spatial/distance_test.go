package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineDistance(t *testing.T) {
	assert.Zero(t, HaversineDistance(52.52, 13.405, 52.52, 13.405))

	// Berlin to Paris is roughly 878 km.
	d := HaversineDistance(52.52, 13.405, 48.8566, 2.3522)
	assert.InDelta(t, 878000, d, 5000)

	// Symmetric.
	assert.InDelta(t, d, HaversineDistance(48.8566, 2.3522, 52.52, 13.405), 1e-6)

	// One degree of latitude is about 111 km anywhere.
	assert.InDelta(t, 111195, HaversineDistance(10, 20, 11, 20), 100)
}
