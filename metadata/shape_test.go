package metadata

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShapeStringRoundTrip(t *testing.T) {
	shapes := []Shape{
		Point{},
		NewRectangle(1.5, 2, "mm"),
		NewRectangle(3, 0, ""), // square, default unit
		NewCircle(0.75, "um"),
	}

	for _, s := range shapes {
		parsed, err := ParseShape(s.String())
		require.NoError(t, err, s.String())
		assert.Equal(t, s.String(), parsed.String())
		assert.InDelta(t, s.Area(), parsed.Area(), 1e-12)
	}
}

func TestShapeArea(t *testing.T) {
	assert.Equal(t, 0.0, Point{}.Area())
	assert.Equal(t, 3.0, NewRectangle(1.5, 2, "mm").Area())
	assert.Equal(t, 9.0, NewRectangle(3, 0, "").Area())
	assert.InDelta(t, math.Pi, NewCircle(1, "mm").Area(), 1e-12)
}

func TestParseShapeErrors(t *testing.T) {
	for _, s := range []string{
		"",
		"Rectangle",
		"Rectangle:width=1",
		"Rectangle:width=x,height=2,unit=mm",
		"Triangle:side=1",
		"Circle:radius",
	} {
		_, err := ParseShape(s)
		assert.Error(t, err, s)
	}
}
