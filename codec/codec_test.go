package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByName(t *testing.T) {
	for _, name := range []string{"json", "go-json"} {
		c, ok := ByName(name)
		require.True(t, ok, name)
		assert.Equal(t, name, c.Name())
	}

	_, ok := ByName("msgpack")
	assert.False(t, ok)
}

func TestRoundTrip(t *testing.T) {
	type payload struct {
		Name   string    `json:"name"`
		Values []float64 `json:"values"`
	}

	for _, c := range []Codec{JSON{}, GoJSON{}} {
		in := payload{Name: "iv", Values: []float64{1, 2, 3}}
		data, err := c.Marshal(in)
		require.NoError(t, err, c.Name())

		var out payload
		require.NoError(t, c.Unmarshal(data, &out), c.Name())
		assert.Equal(t, in, out)
	}
}
