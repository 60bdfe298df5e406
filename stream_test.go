package probego

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/probego/model"
)

func item(contact string, v float64) StreamItem {
	return StreamItem{
		Contact: contact,
		Record: model.Record{
			Fields: model.Schema{{Name: "Voltage", Unit: "V"}},
			Values: []float64{v},
		},
	}
}

func TestStreamDeliversInOrder(t *testing.T) {
	s := newStream(4)

	s.publish(item("0", 1))
	s.publish(item("0", 2))
	s.close()

	var got []float64
	for it := range s.C() {
		got = append(got, it.Record.Values[0])
	}
	assert.Equal(t, []float64{1, 2}, got)
	assert.Equal(t, int64(0), s.Dropped())
}

func TestStreamDropsOldest(t *testing.T) {
	s := newStream(2)

	s.publish(item("0", 1))
	s.publish(item("0", 2))
	s.publish(item("0", 3)) // overflow, drops 1
	s.close()

	var got []float64
	for it := range s.C() {
		got = append(got, it.Record.Values[0])
	}
	assert.Equal(t, []float64{2, 3}, got)
	assert.Equal(t, int64(1), s.Dropped())
}

func TestStreamCloseIdempotent(t *testing.T) {
	s := newStream(1)
	s.close()
	s.close()

	// Publishing after close is a no-op, not a panic.
	s.publish(item("0", 1))

	_, ok := <-s.C()
	require.False(t, ok)
}
