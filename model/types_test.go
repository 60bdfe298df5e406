package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldLabel(t *testing.T) {
	assert.Equal(t, "Voltage (V)", Field{Name: "Voltage", Unit: "V"}.Label())
	assert.Equal(t, "Index", Field{Name: "Index"}.Label())
}

func TestSchemaEqual(t *testing.T) {
	a := Schema{{Name: "Voltage", Unit: "V"}, {Name: "Current", Unit: "A"}}
	b := Schema{{Name: "Voltage", Unit: "V"}, {Name: "Current", Unit: "A"}}
	c := Schema{{Name: "Current", Unit: "A"}, {Name: "Voltage", Unit: "V"}}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(a[:1]))
}

func TestRecordValidate(t *testing.T) {
	s := Schema{{Name: "Voltage", Unit: "V"}, {Name: "Current", Unit: "A"}}

	assert.NoError(t, Record{Fields: s, Values: []float64{1, 2}}.Validate())
	assert.ErrorIs(t, Record{Fields: s, Values: []float64{1}}.Validate(), ErrShapeMismatch)
	assert.Error(t, Record{}.Validate())
}

func TestTableAppend(t *testing.T) {
	s := Schema{{Name: "Voltage", Unit: "V"}, {Name: "Current", Unit: "A"}}

	var tbl Table
	tbl, err := tbl.Append(Record{Fields: s, Values: []float64{0.1, 0.2}})
	require.NoError(t, err)
	tbl, err = tbl.Append(Record{Fields: s, Values: []float64{0.3, 0.4}})
	require.NoError(t, err)

	assert.Equal(t, 2, tbl.Len())
	assert.True(t, tbl.Fields.Equal(s))

	// Schema drift is rejected.
	_, err = tbl.Append(Record{Fields: Schema{{Name: "Voltage", Unit: "mV"}, {Name: "Current", Unit: "A"}}, Values: []float64{1, 2}})
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestTableColumn(t *testing.T) {
	tbl := Table{
		Fields: Schema{{Name: "Voltage", Unit: "V"}, {Name: "Current", Unit: "A"}},
		Rows:   [][]float64{{0.1, 1}, {0.2, 2}},
	}

	col, ok := tbl.Column("Current")
	require.True(t, ok)
	assert.Equal(t, []float64{1, 2}, col)

	_, ok = tbl.Column("Power")
	assert.False(t, ok)
}
