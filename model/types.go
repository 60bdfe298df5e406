package model

import (
	"errors"
	"fmt"
)

// Field describes one column of a structured record: a quantity name plus
// its physical unit, e.g. {Name: "Voltage", Unit: "V"}.
type Field struct {
	Name string `json:"name"`
	Unit string `json:"unit"`
}

// Label returns the display form of the field, e.g. "Voltage (V)".
func (f Field) Label() string {
	if f.Unit == "" {
		return f.Name
	}
	return fmt.Sprintf("%s (%s)", f.Name, f.Unit)
}

// Schema is the ordered field layout of a record stream. Two schemas are
// append-compatible only if they are equal: same fields, same order, same
// names and units.
type Schema []Field

// Equal reports whether s and other describe the same layout.
func (s Schema) Equal(other Schema) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the schema.
func (s Schema) Clone() Schema {
	if s == nil {
		return nil
	}
	out := make(Schema, len(s))
	copy(out, s)
	return out
}

// ErrShapeMismatch is returned when a record's value count disagrees with
// its schema.
var ErrShapeMismatch = errors.New("record values do not match schema")

// Record is one structured measurement row. Values are aligned with Fields.
type Record struct {
	Fields Schema
	Values []float64
}

// Validate checks that the value count matches the schema.
func (r Record) Validate() error {
	if len(r.Fields) == 0 {
		return errors.New("record has no fields")
	}
	if len(r.Values) != len(r.Fields) {
		return fmt.Errorf("%w: %d values for %d fields", ErrShapeMismatch, len(r.Values), len(r.Fields))
	}
	return nil
}

// Table is a set of rows sharing one schema.
type Table struct {
	Fields Schema
	Rows   [][]float64
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// Validate checks that every row matches the schema width.
func (t Table) Validate() error {
	if len(t.Fields) == 0 {
		return errors.New("table has no fields")
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Fields) {
			return fmt.Errorf("%w: row %d has %d values for %d fields", ErrShapeMismatch, i, len(row), len(t.Fields))
		}
	}
	return nil
}

// Append returns a table with the record's values added as a new row.
// The record's schema must equal the table's; an empty table adopts it.
func (t Table) Append(r Record) (Table, error) {
	if err := r.Validate(); err != nil {
		return t, err
	}
	if len(t.Fields) == 0 {
		t.Fields = r.Fields.Clone()
	} else if !t.Fields.Equal(r.Fields) {
		return t, fmt.Errorf("%w: incompatible record schema", ErrShapeMismatch)
	}
	row := make([]float64, len(r.Values))
	copy(row, r.Values)
	t.Rows = append(t.Rows, row)
	return t, nil
}

// Column returns the values of the named field, or false if absent.
func (t Table) Column(name string) ([]float64, bool) {
	idx := -1
	for i, f := range t.Fields {
		if f.Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false
	}
	out := make([]float64, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out, true
}
