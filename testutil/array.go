package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/probego/metadata"
)

// SimArray is a simulated rectangular contact grid. Contacts are numbered
// row-major from "0"; positions are on a 10 mm pitch.
type SimArray struct {
	// FailSelect makes SelectContact fail for the listed contacts.
	FailSelect map[string]error

	name        string
	rows, cols  int
	ids         []string
	positions   map[string]metadata.Position
	shapes      map[string]metadata.Shape
	sampleShape metadata.Shape

	mu       sync.Mutex
	selected string
}

// NewSimArray creates a rows x cols contact grid.
func NewSimArray(rows, cols int) *SimArray {
	a := &SimArray{
		name:        fmt.Sprintf("sim-grid-%dx%d", rows, cols),
		rows:        rows,
		cols:        cols,
		positions:   make(map[string]metadata.Position),
		shapes:      make(map[string]metadata.Shape),
		sampleShape: metadata.NewRectangle(float64(cols)*10, float64(rows)*10, "mm"),
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			id := fmt.Sprintf("%d", r*cols+c)
			a.ids = append(a.ids, id)
			a.positions[id] = metadata.Position{X: float64(c) * 10, Y: float64(r) * 10}
			a.shapes[id] = metadata.NewCircle(0.5, "mm")
		}
	}
	return a
}

// Name implements probego.ContactArray.
func (a *SimArray) Name() string { return a.name }

// ArrayType implements probego.ContactArray.
func (a *SimArray) ArrayType() string { return "grid" }

// SampleShape implements probego.ContactArray.
func (a *SimArray) SampleShape() metadata.Shape { return a.sampleShape }

// ContactIDs implements probego.ContactArray.
func (a *SimArray) ContactIDs() []string {
	return append([]string(nil), a.ids...)
}

// Position implements probego.ContactArray.
func (a *SimArray) Position(id string) (metadata.Position, bool) {
	p, ok := a.positions[id]
	return p, ok
}

// Shape implements probego.ContactArray.
func (a *SimArray) Shape(id string) (metadata.Shape, bool) {
	s, ok := a.shapes[id]
	return s, ok
}

// SelectContact implements probego.ContactArray.
func (a *SimArray) SelectContact(_ context.Context, id string) error {
	if _, ok := a.positions[id]; !ok {
		return fmt.Errorf("unknown contact %q", id)
	}
	if err := a.FailSelect[id]; err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.selected = id
	return nil
}

// Selected returns the currently routed contact id.
func (a *SimArray) Selected() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.selected
}
