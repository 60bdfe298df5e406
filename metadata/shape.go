package metadata

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Position is a 2D coordinate on the sample, in the unit of the
// surrounding shape descriptors.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Shape describes the geometry of a sample or a single contact.
//
// Shapes serialize to a compact "Name:key=value,..." form so they can be
// stored as plain metadata attributes and parsed back without reflection.
type Shape interface {
	fmt.Stringer
	// Area returns the area of the shape in squared units.
	Area() float64
}

// Point is a dimensionless contact.
type Point struct{}

func (Point) String() string { return "Point:" }

// Area implements Shape.
func (Point) Area() float64 { return 0 }

// Rectangle is a rectangular shape; the origin is the bottom-left corner.
type Rectangle struct {
	Width  float64
	Height float64
	Unit   string
}

// NewRectangle creates a rectangle. A zero height makes a square.
func NewRectangle(width, height float64, unit string) Rectangle {
	if height == 0 {
		height = width
	}
	if unit == "" {
		unit = "mm"
	}
	return Rectangle{Width: width, Height: height, Unit: unit}
}

func (r Rectangle) String() string {
	return fmt.Sprintf("Rectangle:width=%s,height=%s,unit=%s",
		formatFloat(r.Width), formatFloat(r.Height), r.Unit)
}

// Area implements Shape.
func (r Rectangle) Area() float64 { return r.Width * r.Height }

// Circle is a circular shape; the origin is the center.
type Circle struct {
	Radius float64
	Unit   string
}

// NewCircle creates a circle.
func NewCircle(radius float64, unit string) Circle {
	if unit == "" {
		unit = "mm"
	}
	return Circle{Radius: radius, Unit: unit}
}

func (c Circle) String() string {
	return fmt.Sprintf("Circle:radius=%s,unit=%s", formatFloat(c.Radius), c.Unit)
}

// Area implements Shape.
func (c Circle) Area() float64 { return c.Radius * c.Radius * math.Pi }

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// ParseShape parses the string form produced by a Shape's String method.
func ParseShape(s string) (Shape, error) {
	name, rest, ok := strings.Cut(s, ":")
	if !ok {
		return nil, fmt.Errorf("metadata: malformed shape %q", s)
	}

	params := map[string]string{}
	if rest != "" {
		for _, kv := range strings.Split(rest, ",") {
			k, v, ok := strings.Cut(kv, "=")
			if !ok {
				return nil, fmt.Errorf("metadata: malformed shape parameter %q in %q", kv, s)
			}
			params[k] = v
		}
	}

	parseF := func(key string) (float64, error) {
		raw, ok := params[key]
		if !ok {
			return 0, fmt.Errorf("metadata: shape %q missing parameter %q", s, key)
		}
		return strconv.ParseFloat(raw, 64)
	}

	switch name {
	case "Point":
		return Point{}, nil
	case "Rectangle":
		w, err := parseF("width")
		if err != nil {
			return nil, err
		}
		h, err := parseF("height")
		if err != nil {
			return nil, err
		}
		return Rectangle{Width: w, Height: h, Unit: params["unit"]}, nil
	case "Circle":
		r, err := parseF("radius")
		if err != nil {
			return nil, err
		}
		return Circle{Radius: r, Unit: params["unit"]}, nil
	default:
		return nil, fmt.Errorf("metadata: unknown shape %q", name)
	}
}
