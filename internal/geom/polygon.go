package geom

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Variant selects how each polygon of a row is outlined.
type Variant int

const (
	// VariantRegular is a convex regular polygon.
	VariantRegular Variant = iota
	// VariantStar alternates between the outer radius and starInnerRadius.
	VariantStar
	// VariantSpiral grows the radius with angle from spiralInnerRadius to 1.
	VariantSpiral
)

const (
	starInnerRadius   = 0.5
	spiralInnerRadius = 0.45
)

// String returns the lowercase variant name.
func (v Variant) String() string {
	switch v {
	case VariantRegular:
		return "regular"
	case VariantStar:
		return "star"
	case VariantSpiral:
		return "spiral"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

// ParseVariant parses a variant name as returned by String.
func ParseVariant(s string) (Variant, error) {
	switch s {
	case "regular", "":
		return VariantRegular, nil
	case "star":
		return VariantStar, nil
	case "spiral":
		return VariantSpiral, nil
	}
	return VariantRegular, fmt.Errorf("geom: unknown shape variant %q", s)
}

// MaxPolygons caps the polygons in a row. Vertex count grows with the
// square of the row length.
const MaxPolygons = 256

// PolygonCount clamps a requested row length to [0, MaxPolygons].
func PolygonCount(count int) int {
	return max(0, min(count, MaxPolygons))
}

// PolygonVertexStride is the packed size of a PolygonVertex:
// local vec2 (8) + color vec4 (16) + index f32 (4).
const PolygonVertexStride = 28

// PolygonVertex is one triangle-list vertex of a polygon row.
type PolygonVertex struct {
	// Local is the position relative to the polygon center at unit radius.
	Local mgl32.Vec2
	Color Color
	// Index is the polygon's slot in the row.
	Index float32
}

// Polygon describes one shape of a row and its range in Row.Vertices.
type Polygon struct {
	Index int
	Sides int
	Color Color
	First int
	Count int
}

// Row is the tessellated geometry of a polygon row.
type Row struct {
	Polygons []Polygon
	Vertices []PolygonVertex
}

// PolygonRow tessellates count polygons. Polygon i has i+3 sides and a
// rainbow color with hue i/count. Each polygon is a triangle fan around
// its center. count == 0 yields an empty Row; counts above MaxPolygons
// are clamped.
func PolygonRow(count int, variant Variant) Row {
	count = PolygonCount(count)
	if count == 0 {
		return Row{}
	}
	row := Row{Polygons: make([]Polygon, 0, count)}
	for i := 0; i < count; i++ {
		sides := i + 3
		color := HSL(float32(i)/float32(count), 0.9, 0.6)
		outline := Outline(sides, variant)

		first := len(row.Vertices)
		for k := range outline {
			a, b := outline[k], outline[(k+1)%len(outline)]
			row.Vertices = append(row.Vertices,
				PolygonVertex{Local: mgl32.Vec2{}, Color: color, Index: float32(i)},
				PolygonVertex{Local: a, Color: color, Index: float32(i)},
				PolygonVertex{Local: b, Color: color, Index: float32(i)},
			)
		}
		row.Polygons = append(row.Polygons, Polygon{
			Index: i,
			Sides: sides,
			Color: color,
			First: first,
			Count: len(row.Vertices) - first,
		})
	}
	return row
}

// Outline returns the closed outline of one polygon at unit radius,
// counter-clockwise, starting at the top. Regular and spiral outlines have
// sides points; star outlines have 2*sides.
func Outline(sides int, variant Variant) []mgl32.Vec2 {
	if sides < 3 {
		sides = 3
	}
	switch variant {
	case VariantStar:
		pts := make([]mgl32.Vec2, 2*sides)
		for k := range pts {
			r := float32(1)
			if k%2 == 1 {
				r = starInnerRadius
			}
			pts[k] = polar(r, float32(k)/float32(len(pts)))
		}
		return pts
	case VariantSpiral:
		pts := make([]mgl32.Vec2, sides)
		for k := range pts {
			t := float32(k) / float32(sides)
			pts[k] = polar(spiralInnerRadius+(1-spiralInnerRadius)*t, t)
		}
		return pts
	default:
		pts := make([]mgl32.Vec2, sides)
		for k := range pts {
			pts[k] = polar(1, float32(k)/float32(sides))
		}
		return pts
	}
}

// polar returns the point at radius r and fraction t of a full turn,
// measured from the positive y axis.
func polar(r, t float32) mgl32.Vec2 {
	s, c := math32.Sincos(2*math32.Pi*t + math32.Pi/2)
	return mgl32.Vec2{r * c, r * s}
}

// AppendPolygonVertices packs vertices into dst in the polygon shader's
// layout and returns the extended slice.
func AppendPolygonVertices(dst []byte, vertices []PolygonVertex) []byte {
	for _, v := range vertices {
		dst = appendFloats(dst, v.Local[0], v.Local[1], v.Color[0], v.Color[1], v.Color[2], v.Color[3], v.Index)
	}
	return dst
}

func appendFloats(dst []byte, vs ...float32) []byte {
	for _, v := range vs {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
	}
	return dst
}
