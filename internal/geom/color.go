package geom

import "github.com/chewxy/math32"

// Color is a straight-alpha RGBA color with components in [0, 1].
type Color [4]float32

// HSL converts hue, saturation and lightness (all in [0, 1]) to an opaque
// Color. Hue wraps.
func HSL(h, s, l float32) Color {
	h -= math32.Floor(h)
	c := (1 - math32.Abs(2*l-1)) * s
	hp := h * 6
	x := c * (1 - math32.Abs(math32.Mod(hp, 2)-1))

	var r, g, b float32
	switch {
	case hp < 1:
		r, g, b = c, x, 0
	case hp < 2:
		r, g, b = x, c, 0
	case hp < 3:
		r, g, b = 0, c, x
	case hp < 4:
		r, g, b = 0, x, c
	case hp < 5:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	m := l - c/2
	return Color{r + m, g + m, b + m, 1}
}
