// Package geom builds the static geometry of the polygon-row and
// fractal-tree modes.
//
// Geometry is produced once per mode activation and uploaded as-is; all
// animation of these modes happens in their vertex shaders. Vertex types
// in this package are packed by their Append methods in the exact layout
// the shaders declare.
package geom
