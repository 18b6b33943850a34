package geom

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Tree limits.
const (
	// MaxBranchCount bounds the fan-out of each segment.
	MaxBranchCount = 8

	// MaxTreeSegments bounds the total number of segments regardless of
	// depth and fan-out.
	MaxTreeSegments = 1 << 18
)

// TreeVertexStride is the packed size of a tree vertex:
// position vec2 (8) + depth f32 (4) + branch f32 (4).
const TreeVertexStride = 16

// TreeParams configures fractal tree generation.
type TreeParams struct {
	MaxDepth    int
	BranchCount int
	// Spread is the total fan angle of the children of one segment, in
	// radians.
	Spread float32
	// Shrink multiplies the length of each child segment. Must be < 1.
	Shrink      float32
	TrunkLength float32
	MinLength   float32
}

// DefaultTreeParams returns the parameters used by the fractal tree mode.
func DefaultTreeParams(maxDepth, branchCount int) TreeParams {
	return TreeParams{
		MaxDepth:    maxDepth,
		BranchCount: branchCount,
		Spread:      math32.Pi * 5 / 9,
		Shrink:      0.7,
		TrunkLength: 0.5,
		MinLength:   0.005,
	}
}

// Segment is one line of the tree skeleton. Root is at the origin,
// growing along +y.
type Segment struct {
	Start, End mgl32.Vec2
	Depth      int
	// Branch is the segment's emission order, unique within a tree.
	Branch int
}

// StopBranching reports whether a segment at depth spawns no children
// of length childLength. It is the only termination condition of Tree.
func StopBranching(depth, maxDepth int, childLength, minLength float32) bool {
	return depth+1 >= maxDepth || childLength < minLength
}

type treeFrame struct {
	pos    mgl32.Vec2
	angle  float32
	length float32
	depth  int
}

// Tree generates the segment skeleton with an explicit work stack. For
// maxDepth d and branch count b it emits at most (b^d-1)/(b-1) segments,
// fewer when the minimum length is reached first.
func Tree(p TreeParams) []Segment {
	p = p.sanitize()
	if p.MaxDepth < 1 || p.TrunkLength < p.MinLength {
		return nil
	}

	var segs []Segment
	stack := []treeFrame{{angle: math32.Pi / 2, length: p.TrunkLength}}
	for len(stack) > 0 && len(segs) < MaxTreeSegments {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		s, c := math32.Sincos(f.angle)
		end := f.pos.Add(mgl32.Vec2{c * f.length, s * f.length})
		segs = append(segs, Segment{Start: f.pos, End: end, Depth: f.depth, Branch: len(segs)})

		childLen := f.length * p.Shrink
		if StopBranching(f.depth, p.MaxDepth, childLen, p.MinLength) {
			continue
		}
		for k := 0; k < p.BranchCount; k++ {
			stack = append(stack, treeFrame{
				pos:    end,
				angle:  f.angle + fanOffset(k, p.BranchCount, p.Spread),
				length: childLen,
				depth:  f.depth + 1,
			})
		}
	}
	return segs
}

// fanOffset spreads n children evenly across spread, centered on the
// parent heading.
func fanOffset(k, n int, spread float32) float32 {
	if n <= 1 {
		return 0
	}
	return spread * (float32(k)/float32(n-1) - 0.5)
}

func (p TreeParams) sanitize() TreeParams {
	if p.BranchCount < 1 {
		p.BranchCount = 1
	}
	if p.BranchCount > MaxBranchCount {
		p.BranchCount = MaxBranchCount
	}
	if !(p.Shrink > 0 && p.Shrink < 1) {
		p.Shrink = 0.7
	}
	if !(p.MinLength > 0) {
		p.MinLength = 0.005
	}
	return p
}

// MaxSegments returns (b^d-1)/(b-1), the segment bound for depth d and
// fan-out b, saturating at MaxTreeSegments.
func MaxSegments(d, b int) int {
	total, level := 0, 1
	for i := 0; i < d; i++ {
		total += level
		if total >= MaxTreeSegments {
			return MaxTreeSegments
		}
		level *= b
	}
	return total
}

// AppendTreeVertices packs segments as a line list into dst. The end
// vertex of a segment carries depth+1, so sway reaches zero at the root.
func AppendTreeVertices(dst []byte, segs []Segment) []byte {
	for _, s := range segs {
		d, b := float32(s.Depth), float32(s.Branch)
		dst = appendFloats(dst, s.Start[0], s.Start[1], d, b)
		dst = appendFloats(dst, s.End[0], s.End[1], d+1, b)
	}
	return dst
}
