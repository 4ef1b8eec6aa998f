// Package route computes deterministic rectilinear edge paths between node
// cards, and between a node card and the occlusion rectangle when one
// endpoint is hidden behind it.
package route

import (
	"math"

	"github.com/nickelm/tapestry/internal/layout"
)

// Boundary margins: node exits sit just off the card border; occlusion
// exits sit just off the rectangle border.
const (
	nodeMargin      = 4.0
	occlusionMargin = 10.0
)

// Point is one vertex of a routed path.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Endpoint is a routed edge end: a node center plus its hidden flag.
type Endpoint struct {
	X, Y   float64
	Hidden bool
}

// Path returns the rectilinear polyline from source to target as four
// points: exit, two bend points, entry. If either endpoint is hidden, the
// path anchors to the occlusion rectangle boundary instead of the hidden
// node's card. A degenerate pair (identical centers) yields nil.
func Path(source, target Endpoint, occ *layout.Rect) []Point {
	if source.Hidden || target.Hidden {
		return occlusionPath(source, target, occ)
	}

	dx := target.X - source.X
	dy := target.Y - source.Y
	if dx == 0 && dy == 0 {
		return nil
	}

	hw := layout.NodeWidth/2 + nodeMargin
	hh := layout.NodeHeight/2 + nodeMargin

	if math.Abs(dx) > math.Abs(dy) {
		// Horizontal dominant: exit the side faces, bend at the midpoint.
		x1 := source.X + sign(dx)*hw
		x2 := target.X - sign(dx)*hw
		midX := (x1 + x2) / 2
		return []Point{
			{x1, source.Y},
			{midX, source.Y},
			{midX, target.Y},
			{x2, target.Y},
		}
	}

	y1 := source.Y + sign(dy)*hh
	y2 := target.Y - sign(dy)*hh
	midY := (y1 + y2) / 2
	return []Point{
		{source.X, y1},
		{source.X, midY},
		{target.X, midY},
		{target.X, y2},
	}
}

// occlusionPath routes between the occlusion rectangle boundary and the
// visible endpoint's card boundary. The exit point is where the ray from
// the rectangle center through the visible node crosses the expanded
// rectangle border.
func occlusionPath(source, target Endpoint, occ *layout.Rect) []Point {
	hidden, visible := source, target
	if target.Hidden {
		hidden, visible = target, source
	}

	cx, cy := hidden.X, hidden.Y
	phw := layout.NodeWidth/2 + occlusionMargin
	phh := layout.NodeHeight/2 + occlusionMargin
	if occ != nil {
		cx, cy = occ.CX, occ.CY
		phw = occ.Width/2 + occlusionMargin
		phh = occ.Height/2 + occlusionMargin
	}

	dx := visible.X - cx
	dy := visible.Y - cy
	if dx == 0 && dy == 0 {
		return nil
	}

	// Ray-boundary intersection, clamped onto the border.
	var bx, by float64
	if math.Abs(dx/phw) > math.Abs(dy/phh) {
		bx = cx + sign(dx)*phw
		by = cy + dy*(phw/math.Abs(dx))
		by = math.Max(cy-phh, math.Min(cy+phh, by))
	} else {
		by = cy + sign(dy)*phh
		bx = cx + dx*(phh/math.Abs(dy))
		bx = math.Max(cx-phw, math.Min(cx+phw, bx))
	}

	nhw := layout.NodeWidth/2 + nodeMargin
	nhh := layout.NodeHeight/2 + nodeMargin
	edx := visible.X - bx
	edy := visible.Y - by

	if math.Abs(edx) > math.Abs(edy) {
		vx := visible.X - sign(edx)*nhw
		midX := (bx + vx) / 2
		return []Point{
			{bx, by},
			{midX, by},
			{midX, visible.Y},
			{vx, visible.Y},
		}
	}

	vy := visible.Y - sign(edy)*nhh
	midY := (by + vy) / 2
	return []Point{
		{bx, by},
		{bx, midY},
		{visible.X, midY},
		{visible.X, vy},
	}
}

func sign(v float64) float64 {
	if v > 0 {
		return 1
	}
	return -1
}
