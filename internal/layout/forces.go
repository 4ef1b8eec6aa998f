package layout

import "math"

// jiggle breaks exact coincidence deterministically so forces never divide
// by zero.
const jiggle = 1e-6

// applyLink attracts connected pairs toward a target separation. Links
// toward hidden nodes use a long distance and a loose pull so standins sit
// far away without dragging the visible graph with them.
func (e *Engine) applyLink(alpha float64) {
	for iter := 0; iter < linkIterations; iter++ {
		for _, l := range e.links {
			distance, strength := linkDistance, linkStrength
			if l.source.Hidden || l.target.Hidden {
				distance, strength = linkDistanceHidden, linkStrengthHidden
			}

			x := l.target.X + l.target.VX - l.source.X - l.source.VX
			y := l.target.Y + l.target.VY - l.source.Y - l.source.VY
			if x == 0 && y == 0 {
				x = jiggle
			}
			d := math.Sqrt(x*x + y*y)
			k := (d - distance) / d * alpha * strength
			x *= k
			y *= k

			l.target.VX -= x * l.bias
			l.target.VY -= y * l.bias
			l.source.VX += x * (1 - l.bias)
			l.source.VY += y * (1 - l.bias)
		}
	}
}

// applyCharge repels every node pair, cut off beyond the interaction
// radius for performance.
func (e *Engine) applyCharge(alpha float64) {
	maxSq := chargeDistanceMax * chargeDistanceMax
	for i := 0; i < len(e.nodes); i++ {
		for j := i + 1; j < len(e.nodes); j++ {
			a, b := e.nodes[i], e.nodes[j]
			dx := b.X - a.X
			dy := b.Y - a.Y
			l := dx*dx + dy*dy
			if l >= maxSq {
				continue
			}
			if l == 0 {
				dx = jiggle
				l = dx * dx
			}
			if l < 1 {
				l = math.Sqrt(l)
			}
			w := chargeStrength * alpha / l
			a.VX += dx * w
			a.VY += dy * w
			b.VX -= dx * w
			b.VY -= dy * w
		}
	}
}

// applyCollide enforces a minimum center separation derived from the node
// card size. Radii are uniform, so overlap resolution splits evenly.
func (e *Engine) applyCollide() {
	r := collideRadius()
	minDist := 2 * r
	for iter := 0; iter < collideIterations; iter++ {
		for i := 0; i < len(e.nodes); i++ {
			for j := i + 1; j < len(e.nodes); j++ {
				a, b := e.nodes[i], e.nodes[j]
				x := a.X + a.VX - b.X - b.VX
				y := a.Y + a.VY - b.Y - b.VY
				l := x*x + y*y
				if l >= minDist*minDist {
					continue
				}
				if l == 0 {
					x = jiggle
					l = x * x
				}
				d := math.Sqrt(l)
				k := (minDist - d) / d * collideStrength
				x *= k
				y *= k
				a.VX += x * 0.5
				a.VY += y * 0.5
				b.VX -= x * 0.5
				b.VY -= y * 0.5
			}
		}
	}
}

// applyGravity pulls every free node toward the origin proportionally to
// its distance, so outliers are not ignored the way a center-of-mass shift
// would.
func (e *Engine) applyGravity(alpha float64) {
	for _, n := range e.nodes {
		if n.Fixed() {
			continue
		}
		dx := -n.X
		dy := -n.Y
		dist := math.Sqrt(dx*dx + dy*dy)
		if dist == 0 {
			continue
		}
		k := gravityStrength * alpha * dist * 0.01
		n.VX += dx / dist * k
		n.VY += dy / dist * k
	}
}

// applyOcclusion pushes any free node whose center falls inside the
// expanded occlusion rectangle toward its nearest side, proportional to
// penetration depth.
func (e *Engine) applyOcclusion(alpha float64) {
	r := e.occlusion
	if r == nil {
		return
	}
	halfW := r.Width/2 + occlusionMargin
	halfH := r.Height/2 + occlusionMargin
	left := r.CX - halfW
	right := r.CX + halfW
	top := r.CY - halfH
	bottom := r.CY + halfH

	for _, n := range e.nodes {
		if n.Fixed() {
			continue
		}
		if n.X <= left || n.X >= right || n.Y <= top || n.Y >= bottom {
			continue
		}
		dLeft := n.X - left
		dRight := right - n.X
		dTop := n.Y - top
		dBottom := bottom - n.Y
		minD := math.Min(math.Min(dLeft, dRight), math.Min(dTop, dBottom))
		k := occlusionStrength * alpha
		switch minD {
		case dLeft:
			n.VX -= k * (halfW - dLeft)
		case dRight:
			n.VX += k * (halfW - dRight)
		case dTop:
			n.VY -= k * (halfH - dTop)
		default:
			n.VY += k * (halfH - dBottom)
		}
	}
}
