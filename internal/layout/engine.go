// Package layout is a force-directed simulation over a room's node set.
// Each client runs its own simulation; positions are not kept in lockstep
// across clients except for pinned or explicitly moved nodes, whose
// coordinates are authoritative from the store.
package layout

import (
	"math"

	"github.com/nickelm/tapestry/internal/graph"
)

// Node card dimensions, shared with edge routing.
const (
	NodeWidth  = 180.0
	NodeHeight = 52.0
)

// Simulation tuning. Alpha is the decaying temperature; it is reheated on
// structural changes and raised to a floor while dragging.
const (
	alphaMin       = 0.001
	alphaRestart   = 0.3
	alphaDragFloor = 0.1
	velocityDecay  = 0.4

	linkDistance       = 60.0
	linkDistanceHidden = 350.0
	linkStrength       = 1.5
	linkStrengthHidden = 0.8
	linkIterations     = 2

	chargeStrength    = -150.0
	chargeDistanceMax = 300.0

	collideStrength   = 0.7
	collideIterations = 2

	gravityStrength = 0.5

	occlusionMargin   = 20.0
	occlusionStrength = 0.8

	clampFactor  = 1.5
	clampPadding = 50.0
)

func collideRadius() float64 {
	return math.Max(NodeWidth, NodeHeight)/2 + 8
}

// Rect is an axis-aligned rectangle given by center and size, used for the
// occlusion region (an external overlay the layout must keep clear of).
type Rect struct {
	CX, CY        float64
	Width, Height float64
}

// Node is a simulated particle. Fixed nodes (pinned or mid-drag) receive
// forces like any other but their position and velocity are reset each
// tick, matching store-authoritative coordinates.
type Node struct {
	ID     string
	X, Y   float64
	VX, VY float64
	Hidden bool
	Pinned bool

	dragged bool
}

// Fixed reports whether the node's position is authoritative rather than
// simulated.
func (n *Node) Fixed() bool {
	return n.Pinned || n.dragged
}

type link struct {
	source, target *Node
	bias           float64 // source degree share, for asymmetric pull
}

// Engine steps the simulation. Not safe for concurrent use; callers drive
// it from a single render loop.
type Engine struct {
	nodes   []*Node
	byID    map[string]*Node
	links   []link
	degrees map[string]int

	alpha       float64
	alphaTarget float64
	alphaDecay  float64

	viewportW float64
	viewportH float64
	occlusion *Rect
}

// NewEngine creates an idle engine for the given viewport size.
func NewEngine(viewportW, viewportH float64) *Engine {
	return &Engine{
		byID:       make(map[string]*Node),
		degrees:    make(map[string]int),
		alphaDecay: 1 - math.Pow(alphaMin, 1.0/300),
		viewportW:  viewportW,
		viewportH:  viewportH,
	}
}

// SetViewport updates the clamp bounds.
func (e *Engine) SetViewport(w, h float64) {
	e.viewportW, e.viewportH = w, h
}

// SetOcclusion installs or clears the active occlusion rectangle.
func (e *Engine) SetOcclusion(r *Rect) {
	e.occlusion = r
}

// SetGraph replaces the simulated node and edge sets, preserving position
// and velocity of nodes that persist across the change, and reheats the
// simulation.
func (e *Engine) SetGraph(nodes []graph.Node, edges []graph.Edge) {
	byID := make(map[string]*Node, len(nodes))
	sim := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		node, ok := e.byID[n.ID]
		if !ok {
			node = &Node{ID: n.ID, X: n.X, Y: n.Y}
		}
		node.Hidden = n.Hidden
		node.Pinned = n.Pinned
		if n.Pinned {
			node.X, node.Y = n.X, n.Y
		}
		byID[n.ID] = node
		sim = append(sim, node)
	}
	e.nodes = sim
	e.byID = byID

	e.degrees = make(map[string]int)
	for _, ed := range edges {
		if _, ok := byID[ed.SourceID]; !ok {
			continue
		}
		if _, ok := byID[ed.TargetID]; !ok {
			continue
		}
		e.degrees[ed.SourceID]++
		e.degrees[ed.TargetID]++
	}
	e.links = e.links[:0]
	for _, ed := range edges {
		s, okS := byID[ed.SourceID]
		t, okT := byID[ed.TargetID]
		if !okS || !okT {
			continue
		}
		sc, tc := float64(e.degrees[ed.SourceID]), float64(e.degrees[ed.TargetID])
		e.links = append(e.links, link{source: s, target: t, bias: sc / (sc + tc)})
	}

	e.Reheat(alphaRestart)
}

// MoveNode applies an authoritative position update from the store.
func (e *Engine) MoveNode(id string, x, y float64, pinned bool) {
	n, ok := e.byID[id]
	if !ok {
		return
	}
	n.X, n.Y = x, y
	n.Pinned = pinned
	n.VX, n.VY = 0, 0
	e.Reheat(alphaRestart)
}

// StartDrag freezes a node under the cursor and keeps the simulation warm.
func (e *Engine) StartDrag(id string) {
	if n, ok := e.byID[id]; ok {
		n.dragged = true
		e.alphaTarget = alphaDragFloor
		if e.alpha < alphaDragFloor {
			e.alpha = alphaDragFloor
		}
	}
}

// Drag moves a dragged node.
func (e *Engine) Drag(id string, x, y float64) {
	if n, ok := e.byID[id]; ok && n.dragged {
		n.X, n.Y = x, y
	}
}

// EndDrag releases a node, optionally leaving it pinned in place.
func (e *Engine) EndDrag(id string, pinned bool) {
	if n, ok := e.byID[id]; ok {
		n.dragged = false
		n.Pinned = pinned
	}
	e.alphaTarget = 0
}

// Reheat raises the simulation temperature, typically after a structural
// change.
func (e *Engine) Reheat(alpha float64) {
	if alpha > e.alpha {
		e.alpha = alpha
	}
}

// Alpha returns the current temperature.
func (e *Engine) Alpha() float64 {
	return e.alpha
}

// Running reports whether the simulation still has motion left.
func (e *Engine) Running() bool {
	return e.alpha >= alphaMin
}

// Tick advances the simulation one step: decay alpha, apply forces, then
// integrate velocities with decay and clamp free nodes to the bounding box.
func (e *Engine) Tick() {
	e.alpha += (e.alphaTarget - e.alpha) * e.alphaDecay

	e.applyLink(e.alpha)
	e.applyCharge(e.alpha)
	e.applyCollide()
	e.applyGravity(e.alpha)
	e.applyOcclusion(e.alpha)

	bw := e.viewportW * clampFactor
	bh := e.viewportH * clampFactor
	for _, n := range e.nodes {
		if n.Fixed() {
			n.VX, n.VY = 0, 0
			continue
		}
		n.VX *= 1 - velocityDecay
		n.VY *= 1 - velocityDecay
		n.X += n.VX
		n.Y += n.VY
		n.X = math.Max(-bw+clampPadding, math.Min(bw-clampPadding, n.X))
		n.Y = math.Max(-bh+clampPadding, math.Min(bh-clampPadding, n.Y))
	}
}

// Settle runs ticks until motion stops, for headless layout (export,
// tests). A step cap guards against a nonzero alpha target.
func (e *Engine) Settle(maxTicks int) {
	for i := 0; i < maxTicks && e.Running(); i++ {
		e.Tick()
	}
}

// Positions returns the current coordinates of every node.
func (e *Engine) Positions() map[string][2]float64 {
	out := make(map[string][2]float64, len(e.nodes))
	for _, n := range e.nodes {
		out[n.ID] = [2]float64{n.X, n.Y}
	}
	return out
}

// Position returns one node's coordinates.
func (e *Engine) Position(id string) (x, y float64, ok bool) {
	n, found := e.byID[id]
	if !found {
		return 0, 0, false
	}
	return n.X, n.Y, true
}
