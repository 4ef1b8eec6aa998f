package layout

import (
	"math"
	"testing"

	"github.com/nickelm/tapestry/internal/graph"
)

func twoNodeGraph() ([]graph.Node, []graph.Edge) {
	nodes := []graph.Node{
		{ID: "a", X: 0, Y: 0},
		{ID: "b", X: 10, Y: 0},
	}
	edges := []graph.Edge{
		{ID: "e1", SourceID: "a", TargetID: "b"},
	}
	return nodes, edges
}

func TestLinkedNodesApproachLinkDistance(t *testing.T) {
	e := NewEngine(1200, 800)
	e.SetGraph(twoNodeGraph())
	e.Settle(500)

	ax, ay, _ := e.Position("a")
	bx, by, _ := e.Position("b")
	dist := math.Hypot(bx-ax, by-ay)

	// Charge repulsion pushes slightly past the 60px rest length and the
	// collide force enforces card separation, so accept a generous band.
	if dist < 30 || dist > 400 {
		t.Errorf("settled distance = %v, want within [30, 400]", dist)
	}
	if e.Running() {
		t.Error("simulation still running after Settle")
	}
}

func TestPositionsStayInsideClampBounds(t *testing.T) {
	const w, h = 1000.0, 800.0
	e := NewEngine(w, h)

	// Seed nodes far outside the playfield; the clamp must pull them back.
	nodes := []graph.Node{
		{ID: "a", X: 90000, Y: -90000},
		{ID: "b", X: -90000, Y: 90000},
		{ID: "c", X: 5, Y: 5},
	}
	e.SetGraph(nodes, nil)
	e.Tick()

	maxX := 1.5*w - 50
	maxY := 1.5*h - 50
	for _, id := range []string{"a", "b", "c"} {
		x, y, ok := e.Position(id)
		if !ok {
			t.Fatalf("node %s missing", id)
		}
		if x < -maxX || x > maxX || y < -maxY || y > maxY {
			t.Errorf("node %s at (%v,%v), outside clamp bounds ±(%v,%v)", id, x, y, maxX, maxY)
		}
	}
}

func TestPinnedNodeDoesNotMove(t *testing.T) {
	e := NewEngine(1200, 800)
	nodes := []graph.Node{
		{ID: "pinned", X: 100, Y: 100, Pinned: true},
		{ID: "free", X: 110, Y: 100},
	}
	edges := []graph.Edge{{ID: "e1", SourceID: "pinned", TargetID: "free"}}
	e.SetGraph(nodes, edges)
	e.Settle(200)

	x, y, _ := e.Position("pinned")
	if x != 100 || y != 100 {
		t.Errorf("pinned node moved to (%v,%v)", x, y)
	}
	fx, fy, _ := e.Position("free")
	if fx == 110 && fy == 100 {
		t.Error("free node did not move at all")
	}
}

func TestMoveNodeIsAuthoritative(t *testing.T) {
	e := NewEngine(1200, 800)
	e.SetGraph(twoNodeGraph())
	e.Settle(100)

	e.MoveNode("a", -200, 300, true)
	x, y, _ := e.Position("a")
	if x != -200 || y != 300 {
		t.Fatalf("after MoveNode: (%v,%v), want (-200,300)", x, y)
	}
	if !e.Running() {
		t.Error("MoveNode did not reheat the simulation")
	}

	// Pinned via MoveNode: further ticks must not displace it.
	e.Settle(200)
	x, y, _ = e.Position("a")
	if x != -200 || y != 300 {
		t.Errorf("pinned node drifted to (%v,%v)", x, y)
	}
}

func TestSetGraphPreservesSimulationState(t *testing.T) {
	e := NewEngine(1200, 800)
	e.SetGraph(twoNodeGraph())
	e.Settle(100)
	ax, ay, _ := e.Position("a")

	// Re-sync with an extra node; existing nodes keep their settled spots.
	nodes, edges := twoNodeGraph()
	nodes = append(nodes, graph.Node{ID: "c", X: 500, Y: 500})
	e.SetGraph(nodes, edges)

	x, y, _ := e.Position("a")
	if x != ax || y != ay {
		t.Errorf("node a jumped from (%v,%v) to (%v,%v) on SetGraph", ax, ay, x, y)
	}
	if _, _, ok := e.Position("c"); !ok {
		t.Error("new node missing after SetGraph")
	}

	// Removed nodes disappear from the simulation.
	e.SetGraph(nodes[:2], edges)
	if _, _, ok := e.Position("c"); ok {
		t.Error("removed node still present after SetGraph")
	}
}

func TestDragReheatsAndHoldsAlpha(t *testing.T) {
	e := NewEngine(1200, 800)
	e.SetGraph(twoNodeGraph())
	e.Settle(500)
	if e.Running() {
		t.Fatal("expected settled simulation")
	}

	e.StartDrag("a")
	if !e.Running() {
		t.Fatal("StartDrag did not restart the simulation")
	}
	e.Drag("a", 50, 60)
	x, y, _ := e.Position("a")
	if x != 50 || y != 60 {
		t.Errorf("dragged node at (%v,%v), want (50,60)", x, y)
	}

	// The drag alpha target keeps the simulation warm across many ticks.
	for i := 0; i < 500; i++ {
		e.Tick()
	}
	if !e.Running() {
		t.Error("simulation cooled below alphaMin while dragging")
	}

	e.EndDrag("a", false)
	e.Settle(2000)
	if e.Running() {
		t.Error("simulation never settled after EndDrag")
	}
}

func TestOcclusionPushesNodesOut(t *testing.T) {
	e := NewEngine(1200, 800)
	occ := &Rect{CX: 0, CY: 0, Width: 400, Height: 300}
	e.SetOcclusion(occ)
	e.SetGraph([]graph.Node{{ID: "a", X: 1, Y: 1}}, nil)
	e.Settle(500)

	// Gravity pulls back toward the origin once the node leaves the
	// rect, so assert clear displacement rather than full clearance.
	x, y, _ := e.Position("a")
	if math.Abs(x) < 50 && math.Abs(y) < 50 {
		t.Errorf("node settled at (%v,%v), barely moved off the occluded center", x, y)
	}
}

func TestHiddenNodesGetLongLinks(t *testing.T) {
	e := NewEngine(1200, 800)
	nodes := []graph.Node{
		{ID: "a", X: 0, Y: 0, Hidden: true},
		{ID: "b", X: 10, Y: 0},
	}
	edges := []graph.Edge{{ID: "e1", SourceID: "a", TargetID: "b"}}
	e.SetGraph(nodes, edges)
	e.Settle(1000)

	ax, ay, _ := e.Position("a")
	bx, by, _ := e.Position("b")
	dist := math.Hypot(bx-ax, by-ay)
	// Hidden endpoints use the long 350px rest length.
	if dist < 150 {
		t.Errorf("hidden-link distance = %v, want well above the visible rest length", dist)
	}
}
