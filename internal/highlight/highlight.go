// Package highlight computes the purely-local dimming sets for hover,
// edge-hover, and search filtering. It never mutates graph state; the
// renderer applies the result as styling only.
package highlight

import (
	"strings"

	"github.com/nickelm/tapestry/internal/graph"
)

// State is the client-local input to the dimming computation. Search is
// the set of node ids matching the active filter, or nil when no filter is
// active. Hover never overrides search dimming, only restricts further.
type State struct {
	HoveredNode string
	HoveredEdge string
	Search      map[string]bool
}

// Result marks what the renderer should dim this frame.
type Result struct {
	DimmedNodes     map[string]bool
	DimmedEdges     map[string]bool
	HighlightedEdge string
}

// Neighbors returns the one-hop neighbor ids of a node and the ids of the
// edges touching it.
func Neighbors(edges []graph.Edge, nodeID string) (neighbors, touching map[string]bool) {
	neighbors = make(map[string]bool)
	touching = make(map[string]bool)
	for _, e := range edges {
		switch nodeID {
		case e.SourceID:
			neighbors[e.TargetID] = true
			touching[e.ID] = true
		case e.TargetID:
			neighbors[e.SourceID] = true
			touching[e.ID] = true
		}
	}
	return neighbors, touching
}

// MatchSearch returns the ids of nodes whose title or description contains
// the query, case-insensitively. An empty query returns nil (filter off).
func MatchSearch(nodes []graph.Node, query string) map[string]bool {
	query = strings.TrimSpace(strings.ToLower(query))
	if query == "" {
		return nil
	}
	out := make(map[string]bool)
	for _, n := range nodes {
		if strings.Contains(strings.ToLower(n.Title), query) ||
			strings.Contains(strings.ToLower(n.Description), query) {
			out[n.ID] = true
		}
	}
	return out
}

// Compute derives the dim sets for the current state. With both search and
// hover active, a node stays visible only if it matches the search AND is
// the hovered node or one of its neighbors.
func Compute(nodes []graph.Node, edges []graph.Edge, st State) Result {
	res := Result{
		DimmedNodes: make(map[string]bool, len(nodes)),
		DimmedEdges: make(map[string]bool, len(edges)),
	}

	switch {
	case st.HoveredNode != "":
		neighbors, touching := Neighbors(edges, st.HoveredNode)
		for _, n := range nodes {
			keep := n.ID == st.HoveredNode || neighbors[n.ID]
			if st.Search != nil {
				keep = keep && st.Search[n.ID]
			}
			res.DimmedNodes[n.ID] = !keep
		}
		for _, e := range edges {
			res.DimmedEdges[e.ID] = !touching[e.ID]
		}

	case st.HoveredEdge != "":
		var hovered *graph.Edge
		for i := range edges {
			if edges[i].ID == st.HoveredEdge {
				hovered = &edges[i]
				break
			}
		}
		if hovered == nil {
			return Compute(nodes, edges, State{Search: st.Search})
		}
		res.HighlightedEdge = hovered.ID
		for _, n := range nodes {
			keep := hovered.Touches(n.ID)
			if st.Search != nil {
				keep = keep && st.Search[n.ID]
			}
			res.DimmedNodes[n.ID] = !keep
		}
		for _, e := range edges {
			res.DimmedEdges[e.ID] = e.ID != hovered.ID
		}

	case st.Search != nil:
		for _, n := range nodes {
			res.DimmedNodes[n.ID] = !st.Search[n.ID]
		}
		// An edge survives the filter only when both endpoints match.
		for _, e := range edges {
			res.DimmedEdges[e.ID] = !st.Search[e.SourceID] || !st.Search[e.TargetID]
		}

	default:
		for _, n := range nodes {
			res.DimmedNodes[n.ID] = false
		}
		for _, e := range edges {
			res.DimmedEdges[e.ID] = false
		}
	}
	return res
}
