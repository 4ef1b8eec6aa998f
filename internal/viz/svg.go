// Package viz renders a room graph to SVG: a headless layout pass settles
// node positions, the edge router computes rectilinear paths, and the
// result is written as node cards with labeled connections.
package viz

import (
	"fmt"
	"html"
	"strings"

	"github.com/nickelm/tapestry/internal/graph"
	"github.com/nickelm/tapestry/internal/layout"
	"github.com/nickelm/tapestry/internal/route"
	"github.com/nickelm/tapestry/internal/store"
)

// Export options. Zero values fall back to defaults.
type Options struct {
	Width  float64
	Height float64

	// SettleTicks caps the headless simulation run.
	SettleTicks int

	// KeepPositions skips the layout pass and renders stored coordinates.
	KeepPositions bool
}

const (
	defaultWidth       = 1600.0
	defaultHeight      = 1200.0
	defaultSettleTicks = 300
)

// RenderRoom lays out and renders one room's graph.
func RenderRoom(db *store.DB, roomID string, opts Options) (string, error) {
	snap, err := db.RoomSnapshot(roomID)
	if err != nil {
		return "", fmt.Errorf("loading room: %w", err)
	}
	if len(snap.Nodes) == 0 {
		return "", fmt.Errorf("room %q has no concepts to render", snap.Room.Name)
	}
	return Render(snap.Room.Name, snap.Nodes, snap.Edges, opts), nil
}

// Render produces the SVG document for a node/edge set.
func Render(title string, nodes []graph.Node, edges []graph.Edge, opts Options) string {
	if opts.Width == 0 {
		opts.Width = defaultWidth
	}
	if opts.Height == 0 {
		opts.Height = defaultHeight
	}
	if opts.SettleTicks == 0 {
		opts.SettleTicks = defaultSettleTicks
	}

	positions := make(map[string][2]float64, len(nodes))
	if opts.KeepPositions {
		for _, n := range nodes {
			positions[n.ID] = [2]float64{n.X, n.Y}
		}
	} else {
		engine := layout.NewEngine(opts.Width, opts.Height)
		engine.SetGraph(nodes, edges)
		engine.Settle(opts.SettleTicks)
		positions = engine.Positions()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb,
		`<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="%.0f %.0f %.0f %.0f">`+"\n",
		opts.Width, opts.Height, -opts.Width/2, -opts.Height/2, opts.Width, opts.Height)
	fmt.Fprintf(&sb, "<title>%s</title>\n", html.EscapeString(title))
	sb.WriteString(`<defs><marker id="arrow" viewBox="0 0 6 6" refX="6" refY="3" markerWidth="6" markerHeight="6" orient="auto"><path d="M0,0 L6,3 L0,6 z" fill="#94a3b8"/></marker></defs>` + "\n")
	sb.WriteString(`<rect x="-50%" y="-50%" width="100%" height="100%" fill="#fafaf9"/>` + "\n")

	byID := make(map[string]graph.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}

	sb.WriteString(`<g class="edges" stroke="#94a3b8" stroke-width="1.5" fill="none">` + "\n")
	for _, e := range edges {
		src, okS := byID[e.SourceID]
		tgt, okT := byID[e.TargetID]
		if !okS || !okT {
			continue
		}
		sp, tp := positions[e.SourceID], positions[e.TargetID]
		path := route.Path(
			route.Endpoint{X: sp[0], Y: sp[1], Hidden: src.Hidden},
			route.Endpoint{X: tp[0], Y: tp[1], Hidden: tgt.Hidden},
			nil,
		)
		if len(path) == 0 {
			continue
		}
		if e.Directed {
			sb.WriteString(`<path d="` + pathData(path) + `" marker-end="url(#arrow)"/>` + "\n")
		} else {
			sb.WriteString(`<path d="` + pathData(path) + `"/>` + "\n")
		}
		if e.Label != "" {
			mx := (path[1].X + path[2].X) / 2
			my := (path[1].Y + path[2].Y) / 2
			fmt.Fprintf(&sb,
				`<text x="%.1f" y="%.1f" font-size="10" fill="#64748b" stroke="none" text-anchor="middle">%s</text>`+"\n",
				mx, my-4, html.EscapeString(e.Label))
		}
	}
	sb.WriteString("</g>\n")

	sb.WriteString(`<g class="nodes" font-family="sans-serif">` + "\n")
	for _, n := range nodes {
		if n.Hidden {
			continue
		}
		p := positions[n.ID]
		x := p[0] - layout.NodeWidth/2
		y := p[1] - layout.NodeHeight/2
		fmt.Fprintf(&sb,
			`<rect x="%.1f" y="%.1f" width="%.0f" height="%.0f" rx="8" fill="#ffffff" stroke="#cbd5e1"/>`+"\n",
			x, y, layout.NodeWidth, layout.NodeHeight)
		fmt.Fprintf(&sb,
			`<text x="%.1f" y="%.1f" font-size="12" fill="#1e293b" text-anchor="middle">%s</text>`+"\n",
			p[0], p[1]+4, html.EscapeString(truncate(n.Title, 28)))
		if n.Upvotes > 0 {
			fmt.Fprintf(&sb,
				`<text x="%.1f" y="%.1f" font-size="10" fill="#d97706" text-anchor="end">+%d</text>`+"\n",
				x+layout.NodeWidth-6, y+14, n.Upvotes)
		}
	}
	sb.WriteString("</g>\n")
	sb.WriteString("</svg>\n")
	return sb.String()
}

func pathData(points []route.Point) string {
	var sb strings.Builder
	for i, p := range points {
		if i == 0 {
			fmt.Fprintf(&sb, "M%.1f,%.1f", p.X, p.Y)
		} else {
			fmt.Fprintf(&sb, " L%.1f,%.1f", p.X, p.Y)
		}
	}
	return sb.String()
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
