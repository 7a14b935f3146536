// Package render writes task and instance graphs as DOT digraphs for external
// graph-visualisation tools.
package render

import (
	"bufio"
	"io"
	"strconv"
)

// Arc is an outgoing edge of a drawable node.
type Arc struct {
	To   int
	Size float64
}

// Drawable is the view of a graph needed to render it.
type Drawable interface {
	NodeCount() int
	NodeName(i int) string
	NodeSize(i int) float64
	// NodeColor returns "" when the node carries no colour attribute.
	NodeColor(i int) string
	Arcs(i int) []Arc
}

// DOT writes g as
//
//	digraph {
//	a [size="1.5", color="#7f0080"];
//	a -> b [size="1"];
//	}
//
// listing each node followed by its outgoing edges.
func DOT(w io.Writer, g Drawable) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("digraph {\n")
	for i := 0; i < g.NodeCount(); i++ {
		name := g.NodeName(i)
		bw.WriteString(name)
		bw.WriteString(` [size="`)
		bw.WriteString(formatSize(g.NodeSize(i)))
		bw.WriteByte('"')
		if c := g.NodeColor(i); c != "" {
			bw.WriteString(`, color="`)
			bw.WriteString(c)
			bw.WriteByte('"')
		}
		bw.WriteString("];\n")

		for _, a := range g.Arcs(i) {
			bw.WriteString(name)
			bw.WriteString(" -> ")
			bw.WriteString(g.NodeName(a.To))
			bw.WriteString(` [size="`)
			bw.WriteString(formatSize(a.Size))
			bw.WriteString("\"];\n")
		}
	}
	bw.WriteString("}\n")
	return bw.Flush()
}

func formatSize(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
