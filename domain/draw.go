package domain

import (
	"fmt"
	"strings"
)

// Draw renders d's current graph as a list of indexed nodes followed by a
// list of "a -- b" edges, for debugging — spec.md §4.5 "draw() emits a textual graph representation."
func (d *Domain) Draw() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return drawNodes(d.nodes, d.edges)
}

// Draw renders the topology snapshot captured at Done() time.
func (ds *DomainServer) Draw() string {
	return drawNodes(ds.nodes, ds.edges)
}

func drawNodes(nodes []node, edges [][2]int) string {
	var b strings.Builder
	for i, n := range nodes {
		fmt.Fprintf(&b, "[%d] %s\n", i, n.String())
	}
	for _, e := range edges {
		fmt.Fprintf(&b, "%d -- %d\n", e[0], e[1])
	}
	return b.String()
}
