package planreport

import (
	"fmt"

	"imputedb/pkg/optimizer/imputed"
	"imputedb/pkg/optimizer/plancache"

	"github.com/emicklei/dot"
)

// PlanDOT renders a candidate plan tree, children pointing at parents.
func PlanDOT(n imputed.Node) string {
	g := dot.NewGraph(dot.Directed)
	g.Attr("rankdir", "BT")
	addTree(g, n, "n")
	return g.String()
}

// CacheDOT renders every plan kept for tables, one cluster per dirty set.
func CacheDOT(c *plancache.Cache[imputed.Node], tables []string) string {
	g := dot.NewGraph(dot.Directed)
	g.Attr("rankdir", "BT")

	clusters := make(map[string]*dot.Graph)
	for i, e := range c.BestPlans(tables) {
		key := e.Plan.DirtySet().Key()
		sub, ok := clusters[key]
		if !ok {
			sub = g.Subgraph("dirty "+key, dot.ClusterOption{})
			clusters[key] = sub
		}
		root := addTree(sub, e.Plan, fmt.Sprintf("p%d", i))
		root.Attr("penwidth", "2")
	}
	return g.String()
}

// addTree adds n and its descendants with ids under prefix and returns n's node.
func addTree(g *dot.Graph, n imputed.Node, prefix string) dot.Node {
	node := g.Node(prefix).Label(n.String()).Box()
	switch n.Kind() {
	case imputed.KindCompose:
		node.Attr("style", "rounded")
	case imputed.KindAggregate:
		node.Attr("shape", "hexagon")
	}
	for i, child := range n.Children() {
		c := addTree(g, child, fmt.Sprintf("%s_%d", prefix, i))
		g.Edge(c, node)
	}
	return node
}
