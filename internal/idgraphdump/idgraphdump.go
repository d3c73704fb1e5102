// Package idgraphdump exports one mapping mode's IdGraph as a JSON node/edge
// graph, for the fusegen idgraph CLI command and the compile service's
// debug endpoint.
package idgraphdump

import (
	"strconv"

	"github.com/tensorfuse/fusegen/internal/idgraph"
	"github.com/tensorfuse/fusegen/internal/iterdomaingraphs"
)

// Node is one IdGroup, labelled by the string form of one representative
// member axis plus the full member list.
type Node struct {
	ID      string   `json:"id"`
	Label   string   `json:"label"`
	Members []string `json:"members"`
}

// Edge is one definition/use relationship between two IdGroups, mediated by
// an ExprGroup.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Expr   string `json:"expr"`
}

// Dump is the exported graph for one mapping mode.
type Dump struct {
	Mode  string  `json:"mode"`
	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`

	nodeOf   map[idgraph.IdGroup]*Node
	edgeSeen map[string]bool
}

func newDump(mode iterdomaingraphs.Mode) *Dump {
	return &Dump{
		Mode:     mode.String(),
		Nodes:    make([]*Node, 0),
		Edges:    make([]*Edge, 0),
		nodeOf:   map[idgraph.IdGroup]*Node{},
		edgeSeen: map[string]bool{},
	}
}

// Build exports graph (one mode's IdGraph) as a Dump: one Node per IdGroup,
// one Edge per (definition-group -> ExprGroup -> use-group) hop recorded by
// DefinitionsOf/UsesOf.
func Build(mode iterdomaingraphs.Mode, graph *idgraph.IdGraph) *Dump {
	d := newDump(mode)
	for _, grp := range graph.AllGroups() {
		d.addNode(grp)
	}
	for _, grp := range graph.AllGroups() {
		for _, eg := range graph.UsesOf(grp) {
			for _, out := range graph.OutputGroups(eg) {
				if !out.Valid() {
					continue
				}
				d.addEdge(grp, out, eg)
			}
		}
	}
	return d
}

func (d *Dump) addNode(grp idgraph.IdGroup) *Node {
	rep := grp.Rep()
	if n, ok := d.nodeOf[rep]; ok {
		return n
	}
	members := rep.Members()
	label := ""
	if any := rep.Any(); any != nil {
		label = any.String()
	}
	memberStrs := make([]string, 0, len(members))
	for _, m := range members {
		memberStrs = append(memberStrs, m.String())
	}
	n := &Node{ID: groupID(len(d.Nodes)), Label: label, Members: memberStrs}
	d.nodeOf[rep] = n
	d.Nodes = append(d.Nodes, n)
	return n
}

func (d *Dump) addEdge(from, to idgraph.IdGroup, eg idgraph.ExprGroup) {
	fromNode, toNode := d.addNode(from), d.addNode(to)
	exprLabel := ""
	if any := eg.Rep().Any(); any != nil {
		exprLabel = any.String()
	}
	edgeID := fromNode.ID + "->" + toNode.ID + ":" + exprLabel
	if d.edgeSeen[edgeID] {
		return
	}
	d.edgeSeen[edgeID] = true
	d.Edges = append(d.Edges, &Edge{ID: edgeID, Source: fromNode.ID, Target: toNode.ID, Expr: exprLabel})
}

func groupID(index int) string {
	return "g" + strconv.Itoa(index)
}
