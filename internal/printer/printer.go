// Package printer renders a loopir tree as indented pseudo-CUDA text, for
// debugging and for the rendered-kernel artifact attached to a PassRun.
package printer

import (
	"strings"

	"github.com/tensorfuse/fusegen/internal/irtypes"
	"github.com/tensorfuse/fusegen/internal/loopir"
)

const indentUnit = "  "

// LoopPrinter renders loopir.Node trees to text. The zero value is ready to
// use.
type LoopPrinter struct{}

// New creates a LoopPrinter.
func New() *LoopPrinter { return &LoopPrinter{} }

// Print renders a full stage body (Prolog/Main/Epilog, or a bare statement
// list) as one pseudo-CUDA source string.
func (p *LoopPrinter) Print(body []loopir.Node) string {
	var b strings.Builder
	p.writeNodes(&b, body, 0)
	return b.String()
}

// PrintStage renders body under a "// <label>" comment header, used when
// concatenating several stages (Prolog, Main, Epilog) into one listing.
func (p *LoopPrinter) PrintStage(label string, body []loopir.Node) string {
	var b strings.Builder
	b.WriteString("// ")
	b.WriteString(label)
	b.WriteByte('\n')
	p.writeNodes(&b, body, 0)
	return b.String()
}

func (p *LoopPrinter) writeNodes(b *strings.Builder, nodes []loopir.Node, depth int) {
	for _, n := range nodes {
		p.writeNode(b, n, depth)
	}
}

func (p *LoopPrinter) writeNode(b *strings.Builder, n loopir.Node, depth int) {
	indent := strings.Repeat(indentUnit, depth)
	switch node := n.(type) {
	case *loopir.For:
		b.WriteString(indent)
		b.WriteString("for (int ")
		b.WriteString(node.Axis.Name)
		b.WriteString(" = ")
		b.WriteString(valStr(node.Start))
		b.WriteString("; ")
		b.WriteString(node.Axis.Name)
		b.WriteString(" < ")
		b.WriteString(valStr(node.Stop))
		b.WriteString("; ")
		b.WriteString(node.Axis.Name)
		b.WriteString(" += ")
		b.WriteString(valStr(node.Step))
		b.WriteString(") {")
		if node.Vectorized {
			b.WriteString(" // vectorized")
		}
		b.WriteByte('\n')
		p.writeNodes(b, node.Body, depth+1)
		b.WriteString(indent)
		b.WriteString("}\n")
	case *loopir.IfThenElse:
		b.WriteString(indent)
		b.WriteString("if (")
		b.WriteString(node.Predicate)
		b.WriteString(") {\n")
		p.writeNodes(b, node.Then, depth+1)
		b.WriteString(indent)
		b.WriteString("}")
		if len(node.Else) > 0 {
			b.WriteString(" else {\n")
			p.writeNodes(b, node.Else, depth+1)
			b.WriteString(indent)
			b.WriteString("}")
		}
		b.WriteByte('\n')
	case *loopir.LoadStoreOp:
		b.WriteString(indent)
		b.WriteString(node.Op.String())
		if node.InlinePredicate {
			b.WriteString(" /* predicated */")
		}
		b.WriteString(";\n")
	case *loopir.AddressCompute:
		b.WriteString(indent)
		b.WriteString(node.String())
		b.WriteString(";\n")
	case *loopir.CpAsyncCommit:
		b.WriteString(indent)
		b.WriteString(node.String())
		b.WriteString(";\n")
	case *loopir.CpAsyncWait:
		b.WriteString(indent)
		b.WriteString(node.String())
		b.WriteString(";\n")
	case *loopir.BlockSync:
		b.WriteString(indent)
		b.WriteString(node.String())
		b.WriteString(";\n")
	default:
		b.WriteString(indent)
		b.WriteString(n.String())
		b.WriteString(";\n")
	}
}

func valStr(v irtypes.Value) string {
	if v == nil {
		return "?"
	}
	return v.String()
}
