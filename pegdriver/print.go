package pegdriver

import (
	"fmt"
	"io"

	"github.com/nihei9/pegrat/arena"
)

// PrintTree pretty-prints an AstNode as a box-drawing tree, adapted from
// this lineage's driver tree renderer to walk arena pool indices instead of
// a pointer tree. ar must be the Arena the node was produced against.
func PrintTree(w io.Writer, ar *arena.Arena, node arena.AstNode) {
	printTree(w, ar, node, "", "", "")
}

func printTree(w io.Writer, ar *arena.Arena, node arena.AstNode, label, ruledLine, childPrefix string) {
	fmt.Fprintf(w, "%v%v\n", ruledLine, describe(ar, node, label))

	children := childNodes(ar, node)
	num := len(children)
	for i, child := range children {
		var line string
		if num > 1 && i < num-1 {
			line = "├─ "
		} else {
			line = "└─ "
		}

		var prefix string
		if i >= num-1 {
			prefix = "   "
		} else {
			prefix = "│  "
		}

		printTree(w, ar, child.node, child.label, childPrefix+line, childPrefix+prefix)
	}
}

type labeledNode struct {
	label string
	node  arena.AstNode
}

func childNodes(ar *arena.Arena, node arena.AstNode) []labeledNode {
	switch node.Kind {
	case arena.KindArray:
		elems := ar.ArrayElements(node.Start, node.Count)
		out := make([]labeledNode, len(elems))
		for i, e := range elems {
			out[i] = labeledNode{node: e}
		}
		return out
	case arena.KindHash:
		entries := ar.HashEntries(node.Start, node.Count)
		out := make([]labeledNode, len(entries))
		for i, e := range entries {
			key, err := ar.String(e.Key)
			if err != nil {
				key = "?"
			}
			out[i] = labeledNode{label: key, node: e.Value}
		}
		return out
	default:
		return nil
	}
}

func describe(ar *arena.Arena, node arena.AstNode, label string) string {
	prefix := ""
	if label != "" {
		prefix = label + ": "
	}
	switch node.Kind {
	case arena.KindNil:
		return prefix + "Nil"
	case arena.KindBool:
		return fmt.Sprintf("%vBool %v", prefix, node.Bool)
	case arena.KindInt:
		return fmt.Sprintf("%vInt %v", prefix, node.Int)
	case arena.KindFloat:
		return fmt.Sprintf("%vFloat %v", prefix, node.Float)
	case arena.KindStringRef:
		s, err := ar.String(node.StrIndex)
		if err != nil {
			return fmt.Sprintf("%vStringRef <invalid index %d>", prefix, node.StrIndex)
		}
		return fmt.Sprintf("%vString %#v", prefix, s)
	case arena.KindInputRef:
		return fmt.Sprintf("%vInputRef [%d:%d]", prefix, node.Offset, node.Offset+node.Length)
	case arena.KindArray:
		return fmt.Sprintf("%vArray(%d)", prefix, node.Count)
	case arena.KindHash:
		return fmt.Sprintf("%vHash(%d)", prefix, node.Count)
	default:
		return fmt.Sprintf("%v?(%v)", prefix, node.Kind)
	}
}
